package store

import (
	"database/sql"

	"github.com/taskboard/apiserver/types"
)

// CommentRepository handles persistence for task comments. Comments are
// plain generic CRUD; everything interesting lives in the shared layer.
type CommentRepository struct {
	*CRUD[types.Comment]
}

func NewCommentRepository(db *sql.DB) *CommentRepository {
	return &CommentRepository{
		CRUD: NewCRUD[types.Comment](db, Mapping[types.Comment]{
			Table: "comments",
			Columns: []string{
				"id", "task_id", "author_id", "body",
				"created_at", "updated_at", "deleted_at",
			},
			Scan:       scanComment,
			Insertable: []string{"task_id", "author_id", "body"},
			Patchable:  []string{"body"},
		}),
	}
}

func scanComment(s RowScanner) (types.Comment, error) {
	var c types.Comment
	err := s.Scan(
		&c.ID,
		&c.TaskID,
		&c.AuthorID,
		&c.Body,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.DeletedAt,
	)
	return c, err
}
