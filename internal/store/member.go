package store

import (
	"context"
	"database/sql"

	"github.com/taskboard/apiserver/types"
)

// MemberRepository handles persistence for project memberships.
type MemberRepository struct {
	*CRUD[types.ProjectMember]
	db *sql.DB
}

func NewMemberRepository(db *sql.DB) *MemberRepository {
	return &MemberRepository{
		db: db,
		CRUD: NewCRUD[types.ProjectMember](db, Mapping[types.ProjectMember]{
			Table: "project_members",
			Columns: []string{
				"id", "project_id", "user_id", "status",
				"created_at", "updated_at", "deleted_at",
			},
			Scan:       scanMember,
			Insertable: []string{"project_id", "user_id", "status"},
			Patchable:  []string{"status"},
		}),
	}
}

func scanMember(s RowScanner) (types.ProjectMember, error) {
	var m types.ProjectMember
	err := s.Scan(
		&m.ID,
		&m.ProjectID,
		&m.UserID,
		&m.Status,
		&m.CreatedAt,
		&m.UpdatedAt,
		&m.DeletedAt,
	)
	return m, err
}

// FindMembership fetches the live membership for a (project, user) pair
// regardless of its status.
func (r *MemberRepository) FindMembership(ctx context.Context, projectID, userID int) (types.ProjectMember, bool, error) {
	return r.FindOne(ctx, Values{"project_id": projectID, "user_id": userID})
}

// FindAccepted fetches the live accepted membership for a
// (project, user) pair. Invited-but-unaccepted memberships do not count.
func (r *MemberRepository) FindAccepted(ctx context.Context, projectID, userID int) (types.ProjectMember, bool, error) {
	return r.FindOne(ctx, Values{
		"project_id": projectID,
		"user_id":    userID,
		"status":     types.MemberAccepted,
	})
}
