package store

import (
	"database/sql"

	"github.com/taskboard/apiserver/types"
)

// AttachmentRepository handles persistence for attachment metadata.
// The file bytes themselves live in object storage.
type AttachmentRepository struct {
	*CRUD[types.Attachment]
}

func NewAttachmentRepository(db *sql.DB) *AttachmentRepository {
	return &AttachmentRepository{
		CRUD: NewCRUD[types.Attachment](db, Mapping[types.Attachment]{
			Table: "attachments",
			Columns: []string{
				"id", "task_id", "project_id", "uploaded_by", "file_name",
				"content_type", "size_bytes", "object_key",
				"created_at", "updated_at", "deleted_at",
			},
			Scan:       scanAttachment,
			Insertable: []string{"task_id", "project_id", "uploaded_by", "file_name", "content_type", "size_bytes", "object_key"},
			Patchable:  []string{"file_name"},
		}),
	}
}

func scanAttachment(s RowScanner) (types.Attachment, error) {
	var a types.Attachment
	err := s.Scan(
		&a.ID,
		&a.TaskID,
		&a.ProjectID,
		&a.UploadedBy,
		&a.FileName,
		&a.ContentType,
		&a.SizeBytes,
		&a.ObjectKey,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.DeletedAt,
	)
	return a, err
}
