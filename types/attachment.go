package types

import "time"

// Attachment is a file uploaded to a task. The bytes live in object
// storage under ObjectKey; the row only carries metadata.
type Attachment struct {
	ID          int        `json:"id" db:"id"`
	TaskID      int        `json:"task_id" db:"task_id"`
	ProjectID   int        `json:"project_id" db:"project_id"`
	UploadedBy  int        `json:"uploaded_by" db:"uploaded_by"`
	FileName    string     `json:"file_name" db:"file_name"`
	ContentType string     `json:"content_type" db:"content_type"`
	SizeBytes   int64      `json:"size_bytes" db:"size_bytes"`
	ObjectKey   string     `json:"-" db:"object_key"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}
