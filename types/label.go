package types

import "time"

// Label is a colored tag scoped to a project and attachable to tasks.
type Label struct {
	ID        int        `json:"id" db:"id"`
	ProjectID int        `json:"project_id" db:"project_id"`
	Name      string     `json:"name" db:"name"`
	Color     string     `json:"color" db:"color"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}
