package types

import "time"

// Comment is a user-authored note on a task.
type Comment struct {
	ID        int        `json:"id" db:"id"`
	TaskID    int        `json:"task_id" db:"task_id"`
	AuthorID  int        `json:"author_id" db:"author_id"`
	Body      string     `json:"body" db:"body"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}
