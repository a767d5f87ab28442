package types

import "time"

// Column is a board lane within a project. Positions are dense per
// project: 0..n-1 with no gaps, maintained transactionally on reorder.
type Column struct {
	ID        int        `json:"id" db:"id"`
	ProjectID int        `json:"project_id" db:"project_id"`
	Title     string     `json:"title" db:"title"`
	Position  int        `json:"position" db:"position"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Task is a unit of work placed in a column. Positions are dense per
// column, same invariant as Column positions.
type Task struct {
	ID          int        `json:"id" db:"id"`
	ProjectID   int        `json:"project_id" db:"project_id"`
	ColumnID    int        `json:"column_id" db:"column_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description,omitempty" db:"description"`
	Priority    string     `json:"priority" db:"priority"`
	Position    int        `json:"position" db:"position"`
	CreatorID   int        `json:"creator_id" db:"creator_id"`
	AssigneeID  *int       `json:"assignee_id,omitempty" db:"assignee_id"`
	DueAt       *time.Time `json:"due_at,omitempty" db:"due_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}
