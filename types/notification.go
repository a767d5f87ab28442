package types

import "time"

// Notification event kinds published on the event bus.
const (
	EventTaskAssigned   = "task.assigned"
	EventTaskMoved      = "task.moved"
	EventCommentAdded   = "comment.added"
	EventMemberInvited  = "member.invited"
	EventMemberAccepted = "member.accepted"
)

// Event is the payload published to the event bus whenever something
// notification-worthy happens. The worker consumes these and materializes
// Notification rows for the target user.
type Event struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	ProjectID    int       `json:"project_id"`
	ActorID      int       `json:"actor_id"`
	TargetUserID int       `json:"target_user_id"`
	TaskID       int       `json:"task_id,omitempty"`
	Message      string    `json:"message"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Notification is a persisted, per-user inbox entry.
type Notification struct {
	ID        int        `json:"id" db:"id"`
	UserID    int        `json:"user_id" db:"user_id"`
	ProjectID int        `json:"project_id" db:"project_id"`
	TaskID    *int       `json:"task_id,omitempty" db:"task_id"`
	Kind      string     `json:"kind" db:"kind"`
	Message   string     `json:"message" db:"message"`
	ReadAt    *time.Time `json:"read_at,omitempty" db:"read_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}
