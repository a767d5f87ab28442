package types

import "time"

// TimeEntry records time a user spent on a task. A running timer has a
// nil StoppedAt; at most one timer may run per (task, user) pair.
type TimeEntry struct {
	ID        int        `json:"id" db:"id"`
	TaskID    int        `json:"task_id" db:"task_id"`
	UserID    int        `json:"user_id" db:"user_id"`
	Note      string     `json:"note,omitempty" db:"note"`
	StartedAt time.Time  `json:"started_at" db:"started_at"`
	StoppedAt *time.Time `json:"stopped_at,omitempty" db:"stopped_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Running reports whether the entry's timer is still open.
func (e TimeEntry) Running() bool {
	return e.StoppedAt == nil
}

// Duration returns the elapsed time of a stopped entry, or the elapsed
// time so far for a running one.
func (e TimeEntry) Duration(now time.Time) time.Duration {
	if e.StoppedAt != nil {
		return e.StoppedAt.Sub(e.StartedAt)
	}
	return now.Sub(e.StartedAt)
}
