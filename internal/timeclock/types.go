package timeclock

import (
	"context"
	"errors"
	"time"
)

// Session is one check-in/check-out pair for a technician on a project.
type Session struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	ProjectID  string     `json:"project_id"`
	CheckedIn  time.Time  `json:"checked_in"`
	CheckedOut *time.Time `json:"checked_out,omitempty"`
}

var (
	ErrNoOpenSession      = errors.New("timeclock: no open session to check out of")
	ErrAlreadyCheckedIn   = errors.New("timeclock: already checked in")
	ErrMissingUser        = errors.New("timeclock: user_id is required")
	ErrMissingProject     = errors.New("timeclock: project_id is required")
)

// Service wraps the server-side check-in/check-out procedures, which enforce
// the one-open-session rule atomically.
type Service interface {
	CheckIn(ctx context.Context, userID, projectID string) (Session, error)
	CheckOut(ctx context.Context, userID string) (Session, error)
	OpenSession(ctx context.Context, userID string) (*Session, error)
	SessionsForProject(ctx context.Context, projectID string) ([]Session, error)
}
