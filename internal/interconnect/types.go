package interconnect

import (
	"context"
	"errors"
	"time"
)

// Interconnect is one rack-to-rack or head-end connection. Labels are
// allocated server-side; the client never computes them.
type Interconnect struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Label     string    `json:"label"`
	FromPort  string    `json:"from_port,omitempty"`
	ToPort    string    `json:"to_port,omitempty"`
	Medium    string    `json:"medium,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Filter narrows GetAll.
type Filter struct {
	ProjectID string
	Medium    string
}

var (
	ErrNotFound       = errors.New("interconnect: not found")
	ErrMissingProject = errors.New("interconnect: project_id is required")
)

// Service exposes interconnect CRUD with server-computed labels.
type Service interface {
	GetAll(ctx context.Context, f Filter) ([]Interconnect, error)
	GetByID(ctx context.Context, id string) (*Interconnect, error)
	Create(ctx context.Context, ic Interconnect) (Interconnect, error)
	Update(ctx context.Context, id string, patch map[string]any) (Interconnect, error)
	Delete(ctx context.Context, id string) error
}
