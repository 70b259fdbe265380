package secure

import (
	"context"
	"errors"
	"time"
)

// Record is one credential or other sensitive item. Reads come from a
// decrypting database view; writes go through server-side procedures that
// accept plaintext and encrypt server-side. This code never encrypts locally.
type Record struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind,omitempty"` // credential, network, gate-code...
	Username  string    `json:"username,omitempty"`
	Password  string    `json:"password,omitempty"` // decrypted by the view
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Filter narrows GetAll.
type Filter struct {
	ProjectID string
	Kind      string
}

var (
	ErrNotFound       = errors.New("secure: not found")
	ErrMissingProject = errors.New("secure: project_id is required")
	ErrMissingName    = errors.New("secure: name is required")
)

// Service exposes secure-record operations. Every call, reads included,
// appends an audit entry through a best-effort sink.
type Service interface {
	GetAll(ctx context.Context, f Filter) ([]Record, error)
	GetByID(ctx context.Context, id string) (*Record, error)
	Create(ctx context.Context, r Record) (Record, error)
	Update(ctx context.Context, id string, patch map[string]any) (Record, error)
	Delete(ctx context.Context, id string) error
}
