package wiredrop

import (
	"context"
	"errors"
	"time"
)

// Drop is one low-voltage wire run.
type Drop struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	UID       string    `json:"uid"` // <ROOM6><DROP6>-<4-digit-ms-suffix>
	Name      string    `json:"name"`
	Room      string    `json:"room"`
	Type      string    `json:"type,omitempty"`
	CableType string    `json:"cable_type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stage is one installation stage of a drop (prewire, trim, commission).
type Stage struct {
	ID          string     `json:"id"`
	DropID      string     `json:"drop_id"`
	Name        string     `json:"name"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	PhotoURL    string     `json:"photo_url,omitempty"`
}

// EquipmentLink joins a drop to the equipment terminated on it; the first
// link in a replace-all write is primary.
type EquipmentLink struct {
	DropID      string `json:"drop_id"`
	EquipmentID string `json:"equipment_id"`
	Primary     bool   `json:"primary"`
}

// Filter narrows GetAll.
type Filter struct {
	ProjectID string
	Room      string
	Types     []string
	Search    string
}

var (
	ErrNotFound       = errors.New("wiredrop: not found")
	ErrMissingProject = errors.New("wiredrop: project_id is required")
	ErrMissingRoom    = errors.New("wiredrop: room is required")
)

// Service exposes wire-drop CRUD, stages and the equipment junction.
type Service interface {
	GetAll(ctx context.Context, f Filter) ([]Drop, error)
	GetByID(ctx context.Context, id string) (*Drop, error)
	Create(ctx context.Context, d Drop) (Drop, error)
	Update(ctx context.Context, id string, patch map[string]any) (Drop, error)
	Delete(ctx context.Context, id string) error

	GetStages(ctx context.Context, dropID string) ([]Stage, error)
	CompleteStage(ctx context.Context, stageID string, photoURL string) (Stage, error)

	// LinkEquipment replaces all links for the drop; empty set clears them.
	LinkEquipment(ctx context.Context, dropID string, equipmentIDs []string) ([]EquipmentLink, error)
	UnlinkEquipment(ctx context.Context, dropID, equipmentID string) error
	GetEquipmentLinks(ctx context.Context, dropID string) ([]EquipmentLink, error)
}
