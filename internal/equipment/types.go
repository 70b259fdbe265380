package equipment

import (
	"context"
	"errors"
	"time"
)

// Equipment is one installed or planned device on a project.
type Equipment struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id"`
	UID        string    `json:"uid"` // EQ-### within the project
	Name       string    `json:"name"`
	Category   string    `json:"category,omitempty"`
	Room       string    `json:"room,omitempty"`
	Status     string    `json:"status,omitempty"`
	SerialNo   string    `json:"serial_no,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
	MACAddress string    `json:"mac_address,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Filter narrows GetAll. Empty fields add no predicate.
type Filter struct {
	ProjectID  string
	Room       string
	Categories []string
	Search     string // matched against name and serial number
}

// SecureLink is one row of the equipment <-> secure-data junction. The first
// link written for a piece of equipment is flagged primary.
type SecureLink struct {
	EquipmentID  string `json:"equipment_id"`
	SecureDataID string `json:"secure_data_id"`
	Primary      bool   `json:"primary"`
}

var (
	ErrNotFound       = errors.New("equipment: not found")
	ErrMissingProject = errors.New("equipment: project_id is required")
	ErrMissingName    = errors.New("equipment: name is required")
)

// Service exposes equipment CRUD plus the secure-data junction.
type Service interface {
	GetAll(ctx context.Context, f Filter) ([]Equipment, error)
	GetByID(ctx context.Context, id string) (*Equipment, error)
	// Create assigns the next client-computed EQ-### UID within the project.
	Create(ctx context.Context, e Equipment) (Equipment, error)
	Update(ctx context.Context, id string, patch map[string]any) (Equipment, error)
	Delete(ctx context.Context, id string) error

	// LinkSecureData replaces all existing links for the equipment with the
	// given set; the first id becomes the primary link. An empty set clears
	// all links. Not atomic: see package codes for the same caveat.
	LinkSecureData(ctx context.Context, equipmentID string, secureDataIDs []string) ([]SecureLink, error)
	UnlinkSecureData(ctx context.Context, equipmentID, secureDataID string) error
	GetSecureLinks(ctx context.Context, equipmentID string) ([]SecureLink, error)
}
