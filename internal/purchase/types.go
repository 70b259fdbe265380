package purchase

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// PO statuses, mutated by direct column updates.
const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
	StatusOrdered   = "ordered"
	StatusReceived  = "received"
	StatusCancelled = "cancelled"
)

// Order is one purchase order.
type Order struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	// Number is allocated by a server-side procedure for service POs and
	// entered manually for project POs.
	Number     string     `json:"po_number"`
	Supplier   string     `json:"supplier,omitempty"`
	Status     string     `json:"status"`
	OrderedAt  *time.Time `json:"ordered_at,omitempty"`
	ReceivedAt *time.Time `json:"received_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// LineItem is one part on an order.
type LineItem struct {
	ID        string  `json:"id"`
	OrderID   string  `json:"order_id"`
	PartID    string  `json:"part_id,omitempty"`
	SKU       string  `json:"sku,omitempty"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitCents int64   `json:"unit_cents"`
	Position  int     `json:"position"`
}

// PublicLink is a tokenised read-only view of an order shared with suppliers.
type PublicLink struct {
	Token     string    `json:"token"`
	OrderID   string    `json:"order_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Filter narrows GetAll.
type Filter struct {
	ProjectID    string
	Statuses     []string
	Supplier     string
	CreatedAfter *time.Time
}

var (
	ErrNotFound       = errors.New("purchase: not found")
	ErrMissingProject = errors.New("purchase: project_id is required")
	ErrNoItems        = errors.New("purchase: at least one line item is required")
	ErrLinkExpired    = errors.New("purchase: public link expired")
)

// EmailSubject is the fixed subject format for PO emails.
func EmailSubject(poNumber, projectName string) string {
	return fmt.Sprintf("Purchase Order %s - %s", poNumber, projectName)
}

// Service exposes purchase orders, line items and public links.
type Service interface {
	GetAll(ctx context.Context, f Filter) ([]Order, error)
	GetByID(ctx context.Context, id string) (*Order, error)
	// CreateWithItems inserts the order, then its line items, then updates the
	// referenced part statuses, strictly in that sequence and without a
	// transaction. A mid-sequence failure returns a Partial error naming what
	// committed.
	CreateWithItems(ctx context.Context, o Order, items []LineItem) (Order, []LineItem, error)
	Update(ctx context.Context, id string, patch map[string]any) (Order, error)
	Delete(ctx context.Context, id string) error

	GetItems(ctx context.Context, orderID string) ([]LineItem, error)

	CreatePublicLink(ctx context.Context, orderID string, ttl time.Duration) (PublicLink, error)
	ResolvePublicLink(ctx context.Context, token string) (*Order, []LineItem, error)
	RevokePublicLink(ctx context.Context, token string) error

	// CountByProject backs the project-deletion precondition.
	CountByProject(ctx context.Context, projectID string) (int, error)
}
