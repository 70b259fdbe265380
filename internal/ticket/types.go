package ticket

import (
	"context"
	"errors"
	"time"
)

// Ticket statuses. Status is a plain enum column; transitions are direct
// updates with no ordering enforced.
const (
	StatusOpen       = "open"
	StatusScheduled  = "scheduled"
	StatusInProgress = "in_progress"
	StatusBlocked    = "blocked"
	StatusResolved   = "resolved"
	StatusClosed     = "closed"
)

// Ticket is one field-service request.
type Ticket struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id,omitempty"`
	ContactID   string     `json:"contact_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority,omitempty"`
	// ServicePONumber is allocated by a server-side procedure when the ticket
	// is invoiced; never computed client-side.
	ServicePONumber string `json:"service_po_number,omitempty"`
	// TechnicianEmail identifies the assigned technician on the calendar
	// event; the confirmation poller matches attendee responses against it.
	TechnicianEmail string     `json:"technician_email,omitempty"`
	CalendarEventID string     `json:"calendar_event_id,omitempty"`
	ScheduledStart  *time.Time `json:"scheduled_start,omitempty"`
	ScheduledEnd    *time.Time `json:"scheduled_end,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Note is one entry of a ticket's activity trail.
type Note struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	Author    string    `json:"author,omitempty"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Filter narrows GetAll.
type Filter struct {
	ProjectID     string
	Statuses      []string
	Priority      string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	Search        string // matched against title and description
}

var (
	ErrNotFound     = errors.New("ticket: not found")
	ErrMissingTitle = errors.New("ticket: title is required")
)

// Service exposes ticket CRUD, status updates and the note trail.
type Service interface {
	GetAll(ctx context.Context, f Filter) ([]Ticket, error)
	GetByID(ctx context.Context, id string) (*Ticket, error)
	Create(ctx context.Context, t Ticket) (Ticket, error)
	Update(ctx context.Context, id string, patch map[string]any) (Ticket, error)
	Delete(ctx context.Context, id string) error

	// SetStatus updates the status column and then appends a note describing
	// the change. The note append is best-effort: its failure never fails the
	// status update.
	SetStatus(ctx context.Context, id, status, author string) (Ticket, error)

	AddNote(ctx context.Context, n Note) (Note, error)
	GetNotes(ctx context.Context, ticketID string) ([]Note, error)

	// AssignServicePONumber allocates the next service PO number through the
	// server-side atomic procedure and stores it on the ticket.
	AssignServicePONumber(ctx context.Context, id string) (Ticket, error)
}
