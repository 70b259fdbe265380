package project

import (
	"context"
	"errors"
	"math"
	"time"
)

// Project is one customer installation job.
type Project struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	ClientID    string     `json:"client_id"`
	Status      string     `json:"status"`
	Address     string     `json:"address,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Description string     `json:"description,omitempty"`
}

// Filter narrows GetAll. Nil/empty fields add no predicate.
type Filter struct {
	ClientID     string
	Statuses     []string
	StartedAfter *time.Time
	EndedBefore  *time.Time
	Search       string // matched against name and address
}

// Phase is one project milestone with an optional computed progress snapshot.
type Phase struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
	// Percent is the computed completion percentage, when a progress snapshot
	// exists for the phase. Nil means no snapshot was ever computed.
	Percent *float64 `json:"percent,omitempty"`
	// ActualDate and CompletedManually are the manually entered completion
	// markers, consulted only when no computed percentage exists.
	ActualDate        *time.Time `json:"actual_date,omitempty"`
	CompletedManually bool       `json:"completed_manually"`
	CompletedItems    int        `json:"completed_items"`
	TotalItems        int        `json:"total_items"`
}

// Complete applies the single-source-of-truth rule: a computed percentage of
// 100 or more wins regardless of the manual markers; a phase with no computed
// percentage falls back to the manual date/flag.
func (p Phase) Complete() bool {
	if p.Percent != nil {
		return *p.Percent >= 100
	}
	return p.ActualDate != nil || p.CompletedManually
}

// PercentOf is the one rounding rule used everywhere a progress figure is
// shown: round(100 * completed / total). Zero total reports zero.
func PercentOf(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}

var (
	ErrNotFound      = errors.New("project: not found")
	ErrHasOrders     = errors.New("project: cannot delete a project with linked purchase orders")
	ErrMissingName   = errors.New("project: name is required")
	ErrMissingClient = errors.New("project: client_id is required")
)

// Service exposes project and milestone operations.
type Service interface {
	GetAll(ctx context.Context, f Filter) ([]Project, error)
	GetByID(ctx context.Context, id string) (*Project, error)
	Create(ctx context.Context, p Project) (Project, error)
	Update(ctx context.Context, id string, patch map[string]any) (Project, error)
	// Delete refuses to remove a project that still has purchase orders.
	Delete(ctx context.Context, id string) error

	GetPhases(ctx context.Context, projectID string) ([]Phase, error)
	SetPhaseManualCompletion(ctx context.Context, phaseID string, actual *time.Time, manual bool) error
}
