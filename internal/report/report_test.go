package report

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"fieldops.app/internal/project"
	"fieldops.app/internal/purchase"
	"fieldops.app/internal/ticket"
	"fieldops.app/internal/wiredrop"
)

func pct(v float64) *float64 { return &v }

type stubProjects struct {
	project   *project.Project
	phases    []project.Phase
	phasesErr error
}

func (s stubProjects) GetAll(ctx context.Context, f project.Filter) ([]project.Project, error) {
	return nil, nil
}
func (s stubProjects) GetByID(ctx context.Context, id string) (*project.Project, error) {
	return s.project, nil
}
func (s stubProjects) Create(ctx context.Context, p project.Project) (project.Project, error) {
	return p, nil
}
func (s stubProjects) Update(ctx context.Context, id string, patch map[string]any) (project.Project, error) {
	return project.Project{}, nil
}
func (s stubProjects) Delete(ctx context.Context, id string) error { return nil }
func (s stubProjects) GetPhases(ctx context.Context, projectID string) ([]project.Phase, error) {
	return s.phases, s.phasesErr
}
func (s stubProjects) SetPhaseManualCompletion(ctx context.Context, phaseID string, actual *time.Time, manual bool) error {
	return nil
}

type stubTickets struct {
	tickets []ticket.Ticket
	err     error
}

func (s stubTickets) GetAll(ctx context.Context, f ticket.Filter) ([]ticket.Ticket, error) {
	return s.tickets, s.err
}
func (s stubTickets) GetByID(ctx context.Context, id string) (*ticket.Ticket, error) {
	return nil, nil
}
func (s stubTickets) Create(ctx context.Context, t ticket.Ticket) (ticket.Ticket, error) {
	return t, nil
}
func (s stubTickets) Update(ctx context.Context, id string, patch map[string]any) (ticket.Ticket, error) {
	return ticket.Ticket{}, nil
}
func (s stubTickets) Delete(ctx context.Context, id string) error { return nil }
func (s stubTickets) SetStatus(ctx context.Context, id, status, author string) (ticket.Ticket, error) {
	return ticket.Ticket{}, nil
}
func (s stubTickets) AddNote(ctx context.Context, n ticket.Note) (ticket.Note, error) {
	return n, nil
}
func (s stubTickets) GetNotes(ctx context.Context, ticketID string) ([]ticket.Note, error) {
	return nil, nil
}
func (s stubTickets) AssignServicePONumber(ctx context.Context, id string) (ticket.Ticket, error) {
	return ticket.Ticket{}, nil
}

type stubOrders struct {
	orders []purchase.Order
}

func (s stubOrders) GetAll(ctx context.Context, f purchase.Filter) ([]purchase.Order, error) {
	return s.orders, nil
}
func (s stubOrders) GetByID(ctx context.Context, id string) (*purchase.Order, error) {
	return nil, nil
}
func (s stubOrders) CreateWithItems(ctx context.Context, o purchase.Order, items []purchase.LineItem) (purchase.Order, []purchase.LineItem, error) {
	return o, items, nil
}
func (s stubOrders) Update(ctx context.Context, id string, patch map[string]any) (purchase.Order, error) {
	return purchase.Order{}, nil
}
func (s stubOrders) Delete(ctx context.Context, id string) error { return nil }
func (s stubOrders) GetItems(ctx context.Context, orderID string) ([]purchase.LineItem, error) {
	return nil, nil
}
func (s stubOrders) CreatePublicLink(ctx context.Context, orderID string, ttl time.Duration) (purchase.PublicLink, error) {
	return purchase.PublicLink{}, nil
}
func (s stubOrders) ResolvePublicLink(ctx context.Context, token string) (*purchase.Order, []purchase.LineItem, error) {
	return nil, nil, nil
}
func (s stubOrders) RevokePublicLink(ctx context.Context, token string) error { return nil }
func (s stubOrders) CountByProject(ctx context.Context, projectID string) (int, error) {
	return len(s.orders), nil
}

type stubDrops struct {
	drops []wiredrop.Drop
}

func (s stubDrops) GetAll(ctx context.Context, f wiredrop.Filter) ([]wiredrop.Drop, error) {
	return s.drops, nil
}
func (s stubDrops) GetByID(ctx context.Context, id string) (*wiredrop.Drop, error) {
	return nil, nil
}
func (s stubDrops) Create(ctx context.Context, d wiredrop.Drop) (wiredrop.Drop, error) {
	return d, nil
}
func (s stubDrops) Update(ctx context.Context, id string, patch map[string]any) (wiredrop.Drop, error) {
	return wiredrop.Drop{}, nil
}
func (s stubDrops) Delete(ctx context.Context, id string) error { return nil }
func (s stubDrops) GetStages(ctx context.Context, dropID string) ([]wiredrop.Stage, error) {
	return nil, nil
}
func (s stubDrops) CompleteStage(ctx context.Context, stageID string, photoURL string) (wiredrop.Stage, error) {
	return wiredrop.Stage{}, nil
}
func (s stubDrops) LinkEquipment(ctx context.Context, dropID string, equipmentIDs []string) ([]wiredrop.EquipmentLink, error) {
	return nil, nil
}
func (s stubDrops) UnlinkEquipment(ctx context.Context, dropID, equipmentID string) error {
	return nil
}
func (s stubDrops) GetEquipmentLinks(ctx context.Context, dropID string) ([]wiredrop.EquipmentLink, error) {
	return nil, nil
}

func TestBuildJoinsAllSections(t *testing.T) {
	g := NewGenerator(
		stubProjects{
			project: &project.Project{ID: "p1", Name: "Smith Residence", Address: "12 Elm St"},
			phases: []project.Phase{
				{Name: "Prewire", CompletedItems: 40, TotalItems: 40, Percent: pct(100)},
				{Name: "Trim", CompletedItems: 9, TotalItems: 20, Percent: pct(45)},
			},
		},
		stubTickets{tickets: []ticket.Ticket{
			{Title: "a", Status: ticket.StatusOpen},
			{Title: "b", Status: ticket.StatusBlocked},
			{Title: "c", Status: ticket.StatusClosed},
		}},
		stubOrders{orders: []purchase.Order{
			{Number: "PO-1", Status: purchase.StatusOrdered},
			{Number: "PO-2", Status: purchase.StatusReceived},
		}},
		stubDrops{drops: []wiredrop.Drop{{UID: "LIVINGTVDROP-0001"}}},
	)

	rep, err := g.Build(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}

	// 49 of 60 items: round(81.66) = 82.
	if rep.PercentComplete != 82 {
		t.Fatalf("percent = %d", rep.PercentComplete)
	}
	if len(rep.Tickets) != 3 || len(rep.Orders) != 2 || len(rep.Drops) != 1 {
		t.Fatalf("sections = %d/%d/%d", len(rep.Tickets), len(rep.Orders), len(rep.Drops))
	}

	email := g.Render(rep)
	want := "82% complete, 2 open tickets (1 blocked), 1 open purchase orders"
	if !strings.Contains(email.Text, want) || !strings.Contains(email.HTML, want) {
		t.Fatalf("summary missing:\n%s", email.Text)
	}
}

func TestBuildToleratesSectionFailure(t *testing.T) {
	g := NewGenerator(
		stubProjects{
			project:   &project.Project{ID: "p1", Name: "Smith Residence"},
			phasesErr: errors.New("phase query failed"),
		},
		stubTickets{err: errors.New("ticket query failed")},
		stubOrders{},
		stubDrops{},
	)

	rep, err := g.Build(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if rep.Phases != nil || rep.Tickets != nil {
		t.Fatalf("failed sections must stay empty: %+v", rep)
	}
	if rep.PercentComplete != 0 {
		t.Fatalf("percent = %d", rep.PercentComplete)
	}
}

func TestBuildMissingProject(t *testing.T) {
	g := NewGenerator(stubProjects{}, stubTickets{}, stubOrders{}, stubDrops{})
	if _, err := g.Build(context.Background(), "nope"); err == nil {
		t.Fatal("expected error for missing project")
	}
}

func TestOverallPercentFallsBackToPhaseCount(t *testing.T) {
	phases := []project.Phase{
		{Name: "Prewire", CompletedManually: true},
		{Name: "Trim"},
		{Name: "Commission"},
	}
	if got := overallPercent(phases); got != 33 {
		t.Fatalf("percent = %d", got)
	}
}
