// Package report assembles the full project report from the individual
// services and renders it as an email. All source fetches run in parallel;
// only the project itself is required, every other section degrades to empty
// when its fetch fails.
package report

import (
	"context"
	"sync"
	"time"

	"fieldops.app/internal/mailer"
	"fieldops.app/internal/obs"
	"fieldops.app/internal/project"
	"fieldops.app/internal/purchase"
	"fieldops.app/internal/svcerr"
	"fieldops.app/internal/ticket"
	"fieldops.app/internal/wiredrop"
)

// Report is the joined view of one project.
type Report struct {
	Project project.Project  `json:"project"`
	Phases  []project.Phase  `json:"phases"`
	Tickets []ticket.Ticket  `json:"tickets"`
	Orders  []purchase.Order `json:"orders"`
	Drops   []wiredrop.Drop  `json:"drops"`

	PercentComplete int       `json:"percent_complete"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// Generator fans out to the services behind a report.
type Generator struct {
	projects project.Service
	tickets  ticket.Service
	orders   purchase.Service
	drops    wiredrop.Service
	now      func() time.Time
}

func NewGenerator(projects project.Service, tickets ticket.Service, orders purchase.Service, drops wiredrop.Service) *Generator {
	return &Generator{
		projects: projects,
		tickets:  tickets,
		orders:   orders,
		drops:    drops,
		now:      time.Now,
	}
}

// Build fetches every section of the report concurrently. A missing project
// fails the whole report; a failing section is logged and left empty.
func (g *Generator) Build(ctx context.Context, projectID string) (*Report, error) {
	p, err := g.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, svcerr.Wrap(svcerr.NotFound, "project not found", project.ErrNotFound)
	}

	rep := &Report{Project: *p, GeneratedAt: g.now()}

	var wg sync.WaitGroup
	section := func(name string, fetch func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fetch(); err != nil {
				obs.LogRequest(map[string]any{
					"level":   "warn",
					"msg":     "report section failed",
					"section": name,
					"project": projectID,
					"error":   err.Error(),
				})
			}
		}()
	}

	section("phases", func() error {
		phases, err := g.projects.GetPhases(ctx, projectID)
		if err != nil {
			return err
		}
		rep.Phases = phases
		return nil
	})
	section("tickets", func() error {
		tickets, err := g.tickets.GetAll(ctx, ticket.Filter{ProjectID: projectID})
		if err != nil {
			return err
		}
		rep.Tickets = tickets
		return nil
	})
	section("orders", func() error {
		orders, err := g.orders.GetAll(ctx, purchase.Filter{ProjectID: projectID})
		if err != nil {
			return err
		}
		rep.Orders = orders
		return nil
	})
	section("drops", func() error {
		drops, err := g.drops.GetAll(ctx, wiredrop.Filter{ProjectID: projectID})
		if err != nil {
			return err
		}
		rep.Drops = drops
		return nil
	})

	wg.Wait()
	rep.PercentComplete = overallPercent(rep.Phases)
	return rep, nil
}

// Render produces the report email.
func (g *Generator) Render(rep *Report) mailer.Email {
	counts := mailer.CountTickets(rep.Tickets)

	data := mailer.ReportData{
		ProjectName:     rep.Project.Name,
		Address:         rep.Project.Address,
		PercentComplete: rep.PercentComplete,
		OpenTickets:     counts.TotalOpen,
		BlockedTickets:  counts.Blocked,
		OpenOrders:      countOpenOrders(rep.Orders),
		GeneratedAt:     rep.GeneratedAt,
	}
	for _, ph := range rep.Phases {
		data.Phases = append(data.Phases, mailer.PhaseLine{
			Name:     ph.Name,
			Percent:  project.PercentOf(ph.CompletedItems, ph.TotalItems),
			Complete: ph.Complete(),
		})
	}
	return mailer.ProjectReportEmail(data)
}

// overallPercent aggregates item counts across phases. Phases with no item
// snapshot fall back to counting whole phases.
func overallPercent(phases []project.Phase) int {
	var completed, total int
	for _, ph := range phases {
		completed += ph.CompletedItems
		total += ph.TotalItems
	}
	if total > 0 {
		return project.PercentOf(completed, total)
	}

	done := 0
	for _, ph := range phases {
		if ph.Complete() {
			done++
		}
	}
	return project.PercentOf(done, len(phases))
}

func countOpenOrders(orders []purchase.Order) int {
	open := 0
	for _, o := range orders {
		switch o.Status {
		case purchase.StatusReceived, purchase.StatusCancelled:
		default:
			open++
		}
	}
	return open
}
