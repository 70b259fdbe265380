// Package poller owns the polling cadence for the appointment confirmation
// workflow. Data-access code never polls; this scheduler fetches pending
// appointments, reads attendee responses and drives the two transitions.
package poller

import (
	"context"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"fieldops.app/internal/graph"
	"fieldops.app/internal/obs"
)

// Appointment states tracked by the workflow.
const (
	StatePending          = "PENDING"
	StateAwaitingCustomer = "AWAITING_CUSTOMER"
	StateConfirmed        = "CONFIRMED"
	StateExpired          = "EXPIRED"
)

// Tracked is one appointment the poller is watching.
type Tracked struct {
	TicketID      string
	EventID       string
	State         string
	TechEmail     string
	CustomerEmail string
	CustomerName  string
	CreatedAt     time.Time
}

// Source lists appointments awaiting confirmation and records transitions.
type Source interface {
	PendingAppointments(ctx context.Context) ([]Tracked, error)
	SetState(ctx context.Context, ticketID, state string) error
}

// Workflow is the slice of the Graph client the poller drives.
type Workflow interface {
	GetEventAttendeeResponses(ctx context.Context, eventID string) ([]graph.AttendeeResponse, error)
	AddCustomerToServiceEvent(ctx context.Context, eventID, customerEmail, customerName string) (graph.EventMapping, error)
	FinalizeServiceEvent(ctx context.Context, eventID string) (graph.EventMapping, error)
}

// Poller runs the confirmation sweep on a cron cadence.
type Poller struct {
	source   Source
	workflow Workflow
	timeout  time.Duration
	cron     *cron.Cron
	tick     time.Duration
}

func New(source Source, workflow Workflow, tick, timeout time.Duration) *Poller {
	return &Poller{
		source:   source,
		workflow: workflow,
		timeout:  timeout,
		tick:     tick,
		cron:     cron.New(),
	}
}

// Start schedules the sweep. The cron entry runs until Stop.
func (p *Poller) Start() error {
	spec := "@every " + p.tick.String()
	_, err := p.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.tick)
		defer cancel()
		p.Sweep(ctx)
	})
	if err != nil {
		return err
	}
	p.cron.Start()
	return nil
}

func (p *Poller) Stop() {
	ctx := p.cron.Stop()
	<-ctx.Done()
}

// Sweep runs one pass over every tracked appointment. Failures on one
// appointment never stop the sweep; they are logged and the next tick
// retries naturally.
func (p *Poller) Sweep(ctx context.Context) {
	appts, err := p.source.PendingAppointments(ctx)
	if err != nil {
		p.warn("listing pending appointments failed", "", err)
		return
	}
	for _, a := range appts {
		if err := p.step(ctx, a); err != nil {
			p.warn("confirmation step failed", a.TicketID, err)
		}
	}
}

// step advances one appointment at most one state per sweep.
func (p *Poller) step(ctx context.Context, a Tracked) error {
	if p.timeout > 0 && time.Since(a.CreatedAt) > p.timeout {
		return p.source.SetState(ctx, a.TicketID, StateExpired)
	}

	responses, err := p.workflow.GetEventAttendeeResponses(ctx, a.EventID)
	if err != nil {
		return err
	}

	switch a.State {
	case StatePending:
		if accepted(responses, a.TechEmail) {
			if _, err := p.workflow.AddCustomerToServiceEvent(ctx, a.EventID, a.CustomerEmail, a.CustomerName); err != nil {
				return err
			}
			return p.source.SetState(ctx, a.TicketID, StateAwaitingCustomer)
		}
	case StateAwaitingCustomer:
		if accepted(responses, a.CustomerEmail) {
			if _, err := p.workflow.FinalizeServiceEvent(ctx, a.EventID); err != nil {
				return err
			}
			return p.source.SetState(ctx, a.TicketID, StateConfirmed)
		}
	}
	return nil
}

func accepted(responses []graph.AttendeeResponse, email string) bool {
	for _, r := range responses {
		if strings.EqualFold(r.Email, email) && r.Response == "accepted" {
			return true
		}
	}
	return false
}

func (p *Poller) warn(msg, ticketID string, err error) {
	obs.LogRequest(map[string]any{
		"ts":     time.Now().UTC().Format(time.RFC3339Nano),
		"level":  "warn",
		"msg":    msg,
		"ticket": ticketID,
		"err":    err.Error(),
	})
}
