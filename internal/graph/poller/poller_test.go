package poller

import (
	"context"
	"testing"
	"time"

	"fieldops.app/internal/graph"
)

type memSource struct {
	appts  []Tracked
	states map[string]string
}

func (m *memSource) PendingAppointments(ctx context.Context) ([]Tracked, error) {
	return m.appts, nil
}

func (m *memSource) SetState(ctx context.Context, ticketID, state string) error {
	if m.states == nil {
		m.states = map[string]string{}
	}
	m.states[ticketID] = state
	return nil
}

type fakeWorkflow struct {
	responses map[string][]graph.AttendeeResponse
	added     []string
	finalized []string
}

func (f *fakeWorkflow) GetEventAttendeeResponses(ctx context.Context, eventID string) ([]graph.AttendeeResponse, error) {
	return f.responses[eventID], nil
}

func (f *fakeWorkflow) AddCustomerToServiceEvent(ctx context.Context, eventID, email, name string) (graph.EventMapping, error) {
	f.added = append(f.added, eventID)
	return graph.EventMapping{ID: eventID}, nil
}

func (f *fakeWorkflow) FinalizeServiceEvent(ctx context.Context, eventID string) (graph.EventMapping, error) {
	f.finalized = append(f.finalized, eventID)
	return graph.EventMapping{ID: eventID}, nil
}

func tracked(state string) Tracked {
	return Tracked{
		TicketID:      "t-1",
		EventID:       "ev-1",
		State:         state,
		TechEmail:     "tech@fieldops.app",
		CustomerEmail: "customer@example.com",
		CustomerName:  "Sam",
		CreatedAt:     time.Now(),
	}
}

func TestSweepAdvancesPendingWhenTechAccepts(t *testing.T) {
	src := &memSource{appts: []Tracked{tracked(StatePending)}}
	wf := &fakeWorkflow{responses: map[string][]graph.AttendeeResponse{
		"ev-1": {{Email: "tech@fieldops.app", Response: "accepted"}},
	}}

	New(src, wf, time.Minute, time.Hour).Sweep(context.Background())

	if len(wf.added) != 1 || src.states["t-1"] != StateAwaitingCustomer {
		t.Fatalf("added=%v states=%v", wf.added, src.states)
	}
	if len(wf.finalized) != 0 {
		t.Fatal("must advance at most one state per sweep")
	}
}

func TestSweepHoldsPendingUntilTechAccepts(t *testing.T) {
	src := &memSource{appts: []Tracked{tracked(StatePending)}}
	wf := &fakeWorkflow{responses: map[string][]graph.AttendeeResponse{
		"ev-1": {{Email: "tech@fieldops.app", Response: "none"}},
	}}

	New(src, wf, time.Minute, time.Hour).Sweep(context.Background())

	if len(wf.added) != 0 || len(src.states) != 0 {
		t.Fatalf("pending advanced without acceptance: %v %v", wf.added, src.states)
	}
}

func TestSweepFinalizesWhenCustomerAccepts(t *testing.T) {
	src := &memSource{appts: []Tracked{tracked(StateAwaitingCustomer)}}
	wf := &fakeWorkflow{responses: map[string][]graph.AttendeeResponse{
		"ev-1": {
			{Email: "tech@fieldops.app", Response: "accepted"},
			{Email: "customer@example.com", Response: "accepted"},
		},
	}}

	New(src, wf, time.Minute, time.Hour).Sweep(context.Background())

	if len(wf.finalized) != 1 || src.states["t-1"] != StateConfirmed {
		t.Fatalf("finalized=%v states=%v", wf.finalized, src.states)
	}
}

func TestSweepExpiresStaleAppointments(t *testing.T) {
	a := tracked(StatePending)
	a.CreatedAt = time.Now().Add(-48 * time.Hour)
	src := &memSource{appts: []Tracked{a}}
	wf := &fakeWorkflow{}

	New(src, wf, time.Minute, 24*time.Hour).Sweep(context.Background())

	if src.states["t-1"] != StateExpired {
		t.Fatalf("states=%v", src.states)
	}
	if len(wf.added) != 0 && len(wf.finalized) != 0 {
		t.Fatal("expired appointments must not advance")
	}
}
