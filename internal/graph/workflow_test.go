package graph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeGraph struct {
	t      *testing.T
	events map[string]*Event
	gets   int
	patches int
}

func newFakeGraph(t *testing.T) (*fakeGraph, *Client) {
	f := &fakeGraph{t: t, events: map[string]*Event{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	tokens := NewCachedTokenSource("tok", func(ctx context.Context) (string, error) {
		return "tok", nil
	})
	return f, NewClient(srv.URL, "Pacific Standard Time", tokens)
}

func (f *fakeGraph) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/me/events":
		var e Event
		_ = json.NewDecoder(r.Body).Decode(&e)
		e.ID = "ev-1"
		f.events[e.ID] = &e
		_ = json.NewEncoder(w).Encode(&e)
	case r.Method == http.MethodGet:
		f.gets++
		id := r.URL.Path[len("/me/events/"):]
		e, ok := f.events[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(e)
	case r.Method == http.MethodPatch:
		f.patches++
		id := r.URL.Path[len("/me/events/"):]
		e, ok := f.events[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var patch Event
		_ = json.NewDecoder(r.Body).Decode(&patch)
		if patch.Subject != "" {
			e.Subject = patch.Subject
		}
		if patch.ShowAs != "" {
			e.ShowAs = patch.ShowAs
		}
		if patch.Attendees != nil {
			e.Attendees = patch.Attendees
		}
		_ = json.NewEncoder(w).Encode(e)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func testAppointment() Appointment {
	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	return Appointment{
		Subject:       "Service visit - Smith Residence",
		Body:          "<p>Replace keypad</p>",
		Location:      "12 Elm St",
		Start:         start,
		End:           start.Add(2 * time.Hour),
		TechEmail:     "tech@fieldops.app",
		TechName:      "Pat Tech",
		CustomerEmail: "customer@example.com",
		CustomerName:  "Sam Smith",
	}
}

func TestCreateServiceEventPending(t *testing.T) {
	f, c := newFakeGraph(t)

	_, err := c.CreateServiceEvent(context.Background(), testAppointment())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	e := f.events["ev-1"]
	if e.Subject != "[PENDING] Service visit - Smith Residence" {
		t.Fatalf("subject = %q", e.Subject)
	}
	if e.ShowAs != "tentative" {
		t.Fatalf("showAs = %q", e.ShowAs)
	}
	if len(e.Attendees) != 1 || e.Attendees[0].EmailAddress.Address != "tech@fieldops.app" {
		t.Fatalf("attendees = %+v; only the technician belongs on a pending event", e.Attendees)
	}
}

func TestAddCustomerRewritesMarkerAndKeepsTech(t *testing.T) {
	f, c := newFakeGraph(t)
	ctx := context.Background()

	if _, err := c.CreateServiceEvent(ctx, testAppointment()); err != nil {
		t.Fatal(err)
	}
	if _, err := c.AddCustomerToServiceEvent(ctx, "ev-1", "customer@example.com", "Sam Smith"); err != nil {
		t.Fatal(err)
	}

	e := f.events["ev-1"]
	if e.Subject != "[AWAITING CUSTOMER] Service visit - Smith Residence" {
		t.Fatalf("subject = %q", e.Subject)
	}
	if len(e.Attendees) != 2 {
		t.Fatalf("attendees = %+v; the technician must remain", e.Attendees)
	}
}

func TestAddCustomerIsNoOpWhenAlreadyPresent(t *testing.T) {
	f, c := newFakeGraph(t)
	ctx := context.Background()

	if _, err := c.CreateServiceEvent(ctx, testAppointment()); err != nil {
		t.Fatal(err)
	}
	if _, err := c.AddCustomerToServiceEvent(ctx, "ev-1", "customer@example.com", "Sam Smith"); err != nil {
		t.Fatal(err)
	}
	patchesBefore := f.patches

	// Second call: customer already present, case-insensitive match.
	m, err := c.AddCustomerToServiceEvent(ctx, "ev-1", "Customer@Example.com", "Sam Smith")
	if err != nil {
		t.Fatalf("no-op call errored: %v", err)
	}
	if m.ID != "ev-1" {
		t.Fatalf("mapping = %+v", m)
	}
	if f.patches != patchesBefore {
		t.Fatal("no-op call must not patch the event")
	}
	if len(f.events["ev-1"].Attendees) != 2 {
		t.Fatalf("attendees duplicated: %+v", f.events["ev-1"].Attendees)
	}
}

func TestFinalizeStripsEveryMarker(t *testing.T) {
	for _, marker := range []string{MarkerPending, MarkerAwaitingCustomer, MarkerTentative} {
		f, c := newFakeGraph(t)
		f.events["ev-1"] = &Event{
			ID:      "ev-1",
			Subject: marker + " Service visit",
			ShowAs:  "tentative",
		}

		m, err := c.FinalizeServiceEvent(context.Background(), "ev-1")
		if err != nil {
			t.Fatalf("finalize with %s: %v", marker, err)
		}
		if m.Subject != "Service visit" {
			t.Fatalf("marker %s not stripped: %q", marker, m.Subject)
		}
		if f.events["ev-1"].ShowAs != "busy" {
			t.Fatalf("showAs = %q, want busy", f.events["ev-1"].ShowAs)
		}
	}
}

func TestStripMarkersHandlesStackedMarkers(t *testing.T) {
	got := StripMarkers("[PENDING] [TENTATIVE] Visit")
	if got != "Visit" {
		t.Fatalf("got %q", got)
	}
	if StripMarkers("No markers here") != "No markers here" {
		t.Fatal("plain subject mangled")
	}
}

func TestGetEventAttendeeResponses(t *testing.T) {
	f, c := newFakeGraph(t)
	f.events["ev-1"] = &Event{
		ID: "ev-1",
		Attendees: []Attendee{
			{EmailAddress: EmailAddress{Address: "tech@fieldops.app"}, Status: &ResponseStatus{Response: "accepted"}},
			{EmailAddress: EmailAddress{Address: "customer@example.com"}},
		},
	}

	rs, err := c.GetEventAttendeeResponses(context.Background(), "ev-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(rs) != 2 || rs[0].Response != "accepted" || rs[1].Response != "none" {
		t.Fatalf("responses = %+v", rs)
	}
}
