package graph

import (
	"context"
	"strings"
	"time"
)

// Subject markers carried through the confirmation workflow. States move
// PENDING -> AWAITING_CUSTOMER -> CONFIRMED; nothing moves backwards.
const (
	MarkerPending          = "[PENDING]"
	MarkerAwaitingCustomer = "[AWAITING CUSTOMER]"
	MarkerTentative        = "[TENTATIVE]"
)

// Appointment describes a field-service visit to put on the calendar.
type Appointment struct {
	Subject       string
	Body          string
	Location      string
	Start         time.Time
	End           time.Time
	TechEmail     string
	TechName      string
	CustomerEmail string
	CustomerName  string
}

// CreateServiceEvent opens the workflow: the event carries only the
// technician, a [PENDING] subject marker and a tentative free/busy status.
func (c *Client) CreateServiceEvent(ctx context.Context, appt Appointment) (EventMapping, error) {
	e := Event{
		Subject: MarkerPending + " " + appt.Subject,
		Start:   &DateTimeTimeZone{DateTime: appt.Start.Format("2006-01-02T15:04:05"), TimeZone: c.timezone},
		End:     &DateTimeTimeZone{DateTime: appt.End.Format("2006-01-02T15:04:05"), TimeZone: c.timezone},
		Body:    &ItemBody{ContentType: "HTML", Content: appt.Body},
		Attendees: []Attendee{
			{EmailAddress: EmailAddress{Address: appt.TechEmail, Name: appt.TechName}, Type: "required"},
		},
		ShowAs:     "tentative",
		Categories: []string{"Field Service"},
	}
	if appt.Location != "" {
		e.Location = &Location{DisplayName: appt.Location}
	}
	created, err := c.CreateEvent(ctx, e)
	if err != nil {
		return EventMapping{}, err
	}
	return MapEvent(created), nil
}

// AddCustomerToServiceEvent moves the event to awaiting-customer: the
// customer joins the attendee list without removing the technician and the
// subject marker is rewritten. Calling it when the customer is already an
// attendee is a no-op that reports success and changes nothing.
func (c *Client) AddCustomerToServiceEvent(ctx context.Context, eventID, customerEmail, customerName string) (EventMapping, error) {
	e, err := c.GetEvent(ctx, eventID)
	if err != nil {
		return EventMapping{}, err
	}
	for _, a := range e.Attendees {
		if strings.EqualFold(a.EmailAddress.Address, customerEmail) {
			return MapEvent(e), nil
		}
	}

	attendees := append(e.Attendees, Attendee{
		EmailAddress: EmailAddress{Address: customerEmail, Name: customerName},
		Type:         "required",
	})
	patch := Event{
		Subject:   MarkerAwaitingCustomer + " " + StripMarkers(e.Subject),
		Attendees: attendees,
	}
	updated, err := c.UpdateEvent(ctx, eventID, patch)
	if err != nil {
		return EventMapping{}, err
	}
	return MapEvent(updated), nil
}

// FinalizeServiceEvent confirms the appointment: every status marker is
// stripped from the subject, whichever one is present, and the event shows
// as busy.
func (c *Client) FinalizeServiceEvent(ctx context.Context, eventID string) (EventMapping, error) {
	e, err := c.GetEvent(ctx, eventID)
	if err != nil {
		return EventMapping{}, err
	}
	patch := Event{
		Subject: StripMarkers(e.Subject),
		ShowAs:  "busy",
	}
	updated, err := c.UpdateEvent(ctx, eventID, patch)
	if err != nil {
		return EventMapping{}, err
	}
	return MapEvent(updated), nil
}

// StripMarkers removes every workflow marker from a subject line.
func StripMarkers(subject string) string {
	for _, m := range []string{MarkerPending, MarkerAwaitingCustomer, MarkerTentative} {
		subject = strings.ReplaceAll(subject, m, "")
	}
	return strings.Join(strings.Fields(subject), " ")
}
