package graph

import (
	"strings"
	"time"
)

// Graph event payload shapes, as the calendar API expects them.

type DateTimeTimeZone struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type ItemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type Location struct {
	DisplayName string `json:"displayName"`
}

type EmailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

type ResponseStatus struct {
	Response string `json:"response,omitempty"`
	Time     string `json:"time,omitempty"`
}

type Attendee struct {
	EmailAddress EmailAddress    `json:"emailAddress"`
	Type         string          `json:"type,omitempty"`
	Status       *ResponseStatus `json:"status,omitempty"`
}

// Event is the wire shape for event create/read/update.
type Event struct {
	ID         string            `json:"id,omitempty"`
	Subject    string            `json:"subject"`
	Start      *DateTimeTimeZone `json:"start,omitempty"`
	End        *DateTimeTimeZone `json:"end,omitempty"`
	Body       *ItemBody         `json:"body,omitempty"`
	Location   *Location         `json:"location,omitempty"`
	Attendees  []Attendee        `json:"attendees,omitempty"`
	ShowAs     string            `json:"showAs,omitempty"`
	Categories []string          `json:"categories,omitempty"`
}

// EventMapping is the normalized projection handed to callers. Mapping
// tolerates missing source fields; zero values stand in for anything absent.
type EventMapping struct {
	ID             string    `json:"id"`
	Subject        string    `json:"subject"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	Location       string    `json:"location,omitempty"`
	ShowAs         string    `json:"show_as,omitempty"`
	ResponseStatus string    `json:"response_status,omitempty"`
}

// MapEvent normalizes a raw Graph event. Unknown time formats and nil blocks
// map to zero values rather than errors.
func MapEvent(e *Event) EventMapping {
	if e == nil {
		return EventMapping{}
	}
	m := EventMapping{
		ID:      e.ID,
		Subject: e.Subject,
		ShowAs:  e.ShowAs,
	}
	if e.Start != nil {
		m.Start = parseGraphTime(e.Start.DateTime)
	}
	if e.End != nil {
		m.End = parseGraphTime(e.End.DateTime)
	}
	if e.Location != nil {
		m.Location = e.Location.DisplayName
	}
	return m
}

// parseGraphTime accepts the fractional-seconds layout Graph returns as well
// as plain RFC 3339. Failures map to the zero time.
func parseGraphTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		"2006-01-02T15:04:05.9999999",
		time.RFC3339,
		"2006-01-02T15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// AttendeeResponse is one attendee's accept/decline/tentative state, polled
// to drive the confirmation workflow.
type AttendeeResponse struct {
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Type     string `json:"type,omitempty"`
	Response string `json:"response"` // none, accepted, declined, tentativelyAccepted...
}
