// Package graph wraps the Microsoft Graph calendar API: event CRUD, the
// three-step appointment confirmation workflow, and availability checks.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"fieldops.app/internal/obs"
	"fieldops.app/internal/svcerr"
)

const provider = "calendar"

// Client is the Graph calendar client. It is not idempotent: creating an
// event twice for the same appointment produces two calendar entries, so
// callers persist the returned event id and pass it back for updates.
type Client struct {
	baseURL    string
	timezone   string
	httpClient *http.Client
	tokens     TokenSource
	limiter    *rate.Limiter
}

func NewClient(baseURL, timezone string, tokens TokenSource) *Client {
	return &Client{
		baseURL:    baseURL,
		timezone:   timezone,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     tokens,
		// Graph throttles aggressively on bursts; stay under its limits.
		limiter: rate.NewLimiter(rate.Limit(4), 8),
	}
}

// do issues one authenticated request. On a 401 it refreshes the token once
// and retries the same request once; a second failure surfaces as session
// expired. All other non-2xx codes map through svcerr.FromHTTPStatus.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	status, err := c.once(ctx, method, path, tok, payload, out)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		tok, err = c.tokens.Refresh(ctx)
		if err != nil {
			return err
		}
		status, err = c.once(ctx, method, path, tok, payload, out)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			return svcerr.New(svcerr.SessionExpired, "calendar session expired, please sign in again")
		}
	}
	if status >= 300 {
		return svcerr.FromHTTPStatus(provider, status)
	}
	return nil
}

func (c *Client) once(ctx context.Context, method, path, token string, payload, out any) (int, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", fmt.Sprintf("outlook.timezone=%q", c.timezone))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	obs.ObserveExternalCall(provider, resp.StatusCode)

	if resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return 0, fmt.Errorf("decoding response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// GetEvent fetches one event by id.
func (c *Client) GetEvent(ctx context.Context, eventID string) (*Event, error) {
	var e Event
	if err := c.do(ctx, http.MethodGet, "/me/events/"+url.PathEscape(eventID), nil, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateEvent creates a calendar event and returns the stored copy.
func (c *Client) CreateEvent(ctx context.Context, e Event) (*Event, error) {
	var created Event
	if err := c.do(ctx, http.MethodPost, "/me/events", e, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateEvent patches an event in place.
func (c *Client) UpdateEvent(ctx context.Context, eventID string, patch Event) (*Event, error) {
	var updated Event
	if err := c.do(ctx, http.MethodPatch, "/me/events/"+url.PathEscape(eventID), patch, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteEvent removes an event.
func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	return c.do(ctx, http.MethodDelete, "/me/events/"+url.PathEscape(eventID), nil, nil)
}

// GetEventAttendeeResponses returns each attendee's response status; the
// confirmation poller drives state transitions from these.
func (c *Client) GetEventAttendeeResponses(ctx context.Context, eventID string) ([]AttendeeResponse, error) {
	e, err := c.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	out := make([]AttendeeResponse, 0, len(e.Attendees))
	for _, a := range e.Attendees {
		r := AttendeeResponse{
			Email: a.EmailAddress.Address,
			Name:  a.EmailAddress.Name,
			Type:  a.Type,
		}
		if a.Status != nil {
			r.Response = a.Status.Response
		}
		if r.Response == "" {
			r.Response = "none"
		}
		out = append(out, r)
	}
	return out, nil
}
