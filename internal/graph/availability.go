package graph

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"fieldops.app/internal/obs"
	"fieldops.app/internal/svcerr"
)

// DefaultAvailabilityBuffer pads the requested window on both sides.
const DefaultAvailabilityBuffer = 30 * time.Minute

// Availability is the result of a conflict check.
type Availability struct {
	Available bool           `json:"available"`
	Conflicts []EventMapping `json:"conflicts"`
}

type calendarViewResponse struct {
	Value []Event `json:"value"`
}

// CheckUserAvailability reads the user's calendar over [start-buffer,
// end+buffer] and reports overlapping events whose status is not free.
//
// Fail-open: a permission error or an unreachable calendar reports the user
// as available rather than blocking scheduling. A broken calendar read must
// never stop a dispatcher from booking work.
func (c *Client) CheckUserAvailability(ctx context.Context, userEmail string, start, end time.Time, buffer time.Duration) (Availability, error) {
	if buffer <= 0 {
		buffer = DefaultAvailabilityBuffer
	}
	windowStart := start.Add(-buffer).UTC()
	windowEnd := end.Add(buffer).UTC()

	path := fmt.Sprintf("/users/%s/calendarView?startDateTime=%s&endDateTime=%s",
		url.PathEscape(userEmail),
		url.QueryEscape(windowStart.Format(time.RFC3339)),
		url.QueryEscape(windowEnd.Format(time.RFC3339)))

	var view calendarViewResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &view); err != nil {
		// 403 and network-level failures degrade to available; expired
		// sessions and rate limits still surface so the caller can act.
		if kind := svcerr.KindOf(err); kind == svcerr.PermissionDenied || kind == svcerr.Internal {
			obs.LogRequest(map[string]any{
				"ts":    time.Now().UTC().Format(time.RFC3339Nano),
				"level": "warn",
				"msg":   "availability check failed open",
				"user":  userEmail,
				"err":   err.Error(),
			})
			return Availability{Available: true, Conflicts: []EventMapping{}}, nil
		}
		return Availability{}, err
	}

	// The view is already windowed server-side, so every non-free event in it
	// overlaps. The timezone preference header makes event times local, so
	// they cannot be re-compared against the UTC window here.
	conflicts := []EventMapping{}
	for i := range view.Value {
		e := &view.Value[i]
		if e.ShowAs == "free" {
			continue
		}
		conflicts = append(conflicts, MapEvent(e))
	}
	return Availability{Available: len(conflicts) == 0, Conflicts: conflicts}, nil
}
