package svcerr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestFromHTTPStatus(t *testing.T) {
	cases := []struct {
		status int
		kind   Kind
	}{
		{401, SessionExpired},
		{403, PermissionDenied},
		{429, RateLimited},
		{500, Unavailable},
		{503, Unavailable},
		{400, Internal},
		{404, Internal},
	}
	for _, c := range cases {
		err := FromHTTPStatus("graph", c.status)
		if err.Kind != c.kind {
			t.Fatalf("status %d: got kind %v, want %v", c.status, err.Kind, c.kind)
		}
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	base := New(NotFound, "project not found")
	wrapped := fmt.Errorf("loading report: %w", base)

	if !Is(wrapped, NotFound) {
		t.Fatal("kind lost through wrapping")
	}
	if KindOf(wrapped) != NotFound {
		t.Fatalf("KindOf = %v, want NotFound", KindOf(wrapped))
	}
	if KindOf(errors.New("plain")) != Internal {
		t.Fatal("foreign errors must map to Internal")
	}
}

func TestHTTPStatusRoundTrip(t *testing.T) {
	if got := HTTPStatus(New(NotConfigured, "database not configured")); got != http.StatusServiceUnavailable {
		t.Fatalf("NotConfigured -> %d", got)
	}
	if got := HTTPStatus(New(Partial, "purchase order created, 2 of 5 line items failed")); got != http.StatusInternalServerError {
		t.Fatalf("Partial -> %d", got)
	}
}

func TestCausePreserved(t *testing.T) {
	cause := errors.New("pq: duplicate key")
	err := Wrap(Conflict, "equipment uid already exists", cause)
	if !errors.Is(err, cause) {
		t.Fatal("cause not reachable via errors.Is")
	}
	if err.Error() != "equipment uid already exists: pq: duplicate key" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}
