// Package httpapi is the HTTP layer: health probes, Prometheus metrics, and
// JSON handlers over the resource services and the scheduling workflow.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"fieldops.app/internal/files"
	"fieldops.app/internal/lucid"
	"fieldops.app/internal/obs"
	"fieldops.app/internal/project"
	"fieldops.app/internal/quickbooks"
	"fieldops.app/internal/purchase"
	"fieldops.app/internal/report"
	"fieldops.app/internal/requestctx"
	"fieldops.app/internal/svcerr"
	"fieldops.app/internal/ticket"
	"fieldops.app/internal/unifi"
)

// ReadyProbe pings the database behind the readiness endpoint.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	projects  project.Service
	tickets   ticket.Service
	orders    purchase.Service
	reports   *report.Generator
	scheduler Scheduler

	quickbooks *quickbooks.Client
	unifi      *unifi.Client
	lucid      *lucid.Client
	files      *files.Client
}

// Services bundles the constructor arguments. Integration clients are
// optional; a nil client turns its endpoints into 503 responses.
type Services struct {
	Projects  project.Service
	Tickets   ticket.Service
	Orders    purchase.Service
	Reports   *report.Generator
	Scheduler Scheduler

	QuickBooks *quickbooks.Client
	Unifi      *unifi.Client
	Lucid      *lucid.Client
	Files      *files.Client
}

func New(rp ReadyProbe, version string, svc Services) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		projects:   svc.Projects,
		tickets:    svc.Tickets,
		orders:     svc.Orders,
		reports:    svc.Reports,
		scheduler:  svc.Scheduler,
		quickbooks: svc.QuickBooks,
		unifi:      svc.Unifi,
		lucid:      svc.Lucid,
		files:      svc.Files,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/projects", a.handleProjectsCollection)
	a.mux.HandleFunc("/v1/projects/", a.handleProjectResource)
	a.mux.HandleFunc("/v1/tickets", a.handleTicketsCollection)
	a.mux.HandleFunc("/v1/tickets/", a.handleTicketResource)
	a.mux.HandleFunc("/v1/schedule/availability", a.handleAvailability)
	a.mux.HandleFunc("/v1/schedule/appointments", a.handleAppointments)
	a.mux.HandleFunc("/v1/schedule/appointments/", a.handleAppointmentResource)

	a.mux.HandleFunc("/v1/integrations/quickbooks/", a.handleQuickBooks)
	a.mux.HandleFunc("/v1/integrations/unifi/", a.handleUnifi)
	a.mux.HandleFunc("/v1/integrations/lucid/documents/", a.handleLucidDocument)
	a.mux.HandleFunc("/v1/files", a.handleFilesCollection)
	a.mux.HandleFunc("/v1/files/", a.handleFileResource)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler wraps the mux with metrics instrumentation.
func (a *API) Handler() http.Handler {
	return obs.Instrument(a.mux)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "fieldops-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "fieldops-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps a typed service error onto its HTTP status.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, svcerr.HTTPStatus(err), err.Error())
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := requestctx.RequestID(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}
