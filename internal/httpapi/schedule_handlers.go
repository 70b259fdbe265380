package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"fieldops.app/internal/graph"
)

// Scheduler is the calendar workflow surface the scheduling endpoints need.
// The Graph client implements it.
type Scheduler interface {
	CheckUserAvailability(ctx context.Context, userEmail string, start, end time.Time, buffer time.Duration) (graph.Availability, error)
	CreateServiceEvent(ctx context.Context, appt graph.Appointment) (graph.EventMapping, error)
	AddCustomerToServiceEvent(ctx context.Context, eventID, customerEmail, customerName string) (graph.EventMapping, error)
	FinalizeServiceEvent(ctx context.Context, eventID string) (graph.EventMapping, error)
}

type availabilityRequest struct {
	Email string    `json:"email"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type appointmentRequest struct {
	Subject       string    `json:"subject"`
	Body          string    `json:"body"`
	Location      string    `json:"location"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	TechEmail     string    `json:"tech_email"`
	TechName      string    `json:"tech_name"`
	CustomerEmail string    `json:"customer_email"`
	CustomerName  string    `json:"customer_name"`
}

type addCustomerRequest struct {
	CustomerEmail string `json:"customer_email"`
	CustomerName  string `json:"customer_name"`
}

func (a *API) handleAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.scheduler == nil {
		writeError(w, r, http.StatusServiceUnavailable, "calendar integration is not configured")
		return
	}
	var req availabilityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" {
		writeError(w, r, http.StatusBadRequest, "email is required")
		return
	}
	if !req.End.After(req.Start) {
		writeError(w, r, http.StatusBadRequest, "end must be after start")
		return
	}

	avail, err := a.scheduler.CheckUserAvailability(r.Context(), req.Email, req.Start, req.End, graph.DefaultAvailabilityBuffer)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, avail)
}

func (a *API) handleAppointments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.scheduler == nil {
		writeError(w, r, http.StatusServiceUnavailable, "calendar integration is not configured")
		return
	}
	var req appointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Subject == "" || req.TechEmail == "" {
		writeError(w, r, http.StatusBadRequest, "subject and tech_email are required")
		return
	}
	if !req.End.After(req.Start) {
		writeError(w, r, http.StatusBadRequest, "end must be after start")
		return
	}

	mapping, err := a.scheduler.CreateServiceEvent(r.Context(), graph.Appointment{
		Subject:       req.Subject,
		Body:          req.Body,
		Location:      req.Location,
		Start:         req.Start,
		End:           req.End,
		TechEmail:     req.TechEmail,
		TechName:      req.TechName,
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapping)
}

func (a *API) handleAppointmentResource(w http.ResponseWriter, r *http.Request) {
	if a.scheduler == nil {
		writeError(w, r, http.StatusServiceUnavailable, "calendar integration is not configured")
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/v1/schedule/appointments/")

	if id, ok := strings.CutSuffix(path, "/customer"); ok {
		a.addAppointmentCustomer(w, r, strings.TrimSuffix(id, "/"))
		return
	}
	if id, ok := strings.CutSuffix(path, "/finalize"); ok {
		a.finalizeAppointment(w, r, strings.TrimSuffix(id, "/"))
		return
	}
	writeError(w, r, http.StatusNotFound, "resource not found")
}

func (a *API) addAppointmentCustomer(w http.ResponseWriter, r *http.Request, eventID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req addCustomerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.CustomerEmail == "" {
		writeError(w, r, http.StatusBadRequest, "customer_email is required")
		return
	}
	mapping, err := a.scheduler.AddCustomerToServiceEvent(r.Context(), eventID, req.CustomerEmail, req.CustomerName)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapping)
}

func (a *API) finalizeAppointment(w http.ResponseWriter, r *http.Request, eventID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	mapping, err := a.scheduler.FinalizeServiceEvent(r.Context(), eventID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapping)
}
