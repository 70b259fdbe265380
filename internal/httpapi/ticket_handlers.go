package httpapi

import (
	"net/http"
	"strings"

	"fieldops.app/internal/requestctx"
	"fieldops.app/internal/ticket"
)

type setStatusRequest struct {
	Status string `json:"status"`
}

type addNoteRequest struct {
	Body string `json:"body"`
}

func (a *API) handleTicketsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listTickets(w, r)
	case http.MethodPost:
		a.createTicket(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleTicketResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/tickets/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if id, ok := strings.CutSuffix(path, "/notes"); ok {
		a.handleTicketNotes(w, r, strings.TrimSuffix(id, "/"))
		return
	}
	if id, ok := strings.CutSuffix(path, "/status"); ok {
		a.setTicketStatus(w, r, strings.TrimSuffix(id, "/"))
		return
	}
	if id, ok := strings.CutSuffix(path, "/service-po"); ok {
		a.assignServicePO(w, r, strings.TrimSuffix(id, "/"))
		return
	}
	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getTicket(w, r, path)
	case http.MethodPatch:
		a.updateTicket(w, r, path)
	case http.MethodDelete:
		a.deleteTicket(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) listTickets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ticket.Filter{
		ProjectID: q.Get("project_id"),
		Priority:  q.Get("priority"),
		Search:    q.Get("search"),
	}
	if statuses := q.Get("status"); statuses != "" {
		f.Statuses = strings.Split(statuses, ",")
	}
	tickets, err := a.tickets.GetAll(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": tickets})
}

func (a *API) getTicket(w http.ResponseWriter, r *http.Request, id string) {
	t, err := a.tickets.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if t == nil {
		writeError(w, r, http.StatusNotFound, "ticket not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *API) createTicket(w http.ResponseWriter, r *http.Request) {
	var req ticket.Ticket
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	created, err := a.tickets.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/tickets/"+created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) updateTicket(w http.ResponseWriter, r *http.Request, id string) {
	var patch map[string]any
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := a.tickets.Update(r.Context(), id, patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) deleteTicket(w http.ResponseWriter, r *http.Request, id string) {
	if err := a.tickets.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) setTicketStatus(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req setStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Status == "" {
		writeError(w, r, http.StatusBadRequest, "status is required")
		return
	}
	author, _ := requestctx.Actor(r.Context())
	updated, err := a.tickets.SetStatus(r.Context(), id, req.Status, author)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) handleTicketNotes(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		notes, err := a.tickets.GetNotes(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": notes})
	case http.MethodPost:
		var req addNoteRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if strings.TrimSpace(req.Body) == "" {
			writeError(w, r, http.StatusBadRequest, "body is required")
			return
		}
		author, _ := requestctx.Actor(r.Context())
		note, err := a.tickets.AddNote(r.Context(), ticket.Note{TicketID: id, Author: author, Body: req.Body})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, note)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) assignServicePO(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	updated, err := a.tickets.AssignServicePONumber(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
