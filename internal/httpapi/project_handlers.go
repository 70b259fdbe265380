package httpapi

import (
	"net/http"
	"strings"
	"time"

	"fieldops.app/internal/project"
)

func (a *API) handleProjectsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listProjects(w, r)
	case http.MethodPost:
		a.createProject(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleProjectResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/projects/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if id, ok := strings.CutSuffix(path, "/phases"); ok {
		a.getProjectPhases(w, r, strings.TrimSuffix(id, "/"))
		return
	}
	if id, ok := strings.CutSuffix(path, "/report"); ok {
		a.getProjectReport(w, r, strings.TrimSuffix(id, "/"))
		return
	}
	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getProject(w, r, path)
	case http.MethodPatch:
		a.updateProject(w, r, path)
	case http.MethodDelete:
		a.deleteProject(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) listProjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := project.Filter{
		ClientID: q.Get("client_id"),
		Search:   q.Get("search"),
	}
	if statuses := q.Get("status"); statuses != "" {
		f.Statuses = strings.Split(statuses, ",")
	}
	if after := q.Get("started_after"); after != "" {
		t, err := time.Parse("2006-01-02", after)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "started_after must be YYYY-MM-DD")
			return
		}
		f.StartedAfter = &t
	}
	if before := q.Get("ended_before"); before != "" {
		t, err := time.Parse("2006-01-02", before)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "ended_before must be YYYY-MM-DD")
			return
		}
		f.EndedBefore = &t
	}

	projects, err := a.projects.GetAll(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": projects})
}

func (a *API) getProject(w http.ResponseWriter, r *http.Request, id string) {
	p, err := a.projects.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if p == nil {
		writeError(w, r, http.StatusNotFound, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) createProject(w http.ResponseWriter, r *http.Request) {
	var req project.Project
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	created, err := a.projects.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/projects/"+created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) updateProject(w http.ResponseWriter, r *http.Request, id string) {
	var patch map[string]any
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := a.projects.Update(r.Context(), id, patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) deleteProject(w http.ResponseWriter, r *http.Request, id string) {
	if err := a.projects.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) getProjectPhases(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	phases, err := a.projects.GetPhases(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": phases})
}

func (a *API) getProjectReport(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	rep, err := a.reports.Build(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if r.URL.Query().Get("format") == "email" {
		writeJSON(w, http.StatusOK, a.reports.Render(rep))
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
