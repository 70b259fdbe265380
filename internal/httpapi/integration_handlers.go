package httpapi

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"

	"fieldops.app/internal/quickbooks"
)

// Integration endpoints are thin passthroughs over the proxy clients. A nil
// client means the deployment does not carry that integration.

func (a *API) handleQuickBooks(w http.ResponseWriter, r *http.Request) {
	if a.quickbooks == nil {
		writeError(w, r, http.StatusServiceUnavailable, "quickbooks integration is not configured")
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/v1/integrations/quickbooks/")

	switch {
	case path == "status" && r.Method == http.MethodGet:
		st, err := a.quickbooks.Status(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	case path == "auth-url" && r.Method == http.MethodGet:
		u, err := a.quickbooks.AuthURL(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"url": u})
	case path == "customers" && r.Method == http.MethodGet:
		customers, err := a.quickbooks.Customers(r.Context(), r.URL.Query().Get("search"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": customers})
	case path == "invoices" && r.Method == http.MethodPost:
		var req quickbooks.InvoiceRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		inv, err := a.quickbooks.CreateInvoice(r.Context(), req)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, inv)
	case strings.HasPrefix(path, "invoices/") && r.Method == http.MethodGet:
		inv, err := a.quickbooks.Invoice(r.Context(), strings.TrimPrefix(path, "invoices/"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, inv)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleUnifi(w http.ResponseWriter, r *http.Request) {
	if a.unifi == nil {
		writeError(w, r, http.StatusServiceUnavailable, "unifi integration is not configured")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	site := r.URL.Query().Get("site")

	switch strings.TrimPrefix(r.URL.Path, "/v1/integrations/unifi/") {
	case "sites":
		sites, err := a.unifi.Sites(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": sites})
	case "devices":
		devices, err := a.unifi.Devices(r.Context(), site)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": devices})
	case "clients":
		rep, err := a.unifi.Clients(r.Context(), site)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleLucidDocument(w http.ResponseWriter, r *http.Request) {
	if a.lucid == nil {
		writeError(w, r, http.StatusServiceUnavailable, "lucid integration is not configured")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/v1/integrations/lucid/documents/")

	if id, ok := strings.CutSuffix(path, "/export"); ok {
		a.exportLucidPage(w, r, strings.TrimSuffix(id, "/"))
		return
	}
	if path == "" || strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	doc, err := a.lucid.Document(r.Context(), path)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (a *API) exportLucidPage(w http.ResponseWriter, r *http.Request, id string) {
	q := r.URL.Query()
	page := 1
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, r, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		page = n
	}
	width := 0
	if v := q.Get("width"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, r, http.StatusBadRequest, "width must be a non-negative integer")
			return
		}
		width = n
	}
	png, err := a.lucid.ExportPage(r.Context(), id, page, width)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

type uploadFileRequest struct {
	SubPath string `json:"sub_path"`
	Name    string `json:"name"`
	Content string `json:"content"` // base64
}

func (a *API) handleFilesCollection(w http.ResponseWriter, r *http.Request) {
	if a.files == nil {
		writeError(w, r, http.StatusServiceUnavailable, "file storage is not configured")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req uploadFileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, r, http.StatusBadRequest, "name is required")
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "content must be base64")
		return
	}
	f, err := a.files.Upload(r.Context(), req.SubPath, req.Name, data)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (a *API) handleFileResource(w http.ResponseWriter, r *http.Request) {
	if a.files == nil {
		writeError(w, r, http.StatusServiceUnavailable, "file storage is not configured")
		return
	}
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/v1/files/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	driveID, itemID := parts[0], parts[1]

	switch r.Method {
	case http.MethodGet:
		data, err := a.files.Fetch(r.Context(), driveID, itemID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	case http.MethodDelete:
		if err := a.files.Delete(r.Context(), driveID, itemID); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}
