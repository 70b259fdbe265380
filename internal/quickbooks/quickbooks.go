// Package quickbooks talks to QuickBooks Online through the application's
// internal proxy endpoints under /api/qbo. OAuth is handled server side; this
// client only sees the proxy's JSON surface and the connection status row.
package quickbooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"fieldops.app/internal/obs"
	"fieldops.app/internal/svcerr"
)

const provider = "quickbooks"

// ConnectionStatus describes the OAuth link between this deployment and a
// QuickBooks company file.
type ConnectionStatus struct {
	Connected      bool      `json:"connected"`
	RealmID        string    `json:"realmId"`
	TokenExpiresAt time.Time `json:"tokenExpiresAt"`
	NeedsRefresh   bool      `json:"needsRefresh"`
}

// StatusSource reads the OAuth connection state. The Postgres store
// implements it over a stored procedure.
type StatusSource interface {
	QuickBooksStatus(ctx context.Context) (*ConnectionStatus, error)
}

// Customer is the subset of a QuickBooks customer the app cares about.
type Customer struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	CompanyName string `json:"companyName,omitempty"`
	Email       string `json:"email,omitempty"`
}

// InvoiceLine is one billable line on an invoice request.
type InvoiceLine struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Amount      float64 `json:"amount"`
}

// InvoiceRequest is the payload for create-invoice.
type InvoiceRequest struct {
	CustomerID string        `json:"customerId"`
	Memo       string        `json:"memo,omitempty"`
	Lines      []InvoiceLine `json:"lines"`
}

// Invoice is the proxy's projection of a created or fetched invoice.
type Invoice struct {
	ID        string    `json:"id"`
	DocNumber string    `json:"docNumber"`
	Customer  string    `json:"customerId"`
	Total     float64   `json:"total"`
	Balance   float64   `json:"balance"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Client calls the /api/qbo proxy.
type Client struct {
	baseURL    string
	httpClient *http.Client
	status     StatusSource
}

func NewClient(baseURL string, status StatusSource) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		status:     status,
	}
}

// Status reports the OAuth connection state from the store.
func (c *Client) Status(ctx context.Context) (*ConnectionStatus, error) {
	if c.status == nil {
		return &ConnectionStatus{}, nil
	}
	return c.status.QuickBooksStatus(ctx)
}

// AuthURL asks the proxy for the OAuth consent URL to start (or redo) the
// connection flow.
func (c *Client) AuthURL(ctx context.Context) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := c.get(ctx, "/api/qbo/auth", &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

// Customers lists customers, optionally filtered by a search term.
func (c *Client) Customers(ctx context.Context, search string) ([]Customer, error) {
	path := "/api/qbo/customers"
	if search != "" {
		path += "?search=" + url.QueryEscape(search)
	}
	var out struct {
		Customers []Customer `json:"customers"`
	}
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Customers, nil
}

// CreateInvoice creates an invoice for the given customer. The connection
// must be established first; an unlinked company file is a hard failure.
func (c *Client) CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error) {
	if req.CustomerID == "" {
		return nil, svcerr.New(svcerr.Invalid, "customer id is required")
	}
	if len(req.Lines) == 0 {
		return nil, svcerr.New(svcerr.Invalid, "invoice needs at least one line")
	}
	st, err := c.Status(ctx)
	if err != nil {
		return nil, err
	}
	if !st.Connected {
		return nil, svcerr.New(svcerr.NotConfigured, "quickbooks is not connected")
	}

	var inv Invoice
	if err := c.post(ctx, "/api/qbo/create-invoice", req, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// Invoice fetches one invoice by QuickBooks id.
func (c *Client) Invoice(ctx context.Context, id string) (*Invoice, error) {
	if id == "" {
		return nil, svcerr.New(svcerr.Invalid, "invoice id is required")
	}
	var inv Invoice
	if err := c.get(ctx, "/api/qbo/invoice/"+url.PathEscape(id), &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return svcerr.Wrap(svcerr.Internal, "encode quickbooks request", err)
	}
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var rdr *bytes.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return svcerr.Wrap(svcerr.Internal, "build quickbooks request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		obs.ObserveExternalCall(provider, 0)
		return svcerr.Wrap(svcerr.Unavailable, "quickbooks proxy unreachable", err)
	}
	defer resp.Body.Close()
	obs.ObserveExternalCall(provider, resp.StatusCode)

	if resp.StatusCode >= 300 {
		return svcerr.FromHTTPStatus(provider, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return svcerr.Wrap(svcerr.Internal, fmt.Sprintf("decode quickbooks response from %s", path), err)
	}
	return nil
}
