// Package lucid fetches Lucidchart document metadata and exports page images
// through the Lucid REST API.
package lucid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"fieldops.app/internal/obs"
	"fieldops.app/internal/svcerr"
)

const (
	provider   = "lucid"
	apiVersion = "1"
)

// Document is the metadata projection for one Lucid document.
type Document struct {
	ID        string    `json:"documentId"`
	Title     string    `json:"title"`
	PageCount int       `json:"pageCount"`
	Product   string    `json:"product"`
	Created   time.Time `json:"created"`
	Modified  time.Time `json:"lastModified"`
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) configured() bool { return c != nil && c.apiKey != "" }

// Document fetches metadata for one document.
func (c *Client) Document(ctx context.Context, id string) (*Document, error) {
	if !c.configured() {
		return nil, svcerr.New(svcerr.NotConfigured, "lucid export is not configured")
	}
	req, err := c.newRequest(ctx, "/documents/"+url.PathEscape(id), "application/json")
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := c.doJSON(req, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ExportPage renders one page as a PNG at the requested pixel width.
func (c *Client) ExportPage(ctx context.Context, id string, page, width int) ([]byte, error) {
	if !c.configured() {
		return nil, svcerr.New(svcerr.NotConfigured, "lucid export is not configured")
	}
	if page < 1 {
		return nil, svcerr.New(svcerr.Invalid, "page numbers start at 1")
	}
	path := fmt.Sprintf("/documents/%s?pageNumber=%d", url.PathEscape(id), page)
	accept := "image/png"
	if width > 0 {
		accept = fmt.Sprintf("image/png;width=%d", width)
	}
	req, err := c.newRequest(ctx, path, accept)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		obs.ObserveExternalCall(provider, 0)
		return nil, svcerr.Wrap(svcerr.Unavailable, "lucid unreachable", err)
	}
	defer resp.Body.Close()
	obs.ObserveExternalCall(provider, resp.StatusCode)

	if resp.StatusCode >= 300 {
		return nil, svcerr.FromHTTPStatus(provider, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, svcerr.Wrap(svcerr.Internal, "read lucid export", err)
	}
	return data, nil
}

// ExportPages renders every page of a document in order.
func (c *Client) ExportPages(ctx context.Context, id string, width int) ([][]byte, error) {
	doc, err := c.Document(ctx, id)
	if err != nil {
		return nil, err
	}
	pages := make([][]byte, 0, doc.PageCount)
	for p := 1; p <= doc.PageCount; p++ {
		img, err := c.ExportPage(ctx, id, p, width)
		if err != nil {
			if len(pages) > 0 {
				return pages, svcerr.Wrap(svcerr.Partial,
					fmt.Sprintf("exported %d of %d pages", len(pages), doc.PageCount), err)
			}
			return nil, err
		}
		pages = append(pages, img)
	}
	return pages, nil
}

func (c *Client) newRequest(ctx context.Context, path, accept string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, svcerr.Wrap(svcerr.Internal, "build lucid request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Lucid-Api-Version", apiVersion)
	req.Header.Set("Accept", accept)
	return req, nil
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		obs.ObserveExternalCall(provider, 0)
		return svcerr.Wrap(svcerr.Unavailable, "lucid unreachable", err)
	}
	defer resp.Body.Close()
	obs.ObserveExternalCall(provider, resp.StatusCode)

	if resp.StatusCode >= 300 {
		return svcerr.FromHTTPStatus(provider, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return svcerr.Wrap(svcerr.Internal, "decode lucid response", err)
	}
	return nil
}
