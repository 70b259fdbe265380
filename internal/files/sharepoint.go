// Package files stores and retrieves project files in SharePoint through the
// internal graph-upload and graph-file proxy endpoints. Uploads carry the file
// as base64 plus the target root URL and subpath; the proxy owns drive
// resolution and Graph authentication.
package files

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"fieldops.app/internal/obs"
	"fieldops.app/internal/retry"
	"fieldops.app/internal/svcerr"
)

const provider = "sharepoint"

// uploadAttempts bounds the retry loop on 429/5xx responses.
const uploadAttempts = 3

// File is the proxy's record of a stored file, kept on the owning row for
// thumbnailing and later deletion.
type File struct {
	URL     string `json:"url"`
	DriveID string `json:"driveId"`
	ItemID  string `json:"itemId"`
	Name    string `json:"name"`
	WebURL  string `json:"webUrl"`
	Size    int64  `json:"size"`
}

type Client struct {
	baseURL    string
	rootURL    string
	httpClient *http.Client
}

// NewClient builds a client uploading under the given SharePoint root URL.
func NewClient(baseURL, rootURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		rootURL:    rootURL,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

func (c *Client) configured() bool { return c != nil && c.rootURL != "" }

// Upload stores data under rootURL/subPath/name. Transient proxy failures
// (429 and 5xx) are retried with exponential backoff starting at one second.
func (c *Client) Upload(ctx context.Context, subPath, name string, data []byte) (*File, error) {
	if !c.configured() {
		return nil, svcerr.New(svcerr.NotConfigured, "file storage is not configured")
	}
	if name == "" {
		return nil, svcerr.New(svcerr.Invalid, "file name is required")
	}

	payload, err := json.Marshal(map[string]string{
		"fileName":    name,
		"fileContent": base64.StdEncoding.EncodeToString(data),
		"rootUrl":     c.rootURL,
		"subPath":     subPath,
	})
	if err != nil {
		return nil, svcerr.Wrap(svcerr.Internal, "encode upload request", err)
	}

	var file File
	attempt := 0
	err = retry.Do(ctx, uploadAttempts, time.Second, transient, func() error {
		attempt++
		if attempt > 1 {
			obs.ObserveExternalRetry(provider)
		}
		return c.do(ctx, http.MethodPost, "/api/graph-upload", payload, &file)
	})
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// Delete removes a previously uploaded file by its drive and item ids.
func (c *Client) Delete(ctx context.Context, driveID, itemID string) error {
	if !c.configured() {
		return svcerr.New(svcerr.NotConfigured, "file storage is not configured")
	}
	payload, err := json.Marshal(map[string]string{
		"action":  "delete",
		"driveId": driveID,
		"itemId":  itemID,
	})
	if err != nil {
		return svcerr.Wrap(svcerr.Internal, "encode delete request", err)
	}
	return c.do(ctx, http.MethodPost, "/api/graph-file", payload, nil)
}

// Fetch downloads a stored file's bytes through the proxy.
func (c *Client) Fetch(ctx context.Context, driveID, itemID string) ([]byte, error) {
	if !c.configured() {
		return nil, nil
	}
	payload, err := json.Marshal(map[string]string{
		"action":  "fetch",
		"driveId": driveID,
		"itemId":  itemID,
	})
	if err != nil {
		return nil, svcerr.Wrap(svcerr.Internal, "encode fetch request", err)
	}
	var out struct {
		Content string `json:"content"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/graph-file", payload, &out); err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(out.Content)
	if err != nil {
		return nil, svcerr.Wrap(svcerr.Internal, "decode fetched file", err)
	}
	return data, nil
}

// transient reports whether an upload error is worth retrying.
func transient(err error) bool {
	kind := svcerr.KindOf(err)
	return kind == svcerr.RateLimited || kind == svcerr.Unavailable
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return svcerr.Wrap(svcerr.Internal, "build file request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		obs.ObserveExternalCall(provider, 0)
		return svcerr.Wrap(svcerr.Unavailable, "file proxy unreachable", err)
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
		return svcerr.Wrap(svcerr.Internal, fmt.Sprintf("decode file response from %s", path), err)
	}
	return nil
}
