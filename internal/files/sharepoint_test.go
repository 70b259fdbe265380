package files

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fieldops.app/internal/svcerr"
)

func TestUploadRetriesTransientFailures(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var req struct {
			FileName    string `json:"fileName"`
			FileContent string `json:"fileContent"`
			RootURL     string `json:"rootUrl"`
			SubPath     string `json:"subPath"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Error(err)
		}
		if req.FileName != "rack-photo.jpg" || req.SubPath != "projects/PRJ-001/photos" {
			t.Errorf("payload = %+v", req)
		}
		raw, err := base64.StdEncoding.DecodeString(req.FileContent)
		if err != nil || string(raw) != "jpeg-bytes" {
			t.Errorf("content = %q err = %v", raw, err)
		}
		json.NewEncoder(w).Encode(File{
			URL: "https://sp/file", DriveID: "d1", ItemID: "i1",
			Name: "rack-photo.jpg", WebURL: "https://sp/web", Size: 10,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "https://contoso.sharepoint.com/sites/fieldops")
	f, err := c.Upload(context.Background(), "projects/PRJ-001/photos", "rack-photo.jpg", []byte("jpeg-bytes"))
	if err != nil {
		t.Fatal(err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d", attempts)
	}
	if f.ItemID != "i1" || f.Size != 10 {
		t.Fatalf("file = %+v", f)
	}
}

func TestUploadDoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "https://sp/root")
	_, err := c.Upload(context.Background(), "a", "b.txt", nil)
	if !svcerr.Is(err, svcerr.PermissionDenied) {
		t.Fatalf("got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, forbidden must not retry", attempts)
	}
}

func TestUploadGivesUpAfterThreeAttempts(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := &Client{baseURL: srv.URL, rootURL: "https://sp/root", httpClient: srv.Client()}
	// Shrink the backoff by cancelling quickly is not an option here; the
	// second delay is 2s, so cap the test with a deadline well past it.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := c.Upload(ctx, "a", "b.txt", nil)
	if !svcerr.Is(err, svcerr.RateLimited) {
		t.Fatalf("got %v", err)
	}
	if attempts != uploadAttempts {
		t.Fatalf("attempts = %d", attempts)
	}
}

func TestUnconfiguredPolicy(t *testing.T) {
	c := NewClient("http://unused", "")
	if _, err := c.Upload(context.Background(), "a", "b.txt", nil); !svcerr.Is(err, svcerr.NotConfigured) {
		t.Fatalf("upload: got %v", err)
	}
	data, err := c.Fetch(context.Background(), "d1", "i1")
	if err != nil || data != nil {
		t.Fatalf("fetch: got %v, %v; reads soft-fail", data, err)
	}
}

func TestThumbCache(t *testing.T) {
	cache := NewThumbCache(time.Hour)
	now := time.Unix(1000, 0)
	cache.now = func() time.Time { return now }

	fetches := 0
	fetch := func() ([]byte, error) {
		fetches++
		return []byte("thumb"), nil
	}

	for i := 0; i < 3; i++ {
		data, err := cache.GetOrFetch("https://sp/photo.jpg", 256, fetch)
		if err != nil || string(data) != "thumb" {
			t.Fatalf("got %q, %v", data, err)
		}
	}
	if fetches != 1 {
		t.Fatalf("fetches = %d", fetches)
	}

	// Same URL at another size is a distinct entry.
	if _, err := cache.GetOrFetch("https://sp/photo.jpg", 512, fetch); err != nil {
		t.Fatal(err)
	}
	if fetches != 2 {
		t.Fatalf("fetches = %d", fetches)
	}

	// Past the TTL the entry is invisible and a sweep removes it.
	now = now.Add(2 * time.Hour)
	if got := cache.Get("https://sp/photo.jpg", 256); got != nil {
		t.Fatalf("expired entry still served: %q", got)
	}
	if removed := cache.Cleanup(); removed != 2 {
		t.Fatalf("removed = %d", removed)
	}
	if cache.Len() != 0 {
		t.Fatalf("len = %d", cache.Len())
	}
}

func TestThumbCacheFetchErrorNotCached(t *testing.T) {
	cache := NewThumbCache(time.Hour)
	boom := errors.New("fetch failed")
	if _, err := cache.GetOrFetch("u", 1, func() ([]byte, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}
	if cache.Len() != 0 {
		t.Fatal("failed fetch must not populate the cache")
	}
}
