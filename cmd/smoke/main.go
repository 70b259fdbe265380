// smoke drives a running API through a health check and a project round
// trip: create, fetch, list, delete. Run it against a fresh deployment to
// confirm the service and its database wiring work end to end.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

func main() {
	base := os.Getenv("FIELDOPS_API_URL")
	if base == "" {
		base = "http://localhost:8080"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 10 * time.Second}

	var health struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	if err := getJSON(ctx, client, base+"/healthz", &health); err != nil {
		log.Fatalf("healthz: %v", err)
	}
	if health.Status != "ok" {
		log.Fatalf("healthz status = %q", health.Status)
	}

	name := fmt.Sprintf("Smoke Test %d", time.Now().UnixMilli())
	payload, _ := json.Marshal(map[string]string{
		"name":      name,
		"client_id": "smoke-client",
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/v1/projects", bytes.NewReader(payload))
	if err != nil {
		log.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("create project: %v", err)
	}
	var created struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	err = json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()
	if err != nil {
		log.Fatalf("decode created project: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		log.Fatalf("create project: status %d", resp.StatusCode)
	}

	var fetched struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := getJSON(ctx, client, base+"/v1/projects/"+created.ID, &fetched); err != nil {
		log.Fatalf("get project: %v", err)
	}
	if fetched.Name != name {
		log.Fatalf("round trip mismatch: %q != %q", fetched.Name, name)
	}

	del, err := http.NewRequestWithContext(ctx, http.MethodDelete, base+"/v1/projects/"+created.ID, nil)
	if err != nil {
		log.Fatal(err)
	}
	resp, err = client.Do(del)
	if err != nil {
		log.Fatalf("delete project: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		log.Fatalf("delete project: status %d", resp.StatusCode)
	}

	fmt.Printf("smoke test passed against %s (version %s, project %s)\n", base, health.Version, created.ID)
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
