package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fieldops.app/internal/config"
	"fieldops.app/internal/files"
	"fieldops.app/internal/graph"
	"fieldops.app/internal/graph/poller"
	"fieldops.app/internal/httpapi"
	"fieldops.app/internal/lucid"
	"fieldops.app/internal/obs"
	"fieldops.app/internal/quickbooks"
	"fieldops.app/internal/report"
	"fieldops.app/internal/store/pg"
	"fieldops.app/internal/unifi"
)

var version = "0.3.1"

func main() {
	obs.Init()
	cfg := config.Load()

	var store *pg.Store
	if cfg.DatabaseURL != "" {
		var err error
		store, err = pg.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
	} else {
		log.Println("FIELDOPS_PG_DSN not set; reads return empty, writes fail")
	}

	orders := store.Purchases()
	projects := store.Projects(orders)
	tickets := store.Tickets()
	drops := store.WireDrops()

	// Calendar: token refresh goes through the internal proxy, which holds
	// the OAuth refresh token.
	tokens := graph.NewCachedTokenSource(cfg.GraphToken, proxyTokenRefresh(cfg.ProxyBaseURL))
	calendar := graph.NewClient(cfg.GraphBaseURL, cfg.GraphTimezone, tokens)

	reports := report.NewGenerator(projects, tickets, orders, drops)

	// Proxy-backed integrations; unset config leaves the client nil and the
	// endpoints answer 503.
	var unifiClient *unifi.Client
	if cfg.UnifiController != "" {
		unifiClient = unifi.NewClient(cfg.ProxyBaseURL, cfg.UnifiController)
	}
	var lucidClient *lucid.Client
	if cfg.LucidAPIKey != "" {
		lucidClient = lucid.NewClient(cfg.LucidBaseURL, cfg.LucidAPIKey)
	}
	var fileClient *files.Client
	if cfg.SharePointRoot != "" {
		fileClient = files.NewClient(cfg.ProxyBaseURL, cfg.SharePointRoot)
	}
	qboClient := quickbooks.NewClient(cfg.ProxyBaseURL, store)

	api := httpapi.New(httpapi.ReadyProbe{DB: store.DB()}, version, httpapi.Services{
		Projects:   projects,
		Tickets:    tickets,
		Orders:     orders,
		Reports:    reports,
		Scheduler:  calendar,
		QuickBooks: qboClient,
		Unifi:      unifiClient,
		Lucid:      lucidClient,
		Files:      fileClient,
	})

	handler := httpapi.RequestID(
		httpapi.Logging(
			httpapi.SecurityHeaders(
				httpapi.CORS(
					httpapi.RateLimit(
						httpapi.MaxBodyBytes(api.Handler(), cfg.MaxBodyBytes),
						cfg.RateLimitBurst, cfg.RateLimitPerSec)))))

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	confirm := poller.New(store.Appointments(), calendar, cfg.ConfirmPollEach, cfg.ConfirmTimeout)
	if store != nil {
		if err := confirm.Start(); err != nil {
			log.Fatalf("start confirmation poller: %v", err)
		}
	}

	log.Printf("Starting fieldops-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	confirm.Stop()
	_ = store.Close()
	log.Println("Stopped")
}

// proxyTokenRefresh exchanges the stored refresh token for a fresh Graph
// access token via the internal proxy.
func proxyTokenRefresh(proxyBase string) func(ctx context.Context) (string, error) {
	client := &http.Client{Timeout: 15 * time.Second}
	return func(ctx context.Context) (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			proxyBase+"/api/graph-token", bytes.NewReader(nil))
		if err != nil {
			return "", err
		}
		resp, err := client.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			return "", fmt.Errorf("token refresh failed (status %d)", resp.StatusCode)
		}
		var out struct {
			AccessToken string `json:"accessToken"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", err
		}
		return out.AccessToken, nil
	}
}
