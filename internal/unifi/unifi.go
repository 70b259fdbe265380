// Package unifi reads site, device, and client data from a customer's UniFi
// controller through the internal /api/unifi-proxy endpoint. The proxy holds
// the controller credentials and forwards a single {endpoint, controllerUrl}
// envelope; this client never authenticates directly.
package unifi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"fieldops.app/internal/obs"
	"fieldops.app/internal/svcerr"
)

const provider = "unifi"

// Site is one site on the controller.
type Site struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
	Desc string `json:"desc"`
}

// Device is a network device (switch, access point, gateway).
type Device struct {
	Mac     string `json:"mac"`
	Name    string `json:"name"`
	Model   string `json:"model"`
	Type    string `json:"type"`
	IP      string `json:"ip"`
	State   int    `json:"state"`
	Adopted bool   `json:"adopted"`
	Uptime  int64  `json:"uptime"`
}

// NetworkClient is one connected client with its switch-port placement. The
// field set mirrors what the controller's stat/sta endpoint returns.
type NetworkClient struct {
	Mac      string `json:"mac"`
	Hostname string `json:"hostname"`
	Name     string `json:"name"`
	OUI      string `json:"oui"`

	IP      string `json:"ip"`
	Network string `json:"network"`
	VLAN    int    `json:"vlan"`

	SwitchPort *int   `json:"sw_port"`
	SwitchMac  string `json:"sw_mac"`
	SwitchName string `json:"sw_name"`

	IsWired  bool  `json:"is_wired"`
	IsGuest  bool  `json:"is_guest"`
	Uptime   int64 `json:"uptime"`
	LastSeen int64 `json:"last_seen"`

	ESSID  string `json:"essid"`
	Radio  string `json:"radio"`
	Signal int    `json:"signal"`
	APMac  string `json:"ap_mac"`

	Satisfaction int `json:"satisfaction"`
}

// ClientReport is the client listing plus wired/wireless counts.
type ClientReport struct {
	Clients       []NetworkClient `json:"clients"`
	TotalCount    int             `json:"total_count"`
	WiredCount    int             `json:"wired_count"`
	WirelessCount int             `json:"wireless_count"`
}

// Client calls the unifi proxy for a single controller.
type Client struct {
	proxyURL      string
	controllerURL string
	httpClient    *http.Client
}

func NewClient(proxyURL, controllerURL string) *Client {
	return &Client{
		proxyURL:      proxyURL,
		controllerURL: controllerURL,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Sites lists the controller's sites.
func (c *Client) Sites(ctx context.Context) ([]Site, error) {
	var sites []Site
	if err := c.call(ctx, "/proxy/network/api/self/sites", &sites); err != nil {
		return nil, err
	}
	return sites, nil
}

// Devices lists the network devices for one site.
func (c *Client) Devices(ctx context.Context, site string) ([]Device, error) {
	var devices []Device
	if err := c.call(ctx, fmt.Sprintf("/proxy/network/api/s/%s/stat/device", site), &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// Clients lists the connected clients for one site, resolves each client's
// switch name from the device listing, and sorts by hostname. Missing
// hostnames fall back to the client's configured name.
func (c *Client) Clients(ctx context.Context, site string) (*ClientReport, error) {
	devices, err := c.Devices(ctx, site)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(devices))
	for _, d := range devices {
		name := d.Name
		if name == "" {
			name = d.Model
		}
		names[d.Mac] = name
	}

	var clients []NetworkClient
	if err := c.call(ctx, fmt.Sprintf("/proxy/network/api/s/%s/stat/sta", site), &clients); err != nil {
		return nil, err
	}

	report := &ClientReport{Clients: clients}
	for i := range clients {
		cl := &clients[i]
		if cl.Hostname == "" {
			cl.Hostname = cl.Name
		}
		if name, ok := names[cl.SwitchMac]; ok && name != "" {
			cl.SwitchName = name
		} else if cl.SwitchMac != "" {
			cl.SwitchName = "Unknown Switch"
		}
		if cl.IsWired {
			report.WiredCount++
		} else {
			report.WirelessCount++
		}
	}
	report.TotalCount = len(clients)

	sort.Slice(clients, func(i, j int) bool {
		return strings.ToLower(clients[i].Hostname) < strings.ToLower(clients[j].Hostname)
	})
	return report, nil
}

// call posts the proxy envelope and decodes the controller's {data: [...]}
// wrapper into out.
func (c *Client) call(ctx context.Context, endpoint string, out any) error {
	payload, err := json.Marshal(map[string]string{
		"endpoint":      endpoint,
		"controllerUrl": c.controllerURL,
	})
	if err != nil {
		return svcerr.Wrap(svcerr.Internal, "encode unifi proxy request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.proxyURL+"/api/unifi-proxy", bytes.NewReader(payload))
	if err != nil {
		return svcerr.Wrap(svcerr.Internal, "build unifi proxy request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		obs.ObserveExternalCall(provider, 0)
		return svcerr.Wrap(svcerr.Unavailable, "unifi proxy unreachable", err)
	}
	defer resp.Body.Close()
	obs.ObserveExternalCall(provider, resp.StatusCode)

	if resp.StatusCode >= 300 {
		return svcerr.FromHTTPStatus(provider, resp.StatusCode)
	}

	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		return svcerr.Wrap(svcerr.Internal, fmt.Sprintf("decode unifi response for %s", endpoint), err)
	}
	if len(wrapper.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(wrapper.Data, out); err != nil {
		return svcerr.Wrap(svcerr.Internal, fmt.Sprintf("decode unifi data for %s", endpoint), err)
	}
	return nil
}
