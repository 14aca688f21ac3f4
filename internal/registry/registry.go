// Package registry announces a running server to a discovery registry so
// clients on the network can find it.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Aman-CERP/pea/internal/config"
	"github.com/Aman-CERP/pea/internal/errors"
)

// DefaultTimeout bounds one registry request.
const DefaultTimeout = 10 * time.Second

// Data identifies one server instance to the registry.
type Data struct {
	ID      string `json:"id"`
	Address string `json:"address"`
	Port    uint64 `json:"port"`
}

// NewData builds registration data for a server listening on addr
// (host:port). An empty or unspecified host is replaced with the local
// network address.
func NewData(addr string) (Data, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return Data{}, errors.ValidationError("invalid server address "+addr, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Data{}, errors.ValidationError("invalid server port "+portStr, err)
	}

	ip := net.ParseIP(host)
	if host == "" || (ip != nil && ip.IsUnspecified()) {
		local, err := LocalIP()
		if err != nil {
			return Data{}, err
		}
		host = local.String()
	}

	return Data{ID: uuid.NewString(), Address: host, Port: port}, nil
}

// Settings locate and authenticate against the registry.
type Settings struct {
	URL    string `json:"url"`
	APIKey string `json:"auth"`
}

// Resolve returns the registry settings from cfg, falling back to the JSON
// file named by cfg.ConfigFile when no URL is configured.
func Resolve(cfg config.RegistryConfig) (Settings, error) {
	if cfg.URL != "" {
		return Settings{URL: strings.TrimRight(cfg.URL, "/"), APIKey: cfg.APIKey}, nil
	}
	if cfg.ConfigFile == "" {
		return Settings{}, errors.ConfigError("registry.url is not set", nil).
			WithSuggestion("Set registry.url or PEA_REGISTRY_URL")
	}
	return LoadSettings(cfg.ConfigFile)
}

// LoadSettings reads a {"url": ..., "auth": ...} file.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, errors.ConfigError("failed to read registry config "+path, err).
			WithDetail("path", path)
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, errors.ConfigError("failed to parse registry config "+path, err).
			WithDetail("path", path)
	}
	if s.URL == "" {
		return Settings{}, errors.ConfigError("registry config "+path+" has no url", nil)
	}
	s.URL = strings.TrimRight(s.URL, "/")
	return s, nil
}

// Client talks to the registry.
type Client struct {
	settings Settings
	http     *http.Client
	retry    errors.RetryConfig
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRetry replaces the backoff policy.
func WithRetry(cfg errors.RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a registry client.
func NewClient(s Settings, opts ...Option) *Client {
	c := &Client{
		settings: s,
		http:     &http.Client{Timeout: DefaultTimeout},
		retry:    errors.DefaultRetryConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.retry.RetryIf = errors.IsRetryable
	return c
}

// Register announces d. Network failures and 5xx replies are retried with
// backoff.
func (c *Client) Register(ctx context.Context, d Data) error {
	err := errors.Retry(ctx, c.retry, func() error {
		return c.send(ctx, http.MethodPost, "/register", d)
	})
	if err != nil {
		return err
	}
	c.logger.Info("registered with discovery registry",
		slog.String("registry", c.settings.URL),
		slog.String("id", d.ID),
		slog.String("address", d.Address),
		slog.Uint64("port", d.Port))
	return nil
}

// Unregister withdraws d.
func (c *Client) Unregister(ctx context.Context, d Data) error {
	err := errors.Retry(ctx, c.retry, func() error {
		return c.send(ctx, http.MethodDelete, "/unregister", d)
	})
	if err != nil {
		return err
	}
	c.logger.Info("unregistered from discovery registry", slog.String("id", d.ID))
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, d Data) error {
	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal registry data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.settings.URL+path, bytes.NewReader(body))
	if err != nil {
		return errors.ConfigError("invalid registry url "+c.settings.URL, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("API-Key", c.settings.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.New(errors.ErrCodeRegistry, "registry unreachable", err).
			WithDetail("url", c.settings.URL)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	pe := errors.New(errors.ErrCodeRegistry,
		fmt.Sprintf("registry %s %s failed with status %d", method, path, resp.StatusCode), nil).
		WithDetail("body", strings.TrimSpace(string(respBody)))
	// the registry rejected the request itself; repeating it will not help
	if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		pe.Retryable = false
	}
	return pe
}

// LocalIP returns the address this host uses for outbound traffic, or the
// first non-loopback IPv4 interface address when there is no route.
func LocalIP() (net.IP, error) {
	// UDP dial sends nothing; it only selects the outbound interface.
	if conn, err := net.Dial("udp", "192.0.2.1:80"); err == nil {
		defer func() { _ = conn.Close() }()
		if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok && !addr.IP.IsLoopback() {
			return addr.IP, nil
		}
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, errors.New(errors.ErrCodeNetworkUnavailable, "failed to list network interfaces", err)
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			if ipnet, ok := a.(*net.IPNet); ok && ipnet.IP.To4() != nil {
				return ipnet.IP, nil
			}
		}
	}
	return nil, errors.New(errors.ErrCodeNetworkUnavailable, "no local network address found", nil).
		WithSuggestion("Pass an explicit --addr host:port")
}
