package target

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/teemow/mailcdp/internal/logging"
)

const (
	listPath       = "/json/list"
	defaultTimeout = 5 * time.Second
	maxListingSize = 4 << 20
)

// Target is one debuggable target from the listing.
type Target struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	Title          string `json:"title"`
	DisplayURL     string `json:"url"`
	SocketEndpoint string `json:"webSocketDebuggerUrl"`
}

// Locator queries a DevTools listing endpoint.
type Locator struct {
	client *http.Client
	logger *slog.Logger
}

// NewLocator returns a Locator. A nil client gets an otelhttp instrumented
// client with a short timeout.
func NewLocator(client *http.Client, logger *slog.Logger) *Locator {
	if client == nil {
		client = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   defaultTimeout,
		}
	}
	return &Locator{client: client, logger: logging.OrDefault(logger)}
}

// ListTargets lists targets using a default Locator.
func ListTargets(ctx context.Context, hostEndpoint string) ([]Target, error) {
	return NewLocator(nil, nil).ListTargets(ctx, hostEndpoint)
}

// ListTargets fetches the target listing from hostEndpoint, which may be a
// bare host:port, an http(s) base URL or the full listing URL.
func (l *Locator) ListTargets(ctx context.Context, hostEndpoint string) ([]Target, error) {
	listURL, err := ListURL(hostEndpoint)
	if err != nil {
		return nil, &DiscoveryError{Op: "parse", Endpoint: hostEndpoint, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, &DiscoveryError{Op: "request", Endpoint: listURL, Err: err}
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, &DiscoveryError{Op: "get", Endpoint: listURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &DiscoveryError{Op: "get", Endpoint: listURL, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	var targets []Target
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxListingSize)).Decode(&targets); err != nil {
		return nil, &DiscoveryError{Op: "decode", Endpoint: listURL, Err: err}
	}

	l.logger.Debug("listed targets", slog.String("endpoint", listURL), slog.Int("count", len(targets)))
	return targets, nil
}

// ListURL normalizes a host endpoint into the listing URL.
func ListURL(hostEndpoint string) (string, error) {
	raw := strings.TrimSpace(hostEndpoint)
	if raw == "" {
		return "", fmt.Errorf("empty endpoint")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http", "https":
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host")
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = listPath
	}
	return u.String(), nil
}
