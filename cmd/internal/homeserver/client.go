package homeserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxResponseBytes bounds how much of a homeserver response the client
// will buffer. Error payloads and auth responses are tiny; anything
// larger is a misbehaving server.
const maxResponseBytes = 1 << 20

// tunnelHostMarkers identify preview-tunnel hosts whose interstitial
// warning page must be bypassed with a request header. This is an
// environment concern (dev homeservers exposed through ngrok), not part
// of the Matrix protocol.
var tunnelHostMarkers = []string{"ngrok-free.app", "ngrok-free.dev", "ngrok.io"}

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// HomeserverURL is the base URL of the Matrix homeserver.
	HomeserverURL string
	// DeviceDisplayName names the device created by password logins.
	// Defaults to "Crabba Web Client".
	DeviceDisplayName string
	// HTTPClient is used for all requests. If nil, a client with a 10s
	// timeout is used (the homeserver is a remote dependency outside
	// this service's control).
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Client is an unauthenticated Matrix client scoped to one homeserver.
type Client struct {
	baseURL      string
	deviceName   string
	httpClient   *http.Client
	logger       *slog.Logger
	tunnelBypass bool
}

// NewClient creates a new Matrix client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.HomeserverURL == "" {
		return nil, fmt.Errorf("homeserver: HomeserverURL is required")
	}

	parsed, err := url.Parse(config.HomeserverURL)
	if err != nil {
		return nil, fmt.Errorf("homeserver: invalid HomeserverURL %q: %w", config.HomeserverURL, err)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	deviceName := strings.TrimSpace(config.DeviceDisplayName)
	if deviceName == "" {
		deviceName = "Crabba Web Client"
	}

	return &Client{
		baseURL:      strings.TrimRight(config.HomeserverURL, "/"),
		deviceName:   deviceName,
		httpClient:   httpClient,
		logger:       logger,
		tunnelBypass: isTunnelHost(parsed.Host),
	}, nil
}

func isTunnelHost(host string) bool {
	for _, marker := range tunnelHostMarkers {
		if strings.Contains(host, marker) {
			return true
		}
	}
	return false
}

// doRequest performs an HTTP request to the homeserver and returns the
// response body. On 2xx, returns the body. On 4xx/5xx with a Matrix
// error payload, returns a *MatrixError. accessToken may be empty for
// unauthenticated endpoints.
func (c *Client) doRequest(ctx context.Context, method, path, accessToken string, requestBody any) ([]byte, error) {
	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("homeserver: failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("homeserver: failed to create request: %w", err)
	}

	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		request.Header.Set("Authorization", "Bearer "+accessToken)
	}
	if c.tunnelBypass {
		request.Header.Set("ngrok-skip-browser-warning", "true")
	}

	start := time.Now()
	response, err := c.httpClient.Do(request)
	observeRoundTrip(path, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("homeserver: request to %s %s failed: %w", method, path, err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("homeserver: failed to read response body: %w", err)
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return responseBody, nil
	}

	// All Matrix error responses use the same JSON shape.
	var matrixErr MatrixError
	if jsonErr := json.Unmarshal(responseBody, &matrixErr); jsonErr != nil || matrixErr.Code == "" {
		// Server returned a non-Matrix error. This should not happen
		// with a spec-compliant server, but fail loud with the raw body.
		return nil, fmt.Errorf("homeserver: unexpected %d response from %s %s: %s",
			response.StatusCode, method, path, string(responseBody))
	}
	matrixErr.StatusCode = response.StatusCode

	return responseBody, &matrixErr
}
