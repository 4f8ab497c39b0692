package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/information-sharing-networks/passbook/internal/server/handlers"
)

// maxDownloadSize bounds a downloaded pass archive
const maxDownloadSize = 20 << 20

// AdminClient calls the passbook-server admin API
type AdminClient struct {
	baseURL string
	client  *retryablehttp.Client
}

// NewAdminClient creates a client for the server at baseURL.
// Connection errors and 5xx responses are retried up to retries times.
func NewAdminClient(baseURL string, timeout time.Duration, retries int, logger *slog.Logger) *AdminClient {
	client := retryablehttp.NewClient()
	client.HTTPClient.Timeout = timeout
	client.RetryMax = retries
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.Logger = logger.With(slog.String("component", "AdminClient"))

	return &AdminClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// StatusError is returned when the server responds with an unexpected status
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

func (c *AdminClient) CreatePass(ctx context.Context, originType, originID string) (*handlers.PassResponse, error) {
	var pass handlers.PassResponse
	req := handlers.CreatePassRequest{OriginType: originType, OriginID: originID}
	if err := c.do(ctx, http.MethodPost, "/admin/passes", req, http.StatusCreated, &pass); err != nil {
		return nil, err
	}
	return &pass, nil
}

func (c *AdminClient) GetPass(ctx context.Context, id int64) (*handlers.PassResponse, error) {
	var pass handlers.PassResponse
	if err := c.do(ctx, http.MethodGet, passPath(id), nil, http.StatusOK, &pass); err != nil {
		return nil, err
	}
	return &pass, nil
}

// SetActive activates or deactivates a pass
func (c *AdminClient) SetActive(ctx context.Context, id int64, active bool) (*handlers.PassResponse, error) {
	var pass handlers.PassResponse
	req := handlers.UpdatePassRequest{Active: &active}
	if err := c.do(ctx, http.MethodPut, passPath(id), req, http.StatusOK, &pass); err != nil {
		return nil, err
	}
	return &pass, nil
}

func (c *AdminClient) DeletePass(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, passPath(id), nil, http.StatusNoContent, nil)
}

func (c *AdminClient) Registrations(ctx context.Context, id int64) ([]handlers.RegistrationResponse, error) {
	var regs []handlers.RegistrationResponse
	if err := c.do(ctx, http.MethodGet, passPath(id)+"/registrations", nil, http.StatusOK, &regs); err != nil {
		return nil, err
	}
	return regs, nil
}

func (c *AdminClient) DownloadURL(ctx context.Context, id int64) (string, error) {
	var resp handlers.DownloadURLResponse
	if err := c.do(ctx, http.MethodGet, passPath(id)+"/download-url", nil, http.StatusOK, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// Download fetches the signed archive for a pass.
//
// The download URL names the public host. The request is sent to the client's server with the same
// path and query so the CLI works from inside the deployment network.
func (c *AdminClient) Download(ctx context.Context, id int64) ([]byte, error) {
	downloadURL, err := c.DownloadURL(ctx, id)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(downloadURL)
	if err != nil {
		return nil, fmt.Errorf("server returned an invalid download URL %q: %w", downloadURL, err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+u.RequestURI(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// #nosec G107 -- the base URL is from CLI config
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download pass: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize))
}

func passPath(id int64) string {
	return "/admin/passes/" + strconv.FormatInt(id, 10)
}

// do sends a JSON request and decodes the JSON response into out (when out is not nil)
func (c *AdminClient) do(ctx context.Context, method, path string, in any, wantStatus int, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		// admin errors are plain text
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
