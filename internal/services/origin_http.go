package services

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

	"github.com/hashicorp/go-retryablehttp"
	"github.com/information-sharing-networks/passbook/internal/passbook"
	"github.com/information-sharing-networks/passbook/internal/pkpass"
)

// maxOriginResponseSize bounds the origin service response (pass.json plus base64 encoded images)
const maxOriginResponseSize = 10 << 20

// HTTPOriginConfig configures an HTTPOriginProvider
type HTTPOriginConfig struct {
	BaseURL    string
	OriginType string
	Timeout    time.Duration

	// Retries is the number of retries after a failed request (connection errors and 5xx responses)
	Retries int

	// RetryWaitMin and RetryWaitMax bound the backoff between retries.
	// Zero values use 200ms and 2s.
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// HTTPOriginProvider fetches pass content for one origin type from a remote origin service.
//
//	GET {baseURL}/{originType}/{originID}
//	Response: {"lastModified": "2024-05-01T12:00:00Z", "pass": {...}, "files": {"icon.png": "<base64>"}}
//
//	GET {baseURL}/{originType}/{originID}/last-modified
//	Response: {"lastModified": "2024-05-01T12:00:00Z"}
//
// 404 means the origin record does not exist.
type HTTPOriginProvider struct {
	baseURL    string
	originType string
	client     *retryablehttp.Client
}

// originRecordResponse is the response from the origin service record endpoint
type originRecordResponse struct {
	LastModified time.Time         `json:"lastModified"`
	Pass         json.RawMessage   `json:"pass"`
	Files        map[string][]byte `json:"files"`
}

// lastModifiedResponse is the response from the origin service last-modified endpoint
type lastModifiedResponse struct {
	LastModified time.Time `json:"lastModified"`
}

// NewHTTPOriginProvider creates a provider. The retrying client logs through logger.
func NewHTTPOriginProvider(cfg HTTPOriginConfig, logger *slog.Logger) *HTTPOriginProvider {
	client := retryablehttp.NewClient()
	client.HTTPClient.Timeout = cfg.Timeout
	client.RetryMax = cfg.Retries
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	if cfg.RetryWaitMin > 0 {
		client.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		client.RetryWaitMax = cfg.RetryWaitMax
	}
	client.Logger = logger.With(slog.String("component", "HTTPOriginProvider"))

	return &HTTPOriginProvider{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		originType: cfg.OriginType,
		client:     client,
	}
}

func (p *HTTPOriginProvider) recordURL(originID string, suffix ...string) string {
	parts := append([]string{p.baseURL, url.PathEscape(p.originType), url.PathEscape(originID)}, suffix...)
	return strings.Join(parts, "/")
}

// get calls the origin service and decodes the JSON response into v
func (p *HTTPOriginProvider) get(ctx context.Context, u string, v any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	// #nosec G107 -- the base URL is from server config and the path segments are escaped
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call origin service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return passbook.ErrOriginNotFound
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("origin service returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxOriginResponseSize)).Decode(v); err != nil {
		return fmt.Errorf("failed to decode origin service response: %w", err)
	}
	return nil
}

// PassContent returns the content for the origin record
func (p *HTTPOriginProvider) PassContent(ctx context.Context, originID string) (*pkpass.Content, error) {
	var record originRecordResponse
	if err := p.get(ctx, p.recordURL(originID), &record); err != nil {
		return nil, err
	}
	if len(record.Pass) == 0 {
		return nil, fmt.Errorf("origin service response for %s,%s has no pass content", p.originType, originID)
	}

	var content pkpass.Content
	if err := json.Unmarshal(record.Pass, &content); err != nil {
		return nil, fmt.Errorf("failed to decode pass content: %w", err)
	}
	content.Files = record.Files
	return &content, nil
}

// LastModified returns the time the origin record last changed
func (p *HTTPOriginProvider) LastModified(ctx context.Context, originID string) (time.Time, error) {
	var resp lastModifiedResponse
	if err := p.get(ctx, p.recordURL(originID, "last-modified"), &resp); err != nil {
		return time.Time{}, err
	}
	if resp.LastModified.IsZero() {
		return time.Time{}, fmt.Errorf("origin service response for %s,%s has no lastModified", p.originType, originID)
	}
	return resp.LastModified, nil
}
