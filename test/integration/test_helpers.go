//go:build integration

// functions that are useful in integration tests

package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/information-sharing-networks/passbook/internal/pkpass"
	"github.com/information-sharing-networks/passbook/internal/pkpass/pkpasstest"
)

// originService is a fake origin service implementing the HTTP origin protocol:
//
//	GET /{originType}/{originID}
//	GET /{originType}/{originID}/last-modified
type originService struct {
	server *httptest.Server

	mu      sync.Mutex
	records map[string]originRecord
	calls   int
}

type originRecord struct {
	content      *pkpass.Content
	lastModified time.Time
}

func newOriginService(t *testing.T) *originService {
	t.Helper()

	o := &originService{records: make(map[string]originRecord)}

	r := chi.NewRouter()
	r.Get("/{originType}/{originID}", o.handleRecord)
	r.Get("/{originType}/{originID}/last-modified", o.handleLastModified)

	o.server = httptest.NewServer(r)
	t.Cleanup(o.server.Close)
	return o
}

func (o *originService) URL() string {
	return o.server.URL
}

// set adds or replaces an origin record, using pkpasstest content with the given primary field value
func (o *originService) set(originID string, memberName string, lastModified time.Time) {
	content := pkpasstest.Content()
	content.Generic.PrimaryFields[0].Value = memberName

	o.mu.Lock()
	defer o.mu.Unlock()
	o.records[originID] = originRecord{content: content, lastModified: lastModified}
}

func (o *originService) lookup(r *http.Request) (originRecord, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++

	if chi.URLParam(r, "originType") != memberOriginType {
		return originRecord{}, false
	}
	rec, ok := o.records[chi.URLParam(r, "originID")]
	return rec, ok
}

func (o *originService) handleRecord(w http.ResponseWriter, r *http.Request) {
	rec, ok := o.lookup(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"lastModified": rec.lastModified,
		"pass":         rec.content,
		"files":        rec.content.Files,
	})
}

func (o *originService) handleLastModified(w http.ResponseWriter, r *http.Request) {
	rec, ok := o.lookup(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"lastModified": rec.lastModified})
}

// request sends a request to the server with an optional JSON body and headers
func request(t *testing.T, method, url string, body any, header http.Header) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()

	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: got status %d, want %d (body %q)",
			resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, want, string(body))
	}
}

func applePassAuth(token string) http.Header {
	return http.Header{"Authorization": []string{"ApplePass " + token}}
}
