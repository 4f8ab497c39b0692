package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/information-sharing-networks/passbook/internal/config"
	"github.com/information-sharing-networks/passbook/internal/crypto/testutil"
	"github.com/information-sharing-networks/passbook/internal/pkpass"
	"github.com/information-sharing-networks/passbook/internal/server/handlers"
)

const testOriginsYAML = `
member:
  "1001":
    lastModified: 2024-05-01T12:00:00Z
    pass:
      formatVersion: 1
      passTypeIdentifier: pass.org.example.test
      teamIdentifier: TEAM123456
      organizationName: Example Org
      description: Membership
      barcode:
        format: PKBarcodeFormatQR
        message: "1001"
        messageEncoding: iso-8859-1
      generic:
        primaryFields:
          - key: name
            label: Name
            value: Ada Lovelace
    files:
      icon.png: icon.png
`

func testConfig(t *testing.T, creds *testutil.Credentials) *config.ServerEnvironment {
	t.Helper()

	dir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(dir, "icon.png"), []byte("icon"))
	testutil.WriteFile(t, filepath.Join(dir, "origins.yaml"), []byte(testOriginsYAML))

	return &config.ServerEnvironment{
		Environment:           "test",
		Host:                  "127.0.0.1",
		Port:                  8080,
		LogLevel:              "debug",
		ServerShutdownTimeout: time.Second,
		RequestTimeout:        10 * time.Second,
		MaxRequestBodySize:    1 << 20,
		PublicBaseURL:         "https://passes.example.org",
		StoreBackend:          "memory",
		PassCertificatePath:   creds.CertificatePath,
		PassKeyPath:           creds.KeyPath,
		WWDRCertificatePath:   creds.WWDRPath,
		SigningTimeout:        5 * time.Second,
		ArchiveCacheTTL:       time.Minute,
		OriginTypes:           []string{"member=static"},
		OriginStaticPath:      filepath.Join(dir, "origins.yaml"),
		DeviceLogSinks:        []string{"console"},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := testConfig(t, testutil.NewCredentials(t))
	srv, err := NewServer(context.Background(), nil, cfg, discardLogger())
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url string, body any, header http.Header) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestNewServer_CredentialChecks(t *testing.T) {
	t.Run("expired pass certificate", func(t *testing.T) {
		creds := testutil.NewCredentials(t, testutil.Options{
			NotBefore: time.Now().Add(-48 * time.Hour),
			NotAfter:  time.Now().Add(-24 * time.Hour),
		})
		_, err := NewServer(context.Background(), nil, testConfig(t, creds), discardLogger())
		assert.Error(t, err)
	})

	t.Run("key does not match certificate", func(t *testing.T) {
		creds := testutil.NewCredentials(t)
		other := testutil.NewCredentials(t)

		cfg := testConfig(t, creds)
		cfg.PassKeyPath = other.KeyPath

		_, err := NewServer(context.Background(), nil, cfg, discardLogger())
		assert.Error(t, err)
	})

	t.Run("missing static origins file", func(t *testing.T) {
		cfg := testConfig(t, testutil.NewCredentials(t))
		cfg.OriginStaticPath = filepath.Join(t.TempDir(), "missing.yaml")

		_, err := NewServer(context.Background(), nil, cfg, discardLogger())
		assert.Error(t, err)
	})
}

func TestCommonEndpoints(t *testing.T) {
	ts := newTestServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/health/live", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/health/ready", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/version", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	v := decode[handlers.VersionResponse](t, resp)
	assert.Equal(t, "passbook-server", v.Service)

	resp = do(t, http.MethodGet, ts.URL+"/passbook/", nil, nil)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://passes.example.org", resp.Header.Get("Location"))
}

// walks a pass through its life: created by an admin, downloaded, registered by a device,
// deactivated and deleted
func TestPassLifecycle(t *testing.T) {
	ts := newTestServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/admin/origins", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"member"}, decode[[]string](t, resp))

	// unknown origin types are rejected
	resp = do(t, http.MethodPost, ts.URL+"/admin/passes", handlers.CreatePassRequest{OriginType: "coupon", OriginID: "1"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, ts.URL+"/admin/passes", handlers.CreatePassRequest{OriginType: "member", OriginID: "1001"}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	pass := decode[handlers.PassResponse](t, resp)
	require.True(t, pass.Active)
	require.NotEmpty(t, pass.AuthenticationToken)

	resp = do(t, http.MethodGet, ts.URL+"/admin/passes/"+pass.SerialNumber+"/download-url", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	link := decode[handlers.DownloadURLResponse](t, resp)
	require.True(t, strings.HasPrefix(link.URL, "https://passes.example.org/passbook/"+pass.SerialNumber+"?"), link.URL)

	// the browser download link, pointed at the test server
	u, err := url.Parse(link.URL)
	require.NoError(t, err)
	resp = do(t, http.MethodGet, ts.URL+u.Path+"?"+u.RawQuery, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, pkpass.ContentType, resp.Header.Get("Content-Type"))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	files, err := pkpass.ReadArchive(data)
	require.NoError(t, err)
	assert.Contains(t, files, "signature")
	assert.Contains(t, string(files["pass.json"]), "https://passes.example.org/passbook")

	auth := http.Header{"Authorization": []string{"ApplePass " + pass.AuthenticationToken}}
	device := ts.URL + "/passbook/v1/devices/device-1/registrations/pass.org.example.test"

	resp = do(t, http.MethodPost, device+"/"+pass.SerialNumber, map[string]string{"pushToken": "push-1"}, auth)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, http.MethodGet, device, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	serials := decode[map[string][]string](t, resp)
	assert.Equal(t, map[string][]string{"2024-05-01 12:00:00+00:00": {pass.SerialNumber}}, serials)

	resp = do(t, http.MethodGet, ts.URL+"/admin/origins/member/1001/registrations", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	regs := decode[[]handlers.RegistrationResponse](t, resp)
	require.Len(t, regs, 1)
	assert.Equal(t, "push-1", regs[0].PushToken)

	// inactive passes are not reported as changed
	resp = do(t, http.MethodPut, ts.URL+"/admin/passes/"+pass.SerialNumber, map[string]bool{"active": false}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decode[handlers.PassResponse](t, resp).Active)

	resp = do(t, http.MethodGet, device, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/admin/origins/member/1001/registrations", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]handlers.RegistrationResponse](t, resp))

	resp = do(t, http.MethodDelete, ts.URL+"/admin/passes/"+pass.SerialNumber, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/admin/passes/"+pass.SerialNumber, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/passbook/"+pass.SerialNumber+"?authentication_token="+pass.AuthenticationToken, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRequestSizeLimit(t *testing.T) {
	creds := testutil.NewCredentials(t)
	cfg := testConfig(t, creds)
	cfg.MaxRequestBodySize = 32

	srv, err := NewServer(context.Background(), nil, cfg, discardLogger())
	require.NoError(t, err)

	body := `{"logs":["` + strings.Repeat("x", 64) + `"]}`
	req := httptest.NewRequest(http.MethodPost, "/passbook/v1/log", strings.NewReader(body))
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Equal(t, "32", rr.Header().Get("X-Max-Request-Size"))
}
