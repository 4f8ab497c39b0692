package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/information-sharing-networks/passbook/internal/crypto"
	"github.com/information-sharing-networks/passbook/internal/crypto/testutil"
	"github.com/information-sharing-networks/passbook/internal/passbook"
	passbookhandlers "github.com/information-sharing-networks/passbook/internal/passbook/handlers"
	"github.com/information-sharing-networks/passbook/internal/passbook/passbooktest"
	"github.com/information-sharing-networks/passbook/internal/pkpass"
	"github.com/information-sharing-networks/passbook/internal/pkpass/pkpasstest"
	"github.com/information-sharing-networks/passbook/internal/server/handlers"
	"github.com/information-sharing-networks/passbook/internal/services"
	"github.com/information-sharing-networks/passbook/internal/store"
)

type nopSink struct{}

func (nopSink) Write(context.Context, services.DeviceLogBatch) error { return nil }

// newTestServer serves the admin API and the pass download endpoint
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	memStore, err := store.NewMemoryStore()
	require.NoError(t, err)

	provider := passbooktest.NewProvider()
	provider.Set("1001", pkpasstest.Content(), time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	registry := provider.Registry("member")

	creds := testutil.NewCredentials(t)
	signer := crypto.NewSigner(&crypto.SigningCredentials{
		Certificate: creds.Certificate,
		PrivateKey:  creds.PrivateKey,
		WWDR:        creds.WWDR,
	})
	builder := passbook.NewArchiveBuilder(registry, signer, passbook.ArchiveBuilderConfig{
		WebServiceURL: "https://passes.example.org/passbook",
	})
	service := passbook.NewService(memStore, registry)

	r := chi.NewRouter()
	r.Route("/passbook", passbookhandlers.Routes(passbookhandlers.Dependencies{
		Service:       service,
		Detector:      passbook.NewChangeDetector(memStore, registry),
		Builder:       builder,
		LogSink:       nopSink{},
		PublicBaseURL: "https://passes.example.org",
	}))
	r.Post("/admin/passes", handlers.HandleCreatePass(service))
	r.Get("/admin/passes/{passID}", handlers.HandleGetPass(memStore))
	r.Put("/admin/passes/{passID}", handlers.HandleUpdatePass(memStore))
	r.Delete("/admin/passes/{passID}", handlers.HandleDeletePass(memStore, builder))
	r.Get("/admin/passes/{passID}/registrations", handlers.HandleListPassRegistrations(memStore))
	r.Get("/admin/passes/{passID}/download-url", handlers.HandleGetDownloadURL(memStore, "https://passes.example.org/passbook"))

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

func runCLI(t *testing.T, serverURL string, args ...string) (string, error) {
	t.Helper()

	t.Setenv("PASSBOOK_SERVER_URL", serverURL)
	t.Setenv("PASSBOOK_HTTP_RETRIES", "0")
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestPassCommands(t *testing.T) {
	ts := newTestServer(t)

	out, err := runCLI(t, ts.URL, "pass", "create", "--origin-type", "member", "--origin-id", "1001")
	require.NoError(t, err)
	assert.Contains(t, out, `"serialNumber": "1"`)
	assert.Contains(t, out, `"active": true`)

	out, err = runCLI(t, ts.URL, "pass", "deactivate", "1")
	require.NoError(t, err)
	assert.Contains(t, out, `"active": false`)

	out, err = runCLI(t, ts.URL, "pass", "activate", "1")
	require.NoError(t, err)
	assert.Contains(t, out, `"active": true`)

	out, err = runCLI(t, ts.URL, "pass", "registrations", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "DEVICE")

	file := filepath.Join(t.TempDir(), "member.pkpass")
	out, err = runCLI(t, ts.URL, "pass", "download", "1", "--out", file)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+file)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	files, err := pkpass.ReadArchive(data)
	require.NoError(t, err)
	assert.Contains(t, files, "manifest.json")

	_, err = runCLI(t, ts.URL, "pass", "delete", "1")
	require.NoError(t, err)

	_, err = runCLI(t, ts.URL, "pass", "get", "1")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr), "got %v", err)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, "Pass not found", statusErr.Message)
}

func TestPassCommandArgs(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		args []string
	}{
		{"create without origin id", []string{"pass", "create", "--origin-type", "member"}},
		{"get non numeric id", []string{"pass", "get", "abc"}},
		{"get negative id", []string{"pass", "get", "-1"}},
		{"delete without id", []string{"pass", "delete"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, ts.URL, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestCreatePass_UnknownOriginType(t *testing.T) {
	ts := newTestServer(t)

	_, err := runCLI(t, ts.URL, "pass", "create", "--origin-type", "coupon", "--origin-id", "1")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr), "got %v", err)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
}

func TestInspectCredentials(t *testing.T) {
	creds := testutil.NewCredentials(t)
	src := crypto.CredentialSource{
		CertificatePath: creds.CertificatePath,
		KeyPath:         creds.KeyPath,
		WWDRPath:        creds.WWDRDERPath,
	}

	t.Run("valid", func(t *testing.T) {
		var out bytes.Buffer
		err := inspectCredentials(context.Background(), &out, src, time.Now())
		require.NoError(t, err)
		assert.Contains(t, out.String(), testutil.DefaultPassTypeIdentifier)
		assert.Contains(t, out.String(), testutil.DefaultTeamIdentifier)
		assert.Contains(t, out.String(), "test signature: OK")
	})

	t.Run("expired", func(t *testing.T) {
		var out bytes.Buffer
		err := inspectCredentials(context.Background(), &out, src, creds.Certificate.NotAfter.Add(time.Hour))
		require.Error(t, err)
		assert.True(t, strings.Contains(out.String(), "check: FAILED"), out.String())
	})

	t.Run("missing files", func(t *testing.T) {
		var out bytes.Buffer
		err := inspectCredentials(context.Background(), &out, crypto.CredentialSource{}, time.Now())
		assert.Error(t, err)
	})
}

func TestCertInspectCommand(t *testing.T) {
	creds := testutil.NewCredentials(t)
	t.Setenv("PASS_CERTIFICATE_PATH", creds.CertificatePath)
	t.Setenv("PASS_KEY_PATH", creds.KeyPath)
	t.Setenv("WWDR_CERTIFICATE_PATH", creds.WWDRPath)

	out, err := runCLI(t, "http://localhost:8080", "cert", "inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "pass certificate")
	assert.Contains(t, out, "WWDR certificate")
}
