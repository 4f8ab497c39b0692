//go:build integration

package integration

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/information-sharing-networks/passbook/internal/crypto/testutil"
	"github.com/information-sharing-networks/passbook/internal/passbook"
	"github.com/information-sharing-networks/passbook/internal/pkpass"
	"github.com/information-sharing-networks/passbook/internal/server/handlers"
)

const passTypeID = testutil.DefaultPassTypeIdentifier

func createPass(t *testing.T, env *testEnv, originID string) handlers.PassResponse {
	t.Helper()

	resp := request(t, http.MethodPost, env.baseURL+"/admin/passes",
		handlers.CreatePassRequest{OriginType: memberOriginType, OriginID: originID}, nil)
	expectStatus(t, resp, http.StatusCreated)
	return decodeJSON[handlers.PassResponse](t, resp)
}

func TestPassLifecycle(t *testing.T) {
	env := startInProcessServer(t)

	firstUpdate := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	env.origins.set("1001", "Ada Lovelace", firstUpdate)

	pass := createPass(t, env, "1001")

	var (
		passURL      = env.baseURL + "/passbook/v1/passes/" + passTypeID + "/" + pass.SerialNumber
		registerURL  = env.baseURL + "/passbook/v1/devices/device-1/registrations/" + passTypeID + "/" + pass.SerialNumber
		serialsURL   = env.baseURL + "/passbook/v1/devices/device-1/registrations/" + passTypeID
		auth         = applePassAuth(pass.AuthenticationToken)
		firstVersion string
	)

	t.Run("browser download", func(t *testing.T) {
		resp := request(t, http.MethodGet, env.baseURL+"/admin/passes/"+pass.SerialNumber+"/download-url", nil, nil)
		expectStatus(t, resp, http.StatusOK)
		link := decodeJSON[handlers.DownloadURLResponse](t, resp)

		resp = request(t, http.MethodGet, link.URL, nil, nil)
		expectStatus(t, resp, http.StatusOK)
		if got := resp.Header.Get("Content-Type"); got != pkpass.ContentType {
			t.Errorf("Content-Type = %q, want %q", got, pkpass.ContentType)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatal(err)
		}
		files, err := pkpass.ReadArchive(data)
		if err != nil {
			t.Fatalf("ReadArchive() error: %v", err)
		}
		for _, name := range []string{"pass.json", "manifest.json", "signature", pkpass.IconFile} {
			if _, ok := files[name]; !ok {
				t.Errorf("archive is missing %s", name)
			}
		}
	})

	t.Run("wrong token", func(t *testing.T) {
		resp := request(t, http.MethodGet, env.baseURL+"/passbook/"+pass.SerialNumber+"?authentication_token=wrong", nil, nil)
		expectStatus(t, resp, http.StatusUnauthorized)
	})

	t.Run("register device", func(t *testing.T) {
		resp := request(t, http.MethodPost, registerURL, map[string]string{"pushToken": "push-1"}, auth)
		expectStatus(t, resp, http.StatusCreated)

		resp = request(t, http.MethodPost, registerURL, map[string]string{"pushToken": "push-2"}, auth)
		expectStatus(t, resp, http.StatusOK)

		regs, err := env.queries.ListRegistrationsForPass(context.Background(), pass.ID)
		if err != nil {
			t.Fatalf("ListRegistrationsForPass() error: %v", err)
		}
		if len(regs) != 1 || regs[0].PushToken != "push-1" {
			t.Errorf("unexpected registrations: %+v", regs)
		}
	})

	t.Run("serial numbers", func(t *testing.T) {
		resp := request(t, http.MethodGet, serialsURL, nil, nil)
		expectStatus(t, resp, http.StatusOK)
		groups := decodeJSON[map[string][]string](t, resp)

		firstVersion = passbook.FormatLastUpdated(firstUpdate)
		if got := groups[firstVersion]; len(got) != 1 || got[0] != pass.SerialNumber {
			t.Fatalf("unexpected serial numbers: %v", groups)
		}

		resp = request(t, http.MethodGet, serialsURL+"?passesUpdatedSince="+url.QueryEscape(firstVersion), nil, nil)
		expectStatus(t, resp, http.StatusNoContent)
	})

	t.Run("latest version", func(t *testing.T) {
		resp := request(t, http.MethodGet, passURL, nil, auth)
		expectStatus(t, resp, http.StatusOK)
		lastModified := resp.Header.Get("Last-Modified")
		if lastModified == "" {
			t.Fatal("Last-Modified header not set")
		}

		resp = request(t, http.MethodGet, passURL, nil, http.Header{
			"Authorization":     auth["Authorization"],
			"If-Modified-Since": []string{lastModified},
		})
		expectStatus(t, resp, http.StatusNotModified)

		resp = request(t, http.MethodGet, passURL, nil, nil)
		expectStatus(t, resp, http.StatusUnauthorized)
	})

	t.Run("origin record changes", func(t *testing.T) {
		secondUpdate := firstUpdate.Add(24 * time.Hour)
		env.origins.set("1001", "Ada King", secondUpdate)

		resp := request(t, http.MethodGet, serialsURL+"?passesUpdatedSince="+url.QueryEscape(firstVersion), nil, nil)
		expectStatus(t, resp, http.StatusOK)
		groups := decodeJSON[map[string][]string](t, resp)
		if _, ok := groups[passbook.FormatLastUpdated(secondUpdate)]; !ok {
			t.Errorf("changed pass not reported: %v", groups)
		}

		resp = request(t, http.MethodGet, passURL, nil, http.Header{
			"Authorization":     auth["Authorization"],
			"If-Modified-Since": []string{firstUpdate.Format(http.TimeFormat)},
		})
		expectStatus(t, resp, http.StatusOK)

		resp = request(t, http.MethodGet, env.baseURL+"/admin/origins/"+memberOriginType+"/1001/registrations", nil, nil)
		expectStatus(t, resp, http.StatusOK)
		regs := decodeJSON[[]handlers.RegistrationResponse](t, resp)
		if len(regs) != 1 || regs[0].PushToken != "push-1" {
			t.Errorf("unexpected push targets: %+v", regs)
		}
	})

	t.Run("device logs", func(t *testing.T) {
		resp := request(t, http.MethodPost, env.baseURL+"/passbook/v1/log",
			map[string][]string{"logs": {"could not fetch pass", "registration failed"}}, nil)
		expectStatus(t, resp, http.StatusOK)

		count, err := env.queries.CountDeviceLogs(context.Background())
		if err != nil {
			t.Fatalf("CountDeviceLogs() error: %v", err)
		}
		if count != 1 {
			t.Errorf("stored %d log batches, want 1", count)
		}
	})

	t.Run("deregister device", func(t *testing.T) {
		resp := request(t, http.MethodDelete, registerURL, nil, auth)
		expectStatus(t, resp, http.StatusOK)

		resp = request(t, http.MethodDelete, registerURL, nil, auth)
		expectStatus(t, resp, http.StatusNotFound)

		resp = request(t, http.MethodGet, serialsURL, nil, nil)
		expectStatus(t, resp, http.StatusNoContent)
	})

	t.Run("delete pass", func(t *testing.T) {
		resp := request(t, http.MethodDelete, env.baseURL+"/admin/passes/"+pass.SerialNumber, nil, nil)
		expectStatus(t, resp, http.StatusNoContent)

		if _, err := env.queries.GetPass(context.Background(), pass.ID); err == nil {
			t.Error("pass row still present after delete")
		}
	})
}

func TestDownload_OriginRecordMissing(t *testing.T) {
	env := startInProcessServer(t)

	pass := createPass(t, env, "no-such-member")

	resp := request(t, http.MethodGet,
		fmt.Sprintf("%s/passbook/%s?authentication_token=%s", env.baseURL, pass.SerialNumber, pass.AuthenticationToken), nil, nil)
	expectStatus(t, resp, http.StatusNotFound)
}

func TestInactivePassesAreNotReported(t *testing.T) {
	env := startInProcessServer(t)
	env.origins.set("2001", "Grace Hopper", time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))

	pass := createPass(t, env, "2001")
	registerURL := env.baseURL + "/passbook/v1/devices/device-2/registrations/" + passTypeID + "/" + pass.SerialNumber
	expectStatus(t, request(t, http.MethodPost, registerURL, map[string]string{"pushToken": "push-2"}, applePassAuth(pass.AuthenticationToken)), http.StatusCreated)

	resp := request(t, http.MethodPut, env.baseURL+"/admin/passes/"+pass.SerialNumber, map[string]bool{"active": false}, nil)
	expectStatus(t, resp, http.StatusOK)

	resp = request(t, http.MethodGet, env.baseURL+"/passbook/v1/devices/device-2/registrations/"+passTypeID, nil, nil)
	expectStatus(t, resp, http.StatusNoContent)
}

// concurrent registrations for the same device and pass create exactly one registration
func TestConcurrentRegistration(t *testing.T) {
	env := startInProcessServer(t)
	env.origins.set("3001", "Alan Turing", time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC))

	pass := createPass(t, env, "3001")
	registerURL := env.baseURL + "/passbook/v1/devices/device-3/registrations/" + passTypeID + "/" + pass.SerialNumber

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, err := http.NewRequest(http.MethodPost, registerURL, strings.NewReader(fmt.Sprintf(`{"pushToken":"push-%d"}`, i)))
			if err != nil {
				t.Errorf("failed to create request: %v", err)
				return
			}
			req.Header.Set("Authorization", "ApplePass "+pass.AuthenticationToken)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Errorf("request failed: %v", err)
				return
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusCreated {
				mu.Lock()
				created++
				mu.Unlock()
			} else if resp.StatusCode != http.StatusOK {
				t.Errorf("unexpected status %d", resp.StatusCode)
			}
		}()
	}
	wg.Wait()

	if created != 1 {
		t.Errorf("%d requests created a registration, want 1", created)
	}

	regs, err := env.queries.ListRegistrationsForPass(context.Background(), pass.ID)
	if err != nil {
		t.Fatalf("ListRegistrationsForPass() error: %v", err)
	}
	if len(regs) != 1 {
		t.Errorf("got %d registrations, want 1", len(regs))
	}
}
