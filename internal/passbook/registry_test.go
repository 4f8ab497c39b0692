package passbook_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/information-sharing-networks/passbook/internal/passbook"
	"github.com/information-sharing-networks/passbook/internal/passbook/passbooktest"
)

func TestOriginRegistry(t *testing.T) {
	registry := passbook.NewOriginRegistry()
	provider := passbooktest.NewProvider()

	for _, originType := range []string{"ticket", "member"} {
		if err := registry.Register(originType, provider); err != nil {
			t.Fatalf("Register(%q) error: %v", originType, err)
		}
	}
	if err := registry.Register("member", provider); err == nil {
		t.Error("registering an origin type twice should fail")
	}
	if err := registry.Register("", provider); err == nil {
		t.Error("empty origin type should fail")
	}
	if err := registry.Register("coupon", nil); err == nil {
		t.Error("nil provider should fail")
	}

	if diff := cmp.Diff([]string{"member", "ticket"}, registry.Types()); diff != "" {
		t.Errorf("Types() mismatch (-want +got):\n%s", diff)
	}
	if !registry.Has("member") || registry.Has("coupon") {
		t.Error("Has() returned the wrong answer")
	}

	if _, err := registry.Provider("coupon"); !errors.Is(err, passbook.ErrUnknownOriginType) {
		t.Errorf("expected ErrUnknownOriginType, got %v", err)
	}

	lastModified := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	provider.Set("9", nil, lastModified)
	got, err := registry.LastUpdate(context.Background(), &passbook.Pass{Origin: passbook.OriginRef{Type: "ticket", ID: "9"}})
	if err != nil {
		t.Fatalf("LastUpdate() error: %v", err)
	}
	if !got.Equal(lastModified) {
		t.Errorf("LastUpdate() = %v, want %v", got, lastModified)
	}
}
