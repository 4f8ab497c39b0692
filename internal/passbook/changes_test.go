package passbook_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/information-sharing-networks/passbook/internal/passbook"
	"github.com/information-sharing-networks/passbook/internal/passbook/passbooktest"
	"github.com/information-sharing-networks/passbook/internal/store"
)

type changeFixture struct {
	store    *store.MemoryStore
	provider *passbooktest.Provider
	detector *passbook.ChangeDetector
}

func newChangeFixture(t *testing.T) *changeFixture {
	t.Helper()
	s, err := store.NewMemoryStore()
	if err != nil {
		t.Fatal(err)
	}
	provider := passbooktest.NewProvider()
	return &changeFixture{
		store:    s,
		provider: provider,
		detector: passbook.NewChangeDetector(s, provider.Registry("member")),
	}
}

// addPass creates a pass for origin id, sets its last modified time and registers device for it
func (f *changeFixture) addPass(t *testing.T, originID string, lastModified time.Time, device string) *passbook.Pass {
	t.Helper()
	ctx := context.Background()
	f.provider.Set(originID, nil, lastModified)
	pass, err := f.store.CreatePass(ctx, passbook.OriginRef{Type: "member", ID: originID}, passbook.NewAuthenticationToken())
	if err != nil {
		t.Fatal(err)
	}
	if device != "" {
		if _, err := f.store.Register(ctx, pass.ID, device, "pt"); err != nil {
			t.Fatal(err)
		}
	}
	return pass
}

func serials(changed []passbook.ChangedPass) []string {
	var out []string
	for _, c := range changed {
		out = append(out, c.Pass.SerialNumber())
	}
	return out
}

func TestChangedPasses(t *testing.T) {
	ctx := context.Background()
	f := newChangeFixture(t)

	t1 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
	t3 := time.Date(2024, 3, 3, 10, 0, 0, 0, time.UTC)

	p1 := f.addPass(t, "1", t1, "dev-A")
	p2 := f.addPass(t, "2", t2, "dev-A")
	p3 := f.addPass(t, "3", t3, "dev-A")
	f.addPass(t, "4", t3, "dev-B")
	f.addPass(t, "5", t3, "")

	tests := []struct {
		name  string
		since *time.Time
		want  []string
	}{
		{"no watermark returns every registered pass", nil, []string{p1.SerialNumber(), p2.SerialNumber(), p3.SerialNumber()}},
		{"watermark equal to last update is included", &t2, []string{p2.SerialNumber(), p3.SerialNumber()}},
		{"watermark after every update", ptr(t3.Add(time.Second)), nil},
		{"watermark before every update", ptr(t1.Add(-time.Hour)), []string{p1.SerialNumber(), p2.SerialNumber(), p3.SerialNumber()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed, err := f.detector.ChangedPasses(ctx, "dev-A", tt.since)
			if err != nil {
				t.Fatalf("ChangedPasses() error: %v", err)
			}
			if diff := cmp.Diff(tt.want, serials(changed)); diff != "" {
				t.Errorf("serials mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestChangedPasses_InactiveAndMissing(t *testing.T) {
	ctx := context.Background()
	f := newChangeFixture(t)

	lastModified := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	p1 := f.addPass(t, "1", lastModified, "dev-A")
	p2 := f.addPass(t, "2", lastModified, "dev-A")

	if _, err := f.store.SetPassActive(ctx, p1.ID, false); err != nil {
		t.Fatal(err)
	}
	f.provider.Delete("2")

	// a pass created for an origin type that has since been removed from the configuration
	retired, err := f.store.CreatePass(ctx, passbook.OriginRef{Type: "retired", ID: "9"}, passbook.NewAuthenticationToken())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.store.Register(ctx, retired.ID, "dev-A", "pt"); err != nil {
		t.Fatal(err)
	}
	p3 := f.addPass(t, "3", lastModified, "dev-A")

	changed, err := f.detector.ChangedPasses(ctx, "dev-A", nil)
	if err != nil {
		t.Fatalf("ChangedPasses() error: %v", err)
	}
	if diff := cmp.Diff([]string{p3.SerialNumber()}, serials(changed)); diff != "" {
		t.Errorf("inactive pass %d, pass %d with a missing origin and pass %d with an unconfigured origin type must be left out (-want +got):\n%s",
			p1.ID, p2.ID, retired.ID, diff)
	}

	changed, err = f.detector.ChangedPasses(ctx, "dev-unknown", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(changed) != 0 {
		t.Errorf("unknown device should have no changes, got %v", serials(changed))
	}
}

func TestChangedPasses_TruncatesToMicroseconds(t *testing.T) {
	ctx := context.Background()
	f := newChangeFixture(t)

	lastModified := time.Date(2024, 3, 1, 10, 0, 0, 123456789, time.UTC)
	f.addPass(t, "1", lastModified, "dev-A")

	// a device echoes back the key it was given, which only has microseconds
	since, ok := passbook.ParseUpdatedSince(passbook.FormatLastUpdated(lastModified))
	if !ok {
		t.Fatal("failed to parse formatted timestamp")
	}

	changed, err := f.detector.ChangedPasses(ctx, "dev-A", since)
	if err != nil {
		t.Fatal(err)
	}
	if len(changed) != 1 {
		t.Fatalf("expected the pass to be reported at its own watermark, got %d passes", len(changed))
	}
	if changed[0].LastUpdate.Nanosecond() != 123456000 {
		t.Errorf("LastUpdate = %v, want microsecond precision", changed[0].LastUpdate)
	}
}

func TestGroupBySerialNumbers(t *testing.T) {
	t1 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 3, 2, 10, 0, 0, 500000000, time.UTC)

	changed := []passbook.ChangedPass{
		{Pass: passbook.Pass{ID: 10}, LastUpdate: t1},
		{Pass: passbook.Pass{ID: 2}, LastUpdate: t1},
		{Pass: passbook.Pass{ID: 3}, LastUpdate: t2},
	}

	want := map[string][]string{
		"2024-03-01 10:00:00+00:00":        {"2", "10"},
		"2024-03-02 10:00:00.500000+00:00": {"3"},
	}
	if diff := cmp.Diff(want, passbook.GroupBySerialNumbers(changed)); diff != "" {
		t.Errorf("GroupBySerialNumbers() mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatLastUpdated(t *testing.T) {
	paris := time.FixedZone("CET", 3600)

	tests := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "2024-01-02 03:04:05+00:00"},
		{time.Date(2024, 1, 2, 3, 4, 5, 120000, time.UTC), "2024-01-02 03:04:05.000120+00:00"},
		{time.Date(2024, 1, 2, 4, 4, 5, 0, paris), "2024-01-02 03:04:05+00:00"},
		{time.Date(2024, 1, 2, 3, 4, 5, 999, time.UTC), "2024-01-02 03:04:05+00:00"},
	}
	for _, tt := range tests {
		if got := passbook.FormatLastUpdated(tt.in); got != tt.want {
			t.Errorf("FormatLastUpdated(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseUpdatedSince(t *testing.T) {
	tests := []struct {
		in     string
		want   time.Time
		wantOK bool
	}{
		{"2024-01-02 03:04:05+00:00", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), true},
		{"2024-01-02 03:04:05.000120+00:00", time.Date(2024, 1, 2, 3, 4, 5, 120000, time.UTC), true},
		{"2024-01-02 03:04:05 00:00", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), true},
		{"2024-01-02T03:04:05Z", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), true},
		{"2024-01-02T04:04:05+01:00", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), true},
		{"2024-01-02 03:04:05+0000", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), true},
		{"2024-01-02T04:04:05+0100", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), true},
		{"2024-01-02 03:04:05", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), true},
		{"2024-01-02T03:04:05.5", time.Date(2024, 1, 2, 3, 4, 5, 500000000, time.UTC), true},
		{"2024-01-02", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"yesterday", time.Time{}, false},
		{"1700000000", time.Time{}, false},
	}
	for _, tt := range tests {
		got, ok := passbook.ParseUpdatedSince(tt.in)
		if ok != tt.wantOK {
			t.Errorf("ParseUpdatedSince(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			continue
		}
		if ok && !got.Equal(tt.want) {
			t.Errorf("ParseUpdatedSince(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func ptr[T any](v T) *T {
	return &v
}
