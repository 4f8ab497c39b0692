package passbook

// changes.go answers the "which of my passes changed" query made by devices.

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/information-sharing-networks/passbook/internal/logger"
	"golang.org/x/sync/errgroup"
)

const (
	// maxConcurrentLookups bounds the number of concurrent origin last modified lookups per query
	maxConcurrentLookups = 8

	lastUpdatedLayout       = "2006-01-02 15:04:05-07:00"
	lastUpdatedLayoutMicros = "2006-01-02 15:04:05.000000-07:00"
)

// ChangedPass is a pass returned by the change query with its last update time
type ChangedPass struct {
	Pass       Pass
	LastUpdate time.Time
}

// ChangeDetector computes the passes that changed for a device
type ChangeDetector struct {
	store    Store
	registry *OriginRegistry
}

// NewChangeDetector creates a change detector
func NewChangeDetector(store Store, registry *OriginRegistry) *ChangeDetector {
	return &ChangeDetector{store: store, registry: registry}
}

// ChangedPasses returns the active passes the device is registered for whose last update is
// at or after since. When since is nil every active registered pass is returned.
//
// Passes whose origin record no longer exists, or whose origin type is no longer configured, are left out. Last update times are truncated to
// microseconds, the precision of the timestamps handed back to devices.
func (d *ChangeDetector) ChangedPasses(ctx context.Context, device string, since *time.Time) ([]ChangedPass, error) {
	passes, err := d.store.ActivePassesForDevice(ctx, device)
	if err != nil {
		return nil, WrapInternalError(err, "failed to list passes for device")
	}

	// the store returns each pass once but the result must be a set regardless
	seen := make(map[int64]bool, len(passes))
	var unique []Pass
	for _, p := range passes {
		if !seen[p.ID] && p.Active {
			seen[p.ID] = true
			unique = append(unique, p)
		}
	}

	lastUpdates := make([]time.Time, len(unique))
	found := make([]bool, len(unique))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)
	for i := range unique {
		g.Go(func() error {
			t, err := d.registry.LastUpdate(gctx, &unique[i])
			switch {
			case errors.Is(err, ErrOriginNotFound):
				logger.ContextRequestLogger(ctx).Warn("origin record missing for registered pass",
					slog.Int64("pass_id", unique[i].ID),
					slog.String("origin", unique[i].Origin.String()),
				)
				return nil
			case errors.Is(err, ErrUnknownOriginType):
				logger.ContextRequestLogger(ctx).Warn("registered pass has an origin type that is not configured",
					slog.Int64("pass_id", unique[i].ID),
					slog.String("origin", unique[i].Origin.String()),
				)
				return nil
			}
			if err != nil {
				return err
			}
			lastUpdates[i] = t.Truncate(time.Microsecond)
			found[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, WrapInternalError(err, "failed to get last update time")
	}

	var changed []ChangedPass
	for i, p := range unique {
		if !found[i] {
			continue
		}
		if since != nil && lastUpdates[i].Before(*since) {
			continue
		}
		changed = append(changed, ChangedPass{Pass: p, LastUpdate: lastUpdates[i]})
	}

	slices.SortFunc(changed, byPassID)
	return changed, nil
}

func byPassID(a, b ChangedPass) int {
	return cmp.Compare(a.Pass.ID, b.Pass.ID)
}

// GroupBySerialNumbers groups changed passes by their formatted last update time.
// The serial numbers under each key are in ascending pass ID order.
func GroupBySerialNumbers(changed []ChangedPass) map[string][]string {
	sorted := slices.Clone(changed)
	slices.SortFunc(sorted, byPassID)

	groups := make(map[string][]string)
	for _, c := range sorted {
		key := FormatLastUpdated(c.LastUpdate)
		groups[key] = append(groups[key], c.Pass.SerialNumber())
	}
	return groups
}

// FormatLastUpdated formats a last update time as "2006-01-02 15:04:05.000000+00:00" in UTC.
// The fraction is omitted when the time has no microseconds.
func FormatLastUpdated(t time.Time) string {
	t = t.UTC().Truncate(time.Microsecond)
	if t.Nanosecond() == 0 {
		return t.Format(lastUpdatedLayout)
	}
	return t.Format(lastUpdatedLayoutMicros)
}

// ParseUpdatedSince parses the passesUpdatedSince value sent by devices.
//
// Accepted forms are the keys produced by FormatLastUpdated, RFC 3339 timestamps (with "T" or a space
// between date and time, with or without a fraction or offset, offsets with or without a colon) and plain dates. Times without an offset are UTC.
// ok is false when the value is empty or cannot be parsed; callers treat it as absent.
func ParseUpdatedSince(s string) (t *time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}

	candidates := []string{s}
	// an unescaped "+" in a query string arrives as a space: "2024-01-02 03:04:05 00:00"
	if n := len(s); n > 6 && s[n-6] == ' ' && s[n-3] == ':' {
		candidates = append(candidates, s[:n-6]+"+"+s[n-5:])
	}

	layouts := []string{
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02T15:04:05Z0700",
		"2006-01-02 15:04:05Z0700",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, c := range candidates {
		for _, layout := range layouts {
			parsed, err := time.Parse(layout, c)
			if err == nil {
				parsed = parsed.UTC()
				return &parsed, true
			}
		}
	}
	return nil, false
}
