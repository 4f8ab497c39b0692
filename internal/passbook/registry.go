package passbook

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/information-sharing-networks/passbook/internal/pkpass"
)

// ContentProvider supplies pass content for the records of one origin type.
//
// PassContent must return content the caller can modify: the engine sets serialNumber,
// webServiceURL and authenticationToken on it.
// Both methods return ErrOriginNotFound when the record does not exist.
type ContentProvider interface {
	PassContent(ctx context.Context, originID string) (*pkpass.Content, error)
	LastModified(ctx context.Context, originID string) (time.Time, error)
}

// OriginRegistry holds the allowed origin types and their content providers.
//
// It is built at startup from configuration and passed to the components that need it.
type OriginRegistry struct {
	mu        sync.RWMutex
	providers map[string]ContentProvider
}

// NewOriginRegistry returns an empty registry
func NewOriginRegistry() *OriginRegistry {
	return &OriginRegistry{providers: make(map[string]ContentProvider)}
}

// Register adds an origin type. Registering the same type twice is an error.
func (r *OriginRegistry) Register(originType string, provider ContentProvider) error {
	if originType == "" {
		return fmt.Errorf("origin type is required")
	}
	if provider == nil {
		return fmt.Errorf("origin type %q: provider is nil", originType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[originType]; exists {
		return fmt.Errorf("origin type %q is already registered", originType)
	}
	r.providers[originType] = provider
	return nil
}

// Provider returns the content provider for an origin type
func (r *OriginRegistry) Provider(originType string) (ContentProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[originType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOriginType, originType)
	}
	return p, nil
}

// Has reports whether the origin type is registered
func (r *OriginRegistry) Has(originType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.providers[originType]
	return ok
}

// Types returns the registered origin types in sorted order
func (r *OriginRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.providers))
	for t := range r.providers {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// LastUpdate returns the pass's last update time: the last modified time of its origin record
func (r *OriginRegistry) LastUpdate(ctx context.Context, pass *Pass) (time.Time, error) {
	provider, err := r.Provider(pass.Origin.Type)
	if err != nil {
		return time.Time{}, err
	}
	t, err := provider.LastModified(ctx, pass.Origin.ID)
	if err != nil {
		return time.Time{}, fmt.Errorf("origin %s: %w", pass.Origin, err)
	}
	return t, nil
}
