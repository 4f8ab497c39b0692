// Package passbooktest provides an in-memory content provider for tests.
package passbooktest

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/information-sharing-networks/passbook/internal/passbook"
	"github.com/information-sharing-networks/passbook/internal/pkpass"
	"github.com/information-sharing-networks/passbook/internal/pkpass/pkpasstest"
)

type record struct {
	content      *pkpass.Content
	lastModified time.Time
}

// Provider is a passbook.ContentProvider holding origin records in memory
type Provider struct {
	mu      sync.Mutex
	records map[string]record

	// Calls counts PassContent calls
	Calls int
}

// NewProvider returns an empty provider
func NewProvider() *Provider {
	return &Provider{records: make(map[string]record)}
}

// Set stores the record. A nil content uses pkpasstest.Content().
func (p *Provider) Set(originID string, content *pkpass.Content, lastModified time.Time) {
	if content == nil {
		content = pkpasstest.Content()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records[originID] = record{content: content, lastModified: lastModified}
}

// Delete removes the record
func (p *Provider) Delete(originID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.records, originID)
}

func (p *Provider) PassContent(ctx context.Context, originID string) (*pkpass.Content, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Calls++
	r, ok := p.records[originID]
	if !ok {
		return nil, passbook.ErrOriginNotFound
	}
	c := *r.content
	c.Files = maps.Clone(r.content.Files)
	return &c, nil
}

func (p *Provider) LastModified(ctx context.Context, originID string) (time.Time, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	r, ok := p.records[originID]
	if !ok {
		return time.Time{}, passbook.ErrOriginNotFound
	}
	return r.lastModified, nil
}

// Registry returns a registry with the provider registered for originType
func (p *Provider) Registry(originType string) *passbook.OriginRegistry {
	registry := passbook.NewOriginRegistry()
	if err := registry.Register(originType, p); err != nil {
		panic(err)
	}
	return registry
}
