package passbook

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// ArchiveCache keeps recently built archives in memory.
//
// Entries are keyed by pass ID and the origin's last modified time, so a changed origin record
// never hits an old entry. A nil *ArchiveCache is valid and caches nothing.
type ArchiveCache struct {
	items *cache.Cache
}

// NewArchiveCache creates a cache whose entries expire after ttl. A ttl <= 0 returns nil (no caching).
func NewArchiveCache(ttl time.Duration) *ArchiveCache {
	if ttl <= 0 {
		return nil
	}
	return &ArchiveCache{items: cache.New(ttl, 2*ttl)}
}

func archiveCacheKey(passID int64, lastModified time.Time) string {
	return fmt.Sprintf("%d|%d", passID, lastModified.UnixNano())
}

// Get returns the cached archive for the pass at the given last modified time
func (c *ArchiveCache) Get(passID int64, lastModified time.Time) (*Archive, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.items.Get(archiveCacheKey(passID, lastModified))
	if !ok {
		return nil, false
	}
	archive, ok := v.(*Archive)
	return archive, ok
}

// Set stores an archive
func (c *ArchiveCache) Set(passID int64, lastModified time.Time, archive *Archive) {
	if c == nil {
		return
	}
	c.items.SetDefault(archiveCacheKey(passID, lastModified), archive)
}

// Invalidate removes every cached archive for the pass
func (c *ArchiveCache) Invalidate(passID int64) {
	if c == nil {
		return
	}
	prefix := strconv.FormatInt(passID, 10) + "|"
	for key := range c.items.Items() {
		if strings.HasPrefix(key, prefix) {
			c.items.Delete(key)
		}
	}
}

// Len returns the number of cached archives
func (c *ArchiveCache) Len() int {
	if c == nil {
		return 0
	}
	return c.items.ItemCount()
}
