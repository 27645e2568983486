package memory

import (
	"context"
	"sync"

	"github.com/tarman-2563/CycleBay/internal/domain/catalog"
	domainuser "github.com/tarman-2563/CycleBay/internal/domain/user"
)

// ListingDirectory is the in-memory catalog read model, filled from fixtures
// at startup and from test setup.
type ListingDirectory struct {
	mu    sync.RWMutex
	items map[catalog.ListingID]*catalog.Listing
}

func NewListingDirectory() *ListingDirectory {
	return &ListingDirectory{items: make(map[catalog.ListingID]*catalog.Listing)}
}

func (d *ListingDirectory) ByID(ctx context.Context, id catalog.ListingID) (*catalog.Listing, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	listing, ok := d.items[id]
	if !ok {
		return nil, catalog.ErrListingNotFound
	}
	copied := *listing
	return &copied, nil
}

func (d *ListingDirectory) Put(listing catalog.Listing) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.items[listing.ID] = &listing
}

// UserDirectory is the in-memory identity read model.
type UserDirectory struct {
	mu    sync.RWMutex
	items map[domainuser.ID]*domainuser.Summary
}

func NewUserDirectory() *UserDirectory {
	return &UserDirectory{items: make(map[domainuser.ID]*domainuser.Summary)}
}

func (d *UserDirectory) SummaryByID(ctx context.Context, id domainuser.ID) (*domainuser.Summary, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	summary, ok := d.items[id]
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	copied := *summary
	return &copied, nil
}

func (d *UserDirectory) Put(summary domainuser.Summary) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.items[summary.ID] = &summary
}
