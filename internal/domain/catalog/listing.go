package catalog

import (
	"context"
	"errors"

	"github.com/tarman-2563/CycleBay/internal/domain/user"
)

var ErrListingNotFound = errors.New("catalog: listing not found")

type ListingID string

// Listing is the read-only slice of a catalog entry the messaging core
// needs: the owner to derive the seller side of a conversation, and a few
// display fields for conversation enrichment. Catalog CRUD is a separate
// system.
type Listing struct {
	ID      ListingID
	OwnerID user.ID
	Name    string
	Image   string
	Price   int64
}

// Directory is the narrow read port onto the catalog. OwnerID resolved
// through it is authoritative for who the seller of a conversation is.
type Directory interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
}
