package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tarman-2563/CycleBay/internal/domain/catalog"
	domainuser "github.com/tarman-2563/CycleBay/internal/domain/user"
)

// ListingDirectory reads the catalog collection maintained by the catalog
// service. This side only ever queries it.
type ListingDirectory struct {
	col *mongo.Collection
}

func NewListingDirectory(db *mongo.Database) *ListingDirectory {
	return &ListingDirectory{col: db.Collection("listings")}
}

func (d *ListingDirectory) ByID(ctx context.Context, id catalog.ListingID) (*catalog.Listing, error) {
	var doc listingDocument
	if err := d.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalog.ErrListingNotFound
		}
		return nil, err
	}
	return &catalog.Listing{
		ID:      catalog.ListingID(doc.ID),
		OwnerID: domainuser.ID(doc.OwnerID),
		Name:    doc.Name,
		Image:   doc.Image,
		Price:   doc.Price,
	}, nil
}

type listingDocument struct {
	ID      string `bson:"_id"`
	OwnerID string `bson:"owner_id"`
	Name    string `bson:"name"`
	Image   string `bson:"image"`
	Price   int64  `bson:"price"`
}

// UserDirectory reads display summaries from the users collection owned by
// the identity system.
type UserDirectory struct {
	col *mongo.Collection
}

func NewUserDirectory(db *mongo.Database) *UserDirectory {
	return &UserDirectory{col: db.Collection("users")}
}

func (d *UserDirectory) SummaryByID(ctx context.Context, id domainuser.ID) (*domainuser.Summary, error) {
	var doc userDocument
	if err := d.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainuser.ErrNotFound
		}
		return nil, err
	}
	return &domainuser.Summary{
		ID:    domainuser.ID(doc.ID),
		Name:  doc.Name,
		Email: doc.Email,
	}, nil
}

type userDocument struct {
	ID    string `bson:"_id"`
	Name  string `bson:"name"`
	Email string `bson:"email"`
}
