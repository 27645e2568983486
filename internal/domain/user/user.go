package user

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("user: not found")

type ID string

// Summary is the slice of a user account the messaging core is allowed to
// see. It is used to enrich sender and participant views only; authorization
// decisions never consult it.
type Summary struct {
	ID    ID
	Name  string
	Email string
}

// Directory resolves user identities to display summaries. Identity issuing
// and credential checks live outside this service.
type Directory interface {
	SummaryByID(ctx context.Context, id ID) (*Summary, error)
}
