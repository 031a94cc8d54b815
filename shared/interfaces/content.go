package interfaces

import (
	"context"
	"errors"
)

// ErrContentNotFound is returned when the referenced content does not exist
var ErrContentNotFound = errors.New("content not found")

// ContentOwnerLookup resolves the author of a piece of content.
// The engagement ledger depends on this interface instead of the content
// store itself, so it can run with or without a relational database:
//   - the PostgreSQL directory reads discuss_post / comment rows
//   - tests plug in a map
type ContentOwnerLookup interface {
	// FindOwnerID returns the user id that owns entityID of entityType,
	// or ErrContentNotFound.
	FindOwnerID(ctx context.Context, entityType int, entityID int64) (int64, error)
}
