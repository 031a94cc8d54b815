// Copyright (c) 2025 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package repository

import (
	"context"

	"github.com/qolzam/telar/apps/engagement/likes/models"
)

// LikeRepository defines the store operations behind the engagement ledger.
// It knows the key layout and how a toggle maps onto one optimistic
// transaction; retry policy belongs to the service.
type LikeRepository interface {
	// Toggle makes a single optimistic attempt to flip userID's like on ref
	// and move ownerID's total by the same amount.
	// Returns the resulting liked state, or kvstore.ErrTxConflict when a
	// concurrent writer touched the like set between the read and the exec.
	Toggle(ctx context.Context, userID int64, ref models.EntityRef, ownerID int64) (bool, error)

	// CountLikes returns the size of the like set of ref
	CountLikes(ctx context.Context, ref models.EntityRef) (int64, error)

	// HasLiked reports whether userID is in the like set of ref
	HasLiked(ctx context.Context, userID int64, ref models.EntityRef) (bool, error)

	// OwnerTotal returns the likes received by ownerID
	OwnerTotal(ctx context.Context, ownerID int64) (int64, error)

	// Summaries bulk retrieves count and viewer status for entityIDs of one type.
	// viewerID 0 means anonymous.
	Summaries(ctx context.Context, viewerID int64, entityType models.EntityType, entityIDs []int64) ([]models.Summary, error)
}
