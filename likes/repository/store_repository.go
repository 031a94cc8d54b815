// Copyright (c) 2025 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package repository

import (
	"context"
	"fmt"

	"github.com/qolzam/telar/apps/engagement/internal/kvstore"
	"github.com/qolzam/telar/apps/engagement/likes/models"
)

// storeLikeRepository implements LikeRepository on a kvstore.Store
type storeLikeRepository struct {
	store kvstore.Store
}

// NewStoreLikeRepository creates a LikeRepository backed by store
func NewStoreLikeRepository(store kvstore.Store) LikeRepository {
	return &storeLikeRepository{store: store}
}

// Toggle reads membership and queues the flip inside the same WATCH on the
// like set. The owner counter is not watched; it is only ever moved by INCRBY.
func (r *storeLikeRepository) Toggle(ctx context.Context, userID int64, ref models.EntityRef, ownerID int64) (bool, error) {
	setKey := models.EntityLikeKey(ref)
	totalKey := models.UserLikeKey(ownerID)
	member := models.MemberID(userID)

	var liked bool
	err := r.store.Watch(ctx, func(tx kvstore.Tx) error {
		isMember, err := tx.SetIsMember(ctx, setKey, member)
		if err != nil {
			return err
		}

		if isMember {
			liked = false
			return tx.Exec(ctx,
				kvstore.SetRemove(setKey, member),
				kvstore.IncrBy(totalKey, -1),
			)
		}

		liked = true
		return tx.Exec(ctx,
			kvstore.SetAdd(setKey, member),
			kvstore.IncrBy(totalKey, 1),
		)
	}, setKey)
	if err != nil {
		return false, err
	}
	return liked, nil
}

// CountLikes returns the size of the like set of ref
func (r *storeLikeRepository) CountLikes(ctx context.Context, ref models.EntityRef) (int64, error) {
	return r.store.SetCard(ctx, models.EntityLikeKey(ref))
}

// HasLiked reports whether userID is in the like set of ref
func (r *storeLikeRepository) HasLiked(ctx context.Context, userID int64, ref models.EntityRef) (bool, error) {
	return r.store.SetIsMember(ctx, models.EntityLikeKey(ref), models.MemberID(userID))
}

// OwnerTotal returns the likes received by ownerID
func (r *storeLikeRepository) OwnerTotal(ctx context.Context, ownerID int64) (int64, error) {
	return r.store.GetInt(ctx, models.UserLikeKey(ownerID))
}

// Summaries fetches every like set in one round trip
func (r *storeLikeRepository) Summaries(ctx context.Context, viewerID int64, entityType models.EntityType, entityIDs []int64) ([]models.Summary, error) {
	keys := make([]string, len(entityIDs))
	for i, id := range entityIDs {
		keys[i] = models.EntityLikeKey(models.EntityRef{Type: entityType, ID: id})
	}

	member := ""
	if viewerID > 0 {
		member = models.MemberID(viewerID)
	}

	stats, err := r.store.SetStats(ctx, keys, member)
	if err != nil {
		return nil, err
	}
	if len(stats) != len(entityIDs) {
		return nil, fmt.Errorf("%w: expected %d set stats, got %d", kvstore.ErrStoreUnavailable, len(entityIDs), len(stats))
	}

	summaries := make([]models.Summary, len(entityIDs))
	for i, id := range entityIDs {
		summaries[i] = models.Summary{
			EntityID:  id,
			LikeCount: stats[i].Card,
			Liked:     stats[i].HasMember,
		}
	}
	return summaries, nil
}
