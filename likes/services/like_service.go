// Copyright (c) 2025 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qolzam/telar/apps/engagement/internal/kvstore"
	"github.com/qolzam/telar/apps/engagement/internal/pkg/log"
	likeErrors "github.com/qolzam/telar/apps/engagement/likes/errors"
	"github.com/qolzam/telar/apps/engagement/likes/models"
	"github.com/qolzam/telar/apps/engagement/likes/repository"
)

// LikeService defines the interface for engagement ledger operations
type LikeService interface {
	// ToggleLike flips userID's like on the entity and moves ownerID's total
	// by the same amount in one atomic transaction.
	// Returns the resulting liked state.
	ToggleLike(ctx context.Context, userID int64, entityType models.EntityType, entityID, ownerID int64) (bool, error)

	// EntityLikeCount returns how many users currently like the entity
	EntityLikeCount(ctx context.Context, entityType models.EntityType, entityID int64) (int64, error)

	// EntityLikeStatus reports whether userID currently likes the entity
	EntityLikeStatus(ctx context.Context, userID int64, entityType models.EntityType, entityID int64) (bool, error)

	// UserLikeTotal returns the likes received across all content owned by userID
	UserLikeTotal(ctx context.Context, userID int64) (int64, error)

	// EntityLikeSummaries returns count and viewer status for a page of entities.
	// viewerID 0 means anonymous.
	EntityLikeSummaries(ctx context.Context, viewerID int64, entityType models.EntityType, entityIDs []int64) ([]models.Summary, error)
}

// ServiceConfig holds the ledger tuning knobs
type ServiceConfig struct {
	// MaxRetries is the number of optimistic attempts a toggle makes
	MaxRetries int
	// RetryBackoff is multiplied by the attempt number between attempts
	RetryBackoff time.Duration
	// OperationTimeout bounds every ledger call; zero disables it
	OperationTimeout time.Duration
	// MaxBatchSize caps the IDs accepted by EntityLikeSummaries
	MaxBatchSize int
}

// DefaultServiceConfig returns the production defaults
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxRetries:       5,
		RetryBackoff:     5 * time.Millisecond,
		OperationTimeout: 2 * time.Second,
		MaxBatchSize:     100,
	}
}

// likeService implements the LikeService interface
type likeService struct {
	repo   repository.LikeRepository
	config ServiceConfig
}

// NewLikeService creates a new instance of the like service
func NewLikeService(repo repository.LikeRepository, config ServiceConfig) LikeService {
	defaults := DefaultServiceConfig()
	if config.MaxRetries <= 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.MaxBatchSize <= 0 {
		config.MaxBatchSize = defaults.MaxBatchSize
	}
	if config.RetryBackoff < 0 {
		config.RetryBackoff = 0
	}
	return &likeService{
		repo:   repo,
		config: config,
	}
}

// ToggleLike runs the watch/read/exec sequence until it commits or the
// attempt budget is spent. A conflict means another writer touched the like
// set in between, so the whole sequence is replayed against fresh state.
func (s *likeService) ToggleLike(ctx context.Context, userID int64, entityType models.EntityType, entityID, ownerID int64) (bool, error) {
	if userID <= 0 {
		return false, fmt.Errorf("%w: user id must be positive, got %d", likeErrors.ErrInvalidArgument, userID)
	}
	if ownerID <= 0 {
		return false, fmt.Errorf("%w: entity owner id must be positive, got %d", likeErrors.ErrInvalidArgument, ownerID)
	}
	ref, err := validateEntity(entityType, entityID)
	if err != nil {
		return false, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	for attempt := 1; attempt <= s.config.MaxRetries; attempt++ {
		liked, err := s.repo.Toggle(ctx, userID, ref, ownerID)
		if err == nil {
			toggleTotal.WithLabelValues(likedLabel(liked)).Inc()
			return liked, nil
		}
		if !errors.Is(err, kvstore.ErrTxConflict) {
			return false, s.storeError(ctx, "toggle", err)
		}

		txConflictsTotal.Inc()
		log.WarnWithContext(ctx, "like toggle conflict on %s by user %d (attempt %d/%d)", ref, userID, attempt, s.config.MaxRetries)

		if attempt == s.config.MaxRetries {
			break
		}
		if err := s.backoff(ctx, attempt); err != nil {
			return false, s.storeError(ctx, "toggle", err)
		}
	}

	toggleTotal.WithLabelValues("exhausted").Inc()
	log.ErrorWithContext(ctx, "like toggle on %s by user %d gave up after %d attempts", ref, userID, s.config.MaxRetries)
	return false, fmt.Errorf("%w: toggle on %s not applied after %d conflicting attempts", likeErrors.ErrStoreUnavailable, ref, s.config.MaxRetries)
}

// EntityLikeCount returns how many users currently like the entity
func (s *likeService) EntityLikeCount(ctx context.Context, entityType models.EntityType, entityID int64) (int64, error) {
	ref, err := validateEntity(entityType, entityID)
	if err != nil {
		return 0, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	count, err := s.repo.CountLikes(ctx, ref)
	if err != nil {
		return 0, s.storeError(ctx, "count", err)
	}
	return count, nil
}

// EntityLikeStatus reports whether userID currently likes the entity
func (s *likeService) EntityLikeStatus(ctx context.Context, userID int64, entityType models.EntityType, entityID int64) (bool, error) {
	if userID <= 0 {
		return false, fmt.Errorf("%w: user id must be positive, got %d", likeErrors.ErrInvalidArgument, userID)
	}
	ref, err := validateEntity(entityType, entityID)
	if err != nil {
		return false, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	liked, err := s.repo.HasLiked(ctx, userID, ref)
	if err != nil {
		return false, s.storeError(ctx, "status", err)
	}
	return liked, nil
}

// UserLikeTotal returns the likes received across all content owned by userID
func (s *likeService) UserLikeTotal(ctx context.Context, userID int64) (int64, error) {
	if userID <= 0 {
		return 0, fmt.Errorf("%w: user id must be positive, got %d", likeErrors.ErrInvalidArgument, userID)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	total, err := s.repo.OwnerTotal(ctx, userID)
	if err != nil {
		return 0, s.storeError(ctx, "user_total", err)
	}
	return total, nil
}

// EntityLikeSummaries returns count and viewer status for a page of entities
func (s *likeService) EntityLikeSummaries(ctx context.Context, viewerID int64, entityType models.EntityType, entityIDs []int64) ([]models.Summary, error) {
	if viewerID < 0 {
		return nil, fmt.Errorf("%w: viewer id must not be negative, got %d", likeErrors.ErrInvalidArgument, viewerID)
	}
	if !entityType.IsValid() {
		return nil, fmt.Errorf("%w: unknown entity type %d", likeErrors.ErrInvalidArgument, int(entityType))
	}
	if len(entityIDs) > s.config.MaxBatchSize {
		return nil, fmt.Errorf("%w: at most %d entity ids per call, got %d", likeErrors.ErrInvalidArgument, s.config.MaxBatchSize, len(entityIDs))
	}
	for _, id := range entityIDs {
		if id <= 0 {
			return nil, fmt.Errorf("%w: entity id must be positive, got %d", likeErrors.ErrInvalidArgument, id)
		}
	}
	if len(entityIDs) == 0 {
		return []models.Summary{}, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	summaries, err := s.repo.Summaries(ctx, viewerID, entityType, entityIDs)
	if err != nil {
		return nil, s.storeError(ctx, "summaries", err)
	}
	return summaries, nil
}

func validateEntity(entityType models.EntityType, entityID int64) (models.EntityRef, error) {
	if !entityType.IsValid() {
		return models.EntityRef{}, fmt.Errorf("%w: unknown entity type %d", likeErrors.ErrInvalidArgument, int(entityType))
	}
	if entityID <= 0 {
		return models.EntityRef{}, fmt.Errorf("%w: entity id must be positive, got %d", likeErrors.ErrInvalidArgument, entityID)
	}
	return models.EntityRef{Type: entityType, ID: entityID}, nil
}

func (s *likeService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.OperationTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.config.OperationTimeout)
}

func (s *likeService) backoff(ctx context.Context, attempt int) error {
	if s.config.RetryBackoff == 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(time.Duration(attempt) * s.config.RetryBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// storeError converts anything the store layer returned into StoreUnavailable.
// Nothing was applied when this happens.
func (s *likeService) storeError(ctx context.Context, operation string, err error) error {
	storeErrorsTotal.WithLabelValues(operation).Inc()
	log.ErrorWithContext(ctx, "like store %s failed: %v", operation, err)
	return fmt.Errorf("%w: %s: %v", likeErrors.ErrStoreUnavailable, operation, err)
}

func likedLabel(liked bool) string {
	if liked {
		return "liked"
	}
	return "unliked"
}
