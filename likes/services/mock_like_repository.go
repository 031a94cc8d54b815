// Copyright (c) 2025 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"

	"github.com/qolzam/telar/apps/engagement/likes/models"
	"github.com/qolzam/telar/apps/engagement/likes/repository"
	"github.com/stretchr/testify/mock"
)

// MockLikeRepository is a mock implementation of LikeRepository for testing
type MockLikeRepository struct {
	mock.Mock
}

// Ensure MockLikeRepository implements LikeRepository
var _ repository.LikeRepository = (*MockLikeRepository)(nil)

// Toggle mocks the Toggle method
func (m *MockLikeRepository) Toggle(ctx context.Context, userID int64, ref models.EntityRef, ownerID int64) (bool, error) {
	args := m.Called(ctx, userID, ref, ownerID)
	return args.Bool(0), args.Error(1)
}

// CountLikes mocks the CountLikes method
func (m *MockLikeRepository) CountLikes(ctx context.Context, ref models.EntityRef) (int64, error) {
	args := m.Called(ctx, ref)
	return args.Get(0).(int64), args.Error(1)
}

// HasLiked mocks the HasLiked method
func (m *MockLikeRepository) HasLiked(ctx context.Context, userID int64, ref models.EntityRef) (bool, error) {
	args := m.Called(ctx, userID, ref)
	return args.Bool(0), args.Error(1)
}

// OwnerTotal mocks the OwnerTotal method
func (m *MockLikeRepository) OwnerTotal(ctx context.Context, ownerID int64) (int64, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

// Summaries mocks the Summaries method
func (m *MockLikeRepository) Summaries(ctx context.Context, viewerID int64, entityType models.EntityType, entityIDs []int64) ([]models.Summary, error) {
	args := m.Called(ctx, viewerID, entityType, entityIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Summary), args.Error(1)
}
