// Copyright (c) 2025 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/qolzam/telar/apps/engagement/internal/database/postgres"
	"github.com/qolzam/telar/apps/engagement/shared/interfaces"
)

// Content kinds as stored by the discussion service
const (
	ContentTypePost    = 1
	ContentTypeComment = 2
)

// ownerQueries maps a content type to the query that returns its author
var ownerQueries = map[int]string{
	ContentTypePost:    `SELECT user_id FROM discuss_post WHERE id = $1`,
	ContentTypeComment: `SELECT user_id FROM comment WHERE id = $1`,
}

// OwnerDirectory resolves content authors from the relational content store
type OwnerDirectory struct {
	client *postgres.Client
}

// Ensure OwnerDirectory implements ContentOwnerLookup
var _ interfaces.ContentOwnerLookup = (*OwnerDirectory)(nil)

// NewOwnerDirectory creates a directory over client
func NewOwnerDirectory(client *postgres.Client) *OwnerDirectory {
	return &OwnerDirectory{client: client}
}

// FindOwnerID returns the author of one piece of content
func (d *OwnerDirectory) FindOwnerID(ctx context.Context, contentType int, contentID int64) (int64, error) {
	query, ok := ownerQueries[contentType]
	if !ok {
		return 0, fmt.Errorf("unknown content type %d", contentType)
	}

	var ownerID int64
	err := sqlx.GetContext(ctx, d.client.DB(), &ownerID, query, contentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: type %d id %d", interfaces.ErrContentNotFound, contentType, contentID)
		}
		return 0, fmt.Errorf("failed to find content owner: %w", err)
	}
	return ownerID, nil
}
