// Copyright (c) 2025 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/schema"
	"github.com/qolzam/telar/apps/engagement/internal/pkg/log"
	"github.com/qolzam/telar/apps/engagement/internal/types"
	likeErrors "github.com/qolzam/telar/apps/engagement/likes/errors"
	"github.com/qolzam/telar/apps/engagement/likes/models"
	"github.com/qolzam/telar/apps/engagement/likes/services"
	"github.com/qolzam/telar/apps/engagement/shared/interfaces"
)

// LikeHandler handles all like-related HTTP requests
type LikeHandler struct {
	likeService services.LikeService
	owners      interfaces.ContentOwnerLookup
	decoder     *schema.Decoder
}

// NewLikeHandler creates a new LikeHandler with injected dependencies.
// With owners set, toggles credit the author recorded in the content store.
// owners may be nil, in which case entityUserId is mandatory and trusted.
func NewLikeHandler(likeService services.LikeService, owners interfaces.ContentOwnerLookup) *LikeHandler {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	return &LikeHandler{
		likeService: likeService,
		owners:      owners,
		decoder:     decoder,
	}
}

// ToggleLike likes or unlikes an entity for the authenticated user
// Endpoint: POST /likes/toggle
// Body: {"entityType": 1, "entityId": 7, "entityUserId": 3}
func (h *LikeHandler) ToggleLike(c *fiber.Ctx) error {
	var req models.ToggleRequest
	if err := c.BodyParser(&req); err != nil {
		return likeErrors.HandleInvalidRequestError(c, "Invalid request body")
	}

	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	if !ok || !user.IsAuthenticated() {
		return likeErrors.HandleUserContextError(c, "Invalid user context")
	}

	ctx := c.UserContext()
	entityType := models.EntityType(req.EntityType)

	ownerID, err := h.resolveOwner(ctx, entityType, req.EntityID, req.EntityUserID)
	if err != nil {
		return likeErrors.HandleServiceError(c, err)
	}

	liked, err := h.likeService.ToggleLike(ctx, user.UserID, entityType, req.EntityID, ownerID)
	if err != nil {
		return likeErrors.HandleServiceError(c, err)
	}

	resp := models.ToggleResponse{Liked: liked}
	// The toggle is committed at this point; a failed count read only drops the field
	if count, err := h.likeService.EntityLikeCount(ctx, entityType, req.EntityID); err == nil {
		resp.LikeCount = &count
	} else {
		log.WarnWithContext(ctx, "like count after toggle on %s:%d unavailable: %v", entityType, req.EntityID, err)
	}

	return c.Status(http.StatusOK).JSON(resp)
}

// GetLikeCount returns the number of likes of an entity
// Endpoint: GET /likes/count?entityType=1&entityId=7
func (h *LikeHandler) GetLikeCount(c *fiber.Ctx) error {
	var query models.EntityQuery
	if err := h.decodeQuery(c, &query); err != nil {
		return likeErrors.HandleValidationError(c, err.Error())
	}

	count, err := h.likeService.EntityLikeCount(c.UserContext(), models.EntityType(query.EntityType), query.EntityID)
	if err != nil {
		return likeErrors.HandleServiceError(c, err)
	}

	return c.JSON(models.CountResponse{
		EntityType: query.EntityType,
		EntityID:   query.EntityID,
		LikeCount:  count,
	})
}

// GetLikeStatus reports whether the authenticated user likes an entity
// Endpoint: GET /likes/status?entityType=1&entityId=7
func (h *LikeHandler) GetLikeStatus(c *fiber.Ctx) error {
	var query models.EntityQuery
	if err := h.decodeQuery(c, &query); err != nil {
		return likeErrors.HandleValidationError(c, err.Error())
	}

	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	if !ok || !user.IsAuthenticated() {
		return likeErrors.HandleUserContextError(c, "Invalid user context")
	}

	liked, err := h.likeService.EntityLikeStatus(c.UserContext(), user.UserID, models.EntityType(query.EntityType), query.EntityID)
	if err != nil {
		return likeErrors.HandleServiceError(c, err)
	}

	return c.JSON(models.StatusResponse{
		EntityType: query.EntityType,
		EntityID:   query.EntityID,
		Liked:      liked,
	})
}

// GetUserLikeTotal returns the likes received by a user across their content
// Endpoint: GET /likes/users/:userId/total
func (h *LikeHandler) GetUserLikeTotal(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("userId"), 10, 64)
	if err != nil {
		return likeErrors.HandleValidationError(c, "userId must be an integer")
	}

	total, err := h.likeService.UserLikeTotal(c.UserContext(), userID)
	if err != nil {
		return likeErrors.HandleServiceError(c, err)
	}

	return c.JSON(models.UserTotalResponse{
		UserID:    userID,
		LikeCount: total,
	})
}

// GetSummaries returns count and viewer status for a page of entities
// Endpoint: GET /likes/summaries?entityType=1&ids=1,2,3
// Anonymous callers always get liked=false.
func (h *LikeHandler) GetSummaries(c *fiber.Ctx) error {
	var query models.SummaryQuery
	if err := h.decodeQuery(c, &query); err != nil {
		return likeErrors.HandleValidationError(c, err.Error())
	}

	ids, err := parseIDs(query.IDs)
	if err != nil {
		return likeErrors.HandleValidationError(c, err.Error())
	}

	var viewerID int64
	if user, ok := c.Locals(types.UserCtxName).(types.UserContext); ok {
		viewerID = user.UserID
	}

	summaries, err := h.likeService.EntityLikeSummaries(c.UserContext(), viewerID, models.EntityType(query.EntityType), ids)
	if err != nil {
		return likeErrors.HandleServiceError(c, err)
	}

	return c.JSON(models.SummariesResponse{
		EntityType: query.EntityType,
		Items:      summaries,
	})
}

// resolveOwner returns the author whose total a toggle moves.
// The directory is authoritative; claimed is only used when there is none.
func (h *LikeHandler) resolveOwner(ctx context.Context, entityType models.EntityType, entityID, claimed int64) (int64, error) {
	if h.owners == nil {
		if claimed == 0 {
			return 0, likeErrors.ErrOwnerRequired
		}
		return claimed, nil
	}
	if !entityType.IsValid() || entityID <= 0 {
		return 0, fmt.Errorf("%w: entity %s:%d", likeErrors.ErrInvalidArgument, entityType, entityID)
	}

	ownerID, err := h.owners.FindOwnerID(ctx, int(entityType), entityID)
	if err != nil {
		if errors.Is(err, interfaces.ErrContentNotFound) {
			return 0, fmt.Errorf("%w: %v", likeErrors.ErrEntityNotFound, err)
		}
		log.ErrorWithContext(ctx, "owner lookup for %s:%d failed: %v", entityType, entityID, err)
		return 0, fmt.Errorf("%w: owner lookup: %v", likeErrors.ErrStoreUnavailable, err)
	}
	if claimed != 0 && claimed != ownerID {
		log.WarnWithContext(ctx, "entityUserId %d does not own %s:%d", claimed, entityType, entityID)
		return 0, fmt.Errorf("%w: entityUserId %d is not the owner of %s:%d", likeErrors.ErrInvalidArgument, claimed, entityType, entityID)
	}
	return ownerID, nil
}

func (h *LikeHandler) decodeQuery(c *fiber.Ctx, dst interface{}) error {
	values, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		return fmt.Errorf("invalid query string")
	}
	if err := h.decoder.Decode(dst, values); err != nil {
		return fmt.Errorf("invalid query parameters: %v", err)
	}
	return nil
}

// parseIDs accepts ids=1,2,3 as well as repeated ids=1&ids=2
func parseIDs(raw []string) ([]int64, error) {
	var ids []int64
	for _, value := range raw {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("ids must be integers, got %q", part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}
