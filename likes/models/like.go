// Copyright (c) 2025 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package models

import (
	"fmt"
)

// EntityType tags the kind of content a like points at
type EntityType int

// EntityType constants
const (
	EntityTypePost    EntityType = 1
	EntityTypeComment EntityType = 2
)

// IsValid checks if the entity type is known
func (t EntityType) IsValid() bool {
	return t == EntityTypePost || t == EntityTypeComment
}

func (t EntityType) String() string {
	switch t {
	case EntityTypePost:
		return "post"
	case EntityTypeComment:
		return "comment"
	default:
		return fmt.Sprintf("entity(%d)", int(t))
	}
}

// EntityRef identifies a likeable unit of content
type EntityRef struct {
	Type EntityType `json:"entityType"`
	ID   int64      `json:"entityId"`
}

func (r EntityRef) String() string {
	return fmt.Sprintf("%s:%d", r.Type, r.ID)
}

// Summary is the like state of one entity as seen by a viewer
type Summary struct {
	EntityID  int64 `json:"entityId"`
	LikeCount int64 `json:"likeCount"`
	Liked     bool  `json:"liked"`
}

// ToggleRequest is the body of POST /likes/toggle.
// EntityUserID is the content author. When the service has a content
// directory the author comes from there, and a non-zero EntityUserID that
// differs is rejected; without one it is required and trusted.
type ToggleRequest struct {
	EntityType   int   `json:"entityType"`
	EntityID     int64 `json:"entityId"`
	EntityUserID int64 `json:"entityUserId"`
}

// ToggleResponse is returned after a successful toggle.
// LikeCount is omitted when the follow-up count read failed.
type ToggleResponse struct {
	Liked     bool   `json:"liked"`
	LikeCount *int64 `json:"likeCount,omitempty"`
}

// CountResponse is returned by GET /likes/count
type CountResponse struct {
	EntityType int   `json:"entityType"`
	EntityID   int64 `json:"entityId"`
	LikeCount  int64 `json:"likeCount"`
}

// StatusResponse is returned by GET /likes/status
type StatusResponse struct {
	EntityType int   `json:"entityType"`
	EntityID   int64 `json:"entityId"`
	Liked      bool  `json:"liked"`
}

// UserTotalResponse is returned by GET /likes/users/:userId/total
type UserTotalResponse struct {
	UserID    int64 `json:"userId"`
	LikeCount int64 `json:"likeCount"`
}

// SummariesResponse is returned by GET /likes/summaries
type SummariesResponse struct {
	EntityType int       `json:"entityType"`
	Items      []Summary `json:"items"`
}

// EntityQuery binds ?entityType=&entityId=
type EntityQuery struct {
	EntityType int   `schema:"entityType"`
	EntityID   int64 `schema:"entityId"`
}

// SummaryQuery binds ?entityType=&ids=1,2,3 (ids may also be repeated)
type SummaryQuery struct {
	EntityType int      `schema:"entityType"`
	IDs        []string `schema:"ids"`
}
