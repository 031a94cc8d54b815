// Copyright (c) 2025 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package models

import (
	"strconv"
	"strings"
)

// Key layout shared by every process that reads or writes likes.
// like:entity:{entityType}:{entityId} -> set of liker user IDs
// like:user:{userId}                  -> likes received by the user
const (
	keySeparator     = ":"
	prefixEntityLike = "like:entity"
	prefixUserLike   = "like:user"
)

// EntityLikeKey returns the key of the like set of ref
func EntityLikeKey(ref EntityRef) string {
	return strings.Join([]string{
		prefixEntityLike,
		strconv.Itoa(int(ref.Type)),
		strconv.FormatInt(ref.ID, 10),
	}, keySeparator)
}

// UserLikeKey returns the key of the received-likes counter of userID
func UserLikeKey(userID int64) string {
	return prefixUserLike + keySeparator + strconv.FormatInt(userID, 10)
}

// MemberID encodes a user ID as a like set member
func MemberID(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
