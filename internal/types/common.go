package types

import "strconv"

// HTTP Header Constants
const (
	HeaderHMACAuthenticate = "X-Telar-Signature"
	HeaderTimestamp        = "X-Timestamp"
	HeaderUID              = "uid"
	HeaderAuthorization    = "Authorization"
	HeaderContentType      = "Content-Type"
)

// Authentication Constants
const (
	BearerPrefix = "Bearer "
	HMACPrefix   = "sha256="
)

// Common Values
const (
	UserRole  = "user"
	AdminRole = "admin"
)

// UserCtxName is the fiber Locals key holding the authenticated UserContext
const UserCtxName = "user"

// UserContext is the identity of the user behind one request.
// It lives in fiber Locals for the request's lifetime and is passed
// explicitly to services; nothing holds it between requests.
type UserContext struct {
	UserID      int64  `json:"uid"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	SystemRole  string `json:"role"`
	CreatedDate int64  `json:"createdDate"`
}

// IsAuthenticated reports whether the context carries a usable user id
func (u UserContext) IsAuthenticated() bool {
	return u.UserID > 0
}

// ParseUserID parses a decimal user id as carried in headers and token claims
func ParseUserID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, strconv.ErrRange
	}
	return id, nil
}
