package services

import (
	"encoding/json"
	"slices"
	"strings"
)

// Role is the permission level of a user.
type Role string

const (
	RoleAdmin  Role = "admin"  // Creates and ends sessions, manages songs
	RolePlayer Role = "player" // Band member following the live song feed
)

// Roles lists every role seeded into the store.
var Roles = []Role{RoleAdmin, RolePlayer}

// Identity is the caller of a request, taken from the X-User header or a
// bearer token issued at login.
type Identity struct {
	ID   int64 `json:"id"`
	Role Role  `json:"role"`
}

// HasRole reports whether the identity holds one of the given roles.
func (i Identity) HasRole(roles ...Role) bool {
	return slices.Contains(roles, i.Role)
}

// Authorize returns an AccessDeniedError unless the identity holds one of roles.
func (i Identity) Authorize(roles ...Role) error {
	if i.HasRole(roles...) {
		return nil
	}
	return ErrAccessDenied("Access denied: role '%s' is not authorized for this resource", i.Role)
}

// ParseIdentityHeader decodes the JSON X-User header value into an Identity.
// id must be a JSON integer and role a JSON string; anything else is rejected
// before the request reaches a handler.
func ParseIdentityHeader(raw string) (Identity, error) {
	if strings.TrimSpace(raw) == "" {
		return Identity{}, ErrUnauthenticated("Unauthorized: 'x-user' header is missing")
	}
	if !json.Valid([]byte(raw)) {
		return Identity{}, ErrValidation("Invalid 'x-user' header: must be valid JSON")
	}

	var payload struct {
		ID   *int64  `json:"id"`
		Role *string `json:"role"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil || payload.ID == nil || payload.Role == nil {
		return Identity{}, ErrValidation("'x-user' must include 'id' (number) and 'role' (string)")
	}

	return Identity{ID: *payload.ID, Role: Role(*payload.Role)}, nil
}
