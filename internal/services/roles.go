package services

import (
	"context"
	"fmt"

	"github.com/yalmoalm/JaMoveo/internal/db"
)

// SeedRoles inserts the well-known roles that are not yet present.
func SeedRoles(ctx context.Context, queries *db.Queries) error {
	for _, role := range Roles {
		if err := queries.EnsureRole(ctx, string(role)); err != nil {
			return fmt.Errorf("seed role %q: %w", role, err)
		}
	}
	return nil
}
