// Package cache holds per-user permission snapshots for the resolver.
//
// Every user has a generation counter. Invalidate bumps it, and Set only
// stores a snapshot loaded under the current generation, so a load that
// raced with an invalidation is dropped instead of being served.
package cache

import (
	"context"

	"pageguard/internal/models"
)

// Grants maps a page name to the flags the user holds on it.
type Grants map[string]models.Flags

type PermissionCache interface {
	// Generation returns the current generation for userID. Read it before loading from the store.
	Generation(ctx context.Context, userID string) (uint64, error)
	// Get returns the cached grants for userID and whether there was a live entry.
	Get(ctx context.Context, userID string) (Grants, bool, error)
	// Set stores grants loaded under gen. It does nothing when gen is no longer current.
	Set(ctx context.Context, userID string, gen uint64, grants Grants) error
	// Invalidate drops the entry for userID and makes in-flight loads stale.
	Invalidate(ctx context.Context, userID string) error
}

func (g Grants) clone() Grants {
	out := make(Grants, len(g))
	for k, v := range g {
		out[k] = v
	}
	return out
}
