// Package resolver defines the external track-search collaborator and a
// Lavalink REST implementation of it.
package resolver

import (
	"context"
	"time"
)

// Mode selects the search backend's platform-specific lookup.
type Mode string

const (
	ModeYouTube    Mode = "ytsearch"
	ModeSpotifyRec Mode = "sprec"
	ModeSoundCloud Mode = "scsearch"
)

// Track is a candidate returned by the search backend.
type Track struct {
	Identifier string
	URI        string
	Title      string
	Author     string
	Duration   time.Duration
	IsStream   bool
	Raw        map[string]any
}

// Resolver turns a query string into candidate tracks. Implementations
// degrade gracefully: an empty result is zero candidates, not an error.
type Resolver interface {
	Search(ctx context.Context, query string, mode Mode) ([]Track, error)
}
