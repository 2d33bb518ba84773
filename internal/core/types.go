// Package core implements the autoplay dispatch pipeline: source
// canonicalization, provider routing, rate limiting, timeout bounding and
// per-consumer history tracking.
package core

import (
	"context"
	"time"
)

// Source is a canonical platform tag. The set is closed; raw source name
// aliases map many-to-one onto it.
type Source string

const (
	SourceYouTube    Source = "youtube"
	SourceSpotify    Source = "spotify"
	SourceSoundCloud Source = "soundcloud"
)

// TrackInfo describes the track that just finished playing. It is
// caller-supplied and read-only for the duration of a dispatch call.
type TrackInfo struct {
	Identifier string        `json:"identifier"`
	SourceName string        `json:"sourceName"`
	URI        string        `json:"uri"`
	Title      string        `json:"title"`
	Author     string        `json:"author"`
	Length     time.Duration `json:"-"`
	IsStream   bool          `json:"isStream"`
	Position   time.Duration `json:"-"`
}

// Validate checks the identity invariant: identifier and source name must
// both be present, or the URI must serve as fallback identity.
func (t *TrackInfo) Validate() error {
	if t == nil {
		return &ValidationError{Reason: "track info is required"}
	}
	if t.SourceName == "" && t.URI == "" {
		return &ValidationError{Field: "sourceName", Reason: "track source name is required"}
	}
	if t.Identifier == "" && t.URI == "" {
		return &ValidationError{Field: "identifier", Reason: "track identifier is required"}
	}
	return nil
}

// AutoplayResult is the uniform outcome of a next-track resolution.
// Exactly one of the success/failure shapes is populated.
type AutoplayResult struct {
	Success  bool              `json:"success"`
	URL      string            `json:"url,omitempty"`
	TrackID  string            `json:"trackId,omitempty"`
	Source   Source            `json:"source,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// Provider is a platform-specific next-track resolution strategy.
//
// NextTrack never panics and never surfaces runtime failures as anything
// other than a failure-shaped result; the exclude set is read-only for the
// provider.
type Provider interface {
	// Source returns the canonical platform this provider serves.
	Source() Source

	// CanHandle reports whether the track's raw source matches this
	// provider's platform and a usable identity field is present.
	// Pure; performs no I/O.
	CanHandle(track *TrackInfo) bool

	// NextTrack resolves a replacement track, skipping identifiers present
	// in exclude.
	NextTrack(ctx context.Context, track *TrackInfo, exclude map[string]struct{}) *AutoplayResult
}

// ProviderStatus is read-only introspection data for a registered provider.
type ProviderStatus struct {
	Source       Source `json:"source"`
	RateLimited  bool   `json:"rateLimited"`
	RetryAfterMS int64  `json:"retryAfterMs"`
}
