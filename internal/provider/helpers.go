// Package provider implements the per-platform next-track resolution
// strategies behind the dispatcher.
package provider

import (
	"math/rand"
	"strconv"
	"strings"
	"time"

	"autodj/internal/core"
	"autodj/internal/events"
	"autodj/internal/resolver"
	"autodj/pkg/fuzzy"
)

// defaultQuery is the last-resort search term when a track carries no
// usable metadata.
const defaultQuery = "popular music"

// Package-level random number generator shared by providers; candidate
// selection doesn't require crypto-secure randomness.
var rng = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec

// successResult shapes a winning candidate into the uniform result.
func successResult(src core.Source, url, trackID string, metadata map[string]string) *core.AutoplayResult {
	return &core.AutoplayResult{
		Success:  true,
		URL:      url,
		TrackID:  trackID,
		Source:   src,
		Metadata: metadata,
	}
}

// failureResult shapes a failure into the uniform result.
func failureResult(src core.Source, message string) *core.AutoplayResult {
	return &core.AutoplayResult{
		Success: false,
		Source:  src,
		Error:   message,
	}
}

// candidateMetadata collects diagnostic metadata from a candidate.
func candidateMetadata(t resolver.Track, method string) map[string]string {
	meta := map[string]string{"method": method}
	if t.Title != "" {
		meta["title"] = t.Title
	}
	if t.Author != "" {
		meta["author"] = t.Author
	}
	if t.Duration > 0 {
		meta["durationMs"] = strconv.FormatInt(t.Duration.Milliseconds(), 10)
	}
	return meta
}

// filterCandidates drops candidates without a valid platform identity,
// candidates in the exclude set, and candidates that are the seed track
// itself (by identifier or by fuzzy title/artist match).
func filterCandidates(
	candidates []resolver.Track,
	seed *core.TrackInfo,
	exclude map[string]struct{},
	validID func(string) bool,
) []resolver.Track {
	out := make([]resolver.Track, 0, len(candidates))
	for _, c := range candidates {
		if c.Identifier == "" {
			continue
		}
		if validID != nil && !validID(c.Identifier) {
			continue
		}
		if _, excluded := exclude[c.Identifier]; excluded {
			continue
		}
		if seed != nil {
			if c.Identifier == seed.Identifier {
				continue
			}
			if fuzzy.SameRecording(c.Title, c.Author, seed.Title, seed.Author, fuzzy.DefaultThreshold) {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

// pickCandidate selects uniformly: shuffle a copy, take the first.
func pickCandidate(r *rand.Rand, candidates []resolver.Track) resolver.Track {
	shuffled := make([]resolver.Track, len(candidates))
	copy(shuffled, candidates)
	r.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[0]
}

// buildSearchQuery derives a search term from track metadata: normalized
// "author title", then title alone, then the generic default.
func buildSearchQuery(track *core.TrackInfo) string {
	title := fuzzy.NormalizeTitle(track.Title)
	author := fuzzy.NormalizeArtist(track.Author)

	switch {
	case author != "" && title != "":
		return author + " " + title
	case title != "":
		return title
	case strings.TrimSpace(track.Title) != "":
		return strings.TrimSpace(track.Title)
	default:
		return defaultQuery
	}
}

// emit publishes a lifecycle event; a nil bus is a no-op.
func emit(bus *events.Bus, typ events.Type, src core.Source, track *core.TrackInfo, result *core.AutoplayResult, err error) {
	if bus == nil {
		return
	}
	bus.Emit(events.Event{
		Type:   typ,
		Source: string(src),
		Track:  track,
		Result: result,
		Err:    err,
	})
}
