package provider

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"autodj/internal/core"
	"autodj/internal/events"
	"autodj/internal/resolver"
)

// youtubeIDRegex matches the canonical 11-character video identifier.
var youtubeIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// YouTube resolves the next track on YouTube, via the external search
// backend when one is available and a deterministic radio-mix URL
// otherwise.
type YouTube struct {
	resolver  resolver.Resolver // nil when no search backend is configured
	bus       *events.Bus
	logger    *zap.Logger
	radioMode bool
	rng       *rand.Rand
}

func NewYouTube(res resolver.Resolver, bus *events.Bus, logger *zap.Logger, cfg core.YouTubeConfig) *YouTube {
	return &YouTube{
		resolver:  res,
		bus:       bus,
		logger:    logger,
		radioMode: cfg.EnableRadioMode,
		rng:       rng,
	}
}

func (p *YouTube) Source() core.Source { return core.SourceYouTube }

// CanHandle requires a YouTube raw source and an extractable video ID.
func (p *YouTube) CanHandle(track *core.TrackInfo) bool {
	if track == nil || !core.MatchesSource(track, core.SourceYouTube) {
		return false
	}
	return p.videoID(track) != ""
}

func (p *YouTube) NextTrack(ctx context.Context, track *core.TrackInfo, exclude map[string]struct{}) *core.AutoplayResult {
	if err := track.Validate(); err != nil {
		return failureResult(core.SourceYouTube, err.Error())
	}
	if !p.CanHandle(track) {
		return failureResult(core.SourceYouTube, "provider cannot handle this track")
	}

	seedID := p.videoID(track)

	if p.resolver != nil {
		return p.viaResolver(ctx, track, seedID, exclude)
	}

	if p.radioMode {
		result := successResult(
			core.SourceYouTube,
			fmt.Sprintf("https://www.youtube.com/watch?v=%s&list=RD%s", seedID, seedID),
			seedID,
			map[string]string{"method": "radio"},
		)
		emit(p.bus, events.TrackFound, core.SourceYouTube, track, result, nil)
		return result
	}

	result := failureResult(core.SourceYouTube, "No YouTube autoplay tracks found")
	emit(p.bus, events.TrackNotFound, core.SourceYouTube, track, result, nil)
	return result
}

func (p *YouTube) viaResolver(ctx context.Context, track *core.TrackInfo, seedID string, exclude map[string]struct{}) *core.AutoplayResult {
	query := buildSearchQuery(track)

	candidates, err := p.resolver.Search(ctx, query, resolver.ModeYouTube)
	if err != nil {
		p.logger.Warn("YouTube search failed",
			zap.String("query", query),
			zap.Error(err))
		result := failureResult(core.SourceYouTube, "YouTube search failed")
		emit(p.bus, events.ProviderError, core.SourceYouTube, track, result,
			&core.ProviderError{Source: core.SourceYouTube, Err: err})
		return result
	}

	// The seed itself is excluded alongside the consumer history.
	candidates = filterCandidates(candidates, track, exclude, youtubeIDRegex.MatchString)
	if len(candidates) == 0 {
		result := failureResult(core.SourceYouTube, "No YouTube autoplay tracks found")
		emit(p.bus, events.TrackNotFound, core.SourceYouTube, track, result, nil)
		return result
	}

	winner := pickCandidate(p.rng, candidates)
	trackURL := winner.URI
	if trackURL == "" {
		trackURL = "https://www.youtube.com/watch?v=" + winner.Identifier
	}

	result := successResult(core.SourceYouTube, trackURL, winner.Identifier, candidateMetadata(winner, "search"))
	emit(p.bus, events.TrackFound, core.SourceYouTube, track, result, nil)
	return result
}

// videoID extracts the 11-character identifier from the track, preferring
// the identifier field and falling back to URI parsing.
func (p *YouTube) videoID(track *core.TrackInfo) string {
	if youtubeIDRegex.MatchString(track.Identifier) {
		return track.Identifier
	}

	u, err := url.Parse(track.URI)
	if err != nil {
		return ""
	}

	var id string
	if strings.EqualFold(u.Hostname(), "youtu.be") {
		id = strings.Trim(u.Path, "/")
	} else {
		id = u.Query().Get("v")
	}

	if youtubeIDRegex.MatchString(id) {
		return id
	}
	return ""
}
