package provider

import (
	"context"
	"math/rand"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"autodj/internal/core"
	"autodj/internal/events"
	"autodj/internal/fetch"
	"autodj/internal/resolver"
)

var (
	// recommendedAnchorRegex extracts track anchors from the recommended
	// page's URL micro-format.
	recommendedAnchorRegex = regexp.MustCompile(`<a[^>]+itemprop="url"[^>]+href="(/[^"]+)"`)
	// numericSuffixRegex recovers the numeric track ID from a slug's
	// trailing "-<digits>" suffix.
	numericSuffixRegex = regexp.MustCompile(`-(\d+)$`)
)

// SoundCloud resolves the next track on SoundCloud, via the external
// search backend when available and the scraped "recommended" page
// otherwise.
type SoundCloud struct {
	resolver resolver.Resolver // nil when no search backend is configured
	fetch    *fetch.Client
	cfg      core.SoundCloudConfig
	bus      *events.Bus
	logger   *zap.Logger
	rng      *rand.Rand
}

func NewSoundCloud(
	res resolver.Resolver,
	fetchClient *fetch.Client,
	cfg core.SoundCloudConfig,
	bus *events.Bus,
	logger *zap.Logger,
) *SoundCloud {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://soundcloud.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.MaxTracks < 1 {
		cfg.MaxTracks = 10
	}
	return &SoundCloud{
		resolver: res,
		fetch:    fetchClient,
		cfg:      cfg,
		bus:      bus,
		logger:   logger,
		rng:      rng,
	}
}

func (p *SoundCloud) Source() core.Source { return core.SourceSoundCloud }

// CanHandle requires a SoundCloud raw source and a track page URI with a
// user/slug path.
func (p *SoundCloud) CanHandle(track *core.TrackInfo) bool {
	if track == nil || !core.MatchesSource(track, core.SourceSoundCloud) {
		return false
	}
	return p.trackPath(track) != ""
}

func (p *SoundCloud) NextTrack(ctx context.Context, track *core.TrackInfo, exclude map[string]struct{}) *core.AutoplayResult {
	if err := track.Validate(); err != nil {
		return failureResult(core.SourceSoundCloud, err.Error())
	}
	if !p.CanHandle(track) {
		return failureResult(core.SourceSoundCloud, "provider cannot handle this track")
	}

	var candidates []resolver.Track
	var err error
	method := "resolver"

	if p.resolver != nil {
		candidates, err = p.resolver.Search(ctx, buildSearchQuery(track), resolver.ModeSoundCloud)
	} else {
		method = "scrape"
		candidates, err = p.scrapeRecommended(ctx, track)
	}

	if err != nil {
		p.logger.Warn("SoundCloud recommendation lookup failed",
			zap.String("uri", track.URI),
			zap.String("method", method),
			zap.Error(err))
		result := failureResult(core.SourceSoundCloud, "SoundCloud recommendation lookup failed")
		emit(p.bus, events.ProviderError, core.SourceSoundCloud, track, result,
			&core.ProviderError{Source: core.SourceSoundCloud, Err: err})
		return result
	}

	if len(candidates) > p.cfg.MaxTracks {
		candidates = candidates[:p.cfg.MaxTracks]
	}

	seed := *track
	if seed.Identifier == "" {
		seed.Identifier = slugFromPath(p.trackPath(track))
	}
	candidates = filterCandidates(candidates, &seed, exclude, nil)
	if len(candidates) == 0 {
		result := failureResult(core.SourceSoundCloud, "No SoundCloud autoplay tracks found")
		emit(p.bus, events.TrackNotFound, core.SourceSoundCloud, track, result, nil)
		return result
	}

	winner := pickCandidate(p.rng, candidates)
	meta := candidateMetadata(winner, method)
	if numericID := numericSuffixRegex.FindStringSubmatch(winner.Identifier); numericID != nil {
		meta["numericId"] = numericID[1]
	}

	result := successResult(core.SourceSoundCloud, winner.URI, winner.Identifier, meta)
	emit(p.bus, events.TrackFound, core.SourceSoundCloud, track, result, nil)
	return result
}

// scrapeRecommended fetches the track's "recommended" page and extracts
// candidate track anchors.
func (p *SoundCloud) scrapeRecommended(ctx context.Context, track *core.TrackInfo) ([]resolver.Track, error) {
	pageURL := p.cfg.BaseURL + p.trackPath(track) + "/recommended"

	body, err := p.fetch.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	matches := recommendedAnchorRegex.FindAllStringSubmatch(string(body), -1)
	seen := make(map[string]struct{}, len(matches))
	candidates := make([]resolver.Track, 0, len(matches))

	for _, m := range matches {
		path := m[1]
		// Track pages are exactly /user/slug; deeper paths are sets,
		// comments or profile sections.
		parts := strings.Split(strings.Trim(path, "/"), "/")
		if len(parts) != 2 {
			continue
		}
		slug := parts[1]
		if _, dup := seen[slug]; dup {
			continue
		}
		seen[slug] = struct{}{}

		candidates = append(candidates, resolver.Track{
			Identifier: slug,
			URI:        p.cfg.BaseURL + path,
			Author:     parts[0],
		})
	}

	return candidates, nil
}

// trackPath returns the "/user/slug" path of the seed track's page, or ""
// when the URI is not a track page.
func (p *SoundCloud) trackPath(track *core.TrackInfo) string {
	u, err := url.Parse(track.URI)
	if err != nil || u.Path == "" {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return ""
	}
	return "/" + parts[0] + "/" + parts[1]
}

func slugFromPath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
