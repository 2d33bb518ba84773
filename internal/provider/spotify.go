package provider

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"autodj/internal/core"
	"autodj/internal/events"
	"autodj/internal/fetch"
	"autodj/internal/resolver"
)

const spotifyNotFoundMessage = "No Spotify autoplay tracks found"

var (
	// spotifyIDRegex matches the canonical 22-character track identifier.
	spotifyIDRegex  = regexp.MustCompile(`^[A-Za-z0-9]{22}$`)
	spotifyURLRegex = regexp.MustCompile(`(?:open\.)?spotify\.com/track/([A-Za-z0-9]{22})`)
	spotifyURIRegex = regexp.MustCompile(`spotify:track:([A-Za-z0-9]{22})`)
)

// RecommendationsBackend is an authenticated Web API capable of seed-track
// recommendations.
type RecommendationsBackend interface {
	Recommendations(ctx context.Context, seedTrackID string, limit int) ([]resolver.Track, error)
}

// Spotify resolves the next track from Spotify recommendations. Resolution
// backends in order of preference: the external search backend, the Web
// API, and the anonymous token endpoint gated by a time-based one-time
// code.
type Spotify struct {
	resolver resolver.Resolver      // nil when no search backend is configured
	web      RecommendationsBackend // nil without client credentials
	fetch    *fetch.Client
	cfg      core.SpotifyConfig
	bus      *events.Bus
	logger   *zap.Logger
	rng      *rand.Rand
	now      func() time.Time
}

func NewSpotify(
	res resolver.Resolver,
	web RecommendationsBackend,
	fetchClient *fetch.Client,
	cfg core.SpotifyConfig,
	bus *events.Bus,
	logger *zap.Logger,
) *Spotify {
	if cfg.MaxRecommendations < 1 {
		cfg.MaxRecommendations = 10
	}
	return &Spotify{
		resolver: res,
		web:      web,
		fetch:    fetchClient,
		cfg:      cfg,
		bus:      bus,
		logger:   logger,
		rng:      rng,
		now:      time.Now,
	}
}

func (p *Spotify) Source() core.Source { return core.SourceSpotify }

// CanHandle requires a Spotify raw source and a 22-character track ID,
// either direct or recoverable from the URI.
func (p *Spotify) CanHandle(track *core.TrackInfo) bool {
	if track == nil || !core.MatchesSource(track, core.SourceSpotify) {
		return false
	}
	return p.trackID(track) != ""
}

func (p *Spotify) NextTrack(ctx context.Context, track *core.TrackInfo, exclude map[string]struct{}) *core.AutoplayResult {
	if err := track.Validate(); err != nil {
		return failureResult(core.SourceSpotify, err.Error())
	}
	if !p.CanHandle(track) {
		return failureResult(core.SourceSpotify, "provider cannot handle this track")
	}

	seedID := p.trackID(track)

	var candidates []resolver.Track
	var err error
	method := "resolver"

	switch {
	case p.resolver != nil:
		candidates, err = p.resolver.Search(ctx, "seed_tracks="+seedID, resolver.ModeSpotifyRec)
	case p.web != nil:
		method = "web_api"
		candidates, err = p.web.Recommendations(ctx, seedID, p.cfg.MaxRecommendations)
	case p.cfg.TOTPSecret != "":
		method = "anonymous"
		candidates, err = p.anonymousRecommendations(ctx, seedID)
	default:
		result := failureResult(core.SourceSpotify, "no Spotify recommendation backend configured")
		emit(p.bus, events.TrackNotFound, core.SourceSpotify, track, result, nil)
		return result
	}

	if err != nil {
		p.logger.Warn("Spotify recommendations failed",
			zap.String("seed", seedID),
			zap.String("method", method),
			zap.Error(err))
		result := failureResult(core.SourceSpotify, "Spotify recommendations failed")
		emit(p.bus, events.ProviderError, core.SourceSpotify, track, result,
			&core.ProviderError{Source: core.SourceSpotify, Err: err})
		return result
	}

	candidates = filterCandidates(candidates, track, exclude, spotifyIDRegex.MatchString)
	if len(candidates) == 0 {
		result := failureResult(core.SourceSpotify, spotifyNotFoundMessage)
		emit(p.bus, events.TrackNotFound, core.SourceSpotify, track, result, nil)
		return result
	}

	winner := pickCandidate(p.rng, candidates)
	trackURL := winner.URI
	if trackURL == "" {
		trackURL = "https://open.spotify.com/track/" + winner.Identifier
	}

	result := successResult(core.SourceSpotify, trackURL, winner.Identifier, candidateMetadata(winner, method))
	emit(p.bus, events.TrackFound, core.SourceSpotify, track, result, nil)
	return result
}

type anonymousTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type recommendationsResponse struct {
	Tracks []struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		DurationMS int64  `json:"duration_ms"`
		Artists    []struct {
			Name string `json:"name"`
		} `json:"artists"`
		ExternalURLs struct {
			Spotify string `json:"spotify"`
		} `json:"external_urls"`
	} `json:"tracks"`
}

// anonymousRecommendations performs the two sequential calls of the
// anonymous path: a token exchange gated by a one-time code, then the
// recommendations lookup with the bearer token.
func (p *Spotify) anonymousRecommendations(ctx context.Context, seedID string) ([]resolver.Track, error) {
	now := p.now()
	code := totpCode([]byte(p.cfg.TOTPSecret), now)

	tokenURL := fmt.Sprintf("%s?totp=%s&totpVer=%d&ts=%d",
		p.cfg.TokenURL, code, p.cfg.TOTPVersion, now.UnixMilli())

	body, err := p.fetch.Get(ctx, tokenURL)
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}

	var token anonymousTokenResponse
	if err := fetch.DecodeJSON(body, &token); err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("token exchange: empty access token")
	}

	recsURL := fmt.Sprintf("%s?seed_tracks=%s&limit=%d",
		p.cfg.RecommendationsURL, seedID, p.cfg.MaxRecommendations)

	body, err = p.fetch.GetWithHeaders(ctx, recsURL, map[string]string{
		"Authorization": "Bearer " + token.AccessToken,
	})
	if err != nil {
		return nil, fmt.Errorf("recommendations: %w", err)
	}

	var recs recommendationsResponse
	if err := fetch.DecodeJSON(body, &recs); err != nil {
		return nil, fmt.Errorf("recommendations: %w", err)
	}

	tracks := make([]resolver.Track, 0, len(recs.Tracks))
	for _, t := range recs.Tracks {
		names := make([]string, 0, len(t.Artists))
		for _, a := range t.Artists {
			names = append(names, a.Name)
		}
		trackURL := t.ExternalURLs.Spotify
		if trackURL == "" {
			trackURL = "https://open.spotify.com/track/" + t.ID
		}
		tracks = append(tracks, resolver.Track{
			Identifier: t.ID,
			URI:        trackURL,
			Title:      t.Name,
			Author:     strings.Join(names, ", "),
			Duration:   time.Duration(t.DurationMS) * time.Millisecond,
		})
	}
	return tracks, nil
}

// trackID extracts the 22-character identifier, preferring the identifier
// field and falling back to URL and URI forms.
func (p *Spotify) trackID(track *core.TrackInfo) string {
	if spotifyIDRegex.MatchString(track.Identifier) {
		return track.Identifier
	}
	if m := spotifyURLRegex.FindStringSubmatch(track.URI); m != nil {
		return m[1]
	}
	if m := spotifyURIRegex.FindStringSubmatch(track.URI); m != nil {
		return m[1]
	}
	return ""
}
