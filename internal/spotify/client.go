// Package spotify provides a Spotify Web API recommendations backend using
// the client-credentials flow.
package spotify

import (
	"context"
	"fmt"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"

	"autodj/internal/resolver"
)

// Client wraps the Spotify Web API for seed-track recommendations.
type Client struct {
	api    *spotify.Client
	logger *zap.Logger
}

// NewClient builds a Web API client from application credentials. The
// underlying oauth2 client refreshes its token transparently.
func NewClient(ctx context.Context, clientID, clientSecret string, logger *zap.Logger) (*Client, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("spotify client credentials are required")
	}

	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}

	// Fail fast on bad credentials instead of on the first resolution.
	if _, err := config.Token(ctx); err != nil {
		return nil, fmt.Errorf("spotify token exchange failed: %w", err)
	}

	httpClient := config.Client(ctx)

	return &Client{
		api:    spotify.New(httpClient),
		logger: logger,
	}, nil
}

// Recommendations returns up to limit candidate tracks seeded by a track ID.
func (c *Client) Recommendations(ctx context.Context, seedTrackID string, limit int) ([]resolver.Track, error) {
	seeds := spotify.Seeds{
		Tracks: []spotify.ID{spotify.ID(seedTrackID)},
	}

	recs, err := c.api.GetRecommendations(ctx, seeds, nil, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("spotify recommendations: %w", err)
	}

	tracks := make([]resolver.Track, 0, len(recs.Tracks))
	for _, t := range recs.Tracks {
		id := t.ID.String()
		trackURL := t.ExternalURLs["spotify"]
		if trackURL == "" {
			trackURL = "https://open.spotify.com/track/" + id
		}
		tracks = append(tracks, resolver.Track{
			Identifier: id,
			URI:        trackURL,
			Title:      t.Name,
			Author:     joinArtists(t.Artists),
			Duration:   t.TimeDuration(),
		})
	}

	c.logger.Debug("Fetched Spotify recommendations",
		zap.String("seed", seedTrackID),
		zap.Int("count", len(tracks)))

	return tracks, nil
}

func joinArtists(artists []spotify.SimpleArtist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}
