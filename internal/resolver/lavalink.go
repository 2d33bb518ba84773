package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"autodj/internal/fetch"
)

// Lavalink load types relevant to search resolution.
const (
	loadTypeTrack    = "track"
	loadTypePlaylist = "playlist"
	loadTypeSearch   = "search"
	loadTypeEmpty    = "empty"
	loadTypeError    = "error"
)

// LavalinkResolver resolves queries against a Lavalink v4 node's REST
// loadtracks endpoint.
type LavalinkResolver struct {
	baseURL string
	client  *fetch.Client
	logger  *zap.Logger
}

// NewLavalink creates a resolver for the node at baseURL, authenticating
// with the node password.
func NewLavalink(baseURL, password string, opts fetch.Options, logger *zap.Logger) *LavalinkResolver {
	if opts.Headers == nil {
		opts.Headers = make(map[string]string)
	}
	if password != "" {
		opts.Headers["Authorization"] = password
	}

	return &LavalinkResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  fetch.NewClient(opts),
		logger:  logger,
	}
}

type lavalinkTrackInfo struct {
	Identifier string `json:"identifier"`
	URI        string `json:"uri"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	Length     int64  `json:"length"`
	IsStream   bool   `json:"isStream"`
}

type lavalinkTrack struct {
	Encoded string            `json:"encoded"`
	Info    lavalinkTrackInfo `json:"info"`
}

type lavalinkPlaylist struct {
	Tracks []lavalinkTrack `json:"tracks"`
}

type loadTracksResponse struct {
	LoadType string          `json:"loadType"`
	Data     json.RawMessage `json:"data"`
}

// Search loads candidates for "<mode>:<query>". Empty and error load types
// degrade to zero candidates.
func (r *LavalinkResolver) Search(ctx context.Context, query string, mode Mode) ([]Track, error) {
	identifier := fmt.Sprintf("%s:%s", mode, query)
	endpoint := fmt.Sprintf("%s/v4/loadtracks?identifier=%s", r.baseURL, url.QueryEscape(identifier))

	body, err := r.client.Get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("lavalink loadtracks: %w", err)
	}

	var resp loadTracksResponse
	if err := fetch.DecodeJSON(body, &resp); err != nil {
		return nil, fmt.Errorf("lavalink loadtracks: %w", err)
	}

	switch resp.LoadType {
	case loadTypeSearch:
		var tracks []lavalinkTrack
		if err := fetch.DecodeJSON(resp.Data, &tracks); err != nil {
			return nil, fmt.Errorf("lavalink search payload: %w", err)
		}
		return convertTracks(tracks), nil

	case loadTypeTrack:
		var track lavalinkTrack
		if err := fetch.DecodeJSON(resp.Data, &track); err != nil {
			return nil, fmt.Errorf("lavalink track payload: %w", err)
		}
		return convertTracks([]lavalinkTrack{track}), nil

	case loadTypePlaylist:
		var playlist lavalinkPlaylist
		if err := fetch.DecodeJSON(resp.Data, &playlist); err != nil {
			return nil, fmt.Errorf("lavalink playlist payload: %w", err)
		}
		return convertTracks(playlist.Tracks), nil

	case loadTypeEmpty, loadTypeError:
		r.logger.Debug("Lavalink returned no usable tracks",
			zap.String("loadType", resp.LoadType),
			zap.String("identifier", identifier))
		return nil, nil

	default:
		r.logger.Warn("Unknown Lavalink load type",
			zap.String("loadType", resp.LoadType))
		return nil, nil
	}
}

func convertTracks(in []lavalinkTrack) []Track {
	out := make([]Track, 0, len(in))
	for _, t := range in {
		out = append(out, Track{
			Identifier: t.Info.Identifier,
			URI:        t.Info.URI,
			Title:      t.Info.Title,
			Author:     t.Info.Author,
			Duration:   time.Duration(t.Info.Length) * time.Millisecond,
			IsStream:   t.Info.IsStream,
			Raw:        map[string]any{"encoded": t.Encoded},
		})
	}
	return out
}
