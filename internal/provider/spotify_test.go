package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"autodj/internal/core"
	"autodj/internal/events"
	"autodj/internal/fetch"
	"autodj/internal/resolver"
)

func spotifySeedTrack() *core.TrackInfo {
	return &core.TrackInfo{
		Identifier: "4cOdK2wGLETKBW3PvgPWqT",
		SourceName: "spotify",
		URI:        "https://open.spotify.com/track/4cOdK2wGLETKBW3PvgPWqT",
		Title:      "Never Gonna Give You Up",
		Author:     "Rick Astley",
	}
}

// stubRecommender scripts the Web API backend.
type stubRecommender struct {
	tracks   []resolver.Track
	err      error
	lastSeed string
}

func (s *stubRecommender) Recommendations(_ context.Context, seedID string, _ int) ([]resolver.Track, error) {
	s.lastSeed = seedID
	return s.tracks, s.err
}

func TestSpotify_ResolverEmptyAnswerIsFinal(t *testing.T) {
	bus := events.NewBus()
	notFound := countEvents(bus, events.TrackNotFound)
	found := countEvents(bus, events.TrackFound)

	// A configured backend with zero candidates must produce exactly one
	// not-found outcome, even with the Web API also available.
	search := &stubSearcher{}
	web := &stubRecommender{tracks: []resolver.Track{{Identifier: "bbbbbbbbbbbbbbbbbbbbbb"}}}
	p := NewSpotify(search, web, nil, core.SpotifyConfig{}, bus, zap.NewNop())

	result := p.NextTrack(context.Background(), spotifySeedTrack(), nil)
	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Error != "No Spotify autoplay tracks found" {
		t.Errorf("error = %q", result.Error)
	}
	if *notFound != 1 || *found != 0 {
		t.Errorf("events: not_found=%d found=%d, expected 1/0", *notFound, *found)
	}
	if web.lastSeed != "" {
		t.Error("the Web API must not be consulted when a search backend is configured")
	}
}

func TestSpotify_ViaResolver(t *testing.T) {
	search := &stubSearcher{tracks: []resolver.Track{
		{Identifier: "aaaaaaaaaaaaaaaaaaaaaa", URI: "https://open.spotify.com/track/aaaaaaaaaaaaaaaaaaaaaa", Title: "Together Forever"},
	}}
	p := NewSpotify(search, nil, nil, core.SpotifyConfig{}, events.NewBus(), zap.NewNop())

	result := p.NextTrack(context.Background(), spotifySeedTrack(), nil)
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if result.TrackID != "aaaaaaaaaaaaaaaaaaaaaa" {
		t.Errorf("trackId = %q", result.TrackID)
	}
	if search.lastQuery != "seed_tracks=4cOdK2wGLETKBW3PvgPWqT" {
		t.Errorf("query = %q", search.lastQuery)
	}
	if search.lastMode != resolver.ModeSpotifyRec {
		t.Errorf("mode = %q", search.lastMode)
	}
}

func TestSpotify_ViaWebAPI(t *testing.T) {
	web := &stubRecommender{tracks: []resolver.Track{
		{Identifier: "cccccccccccccccccccccc", Title: "Whenever You Need Somebody"},
	}}
	p := NewSpotify(nil, web, nil, core.SpotifyConfig{}, events.NewBus(), zap.NewNop())

	result := p.NextTrack(context.Background(), spotifySeedTrack(), nil)
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if web.lastSeed != "4cOdK2wGLETKBW3PvgPWqT" {
		t.Errorf("seed = %q", web.lastSeed)
	}
	if result.URL != "https://open.spotify.com/track/cccccccccccccccccccccc" {
		t.Errorf("url = %q", result.URL)
	}
	if result.Metadata["method"] != "web_api" {
		t.Errorf("method = %q", result.Metadata["method"])
	}
}

func TestSpotify_AnonymousPath(t *testing.T) {
	var tokenCalls, recCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		if r.URL.Query().Get("totp") == "" {
			t.Error("token exchange must carry a one-time code")
		}
		if r.URL.Query().Get("totpVer") != "5" {
			t.Errorf("totpVer = %q", r.URL.Query().Get("totpVer"))
		}
		_, _ = w.Write([]byte(`{"accessToken": "anon-token"}`))
	})
	mux.HandleFunc("/v1/recommendations", func(w http.ResponseWriter, r *http.Request) {
		recCalls++
		if got := r.Header.Get("Authorization"); got != "Bearer anon-token" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.URL.Query().Get("seed_tracks"); got != "4cOdK2wGLETKBW3PvgPWqT" {
			t.Errorf("seed_tracks = %q", got)
		}
		_, _ = w.Write([]byte(`{"tracks": [{
			"id": "dddddddddddddddddddddd",
			"name": "Take Me to Your Heart",
			"duration_ms": 208000,
			"artists": [{"name": "Rick Astley"}],
			"external_urls": {"spotify": "https://open.spotify.com/track/dddddddddddddddddddddd"}
		}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := core.SpotifyConfig{
		TOTPSecret:         "12345678901234567890",
		TOTPVersion:        5,
		TokenURL:           srv.URL + "/api/token",
		RecommendationsURL: srv.URL + "/v1/recommendations",
		MaxRecommendations: 5,
	}
	p := NewSpotify(nil, nil, fetch.NewClient(fetch.Options{}), cfg, events.NewBus(), zap.NewNop())
	p.now = func() time.Time { return time.Unix(59, 0) }

	result := p.NextTrack(context.Background(), spotifySeedTrack(), nil)
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if result.TrackID != "dddddddddddddddddddddd" {
		t.Errorf("trackId = %q", result.TrackID)
	}
	if result.Metadata["method"] != "anonymous" {
		t.Errorf("method = %q", result.Metadata["method"])
	}
	if result.Metadata["author"] != "Rick Astley" {
		t.Errorf("author = %q", result.Metadata["author"])
	}
	if tokenCalls != 1 || recCalls != 1 {
		t.Errorf("calls: token=%d recs=%d, expected 1/1", tokenCalls, recCalls)
	}
}

func TestSpotify_NoBackendConfigured(t *testing.T) {
	bus := events.NewBus()
	notFound := countEvents(bus, events.TrackNotFound)
	p := NewSpotify(nil, nil, nil, core.SpotifyConfig{}, bus, zap.NewNop())

	result := p.NextTrack(context.Background(), spotifySeedTrack(), nil)
	if result.Success {
		t.Fatal("expected failure without any backend")
	}
	if *notFound != 1 {
		t.Errorf("track_not_found events = %d, expected 1", *notFound)
	}
}

func TestSpotify_CanHandle(t *testing.T) {
	p := NewSpotify(nil, nil, nil, core.SpotifyConfig{}, nil, zap.NewNop())

	tests := []struct {
		name  string
		track *core.TrackInfo
		want  bool
	}{
		{"identifier", &core.TrackInfo{SourceName: "spotify", Identifier: "4cOdK2wGLETKBW3PvgPWqT"}, true},
		{"open url", &core.TrackInfo{SourceName: "spotify", URI: "https://open.spotify.com/track/4cOdK2wGLETKBW3PvgPWqT"}, true},
		{"spotify uri", &core.TrackInfo{SourceName: "spotify", URI: "spotify:track:4cOdK2wGLETKBW3PvgPWqT"}, true},
		{"wrong source", &core.TrackInfo{SourceName: "youtube", Identifier: "4cOdK2wGLETKBW3PvgPWqT"}, false},
		{"bad id length", &core.TrackInfo{SourceName: "spotify", Identifier: "short"}, false},
		{"playlist url", &core.TrackInfo{SourceName: "spotify", URI: "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.CanHandle(tt.track); got != tt.want {
				t.Errorf("CanHandle() = %v, want %v", got, tt.want)
			}
		})
	}
}
