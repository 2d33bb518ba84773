package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"autodj/internal/core"
	"autodj/internal/events"
	"autodj/internal/fetch"
	"autodj/internal/resolver"
)

func scSeedTrack(baseURL string) *core.TrackInfo {
	return &core.TrackInfo{
		Identifier: "never-gonna-give-you-up",
		SourceName: "soundcloud",
		URI:        baseURL + "/rickastley/never-gonna-give-you-up",
		Title:      "Never Gonna Give You Up",
		Author:     "Rick Astley",
	}
}

const recommendedPage = `<html><body>
<a itemprop="url" href="/otherartist/some-great-song-123456">Some Great Song</a>
<a itemprop="url" href="/otherartist/some-great-song-123456">duplicate anchor</a>
<a itemprop="url" href="/rickastley/sets/greatest-hits">a set, not a track</a>
<a itemprop="url" href="/justauser">a profile, not a track</a>
<a href="/unrelated/anchor-without-itemprop">ignored</a>
</body></html>`

func TestSoundCloud_ScrapeRecommended(t *testing.T) {
	var scrapedPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scrapedPath = r.URL.Path
		_, _ = w.Write([]byte(recommendedPage))
	}))
	defer srv.Close()

	cfg := core.SoundCloudConfig{BaseURL: srv.URL}
	p := NewSoundCloud(nil, fetch.NewClient(fetch.Options{}), cfg, events.NewBus(), zap.NewNop())

	result := p.NextTrack(context.Background(), scSeedTrack(srv.URL), nil)
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if scrapedPath != "/rickastley/never-gonna-give-you-up/recommended" {
		t.Errorf("scraped path = %q", scrapedPath)
	}
	if result.TrackID != "some-great-song-123456" {
		t.Errorf("trackId = %q", result.TrackID)
	}
	if result.URL != srv.URL+"/otherartist/some-great-song-123456" {
		t.Errorf("url = %q", result.URL)
	}
	if result.Metadata["method"] != "scrape" {
		t.Errorf("method = %q", result.Metadata["method"])
	}
	if result.Metadata["numericId"] != "123456" {
		t.Errorf("numericId = %q", result.Metadata["numericId"])
	}
}

func TestSoundCloud_ScrapeEmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><body>nothing here</body></html>"))
	}))
	defer srv.Close()

	bus := events.NewBus()
	notFound := countEvents(bus, events.TrackNotFound)
	cfg := core.SoundCloudConfig{BaseURL: srv.URL}
	p := NewSoundCloud(nil, fetch.NewClient(fetch.Options{}), cfg, bus, zap.NewNop())

	result := p.NextTrack(context.Background(), scSeedTrack(srv.URL), nil)
	if result.Success {
		t.Fatal("expected failure for an empty recommended page")
	}
	if result.Error != "No SoundCloud autoplay tracks found" {
		t.Errorf("error = %q", result.Error)
	}
	if *notFound != 1 {
		t.Errorf("track_not_found events = %d, expected 1", *notFound)
	}
}

func TestSoundCloud_ScrapeExcludesSeedAndHistory(t *testing.T) {
	page := `<a itemprop="url" href="/rickastley/never-gonna-give-you-up">seed</a>
<a itemprop="url" href="/otherartist/already-played-1">played</a>
<a itemprop="url" href="/otherartist/fresh-track-2">fresh</a>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	cfg := core.SoundCloudConfig{BaseURL: srv.URL}
	p := NewSoundCloud(nil, fetch.NewClient(fetch.Options{}), cfg, events.NewBus(), zap.NewNop())

	exclude := map[string]struct{}{"already-played-1": {}}
	result := p.NextTrack(context.Background(), scSeedTrack(srv.URL), exclude)
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if result.TrackID != "fresh-track-2" {
		t.Errorf("trackId = %q, seed and history must be excluded", result.TrackID)
	}
}

func TestSoundCloud_ViaResolver(t *testing.T) {
	search := &stubSearcher{tracks: []resolver.Track{
		{Identifier: "together-forever-99", URI: "https://soundcloud.com/rickastley/together-forever-99", Title: "Together Forever"},
	}}
	p := NewSoundCloud(search, nil, core.SoundCloudConfig{}, events.NewBus(), zap.NewNop())

	result := p.NextTrack(context.Background(), scSeedTrack("https://soundcloud.com"), nil)
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if search.lastMode != resolver.ModeSoundCloud {
		t.Errorf("mode = %q", search.lastMode)
	}
	if result.TrackID != "together-forever-99" {
		t.Errorf("trackId = %q", result.TrackID)
	}
}

func TestSoundCloud_MaxTracksCap(t *testing.T) {
	tracks := make([]resolver.Track, 20)
	for i := range tracks {
		tracks[i] = resolver.Track{Identifier: "filler", URI: "https://soundcloud.com/x/filler"}
	}
	tracks[0] = resolver.Track{Identifier: "kept-0", URI: "https://soundcloud.com/x/kept-0"}

	search := &stubSearcher{tracks: tracks}
	cfg := core.SoundCloudConfig{MaxTracks: 1}
	p := NewSoundCloud(search, nil, cfg, events.NewBus(), zap.NewNop())

	result := p.NextTrack(context.Background(), scSeedTrack("https://soundcloud.com"), nil)
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if result.TrackID != "kept-0" {
		t.Errorf("trackId = %q, candidates must be capped before selection", result.TrackID)
	}
}

func TestSoundCloud_CanHandle(t *testing.T) {
	p := NewSoundCloud(nil, nil, core.SoundCloudConfig{}, nil, zap.NewNop())

	tests := []struct {
		name  string
		track *core.TrackInfo
		want  bool
	}{
		{"track page", &core.TrackInfo{SourceName: "soundcloud", URI: "https://soundcloud.com/rickastley/never-gonna-give-you-up"}, true},
		{"profile page", &core.TrackInfo{SourceName: "soundcloud", URI: "https://soundcloud.com/rickastley"}, false},
		{"wrong source", &core.TrackInfo{SourceName: "youtube", URI: "https://soundcloud.com/rickastley/song"}, false},
		{"no uri", &core.TrackInfo{SourceName: "soundcloud", Identifier: "some-slug"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.CanHandle(tt.track); got != tt.want {
				t.Errorf("CanHandle() = %v, want %v", got, tt.want)
			}
		})
	}
}
