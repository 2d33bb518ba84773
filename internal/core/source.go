package core

import (
	"net/url"
	"strings"
)

// sourceAliases maps raw source name conventions from upstream player
// integrations onto canonical sources. Lookup is case-insensitive.
var sourceAliases = map[string]Source{
	"youtube":       SourceYouTube,
	"yt":            SourceYouTube,
	"ytsearch":      SourceYouTube,
	"ytmsearch":     SourceYouTube,
	"ytm":           SourceYouTube,
	"youtube_music": SourceYouTube,
	"youtubemusic":  SourceYouTube,

	"spotify":       SourceSpotify,
	"sp":            SourceSpotify,
	"spsearch":      SourceSpotify,
	"sprec":         SourceSpotify,
	"spotify_music": SourceSpotify,

	"soundcloud": SourceSoundCloud,
	"sc":         SourceSoundCloud,
	"scsearch":   SourceSoundCloud,
}

// sniffDomains maps URL domain substrings to canonical sources, used when
// the alias table misses.
var sniffDomains = []struct {
	substr string
	source Source
}{
	{"youtube.com", SourceYouTube},
	{"youtu.be", SourceYouTube},
	{"spotify.com", SourceSpotify},
	{"soundcloud.com", SourceSoundCloud},
	{"snd.sc", SourceSoundCloud},
}

// ParseSource resolves a string to a canonical source via the alias table.
func ParseSource(name string) (Source, bool) {
	src, ok := sourceAliases[strings.ToLower(strings.TrimSpace(name))]
	return src, ok
}

// SniffURI resolves a canonical source from known domain substrings in a
// playable locator.
func SniffURI(uri string) (Source, bool) {
	if uri == "" {
		return "", false
	}
	host := uri
	if u, err := url.Parse(uri); err == nil && u.Host != "" {
		host = u.Host
	}
	host = strings.ToLower(host)
	for _, d := range sniffDomains {
		if strings.Contains(host, d.substr) {
			return d.source, true
		}
	}
	// Fall back to a substring scan over the whole locator for scheme-less
	// or otherwise unparseable inputs.
	lower := strings.ToLower(uri)
	for _, d := range sniffDomains {
		if strings.Contains(lower, d.substr) {
			return d.source, true
		}
	}
	return "", false
}

// Canonicalize maps a raw source name to a canonical source, falling back
// to URL sniffing and finally to the configured default. Canonicalization
// never fails purely on naming convention drift.
func Canonicalize(sourceName, uri string, fallback Source) Source {
	if src, ok := ParseSource(sourceName); ok {
		return src
	}
	if src, ok := SniffURI(uri); ok {
		return src
	}
	return fallback
}

// MatchesSource reports whether the track's raw source (or, failing that,
// its URI) resolves to the given canonical source. Unlike Canonicalize it
// applies no default.
func MatchesSource(track *TrackInfo, src Source) bool {
	if track == nil {
		return false
	}
	if s, ok := ParseSource(track.SourceName); ok {
		return s == src
	}
	if s, ok := SniffURI(track.URI); ok {
		return s == src
	}
	return false
}
