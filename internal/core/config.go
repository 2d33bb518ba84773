package core

import (
	"time"
)

type Config struct {
	Autoplay   AutoplayConfig
	YouTube    YouTubeConfig
	Spotify    SpotifyConfig
	SoundCloud SoundCloudConfig
	Resolver   ResolverConfig
	Server     ServerConfig
	Log        LogConfig
}

// AutoplayConfig holds the dispatcher-level knobs.
type AutoplayConfig struct {
	Timeout        time.Duration
	MaxRetries     int
	RateLimitDelay time.Duration
	EnableEvents   bool
	HistorySize    int
	DefaultSource  Source
	UserAgent      string
	CustomHeaders  map[string]string
}

type YouTubeConfig struct {
	EnableRadioMode bool
}

type SpotifyConfig struct {
	ClientID           string
	ClientSecret       string
	TOTPSecret         string
	TOTPVersion        int
	TokenURL           string
	RecommendationsURL string
	MaxRecommendations int
}

type SoundCloudConfig struct {
	BaseURL   string
	MaxTracks int
}

// ResolverConfig points at an external track-search backend (Lavalink REST).
type ResolverConfig struct {
	URL      string
	Password string
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

func DefaultConfig() *Config {
	return &Config{
		Autoplay: AutoplayConfig{
			Timeout:        10 * time.Second,
			MaxRetries:     2,
			RateLimitDelay: 500 * time.Millisecond,
			EnableEvents:   true,
			HistorySize:    20,
			DefaultSource:  SourceYouTube,
		},
		YouTube: YouTubeConfig{
			EnableRadioMode: true,
		},
		Spotify: SpotifyConfig{
			TOTPVersion:        5,
			TokenURL:           "https://open.spotify.com/api/token",
			RecommendationsURL: "https://api.spotify.com/v1/recommendations",
			MaxRecommendations: 10,
		},
		SoundCloud: SoundCloudConfig{
			BaseURL:   "https://soundcloud.com",
			MaxTracks: 10,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// ConfigUpdate carries a partial dispatcher configuration; nil fields are
// left untouched. Applied updates take effect on the next call.
type ConfigUpdate struct {
	Timeout        *time.Duration
	MaxRetries     *int
	RateLimitDelay *time.Duration
	EnableEvents   *bool
	HistorySize    *int
	DefaultSource  *Source
}
