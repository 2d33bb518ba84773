package core

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Autoplay.Timeout != 10*time.Second {
		t.Errorf("default timeout = %v, expected 10s", cfg.Autoplay.Timeout)
	}
	if cfg.Autoplay.RateLimitDelay != 500*time.Millisecond {
		t.Errorf("default rate limit delay = %v, expected 500ms", cfg.Autoplay.RateLimitDelay)
	}
	if cfg.Autoplay.HistorySize != 20 {
		t.Errorf("default history size = %d, expected 20", cfg.Autoplay.HistorySize)
	}
	if cfg.Autoplay.DefaultSource != SourceYouTube {
		t.Errorf("default source = %q, expected youtube", cfg.Autoplay.DefaultSource)
	}
	if !cfg.Autoplay.EnableEvents {
		t.Error("events should be enabled by default")
	}
	if !cfg.YouTube.EnableRadioMode {
		t.Error("radio mode should be enabled by default")
	}
	if cfg.SoundCloud.BaseURL == "" || cfg.Spotify.TokenURL == "" {
		t.Error("platform endpoint defaults must be populated")
	}
}
