package fuzzy

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Never Gonna Give You Up", "never gonna give you up"},
		{"Beyoncé — Halo!", "beyonce halo"},
		{"  spaced   out  ", "spaced out"},
		{"Sigur Rós", "sigur ros"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Get Lucky (feat. Pharrell Williams)", "get lucky"},
		{"Get Lucky ft. Pharrell Williams", "get lucky"},
		{"Africa (Remastered 2018)", "africa"},
		{"Take On Me (Official Video)", "take on me"},
		{"Plain Title", "plain title"},
	}
	for _, tt := range tests {
		if got := NormalizeTitle(tt.in); got != tt.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeArtist(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"The Beatles", "beatles"},
		{"Simon and Garfunkel", "simon garfunkel"},
		{"Daft Punk", "daft punk"},
	}
	for _, tt := range tests {
		if got := NormalizeArtist(tt.in); got != tt.want {
			t.Errorf("NormalizeArtist(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSimilarity(t *testing.T) {
	if got := Similarity("abc", "abc"); got != 1.0 {
		t.Errorf("identical strings = %v", got)
	}
	if got := Similarity("abc", ""); got != 0.0 {
		t.Errorf("empty string = %v", got)
	}
	if got := Similarity("abcd", "abcx"); got != 0.75 {
		t.Errorf("Similarity(abcd, abcx) = %v, want 0.75", got)
	}
	if Similarity("never gonna give you up", "bohemian rhapsody") > 0.5 {
		t.Error("unrelated titles should score low")
	}
}

func TestSameRecording(t *testing.T) {
	tests := []struct {
		name                             string
		titleA, artistA, titleB, artistB string
		want                             bool
	}{
		{
			name:   "identical",
			titleA: "Never Gonna Give You Up", artistA: "Rick Astley",
			titleB: "Never Gonna Give You Up", artistB: "Rick Astley",
			want: true,
		},
		{
			name:   "version annotation",
			titleA: "Never Gonna Give You Up (Remastered)", artistA: "Rick Astley",
			titleB: "Never Gonna Give You Up", artistB: "Rick Astley",
			want: true,
		},
		{
			name:   "featuring credit",
			titleA: "Get Lucky (feat. Pharrell Williams)", artistA: "Daft Punk",
			titleB: "Get Lucky", artistB: "Daft Punk",
			want: true,
		},
		{
			name:   "missing artist falls back to title",
			titleA: "Never Gonna Give You Up", artistA: "",
			titleB: "Never Gonna Give You Up", artistB: "Rick Astley",
			want: true,
		},
		{
			name:   "different songs same artist",
			titleA: "Never Gonna Give You Up", artistA: "Rick Astley",
			titleB: "Together Forever", artistB: "Rick Astley",
			want: false,
		},
		{
			name:   "same title different artist",
			titleA: "Hurt", artistA: "Nine Inch Nails",
			titleB: "Hurt", artistB: "Johnny Cash",
			want: false,
		},
		{
			name:   "empty titles never match",
			titleA: "", artistA: "Rick Astley",
			titleB: "", artistB: "Rick Astley",
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameRecording(tt.titleA, tt.artistA, tt.titleB, tt.artistB, DefaultThreshold); got != tt.want {
				t.Errorf("SameRecording() = %v, want %v", got, tt.want)
			}
		})
	}
}
