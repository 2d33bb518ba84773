// Package fuzzy provides text normalization and similarity scoring for
// comparing track titles and artist names across platforms.
package fuzzy

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DefaultThreshold is the similarity score above which two title/artist
// pairs are considered the same recording.
const DefaultThreshold = 0.9

var (
	featRegex       = regexp.MustCompile(`(?i)\s*[\(\[]?\s*(?:feat\.?|ft\.?|featuring)\s+[^\)\]]*[\)\]]?\s*`)
	versionRegex    = regexp.MustCompile(`(?i)\s*[\(\[]\s*(remaster|remastered|deluxe|extended|radio edit|clean|explicit|live|official video|official audio|lyric video|lyrics)[^\)\]]*[\)\]]\s*`)
	punctRegex      = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// Normalize lowercases, strips diacritics and punctuation, and collapses
// whitespace so platform-specific formatting differences disappear.
func Normalize(text string) string {
	text = norm.NFKD.String(text)

	var b strings.Builder
	for _, r := range text {
		if !unicode.IsMark(r) {
			b.WriteRune(r)
		}
	}
	text = b.String()

	text = punctRegex.ReplaceAllString(text, " ")
	text = whitespaceRegex.ReplaceAllString(text, " ")

	return strings.TrimSpace(strings.ToLower(text))
}

// NormalizeTitle normalizes a track title and removes featuring credits
// and version/edition annotations.
func NormalizeTitle(title string) string {
	title = featRegex.ReplaceAllString(title, " ")
	title = versionRegex.ReplaceAllString(title, " ")
	return Normalize(title)
}

// NormalizeArtist normalizes an artist name.
func NormalizeArtist(artist string) string {
	artist = Normalize(artist)
	artist = strings.ReplaceAll(artist, " and ", " ")
	artist = strings.TrimPrefix(artist, "the ")
	return artist
}

// Similarity returns a score in [0, 1] based on the longest common
// subsequence of the two strings.
func Similarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}
	if len(s1) == 0 || len(s2) == 0 {
		return 0.0
	}
	return float64(longestCommonSubsequence(s1, s2)) / float64(max(len(s1), len(s2)))
}

// SameRecording reports whether two title/artist pairs likely describe the
// same recording after normalization.
func SameRecording(titleA, artistA, titleB, artistB string, threshold float64) bool {
	ta, tb := NormalizeTitle(titleA), NormalizeTitle(titleB)
	if ta == "" || tb == "" {
		return false
	}
	if Similarity(ta, tb) < threshold {
		return false
	}

	aa, ab := NormalizeArtist(artistA), NormalizeArtist(artistB)
	if aa == "" || ab == "" {
		// Without both artists a matching title is the strongest signal available.
		return true
	}
	return Similarity(aa, ab) >= threshold ||
		strings.Contains(aa, ab) || strings.Contains(ab, aa)
}

func longestCommonSubsequence(s1, s2 string) int {
	m, n := len(s1), len(s2)
	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if s1[i-1] == s2[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}

	return prev[n]
}
