// Package fuzzy matches free-text queries against track titles. YouTube
// titles carry decoration like "(Official Video)" or "[HD Remaster]" that a
// user will never type, so matching runs on normalized forms.
package fuzzy

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	featRegex       = regexp.MustCompile(`(?i)\s*[\(\[]?\s*(?:feat\.?|ft\.?|featuring)\s+[^\)\]]*[\)\]]?\s*`)
	decorationRegex = regexp.MustCompile(`(?i)\s*[\(\[]\s*(official|lyric|lyrics|audio|video|visualizer|hd|hq|4k|remaster|remastered|live)[^\)\]]*[\)\]]\s*`)
	punctRegex      = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// NormalizeTitle strips featuring credits and upload decoration, then folds
// the rest with Normalize.
func NormalizeTitle(title string) string {
	title = featRegex.ReplaceAllString(title, " ")
	title = decorationRegex.ReplaceAllString(title, " ")
	return Normalize(title)
}

// Normalize lowercases, strips diacritics and punctuation, and collapses
// whitespace.
func Normalize(text string) string {
	text = norm.NFKD.String(text)

	var result strings.Builder
	for _, r := range text {
		if !unicode.IsMark(r) {
			result.WriteRune(r)
		}
	}
	text = result.String()

	text = punctRegex.ReplaceAllString(text, " ")
	text = whitespaceRegex.ReplaceAllString(text, " ")

	return strings.TrimSpace(strings.ToLower(text))
}

// Similarity scores two already-normalized strings in [0, 1] using the
// longest common subsequence over the longer input.
func Similarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}

	if len(s1) == 0 || len(s2) == 0 {
		return 0.0
	}

	longer := len(s1)
	if len(s2) > longer {
		longer = len(s2)
	}
	return float64(longestCommonSubsequence(s1, s2)) / float64(longer)
}

// TitleMatch scores a raw query against a raw track title.
func TitleMatch(query, title string) float64 {
	return Similarity(Normalize(query), NormalizeTitle(title))
}

func longestCommonSubsequence(s1, s2 string) int {
	m, n := len(s1), len(s2)
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if s1[i-1] == s2[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else if dp[i-1][j] > dp[i][j-1] {
				dp[i][j] = dp[i-1][j]
			} else {
				dp[i][j] = dp[i][j-1]
			}
		}
	}

	return dp[m][n]
}
