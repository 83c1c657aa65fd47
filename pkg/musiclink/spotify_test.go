package musiclink

import (
	"testing"
)

//nolint:dupl // CanResolve tests intentionally follow same pattern across all resolvers for consistency.
func TestSpotifyResolver_CanResolve(t *testing.T) {
	t.Helper()

	resolver := NewSpotifyResolver()

	tests := []struct {
		name     string
		url      string
		expected bool
	}{
		{
			name:     "Valid track URL",
			url:      "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC",
			expected: true,
		},
		{
			name:     "Valid track URL with share params",
			url:      "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC?si=abc123",
			expected: true,
		},
		{
			name:     "Invalid - album URL",
			url:      "https://open.spotify.com/album/6N9PS4QXF1D0OWPk0Sxtb4",
			expected: false,
		},
		{
			name:     "Invalid - playlist URL",
			url:      "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M",
			expected: false,
		},
		{
			name:     "Invalid - non-Spotify URL",
			url:      "https://example.com/track/123",
			expected: false,
		},
		{
			name:     "Invalid - malformed URL",
			url:      "not-a-valid-url",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := resolver.CanResolve(tt.url)
			if result != tt.expected {
				t.Errorf("CanResolve() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestParseSpotifyTitle(t *testing.T) {
	tests := []struct {
		name           string
		raw            string
		expectedTitle  string
		expectedArtist string
	}{
		{
			name:           "Standard track title",
			raw:            "Never Gonna Give You Up - song by Rick Astley",
			expectedTitle:  "Never Gonna Give You Up",
			expectedArtist: "Rick Astley",
		},
		{
			name:           "Plain title passes through",
			raw:            "Never Gonna Give You Up",
			expectedTitle:  "Never Gonna Give You Up",
			expectedArtist: "",
		},
		{
			name:           "Whitespace trimmed",
			raw:            "  Title  - song by  Artist  ",
			expectedTitle:  "Title",
			expectedArtist: "Artist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, artist := parseSpotifyTitle(tt.raw)
			if title != tt.expectedTitle {
				t.Errorf("parseSpotifyTitle() title = %q, want %q", title, tt.expectedTitle)
			}
			if artist != tt.expectedArtist {
				t.Errorf("parseSpotifyTitle() artist = %q, want %q", artist, tt.expectedArtist)
			}
		})
	}
}
