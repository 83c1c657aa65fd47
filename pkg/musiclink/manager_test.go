package musiclink

import (
	"context"
	"strings"
	"testing"
)

func TestManager_CanResolve(t *testing.T) {
	t.Helper()

	manager := NewManager()

	tests := []struct {
		name     string
		url      string
		expected bool
	}{
		{
			name:     "Spotify track URL",
			url:      "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC",
			expected: true,
		},
		{
			name:     "Apple Music URL",
			url:      "https://music.apple.com/us/album/test/123?i=456",
			expected: true,
		},
		{
			name:     "SoundCloud URL",
			url:      "https://soundcloud.com/artist/track-name",
			expected: true,
		},
		{
			name:     "YouTube URL is not a foreign provider",
			url:      "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			expected: false,
		},
		{
			name:     "Unrelated URL",
			url:      "https://example.com/page",
			expected: false,
		},
		{
			name:     "Malformed URL",
			url:      "not-a-valid-url",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := manager.CanResolve(tt.url)
			if result != tt.expected {
				t.Errorf("CanResolve() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestManager_Resolve_NoResolver(t *testing.T) {
	manager := NewManager()

	_, err := manager.Resolve(context.Background(), "https://example.com/page")
	if err == nil {
		t.Fatal("Resolve() should fail for an unsupported URL")
	}
	if !strings.Contains(err.Error(), "no resolver found") {
		t.Errorf("Resolve() error = %v, expected no-resolver error", err)
	}
}

func TestTrackInfo_SearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		info     TrackInfo
		expected string
	}{
		{
			name:     "Title and artist",
			info:     TrackInfo{Title: "Never Gonna Give You Up", Artist: "Rick Astley"},
			expected: "Rick Astley Never Gonna Give You Up",
		},
		{
			name:     "Title only",
			info:     TrackInfo{Title: "Never Gonna Give You Up"},
			expected: "Never Gonna Give You Up",
		},
		{
			name:     "Whitespace trimmed",
			info:     TrackInfo{Title: "  Title  ", Artist: "  Artist  "},
			expected: "Artist Title",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.SearchQuery(); got != tt.expected {
				t.Errorf("SearchQuery() = %q, want %q", got, tt.expected)
			}
		})
	}
}
