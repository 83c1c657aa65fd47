package musiclink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	// SpotifyOEmbedURL is the Spotify oEmbed API endpoint. It serves public
	// track metadata without authentication.
	SpotifyOEmbedURL = "https://open.spotify.com/oembed"
	// spotifyExpectedSplitParts is the expected number of parts when
	// splitting an oEmbed title on the artist separator.
	spotifyExpectedSplitParts = 2
)

// SpotifyOEmbedResponse represents the response from Spotify's oEmbed API.
type SpotifyOEmbedResponse struct {
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// SpotifyResolver resolves Spotify track links to track information.
type SpotifyResolver struct {
	client *http.Client
}

// NewSpotifyResolver creates a new Spotify link resolver.
func NewSpotifyResolver() *SpotifyResolver {
	return &SpotifyResolver{
		client: newHTTPClient(),
	}
}

// CanResolve checks if the URL is a Spotify track link. Album and playlist
// links are not supported.
func (r *SpotifyResolver) CanResolve(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	hostname := strings.ToLower(u.Hostname())
	if hostname != "open.spotify.com" && hostname != "spotify.com" && hostname != "www.spotify.com" {
		return false
	}

	return strings.Contains(u.Path, "/track/")
}

// Resolve extracts track information from a Spotify URL using the oEmbed API.
func (r *SpotifyResolver) Resolve(ctx context.Context, rawURL string) (*TrackInfo, error) {
	if !r.CanResolve(rawURL) {
		return nil, errors.New("not a Spotify track URL")
	}

	var oembedResp SpotifyOEmbedResponse
	if err := fetchOEmbedJSON(ctx, r.client, SpotifyOEmbedURL, rawURL, &oembedResp); err != nil {
		return nil, fmt.Errorf("failed to fetch oEmbed data: %w", err)
	}

	title, artist := parseSpotifyTitle(oembedResp.Title)
	if title == "" {
		return nil, errors.New("empty title in oEmbed response")
	}

	return &TrackInfo{
		Title:  title,
		Artist: artist,
	}, nil
}

// parseSpotifyTitle splits an oEmbed title into track and artist. Spotify
// uses "Track Title - song by Artist" wording for tracks; plain titles pass
// through unchanged.
func parseSpotifyTitle(raw string) (title, artist string) {
	if strings.Contains(raw, " - song by ") {
		parts := strings.SplitN(raw, " - song by ", spotifyExpectedSplitParts)
		if len(parts) == spotifyExpectedSplitParts {
			return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		}
	}

	return strings.TrimSpace(raw), ""
}
