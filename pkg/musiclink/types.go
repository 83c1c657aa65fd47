// Package musiclink resolves links from foreign music providers into track
// information that can be fed to a YouTube search.
package musiclink

import (
	"context"
	"strings"
)

// TrackInfo holds extracted track information from a music provider.
type TrackInfo struct {
	Title  string // Track title.
	Artist string // Artist name(s).
	ISRC   string // International Standard Recording Code (if available).
}

// SearchQuery renders the track info as a search query string.
func (t TrackInfo) SearchQuery() string {
	return strings.TrimSpace(strings.TrimSpace(t.Artist) + " " + strings.TrimSpace(t.Title))
}

// Resolver defines the interface for resolving music links from various providers to track information.
type Resolver interface {
	// Resolve extracts track information from a music provider URL.
	Resolve(ctx context.Context, url string) (*TrackInfo, error)

	// CanResolve checks if this resolver can handle the given URL.
	CanResolve(url string) bool
}
