// Package player implements the per-guild playback engine: tracks, queues,
// playback sessions and the process-wide session registry.
package player

import (
	"fmt"
	"time"
)

// Track describes one playable item. Tracks are value objects; two tracks are
// considered the same iff their source URLs match.
type Track struct {
	Title     string
	URL       string        // source locator, identity for dedupe
	Duration  time.Duration // 0 means live/unbounded
	Thumbnail string
	Artist    string

	RequesterID   string
	RequesterName string
}

// SameSource reports whether both tracks point at the same source.
func (t Track) SameSource(other Track) bool {
	return t.URL == other.URL
}

// IsLive reports whether the track has no known duration.
func (t Track) IsLive() bool {
	return t.Duration == 0
}

// DurationString renders the duration as m:ss or h:mm:ss, or "Live" when
// unbounded.
func (t Track) DurationString() string {
	if t.IsLive() {
		return "Live"
	}
	return FormatDuration(t.Duration)
}

// FormatDuration renders a duration as m:ss or h:mm:ss.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// AudioSource is a resolved, streamable audio handle for a single playback
// attempt. Stream URLs expire, so a source must not be reused across plays.
type AudioSource struct {
	StreamURL string
	MimeType  string
	Bitrate   int // kbps, 0 if unknown
}
