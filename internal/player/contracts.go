package player

import (
	"context"
	"errors"
)

// ErrTransport marks a playback stream that broke mid-track, as opposed to a
// track that could not be resolved in the first place.
var ErrTransport = errors.New("transport error")

// TrackResolver turns user queries into tracks and tracks into streamable
// audio. Implementations perform their own bounded retries and timeouts; a
// returned error means the track is unplayable right now.
type TrackResolver interface {
	// Search returns up to limit tracks for the query, best match first.
	// An empty result is "no results", not an error.
	Search(ctx context.Context, query string, limit int) ([]Track, error)

	// Resolve produces a one-shot streamable audio source for the track.
	Resolve(ctx context.Context, track Track) (*AudioSource, error)
}

// PlayOptions carries the per-play parameters the session hands to the
// transport together with the audio source.
type PlayOptions struct {
	Gain   float64 // 1.0 = unity
	Effect Effect
}

// VoiceConn is the capability object for one live voice connection. It is
// exclusively owned by its session; no other component calls it directly.
//
// Play hands off an audio source and returns immediately; onDone is invoked
// exactly once when the stream ends, is stopped, or breaks. Stop only signals
// and never waits for onDone, so it is safe to call with the session lock
// held.
type VoiceConn interface {
	Play(src *AudioSource, opts PlayOptions, onDone func(error)) error
	Pause() bool
	Resume() bool
	Stop()
	SetGain(gain float64)
	IsPlaying() bool
	IsConnected() bool
	Disconnect() error
}

// VoiceDialer joins voice channels. A single Dial is one attempt; the session
// owns the retry policy.
type VoiceDialer interface {
	Dial(ctx context.Context, guildID, channelID string) (VoiceConn, error)
}

// Notifier receives session events for the presentation layer. Events are
// delivered outside the session's internal lock, so handlers may query the
// session while handling them.
type Notifier interface {
	NowPlaying(guildID string, track Track)
	QueueFinished(guildID string)
	TrackFailed(guildID string, track Track, err error)
}

type nopNotifier struct{}

func (nopNotifier) NowPlaying(string, Track)         {}
func (nopNotifier) QueueFinished(string)             {}
func (nopNotifier) TrackFailed(string, Track, error) {}
