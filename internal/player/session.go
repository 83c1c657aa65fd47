package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status is the playback state of a session. Voice connectivity is tracked
// separately: a session can be connected and idle at the same time.
type Status int

const (
	StatusIdle Status = iota
	StatusPlaying
	StatusPaused
)

func (s Status) String() string {
	switch s {
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	default:
		return "idle"
	}
}

// LoopMode controls what happens when a track finishes naturally.
type LoopMode int

const (
	LoopOff LoopMode = iota
	LoopTrack
	LoopQueue
)

func (m LoopMode) String() string {
	switch m {
	case LoopTrack:
		return "track"
	case LoopQueue:
		return "queue"
	default:
		return "off"
	}
}

// Session is the per-guild playback state machine. It owns the queue, the
// voice connection, loop/volume/effect settings, history and favorites, and
// is the only component allowed to drive the voice transport.
//
// A single mutex serializes playback transitions (play, advance, skip, stop,
// disconnect). The transport's completion callback re-enters through
// onTrackDone, which takes the same mutex, so a user-initiated skip and a
// natural track end can never both advance. Each successful handoff bumps a
// playback generation; completion callbacks carrying a stale generation are
// ignored, which guarantees exactly one next-track decision per completed
// track.
type Session struct {
	guildID  string
	cfg      *MusicConfig
	resolver TrackResolver
	dialer   VoiceDialer
	notifier Notifier
	logger   *zap.Logger

	queue *Queue

	mu            sync.Mutex
	status        Status
	conn          VoiceConn
	channelID     string
	current       *Track
	loopMode      LoopMode
	volume        int
	effect        Effect
	stayConnected bool
	playGen       uint64

	history   []Track
	favorites map[string][]Track
	plays     int

	startedAt   time.Time
	pausedTotal time.Duration
	pauseStart  time.Time

	idleTimer *time.Timer
}

// NewSession creates a session for one guild. A nil notifier is replaced with
// a no-op.
func NewSession(guildID string, cfg *MusicConfig, resolver TrackResolver,
	dialer VoiceDialer, notifier Notifier, logger *zap.Logger) *Session {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Session{
		guildID:       guildID,
		cfg:           cfg,
		resolver:      resolver,
		dialer:        dialer,
		notifier:      notifier,
		logger:        logger.With(zap.String("guildID", guildID)),
		queue:         NewQueue(),
		volume:        cfg.DefaultVolume,
		effect:        EffectNone,
		stayConnected: cfg.StayConnected,
		favorites:     make(map[string][]Track),
	}
}

// GuildID returns the owning guild.
func (s *Session) GuildID() string { return s.guildID }

// Queue exposes the session's queue. The queue is internally synchronized, so
// queue mutations never contend with playback transitions.
func (s *Session) Queue() *Queue { return s.queue }

// Connect joins the requested voice channel, retrying a bounded number of
// times on transient failures. Failing to join is a routine outcome and is
// reported as false, never as a panic or error value.
func (s *Session) Connect(ctx context.Context, channelID string) bool {
	s.mu.Lock()
	if s.conn != nil && s.conn.IsConnected() && s.channelID == channelID {
		s.mu.Unlock()
		return true
	}
	// Clean up any stale prior connection so the transport does not consider
	// us already connected elsewhere.
	stale := s.conn
	s.conn = nil
	s.channelID = ""
	s.mu.Unlock()

	if stale != nil {
		if err := stale.Disconnect(); err != nil {
			s.logger.Warn("Failed to drop stale voice connection", zap.Error(err))
		}
	}

	for attempt := 1; attempt <= s.cfg.ConnectRetries; attempt++ {
		conn, err := s.dialer.Dial(ctx, s.guildID, channelID)
		if err == nil && conn != nil && conn.IsConnected() {
			s.mu.Lock()
			s.conn = conn
			s.channelID = channelID
			s.cancelIdleTimerLocked()
			s.mu.Unlock()

			s.logger.Info("Connected to voice channel",
				zap.String("channelID", channelID),
				zap.Int("attempt", attempt))
			return true
		}

		s.logger.Warn("Voice connect attempt failed",
			zap.String("channelID", channelID),
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", s.cfg.ConnectRetries),
			zap.Error(err))

		if conn != nil {
			if dErr := conn.Disconnect(); dErr != nil {
				s.logger.Debug("Cleanup of half-open connection failed", zap.Error(dErr))
			}
		}
		if attempt < s.cfg.ConnectRetries {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(s.cfg.ConnectRetryDelay):
			}
		}
	}

	s.logger.Error("Failed to connect to voice channel",
		zap.String("channelID", channelID),
		zap.Int("attempts", s.cfg.ConnectRetries))
	return false
}

// IsConnected reports whether the session holds a live voice connection.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil && s.conn.IsConnected()
}

// ChannelID returns the connected voice channel, if any.
func (s *Session) ChannelID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channelID
}

// Play starts audio for the given track. It is the single entry point for
// both user-issued plays and internal track advances. Resolution happens
// outside the session lock; an unresolvable track is skipped automatically
// and playback moves on to the next queued track rather than stalling.
func (s *Session) Play(ctx context.Context, track Track) bool {
	for {
		if !s.IsConnected() {
			s.logger.Warn("Play requested without a voice connection",
				zap.String("title", track.Title))
			return false
		}

		src, err := s.resolver.Resolve(ctx, track)
		if err != nil {
			s.logger.Warn("Track resolution failed, skipping",
				zap.String("title", track.Title),
				zap.String("url", track.URL),
				zap.Error(err))
			s.notifier.TrackFailed(s.guildID, track, err)

			// Loop modes are deliberately not honored here: looping an
			// unplayable track would spin forever.
			next, ok := s.queue.DequeueFront()
			if !ok {
				s.mu.Lock()
				s.current = nil
				s.status = StatusIdle
				s.resetElapsedLocked()
				s.startIdleTimerLocked()
				s.mu.Unlock()
				s.notifier.QueueFinished(s.guildID)
				return false
			}
			track = next
			continue
		}

		return s.handoff(track, src)
	}
}

// handoff is the short critical section covering stop-old, start-new and the
// state update.
func (s *Session) handoff(track Track, src *AudioSource) bool {
	s.mu.Lock()
	conn := s.conn
	if conn == nil || !conn.IsConnected() {
		s.current = nil
		s.status = StatusIdle
		s.mu.Unlock()
		return false
	}

	s.playGen++
	gen := s.playGen
	conn.Stop() // idempotent; the superseded completion callback is now stale

	opts := PlayOptions{
		Gain:   float64(s.volume) / 100.0,
		Effect: s.effect,
	}
	if err := conn.Play(src, opts, func(playErr error) {
		s.onTrackDone(gen, playErr)
	}); err != nil {
		s.current = nil
		s.status = StatusIdle
		s.resetElapsedLocked()
		s.mu.Unlock()
		s.logger.Error("Voice transport rejected audio handoff",
			zap.String("title", track.Title),
			zap.Error(err))
		return false
	}

	t := track
	s.current = &t
	s.status = StatusPlaying
	s.startedAt = time.Now()
	s.pausedTotal = 0
	s.pauseStart = time.Time{}
	s.appendHistoryLocked(track)
	s.plays++
	s.cancelIdleTimerLocked()
	s.mu.Unlock()

	s.logger.Info("Now playing",
		zap.String("title", track.Title),
		zap.String("url", track.URL),
		zap.Duration("duration", track.Duration))
	s.notifier.NowPlaying(s.guildID, track)
	return true
}

// onTrackDone is the transport's sole asynchronous re-entry point. It runs on
// the transport's callback goroutine and re-serializes through the session
// mutex before deciding anything.
func (s *Session) onTrackDone(gen uint64, playErr error) {
	s.mu.Lock()
	if gen != s.playGen {
		s.mu.Unlock()
		return
	}
	var broken *Track
	if playErr != nil {
		// Distinct from a natural end so operators can tell "song ended"
		// from "song broke". Forward progress is the same either way.
		s.logger.Error("Playback ended with transport error", zap.Error(playErr))
		if s.current != nil {
			t := *s.current
			broken = &t
		}
	}
	s.mu.Unlock()

	if broken != nil {
		s.notifier.TrackFailed(s.guildID, *broken, fmt.Errorf("%w: %v", ErrTransport, playErr))
	}

	s.advance(context.Background())
}

// advance decides what plays next, implementing loop semantics.
func (s *Session) advance(ctx context.Context) {
	s.mu.Lock()
	var next Track
	ok := false
	switch {
	case s.loopMode == LoopTrack && s.current != nil:
		// Replay the same track; the old audio handle has expired, so Play
		// re-resolves it.
		next, ok = *s.current, true
	case s.loopMode == LoopQueue && s.current != nil:
		s.queue.Enqueue(*s.current)
		next, ok = s.queue.DequeueFront()
	default:
		next, ok = s.queue.DequeueFront()
	}

	if !ok {
		s.current = nil
		s.status = StatusIdle
		s.resetElapsedLocked()
		s.startIdleTimerLocked()
		s.mu.Unlock()

		s.logger.Info("Queue finished")
		s.notifier.QueueFinished(s.guildID)
		return
	}
	s.mu.Unlock()

	s.Play(ctx, next)
}

// Skip stops the current track; the transport's completion callback then
// drives the normal advance. Returns false when nothing is playing.
func (s *Session) Skip() bool {
	s.mu.Lock()
	if s.status != StatusPlaying && s.status != StatusPaused {
		s.mu.Unlock()
		return false
	}
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return false
	}
	conn.Stop()
	return true
}

// Previous replays the most recent history entry, re-inserting the current
// track at the queue head so it is not lost. Returns false when the history
// is empty.
func (s *Session) Previous(ctx context.Context) bool {
	s.mu.Lock()
	if len(s.history) == 0 {
		s.mu.Unlock()
		return false
	}
	track := s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]
	if s.current != nil {
		s.queue.EnqueueFront(*s.current)
	}
	s.mu.Unlock()

	return s.Play(ctx, track)
}

// Pause suspends playback. Legal only while playing.
func (s *Session) Pause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusPlaying || s.conn == nil {
		return false
	}
	if !s.conn.Pause() {
		return false
	}
	s.status = StatusPaused
	s.pauseStart = time.Now()
	return true
}

// Resume continues playback. Legal only while paused.
func (s *Session) Resume() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusPaused || s.conn == nil {
		return false
	}
	if !s.conn.Resume() {
		return false
	}
	s.status = StatusPlaying
	if !s.pauseStart.IsZero() {
		s.pausedTotal += time.Since(s.pauseStart)
		s.pauseStart = time.Time{}
	}
	return true
}

// Stop halts playback and clears the queue. The voice connection stays up.
// Stop is idempotent.
func (s *Session) Stop() {
	s.mu.Lock()
	s.playGen++ // suppress the in-flight completion callback
	conn := s.conn
	s.queue.Clear()
	s.current = nil
	s.status = StatusIdle
	s.resetElapsedLocked()
	s.mu.Unlock()

	if conn != nil {
		conn.Stop()
	}
}

// Disconnect stops playback and releases the voice connection. Cleanup is
// best effort: a failing transport disconnect is logged, never propagated.
func (s *Session) Disconnect() {
	s.Stop()

	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.channelID = ""
	s.cancelIdleTimerLocked()
	s.mu.Unlock()

	if conn != nil {
		if err := conn.Disconnect(); err != nil {
			s.logger.Warn("Voice disconnect failed", zap.Error(err))
		}
	}
	s.logger.Info("Disconnected from voice")
}

// SetVolume clamps the requested level to the configured range, applies it to
// the live stream when one is active, and returns the level that took effect.
func (s *Session) SetVolume(level int) int {
	s.mu.Lock()
	if level < s.cfg.MinVolume {
		level = s.cfg.MinVolume
	}
	if level > s.cfg.MaxVolume {
		level = s.cfg.MaxVolume
	}
	s.volume = level
	conn := s.conn
	s.mu.Unlock()

	if conn != nil {
		conn.SetGain(float64(level) / 100.0)
	}
	return level
}

// Volume returns the current volume level in percent.
func (s *Session) Volume() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// ToggleLoop cycles off → track → queue → off and returns the new mode.
func (s *Session) ToggleLoop() LoopMode {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.loopMode {
	case LoopOff:
		s.loopMode = LoopTrack
	case LoopTrack:
		s.loopMode = LoopQueue
	default:
		s.loopMode = LoopOff
	}
	return s.loopMode
}

// SetLoopTrack enables track looping, or disables looping when it is already
// the active mode.
func (s *Session) SetLoopTrack() LoopMode {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loopMode == LoopTrack {
		s.loopMode = LoopOff
	} else {
		s.loopMode = LoopTrack
	}
	return s.loopMode
}

// SetLoopQueue enables queue looping, or disables looping when it is already
// the active mode.
func (s *Session) SetLoopQueue() LoopMode {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loopMode == LoopQueue {
		s.loopMode = LoopOff
	} else {
		s.loopMode = LoopQueue
	}
	return s.loopMode
}

// Loop returns the active loop mode.
func (s *Session) Loop() LoopMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loopMode
}

// SetEffect stores the effect preset applied on the next play.
func (s *Session) SetEffect(effect Effect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.effect = effect
}

// Effect returns the active effect preset.
func (s *Session) Effect() Effect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.effect
}

// SetStayConnected overrides the 24/7 mode for this guild.
func (s *Session) SetStayConnected(stay bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stayConnected = stay
	if stay {
		s.cancelIdleTimerLocked()
	}
}

// StayConnected reports whether the session stays in voice while idle.
func (s *Session) StayConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stayConnected
}

// Current returns the currently playing (or paused) track.
func (s *Session) Current() (Track, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Track{}, false
	}
	return *s.current, true
}

// Status returns the playback status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// History returns a copy of the recently played tracks, oldest first.
func (s *Session) History() []Track {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Track, len(s.history))
	copy(out, s.history)
	return out
}

// PlaysTotal returns how many tracks this session has started.
func (s *Session) PlaysTotal() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plays
}

// Elapsed returns how far into the current track playback is, excluding time
// spent paused.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.startedAt.IsZero() {
		return 0
	}
	elapsed := time.Since(s.startedAt) - s.pausedTotal
	if s.status == StatusPaused && !s.pauseStart.IsZero() {
		elapsed -= time.Since(s.pauseStart)
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed
}

// AddFavorite stores a track in the user's favorites. Returns false when the
// same source is already favorited.
func (s *Session) AddFavorite(userID string, track Track) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, fav := range s.favorites[userID] {
		if fav.SameSource(track) {
			return false
		}
	}
	s.favorites[userID] = append(s.favorites[userID], track)
	return true
}

// RemoveFavorite drops a track from the user's favorites by source identity.
func (s *Session) RemoveFavorite(userID string, track Track) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	favs := s.favorites[userID]
	for i, fav := range favs {
		if fav.SameSource(track) {
			s.favorites[userID] = append(favs[:i], favs[i+1:]...)
			return true
		}
	}
	return false
}

// Favorites returns a copy of the user's favorites, empty if none.
func (s *Session) Favorites(userID string) []Track {
	s.mu.Lock()
	defer s.mu.Unlock()

	favs := s.favorites[userID]
	out := make([]Track, len(favs))
	copy(out, favs)
	return out
}

func (s *Session) appendHistoryLocked(track Track) {
	s.history = append(s.history, track)
	if s.cfg.HistorySize > 0 && len(s.history) > s.cfg.HistorySize {
		s.history = s.history[len(s.history)-s.cfg.HistorySize:]
	}
}

func (s *Session) resetElapsedLocked() {
	s.startedAt = time.Time{}
	s.pausedTotal = 0
	s.pauseStart = time.Time{}
}

// startIdleTimerLocked arms the inactivity disconnect unless 24/7 mode keeps
// the session in voice.
func (s *Session) startIdleTimerLocked() {
	if s.stayConnected || s.cfg.AutoDisconnect <= 0 {
		return
	}
	s.cancelIdleTimerLocked()
	s.idleTimer = time.AfterFunc(s.cfg.AutoDisconnect, func() {
		s.mu.Lock()
		idle := s.status == StatusIdle
		s.mu.Unlock()
		if idle {
			s.logger.Info("Idle timeout reached, leaving voice")
			s.Disconnect()
		}
	})
}

func (s *Session) cancelIdleTimerLocked() {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
}
