package player

import (
	"sync"

	"go.uber.org/zap"
)

// Registry maps guilds to their playback sessions. Sessions are created
// lazily on first use and live until Remove; concurrent lookups for the same
// guild always observe the same session.
type Registry struct {
	cfg      *MusicConfig
	resolver TrackResolver
	dialer   VoiceDialer
	notifier Notifier
	logger   *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry sharing one resolver and dialer
// across all sessions.
func NewRegistry(cfg *MusicConfig, resolver TrackResolver, dialer VoiceDialer,
	notifier Notifier, logger *zap.Logger) *Registry {
	return &Registry{
		cfg:      cfg,
		resolver: resolver,
		dialer:   dialer,
		notifier: notifier,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate returns the guild's session, creating it when absent.
func (r *Registry) GetOrCreate(guildID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[guildID]; ok {
		return s
	}
	s := NewSession(guildID, r.cfg, r.resolver, r.dialer, r.notifier, r.logger)
	r.sessions[guildID] = s
	r.logger.Debug("Created playback session", zap.String("guildID", guildID))
	return s
}

// Get returns the guild's session without creating one.
func (r *Registry) Get(guildID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[guildID]
	return s, ok
}

// Remove disconnects and drops the guild's session.
func (r *Registry) Remove(guildID string) {
	r.mu.Lock()
	s, ok := r.sessions[guildID]
	delete(r.sessions, guildID)
	r.mu.Unlock()

	if ok {
		s.Disconnect()
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// QueuedTotal sums the queue lengths of all sessions.
func (r *Registry) QueuedTotal() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for _, s := range r.sessions {
		total += s.Queue().Len()
	}
	return total
}

// ConnectedCount returns how many sessions hold a live voice connection.
func (r *Registry) ConnectedCount() int {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	connected := 0
	for _, s := range sessions {
		if s.IsConnected() {
			connected++
		}
	}
	return connected
}

// Shutdown disconnects every session. Used on process exit so voice
// connections are not left dangling.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Disconnect()
	}
}
