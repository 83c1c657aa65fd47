package player

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
)

// Mock implementations for testing

type mockResolver struct {
	failing      map[string]error
	resolveCalls []string
}

func (m *mockResolver) Search(_ context.Context, query string, limit int) ([]Track, error) {
	tracks := []Track{
		{Title: "Result for " + query, URL: "https://www.youtube.com/watch?v=search1"},
	}
	if limit < len(tracks) {
		tracks = tracks[:limit]
	}
	return tracks, nil
}

func (m *mockResolver) Resolve(_ context.Context, track Track) (*AudioSource, error) {
	m.resolveCalls = append(m.resolveCalls, track.URL)
	if err, exists := m.failing[track.URL]; exists {
		return nil, err
	}
	return &AudioSource{StreamURL: "stream://" + track.URL, MimeType: "audio/webm"}, nil
}

type mockConn struct {
	connected bool
	playing   bool
	paused    bool
	gain      float64
	stops     int
	played    []string
	onDone    func(error)
	playErr   error
}

func (c *mockConn) Play(src *AudioSource, opts PlayOptions, onDone func(error)) error {
	if c.playErr != nil {
		return c.playErr
	}
	c.playing = true
	c.paused = false
	c.gain = opts.Gain
	c.played = append(c.played, src.StreamURL)
	c.onDone = onDone
	return nil
}

func (c *mockConn) Pause() bool {
	if !c.playing || c.paused {
		return false
	}
	c.paused = true
	return true
}

func (c *mockConn) Resume() bool {
	if !c.paused {
		return false
	}
	c.paused = false
	return true
}

func (c *mockConn) Stop() {
	c.stops++
	c.playing = false
}

func (c *mockConn) SetGain(gain float64) {
	c.gain = gain
}

func (c *mockConn) IsPlaying() bool   { return c.playing && !c.paused }
func (c *mockConn) IsConnected() bool { return c.connected }

func (c *mockConn) Disconnect() error {
	c.connected = false
	return nil
}

// finish simulates the transport reporting the current stream as ended.
func (c *mockConn) finish(err error) {
	if c.onDone != nil {
		c.onDone(err)
	}
}

type mockDialer struct {
	conn      *mockConn
	dials     int
	failFirst int
}

func (d *mockDialer) Dial(_ context.Context, _, _ string) (VoiceConn, error) {
	d.dials++
	if d.dials <= d.failFirst {
		return nil, fmt.Errorf("voice gateway unavailable")
	}
	d.conn.connected = true
	return d.conn, nil
}

type mockNotifier struct {
	nowPlaying    []Track
	queueFinished int
	failed        []Track
	failedErrs    []error
}

func (m *mockNotifier) NowPlaying(_ string, track Track) {
	m.nowPlaying = append(m.nowPlaying, track)
}

func (m *mockNotifier) QueueFinished(_ string) {
	m.queueFinished++
}

func (m *mockNotifier) TrackFailed(_ string, track Track, err error) {
	m.failed = append(m.failed, track)
	m.failedErrs = append(m.failedErrs, err)
}

type sessionFixture struct {
	session  *Session
	resolver *mockResolver
	conn     *mockConn
	dialer   *mockDialer
	notifier *mockNotifier
}

func newSessionFixture(t *testing.T, mutate func(cfg *MusicConfig)) *sessionFixture {
	t.Helper()

	cfg := DefaultConfig().Music
	cfg.ConnectRetryDelay = time.Millisecond
	if mutate != nil {
		mutate(&cfg)
	}

	resolver := &mockResolver{failing: make(map[string]error)}
	conn := &mockConn{}
	dialer := &mockDialer{conn: conn}
	notifier := &mockNotifier{}
	session := NewSession("guild1", &cfg, resolver, dialer, notifier, zap.NewNop())

	return &sessionFixture{
		session:  session,
		resolver: resolver,
		conn:     conn,
		dialer:   dialer,
		notifier: notifier,
	}
}

func (f *sessionFixture) connect(t *testing.T) {
	t.Helper()
	if !f.session.Connect(context.Background(), "voice1") {
		t.Fatal("Connect should succeed")
	}
}

func TestSession_PlaySingleTrack(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.connect(t)

	track := numberedTracks(1)[0]
	if !f.session.Play(context.Background(), track) {
		t.Fatal("Play should succeed")
	}

	if f.session.Status() != StatusPlaying {
		t.Errorf("Status should be playing, got %s", f.session.Status())
	}
	current, ok := f.session.Current()
	if !ok || current.URL != track.URL {
		t.Errorf("Current should be the played track, got %v", current.Title)
	}
	if len(f.notifier.nowPlaying) != 1 {
		t.Errorf("NowPlaying should fire once, got %d", len(f.notifier.nowPlaying))
	}

	// Natural end with an empty queue goes idle.
	f.conn.finish(nil)

	if f.session.Status() != StatusIdle {
		t.Errorf("Status should be idle after queue drained, got %s", f.session.Status())
	}
	if _, ok := f.session.Current(); ok {
		t.Error("Current should be cleared when idle")
	}
	if f.notifier.queueFinished != 1 {
		t.Errorf("QueueFinished should fire once, got %d", f.notifier.queueFinished)
	}
}

func TestSession_AdvancesThroughQueue(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.connect(t)

	tracks := numberedTracks(3)
	f.session.Queue().EnqueueAll(tracks[1:])
	f.session.Play(context.Background(), tracks[0])

	f.conn.finish(nil)
	f.conn.finish(nil)
	f.conn.finish(nil)

	if len(f.conn.played) != 3 {
		t.Fatalf("All 3 tracks should have played, got %d", len(f.conn.played))
	}
	for i, track := range tracks {
		want := "stream://" + track.URL
		if f.conn.played[i] != want {
			t.Errorf("Play %d: expected %s, got %s", i, want, f.conn.played[i])
		}
	}
	if f.session.Status() != StatusIdle {
		t.Errorf("Status should be idle at the end, got %s", f.session.Status())
	}
}

func TestSession_PlayWithoutConnection(t *testing.T) {
	f := newSessionFixture(t, nil)

	if f.session.Play(context.Background(), numberedTracks(1)[0]) {
		t.Error("Play without a voice connection should fail")
	}
	if f.session.Status() != StatusIdle {
		t.Errorf("Status should remain idle, got %s", f.session.Status())
	}
}

func TestSession_SkipsUnresolvableTracks(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.connect(t)

	tracks := numberedTracks(3)
	f.resolver.failing[tracks[0].URL] = errors.New("age restricted")
	f.resolver.failing[tracks[1].URL] = errors.New("region locked")

	f.session.Queue().EnqueueAll(tracks[1:])
	if !f.session.Play(context.Background(), tracks[0]) {
		t.Fatal("Play should land on the third track")
	}

	if len(f.notifier.failed) != 2 {
		t.Errorf("TrackFailed should fire twice, got %d", len(f.notifier.failed))
	}
	current, _ := f.session.Current()
	if current.URL != tracks[2].URL {
		t.Errorf("Third track should be playing, got %s", current.Title)
	}
}

func TestSession_AllTracksUnresolvable(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.connect(t)

	tracks := numberedTracks(2)
	for _, track := range tracks {
		f.resolver.failing[track.URL] = errors.New("unavailable")
	}
	f.session.Queue().Enqueue(tracks[1])

	if f.session.Play(context.Background(), tracks[0]) {
		t.Error("Play should fail when nothing resolves")
	}
	if f.session.Status() != StatusIdle {
		t.Errorf("Status should be idle, got %s", f.session.Status())
	}
	if f.notifier.queueFinished != 1 {
		t.Errorf("QueueFinished should fire once, got %d", f.notifier.queueFinished)
	}
}

func TestSession_TransportErrorAdvances(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.connect(t)

	tracks := numberedTracks(2)
	f.session.Queue().Enqueue(tracks[1])
	f.session.Play(context.Background(), tracks[0])

	f.conn.finish(errors.New("stream reset"))

	if len(f.conn.played) != 2 {
		t.Fatalf("Playback should advance past the broken stream, got %d plays", len(f.conn.played))
	}
	if len(f.notifier.failed) != 1 || f.notifier.failed[0].URL != tracks[0].URL {
		t.Fatalf("Broken track should be reported, got %v", titles(f.notifier.failed))
	}
	if !errors.Is(f.notifier.failedErrs[0], ErrTransport) {
		t.Errorf("Failure should be tagged as transport, got %v", f.notifier.failedErrs[0])
	}
}

func TestSession_LoopTrackNotHonoredOnFailure(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.connect(t)
	f.session.SetLoopTrack()

	tracks := numberedTracks(2)
	f.resolver.failing[tracks[0].URL] = errors.New("unavailable")
	f.session.Queue().Enqueue(tracks[1])

	if !f.session.Play(context.Background(), tracks[0]) {
		t.Fatal("Play should fall through to the queued track")
	}

	// The broken track must be resolved exactly once, not looped.
	attempts := 0
	for _, url := range f.resolver.resolveCalls {
		if url == tracks[0].URL {
			attempts++
		}
	}
	if attempts != 1 {
		t.Errorf("Broken track should be tried once, got %d attempts", attempts)
	}
}

func TestSession_Skip(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.connect(t)

	if f.session.Skip() {
		t.Error("Skip with nothing playing should report false")
	}

	tracks := numberedTracks(2)
	f.session.Queue().Enqueue(tracks[1])
	f.session.Play(context.Background(), tracks[0])

	if !f.session.Skip() {
		t.Fatal("Skip while playing should report true")
	}
	// The transport reports the stopped stream as done; that single
	// callback drives the advance.
	f.conn.finish(errors.New("stopped"))

	current, ok := f.session.Current()
	if !ok || current.URL != tracks[1].URL {
		t.Errorf("Second track should be playing after skip, got %v", current.Title)
	}
}

func TestSession_StaleCompletionIgnored(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.connect(t)

	tracks := numberedTracks(3)
	f.session.Queue().EnqueueAll(tracks[1:])
	f.session.Play(context.Background(), tracks[0])

	staleDone := f.conn.onDone
	f.conn.finish(nil) // advances to track 2

	// A late duplicate callback from the superseded stream must not
	// advance again.
	staleDone(nil)

	current, _ := f.session.Current()
	if current.URL != tracks[1].URL {
		t.Errorf("Stale completion should be ignored, current is %s", current.Title)
	}
	if len(f.conn.played) != 2 {
		t.Errorf("Only 2 handoffs should have happened, got %d", len(f.conn.played))
	}
}

func TestSession_LoopTrack(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.connect(t)

	if mode := f.session.SetLoopTrack(); mode != LoopTrack {
		t.Fatalf("SetLoopTrack should report track mode, got %s", mode)
	}

	track := numberedTracks(1)[0]
	f.session.Play(context.Background(), track)
	f.conn.finish(nil)
	f.conn.finish(nil)

	if len(f.conn.played) != 3 {
		t.Errorf("Track should have replayed twice, got %d handoffs", len(f.conn.played))
	}
	current, _ := f.session.Current()
	if current.URL != track.URL {
		t.Errorf("Same track should still be current, got %s", current.Title)
	}

	// Toggling the same mode off again.
	if mode := f.session.SetLoopTrack(); mode != LoopOff {
		t.Errorf("SetLoopTrack on active mode should disable looping, got %s", mode)
	}
}

func TestSession_LoopQueue(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.connect(t)
	f.session.SetLoopQueue()

	tracks := numberedTracks(2)
	f.session.Queue().Enqueue(tracks[1])
	f.session.Play(context.Background(), tracks[0])

	// Finishing cycles 1 -> 2 -> 1 -> 2.
	f.conn.finish(nil)
	f.conn.finish(nil)
	f.conn.finish(nil)

	want := []string{
		"stream://" + tracks[0].URL,
		"stream://" + tracks[1].URL,
		"stream://" + tracks[0].URL,
		"stream://" + tracks[1].URL,
	}
	if len(f.conn.played) != len(want) {
		t.Fatalf("Expected %d handoffs, got %d", len(want), len(f.conn.played))
	}
	for i, url := range want {
		if f.conn.played[i] != url {
			t.Errorf("Handoff %d: expected %s, got %s", i, url, f.conn.played[i])
		}
	}
}

func TestSession_ToggleLoopCycles(t *testing.T) {
	f := newSessionFixture(t, nil)

	modes := []LoopMode{LoopTrack, LoopQueue, LoopOff}
	for i, want := range modes {
		if got := f.session.ToggleLoop(); got != want {
			t.Errorf("Toggle %d: expected %s, got %s", i, want, got)
		}
	}
}

func TestSession_StopClearsEverything(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.connect(t)

	tracks := numberedTracks(3)
	f.session.Queue().EnqueueAll(tracks[1:])
	f.session.Play(context.Background(), tracks[0])

	f.session.Stop()

	if f.session.Status() != StatusIdle {
		t.Errorf("Status should be idle after stop, got %s", f.session.Status())
	}
	if !f.session.Queue().IsEmpty() {
		t.Error("Queue should be empty after stop")
	}
	if !f.session.IsConnected() {
		t.Error("Stop should keep the voice connection up")
	}

	// The transport's completion for the stopped stream must not restart
	// playback.
	f.conn.finish(errors.New("stopped"))
	if f.session.Status() != StatusIdle {
		t.Error("Completion of a stopped stream should not restart playback")
	}

	// Stop is idempotent.
	f.session.Stop()
}

func TestSession_Disconnect(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.connect(t)
	f.session.Play(context.Background(), numberedTracks(1)[0])

	f.session.Disconnect()

	if f.session.IsConnected() {
		t.Error("Session should be disconnected")
	}
	if f.conn.connected {
		t.Error("Transport connection should be released")
	}
	if f.session.ChannelID() != "" {
		t.Error("Channel binding should be cleared")
	}
}

func TestSession_ConnectRetries(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.dialer.failFirst = 2

	if !f.session.Connect(context.Background(), "voice1") {
		t.Fatal("Connect should succeed on the third attempt")
	}
	if f.dialer.dials != 3 {
		t.Errorf("Expected 3 dial attempts, got %d", f.dialer.dials)
	}
}

func TestSession_ConnectExhaustsRetries(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.dialer.failFirst = 100

	if f.session.Connect(context.Background(), "voice1") {
		t.Fatal("Connect should fail when every attempt fails")
	}
	cfg := DefaultConfig().Music
	if f.dialer.dials != cfg.ConnectRetries {
		t.Errorf("Expected %d dial attempts, got %d", cfg.ConnectRetries, f.dialer.dials)
	}
}

func TestSession_PauseResume(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.connect(t)

	if f.session.Pause() {
		t.Error("Pause with nothing playing should fail")
	}

	f.session.Play(context.Background(), numberedTracks(1)[0])

	if !f.session.Pause() {
		t.Fatal("Pause while playing should succeed")
	}
	if f.session.Status() != StatusPaused {
		t.Errorf("Status should be paused, got %s", f.session.Status())
	}
	if f.session.Pause() {
		t.Error("Pause while paused should fail")
	}

	if !f.session.Resume() {
		t.Fatal("Resume while paused should succeed")
	}
	if f.session.Status() != StatusPlaying {
		t.Errorf("Status should be playing, got %s", f.session.Status())
	}
	if f.session.Resume() {
		t.Error("Resume while playing should fail")
	}
}

func TestSession_ElapsedExcludesPause(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.connect(t)

	if f.session.Elapsed() != 0 {
		t.Error("Elapsed should be 0 with nothing playing")
	}

	f.session.Play(context.Background(), numberedTracks(1)[0])
	f.session.Pause()
	pausedAt := f.session.Elapsed()

	time.Sleep(20 * time.Millisecond)

	if got := f.session.Elapsed(); got > pausedAt+5*time.Millisecond {
		t.Errorf("Elapsed should not grow while paused: %s -> %s", pausedAt, got)
	}
}

func TestSession_Previous(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.connect(t)

	if f.session.Previous(context.Background()) {
		t.Error("Previous with empty history should fail")
	}

	tracks := numberedTracks(2)
	f.session.Queue().Enqueue(tracks[1])
	f.session.Play(context.Background(), tracks[0])
	f.conn.finish(nil) // now on track 2, track 1 in history

	if !f.session.Previous(context.Background()) {
		t.Fatal("Previous should succeed")
	}

	current, _ := f.session.Current()
	if current.URL != tracks[0].URL {
		t.Errorf("First track should be playing again, got %s", current.Title)
	}
	// The interrupted track is parked at the queue head.
	head, ok := f.session.Queue().TrackAt(0)
	if !ok || head.URL != tracks[1].URL {
		t.Errorf("Interrupted track should be at the queue head, got %v", head.Title)
	}
}

func TestSession_HistoryBounded(t *testing.T) {
	f := newSessionFixture(t, func(cfg *MusicConfig) {
		cfg.HistorySize = 3
	})
	f.connect(t)

	tracks := numberedTracks(5)
	f.session.Queue().EnqueueAll(tracks[1:])
	f.session.Play(context.Background(), tracks[0])
	for i := 0; i < 4; i++ {
		f.conn.finish(nil)
	}

	history := f.session.History()
	if len(history) != 3 {
		t.Fatalf("History should be capped at 3, got %d", len(history))
	}
	// Oldest entries are evicted first.
	if history[0].URL != tracks[2].URL || history[2].URL != tracks[4].URL {
		t.Errorf("History holds wrong entries: %v", titles(history))
	}
}

func TestSession_SetVolume(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.connect(t)

	if got := f.session.SetVolume(150); got != 150 {
		t.Errorf("SetVolume(150) should apply 150, got %d", got)
	}
	if got := f.session.SetVolume(9999); got != 500 {
		t.Errorf("SetVolume above max should clamp to 500, got %d", got)
	}
	if got := f.session.SetVolume(-10); got != 0 {
		t.Errorf("SetVolume below min should clamp to 0, got %d", got)
	}

	f.session.SetVolume(200)
	if f.conn.gain != 2.0 {
		t.Errorf("Live gain should be 2.0, got %f", f.conn.gain)
	}

	// New plays pick up the stored volume.
	f.session.Play(context.Background(), numberedTracks(1)[0])
	if f.conn.gain != 2.0 {
		t.Errorf("Handoff gain should be 2.0, got %f", f.conn.gain)
	}
}

func TestSession_IdleDisconnectTimer(t *testing.T) {
	f := newSessionFixture(t, func(cfg *MusicConfig) {
		cfg.StayConnected = false
		cfg.AutoDisconnect = 10 * time.Millisecond
	})
	f.connect(t)

	f.session.Play(context.Background(), numberedTracks(1)[0])
	f.conn.finish(nil)

	deadline := time.Now().Add(time.Second)
	for f.session.IsConnected() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if f.session.IsConnected() {
		t.Error("Session should auto-disconnect after the idle timeout")
	}
}

func TestSession_StayConnectedSuppressesIdleTimer(t *testing.T) {
	f := newSessionFixture(t, func(cfg *MusicConfig) {
		cfg.StayConnected = true
		cfg.AutoDisconnect = 10 * time.Millisecond
	})
	f.connect(t)

	f.session.Play(context.Background(), numberedTracks(1)[0])
	f.conn.finish(nil)

	time.Sleep(50 * time.Millisecond)
	if !f.session.IsConnected() {
		t.Error("24/7 mode should keep the session connected while idle")
	}
}

func TestSession_Favorites(t *testing.T) {
	f := newSessionFixture(t, nil)
	tracks := numberedTracks(2)

	if !f.session.AddFavorite("alice", tracks[0]) {
		t.Fatal("First AddFavorite should succeed")
	}
	if f.session.AddFavorite("alice", tracks[0]) {
		t.Error("Duplicate AddFavorite should fail")
	}
	if !f.session.AddFavorite("alice", tracks[1]) {
		t.Error("Different track should be added")
	}
	if !f.session.AddFavorite("bob", tracks[0]) {
		t.Error("Favorites are per user")
	}

	if got := f.session.Favorites("alice"); len(got) != 2 {
		t.Errorf("Alice should have 2 favorites, got %d", len(got))
	}
	if got := f.session.Favorites("nobody"); len(got) != 0 {
		t.Errorf("Unknown user should have no favorites, got %d", len(got))
	}

	if !f.session.RemoveFavorite("alice", tracks[0]) {
		t.Fatal("RemoveFavorite should succeed")
	}
	if f.session.RemoveFavorite("alice", tracks[0]) {
		t.Error("Removing an absent favorite should fail")
	}
	if got := f.session.Favorites("alice"); len(got) != 1 || got[0].URL != tracks[1].URL {
		t.Errorf("Alice should be left with the second track, got %v", titles(got))
	}
}

func TestSession_PlaysTotal(t *testing.T) {
	f := newSessionFixture(t, nil)
	f.connect(t)

	tracks := numberedTracks(2)
	f.session.Queue().Enqueue(tracks[1])
	f.session.Play(context.Background(), tracks[0])
	f.conn.finish(nil)

	if got := f.session.PlaysTotal(); got != 2 {
		t.Errorf("PlaysTotal should be 2, got %d", got)
	}
}
