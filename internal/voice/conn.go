// Package voice streams resolved audio into Discord voice channels. It
// decodes sources with ffmpeg, applies gain and effect filters, and encodes
// the PCM frames to Opus for the Discord gateway.
package voice

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os/exec"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"layeh.com/gopus"

	"groovebot/internal/player"
)

const (
	channels   = 2
	sampleRate = 48000
	frameSize  = 960 // 20ms at 48kHz
)

// Conn is one live voice connection. It implements player.VoiceConn: Play
// hands off a source and returns, the stream loop runs on its own goroutine
// and reports completion through the onDone callback exactly once.
type Conn struct {
	vc     *discordgo.VoiceConnection
	logger *zap.Logger

	mu      sync.Mutex
	current *stream
	gain    float64
}

// stream is one ffmpeg-backed playback. Stopping only signals; the loop
// goroutine owns process teardown and the completion callback.
type stream struct {
	cmd      *exec.Cmd
	stdout   io.ReadCloser
	stop     chan struct{}
	stopOnce sync.Once
	doneOnce sync.Once

	mu     sync.Mutex
	paused bool
}

func newConn(vc *discordgo.VoiceConnection, logger *zap.Logger) *Conn {
	return &Conn{vc: vc, logger: logger, gain: 1.0}
}

// Play starts streaming the source. Any previous stream is signalled to stop
// first; its completion callback still fires from its own goroutine.
func (c *Conn) Play(src *player.AudioSource, opts player.PlayOptions, onDone func(error)) error {
	args := []string{
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
		"-i", src.StreamURL,
	}
	if chain := filterChain(opts.Effect.Params()); chain != "" {
		args = append(args, "-af", chain)
	}
	args = append(args,
		"-f", "s16le",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-ac", fmt.Sprintf("%d", channels),
		"-loglevel", "warning",
		"pipe:1",
	)

	cmd := exec.Command("ffmpeg", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	st := &stream{
		cmd:    cmd,
		stdout: stdout,
		stop:   make(chan struct{}),
	}

	c.mu.Lock()
	prev := c.current
	c.current = st
	c.gain = opts.Gain
	c.mu.Unlock()

	if prev != nil {
		prev.signalStop()
	}

	go c.run(st, onDone)
	return nil
}

// run is the stream loop: read PCM from ffmpeg, scale by the live gain,
// encode to Opus and push frames to the gateway.
func (c *Conn) run(st *stream, onDone func(error)) {
	finish := func(err error) {
		st.signalStop()
		_ = st.stdout.Close()
		if st.cmd.Process != nil {
			_ = st.cmd.Process.Kill()
		}
		_ = st.cmd.Wait()

		c.mu.Lock()
		if c.current == st {
			c.current = nil
		}
		c.mu.Unlock()

		if sErr := c.vc.Speaking(false); sErr != nil {
			c.logger.Debug("Failed to clear speaking state", zap.Error(sErr))
		}

		st.doneOnce.Do(func() { onDone(err) })
	}

	if err := c.vc.Speaking(true); err != nil {
		finish(fmt.Errorf("set speaking state: %w", err))
		return
	}

	encoder, err := gopus.NewEncoder(sampleRate, channels, gopus.Audio)
	if err != nil {
		finish(fmt.Errorf("create opus encoder: %w", err))
		return
	}

	pcmBuf := make([]byte, frameSize*channels*2)
	intBuf := make([]int16, frameSize*channels)

	for {
		select {
		case <-st.stop:
			finish(nil)
			return
		default:
		}

		if st.isPaused() {
			select {
			case <-st.stop:
				finish(nil)
				return
			case <-time.After(20 * time.Millisecond):
			}
			continue
		}

		if _, err := io.ReadFull(st.stdout, pcmBuf); err != nil {
			// EOF is the natural end of the track; a short final frame
			// counts the same.
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				finish(nil)
			} else {
				finish(fmt.Errorf("read pcm: %w", err))
			}
			return
		}

		gain := c.Gain()
		for i := range intBuf {
			sample := int16(binary.LittleEndian.Uint16(pcmBuf[i*2 : i*2+2]))
			intBuf[i] = scaleSample(sample, gain)
		}

		opus, err := encoder.Encode(intBuf, frameSize, len(pcmBuf))
		if err != nil {
			finish(fmt.Errorf("encode opus: %w", err))
			return
		}

		select {
		case c.vc.OpusSend <- opus:
		case <-st.stop:
			finish(nil)
			return
		}
	}
}

// Pause suspends the stream loop without touching ffmpeg; its pipe simply
// backpressures.
func (c *Conn) Pause() bool {
	c.mu.Lock()
	st := c.current
	c.mu.Unlock()

	if st == nil {
		return false
	}
	return st.setPaused(true)
}

// Resume continues a paused stream.
func (c *Conn) Resume() bool {
	c.mu.Lock()
	st := c.current
	c.mu.Unlock()

	if st == nil {
		return false
	}
	return st.setPaused(false)
}

// Stop signals the active stream to end. It never waits for the loop, so it
// is safe to call from any goroutine, including completion callbacks.
func (c *Conn) Stop() {
	c.mu.Lock()
	st := c.current
	c.mu.Unlock()

	if st != nil {
		st.signalStop()
	}
}

// SetGain changes the live volume multiplier. Takes effect on the next frame.
func (c *Conn) SetGain(gain float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gain < 0 {
		gain = 0
	}
	c.gain = gain
}

// Gain returns the live volume multiplier.
func (c *Conn) Gain() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gain
}

// IsPlaying reports whether a stream is active and not paused.
func (c *Conn) IsPlaying() bool {
	c.mu.Lock()
	st := c.current
	c.mu.Unlock()

	return st != nil && !st.isPaused()
}

// IsConnected reports whether the underlying gateway connection is ready.
func (c *Conn) IsConnected() bool {
	if c.vc == nil {
		return false
	}
	c.vc.RLock()
	defer c.vc.RUnlock()
	return c.vc.Ready
}

// Disconnect stops any stream and leaves the voice channel.
func (c *Conn) Disconnect() error {
	c.Stop()
	return c.vc.Disconnect()
}

func (st *stream) signalStop() {
	st.stopOnce.Do(func() { close(st.stop) })
}

func (st *stream) setPaused(paused bool) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.paused == paused {
		return false
	}
	st.paused = paused
	return true
}

func (st *stream) isPaused() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.paused
}

// scaleSample applies the gain with saturation so overdriven volume clips
// instead of wrapping around.
func scaleSample(sample int16, gain float64) int16 {
	if gain == 1.0 {
		return sample
	}
	scaled := float64(sample) * gain
	if scaled > math.MaxInt16 {
		return math.MaxInt16
	}
	if scaled < math.MinInt16 {
		return math.MinInt16
	}
	return int16(scaled)
}
