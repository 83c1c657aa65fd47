package voice

import (
	"fmt"
	"strings"

	"groovebot/internal/player"
)

// bandFrequencies maps equalizer band indexes to center frequencies in Hz,
// lowest first.
var bandFrequencies = []int{25, 40, 63, 100, 160, 250, 400, 630, 1000, 1600, 2500, 4000, 6300, 10000, 16000}

const (
	eqBandWidth = 100 // Hz
	eqGainScale = 20  // linear preset gain to dB
)

// filterChain translates an effect parameter bundle into an ffmpeg -af
// expression. An empty bundle yields an empty chain.
func filterChain(p player.EffectParams) string {
	var filters []string

	for _, band := range p.Equalizer {
		if band.Band < 0 || band.Band >= len(bandFrequencies) {
			continue
		}
		filters = append(filters, fmt.Sprintf("equalizer=f=%d:t=h:w=%d:g=%.1f",
			bandFrequencies[band.Band], eqBandWidth, band.Gain*eqGainScale))
	}

	if t := p.Timescale; t != nil {
		if t.Pitch != 0 && t.Pitch != 1.0 {
			filters = append(filters,
				fmt.Sprintf("asetrate=%d*%.4f", sampleRate, t.Pitch),
				fmt.Sprintf("aresample=%d", sampleRate))
		}
		// asetrate already sped playback up by the pitch factor; atempo
		// covers the remainder.
		tempo := 1.0
		if t.Speed != 0 {
			tempo = t.Speed
		}
		if t.Pitch != 0 {
			tempo /= t.Pitch
		}
		if tempo != 1.0 {
			filters = append(filters, fmt.Sprintf("atempo=%.4f", tempo))
		}
	}

	if r := p.Rotation; r != nil && r.RotationHz > 0 {
		filters = append(filters, fmt.Sprintf("apulsator=hz=%.2f", r.RotationHz))
	}

	if p.Karaoke != nil {
		// Center-channel subtraction removes most lead vocals.
		filters = append(filters, "pan=stereo|c0=c0-c1|c1=c1-c0")
	}

	if o := p.Tremolo; o != nil {
		filters = append(filters, fmt.Sprintf("tremolo=f=%.2f:d=%.2f", o.Frequency, o.Depth))
	}

	if o := p.Vibrato; o != nil {
		filters = append(filters, fmt.Sprintf("vibrato=f=%.2f:d=%.2f", o.Frequency, o.Depth))
	}

	if lp := p.LowPass; lp != nil && lp.Smoothing > 0 {
		filters = append(filters, fmt.Sprintf("lowpass=f=%d", int(20000/lp.Smoothing)))
	}

	return strings.Join(filters, ",")
}
