package player

import (
	"strings"
)

// Effect is a named audio-effect preset. The empty value is EffectNone.
type Effect string

const (
	EffectNone      Effect = "none"
	EffectBassBoost Effect = "bass_boost"
	EffectNightcore Effect = "nightcore"
	EffectVaporwave Effect = "vaporwave"
	EffectEightD    Effect = "8d"
	EffectKaraoke   Effect = "karaoke"
	EffectTremolo   Effect = "tremolo"
	EffectVibrato   Effect = "vibrato"
	EffectSoft      Effect = "soft"
	EffectChipmunk  Effect = "chipmunk"
	EffectDeep      Effect = "deep"
)

// EqualizerBand boosts or cuts one band. Band 0 is the lowest frequency band.
type EqualizerBand struct {
	Band int
	Gain float64
}

// TimescaleParams adjusts playback speed and pitch. 1.0 leaves a dimension
// unchanged.
type TimescaleParams struct {
	Speed float64
	Pitch float64
	Rate  float64
}

// RotationParams pans the audio around the listener.
type RotationParams struct {
	RotationHz float64
}

// KaraokeParams suppresses center-channel vocals.
type KaraokeParams struct {
	Level       float64
	MonoLevel   float64
	FilterBand  float64
	FilterWidth float64
}

// OscillationParams drives tremolo (volume) and vibrato (pitch) wobble.
type OscillationParams struct {
	Frequency float64
	Depth     float64
}

// LowPassParams smooths out high frequencies.
type LowPassParams struct {
	Smoothing float64
}

// EffectParams is the declarative parameter bundle one preset expands to. The
// transport translates it into its filter pipeline atomically before the next
// play; presets are never mutated mid-track.
type EffectParams struct {
	Equalizer []EqualizerBand
	Timescale *TimescaleParams
	Rotation  *RotationParams
	Karaoke   *KaraokeParams
	Tremolo   *OscillationParams
	Vibrato   *OscillationParams
	LowPass   *LowPassParams
}

// IsZero reports whether the bundle changes nothing.
func (p EffectParams) IsZero() bool {
	return len(p.Equalizer) == 0 && p.Timescale == nil && p.Rotation == nil &&
		p.Karaoke == nil && p.Tremolo == nil && p.Vibrato == nil && p.LowPass == nil
}

// Params expands the preset into its parameter bundle. Unknown effects expand
// to the empty bundle.
func (e Effect) Params() EffectParams {
	switch e {
	case EffectBassBoost:
		return EffectParams{
			Equalizer: []EqualizerBand{
				{Band: 0, Gain: 0.25},
				{Band: 1, Gain: 0.20},
				{Band: 2, Gain: 0.15},
				{Band: 3, Gain: 0.10},
			},
		}
	case EffectNightcore:
		return EffectParams{Timescale: &TimescaleParams{Speed: 1.25, Pitch: 1.25, Rate: 1.0}}
	case EffectVaporwave:
		return EffectParams{Timescale: &TimescaleParams{Speed: 0.8, Pitch: 0.85, Rate: 1.0}}
	case EffectEightD:
		return EffectParams{Rotation: &RotationParams{RotationHz: 0.2}}
	case EffectKaraoke:
		return EffectParams{Karaoke: &KaraokeParams{Level: 1.0, MonoLevel: 1.0, FilterBand: 220, FilterWidth: 100}}
	case EffectTremolo:
		return EffectParams{Tremolo: &OscillationParams{Frequency: 4.0, Depth: 0.6}}
	case EffectVibrato:
		return EffectParams{Vibrato: &OscillationParams{Frequency: 4.0, Depth: 0.6}}
	case EffectSoft:
		return EffectParams{LowPass: &LowPassParams{Smoothing: 20.0}}
	case EffectChipmunk:
		return EffectParams{Timescale: &TimescaleParams{Speed: 1.0, Pitch: 1.5, Rate: 1.0}}
	case EffectDeep:
		return EffectParams{Timescale: &TimescaleParams{Speed: 1.0, Pitch: 0.7, Rate: 1.0}}
	default:
		return EffectParams{}
	}
}

// Description is a short human-readable summary for effect listings.
func (e Effect) Description() string {
	switch e {
	case EffectNone:
		return "No effect"
	case EffectBassBoost:
		return "Enhanced bass frequencies"
	case EffectNightcore:
		return "Faster tempo with higher pitch"
	case EffectVaporwave:
		return "Slowed and pitched-down aesthetic"
	case EffectEightD:
		return "Rotating 360° audio"
	case EffectKaraoke:
		return "Suppresses lead vocals"
	case EffectTremolo:
		return "Wavering volume"
	case EffectVibrato:
		return "Wavering pitch"
	case EffectSoft:
		return "Soft and mellow sound"
	case EffectChipmunk:
		return "High-pitched voice"
	case EffectDeep:
		return "Deep voice"
	default:
		return ""
	}
}

// Effects lists every known preset, EffectNone first.
func Effects() []Effect {
	return []Effect{
		EffectNone,
		EffectBassBoost,
		EffectNightcore,
		EffectVaporwave,
		EffectEightD,
		EffectKaraoke,
		EffectTremolo,
		EffectVibrato,
		EffectSoft,
		EffectChipmunk,
		EffectDeep,
	}
}

// ParseEffect resolves a user-supplied effect name, tolerating common aliases.
func ParseEffect(name string) (Effect, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "none", "off", "reset":
		return EffectNone, true
	case "bass_boost", "bassboost", "bass", "bb":
		return EffectBassBoost, true
	case "nightcore", "nc":
		return EffectNightcore, true
	case "vaporwave", "vapor":
		return EffectVaporwave, true
	case "8d":
		return EffectEightD, true
	case "karaoke":
		return EffectKaraoke, true
	case "tremolo":
		return EffectTremolo, true
	case "vibrato":
		return EffectVibrato, true
	case "soft", "lowpass":
		return EffectSoft, true
	case "chipmunk":
		return EffectChipmunk, true
	case "deep":
		return EffectDeep, true
	}
	return EffectNone, false
}
