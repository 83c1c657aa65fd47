package voice

import (
	"strings"
	"testing"

	"groovebot/internal/player"
)

func TestFilterChain_Empty(t *testing.T) {
	if got := filterChain(player.EffectParams{}); got != "" {
		t.Errorf("Empty bundle should yield empty chain, got %q", got)
	}
	if got := filterChain(player.EffectNone.Params()); got != "" {
		t.Errorf("No-effect preset should yield empty chain, got %q", got)
	}
}

func TestFilterChain_Presets(t *testing.T) {
	cases := []struct {
		effect player.Effect
		want   []string
	}{
		{player.EffectBassBoost, []string{"equalizer=f=25", "equalizer=f=100"}},
		{player.EffectNightcore, []string{"asetrate=48000*1.2500", "aresample=48000"}},
		{player.EffectVaporwave, []string{"asetrate=48000*0.8500", "atempo=0.9412"}},
		{player.EffectEightD, []string{"apulsator=hz=0.20"}},
		{player.EffectKaraoke, []string{"pan=stereo|c0=c0-c1|c1=c1-c0"}},
		{player.EffectTremolo, []string{"tremolo=f=4.00:d=0.60"}},
		{player.EffectVibrato, []string{"vibrato=f=4.00:d=0.60"}},
		{player.EffectSoft, []string{"lowpass=f=1000"}},
		{player.EffectChipmunk, []string{"asetrate=48000*1.5000", "atempo=0.6667"}},
		{player.EffectDeep, []string{"asetrate=48000*0.7000", "atempo=1.4286"}},
	}

	for _, tc := range cases {
		got := filterChain(tc.effect.Params())
		for _, fragment := range tc.want {
			if !strings.Contains(got, fragment) {
				t.Errorf("Chain for %s should contain %q, got %q", tc.effect, fragment, got)
			}
		}
	}
}

func TestFilterChain_NightcoreTempoCancelsOut(t *testing.T) {
	// Nightcore raises speed and pitch by the same factor, so asetrate alone
	// covers it and no atempo correction is needed.
	got := filterChain(player.EffectNightcore.Params())
	if strings.Contains(got, "atempo") {
		t.Errorf("Nightcore chain should not need atempo, got %q", got)
	}
}

func TestFilterChain_SkipsUnknownBands(t *testing.T) {
	got := filterChain(player.EffectParams{
		Equalizer: []player.EqualizerBand{
			{Band: -1, Gain: 0.5},
			{Band: 99, Gain: 0.5},
			{Band: 0, Gain: 0.25},
		},
	})
	if strings.Count(got, "equalizer=") != 1 {
		t.Errorf("Out-of-range bands should be skipped, got %q", got)
	}
}

func TestScaleSample(t *testing.T) {
	if got := scaleSample(1000, 1.0); got != 1000 {
		t.Errorf("Unity gain should pass through, got %d", got)
	}
	if got := scaleSample(1000, 2.5); got != 2500 {
		t.Errorf("scaleSample(1000, 2.5) = %d, want 2500", got)
	}
	if got := scaleSample(1000, 0); got != 0 {
		t.Errorf("Zero gain should mute, got %d", got)
	}
	if got := scaleSample(30000, 5.0); got != 32767 {
		t.Errorf("Overdrive should clip at max, got %d", got)
	}
	if got := scaleSample(-30000, 5.0); got != -32768 {
		t.Errorf("Overdrive should clip at min, got %d", got)
	}
}
