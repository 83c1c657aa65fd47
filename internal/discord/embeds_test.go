package discord

import (
	"strings"
	"testing"
	"time"

	"groovebot/internal/player"
)

func TestProgressLine(t *testing.T) {
	line := progressLine(30*time.Second, 2*time.Minute)

	if !strings.HasPrefix(line, "0:30 ") {
		t.Errorf("Line should start with elapsed time, got %q", line)
	}
	if !strings.HasSuffix(line, " 2:00") {
		t.Errorf("Line should end with total time, got %q", line)
	}
	if strings.Count(line, "🔘") != 1 {
		t.Errorf("Line should have exactly one marker, got %q", line)
	}
	if strings.Count(line, "▬") != progressBarWidth-1 {
		t.Errorf("Line should have %d bar segments, got %q", progressBarWidth-1, line)
	}
}

func TestProgressLine_ZeroTotal(t *testing.T) {
	if line := progressLine(10*time.Second, 0); line != "" {
		t.Errorf("Live streams should render no bar, got %q", line)
	}
}

func TestProgressLine_ElapsedPastTotal(t *testing.T) {
	line := progressLine(5*time.Minute, 3*time.Minute)

	if !strings.HasPrefix(line, "3:00 ") {
		t.Errorf("Elapsed should clamp to total, got %q", line)
	}
	segments := strings.TrimSuffix(strings.TrimPrefix(line, "3:00 "), " 3:00")
	if !strings.HasSuffix(segments, "🔘") {
		t.Errorf("Marker should sit at the end of the bar, got %q", line)
	}
}

func TestTrackListEmbed_Empty(t *testing.T) {
	embed := trackListEmbed("Your Favorites", nil)

	if embed.Title != "Your Favorites" {
		t.Errorf("Title = %q", embed.Title)
	}
	if !strings.Contains(embed.Description, "Nothing here yet") {
		t.Errorf("Empty list should say so, got %q", embed.Description)
	}
}

func TestTrackListEmbed_Numbered(t *testing.T) {
	tracks := []player.Track{
		{Title: "First", Duration: time.Minute},
		{Title: "Second", Duration: 2 * time.Minute},
	}
	embed := trackListEmbed("Search Results", tracks)

	if !strings.Contains(embed.Description, "`1.` First") {
		t.Errorf("Missing first entry: %q", embed.Description)
	}
	if !strings.Contains(embed.Description, "`2.` Second") {
		t.Errorf("Missing second entry: %q", embed.Description)
	}
}

func TestEffectsEmbed_ListsAllPresets(t *testing.T) {
	embed := effectsEmbed()

	for _, effect := range player.Effects() {
		if !strings.Contains(embed.Description, "`"+string(effect)+"`") {
			t.Errorf("Effect %q missing from listing", effect)
		}
	}
}

func TestInfoAndErrorEmbedColors(t *testing.T) {
	if got := infoEmbed("hi").Color; got != colorInfo {
		t.Errorf("Info color = %#x, want %#x", got, colorInfo)
	}
	if got := errorEmbed("no").Color; got != colorError {
		t.Errorf("Error color = %#x, want %#x", got, colorError)
	}
}
