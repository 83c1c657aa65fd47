package discord

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"groovebot/internal/player"
)

const (
	colorPlaying = 0x1db954
	colorInfo    = 0x5865f2
	colorError   = 0xed4245

	progressBarWidth = 16
	queuePageSize    = 10
)

func nowPlayingEmbed(track player.Track, s *player.Session) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "Now Playing",
		Description: fmt.Sprintf("**%s**\n%s", track.Title, track.URL),
		Color:       colorPlaying,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Duration", Value: track.DurationString(), Inline: true},
			{Name: "Volume", Value: fmt.Sprintf("%d%%", s.Volume()), Inline: true},
			{Name: "Loop", Value: s.Loop().String(), Inline: true},
		},
	}
	if track.Artist != "" {
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{Name: "Artist", Value: track.Artist, Inline: true})
	}
	if effect := s.Effect(); effect != player.EffectNone && effect != "" {
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{Name: "Effect", Value: string(effect), Inline: true})
	}
	if track.Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: track.Thumbnail}
	}
	if track.RequesterName != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: "Requested by " + track.RequesterName,
		}
	}
	return embed
}

func progressEmbed(track player.Track, s *player.Session) *discordgo.MessageEmbed {
	embed := nowPlayingEmbed(track, s)
	if !track.IsLive() {
		embed.Description += "\n\n" + progressLine(s.Elapsed(), track.Duration)
	}
	if s.Status() == player.StatusPaused {
		embed.Title = "Paused"
	}
	return embed
}

// progressLine renders elapsed position as a bar like
// `1:23 ▬▬▬🔘▬▬▬▬▬▬ 4:56`.
func progressLine(elapsed, total time.Duration) string {
	if total <= 0 {
		return ""
	}
	if elapsed > total {
		elapsed = total
	}

	pos := int(float64(progressBarWidth) * float64(elapsed) / float64(total))
	if pos >= progressBarWidth {
		pos = progressBarWidth - 1
	}

	var b strings.Builder
	b.WriteString(player.FormatDuration(elapsed))
	b.WriteString(" ")
	for i := 0; i < progressBarWidth; i++ {
		if i == pos {
			b.WriteString("🔘")
		} else {
			b.WriteString("▬")
		}
	}
	b.WriteString(" ")
	b.WriteString(player.FormatDuration(total))
	return b.String()
}

func queueEmbed(s *player.Session, page int) *discordgo.MessageEmbed {
	q := s.Queue()
	total := q.Len()

	pages := (total + queuePageSize - 1) / queuePageSize
	if pages == 0 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	var b strings.Builder
	if current, ok := s.Current(); ok {
		fmt.Fprintf(&b, "**Now:** %s `[%s]`\n\n", current.Title, current.DurationString())
	}

	start := (page - 1) * queuePageSize
	window := q.Window(start, queuePageSize)
	if len(window) == 0 {
		b.WriteString("The queue is empty.")
	}
	for i, track := range window {
		fmt.Fprintf(&b, "`%d.` %s `[%s]`\n", start+i+1, track.Title, track.DurationString())
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Queue",
		Description: b.String(),
		Color:       colorInfo,
	}
	if total > 0 {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%d tracks, %s total • page %d/%d",
				total, player.FormatDuration(q.TotalDuration()), page, pages),
		}
	}
	return embed
}

func trackListEmbed(title string, tracks []player.Track) *discordgo.MessageEmbed {
	var b strings.Builder
	if len(tracks) == 0 {
		b.WriteString("Nothing here yet.")
	}
	for i, track := range tracks {
		fmt.Fprintf(&b, "`%d.` %s `[%s]`\n", i+1, track.Title, track.DurationString())
	}

	return &discordgo.MessageEmbed{
		Title:       title,
		Description: b.String(),
		Color:       colorInfo,
	}
}

func effectsEmbed() *discordgo.MessageEmbed {
	var b strings.Builder
	for _, effect := range player.Effects() {
		fmt.Fprintf(&b, "`%s` %s\n", effect, effect.Description())
	}

	return &discordgo.MessageEmbed{
		Title:       "Audio Effects",
		Description: b.String(),
		Color:       colorInfo,
	}
}

func infoEmbed(text string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Description: text, Color: colorInfo}
}

func errorEmbed(text string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Description: text, Color: colorError}
}
