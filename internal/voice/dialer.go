package voice

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"groovebot/internal/player"
)

// Dialer joins Discord voice channels over an existing gateway session.
type Dialer struct {
	session *discordgo.Session
	logger  *zap.Logger
}

// NewDialer creates a dialer bound to the gateway session.
func NewDialer(session *discordgo.Session, logger *zap.Logger) *Dialer {
	return &Dialer{session: session, logger: logger}
}

// Dial joins the voice channel unmuted and deafened. One call is one attempt;
// the caller owns retries.
func (d *Dialer) Dial(ctx context.Context, guildID, channelID string) (player.VoiceConn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vc, err := d.session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, fmt.Errorf("join voice channel %s: %w", channelID, err)
	}

	d.logger.Debug("Joined voice channel",
		zap.String("guildID", guildID),
		zap.String("channelID", channelID))

	return newConn(vc, d.logger), nil
}
