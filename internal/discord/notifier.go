package discord

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	httpserver "groovebot/internal/http"
	"groovebot/internal/player"
)

// reactionControls are attached to every now-playing message, newest first:
// play/pause toggle, skip, stop, shuffle, loop cycle.
var reactionControls = []string{"⏯️", "⏭️", "⏹️", "🔀", "🔁"}

// ChannelNotifier delivers session events to the text channel the guild last
// issued a command from. It also feeds the playback metrics.
type ChannelNotifier struct {
	session *discordgo.Session
	metrics *httpserver.Server
	logger  *zap.Logger

	mu          sync.Mutex
	channels    map[string]string // guildID -> text channel ID
	lastMessage map[string]string // guildID -> last now-playing message ID
	sessions    func(guildID string) (*player.Session, bool)
}

// NewChannelNotifier creates a notifier. The sessions lookup is injected
// after the registry exists to break the construction cycle.
func NewChannelNotifier(session *discordgo.Session, metrics *httpserver.Server, logger *zap.Logger) *ChannelNotifier {
	return &ChannelNotifier{
		session:     session,
		metrics:     metrics,
		logger:      logger,
		channels:    make(map[string]string),
		lastMessage: make(map[string]string),
	}
}

// SetSessionLookup wires the registry lookup used to render rich now-playing
// embeds.
func (n *ChannelNotifier) SetSessionLookup(lookup func(guildID string) (*player.Session, bool)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sessions = lookup
}

// Bind routes future events for the guild to the given text channel.
func (n *ChannelNotifier) Bind(guildID, channelID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.channels[guildID] = channelID
}

// IsControlMessage reports whether the message carries this guild's reaction
// controls.
func (n *ChannelNotifier) IsControlMessage(guildID, messageID string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastMessage[guildID] == messageID
}

// NowPlaying announces a started track and attaches reaction controls.
func (n *ChannelNotifier) NowPlaying(guildID string, track player.Track) {
	n.metrics.RecordTrackPlayed()

	channelID, lookup := n.binding(guildID)
	if channelID == "" {
		return
	}

	var embed *discordgo.MessageEmbed
	if s, ok := lookup(guildID); ok {
		embed = nowPlayingEmbed(track, s)
	} else {
		embed = infoEmbed(fmt.Sprintf("Now playing **%s**", track.Title))
	}

	msg, err := n.session.ChannelMessageSendEmbed(channelID, embed)
	if err != nil {
		n.logger.Warn("Failed to send now-playing message",
			zap.String("guildID", guildID),
			zap.Error(err))
		return
	}

	n.mu.Lock()
	n.lastMessage[guildID] = msg.ID
	n.mu.Unlock()

	for _, emoji := range reactionControls {
		if err := n.session.MessageReactionAdd(channelID, msg.ID, emoji); err != nil {
			n.logger.Debug("Failed to add reaction control",
				zap.String("emoji", emoji),
				zap.Error(err))
			break
		}
	}
}

// QueueFinished announces that playback drained the queue.
func (n *ChannelNotifier) QueueFinished(guildID string) {
	channelID, _ := n.binding(guildID)
	if channelID == "" {
		return
	}

	if _, err := n.session.ChannelMessageSendEmbed(channelID,
		infoEmbed("Queue finished.")); err != nil {
		n.logger.Warn("Failed to send queue-finished message",
			zap.String("guildID", guildID),
			zap.Error(err))
	}
}

// TrackFailed announces a track that could not be resolved or whose stream
// broke mid-play.
func (n *ChannelNotifier) TrackFailed(guildID string, track player.Track, err error) {
	if errors.Is(err, player.ErrTransport) {
		n.metrics.RecordTransportError()
	} else {
		n.metrics.RecordResolutionFailure()
	}

	channelID, _ := n.binding(guildID)
	if channelID == "" {
		return
	}

	if _, sendErr := n.session.ChannelMessageSendEmbed(channelID,
		errorEmbed(fmt.Sprintf("Skipping **%s**: %v", track.Title, err))); sendErr != nil {
		n.logger.Warn("Failed to send track-failed message",
			zap.String("guildID", guildID),
			zap.Error(sendErr))
	}
}

func (n *ChannelNotifier) binding(guildID string) (string, func(string) (*player.Session, bool)) {
	n.mu.Lock()
	defer n.mu.Unlock()

	lookup := n.sessions
	if lookup == nil {
		lookup = func(string) (*player.Session, bool) { return nil, false }
	}
	return n.channels[guildID], lookup
}
