// Package discord binds the playback engine to the Discord gateway: command
// parsing, reaction controls and event announcements.
package discord

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"groovebot/internal/flood"
	httpserver "groovebot/internal/http"
	"groovebot/internal/player"
	"groovebot/internal/voice"
	"groovebot/pkg/musiclink"
	"groovebot/pkg/text"
)

// Bot is the Discord frontend. One Bot serves every guild; per-guild playback
// state lives in the session registry.
type Bot struct {
	cfg      *player.Config
	session  *discordgo.Session
	registry *player.Registry
	resolver player.TrackResolver
	links    *musiclink.Manager
	parser   *text.Parser
	gate     *flood.Floodgate
	metrics  *httpserver.Server
	notifier *ChannelNotifier
	logger   *zap.Logger
}

// New creates the bot and its gateway session. The session is not opened
// until Start.
func New(cfg *player.Config, resolver player.TrackResolver, metrics *httpserver.Server, logger *zap.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentMessageContent

	notifier := NewChannelNotifier(session, metrics, logger)
	registry := player.NewRegistry(&cfg.Music, resolver,
		voice.NewDialer(session, logger), notifier, logger)
	notifier.SetSessionLookup(registry.Get)

	b := &Bot{
		cfg:      cfg,
		session:  session,
		registry: registry,
		resolver: resolver,
		links:    musiclink.NewManager(),
		parser:   text.NewParser(),
		gate:     flood.New(cfg.App.FloodLimitPerMinute),
		metrics:  metrics,
		notifier: notifier,
		logger:   logger,
	}

	session.AddHandler(b.onReady)
	session.AddHandler(b.onMessageCreate)
	session.AddHandler(b.onMessageReactionAdd)

	return b, nil
}

// Registry exposes the session registry, mainly for metrics collection.
func (b *Bot) Registry() *player.Registry {
	return b.registry
}

// Start opens the gateway connection and blocks until the context is
// cancelled, then disconnects every session and closes the gateway.
func (b *Bot) Start(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	b.logger.Info("Discord gateway connected")

	<-ctx.Done()

	b.logger.Info("Shutting down Discord frontend")
	b.registry.Shutdown()
	b.gate.Stop()

	if err := b.session.Close(); err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}
	return nil
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info("Logged in",
		zap.String("username", r.User.Username),
		zap.Int("guilds", len(r.Guilds)))

	if err := s.UpdateListeningStatus(b.cfg.Discord.Prefix + "play"); err != nil {
		b.logger.Debug("Failed to set presence", zap.Error(err))
	}
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	if !strings.HasPrefix(m.Content, b.cfg.Discord.Prefix) {
		return
	}

	body := strings.TrimSpace(strings.TrimPrefix(m.Content, b.cfg.Discord.Prefix))
	if body == "" {
		return
	}
	name, args := splitCommand(body)

	handler, ok := b.commands()[name]
	if !ok {
		return
	}

	if !b.gate.Allow(m.GuildID, m.Author.ID) {
		b.metrics.RecordFloodBlocked()
		b.logger.Debug("Command blocked by flood control",
			zap.String("guildID", m.GuildID),
			zap.String("userID", m.Author.ID),
			zap.String("command", name))
		return
	}

	cmd := &commandContext{
		ctx:       context.Background(),
		guildID:   m.GuildID,
		channelID: m.ChannelID,
		userID:    m.Author.ID,
		userName:  m.Author.Username,
		args:      args,
	}
	b.notifier.Bind(m.GuildID, m.ChannelID)

	start := time.Now()
	err := handler(cmd)
	b.metrics.RecordCommandDuration(name, time.Since(start))

	if err != nil {
		b.metrics.RecordCommand(name, "error")
		b.logger.Warn("Command failed",
			zap.String("command", name),
			zap.String("guildID", m.GuildID),
			zap.Error(err))
		b.replyEmbed(m.ChannelID, errorEmbed(err.Error()))
		return
	}
	b.metrics.RecordCommand(name, "ok")
}

// onMessageReactionAdd drives the reaction controls attached to now-playing
// messages.
func (b *Bot) onMessageReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if r.UserID == s.State.User.ID || r.GuildID == "" {
		return
	}
	if !b.notifier.IsControlMessage(r.GuildID, r.MessageID) {
		return
	}

	session, ok := b.registry.Get(r.GuildID)
	if !ok {
		return
	}

	switch r.Emoji.Name {
	case "⏯️":
		if session.Status() == player.StatusPlaying {
			session.Pause()
		} else {
			session.Resume()
		}
	case "⏭️":
		session.Skip()
	case "⏹️":
		session.Stop()
	case "🔀":
		session.Queue().Shuffle()
	case "🔁":
		session.ToggleLoop()
	default:
		return
	}

	// Clear the user's reaction so the control can be pressed again.
	if err := s.MessageReactionRemove(r.ChannelID, r.MessageID, r.Emoji.Name, r.UserID); err != nil {
		b.logger.Debug("Failed to remove control reaction", zap.Error(err))
	}
}

// userVoiceChannel finds the voice channel the user currently occupies.
func (b *Bot) userVoiceChannel(guildID, userID string) (string, bool) {
	guild, err := b.session.State.Guild(guildID)
	if err != nil {
		return "", false
	}

	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return vs.ChannelID, true
		}
	}
	return "", false
}

func (b *Bot) replyEmbed(channelID string, embed *discordgo.MessageEmbed) {
	if _, err := b.session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		b.logger.Warn("Failed to send reply", zap.Error(err))
	}
}

func splitCommand(body string) (name, args string) {
	parts := strings.SplitN(body, " ", 2)
	name = strings.ToLower(parts[0])
	if len(parts) > 1 {
		args = strings.TrimSpace(parts[1])
	}
	return name, args
}
