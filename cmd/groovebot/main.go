// Package main provides the GrooveBot CLI application entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"groovebot/internal/discord"
	httpserver "groovebot/internal/http"
	"groovebot/internal/player"
	"groovebot/internal/resolver"
)

var (
	cfgFile string
	config  *player.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "groovebot",
	Short: "GrooveBot - Discord music bot",
	Long: `GrooveBot is a Discord bot that plays YouTube audio in voice channels,
with per-guild queues, audio effects, and links from foreign music providers.`,
	RunE: runGrooveBot,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("discord-token", "", "Discord bot token")
	rootCmd.PersistentFlags().String("discord-prefix", "!", "command prefix")
	rootCmd.PersistentFlags().Int("default-volume", 0, "initial per-guild volume percent")
	rootCmd.PersistentFlags().Int("max-queue-size", 0, "maximum queued tracks per guild")
	rootCmd.PersistentFlags().Int("max-track-minutes", 0, "longest playable track in minutes")
	rootCmd.PersistentFlags().Int("auto-disconnect", 0, "idle seconds before leaving voice")
	rootCmd.PersistentFlags().Bool("stay-connected", true, "stay in voice while idle (24/7)")
	rootCmd.PersistentFlags().Int("server-port", 8080, "HTTP server port")
	rootCmd.PersistentFlags().Int("flood-limit", 0, "commands per user per minute")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		// A missing .env file is fine, everything can come from the
		// environment.
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix("GROOVEBOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	config = buildConfig()
	logger = buildLogger(config.Log.Level)
}

func buildConfig() *player.Config {
	cfg := player.DefaultConfig()

	cfg.Discord.Token = viper.GetString("discord-token")
	if prefix := viper.GetString("discord-prefix"); prefix != "" {
		cfg.Discord.Prefix = prefix
	}

	if v := viper.GetInt("default-volume"); v > 0 {
		cfg.Music.DefaultVolume = v
	}
	if v := viper.GetInt("max-queue-size"); v > 0 {
		cfg.Music.MaxQueueSize = v
	}
	if v := viper.GetInt("max-track-minutes"); v > 0 {
		cfg.Music.MaxTrackDuration = time.Duration(v) * time.Minute
	}
	if v := viper.GetInt("auto-disconnect"); v > 0 {
		cfg.Music.AutoDisconnect = time.Duration(v) * time.Second
	}
	cfg.Music.StayConnected = viper.GetBool("stay-connected")

	cfg.Server.Host = viper.GetString("server-host")
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if port := viper.GetInt("server-port"); port > 0 {
		cfg.Server.Port = port
	}

	cfg.Log.Level = viper.GetString("log-level")

	if v := viper.GetInt("flood-limit"); v > 0 {
		cfg.App.FloodLimitPerMinute = v
	}

	return cfg
}

func buildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func runGrooveBot(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting GrooveBot",
		zap.String("version", "1.0.0"),
		zap.String("prefix", config.Discord.Prefix))

	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	httpServer := httpserver.NewServer(&config.Server, logger.Named("http"))

	tracks := resolver.NewYouTube(
		config.Resolver,
		config.Music.MaxTrackDuration,
		logger.Named("resolver"),
	)

	bot, err := discord.New(config, tracks, httpServer, logger.Named("discord"))
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return httpServer.Start(gCtx)
	})

	g.Go(func() error {
		return bot.Start(gCtx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				registry := bot.Registry()
				httpServer.SetActiveSessions(registry.Len())
				httpServer.SetVoiceConnections(registry.ConnectedCount())
				httpServer.SetQueuedTracks(registry.QueuedTotal())
			}
		}
	})

	logger.Info("GrooveBot started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	if err := g.Wait(); err != nil {
		logger.Error("GrooveBot stopped with error", zap.Error(err))
		return err
	}

	logger.Info("GrooveBot stopped gracefully")
	return nil
}

func validateConfig() error {
	if config.Discord.Token == "" {
		return fmt.Errorf("discord token is required")
	}

	if config.Music.MinVolume >= config.Music.MaxVolume {
		return fmt.Errorf("volume range is empty")
	}

	return nil
}
