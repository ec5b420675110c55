package run

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/espeon/distosp/cmd/distosp/internal"
	"github.com/espeon/distosp/pkg/atproto"
	"github.com/espeon/distosp/pkg/config"
	"github.com/espeon/distosp/pkg/directory"
	"github.com/espeon/distosp/pkg/discord"
	"github.com/espeon/distosp/pkg/relay"
	slackgw "github.com/espeon/distosp/pkg/slack"
	"github.com/espeon/distosp/pkg/telemetry"
)

func runCmd(debug bool) error {
	// A .env file is optional; real environment variables work the same.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := newLogger(cfg.LogLevel, debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, "distosp", internal.GetVersion())
	if err != nil {
		return fmt.Errorf("error initializing telemetry: %w", err)
	}
	if telemetry.Enabled() {
		log.Info().Msg("OpenTelemetry trace export enabled")
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			log.Warn().Err(err).Msg("Telemetry shutdown failed")
		}
	}()

	dir, malformed := directory.Parse(cfg.ChannelMappings)
	for _, pair := range malformed {
		log.Warn().Str("pair", pair).Msg("Dropping malformed channel mapping")
	}
	if dir.Len() == 0 {
		log.Warn().Msg("No channel mappings configured; forwarding is disabled for every channel")
	} else {
		log.Info().Int("mappings", dir.Len()).Msg("Channel directory loaded")
	}

	atp := atproto.NewClient(cfg.ATPHost)
	log.Info().Str("handle", cfg.ATPHandle).Msg("Attempting ATP login")
	sess, err := atp.Login(ctx, cfg.ATPHandle, cfg.ATPAppPassword)
	if err != nil {
		return fmt.Errorf("ATP login failed: %w", err)
	}
	log.Info().Str("did", sess.DID).Str("handle", sess.Handle).Msg("Logged in to ATP")

	forwarder := relay.NewForwarder(dir, atp, atp, cfg.CommandPrefix, log)

	gateway, err := discord.New(cfg.DiscordToken, forwarder, cfg.SourceLabel, log)
	if err != nil {
		return err
	}
	if err := gateway.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := gateway.Stop(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Discord gateway close failed")
		}
	}()

	if cfg.SlackEnabled() {
		sg := slackgw.New(cfg.SlackBotToken, cfg.SlackAppToken, forwarder, "Slack", log)
		if err := sg.Start(ctx); err != nil {
			return fmt.Errorf("slack gateway: %w", err)
		}
		defer func() {
			_ = sg.Stop(context.Background())
		}()
	}

	log.Info().Msg("Relay running, press Ctrl-C to stop")
	<-ctx.Done()
	log.Info().Msg("Shutting down")
	return nil
}

func newLogger(level string, debug bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if debug {
		lvl = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().Timestamp().Logger()
}
