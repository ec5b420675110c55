// Package config loads process configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config is the full environment surface of the relay.
type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN"`

	ATPHost        string `env:"ATP_HOST"          envDefault:"https://bsky.social"`
	ATPHandle      string `env:"ATP_HANDLE"`
	ATPAppPassword string `env:"ATP_APP_PASSWORD"`

	// ChannelMappings is the "channel_id=did,..." string parsed by
	// pkg/directory. Absence disables forwarding without failing startup.
	ChannelMappings string `env:"CHANNEL_MAPPINGS"`

	// CommandPrefix marks command chatter that is never forwarded.
	CommandPrefix string `env:"COMMAND_PREFIX"        envDefault:"~"`
	// SourceLabel is the platform name used in attribution prefixes.
	SourceLabel string `env:"SOURCE_PLATFORM_LABEL" envDefault:"Discord"`

	// Slack is an optional second inbound source; both tokens must be
	// set to enable it.
	SlackBotToken string `env:"SLACK_BOT_TOKEN"`
	SlackAppToken string `env:"SLACK_APP_TOKEN"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment into a Config. It does not validate
// credentials; call Validate before starting the relay.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Validate checks that the credentials required to run the relay are set.
func (c *Config) Validate() error {
	var missing []string
	if c.DiscordToken == "" {
		missing = append(missing, "DISCORD_TOKEN")
	}
	if c.ATPHandle == "" {
		missing = append(missing, "ATP_HANDLE")
	}
	if c.ATPAppPassword == "" {
		missing = append(missing, "ATP_APP_PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if (c.SlackBotToken == "") != (c.SlackAppToken == "") {
		return errors.New("SLACK_BOT_TOKEN and SLACK_APP_TOKEN must be set together")
	}
	return nil
}

// SlackEnabled reports whether the optional Slack gateway should start.
func (c *Config) SlackEnabled() bool {
	return c.SlackBotToken != "" && c.SlackAppToken != ""
}
