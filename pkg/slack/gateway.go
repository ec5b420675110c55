// Package slack is an optional second inbound gateway. It listens over
// Socket Mode and converts Slack message events, including Slack's own
// mention syntax, into the same portable relay shape the Discord gateway
// produces, so one forwarding pipeline serves both platforms.
package slack

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/espeon/distosp/pkg/relay"
)

var (
	userMentionRe    = regexp.MustCompile(`<@([UW][A-Z0-9]+)>`)
	channelMentionRe = regexp.MustCompile(`<#(C[A-Z0-9]+)(?:\|([^>]*))?>`)
	subteamMentionRe = regexp.MustCompile(`<!subteam\^([A-Z0-9]+)(?:\|@?([^>]*))?>`)
)

// NameDirectory resolves Slack IDs to display names. The production
// implementation is a read-through cache over the Web API.
type NameDirectory interface {
	UserDisplayName(userID string) (string, bool)
	ChannelName(channelID string) (string, bool)
}

// Gateway owns the Socket Mode connection and hands every received
// message to the forwarder.
type Gateway struct {
	botToken  string
	appToken  string
	forwarder *relay.Forwarder
	label     string
	log       zerolog.Logger

	client *slack.Client
	socket *socketmode.Client
	names  NameDirectory
	botUID string
	cancel context.CancelFunc
}

// New creates a Slack gateway. label is the source platform name used in
// attribution prefixes.
func New(botToken, appToken string, forwarder *relay.Forwarder, label string, log zerolog.Logger) *Gateway {
	return &Gateway{
		botToken:  botToken,
		appToken:  appToken,
		forwarder: forwarder,
		label:     label,
		log:       log.With().Str("component", "slack").Logger(),
	}
}

// Start authenticates, then runs the Socket Mode event loop in the
// background. It returns once the connection is being established.
func (g *Gateway) Start(ctx context.Context) error {
	api := slack.New(g.botToken, slack.OptionAppLevelToken(g.appToken))

	authResp, err := api.AuthTest()
	if err != nil {
		return fmt.Errorf("slack auth: %w", err)
	}
	g.client = api
	g.botUID = authResp.UserID
	g.names = newAPIDirectory(api)
	g.socket = socketmode.New(api)
	g.log.Info().Str("user", authResp.User).Str("user_id", authResp.UserID).Msg("Slack bot authenticated")

	runCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel

	go g.eventLoop()
	go func() {
		if err := g.socket.RunContext(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			g.log.Error().Err(err).Msg("Slack socket mode stopped")
		}
	}()

	return nil
}

// Stop tears down the Socket Mode connection. In-flight forwards are
// abandoned.
func (g *Gateway) Stop(_ context.Context) error {
	if g.cancel != nil {
		g.cancel()
	}
	return nil
}

func (g *Gateway) eventLoop() {
	for evt := range g.socket.Events {
		switch evt.Type {
		case socketmode.EventTypeEventsAPI:
			apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
			if !ok {
				continue
			}
			g.socket.Ack(*evt.Request)
			g.handleEventsAPI(apiEvent)
		case socketmode.EventTypeConnectionError:
			g.log.Warn().Msg("Slack socket mode connection error, retrying")
		default:
			// Unacked envelopes cause Socket Mode disconnects.
			if evt.Request != nil {
				g.socket.Ack(*evt.Request)
			}
		}
	}
}

func (g *Gateway) handleEventsAPI(e slackevents.EventsAPIEvent) {
	if e.Type != slackevents.CallbackEvent {
		return
	}
	ev, ok := e.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok {
		return
	}
	// Edits, joins and other subtypes are not new messages; own messages
	// are never relayed.
	if ev.SubType != "" || ev.User == g.botUID {
		return
	}

	msg, roles := MessageFromEvent(ev, g.label, g.names)

	err := g.forwarder.Handle(context.Background(), msg, roles)
	switch {
	case err == nil:
	case errors.Is(err, relay.ErrChannelNotMapped):
		g.log.Debug().
			Str("channel_id", ev.Channel).
			Msg("Channel not mapped, not forwarding")
	default:
		g.log.Error().Err(err).
			Str("channel_id", ev.Channel).
			Str("author", msg.Author.DisplayName).
			Msg("Failed to forward message")
	}
}

// MessageFromEvent converts a Slack message event into the portable relay
// shape. Mentions whose names cannot be resolved keep their raw token.
// The returned RoleResolver serves Slack user-group mentions from the
// inline labels Slack embeds in the message text.
func MessageFromEvent(ev *slackevents.MessageEvent, label string, names NameDirectory) (relay.Message, relay.RoleResolver) {
	msg := relay.Message{
		ID:        ev.TimeStamp,
		ChannelID: ev.Channel,
		Text:      ev.Text,
		Platform:  label,
		Author: relay.Author{
			ID:          ev.User,
			DisplayName: authorName(ev, names),
			Automated:   ev.BotID != "",
		},
	}

	seen := make(map[string]bool)
	for _, match := range userMentionRe.FindAllStringSubmatch(ev.Text, -1) {
		userID := match[1]
		if seen[userID] {
			continue
		}
		seen[userID] = true
		name, ok := names.UserDisplayName(userID)
		if !ok {
			continue
		}
		msg.UserMentions = append(msg.UserMentions, relay.UserMention{
			Token:       match[0],
			DisplayName: name,
		})
	}

	seenChannels := make(map[string]bool)
	for _, match := range channelMentionRe.FindAllStringSubmatch(ev.Text, -1) {
		channelID := match[1]
		if seenChannels[channelID] {
			continue
		}
		seenChannels[channelID] = true
		name := match[2]
		if name == "" {
			resolved, ok := names.ChannelName(channelID)
			if !ok {
				continue
			}
			name = resolved
		}
		msg.ChannelMentions = append(msg.ChannelMentions, relay.ChannelMention{
			Token: match[0],
			Name:  name,
		})
	}

	groupNames := make(map[string]string)
	for _, match := range subteamMentionRe.FindAllStringSubmatch(ev.Text, -1) {
		subteamID := match[1]
		msg.RoleMentions = append(msg.RoleMentions, relay.RoleMention{
			ID:    subteamID,
			Token: match[0],
		})
		if match[2] != "" {
			groupNames[subteamID] = match[2]
		}
	}

	var roles relay.RoleResolver
	if len(groupNames) > 0 {
		roles = func(roleID string) (string, bool) {
			name, ok := groupNames[roleID]
			return name, ok
		}
	}

	return msg, roles
}

func authorName(ev *slackevents.MessageEvent, names NameDirectory) string {
	if name, ok := names.UserDisplayName(ev.User); ok {
		return name
	}
	if ev.Username != "" {
		return ev.Username
	}
	return ev.User
}
