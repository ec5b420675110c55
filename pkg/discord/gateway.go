// Package discord is the inbound gateway adapter. It listens for message
// events over the Discord gateway and converts them into the portable
// relay.Message shape, resolving role and channel names through the
// session's state cache.
package discord

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/espeon/distosp/pkg/relay"
)

var channelMentionRe = regexp.MustCompile(`<#(\d+)>`)

// Gateway owns the Discord session and hands every received message to
// the forwarder. Handlers run on discordgo's dispatch goroutines, so
// forwards for unrelated events proceed concurrently.
type Gateway struct {
	session   *discordgo.Session
	forwarder *relay.Forwarder
	label     string
	log       zerolog.Logger
}

// New creates a gateway for the given bot token. label is the source
// platform name used in attribution prefixes.
func New(token string, forwarder *relay.Forwarder, label string, log zerolog.Logger) (*Gateway, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	g := &Gateway{
		session:   session,
		forwarder: forwarder,
		label:     label,
		log:       log.With().Str("component", "discord").Logger(),
	}
	session.AddHandler(g.onMessageCreate)
	return g, nil
}

// Start opens the gateway connection. discordgo reconnects on its own
// after transient drops.
func (g *Gateway) Start(_ context.Context) error {
	if err := g.session.Open(); err != nil {
		return fmt.Errorf("discord gateway open: %w", err)
	}
	g.log.Info().Msg("Discord gateway connected")
	return nil
}

// Stop closes the gateway connection. In-flight forwards are abandoned.
func (g *Gateway) Stop(_ context.Context) error {
	return g.session.Close()
}

func (g *Gateway) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore the relay's own messages.
	if s.State != nil && s.State.User != nil && m.Author != nil && m.Author.ID == s.State.User.ID {
		return
	}

	msg := MessageFromEvent(m, g.label, stateChannelNames(s.State))
	roles := stateRoleResolver(s.State, m.GuildID)

	err := g.forwarder.Handle(context.Background(), msg, roles)
	switch {
	case err == nil:
	case errors.Is(err, relay.ErrChannelNotMapped):
		g.log.Debug().
			Str("channel_id", m.ChannelID).
			Msg("Channel not mapped, not forwarding")
	default:
		g.log.Error().Err(err).
			Str("channel_id", m.ChannelID).
			Str("author", msg.Author.DisplayName).
			Msg("Failed to forward message")
	}
}

// MessageFromEvent converts a Discord message-create event into the
// portable relay shape. channelName resolves a channel ID to its display
// name from the state cache; unresolvable channel mentions keep their raw
// token.
func MessageFromEvent(
	m *discordgo.MessageCreate,
	label string,
	channelName func(channelID string) (string, bool),
) relay.Message {
	msg := relay.Message{
		ID:              m.ID,
		ChannelID:       m.ChannelID,
		GuildID:         m.GuildID,
		Text:            m.Content,
		AttachmentCount: len(m.Attachments),
		Platform:        label,
	}

	if m.Author != nil {
		msg.Author = relay.Author{
			ID:          m.Author.ID,
			DisplayName: memberDisplayName(m),
			Automated:   m.Author.Bot || m.WebhookID != "",
		}
	}

	for _, u := range m.Mentions {
		if u == nil {
			continue
		}
		name := userDisplayName(u)
		// Discord serializes user mentions both with and without the
		// nickname marker; substitute both forms.
		msg.UserMentions = append(msg.UserMentions,
			relay.UserMention{Token: "<@" + u.ID + ">", DisplayName: name},
			relay.UserMention{Token: "<@!" + u.ID + ">", DisplayName: name},
		)
	}

	for _, roleID := range m.MentionRoles {
		msg.RoleMentions = append(msg.RoleMentions, relay.RoleMention{
			ID:    roleID,
			Token: "<@&" + roleID + ">",
		})
	}

	if channelName != nil {
		seen := make(map[string]bool)
		for _, match := range channelMentionRe.FindAllStringSubmatch(m.Content, -1) {
			channelID := match[1]
			if seen[channelID] {
				continue
			}
			seen[channelID] = true
			name, ok := channelName(channelID)
			if !ok {
				continue
			}
			msg.ChannelMentions = append(msg.ChannelMentions, relay.ChannelMention{
				Token: match[0],
				Name:  name,
			})
		}
	}

	return msg
}

// memberDisplayName prefers the guild nickname over the account-level
// display name.
func memberDisplayName(m *discordgo.MessageCreate) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	return userDisplayName(m.Author)
}

func userDisplayName(u *discordgo.User) string {
	if u == nil {
		return ""
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

func stateChannelNames(st *discordgo.State) func(string) (string, bool) {
	return func(channelID string) (string, bool) {
		if st == nil {
			return "", false
		}
		ch, err := st.Channel(channelID)
		if err != nil || ch.Name == "" {
			return "", false
		}
		return ch.Name, true
	}
}

func stateRoleResolver(st *discordgo.State, guildID string) relay.RoleResolver {
	if st == nil || guildID == "" {
		return nil
	}
	return func(roleID string) (string, bool) {
		role, err := st.Role(guildID, roleID)
		if err != nil {
			return "", false
		}
		return role.Name, true
	}
}
