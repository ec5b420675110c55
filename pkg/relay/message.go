// Package relay implements the platform-agnostic forwarding core: the
// portable message shape, the mention-rewriting transformer, and the
// per-message forwarding coordinator.
package relay

// Author identifies who wrote an inbound message.
type Author struct {
	ID          string
	DisplayName string
	// Automated marks bots, webhooks and app integrations. Automated
	// authors are never forwarded, which prevents relay loops.
	Automated bool
}

// UserMention is an inline user reference. Token is the literal platform
// markup to substitute, e.g. "<@123456>" on Discord or "<@U03AB5K>" on
// Slack; gateway adapters construct it so the transformer never needs to
// know platform syntax.
type UserMention struct {
	Token       string
	DisplayName string
}

// RoleMention is an inline role reference, e.g. "<@&789>" on Discord.
// Role names are resolved lazily through a RoleResolver because they only
// exist within a guild context.
type RoleMention struct {
	ID    string
	Token string
}

// ChannelMention is an inline channel reference, e.g. "<#456>".
type ChannelMention struct {
	Token string
	Name  string
}

// Message is the portable shape of a received chat message. It is produced
// by a gateway adapter for every message event, read-only to the core, and
// not retained beyond the single processing pass.
type Message struct {
	// ID is the platform message ID, used for log correlation only.
	// May be empty; the forwarder assigns a correlation ID then.
	ID        string
	ChannelID string
	// GuildID is empty for direct messages.
	GuildID string
	Author  Author
	Text    string

	// Mentions are listed in the order the source message lists them.
	UserMentions    []UserMention
	RoleMentions    []RoleMention
	ChannelMentions []ChannelMention

	AttachmentCount int

	// Platform is the human-readable source label used in the attribution
	// prefix, e.g. "Discord". Set by the gateway adapter.
	Platform string
}

// RoleResolver resolves a role ID to its display name within the
// originating guild. A nil resolver means no guild context is available;
// role mention tokens are then left as-is.
type RoleResolver func(roleID string) (string, bool)
