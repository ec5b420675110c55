package relay

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyContent means the message has no usable text, e.g. it consists
// solely of attachments. Such messages are skipped before any lookup or
// submission happens.
var ErrEmptyContent = errors.New("message has no text content")

// Transform converts an inbound message into plain, portable text with an
// author attribution prefix: "DisplayName (Platform): body".
//
// Every literal occurrence of each mention token is replaced, not just the
// first. Role mentions that fail to resolve (no guild context, stale role)
// keep their raw token rather than failing the whole message.
//
// Transform performs no network or state access; it is fully deterministic
// given its inputs.
func Transform(msg Message, roles RoleResolver) (string, error) {
	if strings.TrimSpace(msg.Text) == "" {
		return "", ErrEmptyContent
	}

	content := msg.Text
	for _, m := range msg.UserMentions {
		content = strings.ReplaceAll(content, m.Token, "@"+m.DisplayName)
	}
	for _, m := range msg.ChannelMentions {
		content = strings.ReplaceAll(content, m.Token, "#"+m.Name)
	}
	if roles != nil {
		for _, m := range msg.RoleMentions {
			name, ok := roles(m.ID)
			if !ok {
				continue
			}
			content = strings.ReplaceAll(content, m.Token, "@"+name)
		}
	}

	prefix := fmt.Sprintf("%s (%s):", msg.Author.DisplayName, msg.Platform)

	body := strings.TrimSpace(content)
	if body == "" {
		// A mention-only message can collapse to nothing after
		// substitution; the attribution prefix alone is still posted.
		return prefix, nil
	}
	return prefix + " " + body, nil
}
