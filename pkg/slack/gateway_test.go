package slack

import (
	"testing"

	"github.com/slack-go/slack/slackevents"

	"github.com/espeon/distosp/pkg/relay"
)

type fakeNames struct {
	users    map[string]string
	channels map[string]string
}

func (f *fakeNames) UserDisplayName(id string) (string, bool) {
	name, ok := f.users[id]
	return name, ok
}

func (f *fakeNames) ChannelName(id string) (string, bool) {
	name, ok := f.channels[id]
	return name, ok
}

func TestMessageFromEvent_Basic(t *testing.T) {
	ev := &slackevents.MessageEvent{
		TimeStamp: "1700000000.000100",
		Channel:   "C01ABCDEF",
		User:      "U01AAAAAA",
		Text:      "hello <@U01BBBBBB>",
	}
	names := &fakeNames{users: map[string]string{
		"U01AAAAAA": "Ana",
		"U01BBBBBB": "Bob",
	}}

	msg, roles := MessageFromEvent(ev, "Slack", names)
	if msg.ID != "1700000000.000100" || msg.ChannelID != "C01ABCDEF" {
		t.Errorf("identity fields = %+v", msg)
	}
	if msg.Author.DisplayName != "Ana" || msg.Author.Automated {
		t.Errorf("author = %+v", msg.Author)
	}
	if roles != nil {
		t.Error("no user-group mentions, resolver should be nil")
	}

	text, err := relay.Transform(msg, roles)
	if err != nil {
		t.Fatalf("Transform() error: %v", err)
	}
	want := "Ana (Slack): hello @Bob"
	if text != want {
		t.Errorf("Transform() = %q, want %q", text, want)
	}
}

func TestMessageFromEvent_BotAuthor(t *testing.T) {
	ev := &slackevents.MessageEvent{
		Channel:  "C01ABCDEF",
		BotID:    "B01CCCCCC",
		Username: "deploybot",
		Text:     "build finished",
	}

	msg, _ := MessageFromEvent(ev, "Slack", &fakeNames{})
	if !msg.Author.Automated {
		t.Error("bot message not marked automated")
	}
	if msg.Author.DisplayName != "deploybot" {
		t.Errorf("author display name = %q", msg.Author.DisplayName)
	}
}

func TestMessageFromEvent_ChannelMentions(t *testing.T) {
	ev := &slackevents.MessageEvent{
		Channel: "C01ABCDEF",
		User:    "U01AAAAAA",
		Text:    "see <#C01GENERAL|general> and <#C01RANDOM>",
	}
	names := &fakeNames{
		users:    map[string]string{"U01AAAAAA": "Ana"},
		channels: map[string]string{"C01RANDOM": "random"},
	}

	msg, _ := MessageFromEvent(ev, "Slack", names)
	if len(msg.ChannelMentions) != 2 {
		t.Fatalf("channel mentions = %+v", msg.ChannelMentions)
	}
	// Inline label wins; bare IDs go through the directory.
	if msg.ChannelMentions[0].Name != "general" {
		t.Errorf("mention[0] = %+v", msg.ChannelMentions[0])
	}
	if msg.ChannelMentions[1].Name != "random" {
		t.Errorf("mention[1] = %+v", msg.ChannelMentions[1])
	}

	text, err := relay.Transform(msg, nil)
	if err != nil {
		t.Fatalf("Transform() error: %v", err)
	}
	want := "Ana (Slack): see #general and #random"
	if text != want {
		t.Errorf("Transform() = %q, want %q", text, want)
	}
}

func TestMessageFromEvent_UserGroupMentions(t *testing.T) {
	ev := &slackevents.MessageEvent{
		Channel: "C01ABCDEF",
		User:    "U01AAAAAA",
		Text:    "paging <!subteam^S01MODS|@mods> and <!subteam^S01UNKNOWN>",
	}
	names := &fakeNames{users: map[string]string{"U01AAAAAA": "Ana"}}

	msg, roles := MessageFromEvent(ev, "Slack", names)
	if len(msg.RoleMentions) != 2 {
		t.Fatalf("role mentions = %+v", msg.RoleMentions)
	}
	if roles == nil {
		t.Fatal("expected a resolver built from inline labels")
	}

	text, err := relay.Transform(msg, roles)
	if err != nil {
		t.Fatalf("Transform() error: %v", err)
	}
	// Labeled group resolves; the unlabeled one keeps its token.
	want := "Ana (Slack): paging @mods and <!subteam^S01UNKNOWN>"
	if text != want {
		t.Errorf("Transform() = %q, want %q", text, want)
	}
}

func TestMessageFromEvent_UnresolvableUserKeepsToken(t *testing.T) {
	ev := &slackevents.MessageEvent{
		Channel: "C01ABCDEF",
		User:    "U01AAAAAA",
		Text:    "hi <@U01GONE>",
	}
	names := &fakeNames{users: map[string]string{"U01AAAAAA": "Ana"}}

	msg, _ := MessageFromEvent(ev, "Slack", names)
	if len(msg.UserMentions) != 0 {
		t.Fatalf("user mentions = %+v, want none for unresolvable user", msg.UserMentions)
	}

	text, err := relay.Transform(msg, nil)
	if err != nil {
		t.Fatalf("Transform() error: %v", err)
	}
	want := "Ana (Slack): hi <@U01GONE>"
	if text != want {
		t.Errorf("Transform() = %q, want %q", text, want)
	}
}
