package slack

import (
	"sync"

	"github.com/slack-go/slack"
)

// apiDirectory is a read-through name cache over the Slack Web API.
// Entries never expire; renamed users or channels are picked up on
// restart.
type apiDirectory struct {
	api *slack.Client

	mu       sync.Mutex
	users    map[string]string
	channels map[string]string
}

func newAPIDirectory(api *slack.Client) *apiDirectory {
	return &apiDirectory{
		api:      api,
		users:    make(map[string]string),
		channels: make(map[string]string),
	}
}

func (d *apiDirectory) UserDisplayName(userID string) (string, bool) {
	if userID == "" {
		return "", false
	}

	d.mu.Lock()
	name, cached := d.users[userID]
	d.mu.Unlock()
	if cached {
		return name, name != ""
	}

	user, err := d.api.GetUserInfo(userID)
	if err != nil {
		return "", false
	}
	name = user.Profile.DisplayName
	if name == "" {
		name = user.RealName
	}
	if name == "" {
		name = user.Name
	}

	d.mu.Lock()
	d.users[userID] = name
	d.mu.Unlock()
	return name, name != ""
}

func (d *apiDirectory) ChannelName(channelID string) (string, bool) {
	if channelID == "" {
		return "", false
	}

	d.mu.Lock()
	name, cached := d.channels[channelID]
	d.mu.Unlock()
	if cached {
		return name, name != ""
	}

	ch, err := d.api.GetConversationInfo(&slack.GetConversationInfoInput{ChannelID: channelID})
	if err != nil {
		return "", false
	}
	name = ch.Name

	d.mu.Lock()
	d.channels[channelID] = name
	d.mu.Unlock()
	return name, name != ""
}
