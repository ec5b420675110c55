package atproto

import "time"

// NSIDChatMessage is the lexicon collection that relayed chat messages are
// written to.
const NSIDChatMessage = "place.stream.chat.message"

// ChatMessage is a place.stream.chat.message record. It is constructed fresh
// for every forwarded message and never mutated after construction; the
// remote repository holds the only durable copy.
//
// The lexicon also defines facets (rich-text spans) and reply threading,
// which this relay never sets, so those keys are omitted from the wire
// format entirely.
type ChatMessage struct {
	Type string `json:"$type"`
	Text string `json:"text"`
	// CreatedAt is stamped at submission time, not at the original message
	// time. The destination has no notion of preserved send time.
	CreatedAt string `json:"createdAt"`
	// Streamer is the destination identity (DID) the message is attributed to.
	Streamer string `json:"streamer"`
}

// NewChatMessage builds a chat message record for the given destination.
func NewChatMessage(text, streamer string, createdAt time.Time) ChatMessage {
	return ChatMessage{
		Type:      NSIDChatMessage,
		Text:      text,
		CreatedAt: createdAt.UTC().Format(time.RFC3339),
		Streamer:  streamer,
	}
}
