// Package directory maps inbound channel IDs to the destination identity
// (DID) that forwarded messages are attributed to.
//
// The mapping is parsed once at startup from a delimited string and is
// immutable for the process lifetime; changing it requires a restart.
package directory

import "strings"

// Directory is an immutable channel-to-destination lookup table.
type Directory struct {
	mappings map[string]string
}

// Parse builds a Directory from a mapping string of the form
// "channel_id=did,another_id=another_did". The field delimiter is "="
// because destination DIDs contain colons (e.g. did:web:my.ball).
//
// Pairs that do not split into exactly two non-empty fields are dropped
// from the Directory and returned so the caller can log them. An empty
// input yields an empty Directory, which disables forwarding entirely.
func Parse(raw string) (*Directory, []string) {
	d := &Directory{mappings: make(map[string]string)}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return d, nil
	}

	var malformed []string
	for _, pair := range strings.Split(raw, ",") {
		if strings.TrimSpace(pair) == "" {
			continue
		}
		parts := strings.Split(pair, "=")
		if len(parts) != 2 {
			malformed = append(malformed, pair)
			continue
		}
		channelID := strings.TrimSpace(parts[0])
		destination := strings.TrimSpace(parts[1])
		if channelID == "" || destination == "" {
			malformed = append(malformed, pair)
			continue
		}
		d.mappings[channelID] = destination
	}

	return d, malformed
}

// Resolve returns the destination identity for a channel. The second
// return value is false when the channel has no mapping, which callers
// treat as "do not forward" rather than an error.
func (d *Directory) Resolve(channelID string) (string, bool) {
	dest, ok := d.mappings[channelID]
	return dest, ok
}

// ShouldForward reports whether messages from the given channel are relayed.
func (d *Directory) ShouldForward(channelID string) bool {
	_, ok := d.mappings[channelID]
	return ok
}

// Len returns the number of configured channel mappings.
func (d *Directory) Len() int {
	return len(d.mappings)
}

// All returns a copy of the mapping table, for diagnostics output.
func (d *Directory) All() map[string]string {
	out := make(map[string]string, len(d.mappings))
	for k, v := range d.mappings {
		out[k] = v
	}
	return out
}
