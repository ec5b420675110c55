// Package atproto is the outbound side of the relay: a thin client around
// the indigo XRPC client that logs in with an app password and submits
// chat message records to the session owner's repository.
package atproto

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	comatproto "github.com/bluesky-social/indigo/api/atproto"
	"github.com/bluesky-social/indigo/xrpc"
)

// Session is a snapshot of the authenticated identity under which all
// records are submitted.
type Session struct {
	DID    string
	Handle string
}

// SubmitResult identifies a record accepted by the remote repository.
type SubmitResult struct {
	URI string
	CID string
}

// Client holds a single authenticated session against an ATProto PDS.
// Submissions are independent, stateless calls; the client is safe for
// concurrent use once Login has succeeded.
type Client struct {
	xrpcc *xrpc.Client

	mu      sync.RWMutex
	session *Session
}

// NewClient creates a client for the given PDS host, e.g. "https://bsky.social".
func NewClient(host string) *Client {
	return &Client{
		xrpcc: &xrpc.Client{
			Host:   host,
			Client: &http.Client{Timeout: 30 * time.Second},
		},
	}
}

// Login creates a session using a handle (or DID) and app password.
func (c *Client) Login(ctx context.Context, identifier, appPassword string) (Session, error) {
	out, err := comatproto.ServerCreateSession(ctx, c.xrpcc, &comatproto.ServerCreateSession_Input{
		Identifier: identifier,
		Password:   appPassword,
	})
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}

	sess := Session{DID: out.Did, Handle: out.Handle}

	c.mu.Lock()
	c.xrpcc.Auth = &xrpc.AuthInfo{
		AccessJwt:  out.AccessJwt,
		RefreshJwt: out.RefreshJwt,
		Handle:     out.Handle,
		Did:        out.Did,
	}
	c.session = &sess
	c.mu.Unlock()

	return sess, nil
}

// Session returns the active session, if any.
func (c *Client) Session() (Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

// createRecordInput mirrors com.atproto.repo.createRecord. The generated
// indigo input type only accepts CBOR-marshalable records, which custom
// lexicons like place.stream.chat.message don't have, so the call goes
// through xrpc.Client.Do with plain JSON instead.
type createRecordInput struct {
	Repo       string      `json:"repo"`
	Collection string      `json:"collection"`
	Validate   *bool       `json:"validate,omitempty"`
	Record     ChatMessage `json:"record"`
}

type createRecordOutput struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

// SubmitRecord writes a chat message record to the owner's repository.
// Validation is explicitly disabled because PDSes can't resolve the
// place.stream lexicon yet; submission must still succeed against servers
// with partial schema support.
func (c *Client) SubmitRecord(ctx context.Context, owner string, rec ChatMessage) (SubmitResult, error) {
	validate := false
	in := &createRecordInput{
		Repo:       owner,
		Collection: NSIDChatMessage,
		Validate:   &validate,
		Record:     rec,
	}

	var out createRecordOutput
	err := c.xrpcc.Do(ctx, xrpc.Procedure, "application/json", "com.atproto.repo.createRecord", nil, in, &out)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("create record: %w", err)
	}
	return SubmitResult{URI: out.URI, CID: out.CID}, nil
}
