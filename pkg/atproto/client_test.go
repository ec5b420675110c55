package atproto

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakePDS answers the two XRPC calls the client makes and records the
// last createRecord request for inspection.
type fakePDS struct {
	t *testing.T

	lastAuth string
	lastBody map[string]any
}

func (f *fakePDS) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/xrpc/com.atproto.server.createSession", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Identifier string `json:"identifier"`
			Password   string `json:"password"`
		}
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&in))
		if in.Password != "app-password" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":   "AuthenticationRequired",
				"message": "Invalid identifier or password",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"accessJwt":  "access-token",
			"refreshJwt": "refresh-token",
			"handle":     "relay.example.com",
			"did":        "did:plc:relaybot",
		})
	})
	mux.HandleFunc("/xrpc/com.atproto.repo.createRecord", func(w http.ResponseWriter, r *http.Request) {
		f.lastAuth = r.Header.Get("Authorization")
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&f.lastBody))
		_ = json.NewEncoder(w).Encode(map[string]string{
			"uri": "at://did:plc:relaybot/place.stream.chat.message/3kabc",
			"cid": "bafyfake",
		})
	})
	return mux
}

func TestLoginEstablishesSession(t *testing.T) {
	pds := &fakePDS{t: t}
	ts := httptest.NewServer(pds.handler())
	defer ts.Close()

	c := NewClient(ts.URL)
	_, ok := c.Session()
	require.False(t, ok, "no session before login")

	sess, err := c.Login(context.Background(), "relay.example.com", "app-password")
	require.NoError(t, err)
	require.Equal(t, "did:plc:relaybot", sess.DID)
	require.Equal(t, "relay.example.com", sess.Handle)

	got, ok := c.Session()
	require.True(t, ok)
	require.Equal(t, sess, got)
}

func TestLoginFailure(t *testing.T) {
	pds := &fakePDS{t: t}
	ts := httptest.NewServer(pds.handler())
	defer ts.Close()

	c := NewClient(ts.URL)
	_, err := c.Login(context.Background(), "relay.example.com", "wrong")
	require.Error(t, err)

	_, ok := c.Session()
	require.False(t, ok, "failed login must not establish a session")
}

func TestSubmitRecord(t *testing.T) {
	pds := &fakePDS{t: t}
	ts := httptest.NewServer(pds.handler())
	defer ts.Close()

	c := NewClient(ts.URL)
	_, err := c.Login(context.Background(), "relay.example.com", "app-password")
	require.NoError(t, err)

	rec := NewChatMessage("Ana (Discord): hi", "did:plc:streamer", time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC))
	res, err := c.SubmitRecord(context.Background(), "did:plc:relaybot", rec)
	require.NoError(t, err)
	require.Equal(t, "at://did:plc:relaybot/place.stream.chat.message/3kabc", res.URI)
	require.Equal(t, "bafyfake", res.CID)

	require.Equal(t, "Bearer access-token", pds.lastAuth)
	require.Equal(t, "did:plc:relaybot", pds.lastBody["repo"])
	require.Equal(t, NSIDChatMessage, pds.lastBody["collection"])
	require.Equal(t, false, pds.lastBody["validate"])

	record, ok := pds.lastBody["record"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, NSIDChatMessage, record["$type"])
	require.Equal(t, "Ana (Discord): hi", record["text"])
	require.Equal(t, "did:plc:streamer", record["streamer"])
	require.Equal(t, "2026-03-14T15:09:26Z", record["createdAt"])
	require.NotContains(t, record, "facets")
	require.NotContains(t, record, "reply")
}
