package relay

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/espeon/distosp/pkg/atproto"
	"github.com/espeon/distosp/pkg/directory"
)

// ErrChannelNotMapped means the inbound channel has no destination
// mapping. This is an expected, frequent outcome for channels never
// intended to be forwarded; callers must not log it at error severity.
var ErrChannelNotMapped = errors.New("channel has no destination mapping")

// ErrNoActiveSession means the outbound client is not logged in. The
// message is dropped, not queued.
var ErrNoActiveSession = errors.New("no active session")

// SubmissionError wraps a transport or validation error returned by the
// record store during submission.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string { return "record submission failed: " + e.Err.Error() }
func (e *SubmissionError) Unwrap() error { return e.Err }

// SessionProvider exposes the active outbound session, if any.
type SessionProvider interface {
	Session() (atproto.Session, bool)
}

// RecordSubmitter submits a chat message record to the owner's repository.
type RecordSubmitter interface {
	SubmitRecord(ctx context.Context, owner string, rec atproto.ChatMessage) (atproto.SubmitResult, error)
}

// Forwarder orchestrates the per-message relay pipeline: skip decision,
// transformation, directory lookup, record construction and submission.
//
// Each Handle invocation is independent; invocations may run concurrently
// without shared mutable state beyond the read-only directory and the
// shared session. No retry is performed anywhere: a single failure drops
// exactly one message and the relay continues with the next event.
type Forwarder struct {
	dir       *directory.Directory
	sessions  SessionProvider
	submitter RecordSubmitter
	// prefix is the command prefix; messages starting with it are command
	// chatter and are never forwarded.
	prefix string
	log    zerolog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// NewForwarder wires the forwarding coordinator. commandPrefix may be
// empty to disable prefix skipping.
func NewForwarder(
	dir *directory.Directory,
	sessions SessionProvider,
	submitter RecordSubmitter,
	commandPrefix string,
	log zerolog.Logger,
) *Forwarder {
	return &Forwarder{
		dir:       dir,
		sessions:  sessions,
		submitter: submitter,
		prefix:    commandPrefix,
		log:       log.With().Str("component", "forwarder").Logger(),
		tracer:    otel.Tracer("github.com/espeon/distosp/pkg/relay"),
		now:       time.Now,
	}
}

// Handle relays a single inbound message. A nil return means the message
// was either forwarded or intentionally skipped (automated author, command
// prefix, empty content). ErrChannelNotMapped, ErrNoActiveSession and
// *SubmissionError report the non-skip outcomes; none of them affect
// subsequent messages.
func (f *Forwarder) Handle(ctx context.Context, msg Message, roles RoleResolver) error {
	eventID := msg.ID
	if eventID == "" {
		eventID = uuid.NewString()
	}

	guild := msg.GuildID
	if guild == "" {
		guild = "dm"
	}

	ctx, span := f.tracer.Start(ctx, "relay.forward", trace.WithAttributes(
		attribute.String("relay.message_id", eventID),
		attribute.String("relay.channel_id", msg.ChannelID),
		attribute.String("relay.guild_id", guild),
		attribute.String("relay.author", msg.Author.DisplayName),
		attribute.Int("relay.content_length", len(msg.Text)),
		attribute.Int("relay.attachment_count", msg.AttachmentCount),
	))
	defer span.End()

	log := f.log.With().
		Str("message_id", eventID).
		Str("channel_id", msg.ChannelID).
		Str("author", msg.Author.DisplayName).
		Logger()

	if msg.Author.Automated || (f.prefix != "" && strings.HasPrefix(msg.Text, f.prefix)) {
		span.SetAttributes(attribute.String("relay.skip_reason", "bot_or_command"))
		log.Debug().
			Bool("author_automated", msg.Author.Automated).
			Msg("Skipping bot message or command")
		return nil
	}

	text, err := Transform(msg, roles)
	if err != nil || strings.TrimSpace(text) == "" {
		span.SetAttributes(attribute.String("relay.skip_reason", "empty_content"))
		log.Debug().Msg("Skipping message with no forwardable content")
		return nil
	}
	span.SetAttributes(attribute.Int("relay.formatted_length", len(text)))

	destination, ok := f.dir.Resolve(msg.ChannelID)
	if !ok {
		span.SetAttributes(attribute.String("relay.skip_reason", "channel_not_mapped"))
		return ErrChannelNotMapped
	}
	span.SetAttributes(attribute.String("relay.destination_did", destination))

	sess, ok := f.sessions.Session()
	if !ok {
		span.SetStatus(codes.Error, "no active session")
		return ErrNoActiveSession
	}

	rec := atproto.NewChatMessage(text, destination, f.now())

	result, err := f.submitter.SubmitRecord(ctx, sess.DID, rec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission failed")
		return &SubmissionError{Err: err}
	}

	span.SetAttributes(
		attribute.String("relay.record_uri", result.URI),
		attribute.String("relay.record_cid", result.CID),
	)
	log.Info().
		Str("destination", destination).
		Str("uri", result.URI).
		Str("cid", result.CID).
		Msg("Forwarded message")
	return nil
}
