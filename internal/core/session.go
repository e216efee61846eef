package core

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// State is a step in a session's lifecycle.
type State int32

const (
	StateConnecting State = iota
	StateAdmitting
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAdmitting:
		return "admitting"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

const rateLimitNotice = "Rate limit exceeded, message not delivered"

// Verifier maps a bearer token to the username it was issued for.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// Stream is one bidirectional connection as seen by a session. ReadText
// blocks for the next inbound text frame. Both methods wrap
// ErrDisconnected when the peer closed the connection in an orderly way.
type Stream interface {
	ReadText(ctx context.Context) (string, error)
	WriteEvent(ctx context.Context, ev Event) error
}

// SessionConfig tunes the session handler.
type SessionConfig struct {
	// Channel is the channel every admitted session joins.
	Channel string
	// QueueSize bounds each connection's outbound queue.
	QueueSize int
	// RateLimitPerMinute caps inbound messages per connection; 0 disables.
	RateLimitPerMinute int
}

// Session pairs a live connection with its verified user.
type Session struct {
	ID       string
	Username string

	conn  *Conn
	state atomic.Int32
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// SessionHandler drives sessions through admission, membership and
// teardown using a shared Registry and Broadcaster.
type SessionHandler struct {
	registry    *Registry
	broadcaster *Broadcaster
	verifier    Verifier
	cfg         SessionConfig
	log         *zerolog.Logger
}

// NewSessionHandler wires a handler. A nil logger discards output.
func NewSessionHandler(registry *Registry, broadcaster *Broadcaster, verifier Verifier, cfg SessionConfig, logger *zerolog.Logger) *SessionHandler {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &SessionHandler{
		registry:    registry,
		broadcaster: broadcaster,
		verifier:    verifier,
		cfg:         cfg,
		log:         logger,
	}
}

// Channel returns the channel sessions join.
func (h *SessionHandler) Channel() string {
	return h.cfg.Channel
}

// NewSession creates a session for a freshly accepted connection. It stays
// in StateConnecting until Admit.
func (h *SessionHandler) NewSession() *Session {
	s := &Session{ID: uuid.NewString()}
	s.setState(StateConnecting)
	return s
}

// Admit verifies token and binds sess to the user it was issued for. Any
// error means the connection must be refused; sess is then closed.
func (h *SessionHandler) Admit(ctx context.Context, sess *Session, token string) error {
	sess.setState(StateAdmitting)

	username, err := h.verifier.Verify(ctx, token)
	if err != nil {
		sess.setState(StateClosed)
		h.log.Info().Err(err).Str("conn_id", sess.ID).Str("channel", h.cfg.Channel).Msg("admission rejected")
		return err
	}

	sess.Username = username
	sess.conn = NewConn(sess.ID, username, h.cfg.QueueSize)
	return nil
}

// Serve runs an admitted session until the peer leaves, the stream fails
// or ctx is cancelled. On every exit the connection leaves the channel and
// a user_left event is broadcast; a stream failure is additionally
// broadcast as an error event and returned. An orderly departure returns nil.
func (h *SessionHandler) Serve(ctx context.Context, sess *Session, stream Stream) (err error) {
	if sess.conn == nil || sess.State() != StateAdmitting {
		return fmt.Errorf("serve session %s in state %s: %w", sess.ID, sess.State(), ErrNotAdmitted)
	}

	channel := h.cfg.Channel
	log := h.log.With().
		Str("conn_id", sess.ID).
		Str("username", sess.Username).
		Str("channel", channel).
		Logger()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(ctx, cancel, sess.conn, stream)
	}()

	h.registry.Join(channel, sess.conn)
	sess.setState(StateActive)
	log.Info().Msg("session active")

	defer func() {
		sess.setState(StateClosing)
		h.registry.Leave(channel, sess.conn)
		if err != nil {
			log.Warn().Err(err).Msg("session failed")
			h.broadcaster.Broadcast(channel, sess.Username, err.Error(), KindError)
		}
		h.broadcaster.Broadcast(channel, sess.Username, LeftContent(sess.Username), KindUserLeft)

		sess.conn.Close()
		cancel(nil)
		<-writerDone
		sess.setState(StateClosed)
		log.Info().Msg("session closed")
	}()

	h.broadcaster.Broadcast(channel, sess.Username, JoinedContent(sess.Username), KindUserJoined)

	limiter := newRateLimiter(h.cfg.RateLimitPerMinute)
	for {
		text, readErr := stream.ReadText(ctx)
		if readErr != nil {
			return exitError(ctx, readErr)
		}

		if !limiter.allow(time.Now()) {
			log.Debug().Msg("message dropped by rate limit")
			notice := Event{
				Kind:     KindNotification,
				Username: sess.Username,
				Content:  rateLimitNotice,
			}
			if sendErr := sess.conn.Send(notice); sendErr != nil {
				log.Debug().Err(sendErr).Msg("rate limit notice dropped")
			}
			continue
		}

		h.broadcaster.Broadcast(channel, sess.Username, text, KindMessage)
	}
}

// writeLoop drains the connection queue to the stream in FIFO order. A
// write failure cancels the session with the failure as cause.
func (h *SessionHandler) writeLoop(ctx context.Context, cancel context.CancelCauseFunc, conn *Conn, stream Stream) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-conn.Done():
			return
		case ev := <-conn.Events():
			if err := stream.WriteEvent(ctx, ev); err != nil {
				if errors.Is(err, ErrDisconnected) {
					cancel(err)
				} else {
					cancel(fmt.Errorf("write event: %w", err))
				}
				return
			}
		}
	}
}

// WaitIdle blocks until no channel has members or ctx is done.
func (h *SessionHandler) WaitIdle(ctx context.Context) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		if len(h.registry.Channels()) == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// exitError decides how a session ended. Orderly departures and server
// cancellation yield nil; anything else is returned as the failure.
func exitError(ctx context.Context, readErr error) error {
	if ctx.Err() != nil {
		cause := context.Cause(ctx)
		if cause == nil || errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) || errors.Is(cause, ErrDisconnected) {
			return nil
		}
		return cause
	}
	if errors.Is(readErr, ErrDisconnected) {
		return nil
	}
	return readErr
}
