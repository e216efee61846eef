package http

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/pyrechat/pyre-server/internal/auth"
	"github.com/pyrechat/pyre-server/internal/config"
	"github.com/pyrechat/pyre-server/internal/core"
)

// WSHandler upgrades HTTP connections, admits them with a bearer token and
// hands them to the session handler.
type WSHandler struct {
	sessions        *core.SessionHandler
	originPatterns  []string
	maxMessageBytes int64
	readTimeout     time.Duration
	writeTimeout    time.Duration
	log             *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(sessions *core.SessionHandler, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{
		sessions:        sessions,
		originPatterns:  originPatterns(cfg.AllowedOrigins),
		maxMessageBytes: cfg.MaxMessageBytes,
		readTimeout:     cfg.ReadTimeout,
		writeTimeout:    cfg.WriteTimeout,
		log:             logger,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	if h.maxMessageBytes > 0 {
		conn.SetReadLimit(h.maxMessageBytes)
	}

	sess := h.sessions.NewSession()
	if err := h.sessions.Admit(ctx, sess, tokenFromRequest(r)); err != nil {
		h.log.Info().
			Str("conn_id", sess.ID).
			Str("reason", auth.Reason(err)).
			Str("remote_addr", r.RemoteAddr).
			Msg("ws connection refused")
		_ = conn.Close(websocket.StatusPolicyViolation, "")
		return
	}

	stream := &wsStream{
		conn:         conn,
		readTimeout:  h.readTimeout,
		writeTimeout: h.writeTimeout,
	}

	if err := h.sessions.Serve(ctx, sess, stream); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "internal error")
		return
	}
	_ = conn.Close(websocket.StatusNormalClosure, "")
}

// tokenFromRequest reads the token from the "token" query parameter, falling
// back to an Authorization bearer header.
func tokenFromRequest(r *stdhttp.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	token, _ := bearerToken(r.Header.Get("Authorization"))
	return token
}

// wsStream adapts a WebSocket connection to core.Stream.
type wsStream struct {
	conn         *websocket.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// ReadText returns the next text frame; binary frames are skipped.
func (s *wsStream) ReadText(ctx context.Context) (string, error) {
	for {
		readCtx, cancel := withOptionalTimeout(ctx, s.readTimeout)
		typ, data, err := s.conn.Read(readCtx)
		cancel()
		if err != nil {
			return "", classifyStreamError("read", err)
		}
		if typ != websocket.MessageText {
			continue
		}
		return string(data), nil
	}
}

func (s *wsStream) WriteEvent(ctx context.Context, ev core.Event) error {
	writeCtx, cancel := withOptionalTimeout(ctx, s.writeTimeout)
	defer cancel()

	if err := wsjson.Write(writeCtx, s.conn, outboundFromEvent(ev)); err != nil {
		return classifyStreamError("write", err)
	}
	return nil
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
