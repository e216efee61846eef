package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/coder/websocket"

	"github.com/pyrechat/pyre-server/internal/core"
	"github.com/pyrechat/pyre-server/internal/proto"
)

func outboundFromEvent(ev core.Event) proto.Event {
	return proto.Event{
		Type:     ev.Kind.String(),
		Username: ev.Username,
		Content:  ev.Content,
	}
}

// classifyStreamError marks peer departures with core.ErrDisconnected and
// leaves every other failure as is. A close frame from the peer is a
// departure whatever its status code.
func classifyStreamError(op string, err error) error {
	var closeErr websocket.CloseError
	if errors.As(err, &closeErr) {
		return fmt.Errorf("%s: %w: %w", op, core.ErrDisconnected, err)
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, syscall.ECONNRESET) {
		return fmt.Errorf("%s: %w: %w", op, core.ErrDisconnected, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s timeout: %w", op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
