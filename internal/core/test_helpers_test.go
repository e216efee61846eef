package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// nextEvent returns the next event from ch or fails after two seconds.
func nextEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()

	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("expected an event, none received")
		return Event{}
	}
}

// mustEvent skips events until one of kind arrives.
func mustEvent(t *testing.T, ch <-chan Event, kind EventKind) Event {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("expected event kind %v not received", kind)
			return Event{}
		}
	}
}

func expectNoEvent(t *testing.T, ch <-chan Event) {
	t.Helper()

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

// fakeStream is an in-memory Stream. Frames pushed to inbound are read in
// order; closing inbound behaves like an orderly peer disconnect.
type fakeStream struct {
	inbound  chan string
	failures chan error
	written  chan Event
	writeErr error
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		inbound:  make(chan string, 64),
		failures: make(chan error, 1),
		written:  make(chan Event, 256),
	}
}

func (f *fakeStream) ReadText(ctx context.Context) (string, error) {
	select {
	case text, ok := <-f.inbound:
		if !ok {
			return "", fmt.Errorf("read: %w", ErrDisconnected)
		}
		return text, nil
	case err := <-f.failures:
		return "", err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (f *fakeStream) WriteEvent(_ context.Context, ev Event) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written <- ev
	return nil
}

type staticVerifier map[string]string

var errBadToken = errors.New("bad token")

func (v staticVerifier) Verify(_ context.Context, token string) (string, error) {
	if username, ok := v[token]; ok {
		return username, nil
	}
	return "", errBadToken
}
