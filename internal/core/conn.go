package core

import "sync"

// Conn is the registry's handle to one live connection. Outbound events
// are queued and drained by the transport writer; the queue is never
// closed, Done signals shutdown instead.
type Conn struct {
	ID       string
	Username string

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// NewConn constructs a connection with an outbound queue of queueSize events.
func NewConn(id, username string, queueSize int) *Conn {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Conn{
		ID:       id,
		Username: username,
		events:   make(chan Event, queueSize),
		done:     make(chan struct{}),
	}
}

// Send enqueues ev without blocking. It fails with ErrConnClosed after
// Close and with ErrQueueFull when the consumer is lagging.
func (c *Conn) Send(ev Event) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	select {
	case c.events <- ev:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		return ErrQueueFull
	}
}

// Events is the outbound queue.
func (c *Conn) Events() <-chan Event {
	return c.events
}

// Done is closed once the connection is closed.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Close marks the connection closed. Safe to call more than once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
