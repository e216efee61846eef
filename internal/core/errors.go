package core

import "errors"

var (
	// ErrConnClosed is returned when sending to a connection that has been closed.
	ErrConnClosed = errors.New("connection closed")
	// ErrQueueFull is returned when a connection's outbound queue has no room.
	ErrQueueFull = errors.New("outbound queue full")
	// ErrDisconnected marks a read or write that ended because the peer went
	// away. Stream implementations wrap it so sessions can tell an orderly
	// departure from a transport failure.
	ErrDisconnected = errors.New("peer disconnected")
	// ErrNotAdmitted is returned by Serve for a session that did not pass Admit.
	ErrNotAdmitted = errors.New("session not admitted")
)
