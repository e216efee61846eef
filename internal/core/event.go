package core

import "fmt"

// EventKind labels what an Event describes. The value is the literal
// string sent on the wire.
type EventKind string

const (
	// KindMessage is a chat message from a user.
	KindMessage EventKind = "message"
	// KindNotification is a notice addressed to users.
	KindNotification EventKind = "notification"
	// KindError reports a failure in some user's session.
	KindError EventKind = "error"
	// KindUserJoined announces that a user entered the channel.
	KindUserJoined EventKind = "user_joined"
	// KindUserLeft announces that a user left the channel.
	KindUserLeft EventKind = "user_left"
	// KindSystem is a server-originated announcement.
	KindSystem EventKind = "system"
)

func (k EventKind) String() string {
	return string(k)
}

// Valid reports whether k is one of the known kinds.
func (k EventKind) Valid() bool {
	switch k {
	case KindMessage, KindNotification, KindError, KindUserJoined, KindUserLeft, KindSystem:
		return true
	default:
		return false
	}
}

// Event is the unit fanned out to channel members. It is passed by value;
// every recipient owns its copy.
type Event struct {
	Kind     EventKind
	Username string
	Content  string
}

// JoinedContent is the announcement body for a user joining.
func JoinedContent(username string) string {
	return fmt.Sprintf("%s Joined the chat!", username)
}

// LeftContent is the announcement body for a user leaving.
func LeftContent(username string) string {
	return fmt.Sprintf("%s Left the chat!", username)
}
