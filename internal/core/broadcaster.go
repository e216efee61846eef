package core

import (
	"errors"

	"github.com/rs/zerolog"
)

// Broadcaster fans events out to every member of a channel.
type Broadcaster struct {
	registry *Registry
	log      *zerolog.Logger
}

// NewBroadcaster builds a broadcaster over registry. A nil logger discards output.
func NewBroadcaster(registry *Registry, logger *zerolog.Logger) *Broadcaster {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Broadcaster{registry: registry, log: logger}
}

// Broadcast delivers one event built from the arguments to every current
// member of channel and returns how many deliveries were queued. A member
// that is closed or lagging loses this event only; the rest still get it.
func (b *Broadcaster) Broadcast(channel, username, content string, kind EventKind) int {
	members := b.registry.Members(channel)
	if len(members) == 0 {
		return 0
	}

	ev := Event{Kind: kind, Username: username, Content: content}
	delivered := 0
	for _, c := range members {
		if err := c.Send(ev); err != nil {
			level := b.log.Warn()
			if errors.Is(err, ErrConnClosed) {
				level = b.log.Debug()
			}
			level.Err(err).
				Str("channel", channel).
				Str("conn_id", c.ID).
				Str("kind", kind.String()).
				Msg("event dropped")
			continue
		}
		delivered++
	}
	return delivered
}

// Announce broadcasts a server-originated event, with no username, to
// every live channel.
func (b *Broadcaster) Announce(kind EventKind, content string) int {
	total := 0
	for _, channel := range b.registry.Channels() {
		total += b.Broadcast(channel, "", content, kind)
	}
	return total
}
