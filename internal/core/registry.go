package core

import (
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Registry tracks which connections belong to which channel. A channel
// exists only while it has at least one member.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]map[*Conn]struct{}
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string]map[*Conn]struct{}),
	}
}

// Join adds c to channel, creating the channel on first use. Returns true
// if c was not already a member.
func (r *Registry) Join(channel string, c *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.channels[channel]
	if !ok {
		members = make(map[*Conn]struct{})
		r.channels[channel] = members
	}
	if _, exists := members[c]; exists {
		return false
	}
	members[c] = struct{}{}
	return true
}

// Leave removes c from channel and drops the channel once empty. Returns
// true if c was a member; leaving an unknown channel is a no-op.
func (r *Registry) Leave(channel string, c *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.channels[channel]
	if !ok {
		return false
	}
	if _, exists := members[c]; !exists {
		return false
	}
	delete(members, c)
	if len(members) == 0 {
		delete(r.channels, channel)
	}
	return true
}

// Members returns a snapshot of channel's connections in no particular order.
func (r *Registry) Members(channel string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.channels[channel]
	if !ok {
		return nil
	}
	return lo.Keys(members)
}

// Len returns the number of members in channel.
func (r *Registry) Len(channel string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.channels[channel])
}

// Channels returns the names of all non-empty channels, sorted.
func (r *Registry) Channels() []string {
	r.mu.RLock()
	names := lo.Keys(r.channels)
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}
