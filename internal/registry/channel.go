package registry

import (
	"sync"
	"time"

	"github.com/tux3/catboxd/internal/modes"
)

// Topic holds a channel's topic text and who set it and when. The zero
// value means "no topic is set".
type Topic struct {
	Text      string
	SetByHost string
	SetAt     time.Time
}

// Channel is a named channel and its membership. A Channel is owned solely
// by the registry's by_channel map; everything else holds a non-owning
// pointer to it.
type Channel struct {
	// Name preserves the case of the first JOIN that created the channel.
	Name string

	Created time.Time

	membersMu sync.RWMutex
	members   map[string]*Connection // addr -> connection

	topicMu sync.Mutex
	topic   Topic

	modeMu sync.Mutex
	mode   modes.Channel
}

// NewChannel returns an empty channel named name.
func NewChannel(name string, createdUnix int64) *Channel {
	return &Channel{
		Name:    name,
		Created: time.Unix(createdUnix, 0),
		members: make(map[string]*Connection),
	}
}

// AddMember inserts conn into the channel's membership, keyed by its
// address. It is a caller error to add the same address twice; where
// idempotence matters (JOIN), Connection.JoinChannel checks the
// connection's own channel map first.
func (c *Channel) AddMember(conn *Connection) {
	c.membersMu.Lock()
	defer c.membersMu.Unlock()
	c.members[conn.Addr] = conn
}

// RemoveMember removes the connection at addr from the membership.
func (c *Channel) RemoveMember(addr string) {
	c.membersMu.Lock()
	defer c.membersMu.Unlock()
	delete(c.members, addr)
}

// IsMember reports whether addr currently belongs to the channel.
func (c *Channel) IsMember(addr string) bool {
	c.membersMu.RLock()
	defer c.membersMu.RUnlock()
	_, ok := c.members[addr]
	return ok
}

// Members returns a snapshot slice of the channel's current members. This
// is how broadcast collects its targets: a single pass of the members
// lock, then the lock is released before any socket write happens.
func (c *Channel) Members() []*Connection {
	c.membersMu.RLock()
	defer c.membersMu.RUnlock()
	out := make([]*Connection, 0, len(c.members))
	for _, conn := range c.members {
		out = append(out, conn)
	}
	return out
}

// MemberCount returns the number of current members.
func (c *Channel) MemberCount() int {
	c.membersMu.RLock()
	defer c.membersMu.RUnlock()
	return len(c.members)
}

// Topic returns the channel's current topic.
func (c *Channel) Topic() Topic {
	c.topicMu.Lock()
	defer c.topicMu.Unlock()
	return c.topic
}

// SetTopic replaces the channel's topic. An empty text clears it.
func (c *Channel) SetTopic(t Topic) {
	c.topicMu.Lock()
	defer c.topicMu.Unlock()
	c.topic = t
}

// Mode returns a copy of the channel's current mode record.
func (c *Channel) Mode() modes.Channel {
	c.modeMu.Lock()
	defer c.modeMu.Unlock()
	return c.mode
}

// ApplyMode applies modestring to the channel's mode record and returns the
// minimal applied-modestring echo plus any unknown letters.
func (c *Channel) ApplyMode(modestring string) (applied string, unknown []byte) {
	c.modeMu.Lock()
	defer c.modeMu.Unlock()
	return modes.ApplyChannel(&c.mode, modestring)
}
