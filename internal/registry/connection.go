package registry

import (
	"bufio"
	"net"
	"sync"

	"github.com/tux3/catboxd/internal/irc"
	"github.com/tux3/catboxd/internal/modes"
)

// Status is the registration state of a Connection.
type Status int

// The two states a Connection can be in. There is no intermediate "closing"
// state modeled here: a fatal error simply ends the reader loop, and
// teardown runs once from there regardless of Status.
const (
	Unregistered Status = iota
	Registered
)

// Identity holds the nick/user/realname a connection has presented so far.
// All three fields are set before registration can complete.
type Identity struct {
	Nick     string
	User     string
	RealName string
}

// Connection represents one accepted socket, registered or not. A
// Connection is owned solely by the goroutine running its session; the
// registry's by_addr/by_nick maps and any Channel's members map hold
// non-owning pointers to it.
type Connection struct {
	// Addr is the remote peer address string, e.g. "203.0.113.7:51984". It
	// is the connection's unique key in by_addr and never changes.
	Addr string
	Host string // just the IP portion of Addr, used in the extended prefix

	conn net.Conn

	writerMu sync.Mutex
	writer   *bufio.Writer

	stateMu  sync.Mutex
	status   Status
	identity Identity

	modeMu sync.Mutex
	mode   modes.User

	channelsMu sync.RWMutex
	channels   map[string]*Channel // uppercased name -> channel
}

// NewConnection wraps an accepted net.Conn.
func NewConnection(conn net.Conn) *Connection {
	addr := conn.RemoteAddr().String()
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	return &Connection{
		Addr:     addr,
		Host:     host,
		conn:     conn,
		writer:   bufio.NewWriter(conn),
		channels: make(map[string]*Channel),
	}
}

// Conn returns the underlying net.Conn, for reading and for TLS/peer
// inspection by the server orchestrator.
func (c *Connection) Conn() net.Conn { return c.conn }

// Send serialises msg and writes it under the writer lock, flushing so
// that bytes of one message are never interleaved with another. It
// reports the write error, if any.
func (c *Connection) Send(msg irc.Message) error {
	line := msg.Encode()
	c.writerMu.Lock()
	defer c.writerMu.Unlock()
	if _, err := c.writer.WriteString(line); err != nil {
		return err
	}
	return c.writer.Flush()
}

// SendAll sends each message in order, stopping at the first failure.
func (c *Connection) SendAll(msgs []irc.Message) error {
	for _, m := range msgs {
		if err := c.Send(m); err != nil {
			return err
		}
	}
	return nil
}

// Broadcast sends msg once to each distinct peer in the union of the
// connection's joined channels, optionally to itself first. A peer already
// sent to (because it shares more than one channel with the sender) is
// sent to only once.
//
// Per the lock-ordering rule, each channel's members are snapshotted under
// that channel's own lock and the lock is released before any socket
// write happens; no channel lock is held while writing or while waiting on
// another channel's lock.
func (c *Connection) Broadcast(msg irc.Message, includeSelf bool) error {
	sent := make(map[string]bool)
	sent[c.Addr] = true

	if includeSelf {
		if err := c.Send(msg); err != nil {
			return err
		}
	}

	for _, ch := range c.Channels() {
		for _, member := range ch.Members() {
			if sent[member.Addr] {
				continue
			}
			sent[member.Addr] = true
			if err := member.Send(msg); err != nil {
				return err
			}
		}
	}

	return nil
}

// Status returns the connection's current registration status.
func (c *Connection) Status() Status {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.status
}

// Identity returns a copy of the connection's presented identity fields.
func (c *Connection) Identity() Identity {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.identity
}

// SetNick stashes the presented nick (pre-registration) without claiming
// it in by_nick; claiming happens in session.TryBeginRegistration or
// Registry.RekeyNick.
func (c *Connection) SetNick(nick string) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.identity.Nick = nick
}

// SetUser stashes the presented username and realname.
func (c *Connection) SetUser(user, realName string) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.identity.User = user
	c.identity.RealName = realName
}

// ReadyToRegister reports whether nick, user and realname have all been
// presented.
func (c *Connection) ReadyToRegister() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.identity.Nick != "" && c.identity.User != "" && c.identity.RealName != ""
}

// MarkRegistered transitions the connection to Registered. Callers must
// have already claimed the nick in by_nick.
func (c *Connection) MarkRegistered() {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.status = Registered
}

// Mode returns a copy of the connection's current user mode.
func (c *Connection) Mode() modes.User {
	c.modeMu.Lock()
	defer c.modeMu.Unlock()
	return c.mode
}

// ApplyMode applies modestring to the connection's user mode record.
func (c *Connection) ApplyMode(modestring string) (applied string, unknown []byte) {
	c.modeMu.Lock()
	defer c.modeMu.Unlock()
	return modes.ApplyUser(&c.mode, modestring)
}

// ExtendedPrefix renders the nick!user@host form used as message source
// for a registered connection's own traffic.
func (c *Connection) ExtendedPrefix() string {
	id := c.Identity()
	return id.Nick + "!" + id.User + "@" + c.Host
}

// JoinChannel adds ch to both sides of the membership, unless the
// connection already belongs to it (idempotent per connection).
func (c *Connection) JoinChannel(ch *Channel) (joined bool) {
	key := Fold(ch.Name)

	c.channelsMu.Lock()
	if _, already := c.channels[key]; already {
		c.channelsMu.Unlock()
		return false
	}
	c.channels[key] = ch
	c.channelsMu.Unlock()

	ch.AddMember(c)
	return true
}

// PartChannel removes ch from both sides of the membership.
func (c *Connection) PartChannel(ch *Channel) {
	key := Fold(ch.Name)
	c.channelsMu.Lock()
	delete(c.channels, key)
	c.channelsMu.Unlock()

	ch.RemoveMember(c.Addr)
}

// InChannel reports whether the connection currently belongs to ch.
func (c *Connection) InChannel(ch *Channel) bool {
	key := Fold(ch.Name)
	c.channelsMu.RLock()
	defer c.channelsMu.RUnlock()
	_, ok := c.channels[key]
	return ok
}

// ChannelCount returns how many channels the connection currently belongs
// to, for chan_limit enforcement.
func (c *Connection) ChannelCount() int {
	c.channelsMu.RLock()
	defer c.channelsMu.RUnlock()
	return len(c.channels)
}

// Channels returns a snapshot slice of the connection's joined channels.
func (c *Connection) Channels() []*Channel {
	c.channelsMu.RLock()
	defer c.channelsMu.RUnlock()
	out := make([]*Channel, 0, len(c.channels))
	for _, ch := range c.channels {
		out = append(out, ch)
	}
	return out
}

// ClearChannels empties the connection's channel membership without
// touching the channels' own member lists; used during teardown after the
// caller has already removed the connection from each channel.
func (c *Connection) ClearChannels() {
	c.channelsMu.Lock()
	defer c.channelsMu.Unlock()
	c.channels = make(map[string]*Channel)
}

// CloseUnderlying closes the underlying socket. It is safe to call more
// than once.
func (c *Connection) CloseUnderlying() error {
	return c.conn.Close()
}
