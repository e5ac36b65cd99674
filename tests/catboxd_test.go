// Package tests drives catboxd end to end over real TCP sockets, the way
// the teacher's own tests/mode_test.go exercises the wire protocol rather
// than calling package internals directly.
package tests

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tux3/catboxd/ircd"
)

type testServer struct {
	addr string
}

func startServer(t *testing.T, cb ircd.Callbacks) (*testServer, func()) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var settings ircd.Settings
	settings.Session.ServerName = "irc.example.test"
	settings.Session.NetworkName = "ExampleNet"
	settings.Session.Version = "catboxd-test"
	settings.Session.CreationTime = time.Unix(0, 0)
	settings.Session.MaxNameLength = 16
	settings.Session.MaxChannelLength = 32
	settings.Session.MaxTopicLength = 64
	settings.Session.ChanLimit = 10
	settings.Session.AllowChannelCreation = true

	server, err := ircd.New(settings, cb)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = server.Serve(ctx, ln)
	}()

	return &testServer{addr: ln.Addr().String()}, cancel
}

type client struct {
	conn   net.Conn
	reader *bufio.Reader
}

func dial(t *testing.T, addr string) *client {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	return &client{conn: conn, reader: bufio.NewReader(conn)}
}

func (c *client) send(line string) {
	_, _ = c.conn.Write([]byte(line + "\r\n"))
}

func (c *client) readLine(t *testing.T) string {
	t.Helper()
	line, err := c.reader.ReadString('\n')
	require.NoError(t, err)
	return line
}

// numeric extracts the three-digit reply code from a raw line of the form
// ":server 001 nick :text".
func numeric(t *testing.T, line string) string {
	t.Helper()
	var prefix, code, rest string
	n, err := fmt.Sscanf(line, "%s %s", &prefix, &code)
	_ = rest
	require.NoError(t, err)
	require.Equal(t, 2, n)
	return code
}

func register(t *testing.T, c *client, nick, user string) {
	t.Helper()
	c.send("NICK " + nick)
	c.send("USER " + user + " 0 * :" + user + " Real Name")
}

func TestWelcomeBurst(t *testing.T) {
	srv, stop := startServer(t, ircd.Callbacks{})
	defer stop()

	c := dial(t, srv.addr)
	defer c.conn.Close()

	register(t, c, "alice", "alice")

	want := []string{"001", "002", "003", "004", "005",
		"251", "252", "253", "254", "255", "265", "266", "422"}
	for _, code := range want {
		line := c.readLine(t)
		require.Equal(t, code, numeric(t, line), "line: %s", line)
	}
}

func TestJoinAndMessage(t *testing.T) {
	srv, stop := startServer(t, ircd.Callbacks{})
	defer stop()

	alice := dial(t, srv.addr)
	defer alice.conn.Close()
	bob := dial(t, srv.addr)
	defer bob.conn.Close()

	register(t, alice, "alice", "alice")
	drainWelcome(t, alice)
	register(t, bob, "bob", "bob")
	drainWelcome(t, bob)

	alice.send("JOIN #test")
	line := alice.readLine(t)
	require.Contains(t, line, "JOIN #test")
	drainUntilNumeric(t, alice, "366")

	bob.send("JOIN #test")
	// alice sees bob's join broadcast.
	line = alice.readLine(t)
	require.Contains(t, line, "JOIN #test")
	require.Contains(t, line, "bob")
	drainUntilNumeric(t, bob, "366")

	alice.send("PRIVMSG #test :hello there")
	line = bob.readLine(t)
	require.Contains(t, line, "PRIVMSG #test :hello there")
}

func TestNickCollision(t *testing.T) {
	srv, stop := startServer(t, ircd.Callbacks{})
	defer stop()

	alice := dial(t, srv.addr)
	defer alice.conn.Close()
	register(t, alice, "alice", "alice")
	drainWelcome(t, alice)

	bob := dial(t, srv.addr)
	defer bob.conn.Close()
	bob.send("NICK alice")
	line := bob.readLine(t)
	require.Equal(t, "433", numeric(t, line))
}

func TestPartDestroysChannel(t *testing.T) {
	srv, stop := startServer(t, ircd.Callbacks{})
	defer stop()

	alice := dial(t, srv.addr)
	defer alice.conn.Close()
	register(t, alice, "alice", "alice")
	drainWelcome(t, alice)

	alice.send("JOIN #empty")
	alice.readLine(t)
	drainUntilNumeric(t, alice, "366")

	alice.send("PART #empty")
	line := alice.readLine(t)
	require.Contains(t, line, "PART #empty")

	// The channel is gone: TOPIC on it now answers ERR_NOSUCHCHANNEL.
	alice.send("TOPIC #empty")
	line = alice.readLine(t)
	require.Equal(t, "403", numeric(t, line))
}

func TestQuitBroadcasts(t *testing.T) {
	srv, stop := startServer(t, ircd.Callbacks{})
	defer stop()

	alice := dial(t, srv.addr)
	defer alice.conn.Close()
	bob := dial(t, srv.addr)
	defer bob.conn.Close()

	register(t, alice, "alice", "alice")
	drainWelcome(t, alice)
	register(t, bob, "bob", "bob")
	drainWelcome(t, bob)

	alice.send("JOIN #room")
	alice.readLine(t)
	drainUntilNumeric(t, alice, "366")
	bob.send("JOIN #room")
	alice.readLine(t)
	drainUntilNumeric(t, bob, "366")

	bob.send("QUIT :goodbye")
	line := alice.readLine(t)
	require.Contains(t, line, "QUIT :goodbye")
}

func TestPing(t *testing.T) {
	srv, stop := startServer(t, ircd.Callbacks{})
	defer stop()

	c := dial(t, srv.addr)
	defer c.conn.Close()
	register(t, c, "alice", "alice")
	drainWelcome(t, c)

	c.send("PING :token123")
	line := c.readLine(t)
	require.Contains(t, line, "PONG")
	require.Contains(t, line, "token123")
}

func drainWelcome(t *testing.T, c *client) {
	t.Helper()
	for i := 0; i < 13; i++ {
		c.readLine(t)
	}
}

func drainUntilNumeric(t *testing.T, c *client, code string) {
	t.Helper()
	for {
		line := c.readLine(t)
		if len(line) > 0 {
			var prefix, got string
			if n, _ := fmt.Sscanf(line, "%s %s", &prefix, &got); n == 2 && got == code {
				return
			}
		}
	}
}
