package registry

import (
	"net"
	"testing"

	"github.com/tux3/catboxd/internal/irc"
)

type pipeAddr struct{ s string }

func (a pipeAddr) Network() string { return "tcp" }
func (a pipeAddr) String() string  { return a.s }

// fakeConn is a minimal net.Conn for exercising Connection without a real
// socket.
type fakeConn struct {
	net.Conn
	addr string
	buf  []byte
}

func (f *fakeConn) RemoteAddr() net.Addr         { return pipeAddr{f.addr} }
func (f *fakeConn) Write(b []byte) (int, error)  { f.buf = append(f.buf, b...); return len(b), nil }
func (f *fakeConn) Close() error                 { return nil }

func newTestConnection(addr string) *Connection {
	return NewConnection(&fakeConn{addr: addr})
}

func TestClaimNick(t *testing.T) {
	r := New()
	a := newTestConnection("1.2.3.4:1")
	b := newTestConnection("1.2.3.4:2")

	if !r.ClaimNick("rachel", a) {
		t.Fatalf("first claim should succeed")
	}
	if r.ClaimNick("RACHEL", b) {
		t.Fatalf("second claim of a case-folded duplicate should fail")
	}
	if r.LookupNick("rachel") != a {
		t.Fatalf("lookup should find the first claimant")
	}
}

func TestRekeyNick(t *testing.T) {
	r := New()
	a := newTestConnection("1.2.3.4:1")
	r.ClaimNick("old", a)

	if !r.RekeyNick("old", "new", a) {
		t.Fatalf("rekey should succeed")
	}
	if r.LookupNick("old") != nil {
		t.Fatalf("old key should be gone")
	}
	if r.LookupNick("new") != a {
		t.Fatalf("new key should resolve to the same connection")
	}
}

func TestEnsureChannelIdempotent(t *testing.T) {
	r := New()
	ch1, created1 := r.EnsureChannel("#test", 0)
	ch2, created2 := r.EnsureChannel("#TEST", 0)

	if !created1 || created2 {
		t.Fatalf("expected created=true,false got %v,%v", created1, created2)
	}
	if ch1 != ch2 {
		t.Fatalf("folded lookups should resolve to the same channel")
	}
}

func TestJoinPartMembership(t *testing.T) {
	r := New()
	ch, _ := r.EnsureChannel("#test", 0)
	a := newTestConnection("1.2.3.4:1")

	if !a.JoinChannel(ch) {
		t.Fatalf("first join should succeed")
	}
	if a.JoinChannel(ch) {
		t.Fatalf("second join to the same channel should be a no-op")
	}
	if !ch.IsMember(a.Addr) {
		t.Fatalf("channel should see a as a member")
	}

	a.PartChannel(ch)
	if ch.IsMember(a.Addr) {
		t.Fatalf("channel should no longer see a as a member")
	}
	if r.RemoveChannelIfEmpty("#test") != true {
		t.Fatalf("empty channel should be removable")
	}
	if r.LookupChannel("#test") != nil {
		t.Fatalf("removed channel should no longer be found")
	}
}

func TestBroadcastSkipsDuplicatePeers(t *testing.T) {
	r := New()
	chA, _ := r.EnsureChannel("#a", 0)
	chB, _ := r.EnsureChannel("#b", 0)

	sender := newTestConnection("1.1.1.1:1")
	peer := newTestConnection("2.2.2.2:2")

	sender.JoinChannel(chA)
	sender.JoinChannel(chB)
	peer.JoinChannel(chA)
	peer.JoinChannel(chB)

	writes := 0
	peerConn := peer.conn.(*fakeConn)
	_ = peerConn

	if err := sender.Broadcast(mustEncodeHelloMessage(), false); err != nil {
		t.Fatalf("broadcast failed: %v", err)
	}

	// peer shares two channels with sender but must receive the message once.
	buf := peer.conn.(*fakeConn).buf
	if n := countOccurrences(string(buf), "HELLO"); n != 1 {
		t.Fatalf("peer received the broadcast %d times, wanted 1", n)
	}
	_ = writes
}

func mustEncodeHelloMessage() irc.Message {
	return irc.Message{Command: "HELLO"}
}

func countOccurrences(haystack, needle string) int {
	count := 0
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			count++
			i += len(needle) - 1
		}
	}
	return count
}
