// Package registry implements the three process-wide coordinated maps that
// the server uses to route messages: accepted sockets by address,
// registered users by uppercased nick, and channels by uppercased name.
//
// Go has no weak pointers, so the "non-owning reference" rule the original
// design calls for is enforced by discipline rather than by the type
// system: by_channel is the sole owner of a Channel, and the per-connection
// goroutine is the sole owner of a Connection. Every other map (by_nick,
// a channel's members, a connection's channels) stores the same pointer
// without extending its lifetime, and removal from the owning map always
// happens before the corresponding membership is cleared, so a goroutine
// that walks a membership map never observes a reference whose owner has
// already gone away without also observing its removal.
package registry

import (
	"strings"
	"sync"
)

// Registry holds the three coordinated maps. The zero value is not usable;
// construct with New.
type Registry struct {
	addrMu sync.Mutex
	byAddr map[string]*Connection

	nickMu sync.RWMutex
	byNick map[string]*Connection

	chanMu    sync.Mutex
	byChannel map[string]*Channel
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		byAddr:    make(map[string]*Connection),
		byNick:    make(map[string]*Connection),
		byChannel: make(map[string]*Channel),
	}
}

// Fold uppercases a nick or channel name using ASCII case folding, per
// CASEMAPPING=ascii.
func Fold(s string) string {
	return strings.ToUpper(s)
}

// AddAddr inserts conn under its peer address. Addresses are unique per
// accepted socket, so this never fails.
func (r *Registry) AddAddr(conn *Connection) {
	r.addrMu.Lock()
	defer r.addrMu.Unlock()
	r.byAddr[conn.Addr] = conn
}

// RemoveAddr removes the connection at addr, if present.
func (r *Registry) RemoveAddr(addr string) {
	r.addrMu.Lock()
	defer r.addrMu.Unlock()
	delete(r.byAddr, addr)
}

// LookupAddr returns the connection at addr, or nil.
func (r *Registry) LookupAddr(addr string) *Connection {
	r.addrMu.Lock()
	defer r.addrMu.Unlock()
	return r.byAddr[addr]
}

// CountAddrs returns the number of live connections, registered or not.
func (r *Registry) CountAddrs() int {
	r.addrMu.Lock()
	defer r.addrMu.Unlock()
	return len(r.byAddr)
}

// ClaimNick inserts conn under the folded nick, failing if already taken.
func (r *Registry) ClaimNick(nick string, conn *Connection) (ok bool) {
	key := Fold(nick)
	r.nickMu.Lock()
	defer r.nickMu.Unlock()
	if _, exists := r.byNick[key]; exists {
		return false
	}
	r.byNick[key] = conn
	return true
}

// RekeyNick removes oldNick and inserts conn under newNick in one
// acquisition of the nick lock, failing without changing anything if
// newNick is already claimed by a different connection.
func (r *Registry) RekeyNick(oldNick, newNick string, conn *Connection) (ok bool) {
	oldKey, newKey := Fold(oldNick), Fold(newNick)
	r.nickMu.Lock()
	defer r.nickMu.Unlock()
	if existing, exists := r.byNick[newKey]; exists && existing != conn {
		return false
	}
	delete(r.byNick, oldKey)
	r.byNick[newKey] = conn
	return true
}

// ReleaseNick removes nick, if it maps to conn.
func (r *Registry) ReleaseNick(nick string, conn *Connection) {
	key := Fold(nick)
	r.nickMu.Lock()
	defer r.nickMu.Unlock()
	if r.byNick[key] == conn {
		delete(r.byNick, key)
	}
}

// LookupNick returns the connection registered under nick, or nil.
func (r *Registry) LookupNick(nick string) *Connection {
	key := Fold(nick)
	r.nickMu.RLock()
	defer r.nickMu.RUnlock()
	return r.byNick[key]
}

// CountNicks returns the number of registered (visible+invisible) users.
func (r *Registry) CountNicks() int {
	r.nickMu.RLock()
	defer r.nickMu.RUnlock()
	return len(r.byNick)
}

// LookupChannel returns the channel named name, or nil.
func (r *Registry) LookupChannel(name string) *Channel {
	key := Fold(name)
	r.chanMu.Lock()
	defer r.chanMu.Unlock()
	return r.byChannel[key]
}

// EnsureChannel returns the channel named name, creating and inserting an
// empty one if it does not exist. created reports whether it was just
// created.
func (r *Registry) EnsureChannel(name string, now int64) (ch *Channel, created bool) {
	key := Fold(name)
	r.chanMu.Lock()
	defer r.chanMu.Unlock()
	if existing, ok := r.byChannel[key]; ok {
		return existing, false
	}
	ch = NewChannel(name, now)
	r.byChannel[key] = ch
	return ch, true
}

// RemoveChannelIfEmpty deletes the channel named name from the registry if
// its membership is currently zero. Returns whether it was removed.
func (r *Registry) RemoveChannelIfEmpty(name string) bool {
	key := Fold(name)
	r.chanMu.Lock()
	defer r.chanMu.Unlock()
	ch, ok := r.byChannel[key]
	if !ok {
		return false
	}
	if ch.MemberCount() > 0 {
		return false
	}
	delete(r.byChannel, key)
	return true
}

// Channels returns a snapshot slice of every live channel.
func (r *Registry) Channels() []*Channel {
	r.chanMu.Lock()
	defer r.chanMu.Unlock()
	out := make([]*Channel, 0, len(r.byChannel))
	for _, ch := range r.byChannel {
		out = append(out, ch)
	}
	return out
}

// CountChannels returns the number of live channels.
func (r *Registry) CountChannels() int {
	r.chanMu.Lock()
	defer r.chanMu.Unlock()
	return len(r.byChannel)
}
