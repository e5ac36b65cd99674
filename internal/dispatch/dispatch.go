// Package dispatch builds the verb-to-handler table every inbound message
// is routed through.
package dispatch

import (
	"github.com/tux3/catboxd/internal/irc"
	"github.com/tux3/catboxd/internal/registry"
	"github.com/tux3/catboxd/internal/replies"
	"github.com/tux3/catboxd/internal/session"
)

// Permission is the class of connection state a command is reachable from.
type Permission int

const (
	// Any means the command is available pre-registration.
	Any Permission = iota
	// Normal means the command requires a registered connection.
	Normal
)

// Handler is a command implementation. A non-nil error return is fatal:
// it propagates out of the reader loop and triggers session teardown.
type Handler func(s *session.Session, msg irc.Message) error

type entry struct {
	permission Permission
	handler    Handler
}

// Table is the verb -> handler mapping, built once at startup by
// commands.NewTable.
type Table struct {
	entries map[string]entry
}

// Register adds verb to the table. It panics if verb is already
// registered: a duplicate command name is a programming error, never a
// condition reachable from wire input.
func (t *Table) Register(verb string, permission Permission, handler Handler) {
	if t.entries == nil {
		t.entries = make(map[string]entry)
	}
	if _, exists := t.entries[verb]; exists {
		panic("dispatch: duplicate command registered: " + verb)
	}
	t.entries[verb] = entry{permission: permission, handler: handler}
}

// Verbs returns the set of registered command names, for tests that want
// to assert the table's shape without reaching into its internals.
func (t *Table) Verbs() []string {
	out := make([]string, 0, len(t.entries))
	for verb := range t.entries {
		out = append(out, verb)
	}
	return out
}

// Dispatch looks up msg.Command (already upper-cased by the parser) and
// invokes its handler if the connection's registration state permits it.
// A table miss replies ERR_UNKNOWNCOMMAND if the connection is registered,
// and is otherwise silently dropped, per the registration-gate rule
// pre-registration clients get no feedback on most unknown traffic.
func (t *Table) Dispatch(s *session.Session, msg irc.Message) error {
	e, ok := t.entries[msg.Command]
	if !ok {
		if s.Conn.Status() == registry.Registered {
			return s.Conn.Send(s.Reply(replies.UnknownCommand(msg.Command)))
		}
		return nil
	}

	if e.permission == Normal && s.Conn.Status() != registry.Registered {
		return nil
	}

	return e.handler(s, msg)
}
