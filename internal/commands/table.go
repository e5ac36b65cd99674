// Package commands implements the semantics of every command the server
// understands; NewTable wires them into the dispatch table.
package commands

import "github.com/tux3/catboxd/internal/dispatch"

// NewTable builds the verb -> handler table used by every session. It is
// built once, at server startup; Table.Register panics on a duplicate verb,
// which would be a programming error caught immediately rather than a
// condition a client could ever trigger.
func NewTable() *dispatch.Table {
	t := &dispatch.Table{}

	t.Register("NICK", dispatch.Any, NICK)
	t.Register("USER", dispatch.Any, USER)
	t.Register("PING", dispatch.Any, PING)
	t.Register("QUIT", dispatch.Any, QUIT)

	t.Register("JOIN", dispatch.Normal, JOIN)
	t.Register("PART", dispatch.Normal, PART)
	t.Register("TOPIC", dispatch.Normal, TOPIC)
	t.Register("MODE", dispatch.Normal, MODE)
	t.Register("PRIVMSG", dispatch.Normal, PRIVMSG)
	t.Register("NOTICE", dispatch.Normal, NOTICE)
	t.Register("WHO", dispatch.Normal, WHO)
	t.Register("WHOIS", dispatch.Normal, WHOIS)
	t.Register("NAMES", dispatch.Normal, NAMES)
	t.Register("VERSION", dispatch.Normal, VERSION)
	t.Register("LUSERS", dispatch.Normal, LUSERS)
	t.Register("MOTD", dispatch.Normal, MOTD)

	return t
}
