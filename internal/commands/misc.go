package commands

import (
	"github.com/tux3/catboxd/internal/irc"
	"github.com/tux3/catboxd/internal/replies"
	"github.com/tux3/catboxd/internal/session"
)

// PING replies PONG regardless of registration state.
func PING(s *session.Session, msg irc.Message) error {
	return s.Conn.Send(irc.Message{
		Source:  s.Settings().ServerName,
		Command: "PONG",
		Params:  append([]string{s.Settings().ServerName}, msg.Params...),
	})
}

// QUIT broadcasts the quit reason (via teardown, once the reader loop
// unwinds) and ends the session.
func QUIT(s *session.Session, msg irc.Message) error {
	reason := "Quit"
	if len(msg.Params) > 0 {
		reason = msg.Params[0]
	}
	return session.Fatal(reason)
}

// requireOwnServer checks an optional target-server parameter (present on
// VERSION/LUSERS/MOTD) and errors if it names a different server.
func requireOwnServer(s *session.Session, msg irc.Message) (ok bool, err error) {
	if len(msg.Params) == 0 {
		return true, nil
	}
	target := msg.Params[0]
	if target != s.Settings().ServerName {
		return false, s.Conn.Send(s.Reply(replies.NoSuchServer(target)))
	}
	return true, nil
}

// VERSION replies with the server's name/version and the ISUPPORT line.
func VERSION(s *session.Session, msg irc.Message) error {
	ok, err := requireOwnServer(s, msg)
	if !ok || err != nil {
		return err
	}

	nick := s.Conn.Identity().Nick
	if nick == "" {
		nick = "*"
	}

	if err := s.Conn.Send(s.ReplyTo(nick, s.VersionKind())); err != nil {
		return err
	}

	msgs := irc.SplitTrailingArgs(
		irc.Message{Source: s.Settings().ServerName, Command: "005", Params: []string{nick}},
		s.Settings().ISupportTokens(), " ")
	return s.Conn.SendAll(msgs)
}

// LUSERS replies with a fresh snapshot of the connection/registration
// counts.
func LUSERS(s *session.Session, msg irc.Message) error {
	ok, err := requireOwnServer(s, msg)
	if !ok || err != nil {
		return err
	}
	return s.Conn.SendAll(s.LusersReply())
}

// MOTD replies with the configured message of the day, or ERR_NOMOTD.
func MOTD(s *session.Session, msg irc.Message) error {
	ok, err := requireOwnServer(s, msg)
	if !ok || err != nil {
		return err
	}
	return s.Conn.SendAll(s.MotdReply())
}
