package commands

import (
	"strings"

	"github.com/tux3/catboxd/internal/irc"
	"github.com/tux3/catboxd/internal/replies"
	"github.com/tux3/catboxd/internal/session"
)

// PRIVMSG forwards a message to a channel or a nick, and reports failures.
func PRIVMSG(s *session.Session, msg irc.Message) error {
	return sendToTarget(s, msg, true)
}

// NOTICE forwards a message the same way PRIVMSG does, except every
// failure is silenced: no recipient, no text, no such target, and a
// channel routing refusal all simply produce no reply. This matches the
// Open Question's recorded decision (see DESIGN.md).
func NOTICE(s *session.Session, msg irc.Message) error {
	return sendToTarget(s, msg, false)
}

func sendToTarget(s *session.Session, msg irc.Message, reportErrors bool) error {
	target, hasTarget := param(msg, 0)
	if !hasTarget {
		if !reportErrors {
			return nil
		}
		return s.Conn.Send(s.Reply(replies.NoRecipient(msg.Command)))
	}

	text, hasText := param(msg, 1)
	if !hasText {
		if !reportErrors {
			return nil
		}
		return s.Conn.Send(s.Reply(replies.NoTextToSend()))
	}

	reply := irc.Message{
		Source:  s.Conn.ExtendedPrefix(),
		Command: msg.Command,
		Params:  []string{target, text},
	}

	if strings.HasPrefix(target, "#") {
		return sendToChannel(s, target, text, reply, reportErrors)
	}

	ownNick := s.Conn.Identity().Nick
	if strings.EqualFold(target, ownNick) {
		if msg.Command != "PRIVMSG" {
			return nil
		}
		return s.Conn.Send(reply)
	}

	dest := s.Registry().LookupNick(target)
	if dest == nil {
		if !reportErrors {
			return nil
		}
		return s.Conn.Send(s.Reply(replies.NoSuchTarget(target)))
	}
	return dest.Send(reply)
}

func sendToChannel(s *session.Session, channelName, text string, reply irc.Message, reportErrors bool) error {
	ch := s.Registry().LookupChannel(channelName)
	if ch == nil {
		if !reportErrors {
			return nil
		}
		return s.Conn.Send(s.Reply(replies.NoSuchChannel(channelName)))
	}

	ok, err := s.CallChannelMessageCallback(channelName, text)
	if err != nil {
		if !reportErrors {
			return nil
		}
		return s.Conn.Send(s.Reply(replies.CannotSendToChan(channelName, err.Error())))
	}
	if !ok {
		return nil
	}

	for _, member := range ch.Members() {
		if member == s.Conn {
			continue
		}
		if sendErr := member.Send(reply); sendErr != nil {
			// Transient fan-out failure on another peer's socket: swallow it,
			// per §7 class 2. That peer's own reader will detect its own EOF.
			continue
		}
	}
	return nil
}

func param(msg irc.Message, i int) (string, bool) {
	if i >= len(msg.Params) {
		return "", false
	}
	return msg.Params[i], true
}
