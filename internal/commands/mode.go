package commands

import (
	"strings"

	"github.com/tux3/catboxd/internal/irc"
	"github.com/tux3/catboxd/internal/replies"
	"github.com/tux3/catboxd/internal/session"
)

// MODE routes to channel-mode or user-mode handling depending on the
// target.
func MODE(s *session.Session, msg irc.Message) error {
	if len(msg.Params) == 0 {
		return s.Conn.Send(s.Reply(replies.NeedMoreParams("MODE")))
	}
	target := msg.Params[0]

	if strings.HasPrefix(target, "#") {
		return channelMode(s, target, msg.Params[1:])
	}

	ownNick := s.Conn.Identity().Nick
	if strings.EqualFold(target, ownNick) {
		return userMode(s, msg.Params[1:])
	}

	if s.Registry().LookupNick(target) != nil {
		return s.Conn.Send(s.Reply(replies.UsersDontMatch()))
	}
	return s.Conn.Send(s.Reply(replies.NoSuchNick(target)))
}

func channelMode(s *session.Session, name string, rest []string) error {
	ch := s.Registry().LookupChannel(name)
	if ch == nil {
		return s.Conn.Send(s.Reply(replies.NoSuchChannel(name)))
	}

	if len(rest) == 0 {
		return s.Conn.SendAll([]irc.Message{
			s.Reply(replies.ChannelModeIs(ch.Name, ch.Mode().String())),
			s.Reply(replies.CreationTime(ch.Name, ch.Created)),
		})
	}

	applied, unknown := ch.ApplyMode(rest[0])
	if applied != "" {
		if err := s.Conn.Broadcast(irc.Message{
			Source:  s.Conn.ExtendedPrefix(),
			Command: "MODE",
			Params:  []string{ch.Name, applied},
		}, true); err != nil {
			return err
		}
	}
	for _, c := range unknown {
		if err := s.Conn.Send(s.Reply(replies.UnknownChannelMode(c))); err != nil {
			return err
		}
	}
	return nil
}

func userMode(s *session.Session, rest []string) error {
	if len(rest) == 0 {
		return s.Conn.Send(s.Reply(replies.UModeIs(s.Conn.Mode().String())))
	}

	applied, unknown := s.Conn.ApplyMode(rest[0])
	if applied != "" {
		if err := s.Conn.Send(irc.Message{
			Source:  s.Conn.ExtendedPrefix(),
			Command: "MODE",
			Params:  []string{s.Conn.Identity().Nick, applied},
		}); err != nil {
			return err
		}
	}
	if len(unknown) > 0 {
		return s.Conn.Send(s.Reply(replies.UnknownMode()))
	}
	return nil
}
