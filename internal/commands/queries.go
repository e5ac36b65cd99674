package commands

import (
	"strings"

	"github.com/tux3/catboxd/internal/irc"
	"github.com/tux3/catboxd/internal/registry"
	"github.com/tux3/catboxd/internal/replies"
	"github.com/tux3/catboxd/internal/session"
)

// WHO answers either with every member of a named channel, or with every
// distinct member of the requester's own channels whose nick exactly
// matches mask. Wildcards are not implemented, per the recorded Open
// Question.
func WHO(s *session.Session, msg irc.Message) error {
	if len(msg.Params) == 0 {
		return s.Conn.Send(s.Reply(replies.NeedMoreParams("WHO")))
	}
	mask := msg.Params[0]

	var msgs []irc.Message

	if ch := s.Registry().LookupChannel(mask); ch != nil {
		for _, member := range ch.Members() {
			msgs = append(msgs, whoReplyFor(s, ch.Name, member))
		}
	} else {
		seen := make(map[string]bool)
		for _, ch := range s.Conn.Channels() {
			for _, member := range ch.Members() {
				if seen[member.Addr] {
					continue
				}
				seen[member.Addr] = true
				if !strings.EqualFold(member.Identity().Nick, mask) {
					continue
				}
				msgs = append(msgs, whoReplyFor(s, ch.Name, member))
			}
		}
	}

	msgs = append(msgs, s.Reply(replies.EndOfWho(mask)))
	return s.Conn.SendAll(msgs)
}

func whoReplyFor(s *session.Session, channelName string, member *registry.Connection) irc.Message {
	id := member.Identity()
	return s.Reply(replies.WhoReply(channelName, id.User, member.Host, s.Settings().ServerName, id.Nick, "H", 0, id.RealName))
}

// WHOIS answers the first mask of a comma-separated list, optionally
// qualified by a leading server-name parameter that must equal ours.
func WHOIS(s *session.Session, msg irc.Message) error {
	masksIdx := 0
	if len(msg.Params) >= 2 {
		if msg.Params[0] != s.Settings().ServerName {
			return s.Conn.Send(s.Reply(replies.NoSuchServer(msg.Params[0])))
		}
		masksIdx = 1
	}
	if len(msg.Params) <= masksIdx {
		return s.Conn.Send(s.Reply(replies.NeedMoreParams("WHOIS")))
	}

	masks := strings.Split(msg.Params[masksIdx], ",")
	nick := masks[0]

	target := s.Registry().LookupNick(nick)
	if target == nil {
		return s.Conn.SendAll([]irc.Message{
			s.Reply(replies.NoSuchNick(nick)),
			s.Reply(replies.EndOfWhois(nick)),
		})
	}

	id := target.Identity()
	return s.Conn.SendAll([]irc.Message{
		s.Reply(replies.WhoisUser(id.Nick, id.User, target.Host, id.RealName)),
		s.Reply(replies.WhoisServer(id.Nick, s.Settings().ServerName, s.Settings().NetworkName)),
		s.Reply(replies.EndOfWhois(id.Nick)),
	})
}
