package commands

import (
	"strings"
	"time"

	"github.com/tux3/catboxd/internal/irc"
	"github.com/tux3/catboxd/internal/registry"
	"github.com/tux3/catboxd/internal/replies"
	"github.com/tux3/catboxd/internal/session"
)

// JOIN processes a comma-separated list of channel names.
func JOIN(s *session.Session, msg irc.Message) error {
	if len(msg.Params) == 0 {
		return s.Conn.Send(s.Reply(replies.NeedMoreParams("JOIN")))
	}

	reg := s.Registry()
	settings := s.Settings()

	for _, name := range strings.Split(msg.Params[0], ",") {
		if name == "" {
			continue
		}
		if !strings.HasPrefix(name, "#") {
			if err := s.Conn.Send(s.Reply(replies.NoSuchChannel(name))); err != nil {
				return err
			}
			continue
		}

		if s.Conn.ChannelCount() >= settings.ChanLimit {
			return s.Conn.Send(s.Reply(replies.TooManyChannels(name)))
		}

		ch := reg.LookupChannel(name)
		if ch == nil {
			if !settings.AllowChannelCreation {
				if err := s.Conn.Send(s.Reply(replies.NoSuchChannel(name))); err != nil {
					return err
				}
				continue
			}
			ch, _ = reg.EnsureChannel(name, time.Now().Unix())
		}

		if !s.Conn.JoinChannel(ch) {
			// Already a member: idempotent no-op per §4.G.
			continue
		}

		if err := s.Conn.Broadcast(irc.Message{
			Source:  s.Conn.ExtendedPrefix(),
			Command: "JOIN",
			Params:  []string{ch.Name},
		}, true); err != nil {
			return err
		}

		if err := sendJoinNumerics(s, ch); err != nil {
			return err
		}
	}

	return nil
}

// sendJoinNumerics emits the topic (or RPL_NOTOPIC), the NAMES reply, and
// RPL_ENDOFNAMES to the joining connection.
func sendJoinNumerics(s *session.Session, ch *registry.Channel) error {
	topic := ch.Topic()
	if topic.Text != "" {
		if err := s.Conn.SendAll([]irc.Message{
			s.Reply(replies.Topic(ch.Name, topic.Text)),
			s.Reply(replies.TopicWhoTime(ch.Name, topic.SetByHost, topic.SetAt)),
		}); err != nil {
			return err
		}
	} else {
		if err := s.Conn.Send(s.Reply(replies.NoTopic(ch.Name))); err != nil {
			return err
		}
	}

	return sendNamesReply(s, ch)
}

// sendNamesReply emits the RPL_NAMREPLY/RPL_ENDOFNAMES sequence for ch,
// splitting the member list across as many lines as needed.
func sendNamesReply(s *session.Session, ch *registry.Channel) error {
	members := ch.Members()
	nicks := make([]string, 0, len(members))
	for _, m := range members {
		nicks = append(nicks, m.Identity().Nick)
	}

	base := s.Reply(replies.NameReply("=", ch.Name))
	msgs := irc.SplitTrailingArgs(base, nicks, " ")
	msgs = append(msgs, s.Reply(replies.EndOfNames(ch.Name)))
	return s.Conn.SendAll(msgs)
}

// NAMES is a standalone query of a channel's membership, supplementing the
// distilled spec's JOIN-only exposure of the names list with the RFC 2812
// behavior of also answering it on request.
func NAMES(s *session.Session, msg irc.Message) error {
	if len(msg.Params) == 0 {
		return nil
	}
	ch := s.Registry().LookupChannel(msg.Params[0])
	if ch == nil {
		return s.Conn.Send(s.Reply(replies.EndOfNames(msg.Params[0])))
	}
	return sendNamesReply(s, ch)
}

// PART processes a comma-separated list of channel names.
func PART(s *session.Session, msg irc.Message) error {
	if len(msg.Params) == 0 {
		return s.Conn.Send(s.Reply(replies.NeedMoreParams("PART")))
	}

	reg := s.Registry()

	for _, name := range strings.Split(msg.Params[0], ",") {
		if name == "" {
			continue
		}
		ch := reg.LookupChannel(name)
		if ch == nil || !s.Conn.InChannel(ch) {
			if err := s.Conn.Send(s.Reply(replies.NotOnChannel(name))); err != nil {
				return err
			}
			continue
		}

		if err := s.Conn.Broadcast(irc.Message{
			Source:  s.Conn.ExtendedPrefix(),
			Command: "PART",
			Params:  []string{ch.Name},
		}, true); err != nil {
			return err
		}

		s.Conn.PartChannel(ch)
		reg.RemoveChannelIfEmpty(ch.Name)
	}

	return nil
}

// TOPIC queries or sets a channel's topic.
func TOPIC(s *session.Session, msg irc.Message) error {
	if len(msg.Params) == 0 {
		return s.Conn.Send(s.Reply(replies.NeedMoreParams("TOPIC")))
	}

	ch := s.Registry().LookupChannel(msg.Params[0])
	if ch == nil {
		return s.Conn.Send(s.Reply(replies.NoSuchChannel(msg.Params[0])))
	}

	if len(msg.Params) < 2 {
		topic := ch.Topic()
		if topic.Text == "" {
			return s.Conn.Send(s.Reply(replies.NoTopic(ch.Name)))
		}
		return s.Conn.SendAll([]irc.Message{
			s.Reply(replies.Topic(ch.Name, topic.Text)),
			s.Reply(replies.TopicWhoTime(ch.Name, topic.SetByHost, topic.SetAt)),
		})
	}

	text := msg.Params[1]
	ch.SetTopic(registry.Topic{
		Text:      text,
		SetByHost: s.Conn.ExtendedPrefix(),
		SetAt:     time.Now(),
	})

	return s.Conn.Broadcast(irc.Message{
		Source:  s.Conn.ExtendedPrefix(),
		Command: "TOPIC",
		Params:  []string{ch.Name, text},
	}, true)
}
