package commands

import (
	"regexp"
	"strings"

	"github.com/tux3/catboxd/internal/irc"
	"github.com/tux3/catboxd/internal/registry"
	"github.com/tux3/catboxd/internal/replies"
	"github.com/tux3/catboxd/internal/session"
)

var validNickRegexp = regexp.MustCompile(`^[A-Za-z\[\\\]\^_` + "`" + `{|}][A-Za-z0-9\[\\\]\^_` + "`" + `{|}\-]*$`)

// isValidNick reports whether nick is non-empty, within maxLen, and
// matches the nickname grammar.
func isValidNick(maxLen int, nick string) bool {
	return nick != "" && len(nick) <= maxLen && validNickRegexp.MatchString(nick)
}

// badUsernameCutoff returns the index of the first character that ends a
// raw USER parameter when sanitising it into a username ('@', NUL, CR, LF,
// or space), or -1 if there is none.
func badUsernameCutoff(s string) int {
	return strings.IndexAny(s, "@\x00\r\n ")
}

// makeValidUsername truncates username to maxLen-1 bytes, cuts it at the
// first disallowed character, and prefixes it with "~". It reports ok=false
// if nothing usable remains.
func makeValidUsername(maxLen int, username string) (result string, ok bool) {
	if maxLen > 0 && len(username) > maxLen-1 {
		username = username[:maxLen-1]
	}
	if idx := badUsernameCutoff(username); idx != -1 {
		username = username[:idx]
	}
	if username == "" {
		return "", false
	}
	return "~" + username, true
}

// NICK handles both pre-registration nick selection and post-registration
// nick changes.
func NICK(s *session.Session, msg irc.Message) error {
	if len(msg.Params) == 0 {
		return s.Conn.Send(s.Reply(replies.NoNicknameGiven()))
	}
	newNick := msg.Params[0]

	settings := s.Settings()
	if !isValidNick(settings.MaxNameLength, newNick) {
		return s.Conn.Send(s.Reply(replies.ErroneousNickname(newNick)))
	}

	reg := s.Registry()

	if s.Conn.Status() != registry.Registered {
		if reg.LookupNick(newNick) != nil {
			return s.Conn.Send(s.Reply(replies.NicknameInUse(newNick)))
		}
		s.Conn.SetNick(newNick)
		return beginAndFinishRegistration(s)
	}

	oldPrefix := s.Conn.ExtendedPrefix()
	oldNick := s.Conn.Identity().Nick

	if strings.EqualFold(registry.Fold(oldNick), registry.Fold(newNick)) {
		// Case-only rename: nothing to claim, just relabel.
	} else if !reg.RekeyNick(oldNick, newNick, s.Conn) {
		return s.Conn.Send(s.Reply(replies.NicknameInUse(newNick)))
	}

	s.Conn.SetNick(newNick)

	return s.Conn.Broadcast(irc.Message{
		Source:  oldPrefix,
		Command: "NICK",
		Params:  []string{newNick},
	}, true)
}

// USER handles the USER command of registration.
func USER(s *session.Session, msg irc.Message) error {
	if s.Conn.Status() == registry.Registered {
		return s.Conn.Send(s.Reply(replies.AlreadyRegistered()))
	}

	if len(msg.Params) < 4 {
		return s.Conn.Send(s.Reply(replies.NeedMoreParams(msg.Command)))
	}

	settings := s.Settings()
	username, ok := makeValidUsername(settings.MaxNameLength, msg.Params[0])
	if !ok {
		_ = s.Conn.Send(irc.Message{
			Source:  settings.ServerName,
			Command: "NOTICE",
			Params: []string{"*", "*** Your username is invalid. Please make sure that your " +
				"username contains only alphanumeric characters."},
		})
		return s.CloseWithError("Invalid username")
	}

	realname := msg.Params[3]
	s.Conn.SetUser(username, realname)

	return beginAndFinishRegistration(s)
}

// beginAndFinishRegistration drives the two-step registration handshake
// (§4.E): claim the nick once nick/user/realname are all known, then send
// the welcome burst.
func beginAndFinishRegistration(s *session.Session) error {
	began, err := s.TryBeginRegistration()
	if err != nil {
		return err
	}
	if !began {
		return nil
	}
	return s.FinishRegistration()
}
