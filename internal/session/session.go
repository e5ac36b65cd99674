// Package session implements the per-connection lifecycle: registration,
// the send primitives built on top of a registry.Connection, and teardown.
package session

import (
	"bufio"
	"log"
	"time"

	"github.com/tux3/catboxd/internal/irc"
	"github.com/tux3/catboxd/internal/registry"
	"github.com/tux3/catboxd/internal/replies"
)

// Settings is the subset of server configuration the session and command
// layers need at runtime. The orchestrator (package ircd) builds one of
// these from the loaded configuration file.
type Settings struct {
	ServerName            string
	NetworkName           string
	Version               string
	CreationTime          time.Time
	MaxNameLength         int
	MaxChannelLength      int
	MaxTopicLength        int
	ChanLimit             int
	AllowChannelCreation  bool
	MOTDLines             []string
}

// ISupportTokens renders the ISUPPORT tokens this server advertises, per
// the external-interfaces table.
func (s Settings) ISupportTokens() []string {
	return []string{
		"CASEMAPPING=ascii",
		"CHANLIMIT=#:" + itoa(s.ChanLimit),
		"CHANMODES=,,,n",
		"CHANNELLEN=" + itoa(s.MaxChannelLength),
		"CHANTYPES=#",
		"NETWORK=" + s.NetworkName,
		"NICKLEN=" + itoa(s.MaxNameLength),
		"PREFIX",
		"SILENCE",
		"TOPICLEN=" + itoa(s.MaxTopicLength),
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b [20]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		b[i] = '-'
	}
	return string(b[i:])
}

// Callbacks are the five host-program lifecycle hooks. Every field may be
// left nil, in which case it behaves as an accepting no-op, matching the
// permissive default the host program gets when it does not care to
// customise a given point.
type Callbacks struct {
	OnClientConnect        func(addr string) (bool, error)
	OnClientRegistering    func(s *Session) (bool, error)
	OnClientRegistered     func(s *Session)
	OnClientDisconnect     func(addr string)
	OnClientChannelMessage func(s *Session, channel, msg string) (bool, error)
}

func (c Callbacks) connect(addr string) (bool, error) {
	if c.OnClientConnect == nil {
		return true, nil
	}
	return c.OnClientConnect(addr)
}

func (c Callbacks) registering(s *Session) (bool, error) {
	if c.OnClientRegistering == nil {
		return true, nil
	}
	return c.OnClientRegistering(s)
}

func (c Callbacks) registered(s *Session) {
	if c.OnClientRegistered != nil {
		c.OnClientRegistered(s)
	}
}

func (c Callbacks) disconnect(addr string) {
	if c.OnClientDisconnect != nil {
		c.OnClientDisconnect(addr)
	}
}

func (c Callbacks) channelMessage(s *Session, channel, msg string) (bool, error) {
	if c.OnClientChannelMessage == nil {
		return true, nil
	}
	return c.OnClientChannelMessage(s, channel, msg)
}

// Session is one connection's session: its registry.Connection plus the
// shared server state it needs to act on commands.
type Session struct {
	Conn *registry.Connection

	registry  *registry.Registry
	settings  Settings
	callbacks Callbacks
	replies   replies.Server

	// awaitingRegistration is true once try_begin_registration has claimed
	// the nick but before finish_registration has sent the welcome burst.
	awaitingRegistration bool
}

// New builds a Session around a freshly accepted connection and inserts it
// into the by_addr registry.
func New(conn *registry.Connection, reg *registry.Registry, settings Settings, callbacks Callbacks) *Session {
	reg.AddAddr(conn)
	return &Session{
		Conn:      conn,
		registry:  reg,
		settings:  settings,
		callbacks: callbacks,
		replies: replies.Server{
			Name:         settings.ServerName,
			NetworkName:  settings.NetworkName,
			Version:      settings.Version,
			CreationTime: settings.CreationTime,
		},
	}
}

// Registry returns the shared registry, for handlers that need to look up
// other nicks or channels.
func (s *Session) Registry() *registry.Registry { return s.registry }

// Settings returns the server's runtime settings.
func (s *Session) Settings() Settings { return s.settings }

// Reply builds a numeric reply targeted at this session's own nick (or "*"
// pre-registration) and returns it ready to Send.
func (s *Session) Reply(kind replies.Kind) irc.Message {
	nick := s.Conn.Identity().Nick
	if nick == "" {
		nick = "*"
	}
	return s.replies.Make(nick, kind)
}

// ReplyTo builds a numeric reply targeted at an explicit nick.
func (s *Session) ReplyTo(nick string, kind replies.Kind) irc.Message {
	return s.replies.Make(nick, kind)
}

// VersionKind builds the RPL_VERSION kind for this server.
func (s *Session) VersionKind() replies.Kind {
	return s.replies.VersionReply()
}

// CallChannelMessageCallback invokes the host program's gate on a
// PRIVMSG/NOTICE addressed to a channel.
func (s *Session) CallChannelMessageCallback(channel, msg string) (bool, error) {
	return s.callbacks.channelMessage(s, channel, msg)
}

// fatalError marks a session-ending condition. Handlers return one of
// these (or nil) from their dispatch call; a non-nil return propagates out
// of the reader loop and triggers teardown.
type fatalError struct{ reason string }

func (e *fatalError) Error() string { return e.reason }

// Fatal wraps reason as a fatal session error, for handlers like QUIT that
// intentionally end the session without it being a protocol failure.
func Fatal(reason string) error { return &fatalError{reason: reason} }

// CloseWithError sends an ERROR line describing why the link is closing
// and returns a fatal error that ends the session. The caller (the reader
// loop) is responsible for actually closing the socket as part of
// teardown.
func (s *Session) CloseWithError(text string) error {
	_ = s.Conn.Send(irc.Message{
		Command: "ERROR",
		Params:  []string{"Closing Link: " + s.Conn.Host + " (" + text + ")"},
	})
	return Fatal(text)
}

// TryBeginRegistration checks whether nick, user and realname have all
// been presented; if so it atomically claims the uppercased nick in
// by_nick, invokes on_client_registering, and transitions the connection
// to Registered. It returns whether registration was just completed (in
// which case the caller must call FinishRegistration next).
func (s *Session) TryBeginRegistration() (bool, error) {
	if s.awaitingRegistration || s.Conn.Status() == registry.Registered {
		return false, nil
	}
	if !s.Conn.ReadyToRegister() {
		return false, nil
	}

	nick := s.Conn.Identity().Nick
	if !s.registry.ClaimNick(nick, s.Conn) {
		return false, s.CloseWithError("Overridden")
	}

	ok, err := s.callbacks.registering(s)
	if err != nil {
		s.registry.ReleaseNick(nick, s.Conn)
		return false, s.CloseWithError(err.Error())
	}
	if !ok {
		s.registry.ReleaseNick(nick, s.Conn)
		return false, s.CloseWithError("Registration refused")
	}

	s.Conn.MarkRegistered()
	s.awaitingRegistration = true
	return true, nil
}

// FinishRegistration emits the welcome burst (001-005, LUSERS sequence,
// MOTD) and invokes on_client_registered.
func (s *Session) FinishRegistration() error {
	nick := s.Conn.Identity().Nick

	var msgs []irc.Message
	msgs = append(msgs,
		s.replies.Make(nick, s.replies.Welcome(nick)),
		s.replies.Make(nick, s.replies.YourHost()),
		s.replies.Make(nick, s.replies.Created()),
		s.replies.Make(nick, s.replies.MyInfo("iwB", "n")),
	)
	for _, m := range irc.SplitTrailingArgs(
		irc.Message{Source: s.settings.ServerName, Command: "005", Params: []string{nick}},
		s.settings.ISupportTokens(), " ") {
		msgs = append(msgs, m)
	}

	msgs = append(msgs, s.lusersMessages()...)
	msgs = append(msgs, s.motdMessages()...)

	if err := s.Conn.SendAll(msgs); err != nil {
		return err
	}

	s.awaitingRegistration = false
	s.callbacks.registered(s)
	return nil
}

// LusersReply builds the LUSERS reply sequence from a fresh snapshot of
// the registries, for the standalone LUSERS command.
func (s *Session) LusersReply() []irc.Message {
	return s.lusersMessages()
}

// MotdReply builds the MOTD reply sequence (or ERR_NOMOTD), for the
// standalone MOTD command.
func (s *Session) MotdReply() []irc.Message {
	return s.motdMessages()
}

// lusersMessages builds the LUSERS reply sequence from a fresh snapshot of
// the registries.
func (s *Session) lusersMessages() []irc.Message {
	nick := s.Conn.Identity().Nick
	numUsers := s.registry.CountNicks()
	numUnknown := s.registry.CountAddrs() - numUsers
	if numUnknown < 0 {
		numUnknown = 0
	}
	numChannels := s.registry.CountChannels()

	return []irc.Message{
		s.replies.Make(nick, replies.LuserClient(numUsers, 0)),
		s.replies.Make(nick, replies.LuserOp(0)),
		s.replies.Make(nick, replies.LuserUnknown(numUnknown)),
		s.replies.Make(nick, replies.LuserChannels(numChannels)),
		s.replies.Make(nick, replies.LuserMe(numUsers)),
		s.replies.Make(nick, replies.LocalUsers(numUsers, numUsers)),
		s.replies.Make(nick, replies.GlobalUsers(numUsers, numUsers)),
	}
}

// motdMessages builds the MOTD reply sequence, or a single ERR_NOMOTD if
// none is configured.
func (s *Session) motdMessages() []irc.Message {
	nick := s.Conn.Identity().Nick
	if len(s.settings.MOTDLines) == 0 {
		return []irc.Message{s.replies.Make(nick, replies.NoMotd())}
	}

	msgs := []irc.Message{s.replies.Make(nick, s.replies.MotdStart())}
	for _, line := range s.settings.MOTDLines {
		msgs = append(msgs, s.replies.Make(nick, replies.Motd(line)))
	}
	msgs = append(msgs, s.replies.Make(nick, replies.EndOfMotd()))
	return msgs
}

// Run drives the session's reader loop: parse one line at a time, dispatch
// it, and stop on a fatal error or EOF. dispatch is the command table's
// entry point, injected by the caller to avoid an import cycle between
// session and dispatch.
func (s *Session) Run(dispatch func(*Session, irc.Message) error) {
	addr := s.Conn.Addr
	reader := bufio.NewReader(s.Conn.Conn())

	var fatal error
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			msg := irc.ParseMessage(line)
			if msg.Command != "" {
				if dispErr := dispatch(s, msg); dispErr != nil {
					fatal = dispErr
					break
				}
			}
		}
		if err != nil {
			break
		}
	}

	s.teardown(addr, fatal)
}

// teardown runs the drop routine: notify the host program, broadcast QUIT
// if registered, and unwind every registry entry this connection owns.
func (s *Session) teardown(addr string, cause error) {
	s.callbacks.disconnect(addr)

	if s.Conn.Status() == registry.Registered {
		reason := "Quit"
		if cause != nil && cause.Error() != "" {
			reason = cause.Error()
		}
		_ = s.Conn.Broadcast(irc.Message{
			Source:  s.Conn.ExtendedPrefix(),
			Command: "QUIT",
			Params:  []string{reason},
		}, false)
		s.registry.ReleaseNick(s.Conn.Identity().Nick, s.Conn)
	}

	s.registry.RemoveAddr(addr)

	for _, ch := range s.Conn.Channels() {
		s.Conn.PartChannel(ch)
		if ch.MemberCount() == 0 {
			s.registry.RemoveChannelIfEmpty(ch.Name)
		}
	}
	s.Conn.ClearChannels()

	if err := s.Conn.CloseUnderlying(); err != nil {
		log.Printf("%s: close: %s", addr, err)
	}
}
