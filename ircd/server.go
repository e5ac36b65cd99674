// Package ircd owns the shared server state and the accept loop: it is the
// only thing a host program links against directly.
package ircd

import (
	"context"
	"crypto/tls"
	"log"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/tux3/catboxd/internal/commands"
	"github.com/tux3/catboxd/internal/config"
	"github.com/tux3/catboxd/internal/dispatch"
	"github.com/tux3/catboxd/internal/registry"
	"github.com/tux3/catboxd/internal/session"
)

// Settings is the full set of configuration the orchestrator needs,
// combining the routing-relevant fields (passed down to every session) with
// the listener-level fields the core itself doesn't care about.
type Settings struct {
	ListenAddr string

	TLSEnabled  bool
	TLSCertFile string
	TLSKeyFile  string

	Session session.Settings
}

// FromConfigFile builds Settings from a loaded configuration file.
func FromConfigFile(f *config.File) (Settings, error) {
	motd, err := f.MOTDLines()
	if err != nil {
		return Settings{}, err
	}

	return Settings{
		ListenAddr:  f.ListenAddr,
		TLSEnabled:  f.TLSEnabled,
		TLSCertFile: f.TLSCertFile,
		TLSKeyFile:  f.TLSKeyFile,
		Session: session.Settings{
			ServerName:           f.ServerName,
			NetworkName:          f.NetworkName,
			Version:              f.Version,
			CreationTime:         time.Now(),
			MaxNameLength:        f.MaxNameLength,
			MaxChannelLength:     f.MaxChannelLength,
			MaxTopicLength:       f.MaxTopicLength,
			ChanLimit:            f.ChanLimit,
			AllowChannelCreation: f.AllowChannelCreation,
			MOTDLines:            motd,
		},
	}, nil
}

// Callbacks is an alias for the host-program lifecycle hooks, re-exported
// here so callers don't need to import the session package directly.
type Callbacks = session.Callbacks

// Server owns the registries and settings shared by every session, and
// drives the accept loop.
type Server struct {
	settings  Settings
	callbacks Callbacks
	registry  *registry.Registry
	tlsConfig *tls.Config
}

// New validates settings (§4.H startup checks) and returns a Server ready
// to accept connections.
func New(settings Settings, callbacks Callbacks) (*Server, error) {
	if err := validate(settings); err != nil {
		return nil, err
	}

	s := &Server{
		settings:  settings,
		callbacks: callbacks,
		registry:  registry.New(),
	}

	if settings.TLSEnabled {
		cert, err := tls.LoadX509KeyPair(settings.TLSCertFile, settings.TLSKeyFile)
		if err != nil {
			return nil, errors.Wrap(err, "loading TLS certificate")
		}
		s.tlsConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
	}

	return s, nil
}

func validate(settings Settings) error {
	const maxAllowed = 512 - 96
	sess := settings.Session
	if sess.MaxNameLength >= maxAllowed {
		return errors.New("max_name_length too large")
	}
	if sess.MaxChannelLength >= maxAllowed {
		return errors.New("max_channel_length too large")
	}
	if sess.MaxTopicLength >= maxAllowed {
		return errors.New("max_topic_length too large")
	}
	for _, r := range sess.ServerName {
		if r == ' ' {
			return errors.New("server_name must not contain spaces")
		}
	}
	for _, r := range sess.NetworkName {
		if r == ' ' {
			return errors.New("network_name must not contain spaces")
		}
	}
	return nil
}

// ListenAndServe opens a TCP listener on settings.ListenAddr and calls
// Serve. It blocks until ctx is cancelled or accepting fails fatally.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.settings.ListenAddr)
	if err != nil {
		return errors.Wrap(err, "listening")
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections from ln until ctx is cancelled, spawning one
// session goroutine per accepted socket.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	table := commands.NewTable()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return errors.Wrap(err, "accepting connection")
			}
		}

		go s.handleConn(conn, table)
	}
}

func (s *Server) handleConn(conn net.Conn, table *dispatch.Table) {
	addr := conn.RemoteAddr().String()

	ok, err := true, error(nil)
	if s.callbacks.OnClientConnect != nil {
		ok, err = s.callbacks.OnClientConnect(addr)
	}
	if err != nil || !ok {
		if err != nil {
			log.Printf("%s: rejected: %s", addr, err)
		}
		_ = conn.Close()
		return
	}

	if s.tlsConfig != nil {
		conn = tls.Server(conn, s.tlsConfig)
	}

	rconn := registry.NewConnection(conn)
	sess := session.New(rconn, s.registry, s.settings.Session, s.callbacks)

	log.Printf("%s: connected", addr)
	sess.Run(table.Dispatch)
	log.Printf("%s: disconnected", addr)
}
