// Package config loads catboxd's flat key=value configuration file and
// turns it into the typed settings the rest of the server needs.
package config

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/horgh/config"
	"github.com/pkg/errors"
)

// File is the parsed, typed form of the configuration file.
type File struct {
	ListenAddr           string
	ServerName           string
	NetworkName          string
	Version              string
	MaxNameLength        int
	MaxChannelLength     int
	MaxTopicLength       int
	ChanLimit            int
	AllowChannelCreation bool

	TLSEnabled  bool
	TLSCertFile string
	TLSKeyFile  string

	MOTDFile string

	// PingTime/DeadTime are carried from the teacher's config shape. They
	// are parsed and validated here, but nothing else in the server reads
	// them: there is no keepalive or idle timeout.
	PingTime time.Duration
	DeadTime time.Duration
}

var requiredKeys = []string{
	"listen_addr",
	"server_name",
	"network_name",
	"version",
	"max_name_length",
	"max_channel_length",
	"max_topic_length",
	"chan_limit",
	"allow_channel_creation",
}

// Load reads path with github.com/horgh/config's flat-map reader and
// parses it into a File, returning a wrapped error naming the first
// problem encountered.
func Load(path string) (*File, error) {
	raw, err := config.ReadStringMap(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config file %s", path)
	}

	for _, key := range requiredKeys {
		if raw[key] == "" {
			return nil, errors.Errorf("missing required config key: %s", key)
		}
	}

	f := &File{
		ListenAddr:  raw["listen_addr"],
		ServerName:  raw["server_name"],
		NetworkName: raw["network_name"],
		Version:     raw["version"],
		TLSCertFile: raw["tls_cert_file"],
		TLSKeyFile:  raw["tls_key_file"],
		MOTDFile:    raw["motd_file"],
	}

	if strings.ContainsRune(f.ServerName, ' ') {
		return nil, errors.New("server_name must not contain spaces")
	}
	if strings.ContainsRune(f.NetworkName, ' ') {
		return nil, errors.New("network_name must not contain spaces")
	}

	f.MaxNameLength, err = parseInt(raw, "max_name_length")
	if err != nil {
		return nil, err
	}
	f.MaxChannelLength, err = parseInt(raw, "max_channel_length")
	if err != nil {
		return nil, err
	}
	f.MaxTopicLength, err = parseInt(raw, "max_topic_length")
	if err != nil {
		return nil, err
	}
	f.ChanLimit, err = parseInt(raw, "chan_limit")
	if err != nil {
		return nil, err
	}

	f.AllowChannelCreation, err = strconv.ParseBool(raw["allow_channel_creation"])
	if err != nil {
		return nil, errors.Wrap(err, "parsing allow_channel_creation")
	}

	if raw["tls_enabled"] != "" {
		f.TLSEnabled, err = strconv.ParseBool(raw["tls_enabled"])
		if err != nil {
			return nil, errors.Wrap(err, "parsing tls_enabled")
		}
	}

	if raw["ping_time"] != "" {
		f.PingTime, err = time.ParseDuration(raw["ping_time"])
		if err != nil {
			return nil, errors.Wrap(err, "parsing ping_time")
		}
	}
	if raw["dead_time"] != "" {
		f.DeadTime, err = time.ParseDuration(raw["dead_time"])
		if err != nil {
			return nil, errors.Wrap(err, "parsing dead_time")
		}
	}

	// 512 - 96 is the headroom spec.md §4.H reserves for a fully-populated
	// reply around a name/topic of the configured maximum length.
	const maxAllowed = 512 - 96
	if f.MaxNameLength >= maxAllowed || f.MaxChannelLength >= maxAllowed || f.MaxTopicLength >= maxAllowed {
		return nil, errors.Errorf("max_name_length, max_channel_length and max_topic_length must each be < %d", maxAllowed)
	}

	return f, nil
}

func parseInt(raw map[string]string, key string) (int, error) {
	n, err := strconv.Atoi(raw[key])
	if err != nil {
		return 0, errors.Wrapf(err, "parsing %s", key)
	}
	return n, nil
}

// MOTDLines reads f.MOTDFile, if set, into a slice of lines. An unset file
// means no MOTD is configured, per §6/GLOSSARY ("this server emits
// ERR_NOMOTD unconditionally" when none is set).
func (f *File) MOTDLines() ([]string, error) {
	if f.MOTDFile == "" {
		return nil, nil
	}

	fh, err := os.Open(f.MOTDFile)
	if err != nil {
		return nil, errors.Wrapf(err, "opening motd file %s", f.MOTDFile)
	}
	defer func() {
		_ = fh.Close()
	}()

	var lines []string
	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading motd file %s", f.MOTDFile)
	}
	return lines, nil
}
