// Package irc implements parsing and serialisation of the IRC wire protocol,
// including the IRCv3 message-tags extension.
//
// See RFC 1459/2812 section 2.3.1 and the IRCv3 message-tags specification.
package irc

import (
	"strings"
)

// MaxLineLength is the maximum number of bytes a single protocol line may
// occupy on the wire, including the trailing CRLF.
const MaxLineLength = 512

// Tag is a single IRCv3 message tag: @key=value or @key (value-less).
type Tag struct {
	Key   string
	Value string
}

// Message is a single IRC protocol message: optional tags, an optional
// source, a command, and its parameters.
type Message struct {
	Tags    []Tag
	Source  string
	Command string
	Params  []string
}

// ParseMessage parses a single protocol line (without its trailing CRLF or
// LF) into a Message. It is total: there is no input for which it returns an
// error or panics. Lines it cannot make sense of come back as a Message with
// an empty Command, which callers treat as "ignore this line".
func ParseMessage(line string) Message {
	line = strings.TrimRight(line, "\r\n")

	var msg Message

	if strings.HasPrefix(line, "@") {
		var tagBlob string
		tagBlob, line = cutSpace(line[1:])
		msg.Tags = parseTags(tagBlob)
	}

	line = strings.TrimLeft(line, " ")

	if strings.HasPrefix(line, ":") {
		var source string
		source, line = cutSpace(line[1:])
		msg.Source = source
	}

	line = strings.TrimLeft(line, " ")
	if line == "" {
		return msg
	}

	var command string
	command, line = cutSpace(line)
	msg.Command = strings.ToUpper(command)

	msg.Params = parseParams(line)

	return msg
}

// cutSpace splits s at the first run of spaces, returning the token before
// it and the remainder with leading spaces stripped.
func cutSpace(s string) (token, rest string) {
	idx := strings.IndexByte(s, ' ')
	if idx == -1 {
		return s, ""
	}
	return s[:idx], strings.TrimLeft(s[idx+1:], " ")
}

// parseTags splits the portion between "@" and the next space into
// individual tags. Unescaping follows the IRCv3 message-tags grammar:
// \: is ;, \s is space, \\ is \, \r/\n are CR/LF, and a trailing single \ is
// dropped.
func parseTags(blob string) []Tag {
	if blob == "" {
		return nil
	}

	parts := strings.Split(blob, ";")
	tags := make([]Tag, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		key := part
		value := ""
		if idx := strings.IndexByte(part, '='); idx != -1 {
			key = part[:idx]
			value = unescapeTagValue(part[idx+1:])
		}
		tags = append(tags, Tag{Key: key, Value: value})
	}
	return tags
}

func unescapeTagValue(v string) string {
	if !strings.ContainsRune(v, '\\') {
		return v
	}

	var b strings.Builder
	for i := 0; i < len(v); i++ {
		if v[i] != '\\' {
			b.WriteByte(v[i])
			continue
		}
		if i+1 == len(v) {
			break
		}
		i++
		switch v[i] {
		case ':':
			b.WriteByte(';')
		case 's':
			b.WriteByte(' ')
		case '\\':
			b.WriteByte('\\')
		case 'r':
			b.WriteByte('\r')
		case 'n':
			b.WriteByte('\n')
		default:
			b.WriteByte(v[i])
		}
	}
	return b.String()
}

func escapeTagValue(v string) string {
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		switch v[i] {
		case ';':
			b.WriteString(`\:`)
		case ' ':
			b.WriteString(`\s`)
		case '\\':
			b.WriteString(`\\`)
		case '\r':
			b.WriteString(`\r`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteByte(v[i])
		}
	}
	return b.String()
}

// parseParams parses the middle/trailing parameter grammar. A leading ':'
// on a parameter marks it (and the rest of the line) as the trailing
// parameter, which may contain spaces.
func parseParams(line string) []string {
	if line == "" {
		return nil
	}

	var params []string
	for line != "" {
		if strings.HasPrefix(line, ":") {
			params = append(params, line[1:])
			break
		}

		idx := strings.IndexByte(line, ' ')
		if idx == -1 {
			params = append(params, line)
			break
		}

		params = append(params, line[:idx])
		line = strings.TrimLeft(line[idx+1:], " ")
	}

	return params
}

// Encode renders the Message back to wire form, including the trailing
// CRLF, truncating the final parameter if necessary to respect
// MaxLineLength.
//
// Encode assumes the Message was built by this package's own command
// handlers: it panics if a non-final parameter contains a space or is
// empty, since that can only happen due to a programming error (no code
// path constructs such a Message from wire input; ParseMessage always puts
// the remainder of the line into the final parameter).
func (m Message) Encode() string {
	line := m.encodeLine()
	if len(line)+2 > MaxLineLength {
		line = line[:MaxLineLength-2]
	}
	return line + "\r\n"
}

// encodeLine renders the Message without its CRLF and without truncation.
func (m Message) encodeLine() string {
	var b strings.Builder

	if len(m.Tags) > 0 {
		b.WriteByte('@')
		for i, t := range m.Tags {
			if i > 0 {
				b.WriteByte(';')
			}
			b.WriteString(t.Key)
			if t.Value != "" {
				b.WriteByte('=')
				b.WriteString(escapeTagValue(t.Value))
			}
		}
		b.WriteByte(' ')
	}

	if m.Source != "" {
		b.WriteByte(':')
		b.WriteString(m.Source)
		b.WriteByte(' ')
	}

	b.WriteString(m.Command)

	for i, param := range m.Params {
		last := i == len(m.Params)-1
		needsColon := last && (param == "" || strings.ContainsRune(param, ' ') || strings.HasPrefix(param, ":"))

		if !last && (param == "" || strings.ContainsRune(param, ' ')) {
			panic("irc: non-final parameter contains a space or is empty: " + param)
		}

		b.WriteByte(' ')
		if needsColon {
			b.WriteByte(':')
		}
		b.WriteString(param)
	}

	return b.String()
}

// SplitTrailingArgs builds one Message per batch of items, where each
// message repeats base's Tags/Source/Command/leading Params and appends a
// sep-joined batch of items as the final parameter, batching so that no
// encoded line exceeds MaxLineLength. This is how replies like RPL_NAMREPLY
// or a multi-target NOTICE get chunked across several lines.
func SplitTrailingArgs(base Message, items []string, sep string) []Message {
	if len(items) == 0 {
		return []Message{base}
	}

	// encodedLen reports the real encoded length (without CRLF, before any
	// truncation) of base with trailer joined by sep as the final parameter,
	// so the batching decision below matches what Encode would produce byte
	// for byte.
	encodedLen := func(trailer []string) int {
		m := base
		m.Params = append(append([]string{}, base.Params...), strings.Join(trailer, sep))
		return len(m.encodeLine())
	}

	var out []Message
	var cur []string

	flush := func() {
		if len(cur) == 0 {
			return
		}
		m := base
		m.Params = append(append([]string{}, base.Params...), strings.Join(cur, sep))
		out = append(out, m)
		cur = nil
	}

	for _, item := range items {
		candidate := append(append([]string{}, cur...), item)
		if len(cur) > 0 && encodedLen(candidate) > MaxLineLength-2 {
			flush()
			candidate = []string{item}
		}
		cur = candidate
	}
	flush()

	return out
}
