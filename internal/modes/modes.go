// Package modes implements the user- and channel-mode engine: parsing
// +x-y style modestrings against a boolean record and producing the
// minimal applied-modestring echo.
package modes

import "strings"

// User holds the three user modes this server models. AWAY/operator/etc.
// are out of scope.
type User struct {
	Invisible  bool
	SeeWallops bool
	IsBot      bool
}

// String renders the current state in fixed letter order, e.g. "+iB".
func (u User) String() string {
	var letters strings.Builder
	if u.Invisible {
		letters.WriteByte('i')
	}
	if u.SeeWallops {
		letters.WriteByte('w')
	}
	if u.IsBot {
		letters.WriteByte('B')
	}
	if letters.Len() == 0 {
		return ""
	}
	return "+" + letters.String()
}

var userFields = map[byte]func(*User) *bool{
	'i': func(u *User) *bool { return &u.Invisible },
	'w': func(u *User) *bool { return &u.SeeWallops },
	'B': func(u *User) *bool { return &u.IsBot },
}

// ApplyUser applies modestring to u in place, returning the minimal applied
// modestring echo and any unknown letters encountered (in the order seen).
// Unknown letters do not abort processing of the rest of the string.
func ApplyUser(u *User, modestring string) (applied string, unknown []byte) {
	return apply(modestring, func(letter byte, positive bool) (changed, known bool) {
		field, ok := userFields[letter]
		if !ok {
			return false, false
		}
		ptr := field(u)
		if *ptr == positive {
			return false, true
		}
		*ptr = positive
		return true, true
	})
}

// Channel holds the channel modes this server models. Keys/limits/bans/
// invite-only are out of scope.
type Channel struct {
	NoExternalMsgs bool
}

// String renders the current state in fixed letter order, e.g. "+n".
func (c Channel) String() string {
	if c.NoExternalMsgs {
		return "+n"
	}
	return ""
}

var channelFields = map[byte]func(*Channel) *bool{
	'n': func(c *Channel) *bool { return &c.NoExternalMsgs },
}

// ApplyChannel applies modestring to c in place, returning the minimal
// applied modestring echo and any unknown letters encountered.
func ApplyChannel(c *Channel, modestring string) (applied string, unknown []byte) {
	return apply(modestring, func(letter byte, positive bool) (changed, known bool) {
		field, ok := channelFields[letter]
		if !ok {
			return false, false
		}
		ptr := field(c)
		if *ptr == positive {
			return false, true
		}
		*ptr = positive
		return true, true
	})
}

// apply walks modestring byte by byte, tracking the +/- sign in effect, and
// calls set for each letter. It builds the minimal echo: the sign is only
// emitted when it changes (or at the very start of the echo) and a letter
// is only emitted when set reports it actually changed something.
func apply(modestring string, set func(letter byte, positive bool) (changed, known bool)) (applied string, unknown []byte) {
	positive := true
	sawSign := false

	var out strings.Builder
	lastEmittedSign := byte(0)

	for i := 0; i < len(modestring); i++ {
		b := modestring[i]
		switch b {
		case '+':
			positive = true
			sawSign = true
			continue
		case '-':
			positive = false
			sawSign = true
			continue
		}

		if !sawSign {
			// Letters before any explicit sign default to +, per the grammar
			// RFC 2812 uses for MODE.
			positive = true
		}

		changed, known := set(b, positive)
		if !known {
			unknown = append(unknown, b)
			continue
		}
		if !changed {
			continue
		}

		sign := byte('+')
		if !positive {
			sign = '-'
		}
		if sign != lastEmittedSign {
			out.WriteByte(sign)
			lastEmittedSign = sign
		}
		out.WriteByte(b)
	}

	return out.String(), unknown
}
