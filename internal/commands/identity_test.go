package commands

import "testing"

func TestIsValidNickLength(t *testing.T) {
	tests := []struct {
		maxLen int
		nick   string
		want   bool
	}{
		{4, "", false},
		{4, "x", true},
		{4, "xx", true},
		{4, "xxxx", true},
		{4, "xxxxx", false},
		{8, "", false},
		{8, "x", true},
		{8, "xxxx", true},
		{8, "xxxxxxxx", true},
		{8, "xxxxxxxxx", false},
	}

	for _, test := range tests {
		if got := isValidNick(test.maxLen, test.nick); got != test.want {
			t.Errorf("isValidNick(%d, %q) = %v, wanted %v", test.maxLen, test.nick, got, test.want)
		}
	}
}

func TestIsValidNickCharset(t *testing.T) {
	tests := []struct {
		nick string
		want bool
	}{
		{"abcxyz", true},
		{"ABCXYZ", true},
		{"aaa555", true},
		{"555aaa", false},
		{"#channel", false},
		{"aaa---", true},
		{"---aaa", false},
		{`[{|\` + "`" + `^_-}]`, true},
		{"abc def", false},
		{"abc!def", false},
		{"abc@def", false},
		{"abc#def", false},
		{"abc$def", false},
		{"abc%def", false},
		{"abc&def", false},
		{"abc*def", false},
		{"abc(def", false},
		{"abc)def", false},
		{"abc+def", false},
	}

	for _, test := range tests {
		if got := isValidNick(16, test.nick); got != test.want {
			t.Errorf("isValidNick(16, %q) = %v, wanted %v", test.nick, got, test.want)
		}
	}
}

func isValidUsername(maxLen int, username string) bool {
	fixed, ok := makeValidUsername(maxLen, username)
	return ok && fixed == "~"+username
}

func TestUsernameLength(t *testing.T) {
	tests := []struct {
		maxLen int
		in     string
		want   bool
	}{
		{4, "", false},
		{4, "x", true},
		{4, "xx", true},
		{4, "xxx", true},
		{4, "xxxx", false},
		{8, "", false},
		{8, "x", true},
		{8, "xxxx", true},
		{8, "xxxxxxx", true},
		{8, "xxxxxxxx", false},
	}

	for _, test := range tests {
		if got := isValidUsername(test.maxLen, test.in); got != test.want {
			t.Errorf("isValidUsername(%d, %q) = %v, wanted %v", test.maxLen, test.in, got, test.want)
		}
	}
}

func TestMakeValidUsername(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"abc", "~abc", true},
		{"abc@def", "~abc", true},
		{"abc def", "~abc", true},
		{"", "", false},
	}

	for _, test := range tests {
		got, ok := makeValidUsername(16, test.in)
		if ok != test.ok || (ok && got != test.want) {
			t.Errorf("makeValidUsername(16, %q) = (%q, %v), wanted (%q, %v)", test.in, got, ok, test.want, test.ok)
		}
	}
}
