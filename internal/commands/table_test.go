package commands

import "testing"

func TestNewTableHasNoDuplicates(t *testing.T) {
	// NewTable panics on any duplicate registration, so simply building it
	// without panicking demonstrates the invariant; we additionally check
	// the expected command set is exactly present.
	table := NewTable()

	want := []string{
		"NICK", "USER", "PING", "QUIT",
		"JOIN", "PART", "TOPIC", "MODE", "PRIVMSG", "NOTICE",
		"WHO", "WHOIS", "NAMES", "VERSION", "LUSERS", "MOTD",
	}

	verbs := table.Verbs()
	if len(verbs) != len(want) {
		t.Fatalf("got %d registered commands, wanted %d: %v", len(verbs), len(want), verbs)
	}

	seen := make(map[string]bool)
	for _, v := range verbs {
		seen[v] = true
	}
	for _, w := range want {
		if !seen[w] {
			t.Errorf("command %s missing from the table", w)
		}
	}
}
