package modes

import "testing"

func TestApplyUser(t *testing.T) {
	tests := []struct {
		modestring   string
		wantApplied  string
		wantUnknown  string
		wantInvis    bool
		wantWallops  bool
		wantBot      bool
	}{
		{"+i", "+i", "", true, false, false},
		{"+iw", "+iw", "", true, true, false},
		{"+i-i", "+i-i", "", false, false, false},
		{"+iz", "+i", "z", true, false, false},
		{"iw", "+iw", "", true, true, false},
		{"+i+w", "+iw", "", true, true, false},
		{"+i-w+B", "+iB", "", true, false, true},
	}

	for _, test := range tests {
		var u User
		applied, unknown := ApplyUser(&u, test.modestring)
		if applied != test.wantApplied {
			t.Errorf("ApplyUser(%q) applied = %q, wanted %q", test.modestring, applied, test.wantApplied)
		}
		if string(unknown) != test.wantUnknown {
			t.Errorf("ApplyUser(%q) unknown = %q, wanted %q", test.modestring, unknown, test.wantUnknown)
		}
		if u.Invisible != test.wantInvis || u.SeeWallops != test.wantWallops || u.IsBot != test.wantBot {
			t.Errorf("ApplyUser(%q) state = %+v, wanted i=%v w=%v B=%v", test.modestring, u, test.wantInvis, test.wantWallops, test.wantBot)
		}
	}
}

func TestApplyUserNoRedundantToggle(t *testing.T) {
	var u User
	u.Invisible = true
	applied, unknown := ApplyUser(&u, "+i")
	if applied != "" {
		t.Fatalf("re-applying an already-set mode should produce no echo, got %q", applied)
	}
	if len(unknown) != 0 {
		t.Fatalf("expected no unknown letters, got %q", unknown)
	}
}

func TestApplyChannel(t *testing.T) {
	var c Channel
	applied, unknown := ApplyChannel(&c, "+nk")
	if applied != "+n" {
		t.Errorf("applied = %q, wanted +n", applied)
	}
	if string(unknown) != "k" {
		t.Errorf("unknown = %q, wanted k", unknown)
	}
	if !c.NoExternalMsgs {
		t.Errorf("NoExternalMsgs not set")
	}
}

func TestUserString(t *testing.T) {
	u := User{Invisible: true, IsBot: true}
	if got := u.String(); got != "+iB" {
		t.Errorf("String() = %q, wanted +iB", got)
	}
	if got := (User{}).String(); got != "" {
		t.Errorf("String() of zero value = %q, wanted empty", got)
	}
}
