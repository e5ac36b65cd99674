package replies

import (
	"strings"
	"testing"
	"time"
)

func testServer() Server {
	return Server{
		Name:         "irc.example.org",
		NetworkName:  "ExampleNet",
		Version:      "catboxd-0.1",
		CreationTime: time.Unix(0, 0),
	}
}

func TestWelcome(t *testing.T) {
	s := testServer()
	msg := s.Make("rachel", s.Welcome("rachel"))

	if msg.Command != "001" {
		t.Fatalf("command = %s, wanted 001", msg.Command)
	}
	if msg.Source != "irc.example.org" {
		t.Fatalf("source = %s, wanted irc.example.org", msg.Source)
	}
	if msg.Params[0] != "rachel" {
		t.Fatalf("params[0] = %s, wanted rachel", msg.Params[0])
	}
	if !strings.Contains(msg.Params[len(msg.Params)-1], "ExampleNet") {
		t.Fatalf("welcome text missing network name: %q", msg.Params[len(msg.Params)-1])
	}
}

func TestNicknameInUse(t *testing.T) {
	s := testServer()
	msg := s.Make("*", NicknameInUse("taken"))

	if msg.Command != "433" {
		t.Fatalf("command = %s, wanted 433", msg.Command)
	}
	if msg.Params[1] != "taken" {
		t.Fatalf("params[1] = %s, wanted taken", msg.Params[1])
	}
}

func TestNeedMoreParams(t *testing.T) {
	s := testServer()
	msg := s.Make("nick", NeedMoreParams("JOIN"))
	if msg.Params[1] != "JOIN" {
		t.Fatalf("params[1] = %s, wanted JOIN", msg.Params[1])
	}
	if msg.Params[2] != "Not enough parameters" {
		t.Fatalf("params[2] = %s, wanted the standard text", msg.Params[2])
	}
}
