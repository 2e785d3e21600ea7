package model

import "testing"

func TestParseCommand(t *testing.T) {
	if c := ParseCommand([]byte(" dispense\n")); c != CommandDispense {
		t.Fatalf("got %q", c)
	}
	c := ParseCommand([]byte("stop"))
	if c.Known() {
		t.Fatalf("stop should not be a known command")
	}
	if c != Command("stop") {
		t.Fatalf("unknown command should be kept verbatim, got %q", c)
	}
	if CommandNone.String() != "none" {
		t.Fatalf("unexpected none string %q", CommandNone.String())
	}
}
