package model

import "strings"

// Command is the operation requested on the command topic.
type Command string

const (
	CommandNone          Command = ""
	CommandDispense      Command = "dispense"
	CommandAdjust        Command = "adjust"
	CommandSetTreatCount Command = "set_treat_count"
)

// ParseCommand converts a raw payload to a Command. Unknown values are kept
// verbatim so they can be observed, they simply match no handler.
func ParseCommand(payload []byte) Command {
	return Command(strings.TrimSpace(string(payload)))
}

// Known reports whether the command maps to a handler.
func (c Command) Known() bool {
	switch c {
	case CommandDispense, CommandAdjust, CommandSetTreatCount:
		return true
	default:
		return false
	}
}

// String returns the wire representation, "none" for the empty command.
func (c Command) String() string {
	if c == CommandNone {
		return "none"
	}
	return string(c)
}
