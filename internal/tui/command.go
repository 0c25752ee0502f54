package tui

import "strings"

// Command represents a parsed command.
type Command struct {
	Name string
	Args string
}

// ParseCommand parses a command string (without the leading ':').
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	parts := strings.SplitN(input, " ", 2)
	cmd := Command{Name: strings.ToLower(parts[0])}
	if len(parts) > 1 {
		cmd.Args = strings.TrimSpace(parts[1])
	}
	return cmd
}

// commandAliases maps every accepted spelling to its canonical name.
var commandAliases = map[string]string{
	"q":       "quit",
	"quit":    "quit",
	"h":       "help",
	"help":    "help",
	"r":       "reload",
	"reload":  "reload",
	"o":       "open",
	"open":    "open",
	"p":       "profile",
	"profile": "profile",
	"f":       "filter",
	"filter":  "filter",
	"clear":   "clear-cache",
}

// Canonical returns the canonical command name, or empty if unknown.
func (c Command) Canonical() string {
	return commandAliases[c.Name]
}
