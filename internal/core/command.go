package core

import "strings"

// CommandKind describes a slash command typed by a user.
type CommandKind int

const (
	// CommandHelp lists the available commands.
	CommandHelp CommandKind = iota
	// CommandRooms lists rooms with their occupancy.
	CommandRooms
	// CommandLeave leaves the current room.
	CommandLeave
	// CommandWho lists members of the current room.
	CommandWho
	// CommandQuit ends the session.
	CommandQuit
	// CommandJoin joins a room by name, like a JOIN_ROOM message.
	CommandJoin
	// CommandPrivate sends a private message, like a PRIVATE message.
	CommandPrivate
)

var commandNames = map[string]CommandKind{
	"/help":  CommandHelp,
	"/rooms": CommandRooms,
	"/leave": CommandLeave,
	"/who":   CommandWho,
	"/quit":  CommandQuit,
	"/exit":  CommandQuit,
	"/join":  CommandJoin,
	"/pm":    CommandPrivate,
}

// Command represents a parsed slash command.
type Command struct {
	Kind CommandKind
	Name string
	Args []string
	// Rest is the text after the command name with inner spacing kept.
	Rest string
}

// IsCommand reports whether a raw line is a slash command rather than a wire message.
func IsCommand(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "/")
}

// ParseCommand splits a slash command line. The bool is false for unknown commands,
// in which case Name still holds the typed command.
func ParseCommand(line string) (Command, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, false
	}
	name := strings.ToLower(fields[0])
	trimmed := strings.TrimSpace(line)
	cmd := Command{
		Name: name,
		Args: fields[1:],
		Rest: strings.TrimSpace(trimmed[len(fields[0]):]),
	}
	kind, ok := commandNames[name]
	if !ok {
		return cmd, false
	}
	cmd.Kind = kind
	return cmd, true
}
