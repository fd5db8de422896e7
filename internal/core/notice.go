package core

import (
	"fmt"
	"strings"
)

const (
	// PromptUsername is sent before the handshake line is read.
	PromptUsername = "Welcome! Please enter your username: "
	// NoticeRateLimited is sent when an inbound line exceeds the rate budget.
	NoticeRateLimited = "Rate limit exceeded, slow down."
)

const (
	noticeNotInRoomText = "You are not in any room. Use JOIN_ROOM first."
	noticeJoinUsage     = "Usage: JOIN_ROOM requires a room name"
	noticePrivateUsage  = "Usage: PRIVATE requires a target user and a message"
	noticeGoodbye       = "Goodbye!"
)

var helpText = []string{
	"=== CHAT COMMANDS ===",
	"/join <room>  - Join a room (%s)",
	"/pm <user> <text> - Send a private message",
	"/leave        - Leave current room",
	"/rooms        - List all rooms",
	"/who          - Show users in current room",
	"/help         - Show this message again",
	"/quit         - Leave the chat",
}

func joinedNotice(name string) string { return "[" + name + " joined the room]" }

func leftNotice(name string) string { return "[" + name + " left the room]" }

func chatLine(name, text string) string { return name + ": " + text }

func echoLine(text string) string { return "[You]: " + text }

func availableRooms(names []string) string {
	return "Available rooms: " + strings.Join(names, ", ")
}

func helpLines(roomNames []string) []string {
	lines := make([]string, len(helpText))
	copy(lines, helpText)
	lines[1] = fmt.Sprintf(helpText[1], strings.Join(roomNames, ", "))
	return lines
}
