package proto

import (
	"slices"
	"strings"
	"time"
)

// Line format:
//
//	originId|yyyy-MM-dd HH:mm:ss|TYPE|payload0|payload1|...
//
// Examples:
//
//	c42|2025-09-23 12:00:00|TEXT|Hello
//	c42|2025-09-23 12:01:00|LOGIN|bob|hunter2
//	c42|2025-09-23 12:02:00|JOIN_ROOM|Lobby
const (
	// Separator delimits fields of a wire line.
	Separator = "|"
	// TimestampLayout is the fixed 24-hour, zero-padded timestamp pattern.
	TimestampLayout = "2006-01-02 15:04:05"
)

// Type is the closed set of message kinds carried on the wire.
type Type int

const (
	TypeText Type = iota
	TypeEmoji
	TypeFileTransfer
	TypeLogin
	TypeJoinRoom
	TypePrivate
)

var typeNames = [...]string{
	TypeText:         "TEXT",
	TypeEmoji:        "EMOJI",
	TypeFileTransfer: "FILE_TRANSFER",
	TypeLogin:        "LOGIN",
	TypeJoinRoom:     "JOIN_ROOM",
	TypePrivate:      "PRIVATE",
}

// typeAliases maps every accepted upper-cased spelling to its canonical type.
var typeAliases = map[string]Type{
	"TEXT":          TypeText,
	"TXT":           TypeText,
	"MESSAGE":       TypeText,
	"EMOJI":         TypeEmoji,
	"EMOJIS":        TypeEmoji,
	"FILE_TRANSFER": TypeFileTransfer,
	"FILE":          TypeFileTransfer,
	"SEND_FILE":     TypeFileTransfer,
	"LOGIN":         TypeLogin,
	"AUTH":          TypeLogin,
	"JOIN_ROOM":     TypeJoinRoom,
	"JOIN":          TypeJoinRoom,
	"PRIVATE":       TypePrivate,
	"WHISPER":       TypePrivate,
	"DM":            TypePrivate,
}

// String returns the canonical wire name.
func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "UNKNOWN"
	}
	return typeNames[t]
}

// ParseType resolves a canonical name or synonym, ignoring case and surrounding spaces.
func ParseType(s string) (Type, bool) {
	t, ok := typeAliases[strings.ToUpper(strings.TrimSpace(s))]
	return t, ok
}

// Message is an immutable decoded wire line.
type Message struct {
	Origin    string
	Timestamp time.Time
	Type      Type
	Payload   []string
}

// New builds a message stamped with the given time, converted to local time
// and truncated to whole seconds to match the wire precision.
func New(origin string, typ Type, at time.Time, payload ...string) Message {
	return Message{
		Origin:    origin,
		Timestamp: at.In(time.Local).Truncate(time.Second),
		Type:      typ,
		Payload:   slices.Clone(payload),
	}
}

// Now builds a message stamped with the current local time.
func Now(origin string, typ Type, payload ...string) Message {
	return New(origin, typ, time.Now(), payload...)
}

// Field returns payload field i or "" when absent.
func (m Message) Field(i int) string {
	if i < 0 || i >= len(m.Payload) {
		return ""
	}
	return m.Payload[i]
}

// Text rejoins payload fields from index i with the separator, so literal
// separators typed by a user survive as content.
func (m Message) Text(from int) string {
	if from >= len(m.Payload) {
		return ""
	}
	return strings.Join(m.Payload[from:], Separator)
}

// Equal reports field-wise equality; timestamps compare as instants.
func (m Message) Equal(o Message) bool {
	return m.Origin == o.Origin &&
		m.Type == o.Type &&
		m.Timestamp.Equal(o.Timestamp) &&
		slices.Equal(m.Payload, o.Payload)
}
