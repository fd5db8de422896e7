package proto

import (
	"strings"
	"time"
)

const minFields = 3

// Encode serializes a message as origin|timestamp|TYPE followed by every
// payload field in order. Empty payload fields are kept so the field count
// survives a round trip. The timestamp is written in local time, the zone
// Decode reads it back in. Separators and newlines inside fields are not escaped.
func Encode(m Message) string {
	var b strings.Builder
	b.WriteString(m.Origin)
	b.WriteString(Separator)
	b.WriteString(m.Timestamp.In(time.Local).Format(TimestampLayout))
	b.WriteString(Separator)
	b.WriteString(m.Type.String())
	for _, p := range m.Payload {
		b.WriteString(Separator)
		b.WriteString(p)
	}
	return b.String()
}

// Decode parses one wire line. Payload fields are preserved verbatim,
// including empty middle and trailing fields.
func Decode(raw string) (Message, error) {
	if strings.TrimSpace(raw) == "" {
		return Message{}, decodeError(ErrEmpty, raw, "")
	}

	parts := strings.Split(raw, Separator)
	if len(parts) < minFields {
		return Message{}, decodeError(ErrMalformed, raw, "need at least 3 parts")
	}

	origin := strings.TrimSpace(parts[0])
	if origin == "" {
		return Message{}, decodeError(ErrMalformed, raw, "missing origin id")
	}

	ts, err := parseTimestamp(parts[1])
	if err != nil {
		return Message{}, decodeError(ErrBadTimestamp, raw, "expected yyyy-MM-dd HH:mm:ss, got "+parts[1])
	}

	typ, ok := ParseType(parts[2])
	if !ok {
		return Message{}, decodeError(ErrUnknownType, raw, parts[2])
	}

	var payload []string
	if len(parts) > minFields {
		payload = append([]string(nil), parts[minFields:]...)
	}

	return Message{
		Origin:    origin,
		Timestamp: ts,
		Type:      typ,
		Payload:   payload,
	}, nil
}

// parseTimestamp accepts exactly the zero-padded layout. time.Parse alone would
// also take single-digit hours and trailing fractional seconds.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) != len(TimestampLayout) {
		return time.Time{}, &time.ParseError{Layout: TimestampLayout, Value: s, Message: ": wrong length"}
	}
	return time.ParseInLocation(TimestampLayout, s, time.Local)
}
