package main

import (
	"strings"
	"time"

	"github.com/vovakirdan/linechat-server/internal/proto"
)

// translator turns what the user types into wire lines. The first line is the
// handshake username and is sent as typed.
type translator struct {
	id      string
	greeted bool
}

func newTranslator(id string) *translator {
	return &translator{id: id}
}

// Translate returns the line to send and whether anything should be sent.
func (t *translator) Translate(input string, now time.Time) (string, bool) {
	input = strings.TrimRight(input, "\r\n")
	if !t.greeted {
		t.greeted = true
		return input, true
	}
	if strings.TrimSpace(input) == "" {
		return "", false
	}

	if !strings.HasPrefix(input, "/") {
		return t.encode(proto.TypeText, now, input), true
	}

	fields := strings.Fields(input)
	switch strings.ToLower(fields[0]) {
	case "/login":
		if len(fields) < 2 {
			return "", false
		}
		return t.encode(proto.TypeLogin, now, fields[1:min(len(fields), 3)]...), true
	case "/join":
		if len(fields) < 2 {
			return "", false
		}
		return t.encode(proto.TypeJoinRoom, now, fields[1]), true
	case "/pm":
		if len(fields) < 3 {
			return "", false
		}
		text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(input[len(fields[0]):]), fields[1]))
		return t.encode(proto.TypePrivate, now, fields[1], text), true
	default:
		return input, true
	}
}

func (t *translator) encode(typ proto.Type, now time.Time, payload ...string) string {
	return proto.Encode(proto.New(t.id, typ, now, payload...))
}
