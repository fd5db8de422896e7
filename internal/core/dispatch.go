package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vovakirdan/linechat-server/internal/proto"
)

// Greet completes the handshake: it sets the display name (falling back to
// the session id when blank), auto-joins the lobby and sends the help text.
func (r *Registry) Greet(s *Session, username string) {
	name := strings.TrimSpace(username)
	if name == "" {
		name = s.ID()
	}
	s.setName(name)
	s.Send("Hello " + name + "! You are now connected to the chat server.")

	if r.JoinRoom(s, LobbyRoom) {
		s.Send("You automatically joined the " + LobbyRoom + " room!")
	} else {
		r.report(s, r.joinFailure(LobbyRoom))
	}
	s.sendLines(helpLines(r.rooms.Names())...)
}

// HandleLine processes one raw inbound line: slash commands are executed,
// anything else is decoded as a wire message and dispatched. It returns true
// when the session asked to quit. Failures are reported to s only.
func (r *Registry) HandleLine(s *Session, line string) (quit bool) {
	line = strings.TrimRight(line, "\r\n")

	if IsCommand(line) {
		cmd, ok := ParseCommand(line)
		if !ok {
			r.report(s, coreError(ErrCodeUnknownCommand,
				"Unknown command: "+cmd.Name+"\nType /help for available commands."))
			return false
		}
		return r.Execute(s, cmd)
	}

	msg, err := proto.Decode(line)
	if err != nil {
		r.report(s, coreError(ErrCodeProtocol, "Parse error: "+err.Error()))
		return false
	}
	r.Dispatch(s, msg)
	return false
}

// Dispatch routes a decoded message to the handler for its type.
func (r *Registry) Dispatch(s *Session, msg proto.Message) {
	var err error
	switch msg.Type {
	case proto.TypeLogin:
		err = r.handleLogin(s, msg)
	case proto.TypeJoinRoom:
		err = r.handleJoinRoom(s, msg)
	case proto.TypeText:
		err = r.handleText(s, msg)
	case proto.TypePrivate:
		err = r.handlePrivate(s, msg)
	case proto.TypeEmoji, proto.TypeFileTransfer:
		err = coreError(ErrCodeNotImplemented, "Type not implemented yet: "+msg.Type.String())
	default:
		err = coreError(ErrCodeNotImplemented, "Type not implemented yet: "+msg.Type.String())
	}
	if err != nil {
		r.report(s, err)
	}
}

// Execute runs a slash command. It returns true for quit.
func (r *Registry) Execute(s *Session, cmd Command) (quit bool) {
	switch cmd.Kind {
	case CommandHelp:
		s.sendLines(helpLines(r.rooms.Names())...)
	case CommandRooms:
		s.Send("-----AVAILABLE ROOMS------")
		for _, room := range r.rooms.All() {
			s.Send(fmt.Sprintf("%s %d/%d", room.Name(), room.Size(), room.Capacity()))
		}
	case CommandLeave:
		room, ok := r.LeaveRoom(s)
		if !ok {
			r.report(s, coreError(ErrCodeNotInRoom, "You are not in a room"))
			return false
		}
		s.Send("You have left the room " + room.Name())
	case CommandWho:
		room := s.Room()
		if room == nil {
			r.report(s, coreError(ErrCodeNotInRoom, "You are not in any room."))
			return false
		}
		s.Send("=== USERS IN " + strings.ToUpper(room.Name()) + " ===")
		for _, name := range room.MemberNames() {
			s.Send("- " + name)
		}
	case CommandJoin:
		r.Dispatch(s, proto.Now(s.ID(), proto.TypeJoinRoom, cmd.Rest))
	case CommandPrivate:
		r.Dispatch(s, proto.Now(s.ID(), proto.TypePrivate, privateFields(cmd)...))
	case CommandQuit:
		s.Send(noticeGoodbye)
		return true
	}
	return false
}

// privateFields splits "/pm <user> <text>" into target and text, keeping the
// spacing of the text.
func privateFields(cmd Command) []string {
	if len(cmd.Args) == 0 {
		return nil
	}
	target := cmd.Args[0]
	return []string{target, strings.TrimSpace(strings.TrimPrefix(cmd.Rest, target))}
}

func (r *Registry) handleLogin(s *Session, msg proto.Message) error {
	name := strings.TrimSpace(msg.Field(0))
	if name == "" {
		name = s.ID()
	}
	s.setName(name)
	s.Send("Hello " + name + "! You are now connected.")

	if !r.JoinRoom(s, LobbyRoom) {
		return r.joinFailure(LobbyRoom)
	}
	s.Send("You automatically joined the " + LobbyRoom + " room!")
	return nil
}

func (r *Registry) handleJoinRoom(s *Session, msg proto.Message) error {
	roomName := msg.Field(0)
	if strings.TrimSpace(roomName) == "" {
		return coreError(ErrCodeUsage, noticeJoinUsage)
	}
	if !r.JoinRoom(s, roomName) {
		return r.joinFailure(roomName)
	}
	s.Send("You joined room: " + roomName)
	return nil
}

// joinFailure turns a failed JoinRoom into the matching notice by asking the
// directory again.
func (r *Registry) joinFailure(roomName string) error {
	room, ok := r.rooms.FindByName(roomName)
	switch {
	case !ok:
		return coreError(ErrCodeRoomNotFound,
			"Room '"+roomName+"' does not exist.\n"+availableRooms(r.rooms.Names()))
	case room.IsFull():
		return coreError(ErrCodeRoomFull, "Room '"+roomName+"' is full!")
	default:
		return coreError(ErrCodeJoinFailed, "Could not join room: "+roomName)
	}
}

func (r *Registry) handleText(s *Session, msg proto.Message) error {
	text := msg.Text(0)
	room, res, ok := r.broadcast(s, chatLine(s.Name(), text))
	if !ok {
		return coreError(ErrCodeNotInRoom, noticeNotInRoomText)
	}
	s.Send(echoLine(text))

	r.log.Debug().
		Str("session_id", s.ID()).
		Str("room", room.Name()).
		Int("delivered", res.Delivered).
		Int("dropped", len(res.Dropped)).
		Msg("broadcast")
	if len(res.Dropped) > 0 {
		r.log.Warn().Str("room", room.Name()).Strs("dropped", res.Dropped).Msg("broadcast dropped for slow recipients")
	}
	return nil
}

func (r *Registry) handlePrivate(s *Session, msg proto.Message) error {
	target := strings.TrimSpace(msg.Field(0))
	text := msg.Text(1)
	if target == "" || text == "" {
		return coreError(ErrCodeUsage, noticePrivateUsage)
	}
	peer, ok := r.FindByName(target)
	if !ok {
		return coreError(ErrCodeUserNotFound, "User '"+target+"' is not online.")
	}
	if peer == s {
		return coreError(ErrCodeUsage, "You cannot send a private message to yourself.")
	}
	if !peer.Send("[PM from " + s.Name() + "]: " + text) {
		r.log.Warn().Str("session_id", peer.ID()).Msg("private message dropped")
	}
	s.Send("[PM to " + peer.Name() + "]: " + text)
	return nil
}

// report delivers a handler failure to the originating session only.
func (r *Registry) report(s *Session, err error) {
	var ce *CoreError
	if !errors.As(err, &ce) {
		ce = coreError(ErrCodeProtocol, err.Error())
	}
	r.log.Debug().Str("session_id", s.ID()).Str("code", ce.Code).Msg(ce.Message)
	s.sendLines(strings.Split(ce.Message, "\n")...)
}
