package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"

	"github.com/vovakirdan/linechat-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "tester", "username sent in the handshake")
	room := flag.String("room", "Lobby", "room name")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(line string) error {
		if err := conn.Write(ctx, websocket.MessageText, []byte(line)); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		return nil
	}
	// waitFor prints every received line until one equals want.
	waitFor := func(want string) error {
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return fmt.Errorf("read (waiting for %q): %w", want, err)
			}
			fmt.Printf("< %s\n", data)
			if string(data) == want {
				return nil
			}
		}
	}

	if err := waitFor("Welcome! Please enter your username: "); err != nil {
		return err
	}
	if err := send(*user); err != nil {
		return err
	}

	const origin = "smoke"
	if err := send(proto.Encode(proto.Now(origin, proto.TypeJoinRoom, *room))); err != nil {
		return err
	}
	if err := waitFor("You joined room: " + *room); err != nil {
		return err
	}

	if err := send(proto.Encode(proto.Now(origin, proto.TypeText, *text))); err != nil {
		return err
	}
	if err := waitFor("[You]: " + *text); err != nil {
		return err
	}

	if err := send("/quit"); err != nil {
		return err
	}
	err = waitFor("Goodbye!")
	if websocket.CloseStatus(err) == websocket.StatusNormalClosure || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
