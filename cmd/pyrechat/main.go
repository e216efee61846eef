package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"

	"github.com/pyrechat/pyre-server/internal/client"
	"github.com/pyrechat/pyre-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("pyrechat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	server := flag.String("server", "http://localhost:8000", "server base URL")
	user := flag.String("user", "", "username")
	password := flag.String("password", "", "password")
	register := flag.Bool("register", false, "register the account before connecting")
	flag.Parse()

	if *user == "" || *password == "" {
		return errors.New("-user and -password are required")
	}

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	c := client.New(*server)
	if *register {
		if err := c.Register(ctx, *user, *password); err != nil {
			return err
		}
	}

	token, err := c.Token(ctx, *user, *password)
	if err != nil {
		return err
	}

	conn, err := c.Dial(ctx, token)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Connected to %s as %s\n", *server, *user)
	fmt.Println("Type messages and press Enter to send. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn)
	return nil
}

func readLoop(ctx context.Context, conn *client.Conn) {
	for {
		ev, err := conn.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			case websocket.StatusPolicyViolation:
				log.Printf("connection refused: token rejected")
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		switch ev.Type {
		case proto.TypeMessage:
			fmt.Printf("%s: %s\n", ev.Username, ev.Content)
		case proto.TypeUserJoined, proto.TypeUserLeft, proto.TypeSystem, proto.TypeNotification:
			fmt.Printf("* %s\n", ev.Content)
		case proto.TypeError:
			fmt.Printf("! %s: %s\n", ev.Username, ev.Content)
		default:
			fmt.Printf("type=%s username=%s content=%q\n", ev.Type, ev.Username, ev.Content)
		}
	}
}

func writeLoop(ctx context.Context, conn *client.Conn) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			if err := conn.Send(ctx, text); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}
