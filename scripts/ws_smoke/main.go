package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/pyrechat/pyre-server/internal/client"
	"github.com/pyrechat/pyre-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	server := flag.String("server", "http://localhost:8000", "server base URL")
	user := flag.String("user", "", "username (random when empty)")
	password := flag.String("password", "smoke-password", "password")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	if *user == "" {
		*user = "smoke-" + uuid.NewString()[:8]
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c := client.New(*server)
	if err := c.Register(ctx, *user, *password); err != nil {
		return err
	}
	fmt.Printf("Registered %s\n", *user)

	token, err := c.Token(ctx, *user, *password)
	if err != nil {
		return err
	}

	conn, err := c.Dial(ctx, token)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.Send(ctx, *text); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	for {
		ev, err := conn.Next(ctx)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		fmt.Printf("Received type=%s username=%s content=%q\n", ev.Type, ev.Username, ev.Content)

		switch ev.Type {
		case proto.TypeMessage:
			if ev.Username == *user && ev.Content == *text {
				fmt.Println("Echo received")
				return nil
			}
		case proto.TypeError:
			return fmt.Errorf("server error: %s", ev.Content)
		}
	}
}
