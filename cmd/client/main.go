// Command client is a line-oriented terminal front end for the chat API. It
// signs in with a bearer token, keeps the chat list in sync, and streams
// replies token by token as they arrive.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/teesien1998/Synthoria/internal/client"
	"github.com/teesien1998/Synthoria/internal/models"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "chat API base URL")
	model := flag.String("model", "gpt-5", "model key to request")
	flag.Parse()

	token := os.Getenv("SYNTHORIA_TOKEN")
	if token == "" {
		log.Fatal("SYNTHORIA_TOKEN is required")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	api := client.New(*server, token, logger)
	ctrl := client.NewController(api, func(msg string) {
		fmt.Fprintf(os.Stderr, "! %s\n", msg)
	}, logger)

	ctx := context.Background()
	if err := ctrl.Bootstrap(ctx); err != nil {
		log.Fatal(err)
	}

	if chat, ok := ctrl.Selected(); ok {
		fmt.Printf("Chat: %s\n", chat.Name)
		for _, msg := range chat.Messages {
			printMessage(msg)
		}
	}

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == "/quit":
			return
		case line == "/chats":
			for _, ch := range ctrl.Chats() {
				fmt.Printf("  %s  %s\n", ch.ID, ch.Name)
			}
		case strings.HasPrefix(line, "/select "):
			ctrl.Select(strings.TrimSpace(strings.TrimPrefix(line, "/select ")))
		case strings.HasPrefix(line, "/new "):
			if _, err := ctrl.Create(ctx, strings.TrimSpace(strings.TrimPrefix(line, "/new "))); err == nil {
				fmt.Println("created")
			}
		default:
			send(ctx, ctrl, line, *model)
		}
		fmt.Print("> ")
	}
}

func send(ctx context.Context, ctrl *client.Controller, content, model string) {
	var lastAnswer, lastReasoning string
	err := ctrl.Send(ctx, content, model, func(chat models.Chat) {
		msg := chat.Messages[len(chat.Messages)-1]
		if delta := strings.TrimPrefix(msg.Reasoning, lastReasoning); msg.Reasoning != lastReasoning {
			fmt.Fprint(os.Stderr, delta)
			lastReasoning = msg.Reasoning
		}
		if delta := strings.TrimPrefix(msg.Content, lastAnswer); msg.Content != lastAnswer && !msg.IsError {
			fmt.Print(delta)
			lastAnswer = msg.Content
		}
	})
	fmt.Println()
	if err != nil {
		return
	}
	if chat, ok := ctrl.Selected(); ok && len(chat.Messages) > 0 {
		last := chat.Messages[len(chat.Messages)-1]
		if last.ReasoningDurationMs > 0 {
			fmt.Fprintf(os.Stderr, "(thought for %dms)\n", last.ReasoningDurationMs)
		}
	}
}

func printMessage(msg models.Message) {
	prefix := "you"
	if msg.Role == models.RoleAssistant {
		prefix = "ai"
	}
	fmt.Printf("[%s] %s\n", prefix, msg.Content)
}
