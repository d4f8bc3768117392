// File: cmd/demo/main.go
//
// Terminal REPL driving the session controller end to end against the file
// store and the echo provider. Useful for poking at session switching and
// persistence without any infrastructure:
//
//	go run ./cmd/demo
//	> hello
//	assistant: echo: hello
//	> /list
//	> /switch 01J...
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"telkom-ai-demo/internal/config"
	aiAdapters "telkom-ai-demo/internal/infra/adapters/ai"
	"telkom-ai-demo/internal/infra/logging"
	"telkom-ai-demo/internal/infra/metrics"
	"telkom-ai-demo/internal/infra/storage"
	"telkom-ai-demo/internal/usecase"
)

func main() {
	ctx := context.Background()
	logger := logging.New(config.LogConfig{Level: "warn", Format: "console"}, true)
	metrics.MustRegister()

	store := storage.NewFileStore("demo_sessions.json", logger)
	exchange := usecase.NewExchange(aiAdapters.NewNoopAdapter(), "", 0, logger)
	ctrl := usecase.NewSessionController(store, exchange, config.ChatConfig{}, logger)
	defer ctrl.Close()

	ctrl.OnSessionChangeRequested(func(id string) {
		ctrl.Initialize(ctx, id)
		fmt.Printf("[session -> %s]\n", id)
	})

	fmt.Println("commands: /new /list /switch <id> /delete <id> /prompt <text> /quit")
	sc := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !sc.Scan() {
			return
		}
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "/quit":
			return
		case line == "/new":
			ctrl.NewChat()
		case line == "/list":
			for _, s := range ctrl.Sessions() {
				fmt.Printf("%s  %s  (%s)\n", s.ID, s.Label, s.UpdatedAt.Format("15:04:05"))
			}
		case strings.HasPrefix(line, "/switch "):
			ctrl.SelectSession(strings.TrimSpace(strings.TrimPrefix(line, "/switch ")))
		case strings.HasPrefix(line, "/delete "):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/delete "))
			if err := ctrl.DeleteSession(ctx, id); err != nil {
				fmt.Println("delete failed:", err)
			}
		case strings.HasPrefix(line, "/prompt "):
			ctrl.EditSystemPrompt(ctx, strings.TrimSpace(strings.TrimPrefix(line, "/prompt ")))
		default:
			ctrl.Send(ctx, line)
			conv := ctrl.Conversation()
			if len(conv) > 0 && conv[len(conv)-1].Role == "assistant" {
				fmt.Println("assistant:", conv[len(conv)-1].Content)
			}
			if msg := ctrl.LastError(); msg != "" {
				fmt.Println("error:", msg)
			}
		}
	}
}
