package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"salonlink/internal/auth"
	"salonlink/internal/infrastructure/rest"
	"salonlink/internal/infrastructure/websocket"
	"salonlink/internal/protocol"
	"salonlink/internal/usecase"
	"salonlink/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	token := os.Getenv("CHAT_TOKEN")
	claims, err := auth.Inspect(token)
	if err != nil {
		log.Fatalf("Refusing to start: %v", err)
	}

	displayName := os.Getenv("CHAT_DISPLAY_NAME")
	if displayName == "" {
		displayName = claims.UserID
	}

	session := usecase.NewChatSession(usecase.SessionParams{
		UserID:       claims.UserID,
		DisplayName:  displayName,
		Backend:      rest.NewClient(cfg.APIBaseURL, token, cfg.RequestTimeout),
		TypingIdle:   cfg.TypingIdle,
		TypingExpiry: cfg.TypingExpiry,
		HistoryLimit: cfg.HistoryLimit,
	})
	defer session.Close()

	ctx := context.Background()
	transport, err := websocket.Dial(ctx, cfg.SocketURL, claims.UserID, token, session)
	if err != nil {
		log.Fatalf("Failed to connect socket: %v", err)
	}
	session.AttachTransport(transport)

	session.OnNotification(func(n protocol.Notification) {
		fmt.Printf("\n*** %s: %s\n", n.Title, n.Body)
	})

	session.Refresh(ctx)
	fmt.Printf("Logged in as %s (%d unread)\n", claims.UserID, session.TotalUnread())
	fmt.Println("Commands: /contacts, /select <id>, /delete <id>, /quit; anything else sends to the selected contact.")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue

		case line == "/quit":
			return

		case line == "/contacts":
			for _, c := range session.Contacts() {
				marker := " "
				if session.IsOnline(c.ID) {
					marker = "*"
				}
				fmt.Printf("%s %s (%s) unread=%d last=%q\n", marker, c.ID, c.DisplayName, c.UnreadCount, c.LastMessage)
			}

		case strings.HasPrefix(line, "/select "):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/select "))
			if err := session.Select(ctx, id); err != nil {
				fmt.Printf("select failed: %v\n", err)
				continue
			}
			for _, m := range session.Messages() {
				fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Format("15:04"), m.SenderName, m.Body)
			}

		case strings.HasPrefix(line, "/delete "):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/delete "))
			if err := session.Delete(ctx, id); err != nil {
				fmt.Printf("delete failed: %v\n", err)
			}

		default:
			session.Keystroke()
			if !session.Send(ctx, line) {
				fmt.Println("message not sent")
			}
		}
	}
}
