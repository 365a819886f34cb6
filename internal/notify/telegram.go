// Package notify pings the staff Telegram channel when customers start chats
// or send messages nobody has read yet, so the console gets opened before the
// customer gives up.
package notify

import (
	"fmt"
	"log"
	"sync"

	"brewhaus/backend/internal/models"
	"brewhaus/backend/internal/session"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier sends staff notifications through a Telegram bot.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64

	mu   sync.Mutex
	seen map[string]models.Session
}

// NewNotifier authorizes the bot. chatID is the staff group chat.
func NewNotifier(token string, chatID int64) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("notify: authorize bot: %w", err)
	}
	log.Printf("Telegram notifier authorized as @%s", bot.Self.UserName)
	return &Notifier{
		bot:    bot,
		chatID: chatID,
		seen:   make(map[string]models.Session),
	}, nil
}

// Watch subscribes to the session list and pings staff about new sessions and
// fresh unread customer messages. The returned func stops the watch.
func (n *Notifier) Watch(repo *session.Repository) func() {
	return repo.Sessions(func(sessions []models.Session) {
		n.mu.Lock()
		var pings []string
		for _, s := range sessions {
			prev, known := n.seen[s.ID]
			n.seen[s.ID] = s
			switch {
			case !known:
				pings = append(pings, fmt.Sprintf(
					"New chat from %s (%s)", s.CustomerName, s.CustomerEmail))
			case s.UnreadCount > prev.UnreadCount:
				pings = append(pings, fmt.Sprintf(
					"%s: %s", s.CustomerName, s.LastMessage))
			}
		}
		n.mu.Unlock()

		for _, text := range pings {
			n.send(text)
		}
	})
}

func (n *Notifier) send(text string) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		log.Printf("ERROR: Telegram notification failed: %v", err)
	}
}
