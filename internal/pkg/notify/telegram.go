package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Min interval between any two Telegram messages to the same chat to
// avoid 429 Too Many Requests.
const telegramSendInterval = 2 * time.Second

// Telegram caps a single message at 4096 characters; reports are
// chunked under that.
const telegramMessageLimit = 4096

// TelegramNotifier sends reports to a Telegram chat with paced sends
// and chunking for long markdown.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64

	mu       sync.Mutex
	lastSend time.Time

	sleep func(time.Duration)
}

func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	bot.Debug = false

	if _, err := bot.GetMe(); err != nil {
		return nil, fmt.Errorf("telegram bot self-check: %w", err)
	}

	slog.Info("telegram notifier initialized", "chat_id", chatID)
	return &TelegramNotifier{bot: bot, chatID: chatID, sleep: time.Sleep}, nil
}

// SendReport splits the report into chunks under the message limit
// and sends them in order, pacing consecutive sends.
func (n *TelegramNotifier) SendReport(ctx context.Context, report string) error {
	for i, chunk := range splitMessage(report, telegramMessageLimit) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := n.sendOne(chunk); err != nil {
			return fmt.Errorf("send report chunk %d: %w", i+1, err)
		}
	}
	return nil
}

func (n *TelegramNotifier) sendOne(text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if elapsed := time.Since(n.lastSend); elapsed < telegramSendInterval {
		n.sleep(telegramSendInterval - elapsed)
	}
	n.lastSend = time.Now()

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.bot.Send(msg); err != nil {
		return err
	}
	return nil
}

// splitMessage cuts text into chunks of at most limit characters,
// preferring line boundaries so markdown blocks stay intact.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var chunks []string
	for len(text) > limit {
		cut := strings.LastIndex(text[:limit], "\n")
		if cut <= 0 {
			cut = limit
		}
		chunks = append(chunks, text[:cut])
		text = strings.TrimLeft(text[cut:], "\n")
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
