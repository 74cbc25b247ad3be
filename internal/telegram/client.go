// Package telegram provides a client for sending notifications via Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rewired-gh/strategia/internal/logger"
	"github.com/rewired-gh/strategia/internal/models"
)

// Client handles Telegram notifications.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// ListenForCommands starts a goroutine that polls for Telegram updates and handles bot commands.
// It returns immediately; the goroutine stops when ctx is cancelled.
func (c *Client) ListenForCommands(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() {
					c.handleCommand(update.Message)
				}
			}
		}
	}()
}

func (c *Client) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "ping":
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Pong")
		if _, err := c.bot.Send(reply); err != nil {
			logger.Warn("Failed to answer /ping: %v", err)
		}
	}
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (c *Client) sendMarkdownV2(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// SendError sends a monitoring error notification.
// Call this only on the first occurrence of a consecutive error sequence.
func (c *Client) SendError(cycleErr error) error {
	text := fmt.Sprintf("⚠️ *Derivation error*\n`%s`", escapeMarkdownV2(cycleErr.Error()))
	return c.sendMarkdownV2(text)
}

// SendRecovery sends a recovery notification after consecutive failures.
func (c *Client) SendRecovery(failureCount int) error {
	text := fmt.Sprintf("✅ *Derivation recovered* after %d consecutive failure\\(s\\)", failureCount)
	return c.sendMarkdownV2(text)
}

// Send sends one notification covering all alerts.
func (c *Client) Send(alerts []models.Alert) error {
	return c.sendMarkdownV2(formatMessage(alerts))
}

// formatMessage renders alerts as a Telegram MarkdownV2 message.
func formatMessage(alerts []models.Alert) string {
	var b strings.Builder
	b.WriteString("🧭 *Trade Scenarios*\n\n")

	if len(alerts) > 0 {
		dateStr := escapeMarkdownV2(alerts[0].DetectedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(&b, "📅 Derived: %s\n\n", dateStr)
	}

	for i, a := range alerts {
		fmt.Fprintf(&b, "%d\\. *%s* @ %s\n", i+1, escapeMarkdownV2(a.Symbol), escapeMarkdownV2(formatFloat(a.Price)))

		for _, s := range a.Scenarios {
			emoji := "📈"
			if s.Direction == models.Short {
				emoji = "📉"
			}
			fmt.Fprintf(&b, "   %s *%s* %s · score %d · %s\n",
				emoji,
				escapeMarkdownV2(string(s.Direction)),
				escapeMarkdownV2(string(s.Status)),
				s.SignalScore,
				escapeMarkdownV2(string(s.Source)),
			)

			levels := fmt.Sprintf("entry %s / stop %s", formatFloat(s.Entry), formatFloat(s.Stop))
			if s.TP1 != nil {
				levels += " / tp1 " + formatFloat(*s.TP1)
			}
			if s.TP2 != nil {
				levels += " / tp2 " + formatFloat(*s.TP2)
			}
			if s.RR > 0 {
				levels += fmt.Sprintf(" · rr %.2f", s.RR)
			}
			fmt.Fprintf(&b, "   `%s`\n", escapeMarkdownV2(levels))

			if s.Note != "" {
				fmt.Fprintf(&b, "   _%s_\n", escapeMarkdownV2(s.Note))
			}
		}

		b.WriteString("\n")
	}

	return b.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4) // pre-allocate with room for escapes
	for _, char := range text {
		switch char {
		case '\\', '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
