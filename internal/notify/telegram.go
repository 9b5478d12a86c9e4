// Package notify delivers ops notifications via the Telegram Bot API.
// Notifications are fire-and-forget observability for the operator
// (generation outcomes, exhaustion), never part of the user-visible
// request path: a delivery failure is logged and dropped.
package notify

import (
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"felipe/internal/logger"
)

// Notifier reports pipeline outcomes to the operator.
type Notifier interface {
	GenerationCompleted(userID, inputType string, scenarioCount int, elapsed time.Duration)
	GenerationFailed(userID string, err error)
}

// Noop discards all notifications. Used when Telegram is not configured.
type Noop struct{}

func (Noop) GenerationCompleted(string, string, int, time.Duration) {}
func (Noop) GenerationFailed(string, error)                         {}

// Telegram sends notifications to a fixed chat with retry.
type Telegram struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewTelegram creates a Telegram notifier.
func NewTelegram(botToken, chatID string) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	return &Telegram{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     3,
		retryDelayBase: time.Second,
	}, nil
}

// GenerationCompleted reports a successful pipeline run.
func (t *Telegram) GenerationCompleted(userID, inputType string, scenarioCount int, elapsed time.Duration) {
	message := fmt.Sprintf("✅ *Generación completada*\n\nUsuario: %s\nTipo: %s\nEscenarios: %d\nDuración: %s\n",
		escapeMarkdownV2(userID),
		escapeMarkdownV2(inputType),
		scenarioCount,
		escapeMarkdownV2(elapsed.Round(time.Millisecond).String()))
	t.send(message)
}

// GenerationFailed reports an exhausted pipeline run.
func (t *Telegram) GenerationFailed(userID string, err error) {
	message := fmt.Sprintf("🚨 *Generación agotada*\n\nUsuario: %s\nError: %s\n",
		escapeMarkdownV2(userID),
		escapeMarkdownV2(err.Error()))
	t.send(message)
}

func (t *Telegram) send(message string) {
	msg := tgbotapi.NewMessage(t.chatID, message)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < t.maxRetries; i++ {
		_, err := t.bot.Send(msg)
		if err == nil {
			return
		}
		lastErr = err
		time.Sleep(t.retryDelayBase * time.Duration(i+1))
	}
	logger.Warn("telegram notification dropped after %d retries: %v", t.maxRetries, lastErr)
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	result := ""
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			result += "\\" + string(char)
		default:
			result += string(char)
		}
	}
	return result
}
