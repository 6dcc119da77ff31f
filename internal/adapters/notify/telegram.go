package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/alejandrodnm/polyalpha/internal/domain"
)

// Telegram envía eventos a un chat vía Bot API.
type Telegram struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewTelegram crea el sink contra la API pública de Telegram.
func NewTelegram(botToken, chatID string) (*Telegram, error) {
	return NewTelegramWithEndpoint(botToken, chatID, tgbotapi.APIEndpoint, &http.Client{Timeout: 10 * time.Second})
}

// NewTelegramWithEndpoint permite apuntar a otro endpoint (tests).
// endpoint sigue el formato de tgbotapi.APIEndpoint: ".../bot%s/%s".
func NewTelegramWithEndpoint(botToken, chatID, endpoint string, client *http.Client) (*Telegram, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("notify.NewTelegram: invalid chat ID: %w", err)
	}
	bot, err := tgbotapi.NewBotAPIWithClient(botToken, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("notify.NewTelegram: create bot: %w", err)
	}
	return &Telegram{
		bot:            bot,
		chatID:         id,
		maxRetries:     3,
		retryDelayBase: time.Second,
	}, nil
}

// Notify envía el evento con reintentos lineales. Los fallos solo se registran.
func (t *Telegram) Notify(ctx context.Context, e domain.Event) {
	msg := tgbotapi.NewMessage(t.chatID, formatTelegram(e))
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < t.maxRetries; i++ {
		if _, err := t.bot.Send(msg); err == nil {
			return
		} else {
			lastErr = err
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(t.retryDelayBase * time.Duration(i+1)):
		}
	}
	slog.Warn("telegram delivery failed", "kind", e.Kind, "retries", t.maxRetries, "err", lastErr)
}

func formatTelegram(e domain.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n%s", escapeMarkdownV2(eventLabel(e.Kind)), escapeMarkdownV2(e.Message))

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n`%s`: %s", escapeMarkdownV2(k), escapeMarkdownV2(formatField(e.Fields[k])))
	}
	return b.String()
}

// escapeMarkdownV2 escapa los caracteres especiales de MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, r := range text {
		switch r {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
