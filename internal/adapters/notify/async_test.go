package notify_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alejandrodnm/polyalpha/internal/adapters/notify"
	"github.com/alejandrodnm/polyalpha/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []domain.Event
	block  chan struct{}
}

func (r *recordingSink) Notify(_ context.Context, e domain.Event) {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type panickingSink struct{}

func (panickingSink) Notify(context.Context, domain.Event) { panic("boom") }

func TestAsync_DeliversToAllSinksInOrder(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	async := notify.NewAsync(8, a, panickingSink{}, b)

	for i := 0; i < 5; i++ {
		async.Notify(context.Background(), domain.Event{Kind: domain.EventOrderPlaced, Message: string(rune('a' + i))})
	}
	async.Close()

	require.Equal(t, 5, a.count())
	require.Equal(t, 5, b.count())
	assert.Equal(t, "a", a.events[0].Message)
	assert.Equal(t, "e", b.events[4].Message)
	assert.Zero(t, async.Dropped())
}

func TestAsync_DropsWhenBufferFull(t *testing.T) {
	sink := &recordingSink{block: make(chan struct{})}
	async := notify.NewAsync(1, sink)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			async.Notify(context.Background(), domain.Event{Kind: domain.EventOrderPlaced})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked with a full buffer")
	}

	close(sink.block)
	async.Close()

	assert.Positive(t, async.Dropped())
	assert.Equal(t, int64(10), async.Dropped()+int64(sink.count()))
}

func TestAsync_NotifyAfterCloseIsNoop(t *testing.T) {
	sink := &recordingSink{}
	async := notify.NewAsync(4, sink)
	async.Close()
	async.Close()

	async.Notify(context.Background(), domain.Event{Kind: domain.EventDailySummary})
	assert.Zero(t, sink.count())
}

func TestWebhook_PostsJSON(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	wh := notify.NewWebhook(srv.URL, time.Second)
	wh.Notify(context.Background(), domain.Event{
		Kind:    domain.EventPositionClosed,
		Message: "closed 0xabc",
		Fields:  map[string]any{"pnl": 12.5},
	})

	require.NotNil(t, got)
	assert.Equal(t, "position_closed", got["kind"])
	assert.Equal(t, "[CLOSED] closed 0xabc", got["content"])
	assert.Equal(t, 12.5, got["fields"].(map[string]any)["pnl"])
}

func TestWebhook_FailureDoesNotPanic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	srv.Close()

	wh := notify.NewWebhook(srv.URL, 100*time.Millisecond)
	assert.NotPanics(t, func() {
		wh.Notify(context.Background(), domain.Event{Kind: domain.EventCycleFailed})
	})
}

func TestTelegram_SendsMarkdownMessage(t *testing.T) {
	var mu sync.Mutex
	var text, chatID, parseMode string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"bot","username":"polyalpha_bot"}}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			require.NoError(t, r.ParseForm())
			mu.Lock()
			text, chatID, parseMode = r.FormValue("text"), r.FormValue("chat_id"), r.FormValue("parse_mode")
			mu.Unlock()
			io.WriteString(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	tg, err := notify.NewTelegramWithEndpoint("TOKEN", "42", srv.URL+"/bot%s/%s", srv.Client())
	require.NoError(t, err)

	tg.Notify(context.Background(), domain.Event{
		Kind:    domain.EventOrderPlaced,
		Message: "BUY YES @ 0.95",
		Fields:  map[string]any{"edge": 0.04},
	})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "42", chatID)
	assert.Equal(t, "MarkdownV2", parseMode)
	assert.Contains(t, text, "*ORDER*")
	assert.Contains(t, text, `0\.95`)
	assert.Contains(t, text, "`edge`: 0\\.0400")
}

func TestTelegram_InvalidChatID(t *testing.T) {
	_, err := notify.NewTelegramWithEndpoint("TOKEN", "not-a-number", "http://127.0.0.1:0/bot%s/%s", http.DefaultClient)
	assert.Error(t, err)
}
