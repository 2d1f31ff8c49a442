package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/teledl/internal/ledger"
	"github.com/iliyamo/teledl/internal/repository"
	"github.com/iliyamo/teledl/internal/retention"
)

// newOfflineBotAPI backs the bot client with a stub server that answers
// every method call affirmatively, so handlers can run without Telegram.
func newOfflineBotAPI(t *testing.T) *tgbotapi.BotAPI {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/getMe") {
			w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"bot","username":"bot"}}`))
			return
		}
		w.Write([]byte(`{"ok":true,"result":true}`))
	}))
	t.Cleanup(ts.Close)

	api, err := tgbotapi.NewBotAPIWithAPIEndpoint("test-token", ts.URL+"/bot%s/%s")
	if err != nil {
		t.Fatalf("bot api: %v", err)
	}
	return api
}

func TestHandleCallbackWithoutMessage(t *testing.T) {
	api := newOfflineBotAPI(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	platforms := testPlatformTable()
	svc := ledger.New(repository.NewUserAccountRepo(rdb, platforms, retention.Default()), platforms)
	b := &Bot{
		api:       api,
		platforms: platforms,
		ledger:    svc,
		sessions:  NewSessionStore(0),
		transport: NewTransport(api),
	}

	// Callbacks on messages older than 48h arrive without a message.
	cq := &tgbotapi.CallbackQuery{
		ID:   "stale",
		From: &tgbotapi.User{ID: 55},
		Data: cbHelp,
	}
	b.handleCallback(context.Background(), cq)

	// The press was still acknowledged as activity.
	if !mr.Exists("user:55") {
		t.Fatal("callback without a message did not record activity")
	}
}
