package integrations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTelegramBotNotify(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bot123:abc/sendMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	bot := NewTelegramBot("123:abc", "@outages_digest").WithBaseURL(srv.URL)
	err := bot.Notify(context.Background(), "Нові відключення", []InlineKeyboardButton{{Text: "Календар", URL: "https://example.com/feed.ics"}})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got["chat_id"] != "@outages_digest" || got["text"] != "Нові відключення" {
		t.Fatalf("unexpected payload %v", got)
	}
	markup, ok := got["reply_markup"].(map[string]interface{})
	if !ok || len(markup["inline_keyboard"].([]interface{})) != 1 {
		t.Fatalf("expected one button row, got %v", got["reply_markup"])
	}
}

func TestTelegramBotNotifyError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	err := NewTelegramBot("t", "1").WithBaseURL(srv.URL).Notify(context.Background(), "x", nil)
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected API error, got %v", err)
	}
}

func TestRedactToken(t *testing.T) {
	err := redactToken(errPlain("Post \"https://api.telegram.org/bot999:secret/sendMessage\": timeout"), "999:secret")
	if strings.Contains(err.Error(), "secret") {
		t.Fatalf("token leaked: %v", err)
	}
}

type errPlain string

func (e errPlain) Error() string { return string(e) }
