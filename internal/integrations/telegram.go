package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramBot posts messages through the Bot API. It only sends; the outage
// channel itself is read by the telegram package.
type TelegramBot struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
}

type InlineKeyboardButton struct {
	Text string `json:"text"`
	URL  string `json:"url,omitempty"`
}

type ReplyMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// NewTelegramBot targets chatID, which may be numeric or an @channel username.
func NewTelegramBot(token, chatID string) *TelegramBot {
	return &TelegramBot{
		token:   token,
		chatID:  chatID,
		baseURL: telegramAPIBase,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// WithBaseURL points the bot at another API host.
func (t *TelegramBot) WithBaseURL(base string) *TelegramBot {
	t.baseURL = strings.TrimRight(base, "/")
	return t
}

// Notify sends text, with one link button per entry in links (label to URL).
func (t *TelegramBot) Notify(ctx context.Context, text string, links []InlineKeyboardButton) error {
	payload := map[string]interface{}{
		"chat_id":                  t.chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	}
	if len(links) > 0 {
		rows := make([][]InlineKeyboardButton, 0, len(links))
		for _, l := range links {
			rows = append(rows, []InlineKeyboardButton{l})
		}
		payload["reply_markup"] = ReplyMarkup{InlineKeyboard: rows}
	}
	return t.post(ctx, "sendMessage", payload)
}

func (t *TelegramBot) post(ctx context.Context, method string, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, redactToken(err, t.token))
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("telegram %s failed: %s", method, strings.TrimSpace(string(data)))
	}
	return nil
}

// redactToken keeps the bot token out of logged transport errors, which quote the URL.
func redactToken(err error, token string) error {
	if token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), token, "<redacted>"))
}
