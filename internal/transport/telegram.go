package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/rez77/talabot/internal/flow"
)

// Telegram is a minimal long-polling Bot API client. It exists for the
// WEBHOOK_HOST-less deployment; the webhook path is the primary transport.
type Telegram struct {
	token   string
	apiBase string
	http    *http.Client
	handler Handler
	log     *slog.Logger

	offset int64

	mu      sync.Mutex
	lastMsg map[int64]int64 // chat id -> last bot message id, for edits
}

func NewTelegram(token string, h Handler, log *slog.Logger) *Telegram {
	return &Telegram{
		token:   token,
		apiBase: "https://api.telegram.org",
		http:    &http.Client{Timeout: 65 * time.Second},
		handler: h,
		log:     log,
		lastMsg: make(map[int64]int64),
	}
}

type tgUpdate struct {
	UpdateID      int64       `json:"update_id"`
	Message       *tgMessage  `json:"message"`
	CallbackQuery *tgCallback `json:"callback_query"`
}

type tgMessage struct {
	MessageID int64    `json:"message_id"`
	From      *tgUser  `json:"from"`
	Chat      tgChat   `json:"chat"`
	Text      string   `json:"text"`
	Voice     *tgVoice `json:"voice"`
}

type tgUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

type tgChat struct {
	ID int64 `json:"id"`
}

type tgVoice struct {
	FileID   string `json:"file_id"`
	Duration int    `json:"duration"`
	FileSize int64  `json:"file_size"`
}

type tgCallback struct {
	ID      string     `json:"id"`
	From    *tgUser    `json:"from"`
	Message *tgMessage `json:"message"`
	Data    string     `json:"data"`
}

// Run polls getUpdates until the context is cancelled. Each update is handled
// on its own goroutine so a fresh message can supersede an in-flight one.
func (t *Telegram) Run(ctx context.Context) error {
	t.log.Info("telegram long polling started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		updates, err := t.getUpdates(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			t.log.Warn("getUpdates failed", "err", err)
			time.Sleep(3 * time.Second)
			continue
		}
		for _, upd := range updates {
			if upd.UpdateID >= t.offset {
				t.offset = upd.UpdateID + 1
			}
			go t.handleUpdate(ctx, upd)
		}
	}
}

func (t *Telegram) getUpdates(ctx context.Context) ([]tgUpdate, error) {
	var out struct {
		OK     bool       `json:"ok"`
		Result []tgUpdate `json:"result"`
	}
	err := t.call(ctx, "getUpdates", map[string]any{
		"offset":          t.offset,
		"timeout":         60,
		"allowed_updates": []string{"message", "callback_query"},
	}, &out)
	if err != nil {
		return nil, err
	}
	if !out.OK {
		return nil, fmt.Errorf("getUpdates: telegram returned ok=false")
	}
	return out.Result, nil
}

func (t *Telegram) handleUpdate(ctx context.Context, upd tgUpdate) {
	ev, chatID, ok := t.buildEvent(ctx, upd)
	if !ok {
		return
	}
	if upd.CallbackQuery != nil {
		t.answerCallback(ctx, upd.CallbackQuery.ID)
	}

	resp := t.handler.HandleEvent(ctx, ev)
	for _, msg := range resp.Messages {
		t.deliver(ctx, chatID, msg)
	}
}

func (t *Telegram) buildEvent(ctx context.Context, upd tgUpdate) (flow.Event, int64, bool) {
	switch {
	case upd.CallbackQuery != nil && upd.CallbackQuery.From != nil:
		cb := upd.CallbackQuery
		chatID := cb.From.ID
		if cb.Message != nil {
			chatID = cb.Message.Chat.ID
		}
		return flow.Event{
			TelegramID:    cb.From.ID,
			Username:      cb.From.Username,
			CallbackToken: cb.Data,
		}, chatID, true

	case upd.Message != nil && upd.Message.From != nil:
		m := upd.Message
		ev := flow.Event{
			TelegramID: m.From.ID,
			Username:   m.From.Username,
			Text:       m.Text,
		}
		if m.Voice != nil {
			audio, err := t.downloadFile(ctx, m.Voice.FileID)
			if err != nil {
				t.log.Error("voice download failed", "telegram_id", m.From.ID, "err", err)
				return flow.Event{}, 0, false
			}
			ev.Audio = &flow.Audio{
				Bytes:           audio,
				DurationSeconds: m.Voice.Duration,
				SizeBytes:       m.Voice.FileSize,
			}
		}
		return ev, m.Chat.ID, true
	}
	return flow.Event{}, 0, false
}

// deliver renders one outbound message: control tokens become an inline
// keyboard, visible texts become a reply keyboard.
func (t *Telegram) deliver(ctx context.Context, chatID int64, msg flow.Message) {
	payload := map[string]any{
		"chat_id": chatID,
		"text":    msg.Text,
	}
	if kb := buildKeyboard(msg.SuggestedReplies); kb != nil {
		payload["reply_markup"] = kb
	}

	if msg.EditPrevious {
		t.mu.Lock()
		lastID, ok := t.lastMsg[chatID]
		t.mu.Unlock()
		if ok {
			payload["message_id"] = lastID
			var out struct {
				OK bool `json:"ok"`
			}
			if err := t.call(ctx, "editMessageText", payload, &out); err == nil && out.OK {
				return
			}
			delete(payload, "message_id")
		}
	}

	var out struct {
		OK     bool `json:"ok"`
		Result struct {
			MessageID int64 `json:"message_id"`
		} `json:"result"`
	}
	if err := t.call(ctx, "sendMessage", payload, &out); err != nil {
		t.log.Error("sendMessage failed", "chat_id", chatID, "err", err)
		return
	}
	if out.OK {
		t.mu.Lock()
		t.lastMsg[chatID] = out.Result.MessageID
		t.mu.Unlock()
	}
}

func buildKeyboard(replies []string) map[string]any {
	if len(replies) == 0 {
		return nil
	}
	if flow.IsCallbackToken(replies[0]) {
		var rows [][]map[string]string
		for _, token := range replies {
			rows = append(rows, []map[string]string{{
				"text":          flow.CallbackLabel(token),
				"callback_data": token,
			}})
		}
		return map[string]any{"inline_keyboard": rows}
	}
	var rows [][]map[string]string
	for _, text := range replies {
		rows = append(rows, []map[string]string{{"text": text}})
	}
	return map[string]any{
		"keyboard":        rows,
		"resize_keyboard": true,
	}
}

func (t *Telegram) answerCallback(ctx context.Context, callbackID string) {
	var out struct {
		OK bool `json:"ok"`
	}
	if err := t.call(ctx, "answerCallbackQuery", map[string]any{"callback_query_id": callbackID}, &out); err != nil {
		t.log.Warn("answerCallbackQuery failed", "err", err)
	}
}

func (t *Telegram) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	var out struct {
		OK     bool `json:"ok"`
		Result struct {
			FilePath string `json:"file_path"`
		} `json:"result"`
	}
	if err := t.call(ctx, "getFile", map[string]any{"file_id": fileID}, &out); err != nil {
		return nil, err
	}
	if !out.OK || out.Result.FilePath == "" {
		return nil, fmt.Errorf("getFile: no file path for %s", fileID)
	}

	url := fmt.Sprintf("%s/file/bot%s/%s", t.apiBase, t.token, out.Result.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file download: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (t *Telegram) call(ctx context.Context, method string, payload map[string]any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/bot%s/%s", t.apiBase, t.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}
