package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rez77/talabot/internal/flow"
)

type echoHandler struct {
	last flow.Event
}

func (e *echoHandler) HandleEvent(ctx context.Context, ev flow.Event) flow.Response {
	e.last = ev
	return flow.Response{Messages: []flow.Message{{Text: "پاسخ"}}}
}

func TestWebhookRoundTrip(t *testing.T) {
	h := &echoHandler{}
	w := NewWebhook(":0", "/webhook", h, discardLogger())

	body := `{"external_user_id": 42, "username": "maryam", "text": "/start"}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	w.srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if h.last.TelegramID != 42 || h.last.Text != "/start" {
		t.Fatalf("event not decoded: %+v", h.last)
	}

	var resp flow.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Messages) != 1 || resp.Messages[0].Text != "پاسخ" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestWebhookRejectsBadPayload(t *testing.T) {
	w := NewWebhook(":0", "/webhook", &echoHandler{}, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	w.srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestWebhookRequiresUserID(t *testing.T) {
	w := NewWebhook(":0", "/webhook", &echoHandler{}, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"text": "hi"}`))
	rec := httptest.NewRecorder()
	w.srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	w := NewWebhook(":0", "/webhook", &echoHandler{}, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	w.srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestBuildKeyboard(t *testing.T) {
	if buildKeyboard(nil) != nil {
		t.Fatalf("no replies means no keyboard")
	}

	inline := buildKeyboard([]string{"confirm_yes", "confirm_no"})
	if _, ok := inline["inline_keyboard"]; !ok {
		t.Fatalf("control tokens must render as inline keyboard: %v", inline)
	}

	reply := buildKeyboard([]string{"آماده‌ام"})
	if _, ok := reply["keyboard"]; !ok {
		t.Fatalf("plain texts must render as reply keyboard: %v", reply)
	}
}
