package telegram

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

	"github.com/clivihealth/careflow/internal/models"
)

// fakeAPI is a scripted Bot API server. It records every method call and
// replies with canned results per method.
type fakeAPI struct {
	mu      sync.Mutex
	calls   []string
	bodies  map[string][]byte
	results map[string]string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{bodies: make(map[string][]byte), results: make(map[string]string)}
}

func (f *fakeAPI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		method := parts[len(parts)-1]
		body, _ := io.ReadAll(r.Body)

		f.mu.Lock()
		f.calls = append(f.calls, method)
		f.bodies[method] = body
		result, ok := f.results[method]
		f.mu.Unlock()

		if !ok {
			result = "true"
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(`{"ok":true,"result":` + result + `}`)); err != nil {
			t.Errorf("write response: %v", err)
		}
	}
}

func (f *fakeAPI) called(method string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == method {
			return true
		}
	}
	return false
}

func newTestBot(t *testing.T, api *fakeAPI) *Bot {
	t.Helper()
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)
	bot, err := NewBot(WithToken("123:abc"), WithAPIBaseURL(srv.URL), WithPollTimeout(time.Second))
	if err != nil {
		t.Fatalf("NewBot failed: %v", err)
	}
	return bot
}

func TestNewBotRequiresToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	if _, err := NewBot(); err == nil {
		t.Fatal("expected error without a token")
	}
}

func TestPollNormalizesUpdates(t *testing.T) {
	api := newFakeAPI()
	api.results["getUpdates"] = `[
		{"update_id": 10, "message": {"chat": {"id": 42}, "text": "hola", "date": 1756700000}},
		{"update_id": 11, "callback_query": {"id": "cb1", "data": "MEASUREMENTS", "message": {"chat": {"id": 42}}}},
		{"update_id": 12, "message": {"chat": {"id": 43}, "text": "", "date": 1756700001}}
	]`
	bot := newTestBot(t, api)

	msgs, err := bot.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("Poll = %d messages, want 2 (empty text skipped)", len(msgs))
	}

	if msgs[0].Channel != models.ChannelTelegram || msgs[0].ExternalUserID != "42" || msgs[0].Text != "hola" {
		t.Errorf("text message = %+v", msgs[0])
	}
	if msgs[1].ButtonID != "MEASUREMENTS" || msgs[1].ExternalUserID != "42" {
		t.Errorf("callback message = %+v", msgs[1])
	}
	if !api.called("answerCallbackQuery") {
		t.Error("callback query was not acknowledged")
	}

	// The next poll asks for updates past the last one seen.
	api.results["getUpdates"] = `[]`
	if _, err := bot.Poll(context.Background()); err != nil {
		t.Fatalf("second Poll failed: %v", err)
	}
	var req struct {
		Offset int64 `json:"offset"`
	}
	if err := json.Unmarshal(api.bodies["getUpdates"], &req); err != nil {
		t.Fatalf("decode getUpdates body: %v", err)
	}
	if req.Offset != 13 {
		t.Errorf("offset = %d, want 13", req.Offset)
	}
}

func TestSendRenderBuildsInlineKeyboard(t *testing.T) {
	api := newFakeAPI()
	api.results["sendMessage"] = `{"message_id": 1}`
	bot := newTestBot(t, api)

	render := models.RenderContract{
		Text: "¿Qué necesitas?",
		Buttons: []models.Button{
			{ID: "APPOINTMENTS", Label: "Citas"},
			{ID: "MEASUREMENTS", Label: "Mediciones"},
		},
	}
	if err := bot.SendRender(context.Background(), "42", render); err != nil {
		t.Fatalf("SendRender failed: %v", err)
	}

	var req struct {
		ChatID      int64  `json:"chat_id"`
		Text        string `json:"text"`
		ReplyMarkup struct {
			InlineKeyboard [][]struct {
				Text         string `json:"text"`
				CallbackData string `json:"callback_data"`
			} `json:"inline_keyboard"`
		} `json:"reply_markup"`
	}
	if err := json.Unmarshal(api.bodies["sendMessage"], &req); err != nil {
		t.Fatalf("decode sendMessage body: %v", err)
	}
	if req.ChatID != 42 || req.Text != "¿Qué necesitas?" {
		t.Errorf("request = %+v", req)
	}
	if len(req.ReplyMarkup.InlineKeyboard) != 2 {
		t.Fatalf("keyboard rows = %d, want 2", len(req.ReplyMarkup.InlineKeyboard))
	}
	if req.ReplyMarkup.InlineKeyboard[0][0].CallbackData != "APPOINTMENTS" {
		t.Errorf("first row = %+v, want APPOINTMENTS callback", req.ReplyMarkup.InlineKeyboard[0])
	}
}

func TestSendRenderRejectsBadChatID(t *testing.T) {
	bot := newTestBot(t, newFakeAPI())
	if err := bot.SendRender(context.Background(), "not-a-number", models.RenderContract{Text: "hola"}); err == nil {
		t.Fatal("expected error for non-numeric chat id")
	}
}

func TestCallSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"description":"Unauthorized"}`))
	}))
	t.Cleanup(srv.Close)
	bot, err := NewBot(WithToken("123:abc"), WithAPIBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewBot failed: %v", err)
	}
	if err := bot.SendMessage(context.Background(), "42", "hola"); err == nil || !strings.Contains(err.Error(), "Unauthorized") {
		t.Fatalf("error = %v, want Unauthorized surfaced", err)
	}
}
