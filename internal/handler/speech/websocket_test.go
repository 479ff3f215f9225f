package speech

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/profile-assistant/backend/internal/model/chat"
	"github.com/zhouzirui/profile-assistant/backend/internal/model/profile"
	chatservice "github.com/zhouzirui/profile-assistant/backend/internal/service/chat"
	"github.com/zhouzirui/profile-assistant/backend/internal/service/responder"
	speechsvc "github.com/zhouzirui/profile-assistant/backend/internal/service/speech"
)

func boolPtr(v bool) *bool { return &v }
func intPtr(v int) *int    { return &v }

func TestApplyConfigUpdatesSettings(t *testing.T) {
	cfg := ConfigMessage{
		Personality:   "friendly",
		ResponseSpeed: intPtr(3),
		VoiceEnabled:  boolPtr(true),
		EmojiMode:     boolPtr(false),
		Language:      "spanish",
	}

	got := applyConfig(chat.DefaultSettings(), cfg)

	if got.Personality != chat.Friendly || got.ResponseSpeed != 3 {
		t.Fatalf("unexpected settings: %+v", got)
	}
	if !got.VoiceEnabled || got.EmojiMode {
		t.Fatalf("expected voice on and emoji off: %+v", got)
	}
	if got.Language != "spanish" {
		t.Fatalf("expected language spanish, got %s", got.Language)
	}
}

func TestApplyConfigKeepsUnsetFields(t *testing.T) {
	got := applyConfig(chat.DefaultSettings(), ConfigMessage{VoiceEnabled: boolPtr(true)})
	want := chat.DefaultSettings()
	want.VoiceEnabled = true
	if got != want {
		t.Fatalf("unexpected settings: %+v", got)
	}
}

func TestRecognizerFor(t *testing.T) {
	ctx := context.Background()

	text, err := recognizerFor(TranscriptMessage{Text: "hello"}).Listen(ctx)
	if err != nil || text != "hello" {
		t.Fatalf("expected transcript, got %q %v", text, err)
	}
	if _, err := recognizerFor(TranscriptMessage{Error: "not-supported"}).Listen(ctx); !errors.Is(err, speechsvc.ErrNotSupported) {
		t.Fatalf("expected ErrNotSupported, got %v", err)
	}
	if _, err := recognizerFor(TranscriptMessage{Error: "no-speech"}).Listen(ctx); !errors.Is(err, speechsvc.ErrRecognition) {
		t.Fatalf("expected ErrRecognition, got %v", err)
	}
}

type wsEnvelope struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

func dial(t *testing.T) (*websocket.Conn, *chatservice.Session, func()) {
	t.Helper()
	chatSvc := chatservice.NewService(
		profile.NewMemoryStore(profile.Seed()),
		responder.NewGenerator(responder.NewTemplateStore()),
		nil,
		chatservice.Config{Timing: chatservice.Timing{SpeedFactor: time.Millisecond}},
		nil,
	)
	settings := chat.DefaultSettings()
	settings.VoiceEnabled = true
	session, err := chatSvc.CreateSession(context.Background(), "", &settings)
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	r := chi.NewRouter()
	NewWebSocketHandler(chatSvc, nil).RegisterRoutes(r)
	srv := httptest.NewServer(r)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/speech/ws/" + session.ID()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial: %v", err)
	}
	return conn, session, func() {
		conn.Close()
		srv.Close()
	}
}

// readUntil reads frames until match returns true or the deadline passes.
func readUntil(t *testing.T, conn *websocket.Conn, match func(wsEnvelope) bool) wsEnvelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var env wsEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if match(env) {
			return env
		}
	}
}

func TestWebSocketTextProducesSpeak(t *testing.T) {
	conn, _, closeAll := dial(t)
	defer closeAll()

	first := readUntil(t, conn, func(wsEnvelope) bool { return true })
	if first.Type != "snapshot" {
		t.Fatalf("expected initial snapshot, got %s", first.Type)
	}

	if err := conn.WriteJSON(map[string]any{"type": "text", "data": map[string]string{"text": "help"}}); err != nil {
		t.Fatalf("write: %v", err)
	}

	speak := readUntil(t, conn, func(env wsEnvelope) bool { return env.Type == "speak" })
	text, _ := speak.Data["text"].(string)
	if text == "" || strings.Contains(text, "•") {
		t.Fatalf("speak text should be cleaned and non-empty: %q", text)
	}
}

func TestWebSocketTranscriptUnsupported(t *testing.T) {
	conn, session, closeAll := dial(t)
	defer closeAll()
	readUntil(t, conn, func(wsEnvelope) bool { return true })

	if err := conn.WriteJSON(map[string]any{"type": "transcript", "data": map[string]string{"error": "not-supported"}}); err != nil {
		t.Fatalf("write: %v", err)
	}

	readUntil(t, conn, func(env wsEnvelope) bool {
		msgs, _ := env.Data["messages"].([]any)
		return env.Type == "snapshot" && len(msgs) == 2
	})
	msgs := session.Messages()
	if last := msgs[len(msgs)-1]; !strings.HasPrefix(last.Text, "Speech recognition is not supported") {
		t.Fatalf("unexpected notice %q", last.Text)
	}
}

func TestWebSocketUnknownType(t *testing.T) {
	conn, _, closeAll := dial(t)
	defer closeAll()
	readUntil(t, conn, func(wsEnvelope) bool { return true })

	if err := conn.WriteJSON(map[string]any{"type": "audio", "data": map[string]any{}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	env := readUntil(t, conn, func(env wsEnvelope) bool { return env.Type == "error" })
	if msg, _ := env.Data["message"].(string); !strings.Contains(msg, "unsupported message type") {
		t.Fatalf("unexpected error payload: %+v", env.Data)
	}
}
