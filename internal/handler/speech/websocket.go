package speech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/profile-assistant/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/profile-assistant/backend/internal/service/chat"
	speechsvc "github.com/zhouzirui/profile-assistant/backend/internal/service/speech"
	"github.com/zhouzirui/profile-assistant/backend/pkg/safego"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// WebSocketHandler 语音与实时会话的 WebSocket 处理器。
// 浏览器负责录音识别和朗读，这里只接收识别结果并推送需要朗读的文本。
type WebSocketHandler struct {
	chatSvc  *chatservice.Service
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(chatSvc *chatservice.Service, logger *zap.Logger) *WebSocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketHandler{
		chatSvc: chatSvc,
		logger:  logger.With(zap.String("component", "websocket")),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/speech/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// TextMessage 文本消息
type TextMessage struct {
	Text string `json:"text"`
}

// TranscriptMessage 浏览器语音识别的结果。Error 为识别失败原因，
// "not-supported" 表示浏览器不支持语音识别。
type TranscriptMessage struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// ConfigMessage 配置消息，未提供的字段保持不变
type ConfigMessage struct {
	Personality   string `json:"personality,omitempty"`
	ResponseSpeed *int   `json:"responseSpeed,omitempty"`
	VoiceEnabled  *bool  `json:"voiceEnabled,omitempty"`
	EmojiMode     *bool  `json:"emojiMode,omitempty"`
	Language      string `json:"language,omitempty"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// wsConn serializes writes; gorilla connections allow one concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", zap.Error(err))
		return
	}
	defer raw.Close()
	conn := &wsConn{conn: raw}

	logger := h.logger.With(zap.String("session_id", sessionID))
	logger.Info("new connection")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, unsubscribe := session.Subscribe()
	defer unsubscribe()

	_ = raw.SetReadDeadline(time.Now().Add(readTimeout))
	raw.SetPongHandler(func(string) error {
		return raw.SetReadDeadline(time.Now().Add(readTimeout))
	})

	snapshot := session.Snapshot()
	if err := h.send(conn, sessionID, string(chatservice.EventSnapshot), snapshot); err != nil {
		return
	}

	safego.Go(logger, "ws-forward", func() { h.forward(ctx, conn, sessionID, events) })
	safego.Go(logger, "ws-ping", func() { h.pingLoop(ctx, conn) })

	for {
		var msg inboundMessage
		if err := raw.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("read error", zap.Error(err))
			}
			return
		}
		_ = raw.SetReadDeadline(time.Now().Add(readTimeout))

		if err := h.handleMessage(ctx, session, &msg); err != nil {
			h.sendError(conn, err.Error())
		}
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, session *chatservice.Session, msg *inboundMessage) error {
	switch msg.Type {
	case "text":
		var payload TextMessage
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return errors.New("invalid text payload")
		}
		_, err := session.Submit(ctx, payload.Text)
		if errors.Is(err, chatservice.ErrEmptyInput) {
			return nil
		}
		return err
	case "transcript":
		var payload TranscriptMessage
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return errors.New("invalid transcript payload")
		}
		err := session.Listen(ctx, recognizerFor(payload))
		if errors.Is(err, chatservice.ErrEmptyInput) {
			return nil
		}
		return err
	case "config":
		var payload ConfigMessage
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return errors.New("invalid config payload")
		}
		_, err := session.UpdateSettings(applyConfig(session.Settings(), payload))
		return err
	default:
		return fmt.Errorf("unsupported message type: %s", msg.Type)
	}
}

// recognizerFor 把浏览器上报的识别结果包装成 Recognizer
func recognizerFor(msg TranscriptMessage) speechsvc.Recognizer {
	return speechsvc.RecognizerFunc(func(context.Context) (string, error) {
		switch reason := strings.TrimSpace(msg.Error); {
		case reason == "":
			return msg.Text, nil
		case strings.EqualFold(reason, "not-supported"), strings.EqualFold(reason, "unsupported"):
			return "", speechsvc.ErrNotSupported
		default:
			return "", fmt.Errorf("%w: %s", speechsvc.ErrRecognition, reason)
		}
	})
}

func applyConfig(settings chat.Settings, cfg ConfigMessage) chat.Settings {
	if cfg.Personality != "" {
		settings.Personality = chat.Personality(cfg.Personality)
	}
	if cfg.ResponseSpeed != nil {
		settings.ResponseSpeed = *cfg.ResponseSpeed
	}
	if cfg.VoiceEnabled != nil {
		settings.VoiceEnabled = *cfg.VoiceEnabled
	}
	if cfg.EmojiMode != nil {
		settings.EmojiMode = *cfg.EmojiMode
	}
	if cfg.Language != "" {
		settings.Language = cfg.Language
	}
	return settings
}

func (h *WebSocketHandler) forward(ctx context.Context, conn *wsConn, sessionID string, events <-chan chatservice.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, open := <-events:
			if !open {
				return
			}
			var data any = evt.Snapshot
			if evt.Type == chatservice.EventSpeak {
				data = map[string]string{"text": evt.Text}
			}
			if err := h.send(conn, sessionID, string(evt.Type), data); err != nil {
				return
			}
		}
	}
}

func (h *WebSocketHandler) send(conn *wsConn, sessionID, kind string, data any) error {
	msg := outgoingMessage{
		Type:      kind,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	if err := conn.writeJSON(msg); err != nil {
		h.logger.Debug("write failed", zap.String("type", kind), zap.Error(err))
		return err
	}
	return nil
}

func (h *WebSocketHandler) sendError(conn *wsConn, message string) {
	_ = h.send(conn, "", "error", map[string]string{"message": message})
}

func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *wsConn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		}
	}
}
