package chat

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/profile-assistant/backend/internal/model/chat"
	chatService "github.com/zhouzirui/profile-assistant/backend/internal/service/chat"
	"github.com/zhouzirui/profile-assistant/backend/pkg/utils"
)

const heartbeatInterval = 15 * time.Second

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
	logger  *zap.Logger
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		chatSvc: chatSvc,
		logger:  logger.With(zap.String("component", "chat_handler")),
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreateSession)
	r.Route("/sessions/{sessionID}", func(s chi.Router) {
		s.Get("/", h.handleGetSession)
		s.Delete("/", h.handleCloseSession)
		s.Post("/messages", h.handleSubmit)
		s.Delete("/messages", h.handleClear)
		s.Post("/feedback", h.handleRate)
		s.Get("/feedback", h.handleListFeedback)
		s.Put("/settings", h.handleUpdateSettings)
		s.Put("/minimized", h.handleSetMinimized)
		s.Get("/export", h.handleExport)
		s.Post("/copy", h.handleCopy)
		s.Get("/events", h.handleEvents)
	})
}

// handleCreateSession 创建或恢复会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ID       string         `json:"id"`
		Settings *chat.Settings `json:"settings"`
	}
	if err := decodeOptional(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.chatSvc.CreateSession(r.Context(), payload.ID, payload.Settings)
	if err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusCreated, session.Snapshot())
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, session.Snapshot())
}

func (h *Handler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.CloseSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSubmit 提交用户消息，回复稍后通过事件流推送
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := session.Submit(r.Context(), payload.Text)
	switch {
	case errors.Is(err, chatService.ErrEmptyInput):
		utils.RespondJSON(w, http.StatusAccepted, map[string]string{"status": "ignored"})
	case err != nil:
		utils.RespondError(w, statusFor(err), err.Error())
	default:
		utils.RespondJSON(w, http.StatusAccepted, map[string]any{
			"status":  "accepted",
			"message": msg,
		})
	}
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	session.Clear(r.Context())
	utils.RespondJSON(w, http.StatusOK, session.Snapshot())
}

func (h *Handler) handleRate(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var payload struct {
		Type chat.FeedbackType `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := session.Rate(r.Context(), payload.Type)
	if err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusCreated, record)
}

func (h *Handler) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, session.Feedback(r.Context()))
}

func (h *Handler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	settings := session.Settings()
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := session.UpdateSettings(settings)
	if err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleSetMinimized(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var payload struct {
		Minimized bool `json:"minimized"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	session.SetMinimized(payload.Minimized)
	utils.RespondJSON(w, http.StatusOK, session.Snapshot())
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	body, err := session.Export()
	if err != nil {
		h.logger.Error("export failed", zap.String("session_id", session.ID()), zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "export failed")
		return
	}
	utils.RespondAttachment(w, session.ExportFileName(), "application/json", body)
}

func (h *Handler) handleCopy(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"text": session.CopyTranscript()})
}

// handleEvents 通过 SSE 推送会话快照与朗读事件
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events, cancel := session.Subscribe()
	defer cancel()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	snapshot := session.Snapshot()
	if err := utils.SendSSEEvent(w, flusher, string(chatService.EventSnapshot), snapshot); err != nil {
		return
	}

	ctx := r.Context()
	h.logger.Debug("event stream opened", zap.String("session_id", session.ID()))
	defer h.logger.Debug("event stream closed", zap.String("session_id", session.ID()))

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, open := <-events:
			if !open {
				return
			}
			var data any = evt.Snapshot
			if evt.Type == chatService.EventSpeak {
				data = map[string]string{"text": evt.Text}
			}
			if err := utils.SendSSEEvent(w, flusher, string(evt.Type), data); err != nil {
				return
			}
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "heartbeat"); err != nil {
				return
			}
		}
	}
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*chatService.Session, bool) {
	session, err := h.chatSvc.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return nil, false
	}
	return session, true
}

// decodeOptional 允许空请求体
func decodeOptional(r *http.Request, out any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(out)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// statusFor 将领域错误映射为 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, chatService.ErrAwaitingResponse),
		errors.Is(err, chatService.ErrNoBotMessage):
		return http.StatusConflict
	case errors.Is(err, chatService.ErrInvalidSettings),
		errors.Is(err, chatService.ErrInvalidFeedback),
		errors.Is(err, chatService.ErrInvalidSessionID),
		errors.Is(err, chatService.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, chatService.ErrSessionClosed):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}
