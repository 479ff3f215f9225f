package profile

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/profile-assistant/backend/internal/model/profile"
	"github.com/zhouzirui/profile-assistant/backend/internal/service/responder"
	"github.com/zhouzirui/profile-assistant/backend/pkg/utils"
)

// Handler 作品集资料的HTTP处理器
type Handler struct {
	profiles profile.Store
}

// New 创建资料处理器
func New(profiles profile.Store) *Handler {
	return &Handler{profiles: profiles}
}

// RegisterRoutes 注册资料相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/profile", h.handleGetProfile)
	r.Get("/quick-questions", h.handleQuickQuestions)
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.profiles.Get())
}

// handleQuickQuestions 返回推荐问题列表
func (h *Handler) handleQuickQuestions(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, responder.QuickQuestions())
}
