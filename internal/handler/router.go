package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/profile-assistant/backend/internal/handler/chat"
	profileHandler "github.com/zhouzirui/profile-assistant/backend/internal/handler/profile"
	"github.com/zhouzirui/profile-assistant/backend/internal/handler/speech"
	middlewarePkg "github.com/zhouzirui/profile-assistant/backend/internal/middleware"
	"github.com/zhouzirui/profile-assistant/backend/internal/model/profile"
	chatService "github.com/zhouzirui/profile-assistant/backend/internal/service/chat"
	"github.com/zhouzirui/profile-assistant/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(profiles profile.Store, chatSvc *chatService.Service, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	profileH := profileHandler.New(profiles)
	chatH := chat.New(chatSvc, logger)
	speechH := speech.NewWebSocketHandler(chatSvc, logger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		profileH.RegisterRoutes(api)
		chatH.RegisterRoutes(api)
		speechH.RegisterRoutes(api)
	})

	return r
}
