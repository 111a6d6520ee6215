package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-portal/pkg/core/services"
	"github.com/jakechorley/volunteer-portal/pkg/db"
	"github.com/jakechorley/volunteer-portal/pkg/dedupe"
)

// Options wires a Server's collaborators. Hub, Guard and JWTSecret are optional.
type Options struct {
	Store db.Database
	Deps  services.Deps
	// Hub serves /ws/events when set
	Hub http.Handler
	// Guard drops repeated Telegram updates when set
	Guard dedupe.Guard
	// JWTSecret enables bearer auth on admin routes
	JWTSecret string
	// WebhookSecret is compared with the X-Telegram-Bot-Api-Secret-Token header
	WebhookSecret string
}

// Server exposes the portal's HTTP API
type Server struct {
	store         db.Database
	deps          services.Deps
	hub           http.Handler
	guard         dedupe.Guard
	jwt           *jwtauth.JWTAuth
	webhookSecret string
	logger        *zap.Logger
}

func New(opts Options, logger *zap.Logger) *Server {
	s := &Server{
		store:         opts.Store,
		deps:          opts.Deps,
		hub:           opts.Hub,
		guard:         opts.Guard,
		webhookSecret: opts.WebhookSecret,
		logger:        logger,
	}
	if opts.JWTSecret != "" {
		s.jwt = newJWTAuth(opts.JWTSecret)
	}
	return s
}

// Router builds the chi router for every endpoint
func (s *Server) Router() http.Handler {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(s.accessLog)
	router.Use(s.recoverer)
	router.Use(cors)
	if s.jwt != nil {
		router.Use(jwtauth.Verifier(s.jwt))
	}

	// Public routes
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Post("/checkin", s.handleCheckIn)
	router.Post("/checkout", s.handleCheckOut)
	router.Post("/task", s.handleCreateTask)
	router.Post("/complete-task", s.handleTransitionTask)
	router.Get("/volunteer", s.handleLookup)
	router.Get("/telegram-bot", s.handleTelegramLive)
	router.Post("/telegram-bot", s.handleTelegram)

	// Admin routes
	router.Group(func(r chi.Router) {
		r.Use(s.requireAdmin)

		r.Post("/assign-task", s.handleAssignTask)
		r.Post("/approve", s.handleModerate)
		r.Get("/audit", s.handleAudit)
		if s.hub != nil {
			r.Get("/ws/events", s.hub.ServeHTTP)
		}
	})

	return router
}
