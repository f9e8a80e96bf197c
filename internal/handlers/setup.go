package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"groupchat-backend/internal/database"
	"groupchat-backend/internal/gif"
	"groupchat-backend/internal/hub"
	"groupchat-backend/internal/jwt"
	"groupchat-backend/internal/keyValue"
	"groupchat-backend/internal/models"
	"groupchat-backend/internal/storage"
)

type Handlers struct {
	sugar     *zap.SugaredLogger
	repo      database.Repository
	hub       *hub.Hub
	uploader  storage.Uploader
	gifClient *gif.Client
	verifier  *jwt.Verifier
	kv        *keyValue.KV
	validate  *validator.Validate
}

func New(sugar *zap.SugaredLogger, repo database.Repository, h *hub.Hub, uploader storage.Uploader, gifClient *gif.Client, verifier *jwt.Verifier, kv *keyValue.KV) *Handlers {
	return &Handlers{
		sugar:     sugar,
		repo:      repo,
		hub:       h,
		uploader:  uploader,
		gifClient: gifClient,
		verifier:  verifier,
		kv:        kv,
		validate:  validator.New(),
	}
}

func (h *Handlers) Router(cfg *models.ConfigFile, uploadDir string) chi.Router {
	r := chi.NewRouter()

	if cfg.Cors {
		r.Use(AllowCors)
	}
	if cfg.PrintHttpRequests {
		r.Use(middleware.Logger)
	}

	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", h.Health)

		api.Route("/groups", func(r chi.Router) {
			r.Use(h.UserVerifier)
			r.Post("/", h.CreateGroup)
			r.Get("/", h.ListGroups)
			r.Get("/search-users", h.SearchUsers)
			r.Delete("/{id}", h.DeleteGroup)
			r.Patch("/{id}/members", h.UpdateGroupMembers)
		})

		api.Route("/groupmembers", func(r chi.Router) {
			r.Use(h.UserVerifier)
			r.Post("/", h.CreateMember)
			r.Get("/user/{userId}", h.ListUserMemberships)
			r.Get("/{groupId}", h.ListGroupMembers)
			r.Patch("/{id}", h.UpdateMember)
			r.Delete("/{id}", h.DeleteMember)
		})

		api.Route("/messages", func(r chi.Router) {
			r.Use(h.UserVerifier)
			r.Post("/", h.CreateMessage)
			r.Post("/gif", h.CreateGifMessage)
			r.Get("/gif/search", h.SearchGifs)
			r.Get("/group/{groupId}", h.GetGroupMessages)
			r.Get("/search", h.SearchMessages)
			r.Post("/{id}/read", h.MarkMessageRead)
		})

		api.Route("/users", func(r chi.Router) {
			r.Use(h.UserVerifier)
			r.Post("/", h.CreateUser)
			r.Get("/{id}", h.GetUser)
			r.Patch("/{id}", h.UpdateUser)
		})
	})

	var websocketPath string
	if cfg.BehindNginx {
		websocketPath = "/ws/"
	} else {
		websocketPath = "/ws"
		r.Handle("/cdn/*", http.StripPrefix("/cdn/", http.FileServer(http.Dir(uploadDir))))
	}

	r.Get(websocketPath, h.hub.ServeWS)

	return r
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Ping(r.Context()); err != nil {
		h.sugar.Error(err)
		h.respondError(w, http.StatusInternalServerError, "database unreachable")
		return
	}
	w.WriteHeader(http.StatusOK)
}
