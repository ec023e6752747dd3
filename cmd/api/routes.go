package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"adzopay/internal/domain"
	httpinfra "adzopay/internal/infra/http"
	"adzopay/internal/usecase/feed"
	"adzopay/internal/usecase/gesture"
	"adzopay/internal/usecase/reward"
	"adzopay/internal/usecase/viewing"
	"adzopay/internal/usecase/wallet"
)

type walletProjector interface {
	Project(ctx context.Context, userID string) (wallet.Projection, error)
}

type signOuter interface {
	SignOut(ctx context.Context, token string) (domain.User, error)
}

type handlers struct {
	sessions  *viewing.Manager
	wallets   walletProjector
	videos    domain.VideoRepo
	media     domain.MediaResolver
	analytics domain.BusinessMetricRepo
	auth      signOuter
	log       zerolog.Logger
}

type mediaErrorRequest struct {
	ItemID string `json:"item_id"`
	Reason string `json:"reason"`
}

type registerVideoRequest struct {
	StoragePath string `json:"storage_path"`
	Filename    string `json:"filename"`
	Title       string `json:"title"`
	Description string `json:"description"`
	DurationMS  int64  `json:"duration_ms"`
	Size        int64  `json:"size"`
	Mime        string `json:"mime"`
}

type videoResponse struct {
	ID          int64     `json:"id"`
	Filename    string    `json:"filename"`
	StoragePath string    `json:"storage_path"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DurationMS  int64     `json:"duration_ms"`
	URL         string    `json:"url"`
	Size        int64     `json:"size"`
	Mime        string    `json:"mime,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// mount регистрирует маршруты /api/v1 за проверкой bearer-токена.
func (h *handlers) mount(r chi.Router, resolver httpinfra.UserResolver) {
	r.Route("/api/v1", func(api chi.Router) {
		api.Use(httpinfra.BearerAuthMiddleware(resolver, h.log))

		api.Post("/sessions", h.openSession)
		api.Route("/sessions/{id}", func(s chi.Router) {
			s.Get("/", h.withSession(func(w http.ResponseWriter, r *http.Request, sess *viewing.Session) {
				h.respondSnapshot(w)(sess.Snapshot(r.Context()))
			}))
			s.Delete("/", h.closeSession)
			s.Post("/gestures", h.withSession(h.gesture))
			s.Post("/advance", h.withSession(func(w http.ResponseWriter, r *http.Request, sess *viewing.Session) {
				h.respondSnapshot(w)(sess.Advance(r.Context()))
			}))
			s.Post("/retreat", h.withSession(func(w http.ResponseWriter, r *http.Request, sess *viewing.Session) {
				h.respondSnapshot(w)(sess.Retreat(r.Context()))
			}))
			s.Post("/play", h.withSession(func(w http.ResponseWriter, r *http.Request, sess *viewing.Session) {
				h.respondSnapshot(w)(sess.Play(r.Context()))
			}))
			s.Post("/stop", h.withSession(func(w http.ResponseWriter, r *http.Request, sess *viewing.Session) {
				h.respondSnapshot(w)(sess.Stop(r.Context()))
			}))
			s.Post("/like", h.withSession(h.like))
			s.Post("/media-error", h.withSession(h.mediaError))
		})

		api.Get("/wallet", h.wallet)
		api.Get("/videos", h.listVideos)
		api.Post("/videos", h.registerVideo)
		api.Post("/auth/signout", h.signOut)
	})
}

func currentUser(r *http.Request) domain.User {
	user, _ := httpinfra.UserFromContext(r.Context())
	return user
}

func (h *handlers) openSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Open(r.Context(), currentUser(r))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	snap, err := sess.Snapshot(r.Context())
	if err != nil {
		h.writeErr(w, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusCreated, snap)
}

func (h *handlers) withSession(fn func(http.ResponseWriter, *http.Request, *viewing.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := h.sessions.Get(currentUser(r).ID, chi.URLParam(r, "id"))
		if err != nil {
			h.writeErr(w, err)
			return
		}
		fn(w, r, sess)
	}
}

func (h *handlers) closeSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(currentUser(r).ID, chi.URLParam(r, "id"))
	if err == nil {
		err = h.sessions.Close(sess.ID())
	}
	if err != nil {
		h.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respondSnapshot пишет снимок или ошибку операции.
func (h *handlers) respondSnapshot(w http.ResponseWriter) func(viewing.Snapshot, error) {
	return func(snap viewing.Snapshot, err error) {
		if err != nil {
			h.writeErr(w, err)
			return
		}
		httpinfra.WriteJSON(w, http.StatusOK, snap)
	}
}

func (h *handlers) gesture(w http.ResponseWriter, r *http.Request, sess *viewing.Session) {
	var ev gesture.Event
	if err := httpinfra.DecodeJSON(r, &ev); err != nil {
		httpinfra.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := sess.Gesture(r.Context(), ev)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, res)
}

func (h *handlers) like(w http.ResponseWriter, r *http.Request, sess *viewing.Session) {
	liked, snap, err := sess.ToggleLike(r.Context())
	if err != nil {
		h.writeErr(w, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, map[string]any{"liked": liked, "snapshot": snap})
}

func (h *handlers) mediaError(w http.ResponseWriter, r *http.Request, sess *viewing.Session) {
	var req mediaErrorRequest
	if err := httpinfra.DecodeJSON(r, &req); err != nil {
		httpinfra.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.respondSnapshot(w)(sess.ReportMediaError(r.Context(), req.ItemID, req.Reason))
}

func (h *handlers) wallet(w http.ResponseWriter, r *http.Request) {
	projection, err := h.wallets.Project(r.Context(), currentUser(r).ID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, projection)
}

func (h *handlers) toVideoResponse(v domain.Video) videoResponse {
	return videoResponse{
		ID:          v.ID,
		Filename:    v.Filename,
		StoragePath: v.StoragePath,
		Title:       v.Title,
		Description: v.Description,
		DurationMS:  v.Duration.Milliseconds(),
		URL:         h.media.PublicURL(v.StoragePath),
		Size:        v.Size,
		Mime:        v.Mime,
		CreatedAt:   v.CreatedAt,
	}
}

func (h *handlers) listVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := h.videos.ListVideos(r.Context())
	if err != nil {
		h.writeErr(w, err)
		return
	}
	out := make([]videoResponse, 0, len(videos))
	for _, v := range videos {
		out = append(out, h.toVideoResponse(v))
	}
	httpinfra.WriteJSON(w, http.StatusOK, map[string]any{"videos": out})
}

func (h *handlers) registerVideo(w http.ResponseWriter, r *http.Request) {
	var req registerVideoRequest
	if err := httpinfra.DecodeJSON(r, &req); err != nil {
		httpinfra.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.StoragePath) == "" {
		httpinfra.WriteError(w, http.StatusBadRequest, "storage_path is required")
		return
	}
	if req.DurationMS < 0 || req.Size < 0 {
		httpinfra.WriteError(w, http.StatusBadRequest, "duration_ms and size must not be negative")
		return
	}
	user := currentUser(r)
	video, err := h.videos.RegisterVideo(r.Context(), domain.RegisterVideoParams{
		UserID:      user.ID,
		Filename:    req.Filename,
		StoragePath: req.StoragePath,
		Title:       req.Title,
		Description: req.Description,
		Duration:    time.Duration(req.DurationMS) * time.Millisecond,
		Size:        req.Size,
		Mime:        req.Mime,
	})
	if err != nil {
		h.writeErr(w, err)
		return
	}
	if h.analytics != nil {
		path := video.StoragePath
		if err := h.analytics.RecordBusinessMetric(r.Context(), domain.BusinessMetric{
			Event:    domain.BusinessMetricEventVideoRegistered,
			UserID:   &user.ID,
			ItemID:   &path,
			Metadata: map[string]any{"video_id": video.ID, "size": video.Size},
		}); err != nil {
			h.log.Error().Err(err).Msg("api: не удалось сохранить бизнес-метрику")
		}
	}
	httpinfra.WriteJSON(w, http.StatusCreated, h.toVideoResponse(video))
}

func (h *handlers) signOut(w http.ResponseWriter, r *http.Request) {
	if _, err := h.auth.SignOut(r.Context(), httpinfra.TokenFromContext(r.Context())); err != nil {
		h.log.Warn().Err(err).Msg("api: выход завершился с ошибкой")
	}
	httpinfra.WriteJSON(w, http.StatusOK, map[string]string{"status": "signed_out", "redirect": httpinfra.LoginRedirect})
}

// writeErr выбирает статус по ошибке usecase.
func (h *handlers) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		httpinfra.WriteUnauthorized(w)
	case errors.Is(err, viewing.ErrSessionNotFound), errors.Is(err, viewing.ErrSessionClosed):
		httpinfra.WriteError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, feed.ErrUnknownItem):
		httpinfra.WriteError(w, http.StatusNotFound, "item not found")
	case errors.Is(err, feed.ErrTransitioning):
		httpinfra.WriteError(w, http.StatusConflict, "feed is transitioning")
	case errors.Is(err, reward.ErrAlreadyCompleted):
		httpinfra.WriteError(w, http.StatusConflict, "item already watched")
	case errors.Is(err, feed.ErrEmptyFeed):
		httpinfra.WriteError(w, http.StatusServiceUnavailable, "feed is empty")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		httpinfra.WriteError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		h.log.Error().Err(err).Msg("api: ошибка обработки запроса")
		httpinfra.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
