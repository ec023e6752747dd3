package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"adzopay/internal/adapters/catalog"
	"adzopay/internal/adapters/media"
	"adzopay/internal/domain"
	"adzopay/internal/infra/eventloop"
	httpinfra "adzopay/internal/infra/http"
	"adzopay/internal/usecase/reward"
	"adzopay/internal/usecase/viewing"
	"adzopay/internal/usecase/wallet"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type resolverStub map[string]domain.User

func (r resolverStub) Resolve(_ context.Context, token string) (domain.User, error) {
	user, ok := r[token]
	if !ok {
		return domain.User{}, domain.ErrUnauthenticated
	}
	return user, nil
}

type signOutStub struct {
	tokens []string
}

func (s *signOutStub) SignOut(_ context.Context, token string) (domain.User, error) {
	s.tokens = append(s.tokens, token)
	return domain.User{}, nil
}

type videosStub struct {
	registered []domain.RegisterVideoParams
}

func (v *videosStub) ListVideos(context.Context) ([]domain.Video, error) {
	return nil, errors.New("storage offline")
}

func (v *videosStub) RegisterVideo(_ context.Context, p domain.RegisterVideoParams) (domain.Video, error) {
	v.registered = append(v.registered, p)
	return domain.Video{ID: 9, Filename: "intro.mp4", StoragePath: p.StoragePath, Title: p.Title, Duration: p.Duration}, nil
}

type walletsStub struct{}

func (walletsStub) GetWallet(context.Context, string) (domain.Wallet, error) {
	return domain.Wallet{}, domain.ErrWalletNotFound
}

func (walletsStub) ApplyCredit(context.Context, domain.CreditEvent) (domain.WalletCredit, error) {
	return domain.WalletCredit{}, errors.New("not used")
}

type creditsStub struct {
	events []domain.CreditEvent
}

func (c *creditsStub) Submit(e domain.CreditEvent) { c.events = append(c.events, e) }

type apiEnv struct {
	router  http.Handler
	loops   []*eventloop.Manual
	credits *creditsStub
	signOut *signOutStub
	videos  *videosStub
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	env := &apiEnv{credits: &creditsStub{}, signOut: &signOutStub{}, videos: &videosStub{}}
	resolver := media.NewResolver("https://cdn.test", "videos")
	sessions := viewing.NewManager(viewing.Deps{
		Videos:  env.videos,
		Ads:     catalog.Default(domain.DefaultCurrency),
		Media:   resolver,
		Credits: env.credits,
		NewLoop: func() eventloop.Loop {
			l := eventloop.NewManual(epoch)
			env.loops = append(env.loops, l)
			return l
		},
	}, viewing.DefaultConfig(), zerolog.Nop())
	t.Cleanup(func() { sessions.CloseAll() })

	h := &handlers{
		sessions: sessions,
		wallets:  wallet.NewService(walletsStub{}, nil, nil, domain.NewMoney(500, "USD"), zerolog.Nop()),
		videos:   env.videos,
		media:    resolver,
		auth:     env.signOut,
		log:      zerolog.Nop(),
	}
	server := httpinfra.NewServer(zerolog.Nop())
	h.mount(server.Router, resolverStub{
		"alice-token": {ID: "alice"},
		"bob-token":   {ID: "bob"},
	})
	env.router = server.Router
	return env
}

func (e *apiEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (e *apiEnv) open(t *testing.T, token string) viewing.Snapshot {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/sessions", token, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[viewing.Snapshot](t, rec)
}

func TestUnauthorizedRedirectsToLogin(t *testing.T) {
	env := newAPIEnv(t)
	for _, token := range []string{"", "stolen"} {
		rec := env.do(t, http.MethodGet, "/api/v1/wallet", token, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		body := decode[httpinfra.ErrorResponse](t, rec)
		require.Equal(t, "unauthorized", body.Error)
		require.Equal(t, "/login", body.Redirect)
	}
}

func TestSessionNavigationAndReward(t *testing.T) {
	env := newAPIEnv(t)
	snap := env.open(t, "alice-token")
	require.Equal(t, 3, snap.Length, "без роликов лента состоит из рекламы")
	require.Equal(t, "ad-1", snap.Current.ID)
	base := "/api/v1/sessions/" + snap.SessionID
	loop := env.loops[0]

	rec := env.do(t, http.MethodPost, base+"/play", "alice-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	loop.Advance(15 * time.Second)

	rec = env.do(t, http.MethodGet, base, "alice-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	snap = decode[viewing.Snapshot](t, rec)
	require.Equal(t, int64(25), snap.Total.Amount)
	require.Equal(t, reward.StateCompleted, snap.Timer.State)
	require.Len(t, env.credits.events, 1)

	rec = env.do(t, http.MethodPost, base+"/play", "alice-token", "")
	require.Equal(t, http.StatusConflict, rec.Code, "повторный запуск засчитанного элемента")

	rec = env.do(t, http.MethodPost, base+"/advance", "alice-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	snap = decode[viewing.Snapshot](t, rec)
	require.Equal(t, 1, snap.Position)
	require.True(t, snap.Transitioning)

	rec = env.do(t, http.MethodPost, base+"/advance", "alice-token", "")
	require.Equal(t, http.StatusConflict, rec.Code, "переход во время анимации")

	loop.Advance(300 * time.Millisecond)
	rec = env.do(t, http.MethodPost, base+"/retreat", "alice-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 0, decode[viewing.Snapshot](t, rec).Position)
}

func TestGestureEndpoint(t *testing.T) {
	env := newAPIEnv(t)
	snap := env.open(t, "alice-token")
	base := "/api/v1/sessions/" + snap.SessionID

	rec := env.do(t, http.MethodPost, base+"/gestures", "alice-token", `{"kind":"wheel","delta_y":120}`)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[viewing.GestureResult](t, rec)
	require.Equal(t, "advance", string(res.Intent))
	require.Equal(t, "accepted", string(res.Result))
	require.Equal(t, 1, res.Snapshot.Position)

	rec = env.do(t, http.MethodPost, base+"/gestures", "alice-token", `{"kind":"swipe","start_y":400,"end_y":380}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, decode[viewing.GestureResult](t, rec).Snapshot.Position, "жест во время перехода не двигает ленту")

	rec = env.do(t, http.MethodPost, base+"/gestures", "alice-token", `{"kind":"wheel","unexpected":1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLikeAndMediaError(t *testing.T) {
	env := newAPIEnv(t)
	snap := env.open(t, "alice-token")
	base := "/api/v1/sessions/" + snap.SessionID

	rec := env.do(t, http.MethodPost, base+"/like", "alice-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var liked struct {
		Liked bool `json:"liked"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &liked))
	require.True(t, liked.Liked)

	rec = env.do(t, http.MethodPost, base+"/media-error", "alice-token", `{"item_id":"ad-1","reason":"decode failed"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, decode[viewing.Snapshot](t, rec).Watched)

	rec = env.do(t, http.MethodPost, base+"/media-error", "alice-token", `{"item_id":"ad-42"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionOwnershipAndClose(t *testing.T) {
	env := newAPIEnv(t)
	snap := env.open(t, "alice-token")
	base := "/api/v1/sessions/" + snap.SessionID

	require.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, base, "bob-token", "").Code)
	require.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, base, "bob-token", "").Code)

	require.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, base, "alice-token", "").Code)
	require.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, base, "alice-token", "").Code)
}

func TestWalletProjection(t *testing.T) {
	env := newAPIEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/wallet", "alice-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	projection := decode[wallet.Projection](t, rec)
	require.Equal(t, "alice", projection.Wallet.UserID)
	require.Equal(t, "$0.00", projection.Balance.Total)
	require.Equal(t, "$5.00", projection.Balance.Goal)
}

func TestVideos(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/videos", "alice-token", `{"title":"no path"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/videos", "alice-token", `{"storage_path":"videos/intro.mp4","title":"Intro","duration_ms":12000}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	video := decode[videoResponse](t, rec)
	require.Equal(t, "https://cdn.test/storage/v1/object/public/videos/intro.mp4", video.URL)
	require.Equal(t, int64(12000), video.DurationMS)
	require.Len(t, env.videos.registered, 1)
	require.Equal(t, "alice", env.videos.registered[0].UserID)

	rec = env.do(t, http.MethodGet, "/api/v1/videos", "alice-token", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSignOut(t *testing.T) {
	env := newAPIEnv(t)
	rec := env.do(t, http.MethodPost, "/api/v1/auth/signout", "alice-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"alice-token"}, env.signOut.tokens)
}

func TestHealthzIsPublic(t *testing.T) {
	env := newAPIEnv(t)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/healthz", "", "").Code)
}
