package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"adzopay/internal/domain"
)

type resolverStub struct {
	users map[string]domain.User
}

func (s resolverStub) Resolve(_ context.Context, token string) (domain.User, error) {
	user, ok := s.users[token]
	if !ok {
		return domain.User{}, domain.ErrUnauthenticated
	}
	return user, nil
}

func TestBearerAuthMiddleware(t *testing.T) {
	srv := NewServer(zerolog.Nop())
	resolver := resolverStub{users: map[string]domain.User{"good": {ID: "u1", Email: "a@b.c"}}}
	srv.Router.With(BearerAuthMiddleware(resolver, zerolog.Nop())).Get("/me", func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		require.True(t, ok)
		WriteJSON(w, http.StatusOK, map[string]string{"id": user.ID, "token": TokenFromContext(r.Context())})
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "no header", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good", status: http.StatusUnauthorized},
		{name: "unknown token", header: "Bearer bad", status: http.StatusUnauthorized},
		{name: "valid", header: "bearer good", status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			srv.Router.ServeHTTP(rec, req)
			require.Equal(t, tt.status, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			if tt.status == http.StatusUnauthorized {
				require.Equal(t, "unauthorized", body["error"])
				require.Equal(t, LoginRedirect, body["redirect"])
				return
			}
			require.Equal(t, "u1", body["id"])
			require.Equal(t, "good", body["token"])
		})
	}
}

func TestHealthz(t *testing.T) {
	srv := NewServer(zerolog.Nop())
	rec := httptest.NewRecorder()
	srv.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
