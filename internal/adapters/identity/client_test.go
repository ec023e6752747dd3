package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"adzopay/internal/domain"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "anon-key", r.Header.Get("apikey"))
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/auth/v1/user":
			if r.Header.Get("Authorization") != "Bearer good" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"msg":"invalid JWT"}`))
				return
			}
			_, _ = w.Write([]byte(`{"id":"0b1c","email":"viewer@example.com","user_metadata":{"full_name":"Jane Viewer"}}`))
		case r.Method == http.MethodPost && r.URL.Path == "/auth/v1/logout":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
}

func TestCurrentUser(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	client, err := New(srv.URL, "anon-key")
	require.NoError(t, err)

	user, err := client.CurrentUser(context.Background(), "good")
	require.NoError(t, err)
	require.Equal(t, domain.User{ID: "0b1c", Email: "viewer@example.com", FullName: "Jane Viewer"}, user)

	_, err = client.CurrentUser(context.Background(), "expired")
	require.True(t, errors.Is(err, domain.ErrUnauthenticated), "получили %v", err)

	_, err = client.CurrentUser(context.Background(), "")
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestSignOut(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	client, err := New(srv.URL+"/", "anon-key", WithTimeout(0))
	require.NoError(t, err)
	require.NoError(t, client.SignOut(context.Background(), "good"))
}

func TestServerErrorIsNotUnauthenticated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := New(srv.URL, "")
	require.NoError(t, err)
	_, err = client.CurrentUser(context.Background(), "good")
	require.Error(t, err)
	require.False(t, errors.Is(err, domain.ErrUnauthenticated))
}
