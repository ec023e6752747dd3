package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"adzopay/internal/domain"
)

// LoginRedirect — адрес, на который клиент отправляет пользователя без сессии.
const LoginRedirect = "/login"

// UserResolver проверяет bearer-токен и возвращает пользователя.
type UserResolver interface {
	Resolve(ctx context.Context, token string) (domain.User, error)
}

type ctxKey int

const (
	userKey ctxKey = iota
	tokenKey
)

// BearerAuthMiddleware пропускает запрос только с действительным токеном.
// Без пользователя отвечает 401 с подсказкой перенаправления на вход.
func BearerAuthMiddleware(resolver UserResolver, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				WriteUnauthorized(w)
				return
			}
			user, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				logger.Warn().Err(err).Str("request_id", RequestID(r)).Msg("auth: токен отклонён")
				WriteUnauthorized(w)
				return
			}
			ctx := context.WithValue(r.Context(), userKey, user)
			ctx = context.WithValue(ctx, tokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken извлекает токен из заголовка Authorization.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// UserFromContext возвращает пользователя, установленного BearerAuthMiddleware.
func UserFromContext(ctx context.Context) (domain.User, bool) {
	user, ok := ctx.Value(userKey).(domain.User)
	return user, ok
}

// TokenFromContext возвращает проверенный токен запроса.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

// WithUser кладёт пользователя в контекст. Используется в тестах обработчиков.
func WithUser(ctx context.Context, user domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// RequestID возвращает request ID из контекста chi.
func RequestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}
