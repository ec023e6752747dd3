// Package identity обращается к внешнему провайдеру идентичности с GoTrue-совместимым API.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"adzopay/internal/domain"
	"adzopay/internal/infra/metrics"
)

// Client проверяет токены через GET /auth/v1/user.
type Client struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
}

var _ domain.IdentityProvider = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if c.httpClient == nil {
			c.httpClient = &http.Client{}
		}
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

type apiError struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
	Message     string `json:"msg"`
}

func (e apiError) text() string {
	for _, s := range []string{e.Message, e.Description, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

type userPayload struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// New создаёт клиента провайдера. apiKey передаётся в заголовке apikey.
func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}
	client := &Client{
		baseURL:    parsed,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// CurrentUser возвращает пользователя по токену доступа.
func (c *Client) CurrentUser(ctx context.Context, token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, domain.ErrUnauthenticated
	}
	req, err := c.newRequest(ctx, http.MethodGet, "/auth/v1/user", token)
	if err != nil {
		return domain.User{}, err
	}
	var payload userPayload
	start := time.Now()
	err = c.do(req, &payload)
	metrics.ObserveNetworkRequest("identity", "current_user", c.baseURL.Host, start, err)
	if err != nil {
		return domain.User{}, err
	}
	if payload.ID == "" {
		return domain.User{}, domain.ErrUnauthenticated
	}
	user := domain.User{ID: payload.ID, Email: payload.Email}
	if name, ok := payload.UserMetadata["full_name"].(string); ok {
		user.FullName = name
	}
	return user, nil
}

// SignOut отзывает токен через POST /auth/v1/logout.
func (c *Client) SignOut(ctx context.Context, token string) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/v1/logout", token)
	if err != nil {
		return err
	}
	start := time.Now()
	err = c.do(req, nil)
	metrics.ObserveNetworkRequest("identity", "logout", c.baseURL.Host, start, err)
	return err
}

func (c *Client) newRequest(ctx context.Context, method, endpoint, token string) (*http.Request, error) {
	resolved := *c.baseURL
	basePath := strings.TrimSuffix(c.baseURL.Path, "/")
	resolved.Path = path.Clean(basePath + endpoint)
	req, err := http.NewRequestWithContext(ctx, method, resolved.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr apiError
		data, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if readErr == nil && len(data) > 0 {
			_ = json.Unmarshal(data, &apiErr)
		}
		if apiErr.text() == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return mapAPIError(resp.StatusCode, apiErr)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func mapAPIError(status int, err apiError) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthenticated, err.text())
	default:
		return fmt.Errorf("identity api error: status=%d message=%s", status, err.text())
	}
}
