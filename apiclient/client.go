package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/inventohq/festival-system/models"
)

var (
	// ErrSessionExpired возвращается на 401 при привязанной сессии:
	// сессия уже уничтожена, вызывающая сторона должна отправить
	// пользователя на логин.
	ErrSessionExpired = errors.New("session expired, login required")

	// ErrOnboardingIncomplete возвращается на 403 только если локальный
	// профиль помечен как незавершённый. Прочие 403 уходят наверх как
	// *APIError без подмены.
	ErrOnboardingIncomplete = errors.New("profile onboarding incomplete")

	ErrUserNotFound = errors.New("user not found")
	ErrInvalidKey   = errors.New("contingent key rejected")
)

// APIError несёт сообщение бэкенда для не-2xx ответов.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// SessionInvalidator уничтожает сохранённую сессию. Реализуется
// session store'ом; клиент дёргает его на каждый 401.
type SessionInvalidator interface {
	Invalidate(ctx context.Context, inventoID string) error
}

type sessionCtxKey struct{}

// WithSession привязывает сессию к контексту запроса. Middleware
// делает это один раз, дальше клиент сам достаёт токен.
func WithSession(ctx context.Context, s *models.Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, s)
}

// SessionFrom returns the session bound to ctx, or nil.
func SessionFrom(ctx context.Context) *models.Session {
	s, _ := ctx.Value(sessionCtxKey{}).(*models.Session)
	return s
}

// Client — тонкая обёртка над REST-бэкендом фестиваля.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sessions   SessionInvalidator
	logger     *slog.Logger
}

func New(baseURL string, sessions SessionInvalidator, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		sessions:   sessions,
		logger:     logger,
	}
}

// request выполняет вызов бэкенда и нормализует ответ.
// Ветвление 401 / 403-incomplete / 403-other / generic намеренно
// держится в одном месте: вызывающие различают ошибки по identity.
func (c *Client) request(ctx context.Context, method, path string, body interface{}) (json.RawMessage, error) {
	var payload io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	sess := SessionFrom(ctx)
	if sess != nil && sess.Token != "" {
		req.Header.Set("Authorization", "Bearer "+sess.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read backend response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		// 401 без привязанной сессии (credential exchange) — это отказ
		// валидации, а не протухшая сессия.
		if sess == nil {
			return nil, &APIError{Status: resp.StatusCode, Message: serverMessage(raw, resp.StatusCode)}
		}
		if c.sessions != nil {
			if invErr := c.sessions.Invalidate(ctx, sess.InventoID); invErr != nil {
				c.logger.Error("failed to invalidate session after 401",
					slog.String("invento_id", sess.InventoID), slog.Any("error", invErr))
			}
		}
		return nil, ErrSessionExpired

	case resp.StatusCode == http.StatusForbidden:
		if sess != nil && !sess.Onboarded {
			return nil, ErrOnboardingIncomplete
		}
		return nil, &APIError{Status: resp.StatusCode, Message: serverMessage(raw, resp.StatusCode)}

	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &APIError{Status: resp.StatusCode, Message: serverMessage(raw, resp.StatusCode)}
	}

	return raw, nil
}

// getWithRetry повторяет идемпотентные GET при транспортных сбоях.
// HTTP-ошибки (в том числе 401/403) не ретраятся.
func (c *Client) getWithRetry(ctx context.Context, path string) (json.RawMessage, error) {
	retrier := retry.NewRetrier(3, 100*time.Millisecond, time.Second)

	var raw json.RawMessage
	err := retrier.RunContext(ctx, func(ctx context.Context) error {
		res, err := c.request(ctx, http.MethodGet, path, nil)
		if err != nil {
			var apiErr *APIError
			if errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrOnboardingIncomplete) || errors.As(err, &apiErr) {
				return retry.Stop(err)
			}
			return err
		}
		raw = res
		return nil
	})
	return raw, err
}

// serverMessage достаёт сообщение из тела ошибки. Тело может быть
// JSON ({"error": ...} или {"message": ...}), голым текстом или мусором;
// в последнем случае падаем на статусную строку HTTP.
func serverMessage(raw []byte, status int) string {
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if envelope.Error != "" {
			return envelope.Error
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	if text := strings.TrimSpace(string(raw)); text != "" && !strings.HasPrefix(text, "{") && !strings.HasPrefix(text, "<") {
		return text
	}
	return http.StatusText(status)
}

func decode[T any](raw json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("failed to decode backend response: %w", err)
	}
	return v, nil
}
