package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"

	"github.com/inventohq/festival-system/apiclient"
	"github.com/inventohq/festival-system/models"
	"github.com/inventohq/festival-system/services"
)

// Auth — набор guard'ов маршрутизатора. Каждый guard — чистый
// предикат над сессией: не прошёл — редиректим (401/403), а не
// рендерим с дефолтом.
type Auth struct {
	jwtSecret []byte
	resolver  services.AuthService
}

func NewAuth(jwtSecret string, resolver services.AuthService) *Auth {
	return &Auth{jwtSecret: []byte(jwtSecret), resolver: resolver}
}

// Authenticate проверяет Bearer JWT шлюза, поднимает полную сессию
// из session store и кладёт её в контекст. Отсутствие сессии в store
// означает logout или инвалидацию по 401 — токен больше не действует.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inventoID, err := a.subjectFromRequest(r)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		sess, err := a.resolver.Resolve(r.Context(), inventoID)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := apiclient.WithSession(r.Context(), sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole пропускает только перечисленные роли.
func (a *Auth) RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := apiclient.SessionFrom(r.Context())
			if sess == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			for _, role := range roles {
				if role == sess.Role {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "Forbidden", http.StatusForbidden)
		})
	}
}

// PublicOnly — guard для логин-маршрутов: аутентифицированная сессия
// сюда не допускается.
func (a *Auth) PublicOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := a.subjectFromRequest(r); err == nil {
			http.Error(w, "Already authenticated", http.StatusConflict)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Auth) subjectFromRequest(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return "", fmt.Errorf("missing bearer token")
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid session token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("unexpected claims type %T", token.Claims)
	}
	return subjectClaim(claims)
}
