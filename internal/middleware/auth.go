package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/senyabanana/autoservice-market/internal/models"
	"github.com/senyabanana/autoservice-market/internal/utils"
)

type principalKey struct{}

// TokenParser проверяет токен доступа.
type TokenParser interface {
	ParseToken(token string) (models.Principal, error)
}

// Authenticator проверяет bearer-токен и роль пользователя.
type Authenticator struct {
	Tokens TokenParser
}

func NewAuthenticator(tokens TokenParser) *Authenticator {
	return &Authenticator{Tokens: tokens}
}

// Require пропускает запрос только с валидным токеном. Если roles заданы,
// роль пользователя должна входить в их число.
func (a *Authenticator) Require(next http.HandlerFunc, roles ...models.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			utils.SendErrorResponse(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		principal, err := a.Tokens.ParseToken(strings.TrimSpace(token))
		if err != nil {
			utils.SendErrorResponse(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		if len(roles) > 0 && !hasRole(principal.Role, roles) {
			utils.SendErrorResponse(w, http.StatusForbidden, "role "+string(principal.Role)+" is not allowed to perform this action")
			return
		}

		next(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	}
}

func hasRole(role models.Role, allowed []models.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// WithPrincipal кладет пользователя запроса в контекст.
func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom достает пользователя запроса из контекста.
func PrincipalFrom(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(models.Principal)
	return p, ok
}
