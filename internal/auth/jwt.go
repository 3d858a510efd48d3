package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const identityKey contextKey = "identity"

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

type Claims struct {
	UserID   string `json:"uid"`
	CenterID string `json:"cid"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Identity is what handlers read back out of the request context: the
// operator and the game center every row is scoped to.
type Identity struct {
	UserID   string
	CenterID string
	Role     string
}

func (id Identity) StaffOrAdmin() bool {
	return id.Role == RoleAdmin || id.Role == RoleStaff
}

func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				http.Error(w, `{"error":{"code":"unauthorized","message":"missing bearer token"}}`, http.StatusUnauthorized)
				return
			}

			tokenRaw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenRaw, claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid || claims.UserID == "" || claims.CenterID == "" {
				http.Error(w, `{"error":{"code":"unauthorized","message":"invalid token"}}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, Identity{
				UserID:   claims.UserID,
				CenterID: claims.CenterID,
				Role:     claims.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	v := ctx.Value(identityKey)
	id, ok := v.(Identity)
	return id, ok && id.UserID != ""
}
