package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"gitlab.com/plantguard-2025.net/internal/config"
	"gitlab.com/plantguard-2025.net/internal/handlers/response"
)

type MiddlewareProvider struct {
	SecretOption string
	IssuerOption string
}

func New(cfg *config.JwtConfig) *MiddlewareProvider {
	return &MiddlewareProvider{
		SecretOption: cfg.Secret,
		IssuerOption: cfg.Issuer,
	}
}

func (m *MiddlewareProvider) secret() []byte {
	return []byte(m.SecretOption)
}

// Enabled reports whether a secret is configured. Without one the API is open.
func (m *MiddlewareProvider) Enabled() bool {
	return m.SecretOption != ""
}

func (m *MiddlewareProvider) JWTMiddleware(next http.Handler) http.Handler {
	if !m.Enabled() {
		return next
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if m.IssuerOption != "" {
		opts = append(opts, jwt.WithIssuer(m.IssuerOption))
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Error(w, "Authorization header missing", http.StatusUnauthorized)
			return
		}

		// Extract token from "Bearer <token>"
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return m.secret(), nil
		}, opts...)

		if err != nil || !token.Valid {
			response.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
