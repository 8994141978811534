package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const profileIDKey contextKey = "profile_id"

// SessionClaims описывает полезную нагрузку токена сессии.
type SessionClaims struct {
	jwt.RegisteredClaims
	ProfileID int64  `json:"profile_id"`
	Email     string `json:"email"`
}

// GenerateToken выпускает JWT сессии для учётной записи.
func GenerateToken(secret string, profileID int64, email string) (string, error) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "newsportal",
		},
		ProfileID: profileID,
		Email:     email,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("подпись токена: %w", err)
	}
	return signed, nil
}

// AuthMiddleware проверяет Bearer-токен и кладёт ID профиля в контекст.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				http.Error(w, "требуется авторизация", http.StatusUnauthorized)
				return
			}
			tokenString, found := strings.CutPrefix(header, "Bearer ")
			if !found {
				http.Error(w, "некорректный формат токена", http.StatusUnauthorized)
				return
			}
			claims := &SessionClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "токен недействителен", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), profileIDKey, claims.ProfileID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ProfileID возвращает ID профиля из контекста запроса.
// Требует предварительно применённого AuthMiddleware.
func ProfileID(r *http.Request) int64 {
	id, _ := r.Context().Value(profileIDKey).(int64)
	return id
}

// RequestID возвращает request ID из контекста chi.
func RequestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}
