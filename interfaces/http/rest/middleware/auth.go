package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"vaultgraph/pkg/auth"
)

// Authenticate validates the bearer token of every request and checks that
// it grants access to the vault being served.
func Authenticate(validator *auth.JWTValidator, currentVault func() string, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondWithError(w, http.StatusUnauthorized, "Missing authorization header")
				return
			}

			parts := strings.Fields(authHeader)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				respondWithError(w, http.StatusUnauthorized, "Invalid authorization header format")
				return
			}

			claims, err := validator.ValidateToken(parts[1])
			if err != nil {
				logger.Debug("Rejected token", zap.Error(err))
				switch {
				case errors.Is(err, auth.ErrExpiredToken):
					respondWithError(w, http.StatusUnauthorized, "Token has expired")
				case errors.Is(err, auth.ErrInvalidSignature):
					respondWithError(w, http.StatusUnauthorized, "Invalid token signature")
				default:
					respondWithError(w, http.StatusUnauthorized, "Invalid token")
				}
				return
			}

			// Switching vaults is checked against the target vault by the handler
			if r.Method != http.MethodPut && !claims.CanRead(currentVault()) {
				respondWithError(w, http.StatusForbidden, "Token does not grant access to this vault")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}

func respondWithError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    status,
	})
}
