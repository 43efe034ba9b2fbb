package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/osse101/CardVault_Go/internal/logger"
)

var (
	errMissingToken   = errors.New("missing bearer token")
	errMissingSubject = errors.New("token has no subject")
)

// IssueToken signs an HS256 token whose subject is the owner id
func IssueToken(secret, ownerID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   ownerID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// parseOwner validates the token and returns its subject
func parseOwner(secret []byte, tokenStr string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("parsing token: %w", err)
	}
	if claims.Subject == "" {
		return "", errMissingSubject
	}
	return claims.Subject, nil
}

// OwnerAuthMiddleware authenticates the bearer token and stores its subject
// as the owner id on the request context.
func OwnerAuthMiddleware(secret string, trustedProxies []string, detector *SuspiciousActivityDetector) func(http.Handler) http.Handler {
	key := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get(HeaderAuthorization)
			tokenStr, hasBearer := strings.CutPrefix(header, BearerPrefix)

			ownerID, err := "", errMissingToken
			if hasBearer {
				ownerID, err = parseOwner(key, strings.TrimSpace(tokenStr))
			}
			if err != nil {
				ip := extractIP(r, trustedProxies)
				detector.RecordFailedAuth(ip)

				logger.FromContext(r.Context()).Warn(LogMsgAuthFailed,
					"path", r.URL.Path,
					"has_token", hasBearer,
					"ip", ip,
					"error", err)

				http.Error(w, ErrMsgUnauthorized, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(logger.WithOwnerID(r.Context(), ownerID)))
		})
	}
}
