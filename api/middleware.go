package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Auth verifies the bearer tokens office staff present. Tokens are HS256 JWTs issued by
// the office's account service; only the signature, expiry and subject are checked here.
type Auth struct {
	secret []byte
}

// NewAuth returns an Auth checking tokens signed with secret. An empty secret disables
// the check, which is only meant for local runs.
func NewAuth(secret string) Auth {
	if secret == "" {
		zap.S().Warn("JWT_SECRET is not set, staff routes are not authenticated")
	}
	return Auth{secret: []byte(secret)}
}

// Middleware rejects requests without a valid staff token
func (a Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(a.secret) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		staff, err := a.verify(r.Header.Get("Authorization"))
		if err != nil {
			zap.S().Debugw("unauthorized", "url", r.URL, "error", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error": "unauthorized"}`))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithStaff(r.Context(), staff)))
	})
}

func (a Auth) verify(header string) (string, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if raw == "" || raw == header {
		return "", jwt.ErrTokenMalformed
	}
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	sub, err := tok.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", jwt.ErrTokenInvalidClaims
	}
	return sub, nil
}

// IssueToken signs a staff token for subject valid for ttl
func IssueToken(secret, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
