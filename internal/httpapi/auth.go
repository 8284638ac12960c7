package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var errBadCredentials = errors.New("invalid credentials")

// AdminAuth issues and checks the short-lived HS256 session tokens the
// admin dashboard uses. These are ordinary web sessions — completely
// separate from the Ed25519 capability tokens the access core signs.
type AdminAuth struct {
	username     string
	passwordHash []byte // bcrypt
	secret       []byte
	sessionTTL   time.Duration
}

// NewAdminAuth expects a bcrypt hash. When only a plaintext dev password is
// available, hash it first with HashPassword.
func NewAdminAuth(username, passwordHash, secret string, sessionTTL time.Duration) *AdminAuth {
	if sessionTTL <= 0 {
		sessionTTL = 30 * time.Minute
	}
	return &AdminAuth{
		username:     username,
		passwordHash: []byte(passwordHash),
		secret:       []byte(secret),
		sessionTTL:   sessionTTL,
	}
}

// HashPassword bcrypt-hashes a plaintext admin password. Used at startup
// for the dev-mode ACCESS_ADMIN_PASSWORD fallback and by provisioning
// tooling.
func HashPassword(plain string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// Login checks the credential pair and returns a signed session token.
func (a *AdminAuth) Login(username, password string) (string, error) {
	if username != a.username {
		// Burn a comparison anyway so the two failure paths cost the same.
		_ = bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password))
		return "", errBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)); err != nil {
		return "", errBadCredentials
	}

	now := time.Now().UTC()
	claims := jwtv5.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwtv5.NewNumericDate(now),
		ExpiresAt: jwtv5.NewNumericDate(now.Add(a.sessionTTL)),
	}
	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	signed, err := tok.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// verify parses a session token and returns the admin username.
func (a *AdminAuth) verify(tokenString string) (string, error) {
	var claims jwtv5.RegisteredClaims
	_, err := jwtv5.ParseWithClaims(tokenString, &claims, func(*jwtv5.Token) (any, error) {
		return a.secret, nil
	}, jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("missing subject")
	}
	return claims.Subject, nil
}

type adminCtxKey struct{}

// Middleware rejects requests without a valid bearer session token and
// stashes the admin username in the request context.
func (a *AdminAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const scheme = "Bearer "
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, scheme) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		raw := strings.TrimSpace(header[len(scheme):])
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		admin, err := a.verify(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return
		}
		ctx := context.WithValue(r.Context(), adminCtxKey{}, admin)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// adminFrom returns the authenticated admin username, or "" outside the
// admin middleware.
func adminFrom(ctx context.Context) string {
	v, _ := ctx.Value(adminCtxKey{}).(string)
	return v
}
