package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"store-billing/internal/domain"
	"store-billing/internal/infra/logging"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey int

const userIDKey ctxKey = iota

// UserClaims carries the caller identity. Only userId is trusted.
type UserClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	secret []byte
	ttl    time.Duration
}

func NewAuthenticator(secret string, ttl time.Duration) *Authenticator {
	return &Authenticator{secret: []byte(secret), ttl: ttl}
}

// Mint issues an HS256 token for userID. Used by tooling and tests.
func (a *Authenticator) Mint(userID string) (string, error) {
	if userID == "" {
		return "", domain.ErrInvalidArgument
	}
	now := time.Now()
	claims := UserClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Parse validates tok and returns its userId claim.
func (a *Authenticator) Parse(tok string) (string, error) {
	claims := &UserClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tkn.Valid {
		return "", domain.ErrUnauthorized
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return "", domain.ErrUnauthorized
	}
	return claims.UserID, nil
}

func bearerToken(r *http.Request) (string, error) {
	hdr := r.Header.Get("Authorization")
	if len(hdr) > 7 && strings.EqualFold(hdr[:7], "bearer ") {
		if tok := strings.TrimSpace(hdr[7:]); tok != "" {
			return tok, nil
		}
	}
	return "", errors.New("missing token")
}

// RequireUser rejects requests without a valid bearer token.
func (s *Server) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, err := bearerToken(r)
		if err != nil {
			s.fail(w, r, domain.ErrUnauthorized)
			return
		}
		userID, err := s.auth.Parse(tok)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		ctx = logging.WithUserID(ctx, userID)
		noteContext(w, ctx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
