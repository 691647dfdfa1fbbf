// Package token issues and verifies the compact signed tokens used for
// sessions and for purpose-scoped links (email verification, password
// reset). Tokens are stateless: verification needs only the signature and
// the embedded expiry, never a database lookup.
package token

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// DefaultTTL is the fallback expiry for session tokens.
const DefaultTTL = "7d"

// Purpose values scope a token to a single flow. Session tokens carry no
// purpose.
const (
	PurposeEmailVerify   = "email_verify"
	PurposePasswordReset = "password_reset"
)

type Claims struct {
	UserID  uint64 `json:"userId"`
	Email   string `json:"email,omitempty"`
	Purpose string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

type Service struct {
	secret []byte
}

func NewService(secret string) *Service {
	return &Service{secret: []byte(secret)}
}

// Generate signs the claims with HS256, setting iat to now and exp to
// now + ParseTTL(ttl).
func (s *Service) Generate(claims *Claims, ttl string) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ParseTTL(ttl)))

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify parses the token, checks the HMAC signature and rejects expired
// tokens. It does not consult any server-side state.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

var ttlPattern = regexp.MustCompile(`^(\d+)([smhd])$`)

// ParseTTL converts strings like "30s", "15m", "1h" or "7d" to a duration.
// Strings outside that grammar fall back to seven days instead of erroring.
func ParseTTL(ttl string) time.Duration {
	match := ttlPattern.FindStringSubmatch(ttl)
	if match == nil {
		return 7 * 24 * time.Hour
	}

	value, _ := strconv.Atoi(match[1])
	switch match[2] {
	case "s":
		return time.Duration(value) * time.Second
	case "m":
		return time.Duration(value) * time.Minute
	case "h":
		return time.Duration(value) * time.Hour
	default:
		return time.Duration(value) * 24 * time.Hour
	}
}
