package jwt

import (
	"errors"
	"slices"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const issuer = "heatlens"

// Claims defines JWT payload. An empty Sites list grants access to every site.
type Claims struct {
	Sites []string `json:"sites,omitempty"`
	jwtlib.RegisteredClaims
}

// CanAccess reports whether the claims cover siteID.
func (c *Claims) CanAccess(siteID string) bool {
	if c == nil {
		return false
	}
	return len(c.Sites) == 0 || slices.Contains(c.Sites, siteID)
}

// GenerateToken issues a signed JWT for subject scoped to sites.
func GenerateToken(subject string, sites []string, secret string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("empty signing secret")
	}
	now := time.Now()
	claims := Claims{
		Sites: sites,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuer,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Parse validates and extracts claims from token.
func Parse(token string, secret string) (*Claims, error) {
	parsed, err := jwtlib.ParseWithClaims(token, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Name}), jwtlib.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwtlib.ErrTokenInvalidClaims
	}
	return claims, nil
}
