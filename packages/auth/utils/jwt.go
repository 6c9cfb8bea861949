package utils

import (
	"errors"
	"os"
	"strconv"
	"time"

	"auth/models"

	"github.com/golang-jwt/jwt/v5"
)

const defaultAccessTokenExpirationMS = 3600000

var ErrInvalidToken = errors.New("invalid token")

// Claims are the custom JWT claims carried by access tokens.
// Subject is the user UUID; Username rides along for push routing.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func signingSecret() ([]byte, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}
	return []byte(secret), nil
}

// AccessTokenExpiration returns the configured access token lifetime
func AccessTokenExpiration() time.Duration {
	ms := defaultAccessTokenExpirationMS
	if raw := os.Getenv("JWT_ACCESS_TOKEN_EXPIRATION_MS"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			ms = parsed
		}
	}
	return time.Duration(ms) * time.Millisecond
}

// GenerateToken issues a signed HS256 access token for the user
func GenerateToken(user models.User) (string, error) {
	secret, err := signingSecret()
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := Claims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenExpiration())),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseToken validates a signed access token and returns its claims
func ParseToken(tokenString string) (*Claims, error) {
	secret, err := signingSecret()
	if err != nil {
		return nil, err
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
