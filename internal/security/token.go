package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserClaims carries the authenticated account identity inside a JWT.
type UserClaims struct {
	UserID uint64 `json:"uid"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// ErrInvalidToken indicates the token failed signature or claim validation.
var ErrInvalidToken = errors.New("invalid token")

// SignUserToken issues a signed JWT for the account.
func SignUserToken(secret string, userID uint64, email, role string, expiry time.Duration) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", fmt.Errorf("sign token: empty secret")
	}
	now := time.Now().UTC()
	claims := UserClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, errSign := token.SignedString([]byte(secret))
	if errSign != nil {
		return "", fmt.Errorf("sign token: %w", errSign)
	}
	return signed, nil
}

// ParseUserToken validates a JWT and returns its claims.
func ParseUserToken(secret, raw string) (*UserClaims, error) {
	claims := &UserClaims{}
	token, errParse := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if errParse != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
