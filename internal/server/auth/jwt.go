package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/hiringhub/internal/common"
	"github.com/dmitrijs2005/hiringhub/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the registered claims plus the identity fields carried in the
// identity cookie.
type Claims struct {
	jwt.RegisteredClaims
	Name  string        `json:"name"`
	Email string        `json:"email"`
	Roles []models.Role `json:"roles"`
}

func GenerateToken(id *Identity, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		Name:  id.Name,
		Email: id.Email,
		Roles: id.Roles,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies tokenString and returns the identity with its expiry.
// An expired token yields common.ErrTokenExpired.
func ParseToken(tokenString string, secretKey []byte) (*Identity, time.Time, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, time.Time{}, common.ErrTokenExpired
		}
		return nil, time.Time{}, err
	}

	if !token.Valid || claims.Subject == "" {
		return nil, time.Time{}, common.ErrInvalidToken
	}

	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}

	return &Identity{
		Subject: claims.Subject,
		Name:    claims.Name,
		Email:   claims.Email,
		Roles:   claims.Roles,
	}, exp, nil
}

// NeedsRenewal implements sliding expiration: a token is reissued once
// less than half of its validity window remains.
func NeedsRenewal(expiresAt time.Time, validityDuration time.Duration, now time.Time) bool {
	return expiresAt.Sub(now) < validityDuration/2
}
