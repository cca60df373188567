// Package auth issues and verifies the HS256 access tokens that carry an
// owner identity between login and vault operations.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/alarmlock/internal/address"
	"github.com/dmitrijs2005/alarmlock/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

const issuer = "alarmlock"

// GenerateToken signs an access token whose subject is the owner address.
func GenerateToken(owner address.Address, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   owner.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// OwnerFromToken verifies tokenString and returns the owner it was issued to.
// An expired token yields common.ErrTokenExpired; any other defect yields
// common.ErrInvalidToken.
func OwnerFromToken(tokenString string, secretKey []byte) (address.Address, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return address.Address{}, common.ErrTokenExpired
		}
		return address.Address{}, common.ErrInvalidToken
	}

	if !token.Valid {
		return address.Address{}, common.ErrInvalidToken
	}

	owner, err := address.Parse(claims.Subject)
	if err != nil {
		return address.Address{}, common.ErrInvalidToken
	}

	return owner, nil
}
