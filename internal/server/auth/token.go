// Package auth covers credential hashing and session token signing. Tokens
// are HS256 JWTs carrying the registry session id; the session registry
// remains the single source of truth for liveness, the signature only makes
// tokens unforgeable.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/libcirc/internal/common"
)

// Claims carries the registry session id and owning identity id alongside
// the standard claims.
type Claims struct {
	jwt.RegisteredClaims
	SessionID  string `json:"sid"`
	IdentityID string `json:"uid"`
}

// SignSessionToken issues a token for the given session.
func SignSessionToken(sessionID, identityID string, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
		SessionID:  sessionID,
		IdentityID: identityID,
	})

	return token.SignedString(secret)
}

// ParseSessionToken verifies the signature and returns the embedded session
// id. Any defect in the token maps to ErrAuthorization: the caller simply has
// no usable session.
func ParseSessionToken(tokenString string, secret []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !token.Valid || claims.SessionID == "" {
		return "", common.ErrAuthorization
	}

	return claims.SessionID, nil
}
