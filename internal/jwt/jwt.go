package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity tokens are issued by the external identity provider and
// verified here against a shared HS256 secret. The only claim this
// service cares about is the stable user identifier.

type IdentityToken struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

var ErrExpired = errors.New("token expired")

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func (v *Verifier) Verify(tokenString string) (IdentityToken, error) {
	token, err := jwt.ParseWithClaims(tokenString, &IdentityToken{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return IdentityToken{}, err
	}

	claims, ok := token.Claims.(*IdentityToken)
	if !ok {
		return IdentityToken{}, errors.New("invalid token")
	}

	if claims.ExpiresAt != nil && time.Now().UTC().After(claims.ExpiresAt.UTC()) {
		return IdentityToken{}, ErrExpired
	}

	return *claims, nil
}

// Sign issues a token the way the identity provider does. Only used by
// tests and local tooling.
func (v *Verifier) Sign(userID string, lifetime time.Duration) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, IdentityToken{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
	})
	return token.SignedString(v.secret)
}
