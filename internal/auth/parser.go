// Package auth extracts the owner principal from access tokens. The
// contracts core treats identity as an external concern; this only reads
// the user id the owner-facing routes need.
package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Parser struct {
	secret []byte
}

func NewParser(secret string) *Parser {
	return &Parser{secret: []byte(secret)}
}

// UserID validates the token signature and returns the subject claim.
func (p *Parser) UserID(raw string) (uuid.UUID, error) {
	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse access token: %w", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return uuid.Nil, fmt.Errorf("invalid access token")
	}
	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return uuid.Nil, fmt.Errorf("access token has no subject")
	}
	userID, err := uuid.Parse(subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("access token subject is not a user id")
	}
	return userID, nil
}
