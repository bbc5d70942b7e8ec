package config

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoSubject = errors.New("user token carries no user id")

// tokenClaims is the part of the access token the client reads
type tokenClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// identityFromToken reads the user id and name from an access token. The
// signature is checked by the directory and relay, not here.
func identityFromToken(token string) (id, nickname string, err error) {
	claims := &tokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", "", fmt.Errorf("parsing user token: %w", err)
	}

	id = claims.UserID
	if id == "" {
		id = claims.Subject
	}
	if id == "" {
		return "", "", ErrNoSubject
	}
	return id, claims.Username, nil
}
