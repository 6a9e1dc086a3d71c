package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "salonlink/pkg/errors"
)

type Claims struct {
	UserID    string
	ExpiresAt time.Time
}

// Inspect extracts identity claims from a bearer token without verifying
// the signature. Verification is the backend's job; the client only needs
// to fail closed before opening any connection when the token is missing,
// malformed, or already expired.
func Inspect(token string) (*Claims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apperrors.Unauthorized("missing auth token", nil)
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, apperrors.Unauthorized("malformed auth token", err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, apperrors.Unauthorized("auth token missing subject", err)
	}

	out := &Claims{UserID: sub}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, apperrors.Unauthorized("auth token has invalid expiry", err)
	}
	if exp != nil {
		if exp.Before(time.Now()) {
			return nil, apperrors.Unauthorized("auth token expired", nil)
		}
		out.ExpiresAt = exp.Time
	}

	return out, nil
}
