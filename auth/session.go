package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"minifeed/domain/user"
)

// Claims is the payload of the bearer tokens issued by the social API. The
// subject is the decimal user id.
type Claims struct {
	jwt.RegisteredClaims
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

func (c *Claims) UserId() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid subject %q: %w", c.Subject, err)
	}
	return id, nil
}

// SessionFromToken reads the session identity out of a bearer token. The
// signature is not checked here: the client cannot verify it and the server
// does on every call.
func SessionFromToken(token string) (*user.Session, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	id, err := claims.UserId()
	if err != nil {
		return nil, err
	}
	return &user.Session{Id: id, DisplayName: claims.Name, AvatarRef: claims.Avatar}, nil
}

// CurrentSession resolves the session for whatever token the provider
// currently holds. A missing token means an anonymous viewer: nil session,
// nil error.
func CurrentSession(ctx context.Context, tp TokenProvider) (*user.Session, error) {
	token, err := tp.Token(ctx)
	if errors.Is(err, ErrNoToken) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return SessionFromToken(token)
}
