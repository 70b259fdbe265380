package graph

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"fieldops.app/internal/svcerr"
)

// TokenSource hands out the bearer token for Graph calls and can refresh it
// silently once when a call comes back 401.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// CachedTokenSource caches an access token and refreshes through the given
// function. It also inspects the token's exp claim so an obviously stale
// token is refreshed before a request burns a 401 on it.
type CachedTokenSource struct {
	mu      sync.Mutex
	token   string
	refresh func(ctx context.Context) (string, error)
}

func NewCachedTokenSource(initial string, refresh func(ctx context.Context) (string, error)) *CachedTokenSource {
	return &CachedTokenSource{token: initial, refresh: refresh}
}

func (c *CachedTokenSource) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	tok := c.token
	c.mu.Unlock()
	if tok != "" && !expiresSoon(tok, time.Now()) {
		return tok, nil
	}
	return c.Refresh(ctx)
}

func (c *CachedTokenSource) Refresh(ctx context.Context) (string, error) {
	if c.refresh == nil {
		return "", svcerr.New(svcerr.SessionExpired, "calendar session expired, please sign in again")
	}
	tok, err := c.refresh(ctx)
	if err != nil {
		return "", svcerr.Wrap(svcerr.SessionExpired, "calendar session expired, please sign in again", err)
	}
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
	return tok, nil
}

// expiresSoon reports whether the token's exp claim is within a minute of
// now. Tokens that do not parse as JWTs are assumed live; the 401 path
// handles them.
func expiresSoon(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Time.Before(now.Add(time.Minute))
}
