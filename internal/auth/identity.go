package auth

import (
	"context"
	"net/http"
	"strings"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "session"

// Identity is the resolved principal for a request. Handlers and the
// authorization check depend only on this value, never on how it was
// established.
type Identity struct {
	Username string
}

// SessionResolver looks up the identity bound to a session token. The
// storage layer implements it.
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (string, error)
}

// Provider establishes the current identity for a request. One
// implementation exists per auth strategy.
type Provider interface {
	Identify(r *http.Request) (Identity, bool)
}

// CookieProvider resolves identity from the session cookie.
type CookieProvider struct {
	Sessions SessionResolver
}

func (p *CookieProvider) Identify(r *http.Request) (Identity, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return Identity{}, false
	}
	return resolve(r.Context(), p.Sessions, cookie.Value)
}

// BearerProvider resolves identity from an Authorization: Bearer header,
// for non-browser clients holding a session token.
type BearerProvider struct {
	Sessions SessionResolver
}

func (p *BearerProvider) Identify(r *http.Request) (Identity, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return Identity{}, false
	}
	return resolve(r.Context(), p.Sessions, token)
}

// Chain tries each provider in order and returns the first identity found.
type Chain []Provider

func (c Chain) Identify(r *http.Request) (Identity, bool) {
	for _, p := range c {
		if id, ok := p.Identify(r); ok {
			return id, true
		}
	}
	return Identity{}, false
}

func resolve(ctx context.Context, sessions SessionResolver, token string) (Identity, bool) {
	username, err := sessions.ResolveSession(ctx, token)
	if err != nil || username == "" {
		return Identity{}, false
	}
	return Identity{Username: username}, true
}
