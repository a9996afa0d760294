package analytics

import (
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const (
	visitorSessionName = "visitor_session"
	visitorSessionKey  = "sid"
)

// SessionProvider supplies the opaque token distinguishing one browsing
// session from another. It is injected into the track handler so the
// mechanism (cookie, client storage, header) can be swapped without
// touching aggregation logic.
type SessionProvider interface {
	SessionID(c echo.Context) string
}

// CookieSessionProvider keeps the token in a browser-session cookie
// (MaxAge 0: survives navigation, not a browser restart). When the cookie
// cannot be written, it degrades to a fresh token per call; such sessions
// count as distinct visitors and inflate unique_sessions.
type CookieSessionProvider struct {
	store *sessions.CookieStore
	log   zerolog.Logger
}

// NewCookieSessionProvider creates a provider with its own cookie store.
// secret signs the cookie; secure should be true behind HTTPS.
func NewCookieSessionProvider(secret []byte, secure bool, log zerolog.Logger) *CookieSessionProvider {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   0,
		Secure:   secure,
	}
	return &CookieSessionProvider{store: store, log: log}
}

// SessionID returns the current session token, minting and persisting a
// new one on the first call of a browsing session.
func (p *CookieSessionProvider) SessionID(c echo.Context) string {
	// Get returns a usable (new) session even when decoding fails.
	sess, _ := p.store.Get(c.Request(), visitorSessionName)
	if id, ok := sess.Values[visitorSessionKey].(string); ok && id != "" {
		return id
	}
	id := NewToken()
	sess.Values[visitorSessionKey] = id
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		p.log.Warn().Err(err).Msg("session cookie not saved; using per-request token")
	}
	return id
}
