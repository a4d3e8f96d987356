package service

import (
	"net/http"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// DefaultSessionCookie is the servlet session cookie name.
const DefaultSessionCookie = "JSESSIONID"

const setCookieHeader = "Set-Cookie"

// Response is the part of an outgoing response the rewriter needs.
// Committed reports whether headers have already been sent, after which
// header changes no longer reach the client.
type Response interface {
	Header() http.Header
	Committed() bool
}

// SessionCookieRewriter adds SameSite=None to the session cookie so the
// browser keeps sending it when the app runs in a third-party iframe.
type SessionCookieRewriter struct {
	cookieName string
	logger     *zap.Logger
}

// NewSessionCookieRewriter creates a rewriter for the cookie called name.
// An empty name means DefaultSessionCookie.
func NewSessionCookieRewriter(name string, logger *zap.Logger) *SessionCookieRewriter {
	if name == "" {
		name = DefaultSessionCookie
	}
	return &SessionCookieRewriter{cookieName: name, logger: logger}
}

// Rewrite replaces the Set-Cookie headers of resp so that the session cookie
// comes first with SameSite=None, followed by the other cookies in their
// original order. It is a no-op when there is no session cookie or it already
// mentions samesite in any case.
//
// If resp is committed once the session cookie has been set, the other
// cookies are not re-added and are lost.
func (rw *SessionCookieRewriter) Rewrite(resp Response) {
	h := resp.Header()
	cookies := slices.Clone(h.Values(setCookieHeader))

	idx := slices.IndexFunc(cookies, func(c string) bool {
		return rw.isSessionCookie(c) && !strings.Contains(strings.ToLower(c), "samesite")
	})
	if idx < 0 {
		if ce := rw.logger.Check(zap.DebugLevel, "no session cookie found"); ce != nil {
			ce.Write(zap.Strings("headers", headerNames(h)))
		}
		return
	}

	rewritten := makeSameSite(cookies[idx])
	h.Set(setCookieHeader, rewritten)
	rw.logger.Debug("changing session cookie", zap.String("cookie", rewritten))

	if resp.Committed() {
		rw.logger.Debug("response is committed")
		return
	}

	for _, c := range cookies {
		if !rw.isSessionCookie(c) {
			h.Add(setCookieHeader, c)
		}
	}
}

func (rw *SessionCookieRewriter) isSessionCookie(cookie string) bool {
	return strings.HasPrefix(cookie, rw.cookieName)
}

// makeSameSite appends SameSite=None unless the exact attribute text
// "SameSite=" is already there. This check is case-sensitive, unlike the
// lookup in Rewrite.
func makeSameSite(cookie string) string {
	if strings.Contains(cookie, "SameSite=") {
		return cookie
	}
	return cookie + ";SameSite=None"
}

func headerNames(h http.Header) []string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
