// Package service contains the decision logic of the gateway:
//
//	AllowedOrigins — which origins may embed the application
//	Classifier     — which requests need CORS headers at all
//	Policy         — the per-request decision (pass, actual, preflight)
//	SessionCookieRewriter — makes the session cookie usable cross-site
//
// Everything here is built once at startup and only read afterwards, so it is
// safe to share between the goroutines serving concurrent requests.
package service

import (
	"sort"
	"strings"

	"go.uber.org/zap"
)

// WildcardOrigin allows every origin that sends an Origin header.
const WildcardOrigin = "*"

// OriginsKey is the configuration key holding the comma-separated origins.
const OriginsKey = "origins"

// AllowedOrigins is the immutable set of origins allowed to embed the app.
// It is never empty: with no configured origins it holds only WildcardOrigin.
type AllowedOrigins struct {
	set map[string]struct{}
}

// NewAllowedOrigins builds the origin set from configuration values.
// Only OriginsKey is read; a missing or empty value means "no origins
// configured", which falls back to the wildcard with a warning.
func NewAllowedOrigins(values map[string]string, logger *zap.Logger) *AllowedOrigins {
	set := make(map[string]struct{})
	if raw := values[OriginsKey]; raw != "" {
		for _, o := range strings.Split(raw, ",") {
			o = strings.TrimSpace(o)
			if o == "" {
				continue
			}
			set[o] = struct{}{}
		}
	}

	if len(set) == 0 {
		logger.Warn("no CORS origins defined, allowing all origins for TESTING PURPOSES")
		logger.Warn("define allowed origins as origins=origin1,origin2 before deploying")
		set[WildcardOrigin] = struct{}{}
	}

	a := &AllowedOrigins{set: set}
	logger.Info("allowing embedding from", zap.String("origins", strings.Join(a.List(), ", ")))
	return a
}

// Allows reports whether origin may receive CORS headers.
// An empty origin (no Origin header) is never allowed. Matching is exact and
// case-sensitive: no scheme or host normalization happens.
func (a *AllowedOrigins) Allows(origin string) bool {
	if origin == "" {
		return false
	}
	if a.IsWildcard() {
		return true
	}
	_, ok := a.set[origin]
	return ok
}

// IsWildcard reports whether every origin is allowed.
func (a *AllowedOrigins) IsWildcard() bool {
	_, ok := a.set[WildcardOrigin]
	return ok
}

// List returns the origins in sorted order.
func (a *AllowedOrigins) List() []string {
	out := make([]string, 0, len(a.set))
	for o := range a.set {
		out = append(out, o)
	}
	sort.Strings(out)
	return out
}
