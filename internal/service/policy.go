package service

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Decision is what the gateway does with a request's CORS headers.
type Decision int

const (
	// Passthrough adds no CORS headers.
	Passthrough Decision = iota
	// Actual adds the allow headers plus Vary: Origin and forwards the request.
	Actual
	// Preflight answers the OPTIONS request directly; nothing is forwarded.
	Preflight
)

func (d Decision) String() string {
	switch d {
	case Actual:
		return "actual"
	case Preflight:
		return "preflight"
	default:
		return "passthrough"
	}
}

// Policy combines the classifier and the origin registry.
type Policy struct {
	origins    *AllowedOrigins
	classifier *Classifier
	logger     *zap.Logger
}

// NewPolicy creates a Policy.
func NewPolicy(origins *AllowedOrigins, classifier *Classifier, logger *zap.Logger) *Policy {
	return &Policy{
		origins:    origins,
		classifier: classifier,
		logger:     logger,
	}
}

// Origins returns the registry the policy checks against.
func (p *Policy) Origins() *AllowedOrigins { return p.origins }

// NeedsCorsHeaders reports whether r is an embedding-related request.
func (p *Policy) NeedsCorsHeaders(r *http.Request) bool {
	return p.classifier.NeedsCorsHeaders(r)
}

// IsAllowedOrigin reports whether origin may receive CORS headers.
func (p *Policy) IsAllowedOrigin(origin string) bool {
	p.logger.Debug("checking if origin is ok", zap.String("origin", origin))
	return p.origins.Allows(origin)
}

// Decide returns the decision for r based on its path, query, Origin and
// method. The origin is only checked for requests that need CORS headers.
func (p *Policy) Decide(r *http.Request) Decision {
	if !p.NeedsCorsHeaders(r) {
		return Passthrough
	}
	if !p.IsAllowedOrigin(r.Header.Get("Origin")) {
		return Passthrough
	}
	if strings.EqualFold(r.Method, http.MethodOptions) {
		return Preflight
	}
	return Actual
}
