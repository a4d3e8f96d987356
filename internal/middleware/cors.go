// Package middleware contains the Gin middleware of the gateway.
// Middleware in Gin runs before (and, after c.Next() returns, after) the route
// handler. It calls c.Next() to proceed or c.Abort() to stop the chain.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleveque/crosssite/internal/service"
)

// Response header names emitted by CORS.
const (
	HeaderAllowOrigin      = "Access-Control-Allow-Origin"
	HeaderAllowCredentials = "Access-Control-Allow-Credentials"
	HeaderAllowMethods     = "Access-Control-Allow-Methods"
	HeaderAllowHeaders     = "Access-Control-Allow-Headers"
	HeaderVary             = "Vary"
)

// CORS returns middleware that lets an allowed origin embed the app in an
// iframe or as a web component.
//
// For requests the policy cares about and whose Origin is allowed it adds
// Access-Control-Allow-Origin and -Credentials. Preflight (OPTIONS) requests
// are answered right here with an empty text/plain body and the chain is
// aborted. Everything else continues down the chain, and on the way out the
// session cookie is rewritten to SameSite=None.
func CORS(policy *service.Policy, rewriter *service.SessionCookieRewriter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		logger.Debug("request", zap.String("uri", c.Request.RequestURI))

		decision := policy.Decide(c.Request)
		if decision != service.Passthrough {
			logger.Debug("CORS request",
				zap.String("origin", origin),
				zap.String("path", c.Request.URL.Path),
				zap.Stringer("decision", decision),
			)
			h := c.Writer.Header()
			h.Add(HeaderAllowOrigin, origin)
			h.Add(HeaderAllowCredentials, "true")

			if decision == service.Preflight {
				h.Add(HeaderAllowMethods, "GET, POST")
				h.Add(HeaderAllowHeaders, "content-type")
				h.Set("Content-Type", "text/plain; charset=utf-8")
				c.Status(http.StatusOK)
				c.Writer.Flush()
				c.Abort()
				return
			}

			// Add rather than Set: outer middleware may already vary on something else.
			h.Add(HeaderVary, "Origin")
		}

		w := newCommitHookWriter(c.Writer, rewriter.Rewrite)
		c.Writer = w
		c.Next()
		if !w.fired {
			rewriter.Rewrite(w)
		}
	}
}
