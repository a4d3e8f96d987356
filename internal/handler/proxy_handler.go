package handler

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ProxyHandler forwards requests to the upstream application. The CORS
// middleware runs on the way in and rewrites the upstream's session cookie
// on the way out.
type ProxyHandler struct {
	proxy  *httputil.ReverseProxy
	logger *zap.Logger
}

// NewProxyHandler creates a ProxyHandler for the upstream at rawURL.
func NewProxyHandler(rawURL string, logger *zap.Logger) (*ProxyHandler, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing upstream url: %w", err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("upstream url %q needs a scheme and host", rawURL)
	}

	h := &ProxyHandler{logger: logger}
	h.proxy = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			// Keep the browser's Host so the upstream builds correct redirects.
			pr.Out.Host = pr.In.Host
		},
		ErrorHandler: h.upstreamError,
	}
	return h, nil
}

// Forward proxies the request. Registered as the NoRoute handler, so every
// path the gateway doesn't own ends up here.
func (h *ProxyHandler) Forward(c *gin.Context) {
	h.proxy.ServeHTTP(c.Writer, c.Request)
}

func (h *ProxyHandler) upstreamError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("upstream request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	w.WriteHeader(http.StatusBadGateway)
}
