package service

import (
	"net/http"
	"strings"
)

// Query parameter and values used by the embedded app's client protocol.
const (
	requestTypeParam = "v-r"
	requestUIDL      = "uidl"      // client-server data exchange
	requestHeartbeat = "heartbeat" // keep-alive; dropping it expires the session
)

// Path prefixes of assets loaded by the embedding page.
var corsPathPrefixes = []string{
	"/VAADIN/build/",
	"/web-component/",
}

// Classifier decides which requests need CORS headers. Everything else is
// passed through untouched whatever its Origin.
type Classifier struct {
	contextPath string
}

// NewClassifier creates a Classifier. contextPath is the prefix the app is
// mounted under (e.g. "/app"); it is stripped before matching paths.
func NewClassifier(contextPath string) *Classifier {
	return &Classifier{contextPath: strings.TrimSuffix(contextPath, "/")}
}

// NeedsCorsHeaders reports whether r is a UIDL or heartbeat request, or asks
// for build or web-component assets.
func (c *Classifier) NeedsCorsHeaders(r *http.Request) bool {
	switch r.URL.Query().Get(requestTypeParam) {
	case requestUIDL, requestHeartbeat:
		return true
	}

	path := c.appPath(r.URL.Path)
	for _, prefix := range corsPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// appPath returns the request path relative to the context path.
func (c *Classifier) appPath(path string) string {
	if c.contextPath == "" {
		return path
	}
	if path == c.contextPath {
		return "/"
	}
	if strings.HasPrefix(path, c.contextPath+"/") {
		return path[len(c.contextPath):]
	}
	return path
}
