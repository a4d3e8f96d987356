package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/fleveque/crosssite/internal/service"
)

// commitHookWriter runs a hook once, just before the wrapped writer sends its
// headers. Handlers that write a body commit the response before c.Next()
// returns, so a rewrite done only after the chain would come too late.
//
// It embeds gin.ResponseWriter, so everything not overridden here (Status,
// Hijack, Pusher, ...) is promoted unchanged.
type commitHookWriter struct {
	gin.ResponseWriter
	hook  func(service.Response)
	fired bool
}

func newCommitHookWriter(w gin.ResponseWriter, hook func(service.Response)) *commitHookWriter {
	return &commitHookWriter{ResponseWriter: w, hook: hook}
}

// Committed reports whether headers have been sent. Together with the
// promoted Header method this makes the writer a service.Response.
func (w *commitHookWriter) Committed() bool {
	return w.ResponseWriter.Written()
}

func (w *commitHookWriter) beforeCommit() {
	if w.fired || w.ResponseWriter.Written() {
		return
	}
	w.fired = true
	w.hook(w)
}

func (w *commitHookWriter) Write(b []byte) (int, error) {
	w.beforeCommit()
	return w.ResponseWriter.Write(b)
}

func (w *commitHookWriter) WriteString(s string) (int, error) {
	w.beforeCommit()
	return w.ResponseWriter.WriteString(s)
}

func (w *commitHookWriter) WriteHeaderNow() {
	w.beforeCommit()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *commitHookWriter) Flush() {
	w.beforeCommit()
	w.ResponseWriter.Flush()
}
