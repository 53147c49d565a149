package web

import (
	"context"
	"net/http"

	"github.com/a-h/templ"

	"github.com/healthcare-ti/form-enfermagem/internal/logging"
)

// withClientLogger tags the request logger with the client address and user
// agent, so coordinator log lines can be traced back to a client.
func withClientLogger(r *http.Request) context.Context {
	logger := logging.FromContext(r.Context()).With(
		"ip", r.RemoteAddr,
		"user_agent", r.UserAgent(),
	)
	return logging.NewContext(r.Context(), logger)
}

// renderFragment writes an HTML fragment for HTMX with status.
func renderFragment(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render fragment", "error", err)
	}
}
