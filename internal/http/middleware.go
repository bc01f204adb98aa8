package http

import (
	"context"
	"net/http"

	"github.com/charmbracelet/log"
)

// Middleware wraps a handler with cross-cutting behavior.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares to a handler, outermost first: the first
// middleware in the list sees the request before any of the others.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// requestParams carries the request-scoped flags shared by every handler.
type requestParams struct {
	dryRun  bool
	verbose bool
}

// contextKey keeps our context values from colliding with other packages.
type contextKey struct{ name string }

var paramsKey = contextKey{"params"}

// paramsMiddleware parses the query flags every operational endpoint honors:
// dry_run makes mutating handlers describe instead of write, verbose raises
// the log level for the duration of the request.
func paramsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params := requestParams{
			dryRun:  r.URL.Query().Get("dry_run") == "true",
			verbose: r.URL.Query().Get("verbose") == "true",
		}
		log.Info("incoming request", "method", r.Method, "url", r.URL.String(), "dryRun", params.dryRun)

		if params.verbose {
			originalLevel := log.GetLevel()
			log.SetLevel(log.DebugLevel)
			// Restored when the handler returns; goroutines a handler spawns
			// outlive the verbose window.
			defer log.SetLevel(originalLevel)
		}

		ctx := context.WithValue(r.Context(), paramsKey, params)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// isDryRunFromContext reports whether the request asked for a dry run.
// Requests that skipped paramsMiddleware count as live runs.
func isDryRunFromContext(r *http.Request) bool {
	params, ok := r.Context().Value(paramsKey).(requestParams)
	return ok && params.dryRun
}
