package middleware

import "net/http"

// Chain composes wrappers around a handler so that the first wrapper
// listed is the first to run
func Chain(h http.Handler, wrappers ...func(http.Handler) http.Handler) http.Handler {
	for i := len(wrappers) - 1; i >= 0; i-- {
		h = wrappers[i](h)
	}
	return h
}
