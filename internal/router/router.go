// Package router is a thin layer over http.ServeMux that adds middleware
// chains and route groups.
package router

import (
	"net/http"
	"slices"
)

// Middleware is a function that wraps an http.Handler
type Middleware func(http.Handler) http.Handler

// Router wraps http.ServeMux with middleware chaining.
//
// Requests that match no route still pass through the global middleware
// before the mux answers 404 or 405, so they are logged, counted and get
// CORS preflight handling like any other request.
type Router struct {
	mux      *http.ServeMux
	chain    []Middleware
	fallback http.Handler
}

// New creates a new Router with optional global middleware
func New(middleware ...Middleware) *Router {
	r := &Router{
		mux:   http.NewServeMux(),
		chain: middleware,
	}
	r.fallback = r.wrap(r.mux, nil)
	return r
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if _, pattern := r.mux.Handler(req); pattern == "" {
		r.fallback.ServeHTTP(w, req)
		return
	}
	r.mux.ServeHTTP(w, req)
}

// Get registers a GET route. It also answers HEAD.
func (r *Router) Get(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodGet, pattern, handler, middleware...)
}

// Post registers a POST route
func (r *Router) Post(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodPost, pattern, handler, middleware...)
}

// Handle registers a route with explicit method
func (r *Router) Handle(method, pattern string, handler http.Handler, middleware ...Middleware) {
	r.mux.Handle(method+" "+pattern, r.wrap(handler, middleware))
}

// wrap applies the router's chain and then middleware, outermost first.
func (r *Router) wrap(handler http.Handler, middleware []Middleware) http.Handler {
	combined := append(slices.Clone(r.chain), middleware...)

	result := handler
	for _, m := range slices.Backward(combined) {
		result = m(result)
	}
	return result
}

// Group creates a sub-router sharing the same mux with additional middleware.
// Only the root router should be served.
func (r *Router) Group(middleware ...Middleware) *Router {
	g := &Router{
		mux:   r.mux,
		chain: append(slices.Clone(r.chain), middleware...),
	}
	g.fallback = r.fallback
	return g
}
