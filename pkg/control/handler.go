// Package control implements the HTTP surface an embedder and peer nodes
// use to drive and inspect a node: start/stop the round loop, read its
// state, deliver a peer message, and report readiness. Rate limiting is
// per-route, token-bucket based, so a misbehaving peer hammering /message
// cannot starve /status or /getState on the same node.
package control

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/quorumkit/benor-node/pkg/logger"
)

// Route maps an HTTP method+path pair to its handler and optional
// per-route rate limit.
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
	Limit   int // requests/second; 0 disables limiting for this route
}

// Router dispatches requests to registered routes, applying a token
// bucket limiter per route when one is configured.
type Router struct {
	mu       sync.Mutex
	routes   map[string]Route
	limiters map[string]*rate.Limiter
}

// NewRouter builds a Router from a fixed set of routes.
func NewRouter(routes []Route) *Router {
	r := &Router{
		routes:   make(map[string]Route),
		limiters: make(map[string]*rate.Limiter),
	}
	for _, rt := range routes {
		key := routeKey(rt.Method, rt.Path)
		r.routes[key] = rt
		if rt.Limit > 0 {
			r.limiters[key] = rate.NewLimiter(rate.Limit(rt.Limit), rt.Limit)
		}
	}
	return r
}

func routeKey(method, path string) string { return method + " " + path }

// ServeHTTP implements http.Handler. A route whose limiter has no tokens
// available is rejected with 429 before the handler ever runs.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	key := routeKey(req.Method, req.URL.Path)

	r.mu.Lock()
	route, ok := r.routes[key]
	limiter := r.limiters[key]
	r.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("no route for %s %s", req.Method, req.URL.Path))
		return
	}
	if limiter != nil && !limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
		return
	}
	route.Handler(w, req)
}

func logRequest(method, path string, status int) {
	logger.Debug("control: %s %s -> %d", method, path, status)
}
