package gateway

import "net/http"

func (g *Gateway) rateLimitMiddleware(next http.Handler) http.Handler {
	return g.Limiter.Middleware(next)
}
