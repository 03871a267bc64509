package api

import (
	"net/http"
	"time"
)

const timeoutBody = `{"Response":{"Message":"request timeout","Error":"the request took too long to process","Code":"infrastructure"}}`

// TimeoutMiddleware adds request timeout to prevent long-running requests. The handler's
// context is cancelled at the deadline and the client gets a 503.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, timeoutBody)
	}
}
