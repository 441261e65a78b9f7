package handlers

import (
	"net/http"

	"github.com/nkiryanov/videoroom/internal/handlers/middleware"
	"github.com/nkiryanov/videoroom/internal/logger"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(registrationService registrationService, logger logger.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /status", handleStatus())
	mux.Handle("POST /signup", handleSignup(registrationService, logger))
	mux.Handle("GET /signup_check/{token}", handleSignupCheck(registrationService, logger))

	return chain(mux,
		middleware.LoggerMiddleware(logger),
	)
}
