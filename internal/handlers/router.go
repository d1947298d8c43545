package handlers

import (
	"net/http"

	"github.com/gatherly/auth-service/internal/handlers/middleware"
	"github.com/gatherly/auth-service/internal/logger"
)

// Default places to look for the access token, in priority order
var defaultTokenSources = []middleware.TokenSource{
	middleware.SourceBody,
	middleware.SourceQuery,
	middleware.SourceCookie,
}

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	auth authService,
	sessions middleware.SessionManager,
	log logger.Logger,
	tokenSources ...middleware.TokenSource,
) http.Handler {
	if len(tokenSources) == 0 {
		tokenSources = defaultTokenSources
	}

	// Unauthenticated routes still get the sender fingerprint: login and
	// register bind the issued pair to the requesting device
	public := middleware.Chain(
		middleware.SenderData(),
	)

	// Full gate sequence for routes operating on an issued pair
	authed := middleware.Chain(
		middleware.SenderData(),
		middleware.AccessToken(sessions, false, tokenSources...),
		middleware.RefreshToken(sessions),
		middleware.ValidatePair(sessions),
	)

	// Same gates but the access token may be expired: that is the whole
	// point of the refresh flow
	refreshing := middleware.Chain(
		middleware.SenderData(),
		middleware.AccessToken(sessions, true, tokenSources...),
		middleware.RefreshToken(sessions),
		middleware.ValidatePair(sessions),
	)

	apiauth := http.NewServeMux()

	apiauth.Handle("POST /login", public(handleLogin(auth, log)))
	apiauth.Handle("POST /register", public(handleRegister(auth, log)))
	apiauth.Handle("POST /logout", authed(handleLogout(auth, log)))
	apiauth.Handle("POST /refresh-token", refreshing(handleRefresh(auth, log)))
	apiauth.Handle("GET /public-key", handlePublicKey(auth))
	apiauth.Handle("GET /health-check", handleHealthCheck())

	root := http.NewServeMux()
	root.Handle("/api/v1/auth/", http.StripPrefix("/api/v1/auth", apiauth))

	return chain(root,
		middleware.LoggerMiddleware(log),
	)
}
