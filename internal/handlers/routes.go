package handlers

import "net/http"

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{Database: deps.Database}
	auth := AuthHandler{
		Auth:             deps.Auth,
		Resets:           deps.Resets,
		Limiter:          deps.Limiter,
		Proxies:          deps.TrustedProxies,
		ExposeResetToken: deps.ExposeResetToken,
	}
	movies := MovieHandler{Movies: deps.Movies, MaxUploadBytes: deps.MaxUploadBytes}

	protected := deps.RequireAuth
	if protected == nil {
		protected = func(next http.Handler) http.Handler { return next }
	}

	mux.HandleFunc("/healthz", health.Handle)

	mux.HandleFunc("/register", auth.Register)
	mux.HandleFunc("/login", auth.Login)
	mux.HandleFunc("/forgot-password", auth.ForgotPassword)
	mux.HandleFunc("/reset-password", auth.ResetPassword)

	mux.HandleFunc("/rest/api/movie/all", movies.All)
	mux.HandleFunc("/rest/api/movie/{id}", movies.Get)
	mux.HandleFunc("/rest/api/movie/image/{id}", movies.Image)
	mux.HandleFunc("/rest/api/movie/video/{id}", movies.Video)
	mux.Handle("/rest/api/movie/mymovies", protected(http.HandlerFunc(movies.MyMovies)))
	mux.Handle("/rest/api/movie/upload", protected(http.HandlerFunc(movies.Upload)))
	mux.Handle("/rest/api/movie/update", protected(http.HandlerFunc(movies.Update)))
	mux.Handle("/rest/api/movie/delete/{id}", protected(http.HandlerFunc(movies.Delete)))
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Auth     Authenticator
	Resets   PasswordResetter
	Movies   MovieCatalog
	Limiter  RateLimiter
	Database Pinger

	// TrustedProxies are the peers allowed to report the client address.
	TrustedProxies TrustedProxies

	// RequireAuth guards the endpoints acting on behalf of a user.
	RequireAuth func(http.Handler) http.Handler

	ExposeResetToken bool
	MaxUploadBytes   int64
}
