package routes

import (
	"net/http"

	"chatdesk/internal/handlers"
	"chatdesk/internal/middleware"
	"chatdesk/internal/utils/helpers"

	"github.com/gorilla/mux"
)

func InitRoutes(
	router *mux.Router,
	authHandler *handlers.AuthHandler,
	passwordHandler *handlers.PasswordHandler,
	requireSession mux.MiddlewareFunc,
	metricsHandler http.Handler,
) {
	router.Use(middleware.RequestID, middleware.Recoverer, middleware.Logging)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		helpers.JSON(w, http.StatusOK, helpers.Response{Success: true, Message: "ok"})
	}).Methods(http.MethodGet)
	if metricsHandler != nil {
		router.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	}

	api := router.PathPrefix("/api").Subrouter()

	// public
	api.HandleFunc("/register", authHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/logout", authHandler.Logout).Methods(http.MethodPost)
	api.HandleFunc("/session", authHandler.Session).Methods(http.MethodGet)

	api.HandleFunc("/password/forgot", passwordHandler.Forgot).Methods(http.MethodPost)
	api.HandleFunc("/password/validate", passwordHandler.Validate).Methods(http.MethodPost)
	api.HandleFunc("/password/reset", passwordHandler.Reset).Methods(http.MethodPost)

	// session required
	protected := api.PathPrefix("").Subrouter()
	protected.Use(requireSession)

	protected.HandleFunc("/profile", authHandler.Profile).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/profile", authHandler.UpdateProfile).Methods(http.MethodPatch)
	protected.HandleFunc("/password/change", passwordHandler.Change).Methods(http.MethodPost, http.MethodOptions)
}
