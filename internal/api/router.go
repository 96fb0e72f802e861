package api

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	apperrors "raccoon/internal/errors"
	"raccoon/internal/logger"
)

type Handlers struct {
	Reservations *UserReservationHandler
	Admin        *AdminHandler
	Contact      *ContactHandler
	Health       http.Handler
}

type RouterOptions struct {
	Prefix         string
	AllowedOrigins []string
	// PublicLimiter wraps the public POST endpoints. Nil disables rate limiting.
	PublicLimiter func(http.Handler) http.Handler
}

func NewRouter(h Handlers, opts RouterOptions) http.Handler {
	r := mux.NewRouter()
	api := r
	if opts.Prefix != "" {
		api = r.PathPrefix(opts.Prefix).Subrouter()
	}

	limited := func(fn http.HandlerFunc) http.Handler {
		if opts.PublicLimiter == nil {
			return fn
		}
		return opts.PublicLimiter(fn)
	}

	// Public endpoints
	api.Handle("/reservations", limited(h.Reservations.CreateReservation)).Methods(http.MethodPost)
	api.HandleFunc("/reservations/decline", h.Reservations.DeclineReservation).Methods(http.MethodGet)
	api.Handle("/contact", limited(h.Contact.SendContact)).Methods(http.MethodPost)
	api.Handle("/health", h.Health).Methods(http.MethodGet)

	// Admin endpoints
	admin := api.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/reservations", h.Admin.ListReservations).Methods(http.MethodGet)
	admin.HandleFunc("/reservations/{id}", h.Admin.AdminGetReservation).Methods(http.MethodGet)
	admin.HandleFunc("/reservations/{id}", h.Admin.AdminUpdateReservation).Methods(http.MethodPatch)
	admin.HandleFunc("/reservations/{id}", h.Admin.AdminDeleteReservation).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, apperrors.NewHTTPError(http.StatusNotFound, "Not found"))
	})

	cors := handlers.CORS(
		handlers.AllowedOrigins(opts.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", requestIDHeader}),
		handlers.AllowCredentials(),
	)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(logger.ErrorLogger),
		handlers.PrintRecoveryStack(true),
	)
	return accessLog(recovery(cors(r)))
}
