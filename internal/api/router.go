package api

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gatherhub/server/internal/api/handlers"
	"github.com/gatherhub/server/internal/api/middleware"
	"github.com/gatherhub/server/internal/clock"
	"github.com/gatherhub/server/internal/config"
	"github.com/gatherhub/server/internal/domain/events"
	"github.com/gatherhub/server/internal/domain/users"
	"github.com/gatherhub/server/internal/metrics"
	"github.com/gatherhub/server/internal/storage/postgres"
)

func NewRouter(cfg config.Config, logger zerolog.Logger, pool *pgxpool.Pool) http.Handler {
	eventsService := events.NewService(postgres.NewEventRepository(pool), clock.NewSystem())
	usersService := users.NewService(postgres.NewUserRepository(pool), logger)

	eventsHandler := handlers.NewEventsHandler(eventsService, cfg.Environment)
	usersHandler := handlers.NewUsersHandler(usersService, cfg.Environment)

	mux := http.NewServeMux()
	mux.Handle("/{$}", handlers.Root())
	mux.Handle("/healthz", handlers.Healthz())
	mux.Handle("/readyz", handlers.Readyz(func() error {
		if pool == nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return pool.Ping(ctx)
	}))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	mux.Handle("/events", methodMux(map[string]http.Handler{
		http.MethodPost: http.HandlerFunc(eventsHandler.Create),
	}))
	mux.Handle("/events/upcoming", methodMux(map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(eventsHandler.ListUpcoming),
	}))
	mux.Handle("/events/{id}", methodMux(map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(eventsHandler.Get),
	}))
	mux.Handle("/events/{id}/register", methodMux(map[string]http.Handler{
		http.MethodPost: http.HandlerFunc(eventsHandler.Register),
	}))
	mux.Handle("/events/{id}/register/{userId}", methodMux(map[string]http.Handler{
		http.MethodDelete: http.HandlerFunc(eventsHandler.Cancel),
	}))
	mux.Handle("/events/{id}/stats", methodMux(map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(eventsHandler.Stats),
	}))
	mux.Handle("/users", methodMux(map[string]http.Handler{
		http.MethodPost: http.HandlerFunc(usersHandler.Create),
	}))

	var handler http.Handler = mux
	handler = metrics.HTTPMiddleware(handler)
	handler = middleware.Recover(cfg.Environment)(handler)
	handler = middleware.RequestLogging(logger)(handler)
	handler = middleware.CorrelationID(logger)(handler)
	return handler
}

func methodMux(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers))
	for method := range handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
