// Package server exposes training, model storage and prediction over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/plantops/forgeml/internal/config"
	"github.com/plantops/forgeml/internal/protocol"
	"github.com/plantops/forgeml/pkg/errors"
	"github.com/plantops/forgeml/pkg/log"
	"github.com/plantops/forgeml/storage"
	"github.com/plantops/forgeml/trainer"
)

// Store is the artifact persistence the server needs.
type Store interface {
	storage.Loader
	SaveAll(ctx context.Context, models []*trainer.TrainedModel) error
	Get(ctx context.Context, id string) (*trainer.TrainedModel, error)
	List(ctx context.Context, target string) ([]storage.Record, error)
	Delete(ctx context.Context, id string) error
}

// Server holds the HTTP routes and their dependencies.
type Server struct {
	cfg      *config.Config
	store    Store
	cache    *storage.PredictorCache
	router   *mux.Router
	upgrader websocket.Upgrader
	logger   log.Logger
}

// New wires the routes.
func New(cfg *config.Config, store Store) (*Server, error) {
	cache, err := storage.NewPredictorCache(store, cfg.Storage.CacheSize)
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:    cfg,
		store:  store,
		cache:  cache,
		router: mux.NewRouter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		logger: log.GetLoggerWithName("server"),
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/train", s.handleTrain).Methods(http.MethodPost)
	api.HandleFunc("/train/ws", s.handleTrainWS).Methods(http.MethodGet)
	api.HandleFunc("/models", s.handleListModels).Methods(http.MethodGet)
	api.HandleFunc("/models/{id}", s.handleGetModel).Methods(http.MethodGet)
	api.HandleFunc("/models/{id}", s.handleDeleteModel).Methods(http.MethodDelete)
	api.HandleFunc("/models/{id}/predict", s.handlePredict).Methods(http.MethodPost)
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on the configured address until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", log.AddrKey, s.cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "serve")
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path,
			log.DurationMsKey, time.Since(start).Milliseconds())
	})
}

// respondJSON sends a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encode response", "error", err)
	}
}

// respondError maps err onto a status code and sends it as {"error": msg}.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	switch {
	case status >= http.StatusInternalServerError:
		s.logger.Error("request failed", err, log.ErrorTypeKey, protocol.Code(err))
	case errors.Is(err, errors.ErrInvalidArtifact):
		s.logger.Warn("stored model is unusable", err,
			log.ErrorTypeKey, protocol.Code(err),
			log.SuggestionKey, "delete the model and train it again")
	}
	s.respondJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	var (
		validation   *errors.ValidationError
		insufficient *errors.InsufficientDataError
	)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrInvalidArtifact), errors.As(err, &insufficient):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errors.ErrFeatureMismatch), errors.As(err, &validation), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"cached_predictor": s.cache.Len(),
	})
}
