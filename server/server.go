// Package server exposes a backend over the REST contract the inventory
// client expects, so the client can run against a local catalog.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"stockroom/domain"
	"stockroom/logger"
	"stockroom/stock"
	"stockroom/store"
	"stockroom/util"
)

// Server routes REST requests to a store.Backend.
type Server struct {
	backend store.Backend
	router  *mux.Router
}

// New builds the router for backend.
func New(backend store.Backend) *Server {
	s := &Server{backend: backend, router: mux.NewRouter().UseEncodedPath()}

	r := s.router
	r.Use(requestLogger)
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.HandleFunc("/products", s.listProducts).Methods(http.MethodGet)
	r.HandleFunc("/products", s.createProduct).Methods(http.MethodPost)
	r.HandleFunc("/products/{id}", s.getProduct).Methods(http.MethodGet)
	r.HandleFunc("/products/{id}", s.updateProduct).Methods(http.MethodPut)
	r.HandleFunc("/products/{id}", s.deleteProduct).Methods(http.MethodDelete)
	r.HandleFunc("/warehousemans", s.findWarehousemen).Methods(http.MethodGet)
	r.HandleFunc("/statistics", s.statistics).Methods(http.MethodGet)
	return s
}

// Handler returns the router wrapped with CORS handling for browser and
// device clients.
func (s *Server) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", "Accept", "X-Request-ID"},
	}).Handler(s.router)
}

// ListenAndServe serves handler on addr until ctx is cancelled, then shuts
// down gracefully.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Logger.Info().Str("addr", addr).Msg("backend listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.backend.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.backend.Get(r.Context(), productID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var p domain.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "invalid product body", http.StatusBadRequest)
		return
	}
	created, err := s.backend.Create(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	var p domain.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "invalid product body", http.StatusBadRequest)
		return
	}
	updated, err := s.backend.Update(r.Context(), productID(r), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.Delete(r.Context(), productID(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{})
}

// findWarehousemen answers the login lookup. Without a secret key nothing
// is listed.
func (s *Server) findWarehousemen(w http.ResponseWriter, r *http.Request) {
	staff := []domain.Warehouseman{}
	if key := r.URL.Query().Get("secretKey"); key != "" {
		wm, err := s.backend.FindBySecretKey(r.Context(), key)
		switch {
		case err == nil:
			staff = append(staff, wm)
		case !domain.IsWarehousemanNotFoundError(err):
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, staff)
}

func (s *Server) statistics(w http.ResponseWriter, r *http.Request) {
	products, err := s.backend.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stock.ComputeStatistics(products))
}

// productID is the unescaped {id} route variable, so ids containing a slash
// survive the encoded-path routing.
func productID(r *http.Request) domain.ID {
	raw := mux.Vars(r)["id"]
	if id, err := url.PathUnescape(raw); err == nil {
		return domain.ID(id)
	}
	return domain.ID(raw)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Logger.Error().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case domain.IsProductNotFoundError(err):
		status = http.StatusNotFound
	case domain.IsInvalidProductError(err):
		status = http.StatusBadRequest
	case domain.IsDuplicateProductError(err):
		status = http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	http.Error(w, err.Error(), status)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		requestID := util.RequestID(r.Header.Get("X-Request-ID"))
		rec.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(rec, r)

		logger.Logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("request")
	})
}
