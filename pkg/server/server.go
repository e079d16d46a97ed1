// Copyright 2025 Certen Protocol
//
// Package server exposes the Ledger Engine over plain net/http: no router
// library, matching the teacher's own transport choice throughout its core
// packages.
package server

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/ubl-core/ledger-core/pkg/ledger"
	"github.com/ubl-core/ledger-core/pkg/logging"
)

// Server wires a ledger.Store to the HTTP surface spec.md §6 names.
type Server struct {
	store  *ledger.Store
	logger *logging.Logger
	mux    *http.ServeMux
}

// New builds a Server for store, routing every endpoint and wrapping them
// with request-ID injection and access logging.
func New(store *ledger.Store, logger *logging.Logger) *Server {
	s := &Server{store: store, logger: logger, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /v1/containers/{container_id}/state", s.handleGetState)
	s.mux.HandleFunc("POST /v1/containers/{container_id}/commit", s.handleCommit)
	s.mux.HandleFunc("POST /v1/containers/{container_id}/validate", s.handleValidate)
	s.mux.HandleFunc("GET /v1/containers/{container_id}/proof/{sequence}", s.handleProof)
	s.mux.HandleFunc("GET /health", s.handleHealth)
}

// ServeHTTP implements http.Handler, attaching a request ID and a
// request-scoped logger before dispatching to the route mux.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", requestID)

	reqLogger := s.logger.WithRequestID(requestID)
	ctx := logging.IntoContext(r.Context(), reqLogger)
	logging.Middleware(reqLogger)(s.mux).ServeHTTP(w, r.WithContext(ctx))
}

// Handler returns the wrapped http.Handler suitable for http.Server.Handler.
func (s *Server) Handler() http.Handler {
	return s
}
