package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ubl-core/ledger-core/pkg/apierr"
	"github.com/ubl-core/ledger-core/pkg/envelope"
	"github.com/ubl-core/ledger-core/pkg/ledger"
	"github.com/ubl-core/ledger-core/pkg/logging"
	"github.com/ubl-core/ledger-core/pkg/membrane"
	"github.com/ubl-core/ledger-core/pkg/metrics"
)

// version is the ledger core's own version, reported by GET /health. It is
// bumped independently of the protocol version LinkCommit.Version pins.
const version = "1.0.0"

// commitAcceptedResponse and commitRejectedResponse are the two shapes
// POST .../commit can return, matching spec.md §6 exactly:
// {"status":"ACCEPTED","receipt":{...}} or
// {"status":"REJECTED","error":string,"code":"V1".."V7"}.
type commitAcceptedResponse struct {
	Status  string         `json:"status"`
	Receipt ledger.Receipt `json:"receipt"`
}

type commitRejectedResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
	Code   string `json:"code"`
}

// validateResponse is POST .../validate's wire shape: {"valid":bool,
// "error"?:string,"code"?:string}.
type validateResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

func rejectedResponse(decision membrane.Decision) commitRejectedResponse {
	return commitRejectedResponse{
		Status: "REJECTED",
		Error:  decision.Message,
		Code:   string(decision.Code),
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, apiErr *apierr.Error) {
	writeJSON(w, apiErr.HTTPStatus(), apiErr)
}

func storageAPIError(err error) *apierr.Error {
	if errors.Is(err, ledger.ErrStorageUnavailable) {
		return apierr.Wrap(apierr.StorageUnavailable, "ledger storage unavailable", err)
	}
	return apierr.Wrap(apierr.Internal, "unexpected ledger error", err)
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	containerID := r.PathValue("container_id")
	state, err := s.store.GetState(containerID)
	if err != nil {
		writeError(w, storageAPIError(err))
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func decodeLinkCommit(r *http.Request) (envelope.LinkCommit, *apierr.Error) {
	var link envelope.LinkCommit
	if err := json.NewDecoder(r.Body).Decode(&link); err != nil {
		return envelope.LinkCommit{}, apierr.Wrap(apierr.MalformedEnvelope, "request body is not a valid LinkCommit", err)
	}
	return link, nil
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	containerID := r.PathValue("container_id")
	logger := logging.FromContext(r.Context()).WithContainer(containerID)

	link, apiErr := decodeLinkCommit(r)
	if apiErr != nil {
		writeError(w, apiErr)
		return
	}

	start := time.Now()
	receipt, decision, err := s.store.Commit(containerID, link)
	metrics.ValidationDuration.WithLabelValues(containerID).Observe(time.Since(start).Seconds())
	if err != nil {
		logger.WithError(err).Error("commit failed")
		metrics.StorageErrors.WithLabelValues(containerID, "commit").Inc()
		writeError(w, storageAPIError(err))
		return
	}
	if !decision.Accepted {
		metrics.CommitsRejected.WithLabelValues(containerID, string(decision.Code)).Inc()
		status := apierr.New(apierr.Code(decision.Code), decision.Message).HTTPStatus()
		writeJSON(w, status, rejectedResponse(decision))
		return
	}

	metrics.CommitsAccepted.WithLabelValues(containerID).Inc()
	writeJSON(w, http.StatusCreated, commitAcceptedResponse{Status: "ACCEPTED", Receipt: receipt})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	containerID := r.PathValue("container_id")

	link, apiErr := decodeLinkCommit(r)
	if apiErr != nil {
		writeError(w, apiErr)
		return
	}

	decision, err := s.store.Validate(containerID, link)
	if err != nil {
		writeError(w, storageAPIError(err))
		return
	}
	if decision.Accepted {
		writeJSON(w, http.StatusOK, validateResponse{Valid: true})
		return
	}
	status := apierr.New(apierr.Code(decision.Code), decision.Message).HTTPStatus()
	writeJSON(w, status, validateResponse{
		Valid: false,
		Error: decision.Message,
		Code:  string(decision.Code),
	})
}

func (s *Server) handleProof(w http.ResponseWriter, r *http.Request) {
	containerID := r.PathValue("container_id")
	sequence, err := strconv.ParseUint(r.PathValue("sequence"), 10, 64)
	if err != nil {
		writeError(w, apierr.Wrap(apierr.MalformedEnvelope, "sequence must be a non-negative integer", err))
		return
	}

	proof, err := s.store.Proof(containerID, sequence)
	if err != nil {
		writeError(w, apierr.Wrap(apierr.NotFound, "no entry at that sequence", err))
		return
	}
	writeJSON(w, http.StatusOK, proof)
}

// healthComponent is adapted from the teacher's HealthStatus shape, kept
// down to the one dependency this core actually owns: ledger storage.
type healthComponent struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

type healthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Components []healthComponent `json:"components"`
	Timestamp  time.Time         `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	component := healthComponent{Name: "ledger_storage", Healthy: true}
	if err := s.store.Ping(); err != nil {
		component.Healthy = false
		component.Detail = err.Error()
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !component.Healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status:     status,
		Version:    version,
		Components: []healthComponent{component},
		Timestamp:  time.Now(),
	})
}
