package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/plantops/forgeml/pkg/errors"
	"github.com/plantops/forgeml/pkg/log"
)

// PredictRequest carries either named feature values or a vector in the
// model's feature order.
type PredictRequest struct {
	Values   map[string]any `json:"values,omitempty"`
	Features []float64      `json:"features,omitempty"`
}

func readBody(w http.ResponseWriter, r *http.Request, maxMB int) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, int64(maxMB)<<20))
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "read body"), errBadRequest)
	}
	return data, nil
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.List(r.Context(), r.URL.Query().Get("target"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	m, err := s.store.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, m)
}

func (s *Server) handleDeleteModel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.respondError(w, err)
		return
	}
	s.cache.Invalidate(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	body, err := readBody(w, r, s.cfg.Server.MaxBodyMB)
	if err != nil {
		s.respondError(w, err)
		return
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var req PredictRequest
	if err := dec.Decode(&req); err != nil {
		s.respondError(w, errors.Mark(errors.Wrap(err, "decode predict request"), errBadRequest))
		return
	}

	p, err := s.cache.Get(r.Context(), id)
	if err != nil {
		s.respondError(w, err)
		return
	}

	var pred float64
	switch {
	case req.Values != nil:
		pred, err = p.PredictValues(req.Values)
	case req.Features != nil:
		pred, err = p.Predict(req.Features)
	default:
		err = errors.Mark(errors.New("either values or features is required"), errBadRequest)
	}
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.logger.Debug("prediction", log.EstimatorIDKey, id, log.OperationKey, log.OperationPredict, log.PhaseKey, log.PhaseInference)
	s.respondJSON(w, http.StatusOK, map[string]any{"id": id, "prediction": pred})
}
