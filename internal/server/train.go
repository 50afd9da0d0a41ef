package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/plantops/forgeml/internal/protocol"
	"github.com/plantops/forgeml/pkg/errors"
	"github.com/plantops/forgeml/pkg/log"
	"github.com/plantops/forgeml/preprocessing"
	"github.com/plantops/forgeml/trainer"
)

// TrainRequest is the body of a training request. Missing test_split and
// models fall back to the configured training defaults.
type TrainRequest struct {
	Config trainer.Config      `json:"config"`
	Rows   []preprocessing.Row `json:"rows"`
}

func decodeTrainRequest(data []byte) (*TrainRequest, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var req TrainRequest
	if err := dec.Decode(&req); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode training request"), errBadRequest)
	}
	return &req, nil
}

func (s *Server) withDefaults(cfg trainer.Config) trainer.Config {
	if cfg.TestSplit == 0 {
		cfg.TestSplit = s.cfg.Training.TestSplit
	}
	if len(cfg.Models) == 0 {
		cfg.Models = append([]string(nil), s.cfg.Training.Models...)
	}
	return cfg
}

// run trains req, streams every message through emit and persists the
// result before the result message is sent.
func (s *Server) run(req *TrainRequest, emit func(v any) error) {
	cfg := s.withDefaults(req.Config)
	logger := s.logger.With(log.TargetKey, cfg.Target)

	job := trainer.Start(req.Rows, cfg, trainer.WithParams(s.cfg.Engine))
	models, err := protocol.Relay(job, emit)
	if err == nil {
		err = s.store.SaveAll(context.Background(), models)
	}
	if err == nil {
		for _, m := range models {
			s.cache.Invalidate(m.ID)
		}
	}
	if err != nil {
		logger.Warn("training run failed", "error", err)
		_ = emit(protocol.NewError(err))
		return
	}
	logger.Info("training run finished", "models", len(models))
	_ = emit(protocol.NewResult(models))
}

// handleTrain streams the run as newline-delimited JSON.
func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r, s.cfg.Server.MaxBodyMB)
	if err != nil {
		s.respondError(w, err)
		return
	}
	req, err := decodeTrainRequest(body)
	if err != nil {
		s.respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	ctx := r.Context()

	s.run(req, func(v any) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := enc.Encode(v); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
}

// handleTrainWS reads one TrainRequest from the socket and streams the run
// back as JSON text messages.
func (s *Server) handleTrainWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(int64(s.cfg.Server.MaxBodyMB) << 20)

	_, data, err := conn.ReadMessage()
	if err != nil {
		return
	}
	req, err := decodeTrainRequest(data)
	if err != nil {
		_ = conn.WriteJSON(protocol.NewError(err))
		return
	}

	s.run(req, conn.WriteJSON)
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
}
