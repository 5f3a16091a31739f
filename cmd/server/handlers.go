package main

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/tradepulse/trademl/internal/observability/health"
	"github.com/tradepulse/trademl/internal/replay"
	"github.com/tradepulse/trademl/internal/training"
	"github.com/tradepulse/trademl/pkg/errors"
	"github.com/tradepulse/trademl/pkg/interfaces"
	"github.com/tradepulse/trademl/pkg/models"
)

// TrainingServer wires the engine and its collaborators behind HTTP
type TrainingServer struct {
	logger      *logrus.Logger
	engine      *training.Engine
	buffer      *replay.Buffer
	checkpoints interfaces.CheckpointStorage
	registry    interfaces.ModelRegistry
	sink        interfaces.MetricsSink
	checker     *health.Checker
}

// NewTrainingServer creates the HTTP facade. Registry and sink may be
// nil when their backends are not configured.
func NewTrainingServer(engine *training.Engine, buffer *replay.Buffer, checkpoints interfaces.CheckpointStorage, registry interfaces.ModelRegistry, sink interfaces.MetricsSink, checker *health.Checker, logger *logrus.Logger) *TrainingServer {
	return &TrainingServer{
		logger:      logger,
		engine:      engine,
		buffer:      buffer,
		checkpoints: checkpoints,
		registry:    registry,
		sink:        sink,
		checker:     checker,
	}
}

// RegisterRoutes attaches the training API to the router
func (s *TrainingServer) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/train/init", s.handleInitialize).Methods("POST")
	api.HandleFunc("/train/epoch", s.handleTrainEpoch).Methods("POST")
	api.HandleFunc("/train/metrics", s.handleMetrics).Methods("GET")
	api.HandleFunc("/train/state", s.handleState).Methods("GET")
	api.HandleFunc("/checkpoints", s.handleSaveCheckpoint).Methods("POST")
	api.HandleFunc("/checkpoints/{id}/restore", s.handleRestoreCheckpoint).Methods("POST")
	api.HandleFunc("/models", s.handleListModels).Methods("GET")
}

type initializeRequest struct {
	Architecture models.Architecture `json:"architecture"`
	InputSize    int                 `json:"input_size"`
	OutputSize   int                 `json:"output_size"`
}

func (s *TrainingServer) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, errors.NewValidationError("BAD_REQUEST", "invalid request body"))
		return
	}

	if err := s.engine.InitializeNetwork(req.Architecture, req.InputSize, req.OutputSize); err != nil {
		s.respondError(w, statusFor(err), err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"model_id": s.engine.ModelID(),
		"state":    s.engine.State(),
	})
}

type trainRequest struct {
	Epochs int `json:"epochs"`
}

func (s *TrainingServer) handleTrainEpoch(w http.ResponseWriter, r *http.Request) {
	var req trainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, errors.NewValidationError("BAD_REQUEST", "invalid request body"))
		return
	}
	if req.Epochs <= 0 {
		req.Epochs = 1
	}

	var results []models.TrainingMetrics
	for i := 0; i < req.Epochs; i++ {
		metrics, err := s.engine.TrainEpoch(r.Context())
		if err != nil {
			if len(results) > 0 {
				// Partial progress is still a result; report it with
				// the terminating condition.
				s.respondJSON(w, http.StatusOK, map[string]interface{}{
					"metrics": results,
					"stopped": err.Error(),
				})
				return
			}
			s.respondError(w, statusFor(err), err)
			return
		}
		results = append(results, *metrics)

		if s.sink != nil {
			if err := s.sink.Write(r.Context(), s.engine.ModelID(), metrics); err != nil {
				s.logger.WithError(err).Warn("Metrics sink write failed")
			}
		}
		if s.engine.ShouldStopEarly() {
			break
		}
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{"metrics": results})
}

func (s *TrainingServer) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.engine.History())
}

func (s *TrainingServer) handleState(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"model_id":    s.engine.ModelID(),
		"state":       s.engine.State(),
		"run_state":   s.engine.RunState(),
		"buffer_size": s.buffer.Len(),
	})
}

func (s *TrainingServer) handleSaveCheckpoint(w http.ResponseWriter, r *http.Request) {
	cp, err := s.engine.Checkpoint()
	if err != nil {
		s.respondError(w, statusFor(err), err)
		return
	}
	if err := s.checkpoints.Save(r.Context(), cp); err != nil {
		s.respondError(w, statusFor(err), err)
		return
	}

	if s.registry != nil {
		info := &models.ModelInfo{
			ModelID:      cp.ModelID,
			Architecture: cp.Config.Architecture,
			CreatedAt:    cp.CreatedAt,
			CheckpointID: cp.ID,
		}
		if cp.Metrics != nil {
			info.Epochs = cp.Metrics.Epoch + 1
			info.FinalLoss = cp.Metrics.Loss.MSE
			info.Metrics = cp.Metrics
		}
		if err := s.registry.Register(r.Context(), info); err != nil {
			s.logger.WithError(err).Warn("Model registry update failed")
		}
	}

	s.respondJSON(w, http.StatusCreated, map[string]interface{}{"checkpoint_id": cp.ID})
}

func (s *TrainingServer) handleRestoreCheckpoint(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	cp, err := s.checkpoints.Load(r.Context(), id)
	if err != nil {
		s.respondError(w, statusFor(err), err)
		return
	}
	if err := s.engine.RestoreCheckpoint(cp); err != nil {
		s.respondError(w, statusFor(err), err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"model_id": cp.ModelID,
		"state":    s.engine.State(),
	})
}

func (s *TrainingServer) handleListModels(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		s.respondError(w, http.StatusServiceUnavailable,
			errors.NewConfigurationError("NO_REGISTRY", "model registry not configured"))
		return
	}
	infos, err := s.registry.List(r.Context())
	if err != nil {
		s.respondError(w, statusFor(err), err)
		return
	}
	s.respondJSON(w, http.StatusOK, infos)
}

// HandleHealth serves the component health report
func (s *TrainingServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
	defer cancel()

	report := s.checker.Check(ctx)
	status := http.StatusOK
	if report.Status != health.StatusHealthy {
		status = http.StatusServiceUnavailable
	}
	s.respondJSON(w, status, report)
}

func (s *TrainingServer) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func (s *TrainingServer) respondError(w http.ResponseWriter, status int, err error) {
	s.respondJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.IsValidationError(err):
		return http.StatusBadRequest
	case errors.IsRetryable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
