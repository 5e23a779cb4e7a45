// Package health serves a JSON snapshot of the engine state, for liveness
// probes and quick inspection.
package health

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/clambin/homehub/internal/engine"
)

// StatusReporter summarizes the engine for the health endpoint.
type StatusReporter interface {
	Status() engine.Status
}

type Health struct {
	Engine StatusReporter
	Logger *slog.Logger
}

func (h *Health) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	status := h.Engine.Status()
	if status.LastEvaluation.IsZero() {
		// the engine hasn't ticked yet
		http.Error(w, "no evaluation yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(healthReport{
		Status:         status,
		SinceEvaluated: time.Since(status.LastEvaluation).Round(time.Millisecond).String(),
	}); err != nil {
		h.Logger.Error("failed to write health report", slog.Any("err", err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

type healthReport struct {
	engine.Status
	SinceEvaluated string `json:"sinceEvaluated"`
}
