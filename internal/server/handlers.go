package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Geeks-Trident-LLC/rewordapp/internal/engine"
	"github.com/Geeks-Trident-LLC/rewordapp/internal/events"
	"github.com/Geeks-Trident-LLC/rewordapp/internal/history"
	"github.com/Geeks-Trident-LLC/rewordapp/internal/rule"
)

// rewriteRequest is the body of POST /v1/rewrite.
type rewriteRequest struct {
	Text   string `json:"text"`
	Header string `json:"header,omitempty"`
	// Seed fixes the run's pseudo-random source. Zero falls back to the
	// configured default seed, or a fresh one when that is zero too.
	Seed int64 `json:"seed,omitempty"`
}

// rewriteResponse is the reply of POST /v1/rewrite.
type rewriteResponse struct {
	RunID    string           `json:"run_id"`
	Output   string           `json:"output"`
	Warnings []engine.Warning `json:"warnings"`
	Seed     int64            `json:"seed"`
}

// handleRewrite runs one rewriting invocation.
func (s *Server) handleRewrite(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	runID := uuid.NewString()
	log := s.logger.WithRunID(runID)

	defaults := s.rewriteDefaults()
	r.Body = http.MaxBytesReader(w, r.Body, defaults.MaxTextBytes)
	var req rewriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text must not be empty")
		return
	}

	set := s.ruleSet()
	opts := engine.Options{
		Seed:   pickSeed(req.Seed, defaults.Seed),
		Header: req.Header,
	}
	if opts.Header == "" {
		opts.Header = defaults.Header
	}
	if s.maps != nil {
		opts.Mappings = s.maps.Load(r.Context(), ruleNames(set))
	}

	result, err := engine.Rewrite(req.Text, set, opts)
	if err != nil {
		// Only reachable on an internal invariant violation.
		log.Error("Rewrite failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "rewrite failed")
		return
	}

	if s.maps != nil {
		if err := s.maps.Save(r.Context(), result.Mappings); err != nil {
			log.Warn("Failed to persist mappings", zap.Error(err))
		}
	}

	duration := time.Since(start)
	s.recordRun(r.Context(), runID, "api", req.Text, result, set.Len(), duration)

	s.hub.Broadcast(events.Event{
		Type:      events.EventTypeRunCompleted,
		Timestamp: time.Now(),
		Data: events.RunCompletedEvent{
			RunID:        runID,
			Source:       "api",
			RuleCount:    set.Len(),
			MappingCount: len(result.Mappings),
			Warnings:     result.Warnings,
			DurationMS:   float64(duration.Microseconds()) / 1000.0,
		},
	})

	log.Info("Rewrite completed",
		zap.Int("input_bytes", len(req.Text)),
		zap.Int("mappings", len(result.Mappings)),
		zap.Int("warnings", len(result.Warnings)),
		zap.Duration("duration", duration))

	writeJSON(w, http.StatusOK, rewriteResponse{
		RunID:    runID,
		Output:   result.Output,
		Warnings: nonNilWarnings(result.Warnings),
		Seed:     opts.Seed,
	})
}

// handleRules lists the active rules in evaluation order.
func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	set := s.ruleSet()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count": set.Len(),
		"rules": rule.Describe(set),
	})
}

// handleReload recompiles the rule file on demand.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.reloadRules(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	set := s.ruleSet()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded": true,
		"count":    set.Len(),
	})
}

// handleRuns lists recent rewrite runs from the history store.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "run history is not enabled")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	runs, err := s.history.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleInfo handles info requests.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	set := s.ruleSet()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":              "rewordapp",
		"rule_count":        set.Len(),
		"mapstore_enabled":  s.maps != nil,
		"history_enabled":   s.history != nil,
		"websocket_clients": s.hub.ClientCount(),
	})
}

// recordRun persists a run summary when the history store is enabled.
func (s *Server) recordRun(ctx context.Context, runID, source, input string, result engine.Result, ruleCount int, duration time.Duration) {
	if s.history == nil {
		return
	}
	run := &history.Run{
		ID:           runID,
		Source:       source,
		InputSHA256:  sha256Hex(input),
		OutputSHA256: sha256Hex(result.Output),
		RuleCount:    ruleCount,
		WarningCount: len(result.Warnings),
		MappingCount: len(result.Mappings),
		DurationMS:   duration.Milliseconds(),
	}
	if err := s.history.InsertRun(ctx, run); err != nil {
		s.logger.Warn("Failed to record run", zap.String("run_id", runID), zap.Error(err))
	}
}

// pickSeed resolves the effective seed for one run.
func pickSeed(requested, configured int64) int64 {
	if requested != 0 {
		return requested
	}
	if configured != 0 {
		return configured
	}
	return time.Now().UnixNano()
}

// ruleNames returns the names of every rule in the set, in evaluation
// order, for mapping store lookups.
func ruleNames(set *rule.Set) []string {
	names := make([]string, 0, set.Len())
	for _, r := range set.Rules() {
		names = append(names, r.Name)
	}
	return names
}

func sha256Hex(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func nonNilWarnings(warnings []engine.Warning) []engine.Warning {
	if warnings == nil {
		return []engine.Warning{}
	}
	return warnings
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload) //nolint:errcheck // client gone
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
