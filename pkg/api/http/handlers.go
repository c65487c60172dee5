package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aescanero/autocal/internal/application/orchestrator"
	"github.com/aescanero/autocal/internal/config"
	"github.com/aescanero/autocal/internal/graph"
)

// RunRequest represents a calibration run submission
type RunRequest struct {
	Target          string                                     `json:"target_node" binding:"required"`
	Qubits          []string                                   `json:"qubits" binding:"required"`
	Couplers        []string                                   `json:"couplers"`
	UserSamplespace map[string]map[string]map[string][]float64 `json:"user_samplespace"`
	NodeDictionary  map[string]float64                         `json:"node_dictionary"`
}

func (r RunRequest) run() *config.Run {
	return &config.Run{
		Target:          r.Target,
		Qubits:          r.Qubits,
		Couplers:        r.Couplers,
		UserSamplespace: r.UserSamplespace,
		NodeDictionary:  r.NodeDictionary,
	}
}

// RunSubmitResponse represents a run submission response
type RunSubmitResponse struct {
	RunID       string `json:"run_id"`
	Status      string `json:"status"`
	SubmittedAt string `json:"submitted_at"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (s *Server) fail(c *gin.Context, status int, code string, err error) {
	c.JSON(status, ErrorResponse{Error: ErrorDetail{Code: code, Message: err.Error()}})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": gin.H{
			"supervisor": "ok",
		},
	})
}

// handleSubmitRun handles run submission
func (s *Server) handleSubmitRun(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Error("invalid request", zap.Error(err))
		s.fail(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}

	runID, err := s.runs.Submit(req.run())
	if err != nil {
		s.logger.Error("failed to submit run", zap.Error(err))
		if errors.Is(err, orchestrator.ErrRunInProgress) {
			s.fail(c, http.StatusConflict, "RUN_IN_PROGRESS", err)
			return
		}
		s.fail(c, http.StatusUnprocessableEntity, "SUBMISSION_FAILED", err)
		return
	}

	c.JSON(http.StatusCreated, RunSubmitResponse{
		RunID:       runID,
		Status:      string(orchestrator.RunStatusSubmitted),
		SubmittedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// handleListRuns handles listing runs
func (s *Server) handleListRuns(c *gin.Context) {
	runs := s.runs.List()
	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"total": len(runs),
	})
}

// handleGetRun handles getting run details
func (s *Server) handleGetRun(c *gin.Context) {
	state, err := s.runs.Get(c.Param("id"))
	if err != nil {
		s.fail(c, http.StatusNotFound, "NOT_FOUND", err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// handleCancelRun handles run cancellation
func (s *Server) handleCancelRun(c *gin.Context) {
	runID := c.Param("id")
	if err := s.runs.Cancel(runID); err != nil {
		if errors.Is(err, orchestrator.ErrRunNotFound) {
			s.fail(c, http.StatusNotFound, "NOT_FOUND", err)
			return
		}
		s.fail(c, http.StatusConflict, "CANCEL_FAILED", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"run_id": runID,
		"status": "cancelling",
	})
}

// handleRunJournal returns the node passes of one run
func (s *Server) handleRunJournal(c *gin.Context) {
	entries, err := s.journal.ListRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.logger.Error("failed to read journal", zap.Error(err))
		s.fail(c, http.StatusInternalServerError, "JOURNAL_FAILED", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "total": len(entries)})
}

// handleJournal returns the most recent node passes
func (s *Server) handleJournal(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.fail(c, http.StatusBadRequest, "INVALID_REQUEST", errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}
	entries, err := s.journal.List(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("failed to read journal", zap.Error(err))
		s.fail(c, http.StatusInternalServerError, "JOURNAL_FAILED", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "total": len(entries), "limit": limit})
}

// handleOrder returns the calibration order of a target node
func (s *Server) handleOrder(c *gin.Context) {
	target := c.Param("target")
	order, err := s.inspector.Order(target)
	if err != nil {
		if errors.Is(err, graph.ErrUnknownNode) {
			s.fail(c, http.StatusNotFound, "NOT_FOUND", err)
			return
		}
		s.fail(c, http.StatusUnprocessableEntity, "ORDER_FAILED", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"target": target, "order": order})
}

// handleNodeStatus returns the calibration status of a node for the
// qubits and couplers given in the query
func (s *Server) handleNodeStatus(c *gin.Context) {
	name := c.Param("name")
	run := &config.Run{
		Target:   name,
		Qubits:   splitList(c.Query("qubits")),
		Couplers: splitList(c.Query("couplers")),
	}
	if err := run.Validate(); err != nil {
		s.fail(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}

	status, err := s.inspector.NodeStatus(c.Request.Context(), name, run)
	if err != nil {
		if errors.Is(err, graph.ErrUnknownNode) {
			s.fail(c, http.StatusNotFound, "NOT_FOUND", err)
			return
		}
		s.fail(c, http.StatusUnprocessableEntity, "STATUS_FAILED", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
