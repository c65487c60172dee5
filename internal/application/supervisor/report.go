package supervisor

import (
	"time"

	"github.com/aescanero/autocal/pkg/domain"
)

// Outcome is the result of one pass over a node.
type Outcome string

const (
	OutcomeInSpec     Outcome = "in_spec"
	OutcomeCalibrated Outcome = "calibrated"
	OutcomeRejected   Outcome = "rejected"
	OutcomeFailed     Outcome = "failed"
)

// NodeResult describes one pass over a node.
type NodeResult struct {
	Node     string            `json:"node"`
	Status   domain.DataStatus `json:"status"`
	Outcome  Outcome           `json:"outcome"`
	DataPath string            `json:"data_path,omitempty"`
	// Values holds the accepted quantities of interest per entity key.
	Values    map[string]map[string]domain.Value `json:"values,omitempty"`
	Error     string                             `json:"error,omitempty"`
	StartedAt time.Time                          `json:"started_at"`
	Duration  time.Duration                      `json:"duration"`
}

// Report describes a calibration run.
type Report struct {
	RunID       string       `json:"run_id"`
	Target      string       `json:"target"`
	Order       []string     `json:"order"`
	Nodes       []NodeResult `json:"nodes"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt time.Time    `json:"completed_at"`
}

// NodeStatus is the calibration status of a node across its entities.
type NodeStatus struct {
	Node     string                              `json:"node"`
	Status   domain.DataStatus                   `json:"status"`
	Entities map[string]domain.CalibrationStatus `json:"entities"`
}
