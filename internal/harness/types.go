package harness

import (
	"github.com/roach88/discrete/internal/engine"
	"github.com/roach88/discrete/internal/ir"
)

// PathRecord is one emitted path as read back from the store.
type PathRecord struct {
	Seq        int64       `json:"seq"`
	ID         string      `json:"id"`
	Assignment ir.IRObject `json:"assignment"`
	Weight     []float64   `json:"weight"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expectation holds.
	Pass bool `json:"pass"`

	// RunID identifies the run in the scenario's store.
	RunID string `json:"run_id"`

	// Paths contains every emitted path in emission order.
	Paths []PathRecord `json:"paths"`

	// ErrorCode classifies the enumeration error, if any.
	ErrorCode string `json:"error_code,omitempty"`

	// Stats counts replays, escapes and paths.
	Stats engine.Stats `json:"stats"`

	// Errors contains failed expectations.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Paths:  []PathRecord{},
		Errors: []string{},
	}
}

// AddError adds a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
