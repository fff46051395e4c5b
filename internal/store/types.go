package store

import (
	"fmt"

	"github.com/roach88/discrete/internal/ir"
	"github.com/roach88/discrete/internal/num"
	"github.com/roach88/discrete/internal/trace"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run describes one enumeration.
type Run struct {
	ID            string    `json:"id"`
	Seq           int64     `json:"seq"`
	ModelName     string    `json:"model_name"`
	ModelHash     string    `json:"model_hash"`
	GraphType     string    `json:"graph_type"`
	Order         string    `json:"order"`
	Seed          uint64    `json:"seed"`
	MaxPaths      int       `json:"max_paths"`
	Status        RunStatus `json:"status"`
	PathCount     int64     `json:"path_count"`
	Error         string    `json:"error,omitempty"`
	EngineVersion string    `json:"engine_version"`
	IRVersion     string    `json:"ir_version"`
}

// Path is a stored completed path. Exactly one of Weight and BatchWeight
// is set.
type Path struct {
	RunID       string      `json:"run_id"`
	ID          string      `json:"id"`
	Seq         int64       `json:"seq"`
	Weight      *float64    `json:"weight,omitempty"`
	BatchWeight []float64   `json:"weight_batch,omitempty"`
	Assignment  ir.IRObject `json:"assignment"`
	Sites       []Site      `json:"sites"`
}

// Weights returns the weight as a slice: one element for a scalar weight.
func (p Path) Weights() []float64 {
	if p.Weight != nil {
		return []float64{*p.Weight}
	}
	return p.BatchWeight
}

// Site is one site of a stored path.
type Site struct {
	Seq        int        `json:"seq"`
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	DistKind   string     `json:"dist_kind,omitempty"`
	Value      ir.IRValue `json:"value"`
	IsObserved bool       `json:"is_observed"`
}

// NewPath builds the stored form of a completed path.
func NewPath(runID, id string, seq int64, weight num.Value, tr *trace.Trace, assignment ir.IRObject) (Path, error) {
	p := Path{RunID: runID, ID: id, Seq: seq, Assignment: assignment}
	switch w := weight.(type) {
	case num.Scalar:
		f := float64(w)
		p.Weight = &f
	case *num.Batch:
		p.BatchWeight = num.Floats(w)
	default:
		return Path{}, fmt.Errorf("path %s: unsupported weight %T", id, weight)
	}
	for _, s := range tr.Sites() {
		site := Site{
			Seq:        s.Seq,
			Name:       s.Name,
			Type:       string(s.Type),
			Value:      s.Value,
			IsObserved: s.IsObserved,
		}
		if s.Fn != nil {
			site.DistKind = s.Fn.Kind()
		}
		p.Sites = append(p.Sites, site)
	}
	return p, nil
}
