package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/discrete/internal/compiler"
	"github.com/roach88/discrete/internal/engine"
	"github.com/roach88/discrete/internal/logging"
	"github.com/roach88/discrete/internal/model"
	"github.com/roach88/discrete/internal/store"
	"github.com/roach88/discrete/internal/trace"
)

// Harness is the test execution engine. It enumerates a scenario's model
// and persists each path to the scenario's store.
type Harness struct {
	store  *store.Store
	runIDs engine.RunIDGenerator
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation, with
// the run ID fixed to the scenario name so results are reproducible.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Load, compile and validate the model
// 3. Enumerate every path, writing each to the store
// 4. Read the paths back and evaluate the expectations
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		runIDs: engine.NewFixedGenerator(scenario.Name),
		logger: logging.NewNop(),
	}
	return h.run(context.Background(), scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	specs, err := compiler.LoadModels(scenario.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	spec, err := compiler.FindModel(specs, scenario.ModelName)
	if err != nil {
		return nil, err
	}
	prog, err := model.Build(spec)
	if err != nil {
		return nil, err
	}

	graph := trace.GraphFlat
	if scenario.GraphType != "" {
		if graph, err = trace.ParseGraphType(scenario.GraphType); err != nil {
			return nil, err
		}
	}
	order, err := engine.ParseOrder(scenario.Order)
	if err != nil {
		return nil, err
	}

	run, err := h.store.CreateRun(ctx, store.Run{
		ID:        h.runIDs.Generate(),
		ModelName: spec.Name,
		ModelHash: prog.Hash,
		GraphType: string(graph),
		Order:     order.String(),
		Seed:      scenario.Seed,
		MaxPaths:  scenario.MaxPaths,
	})
	if err != nil {
		return nil, err
	}

	en := engine.New(
		engine.WithLogger(h.logger),
		engine.WithOrder(order),
		engine.WithSeed(scenario.Seed),
		engine.WithMaxPaths(scenario.MaxPaths),
		engine.WithModelHash(prog.Hash),
	)
	it := en.IterDiscreteTraces(ctx, graph, prog.Model())
	defer it.Close()

	result := NewResult()
	result.RunID = run.ID

	var paths []engine.Path
	for it.Next() {
		p := it.Path()
		rec, err := store.NewPath(run.ID, p.ID, p.Seq, p.Weight, p.Trace, p.Assignment())
		if err != nil {
			return nil, err
		}
		if _, err := h.store.WritePath(ctx, rec); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	runErr := it.Err()
	result.Stats = it.Stats()
	if runErr != nil {
		result.ErrorCode = engine.ErrorCode(runErr)
	}
	if err := h.store.FinishRun(ctx, run.ID, int64(len(paths)), runErr); err != nil {
		return nil, err
	}

	stored, err := h.store.ReadPaths(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	for _, p := range stored {
		result.Paths = append(result.Paths, PathRecord{
			Seq:        p.Seq,
			ID:         p.ID,
			Assignment: p.Assignment,
			Weight:     p.Weights(),
		})
	}

	for _, msg := range EvaluateExpectations(result, scenario.Expect, paths, runErr) {
		result.AddError(msg)
	}
	return result, nil
}
