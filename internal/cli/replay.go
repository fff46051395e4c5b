package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/discrete/internal/engine"
	"github.com/roach88/discrete/internal/store"
	"github.com/roach88/discrete/internal/trace"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database  string
	RunID     string
	Tolerance float64
}

// ReplayResult holds the outcome of re-enumerating a stored run.
type ReplayResult struct {
	RunID         string   `json:"run_id"`
	Model         string   `json:"model"`
	StoredPaths   int      `json:"stored_paths"`
	ReplayedPaths int      `json:"replayed_paths"`
	StoredError   string   `json:"stored_error,omitempty"`
	ReplayedError string   `json:"replayed_error,omitempty"`
	Mismatches    []string `json:"mismatches,omitempty"`
	Reproducible  bool     `json:"reproducible"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <path>",
		Short: "Re-enumerate a stored run and verify it is reproducible",
		Long: `Re-enumerate the model of a stored run with the run's settings and
verify that the same paths, with the same weights, are produced.

Paths are compared by content ID, so emission order does not matter.
The model at <path> must have the hash recorded with the run.

Exit codes:
  0 - The run is reproducible
  1 - Paths or weights differ, or the model changed
  2 - Command error (database not found, run not found, etc.)

Examples:
  discrete replay ./models --db ./runs.db --run 0190f3d6-...
  discrete replay ./models --db ./runs.db --run 0190f3d6-... --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID (required)")
	cmd.Flags().Float64Var(&opts.Tolerance, "tolerance", 1e-12, "allowed absolute weight difference")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("run")

	return cmd
}

func runReplay(opts *ReplayOptions, path string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.ReadRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrRunNotFound) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("run %s not found", opts.RunID), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("run %s not found", opts.RunID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	if run.Status == store.RunRunning {
		return NewExitError(ExitCommandError, fmt.Sprintf("run %s has not finished", run.ID))
	}

	stored, err := st.ReadPaths(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read paths", err)
	}

	_, prog, err := loadProgram(formatter, path, run.ModelName)
	if err != nil {
		return err
	}

	result := ReplayResult{
		RunID:       run.ID,
		Model:       run.ModelName,
		StoredPaths: len(stored),
		StoredError: run.Error,
	}
	if prog.Hash != run.ModelHash {
		result.Mismatches = []string{fmt.Sprintf("model hash %s, run recorded %s", shortHash(prog.Hash), shortHash(run.ModelHash))}
		return outputReplay(formatter, result)
	}

	graph, err := trace.ParseGraphType(run.GraphType)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid stored run", err)
	}
	order, err := engine.ParseOrder(run.Order)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid stored run", err)
	}

	formatter.VerboseLog("Replaying run %s (%s, %s, seed %d)", run.ID, graph, order, run.Seed)

	en := engine.New(
		engine.WithLogger(opts.Logger()),
		engine.WithOrder(order),
		engine.WithSeed(run.Seed),
		engine.WithMaxPaths(run.MaxPaths),
		engine.WithModelHash(prog.Hash),
	)
	paths, runErr := engine.Collect(en.IterDiscreteTraces(ctx, graph, prog.Model()))
	result.ReplayedPaths = len(paths)
	if runErr != nil {
		result.ReplayedError = runErr.Error()
	}

	want := make([]engine.PathSummary, len(stored))
	for i, p := range stored {
		want[i] = engine.PathSummary{ID: p.ID, Weight: p.Weights()}
	}
	for _, m := range engine.CompareRuns(want, engine.Summarize(paths), opts.Tolerance) {
		result.Mismatches = append(result.Mismatches, m.String())
	}
	if (run.Status == store.RunFailed) != (runErr != nil) {
		result.Mismatches = append(result.Mismatches,
			fmt.Sprintf("stored run %s, replay error: %v", run.Status, runErr))
	}

	return outputReplay(formatter, result)
}

// outputReplay writes result and returns an ExitFailure error when the run
// did not reproduce.
func outputReplay(formatter *OutputFormatter, result ReplayResult) error {
	result.Reproducible = len(result.Mismatches) == 0

	if formatter.IsJSON() {
		response := CLIResponse{
			Status: "ok",
			Data:   result,
			RunID:  result.RunID,
		}
		if !result.Reproducible {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    "E_NOT_REPRODUCIBLE",
				Message: "replay produced different paths",
			}
		}
		if err := formatter.Encode(response); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		fmt.Fprintf(w, "Replay of run %s (model %s)\n", result.RunID, result.Model)
		fmt.Fprintf(w, "  stored:   %d path(s)\n", result.StoredPaths)
		fmt.Fprintf(w, "  replayed: %d path(s)\n", result.ReplayedPaths)
		for _, m := range result.Mismatches {
			fmt.Fprintf(w, "  ✗ %s\n", m)
		}
		fmt.Fprintln(w)
		if result.Reproducible {
			fmt.Fprintln(w, "✓ Run reproduced")
		} else {
			fmt.Fprintln(w, "✗ Run did not reproduce")
		}
	}

	if !result.Reproducible {
		// Reproducibility failure = exit code 1
		return NewExitError(ExitFailure, "replay produced different paths")
	}
	return nil
}
