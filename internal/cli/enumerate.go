package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/discrete/internal/compiler"
	"github.com/roach88/discrete/internal/engine"
	"github.com/roach88/discrete/internal/ir"
	"github.com/roach88/discrete/internal/model"
	"github.com/roach88/discrete/internal/num"
	"github.com/roach88/discrete/internal/replay"
	"github.com/roach88/discrete/internal/store"
	"github.com/roach88/discrete/internal/trace"
)

// EnumerateOptions holds flags for the enumerate command.
type EnumerateOptions struct {
	*RootOptions
	Model      string
	Graph      string
	Order      string
	Seed       uint64
	MaxPaths   int
	MaxSupport int
	PruneEmpty bool
	Marginals  []string
	Posteriors []string
	Database   string
	Metrics    bool
}

// EnumeratedPath is one emitted path in command output.
type EnumeratedPath struct {
	Seq        int64       `json:"seq"`
	ID         string      `json:"id"`
	Assignment ir.IRObject `json:"assignment"`
	Weight     []float64   `json:"weight"`
}

// MarginalValue is the mass of one value in a marginal table.
type MarginalValue struct {
	Value ir.IRValue `json:"value"`
	Prob  float64    `json:"prob"`
}

// MarginalResult is a marginal or posterior table in command output.
type MarginalResult struct {
	Site      string          `json:"site"`
	Kind      string          `json:"kind"` // "marginal" | "posterior"
	Values    []MarginalValue `json:"values"`
	Unreached float64         `json:"unreached,omitempty"`
}

// EnumerateResult holds the outcome of one enumeration.
type EnumerateResult struct {
	RunID     string           `json:"run_id,omitempty"`
	Model     string           `json:"model"`
	ModelHash string           `json:"model_hash"`
	Paths     []EnumeratedPath `json:"paths"`
	Stats     engine.Stats     `json:"stats"`
	Marginals []MarginalResult `json:"marginals,omitempty"`
	Error     *CLIError        `json:"error,omitempty"`
}

// NewEnumerateCommand creates the enumerate command.
func NewEnumerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EnumerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "enumerate <path>",
		Short: "Enumerate every discrete path of a model",
		Long: `Enumerate every path through the discrete choice points of a model.

Each path is printed with its discrete assignment and its weight, the
probability of its discrete choices. Observed sites are not part of the
weight; use --posterior to condition on them.

Exit codes:
  0 - Enumeration completed
  1 - Enumeration failed (quota exceeded, empty support, model error)
  2 - Command error (invalid model, database error, etc.)

Examples:
  discrete enumerate ./models --model weather
  discrete enumerate ./models/coins.cue --order fifo --marginal a
  discrete enumerate ./models --model weather --posterior rain --db runs.db
  discrete enumerate ./models --model big --max-paths 1000 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnumerate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Model, "model", "m", "", "model name (optional if the path holds one model)")
	cmd.Flags().StringVar(&opts.Graph, "graph", "flat", "trace graph type (flat|dense)")
	cmd.Flags().StringVar(&opts.Order, "order", "lifo", "worklist order (lifo|fifo)")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "seed for sites that are sampled rather than enumerated")
	cmd.Flags().IntVar(&opts.MaxPaths, "max-paths", 0, "fail after this many paths (0 = unlimited)")
	cmd.Flags().IntVar(&opts.MaxSupport, "max-support", 0, "fail at a choice point with more values (0 = default limit of 16777216)")
	cmd.Flags().BoolVar(&opts.PruneEmpty, "prune-empty", false, "drop paths at empty supports instead of failing")
	cmd.Flags().StringSliceVar(&opts.Marginals, "marginal", nil, "print the marginal of a site (repeatable)")
	cmd.Flags().StringSliceVar(&opts.Posteriors, "posterior", nil, "print the posterior of a site given observed sites (repeatable)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "persist the run to this SQLite database")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print enumeration metrics to stderr")

	return cmd
}

func runEnumerate(opts *EnumerateOptions, path string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

	spec, prog, err := loadProgram(formatter, path, opts.Model)
	if err != nil {
		return err
	}
	graph, err := trace.ParseGraphType(opts.Graph)
	if err != nil {
		return NewExitError(ExitCommandError, err.Error())
	}
	order, err := engine.ParseOrder(opts.Order)
	if err != nil {
		return NewExitError(ExitCommandError, err.Error())
	}

	var st *store.Store
	var run store.Run
	if opts.Database != "" {
		st, err = store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()

		run, err = st.CreateRun(ctx, store.Run{
			ID:        engine.UUIDv7Generator{}.Generate(),
			ModelName: spec.Name,
			ModelHash: prog.Hash,
			GraphType: string(graph),
			Order:     order.String(),
			Seed:      opts.Seed,
			MaxPaths:  opts.MaxPaths,
		})
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create run", err)
		}
		formatter.VerboseLog("Created run %s", run.ID)
	}

	var registry *prometheus.Registry
	engineOpts := []engine.Option{
		engine.WithLogger(opts.Logger()),
		engine.WithOrder(order),
		engine.WithSeed(opts.Seed),
		engine.WithMaxPaths(opts.MaxPaths),
		engine.WithMaxSupport(opts.MaxSupport),
		engine.WithModelHash(prog.Hash),
	}
	if opts.PruneEmpty {
		engineOpts = append(engineOpts, engine.WithEmptySupport(replay.EmptySupportPrune))
	}
	if opts.Metrics {
		registry = prometheus.NewRegistry()
		engineOpts = append(engineOpts, engine.WithMetrics(engine.NewMetrics(registry)))
	}

	result := EnumerateResult{
		RunID:     run.ID,
		Model:     spec.Name,
		ModelHash: prog.Hash,
		Paths:     []EnumeratedPath{},
	}
	if !formatter.IsJSON() {
		fmt.Fprintf(formatter.Writer, "Model %s (%s)\n", spec.Name, shortHash(prog.Hash))
	}

	it := engine.New(engineOpts...).IterDiscreteTraces(ctx, graph, prog.Model())
	defer it.Close()

	// Paths already emitted and the run's final status are recorded even
	// after ctx is cancelled.
	storeCtx := context.WithoutCancel(ctx)

	var paths []engine.Path
	for it.Next() {
		p := it.Path()
		paths = append(paths, p)
		ep := EnumeratedPath{
			Seq:        p.Seq,
			ID:         p.ID,
			Assignment: p.Assignment(),
			Weight:     num.Floats(p.Weight),
		}
		result.Paths = append(result.Paths, ep)
		if !formatter.IsJSON() {
			fmt.Fprintf(formatter.Writer, "  [%d] %s weight=%s\n", ep.Seq, formatAssignment(ep.Assignment), num.Format(p.Weight, 6))
		}

		if st != nil {
			rec, err := store.NewPath(run.ID, p.ID, p.Seq, p.Weight, p.Trace, ep.Assignment)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to encode path", err)
			}
			if _, err := st.WritePath(storeCtx, rec); err != nil {
				return WrapExitError(ExitCommandError, "failed to write path", err)
			}
		}
	}
	runErr := it.Err()
	result.Stats = it.Stats()

	if st != nil {
		if err := st.FinishRun(storeCtx, run.ID, int64(len(paths)), runErr); err != nil {
			return WrapExitError(ExitCommandError, "failed to finish run", err)
		}
	}

	if runErr == nil {
		tables, err := computeTables(paths, opts.Marginals, opts.Posteriors)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to compute marginals", err)
		}
		result.Marginals = tables
	} else {
		result.Error = &CLIError{Code: engine.ErrorCode(runErr), Message: runErr.Error()}
	}

	if registry != nil {
		if err := writeMetrics(formatter.GetErrWriter(), registry); err != nil {
			return err
		}
	}

	if formatter.IsJSON() {
		if err := outputEnumerateJSON(formatter, result); err != nil {
			return err
		}
	} else {
		outputEnumerateText(formatter.Writer, result)
	}

	if runErr != nil {
		return WrapExitError(ExitFailure, "enumeration failed", runErr)
	}
	return nil
}

// commandContext returns the command's context, or Background when the
// command was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// loadProgram loads the models at path, selects name and builds it.
// Errors are reported through formatter and returned as ExitErrors.
func loadProgram(formatter *OutputFormatter, path, name string) (ir.ModelSpec, *model.Program, error) {
	loadResult, loadErrors := LoadModels(path, LoadModeCollectAll)
	if len(loadErrors) > 0 {
		if loadResult == nil {
			code, message := parseCompileError(loadErrors[0])
			return ir.ModelSpec{}, nil, outputCompileError(formatter, code, message, nil)
		}
		return ir.ModelSpec{}, nil, outputCompileErrors(formatter, loadErrors)
	}

	spec, err := compiler.FindModel(loadResult.Models, name)
	if err != nil {
		return ir.ModelSpec{}, nil, outputCompileError(formatter, ErrCodeNotFound, err.Error(), nil)
	}
	prog, err := model.Build(spec)
	if err != nil {
		return ir.ModelSpec{}, nil, outputCompileError(formatter, ErrCodeBuildFailed, err.Error(), nil)
	}
	return spec, prog, nil
}

// computeTables computes the requested marginal and posterior tables.
func computeTables(paths []engine.Path, marginals, posteriors []string) ([]MarginalResult, error) {
	var out []MarginalResult
	add := func(kind string, sites []string, compute func([]engine.Path, string) (*engine.MarginalTable, error)) error {
		for _, site := range sites {
			table, err := compute(paths, site)
			if err != nil {
				return err
			}
			mr := MarginalResult{Site: site, Kind: kind, Unreached: table.Unreached, Values: []MarginalValue{}}
			for _, e := range table.Entries {
				mr.Values = append(mr.Values, MarginalValue{Value: e.Value, Prob: e.Prob})
			}
			out = append(out, mr)
		}
		return nil
	}
	if err := add("marginal", marginals, engine.Marginal); err != nil {
		return nil, err
	}
	if err := add("posterior", posteriors, engine.Posterior); err != nil {
		return nil, err
	}
	return out, nil
}

func outputEnumerateJSON(formatter *OutputFormatter, result EnumerateResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
		RunID:  result.RunID,
	}
	if result.Error != nil {
		response.Status = "error"
		response.Error = result.Error
	}
	return formatter.Encode(response)
}

func outputEnumerateText(w io.Writer, result EnumerateResult) {
	var total float64
	scalar := true
	for _, p := range result.Paths {
		if len(p.Weight) != 1 {
			scalar = false
			continue
		}
		total += p.Weight[0]
	}

	fmt.Fprintln(w)
	if result.Error != nil {
		fmt.Fprintf(w, "✗ Enumeration failed after %d path(s)\n", len(result.Paths))
		fmt.Fprintf(w, "  %s: %s\n", result.Error.Code, result.Error.Message)
	} else if scalar {
		fmt.Fprintf(w, "✓ %d path(s), total weight %.6f\n", len(result.Paths), total)
	} else {
		fmt.Fprintf(w, "✓ %d path(s)\n", len(result.Paths))
	}
	fmt.Fprintf(w, "  %d replay(s), %d escape(s)\n", result.Stats.Replays, result.Stats.Escapes)
	if result.RunID != "" {
		fmt.Fprintf(w, "  run: %s\n", result.RunID)
	}

	for _, m := range result.Marginals {
		fmt.Fprintf(w, "\n%s of %s:\n", capitalize(m.Kind), m.Site)
		for _, v := range m.Values {
			fmt.Fprintf(w, "  %-12s %.6f\n", ir.Format(v.Value), v.Prob)
		}
		if m.Unreached > 0 {
			fmt.Fprintf(w, "  %-12s %.6f\n", "<unreached>", m.Unreached)
		}
	}
}

// formatAssignment renders an assignment as "{a=1 b="X"}".
func formatAssignment(a ir.IRObject) string {
	parts := make([]string, 0, len(a))
	for _, k := range a.SortedKeys() {
		parts = append(parts, k+"="+ir.Format(a[k]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// shortHash abbreviates a content hash for display.
func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
