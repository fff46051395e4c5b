package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/discrete/internal/ir"
	"github.com/roach88/discrete/internal/queryir"
	"github.com/roach88/discrete/internal/store"
)

// StoreOptions holds flags shared by commands that read a database.
type StoreOptions struct {
	*RootOptions
	Database string
	RunID    string
	Where    string
}

// ShowResult holds a stored run and its paths.
type ShowResult struct {
	Run    store.Run    `json:"run"`
	Filter string       `json:"filter,omitempty"`
	Paths  []store.Path `json:"paths"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored enumeration runs",
		Long: `List the enumeration runs stored in a database, oldest first.

Examples:
  discrete runs --db ./runs.db
  discrete runs --db ./runs.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a stored run and its paths",
		Long: `Show one stored enumeration run with every path in emission order.
With --verbose, the sites of each path are listed too.

--where keeps only the paths whose sites match a filter:
  site = value            the site took value (strings may be quoted)
  site in (v1, v2)        the site took one of the values
  unreached(site)         the path never visited the site
  expr AND expr           both hold

Examples:
  discrete show --db ./runs.db --run 0190f3d6-...
  discrete show --db ./runs.db --run 0190f3d6-... --where 'rain = 1 AND sprinkler = "on"'
  discrete show --db ./runs.db --run 0190f3d6-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID (required)")
	cmd.Flags().StringVar(&opts.Where, "where", "", "only show paths whose sites match this filter")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("run")

	return cmd
}

// parseWhere parses and validates a --where filter. An empty filter is nil.
func parseWhere(expr string) (queryir.Predicate, error) {
	pred, err := queryir.Parse(expr)
	if err != nil {
		return nil, err
	}
	if errs := queryir.ValidatePredicate(pred); len(errs) > 0 {
		return nil, errs[0]
	}
	return pred, nil
}

// openExistingStore opens path, refusing to create a new database.
func openExistingStore(path string) (*store.Store, error) {
	if err := requireFile(path); err != nil {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// requireFile fails unless path is an existing regular file.
func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}

func runRuns(opts *StoreOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if formatter.IsJSON() {
		return formatter.Success(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs found in database.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(formatter.Writer, "%s  %-10s %-9s %d path(s)  %s/%s\n",
			r.ID, r.ModelName, r.Status, r.PathCount, r.GraphType, r.Order)
		if r.Error != "" {
			fmt.Fprintf(formatter.Writer, "  error: %s\n", r.Error)
		}
	}
	return nil
}

func runShow(opts *StoreOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

	filter, err := parseWhere(opts.Where)
	if err != nil {
		_ = formatter.Error(ErrCodeBadFilter, fmt.Sprintf("invalid --where filter: %v", err), nil)
		return WrapExitError(ExitCommandError, "invalid --where filter", err)
	}

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
	paths, err := st.QueryPaths(ctx, queryir.Select{RunID: run.ID, Filter: filter})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read paths", err)
	}

	if formatter.IsJSON() {
		return formatter.Success(ShowResult{Run: run, Filter: opts.Where, Paths: paths})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Run %s\n", run.ID)
	fmt.Fprintf(w, "  model:  %s (%s)\n", run.ModelName, shortHash(run.ModelHash))
	fmt.Fprintf(w, "  status: %s\n", run.Status)
	fmt.Fprintf(w, "  graph:  %s, order: %s, seed: %d\n", run.GraphType, run.Order, run.Seed)
	if run.Error != "" {
		fmt.Fprintf(w, "  error:  %s\n", run.Error)
	}
	if opts.Where != "" {
		fmt.Fprintf(w, "  where:  %s (%d of %d path(s))\n", opts.Where, len(paths), run.PathCount)
	}
	fmt.Fprintln(w)
	for _, p := range paths {
		fmt.Fprintf(w, "  [%d] %s weight=%s\n", p.Seq, formatAssignment(p.Assignment), formatWeightList(p.Weights()))
		if !opts.Verbose {
			continue
		}
		for _, s := range p.Sites {
			marker := ""
			if s.IsObserved {
				marker = " (observed)"
			}
			fmt.Fprintf(w, "      %d %s %s=%s%s\n", s.Seq, s.Type, s.Name, ir.Format(s.Value), marker)
		}
	}
	return nil
}

// formatWeightList renders a weight as "0.250000" or "[0.25 0.75]".
func formatWeightList(ws []float64) string {
	if len(ws) == 1 {
		return fmt.Sprintf("%.6f", ws[0])
	}
	return fmt.Sprintf("%.6g", ws)
}
