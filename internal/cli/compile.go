package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/discrete/internal/dist"
	"github.com/roach88/discrete/internal/ir"
	"github.com/roach88/discrete/internal/model"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompiledModel summarizes one compiled model.
type CompiledModel struct {
	Name         string       `json:"name"`
	Purpose      string       `json:"purpose,omitempty"`
	Hash         string       `json:"hash"`
	Sites        int          `json:"sites"`
	ChoicePoints int          `json:"choice_points"`
	Observed     int          `json:"observed"`
	Spec         ir.ModelSpec `json:"spec"`
}

// CompilationResult holds the compiled models.
type CompilationResult struct {
	Models []CompiledModel `json:"models"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <path>",
		Short: "Compile CUE models to IR",
		Long: `Compile CUE model definitions to the model IR.

The compiler parses CUE files, validates every model and reports each
model's content hash and number of discrete choice points.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loadResult, loadErrors := LoadModels(path, LoadModeCollectAll)

	// Handle load errors (path not found, no files, etc.)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputCompileError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputCompileError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, path)
	for _, m := range loadResult.Models {
		formatter.VerboseLog("Compiled model: %s", m.Name)
	}

	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	result := &CompilationResult{Models: make([]CompiledModel, 0, len(loadResult.Models))}
	for _, spec := range loadResult.Models {
		compiled, err := summarizeModel(spec)
		if err != nil {
			return outputCompileError(formatter, ErrCodeBuildFailed, err.Error(), nil)
		}
		result.Models = append(result.Models, compiled)
	}

	if opts.Output != "" {
		if err := writeIRToFile(loadResult.Models, opts.Output); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// summarizeModel builds spec and counts its sites.
func summarizeModel(spec ir.ModelSpec) (CompiledModel, error) {
	prog, err := model.Build(spec)
	if err != nil {
		return CompiledModel{}, err
	}
	out := CompiledModel{
		Name:    spec.Name,
		Purpose: spec.Purpose,
		Hash:    prog.Hash,
		Sites:   len(spec.Sites),
		Spec:    spec,
	}
	for _, s := range spec.Sites {
		switch {
		case s.IsObserved():
			out.Observed++
		case s.Enumerate != "none" && enumerableSite(s):
			out.ChoicePoints++
		}
	}
	return out, nil
}

// enumerableSite reports whether the site's distribution (or any row of
// its table) has an enumerable support.
func enumerableSite(s ir.SiteSpec) bool {
	specs := make([]ir.DistSpec, 0, len(s.Table)+1)
	if s.Dist != nil {
		specs = append(specs, *s.Dist)
	}
	for _, row := range s.Table {
		specs = append(specs, row)
	}
	for _, ds := range specs {
		d, err := dist.FromSpec(ds)
		if err == nil && dist.IsEnumerable(d) {
			return true
		}
	}
	return false
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d model(s)\n\n", len(result.Models))
	for _, m := range result.Models {
		fmt.Fprintf(w, "  %s: %d site(s), %d choice point(s), %d observed\n",
			m.Name, m.Sites, m.ChoicePoints, m.Observed)
		fmt.Fprintf(w, "    hash: %s\n", m.Hash)
	}
	fmt.Fprintln(w)

	if outputFile != "" {
		fmt.Fprintf(w, "Wrote model IR to %s\n", outputFile)
	}

	return nil
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Compilation errors are command-level errors (exit code 2)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.IsJSON() {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseCompileError(err)
			cliErrors[i] = CLIError{
				Code:    code,
				Message: message,
			}
		}

		response := CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}
		if err := formatter.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseCompileError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// parseCompileError extracts error code and message from an error.
func parseCompileError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// writeIRToFile writes the compiled models to a file as indented JSON.
// Canonical JSON is reserved for hashing and cannot hold float parameters.
func writeIRToFile(models []ir.ModelSpec, filename string) error {
	data, err := json.MarshalIndent(models, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling IR: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
