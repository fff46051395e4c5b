package cli

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/roach88/discrete/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Models int                        `json:"models"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <path>",
		Short: "Validate models without compiling them",
		Long: `Validate CUE model definitions.

Reports every structural and semantic problem (duplicate sites, dangling
references, bad parameters, missing table rows) with its field path.
Faster than compile for development feedback.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	// The loader is only used for its path and parse checks here: the
	// field-level errors come from validateAll.
	loadResult, loadErrors := LoadModels(path, LoadModeFailFast)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputValidateError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, path)

	count, validationErrors := validateAll(loadResult.CUEValue, formatter)
	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors)
	}

	return outputValidateSuccess(formatter, count)
}

// validateAll compiles and validates every model in the CUE value.
// It returns the number of models found and all errors.
func validateAll(value cue.Value, formatter *OutputFormatter) (int, []compiler.ValidationError) {
	var allErrors []compiler.ValidationError
	count := 0

	modelsVal := value.LookupPath(cue.ParsePath("model"))
	if modelsVal.Exists() {
		iter, err := modelsVal.Fields()
		if err == nil {
			for iter.Next() {
				count++
				name := iter.Label()
				formatter.VerboseLog("Validating model: %s", name)

				spec, compileErr := compiler.CompileModel(iter.Value())
				if compileErr != nil {
					var cErr *compiler.CompileError
					if errors.As(compileErr, &cErr) {
						allErrors = append(allErrors, compiler.ValidationError{
							Field:   "model." + name + "." + cErr.Field,
							Message: cErr.Message,
							Code:    MapFieldToErrorCode(cErr.Field),
							Line:    getLineFromCuePos(cErr.Pos),
						})
					} else {
						allErrors = append(allErrors, compiler.ValidationError{
							Field:   "model." + name,
							Message: compileErr.Error(),
							Code:    ErrCodeGeneric,
						})
					}
					continue
				}

				allErrors = append(allErrors, compiler.Validate(spec)...)
			}
		}
	}

	if count == 0 && len(allErrors) == 0 {
		allErrors = append(allErrors, compiler.ValidationError{
			Field:   "model",
			Message: "no models found",
			Code:    ErrCodeGeneric,
		})
	}

	return count, allErrors
}

// getLineFromCuePos extracts line number from a token.Pos.
func getLineFromCuePos(pos token.Pos) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, count int) error {
	if formatter.IsJSON() {
		return formatter.Success(ValidationResult{Valid: true, Models: count})
	}

	fmt.Fprintf(formatter.Writer, "✓ All %d model(s) valid\n", count)
	return nil
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.IsJSON() {
		response := CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:  false,
				Errors: errs,
			},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := formatter.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
