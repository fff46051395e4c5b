package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/roach88/discrete/internal/compiler"
	"github.com/roach88/discrete/internal/ir"
)

// LoadMode controls how errors are handled during model loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the models loaded from a file or directory.
type LoadResult struct {
	Models    []ir.ModelSpec
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files found
}

// LoadError represents an error that occurred during model loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadModels loads, compiles and validates the CUE models at path, which
// may be a single .cue file or a package directory.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
// Models that fail compilation or validation are left out of the result.
func LoadModels(path string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("model path not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing model path: %v", err)}}
	}

	fileCount := 1
	if info.IsDir() {
		cueFiles, err := FindCUEFiles(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
		}
		if len(cueFiles) == 0 {
			return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}}
		}
		fileCount = len(cueFiles)
	} else if filepath.Ext(path) != ".cue" {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("not a CUE file: %s", path)}}
	}

	value, err := compiler.LoadValue(path)
	if err != nil {
		loadErr := &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", err)}
		var compileErr *compiler.CompileError
		if errors.As(err, &compileErr) {
			loadErr.Message = compileErr.Message
			loadErr.Pos = compileErr.Pos
		}
		return nil, []error{loadErr}
	}

	result := &LoadResult{
		CUEValue:  value,
		FileCount: fileCount,
	}

	var errs []error
	modelsVal := value.LookupPath(cue.ParsePath("model"))
	if modelsVal.Exists() {
		iter, iterErr := modelsVal.Fields()
		if iterErr != nil {
			return result, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating models: %v", iterErr)}}
		}
		for iter.Next() {
			spec, compileErr := compiler.CompileModel(iter.Value())
			if compileErr != nil {
				errs = append(errs, convertCompileError(compileErr, "model."+iter.Label()))
				if mode == LoadModeFailFast {
					return result, errs
				}
				continue
			}

			verrs := compiler.Validate(spec)
			for _, ve := range verrs {
				errs = append(errs, &LoadError{Code: ve.Code, Message: fmt.Sprintf("%s: %s", ve.Field, ve.Message)})
				if mode == LoadModeFailFast {
					return result, errs
				}
			}
			if len(verrs) == 0 {
				result.Models = append(result.Models, *spec)
			}
		}
	}

	if len(result.Models) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no models found"})
	}

	return result, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", context, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants - unified across all CLI commands.
// Validation codes (E2xx) are defined by the compiler package.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // Model could not be built
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeBadFilter   = "E008" // Unparseable or invalid --where filter

	// Model structure errors
	ErrCodeModelSites    = "E101" // Missing or empty sites list
	ErrCodeSiteName      = "E102" // Site without a name
	ErrCodeInvalidWhen   = "E103" // Invalid when clause
	ErrCodeInvalidDist   = "E104" // Missing, unknown or ambiguous distribution kind
	ErrCodeDistParameter = "E105" // Missing or mistyped distribution parameter
	ErrCodeNotConcrete   = "E106" // Observed value is not concrete
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "sites":
		return ErrCodeModelSites
	case "name":
		return ErrCodeSiteName
	case "when", "when.site", "when.in":
		return ErrCodeInvalidWhen
	case "dist":
		return ErrCodeInvalidDist
	case "values", "probs", "p", "low", "high", "rate", "loc", "scale":
		return ErrCodeDistParameter
	case "value":
		return ErrCodeNotConcrete
	default:
		return ErrCodeGeneric
	}
}
