package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/discrete/internal/ir"
)

// LoadValue builds the CUE value at path. A directory is loaded as the
// package instance rooted there; a file is loaded on its own.
func LoadValue(path string) (cue.Value, error) {
	info, err := os.Stat(path)
	if err != nil {
		return cue.Value{}, err
	}

	cfg := &load.Config{Dir: path}
	args := []string{"."}
	if !info.IsDir() {
		cfg.Dir = filepath.Dir(path)
		args = []string{filepath.Base(path)}
	}

	instances := load.Instances(args, cfg)
	if len(instances) == 0 {
		return cue.Value{}, fmt.Errorf("no CUE instances loaded from %s", path)
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, formatCUEError(inst.Err)
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return value, nil
}

// LoadModels loads path, compiles its models and validates each one.
// Validation failures are returned as a ValidationErrors.
func LoadModels(path string) ([]ir.ModelSpec, error) {
	value, err := LoadValue(path)
	if err != nil {
		return nil, err
	}
	specs, err := CompileModels(value)
	if err != nil {
		return nil, err
	}
	var verrs ValidationErrors
	for i := range specs {
		verrs = append(verrs, Validate(&specs[i])...)
	}
	if len(verrs) > 0 {
		return nil, verrs
	}
	return specs, nil
}

// FindModel returns the model named name. An empty name selects the only
// model of a single-model file.
func FindModel(specs []ir.ModelSpec, name string) (ir.ModelSpec, error) {
	if name == "" {
		if len(specs) == 1 {
			return specs[0], nil
		}
		return ir.ModelSpec{}, fmt.Errorf("%d models loaded; a model name is required", len(specs))
	}
	for _, s := range specs {
		if s.Name == name {
			return s, nil
		}
	}
	return ir.ModelSpec{}, fmt.Errorf("model %q not found", name)
}
