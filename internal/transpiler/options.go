package transpiler

import (
	"fmt"

	"github.com/barun-bash/vbport/internal/codegen"
	"github.com/barun-bash/vbport/internal/optimizer"
)

// Options controls one compilation. The zero value is not the default
// configuration; start from DefaultOptions.
type Options struct {
	UseStrictMode           bool           `json:"useStrictMode"`
	GenerateTypeAnnotations bool           `json:"generateTypeAnnotations"`
	EnableOptimizations     bool           `json:"enableOptimizations"`
	DeadCodeElimination     bool           `json:"deadCodeElimination"`
	ConstantFolding         bool           `json:"constantFolding"`
	InlineExpansion         bool           `json:"inlineExpansion"`
	LoopUnrolling           bool           `json:"loopUnrolling"`
	GenerateSourceMaps      bool           `json:"generateSourceMaps"`
	TargetRuntime           codegen.Target `json:"targetRuntime"`
	PreserveComments        bool           `json:"preserveComments"`
	MaxOptimizationPasses   int            `json:"maxOptimizationPasses"`
}

// DefaultOptions returns strict browser output with dead-code elimination
// and constant folding over at most three passes, and a source map.
func DefaultOptions() Options {
	return Options{
		UseStrictMode:         true,
		EnableOptimizations:   true,
		DeadCodeElimination:   true,
		ConstantFolding:       true,
		GenerateSourceMaps:    true,
		TargetRuntime:         codegen.TargetBrowser,
		MaxOptimizationPasses: 3,
	}
}

// Validate reports options that cannot be honoured.
func (o Options) Validate() error {
	if o.TargetRuntime != "" {
		if _, err := codegen.ParseTarget(string(o.TargetRuntime)); err != nil {
			return err
		}
	}
	if o.MaxOptimizationPasses < 0 {
		return fmt.Errorf("maxOptimizationPasses must not be negative, got %d", o.MaxOptimizationPasses)
	}
	return nil
}

func (o Options) codegen() codegen.Options {
	target, err := codegen.ParseTarget(string(o.TargetRuntime))
	if err != nil {
		target = codegen.TargetBrowser
	}
	return codegen.Options{
		UseStrict:        o.UseStrictMode,
		TypeAnnotations:  o.GenerateTypeAnnotations,
		PreserveComments: o.PreserveComments,
		Target:           target,
	}
}

func (o Options) optimizer() optimizer.Config {
	cfg := optimizer.DefaultConfig()
	cfg.DeadCode = o.DeadCodeElimination
	cfg.ConstantFolding = o.ConstantFolding
	cfg.Inline = o.InlineExpansion
	cfg.LoopUnrolling = o.LoopUnrolling
	cfg.MaxPasses = o.MaxOptimizationPasses
	return cfg
}
