// Package optimizer rewrites a parsed module into an equivalent, smaller
// one. Every pass is pure: it returns a new tree that shares unchanged
// subtrees with its input and never modifies the input.
package optimizer

import "github.com/barun-bash/vbport/internal/ast"

// Pass is one rewrite over a module. Apply reports whether it changed
// anything; when it did not, it must return the module it was given.
type Pass interface {
	Name() string
	Apply(mod *ast.Module) (*ast.Module, bool)
}

// Config selects the passes and bounds the fixpoint loop.
type Config struct {
	DeadCode        bool
	ConstantFolding bool
	Inline          bool
	LoopUnrolling   bool

	// MaxPasses bounds the number of full iterations over the pass list.
	MaxPasses int

	// InlineMaxStmts is the largest procedure body that is inlined.
	InlineMaxStmts int
	// UnrollMaxTrips is the largest trip count of an unrolled loop.
	UnrollMaxTrips int
	// UnrollMaxStmts bounds trip count times body size.
	UnrollMaxStmts int
}

// DefaultConfig enables dead-code elimination and constant folding with
// three iterations, matching the transpiler's defaults.
func DefaultConfig() Config {
	return Config{
		DeadCode:        true,
		ConstantFolding: true,
		MaxPasses:       3,
		InlineMaxStmts:  5,
		UnrollMaxTrips:  8,
		UnrollMaxStmts:  32,
	}
}

// Stats describes one Optimize call.
type Stats struct {
	// Iterations is the number of full iterations over the pass list.
	Iterations int
	// Converged is true when the last iteration changed nothing.
	Converged bool
	// Changes counts, per pass name, the iterations in which it changed
	// the module.
	Changes map[string]int
}

// Total returns the number of pass applications that changed the module.
func (s Stats) Total() int {
	n := 0
	for _, c := range s.Changes {
		n += c
	}
	return n
}

// Optimizer runs a fixed list of passes to a bounded fixpoint.
type Optimizer struct {
	cfg    Config
	passes []Pass
}

// New builds an optimizer for cfg. Passes run in the order constant
// folding, dead-code elimination, inlining, loop unrolling, so that a
// folded condition can be pruned in the same iteration.
func New(cfg Config) *Optimizer {
	def := DefaultConfig()
	if cfg.InlineMaxStmts <= 0 {
		cfg.InlineMaxStmts = def.InlineMaxStmts
	}
	if cfg.UnrollMaxTrips <= 0 {
		cfg.UnrollMaxTrips = def.UnrollMaxTrips
	}
	if cfg.UnrollMaxStmts <= 0 {
		cfg.UnrollMaxStmts = def.UnrollMaxStmts
	}

	o := &Optimizer{cfg: cfg}
	if cfg.ConstantFolding {
		o.passes = append(o.passes, ConstantFolding{})
	}
	if cfg.DeadCode {
		o.passes = append(o.passes, DeadCode{})
	}
	if cfg.Inline {
		o.passes = append(o.passes, Inliner{MaxStmts: cfg.InlineMaxStmts})
	}
	if cfg.LoopUnrolling {
		o.passes = append(o.passes, LoopUnroller{MaxTrips: cfg.UnrollMaxTrips, MaxStmts: cfg.UnrollMaxStmts})
	}
	return o
}

// Passes returns the enabled passes in execution order.
func (o *Optimizer) Passes() []Pass {
	return o.passes
}

// Optimize runs every enabled pass in order, repeating the whole list
// until an iteration changes nothing or MaxPasses iterations have run.
// mod is never modified.
func (o *Optimizer) Optimize(mod *ast.Module) (*ast.Module, Stats) {
	stats := Stats{Changes: make(map[string]int)}
	if len(o.passes) == 0 {
		stats.Converged = true
		return mod, stats
	}
	for stats.Iterations < o.cfg.MaxPasses {
		stats.Iterations++
		changed := false
		for _, p := range o.passes {
			next, ok := p.Apply(mod)
			if !ok {
				continue
			}
			mod = next
			changed = true
			stats.Changes[p.Name()]++
		}
		if !changed {
			stats.Converged = true
			break
		}
	}
	return mod, stats
}
