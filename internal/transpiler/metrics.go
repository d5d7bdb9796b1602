package transpiler

import (
	"fmt"
	"strings"
	"time"
)

// Phase names, in pipeline order.
const (
	PhaseLex      = "lex"
	PhaseParse    = "parse"
	PhaseProcess  = "process"
	PhaseAnalyze  = "analyze"
	PhaseOptimize = "optimize"
	PhaseGenerate = "generate"
)

var phases = []string{PhaseLex, PhaseParse, PhaseProcess, PhaseAnalyze, PhaseOptimize, PhaseGenerate}

// Metrics describes one compilation. Phases that did not run have no
// entry in Durations.
type Metrics struct {
	Durations map[string]time.Duration `json:"durations"`
	Total     time.Duration            `json:"total"`

	Tokens       int `json:"tokens"`
	Declarations int `json:"declarations"`
	Procedures   int `json:"procedures"`
	Statements   int `json:"statements"`

	OptimizerIterations int  `json:"optimizerIterations"`
	OptimizerChanges    int  `json:"optimizerChanges"`
	OptimizerConverged  bool `json:"optimizerConverged"`

	OutputLines    int `json:"outputLines"`
	OutputBytes    int `json:"outputBytes"`
	SourceMappings int `json:"sourceMappings"`
}

func newMetrics() Metrics {
	return Metrics{Durations: make(map[string]time.Duration)}
}

// time runs fn and records its duration under phase.
func (m *Metrics) time(phase string, fn func()) {
	start := time.Now()
	fn()
	m.Durations[phase] += time.Since(start)
}

// String renders the metrics as a short report, one phase per line.
func (m Metrics) String() string {
	var b strings.Builder
	for _, p := range phases {
		d, ok := m.Durations[p]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%-9s %v\n", p, d.Round(time.Microsecond))
	}
	fmt.Fprintf(&b, "%-9s %v\n", "total", m.Total.Round(time.Microsecond))
	fmt.Fprintf(&b, "tokens %d, declarations %d, procedures %d, statements %d\n",
		m.Tokens, m.Declarations, m.Procedures, m.Statements)
	fmt.Fprintf(&b, "optimizer: %d iteration(s), %d change(s)", m.OptimizerIterations, m.OptimizerChanges)
	if m.OptimizerConverged {
		b.WriteString(", converged")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "output: %d line(s), %d byte(s), %d mapping(s)", m.OutputLines, m.OutputBytes, m.SourceMappings)
	return b.String()
}
