package features

import (
	"cmp"
	"slices"
)

type labelKey struct{ module, procedure string }

// Labels maps line labels to dispatch states per (module, procedure).
// Registering a name twice overwrites the earlier entry.
type Labels struct {
	scope
	tables map[labelKey]map[string]int
}

func NewLabels() *Labels {
	return &Labels{tables: make(map[labelKey]map[string]int)}
}

func (l *Labels) table() map[string]int {
	k := labelKey{fold(l.module), fold(l.procedure)}
	t := l.tables[k]
	if t == nil {
		t = make(map[string]int)
		l.tables[k] = t
	}
	return t
}

// Register assigns state to a label in the current procedure.
func (l *Labels) Register(name string, state int) {
	l.table()[fold(name)] = state
}

// Lookup returns the state of a label in the current procedure.
func (l *Labels) Lookup(name string) (int, bool) {
	state, ok := l.tables[labelKey{fold(l.module), fold(l.procedure)}][fold(name)]
	return state, ok
}

// Names returns the current procedure's labels ordered by state.
func (l *Labels) Names() []string {
	t := l.tables[labelKey{fold(l.module), fold(l.procedure)}]
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		return cmp.Or(cmp.Compare(t[a], t[b]), cmp.Compare(a, b))
	})
	return names
}

func (l *Labels) forget(module string) {
	mod := fold(module)
	for k := range l.tables {
		if k.module == mod {
			delete(l.tables, k)
		}
	}
}
