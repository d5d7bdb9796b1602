package features

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/barun-bash/vbport/internal/value"
)

// StaticKey identifies a static local. Components are case-folded.
type StaticKey struct {
	Module    string
	Procedure string
	Name      string
}

func (k StaticKey) String() string {
	return k.Module + "." + k.Procedure + "." + k.Name
}

// StaticVariableSlot is the persistent storage of one static local.
type StaticVariableSlot struct {
	Key   StaticKey
	Name  string // as first declared
	Type  string
	Value value.Value
}

// StaticVariables stores static locals for the whole session. A slot is
// created by the first Declare and never re-initialized.
type StaticVariables struct {
	scope
	slots map[StaticKey]*StaticVariableSlot
}

func NewStaticVariables() *StaticVariables {
	return &StaticVariables{slots: make(map[StaticKey]*StaticVariableSlot)}
}

func (s *StaticVariables) key(name string) StaticKey {
	return StaticKey{Module: fold(s.module), Procedure: fold(s.procedure), Name: fold(name)}
}

// Declare returns the slot's current value if it already exists. Otherwise
// it creates the slot with initial, or the zero value of typeName when no
// initial value is given.
func (s *StaticVariables) Declare(name, typeName string, initial ...value.Value) (value.Value, error) {
	if err := s.require(); err != nil {
		return nil, err
	}
	k := s.key(name)
	if slot, ok := s.slots[k]; ok {
		return slot.Value, nil
	}
	v := value.Zero(typeName)
	if len(initial) > 0 {
		v = initial[0]
	}
	s.slots[k] = &StaticVariableSlot{Key: k, Name: name, Type: typeName, Value: v}
	return v, nil
}

// Get returns the value of a declared static.
func (s *StaticVariables) Get(name string) (value.Value, error) {
	slot, err := s.slot(name)
	if err != nil {
		return nil, err
	}
	return slot.Value, nil
}

// Set stores a new value in a declared static.
func (s *StaticVariables) Set(name string, v value.Value) error {
	slot, err := s.slot(name)
	if err != nil {
		return err
	}
	slot.Value = v
	return nil
}

func (s *StaticVariables) slot(name string) (*StaticVariableSlot, error) {
	if err := s.require(); err != nil {
		return nil, err
	}
	slot, ok := s.slots[s.key(name)]
	if !ok {
		return nil, fmt.Errorf("static variable %q not declared in %s.%s", name, s.module, s.procedure)
	}
	return slot, nil
}

// Slots returns the slots of the current procedure ordered by name.
func (s *StaticVariables) Slots() []StaticVariableSlot {
	mod, proc := fold(s.module), fold(s.procedure)
	var out []StaticVariableSlot
	for k, slot := range s.slots {
		if k.Module == mod && k.Procedure == proc {
			out = append(out, *slot)
		}
	}
	slices.SortFunc(out, func(a, b StaticVariableSlot) int {
		return cmp.Compare(a.Key.Name, b.Key.Name)
	})
	return out
}

// Len returns the number of slots across all modules.
func (s *StaticVariables) Len() int {
	return len(s.slots)
}

// Clear destroys every slot.
func (s *StaticVariables) Clear() {
	clear(s.slots)
}
