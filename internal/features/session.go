// Package features implements the processors for legacy constructs whose
// semantics go beyond syntax: static locals, optional and ParamArray
// parameters, WithEvents bindings, Friend scope, property triads,
// user-defined types, enums, constants and line labels.
//
// Every processor is owned by a Session. Operations act on the
// (module, procedure) context last passed to SetContext; changing the
// context never clears state, which is what lets static locals persist
// across calls. Independent sessions share nothing.
package features

import (
	"errors"
	"strings"
)

// ErrNoContext is returned by context-scoped operations before SetContext
// has been called.
var ErrNoContext = errors.New("no module context set")

// scope is the (module, procedure) context embedded in every processor.
type scope struct {
	module    string
	procedure string
	set       bool
}

// SetContext selects the module and procedure later operations apply to.
// An empty procedure means module level.
func (s *scope) SetContext(module, procedure string) {
	s.module, s.procedure, s.set = module, procedure, true
}

// Context returns the current module and procedure.
func (s *scope) Context() (module, procedure string) {
	return s.module, s.procedure
}

func (s *scope) require() error {
	if !s.set {
		return ErrNoContext
	}
	return nil
}

// fold normalizes an identifier; the legacy language is case-insensitive.
func fold(name string) string {
	return strings.ToLower(name)
}

// Session owns one instance of every processor. A compiler holds a single
// Session for its lifetime so static slots and Friend registrations
// survive repeated compilations.
type Session struct {
	// Project prefixes module names to form Friend scopes.
	Project string

	Statics     *StaticVariables
	Optionals   *OptionalParameters
	ParamArrays *ParamArrays
	Events      *WithEvents
	Friends     *FriendScope
	Properties  *Properties
	Types       *UDTs
	Enums       *Enums
	Consts      *Constants
	Labels      *Labels
}

// NewSession returns a session with empty processors.
func NewSession(project string) *Session {
	s := &Session{Project: project}
	s.init()
	return s
}

func (s *Session) init() {
	s.Statics = NewStaticVariables()
	s.Optionals = &OptionalParameters{}
	s.ParamArrays = &ParamArrays{}
	s.Events = NewWithEvents()
	s.Friends = NewFriendScope()
	s.Properties = newProperties(s)
	s.Labels = NewLabels()
	s.Consts = newConstants(s)
	s.Enums = newEnums(s)
	s.Types = newUDTs(s)
}

// SetContext switches every processor to the given module and procedure.
func (s *Session) SetContext(module, procedure string) {
	for _, p := range s.processors() {
		p.SetContext(module, procedure)
	}
}

// Scope returns the Friend scope name of a module: Project.Module, or the
// bare module name when the session has no project.
func (s *Session) Scope(module string) string {
	if s.Project == "" {
		return module
	}
	return s.Project + "." + module
}

// BeginModule discards the module-level definitions a previous compilation
// of module registered (types, enums, constants, properties, event
// bindings and labels). Static slots and Friend registrations are kept.
func (s *Session) BeginModule(module string) {
	s.Types.forget(module)
	s.Enums.forget(module)
	s.Consts.forget(module)
	s.Properties.forget(module)
	s.Events.forget(module)
	s.Labels.forget(module)
	s.SetContext(module, "")
}

// Clear empties every processor, including static slots.
func (s *Session) Clear() {
	s.init()
}

type contextSetter interface {
	SetContext(module, procedure string)
}

func (s *Session) processors() []contextSetter {
	return []contextSetter{
		s.Statics, s.Optionals, s.ParamArrays, s.Events, s.Friends,
		s.Properties, s.Types, s.Enums, s.Consts, s.Labels,
	}
}
