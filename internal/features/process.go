package features

import (
	"strings"

	"github.com/barun-bash/vbport/internal/ast"
)

// Problem is a semantic issue found while registering a module.
type Problem struct {
	Pos     ast.Pos
	Code    string
	Message string
}

// Problem codes.
const (
	CodeEnum         = "W310"
	CodeType         = "W311"
	CodeConst        = "W312"
	CodeParams       = "W320"
	CodePropertyDup  = "W321"
	CodePropertyType = "W322"
	CodeStatic       = "W323"
)

// Process registers everything mod declares with the session's processors:
// constants, enums, types, WithEvents bindings and their handlers, Friend
// members, property triads, static locals and labels. Definitions left
// by an earlier compilation of the same module are replaced; static slots
// that already exist keep their values.
//
// Processing never stops at a problem; every problem found is returned.
func (s *Session) Process(mod *ast.Module) []Problem {
	var problems []Problem
	report := func(pos ast.Pos, code string, err error) {
		problems = append(problems, Problem{Pos: pos, Code: code, Message: err.Error()})
	}

	s.BeginModule(mod.Name)

	for _, d := range mod.Declarations {
		if c, ok := d.(*ast.ConstDecl); ok {
			s.Consts.Define(c)
		}
	}
	for _, d := range mod.Declarations {
		switch d := d.(type) {
		case *ast.EnumDecl:
			if _, err := s.Enums.Define(d); err != nil {
				report(d.Pos, CodeEnum, err)
			}
		case *ast.VarDecl:
			if d.WithEvents {
				s.Events.Bind(d.Name, d.Type.Name)
			}
		}
	}
	for _, d := range mod.Declarations {
		switch d := d.(type) {
		case *ast.TypeDecl:
			if _, err := s.Types.Define(d); err != nil {
				report(d.Pos, CodeType, err)
			}
		case *ast.ConstDecl:
			if _, err := s.Consts.Value(d.Name); err != nil {
				report(d.Pos, CodeConst, err)
			}
		}
	}

	scope := s.Scope(mod.Name)
	for _, proc := range mod.Procedures {
		if proc.Visibility == ast.VisibilityFriend {
			s.Friends.Register(scope, proc.Name)
		}
		s.connectHandler(proc)
	}

	for _, proc := range mod.Procedures {
		s.SetContext(mod.Name, proc.Name)
		problems = append(problems, s.processProcedure(proc)...)
	}
	s.SetContext(mod.Name, "")
	return problems
}

func (s *Session) processProcedure(proc *ast.Procedure) []Problem {
	var problems []Problem
	report := func(pos ast.Pos, code string, err error) {
		problems = append(problems, Problem{Pos: pos, Code: code, Message: err.Error()})
	}

	if err := ValidateParams(proc.Params); err != nil {
		report(proc.Pos, CodeParams, err)
	}
	if proc.Kind.IsProperty() {
		valueType := proc.ReturnType.Name
		if proc.Kind != ast.ProcPropertyGet && len(proc.Params) > 0 {
			valueType = proc.Params[len(proc.Params)-1].Type.Name
		}
		if _, err := s.Properties.Define(proc.Name, proc.Kind, valueType); err != nil {
			report(proc.Pos, CodePropertyDup, err)
		}
		if err := s.Properties.ValidateProcedure(proc); err != nil {
			report(proc.Pos, CodePropertyType, err)
		}
	}

	state := 0
	ast.InspectStmts(proc.Body, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.DimStmt:
			if !n.Static && !proc.Static {
				return true
			}
			for _, v := range n.Vars {
				if _, err := s.Statics.Declare(v.Name, v.Type.Name); err != nil {
					report(v.Pos, CodeStatic, err)
				}
			}
		case *ast.ConstStmt:
			for _, c := range n.Consts {
				s.Consts.Define(c)
			}
		case *ast.LabelStmt:
			state++
			s.Labels.Register(n.Name, state)
		}
		return true
	})
	return problems
}

// connectHandler wires a procedure named <variable>_<Event> to the
// WithEvents variable it handles.
func (s *Session) connectHandler(proc *ast.Procedure) {
	if proc.Kind != ast.ProcSub {
		return
	}
	for _, b := range s.Events.Bindings() {
		prefix := b.Variable + "_"
		if len(proc.Name) > len(prefix) && strings.EqualFold(proc.Name[:len(prefix)], prefix) {
			s.Events.ConnectProcedure(b.Variable, proc.Name[len(prefix):], proc.Name)
			return
		}
	}
}
