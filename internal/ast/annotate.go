package ast

import "fmt"

// ProcedureInfo is the read-only annotation exposed for each procedure to
// an external profiler.
type ProcedureInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Line       int    `json:"line"`
	EndLine    int    `json:"end_line"`
	Statements int    `json:"statements"`
	Complexity int    `json:"complexity"`
}

// ProcedureID returns a stable identifier for p within m, for example
// "Module1.Total" or "Module1.Name[Let]". It depends only on names and
// kind, so it survives edits that move the procedure.
func (m *Module) ProcedureID(p *Procedure) string {
	id := m.Name + "." + p.Name
	switch p.Kind {
	case ProcPropertyGet:
		id += "[Get]"
	case ProcPropertyLet:
		id += "[Let]"
	case ProcPropertySet:
		id += "[Set]"
	}
	return id
}

// Annotate returns one ProcedureInfo per procedure in declaration order.
func (m *Module) Annotate() []ProcedureInfo {
	infos := make([]ProcedureInfo, 0, len(m.Procedures))
	for _, p := range m.Procedures {
		infos = append(infos, ProcedureInfo{
			ID:         m.ProcedureID(p),
			Name:       p.Name,
			Kind:       p.Kind.String(),
			Line:       p.Line,
			EndLine:    p.EndLine,
			Statements: CountStmts(p.Body),
			Complexity: p.Complexity(),
		})
	}
	return infos
}

// Complexity is the cyclomatic complexity of the procedure body: one plus
// the number of decision points (conditional branches, loops, Case arms,
// And/Or short paths and error handler jumps).
func (p *Procedure) Complexity() int {
	n := 1
	InspectStmts(p.Body, func(node Node) bool {
		switch node := node.(type) {
		case *IfStmt:
			n += 1 + len(node.ElseIfs)
		case *ForStmt, *ForEachStmt, *DoStmt, *WhileStmt:
			n++
		case *SelectStmt:
			n += len(node.Cases)
		case *OnErrorStmt:
			if node.Mode == OnErrorGoTo {
				n++
			}
		case *BinaryOp:
			if node.Op == OpAnd || node.Op == OpOr {
				n++
			}
		}
		return true
	})
	return n
}

// CountStmts counts statements, including nested ones.
func CountStmts(stmts []Stmt) int {
	n := 0
	InspectStmts(stmts, func(node Node) bool {
		if _, ok := node.(Stmt); ok {
			n++
		}
		return true
	})
	return n
}

func (i ProcedureInfo) String() string {
	return fmt.Sprintf("%s (%s, line %d) complexity=%d statements=%d",
		i.ID, i.Kind, i.Line, i.Complexity, i.Statements)
}
