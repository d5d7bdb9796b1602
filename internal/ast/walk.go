package ast

// Inspect traverses the tree rooted at n in depth-first order, calling fn
// for each node. If fn returns false the children of that node are skipped.
// *Module, *Procedure, declarations, statements and expressions are all
// visited; clause helpers (ElseIfClause, CaseClause) are visited as part
// of their parent.
func Inspect(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}

	switch n := n.(type) {
	case *Module:
		for _, a := range n.Attributes {
			Inspect(a, fn)
		}
		for _, d := range n.Declarations {
			Inspect(d, fn)
		}
		for _, p := range n.Procedures {
			Inspect(p, fn)
		}
		for _, c := range n.Comments {
			Inspect(c, fn)
		}
	case *Procedure:
		inspectParams(n.Params, fn)
		InspectStmts(n.Body, fn)
	case *Attribute:
		inspectExpr(n.Value, fn)

	// Declarations
	case *VarDecl:
		inspectDims(n.Dims, fn)
		inspectExpr(n.Init, fn)
	case *ConstDecl:
		inspectExpr(n.Value, fn)
	case *TypeDecl:
		for _, f := range n.Fields {
			inspectDims(f.Dims, fn)
		}
	case *EnumDecl:
		for _, m := range n.Members {
			inspectExpr(m.Value, fn)
		}
	case *DeclareDecl:
		inspectParams(n.Params, fn)
	case *EventDecl:
		inspectParams(n.Params, fn)

	// Statements
	case *DimStmt:
		for _, v := range n.Vars {
			Inspect(v, fn)
		}
	case *ReDimStmt:
		inspectDims(n.Dims, fn)
	case *ConstStmt:
		for _, c := range n.Consts {
			Inspect(c, fn)
		}
	case *AssignStmt:
		inspectExpr(n.Target, fn)
		inspectExpr(n.Value, fn)
	case *CallStmt:
		inspectExpr(n.Call, fn)
	case *IfStmt:
		inspectExpr(n.Cond, fn)
		InspectStmts(n.Then, fn)
		for _, ei := range n.ElseIfs {
			inspectExpr(ei.Cond, fn)
			InspectStmts(ei.Body, fn)
		}
		InspectStmts(n.Else, fn)
	case *ForStmt:
		inspectExpr(n.Var, fn)
		inspectExpr(n.From, fn)
		inspectExpr(n.To, fn)
		inspectExpr(n.Step, fn)
		InspectStmts(n.Body, fn)
	case *ForEachStmt:
		inspectExpr(n.Var, fn)
		inspectExpr(n.Collection, fn)
		InspectStmts(n.Body, fn)
	case *DoStmt:
		inspectExpr(n.Cond, fn)
		InspectStmts(n.Body, fn)
	case *WhileStmt:
		inspectExpr(n.Cond, fn)
		InspectStmts(n.Body, fn)
	case *SelectStmt:
		inspectExpr(n.Subject, fn)
		for _, c := range n.Cases {
			for _, cond := range c.Conds {
				inspectExpr(cond.Value, fn)
				inspectExpr(cond.Upper, fn)
			}
			InspectStmts(c.Body, fn)
		}
		InspectStmts(n.Else, fn)
	case *WithStmt:
		inspectExpr(n.Object, fn)
		InspectStmts(n.Body, fn)
	case *RaiseEventStmt:
		inspectArgs(n.Args, fn)
	case *OnErrorStmt, *ResumeStmt, *GoToStmt, *GoSubStmt, *ReturnStmt,
		*ExitStmt, *LabelStmt, *EndStmt, *CommentStmt, *UnsupportedStmt:
		// leaves

	// Expressions
	case *BinaryOp:
		inspectExpr(n.Left, fn)
		inspectExpr(n.Right, fn)
	case *UnaryOp:
		inspectExpr(n.Operand, fn)
	case *FunctionCall:
		inspectExpr(n.Callee, fn)
		inspectArgs(n.Args, fn)
	case *MemberAccess:
		inspectExpr(n.Object, fn)
	case *TypeOfExpr:
		inspectExpr(n.Operand, fn)
	case *Literal, *Identifier, *NewExpr, *MissingArg:
		// leaves
	}
}

// InspectStmts calls Inspect on each statement in order.
func InspectStmts(stmts []Stmt, fn func(Node) bool) {
	for _, s := range stmts {
		Inspect(s, fn)
	}
}

// inspectExpr guards against typed-nil interface values for optional
// expression fields.
func inspectExpr(e Expr, fn func(Node) bool) {
	if e != nil {
		Inspect(e, fn)
	}
}

func inspectArgs(args []*Arg, fn func(Node) bool) {
	for _, a := range args {
		inspectExpr(a.Value, fn)
	}
}

func inspectDims(dims []Dimension, fn func(Node) bool) {
	for _, d := range dims {
		inspectExpr(d.Lower, fn)
		inspectExpr(d.Upper, fn)
	}
}

func inspectParams(params []*Parameter, fn func(Node) bool) {
	for _, p := range params {
		inspectExpr(p.Default, fn)
	}
}
