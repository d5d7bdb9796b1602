package ast

// Stmt is a statement inside a procedure body.
//
// Implemented by *DimStmt, *ReDimStmt, *ConstStmt, *AssignStmt, *CallStmt,
// *IfStmt, *ForStmt, *ForEachStmt, *DoStmt, *WhileStmt, *SelectStmt,
// *WithStmt, *OnErrorStmt, *ResumeStmt, *GoToStmt, *GoSubStmt, *ReturnStmt,
// *ExitStmt, *LabelStmt, *RaiseEventStmt, *EndStmt, *CommentStmt and
// *UnsupportedStmt.
type Stmt interface {
	Node
	stmtNode()
}

// DimStmt declares locals: Dim, or Static when Static is set.
type DimStmt struct {
	Pos
	Static bool       `json:"static,omitempty"`
	Vars   []*VarDecl `json:"vars"`
}

// ReDimStmt resizes a dynamic array.
type ReDimStmt struct {
	Pos
	Preserve bool        `json:"preserve,omitempty"`
	Name     string      `json:"name"`
	Type     TypeRef     `json:"type"`
	Dims     []Dimension `json:"dims"`
}

// ConstStmt declares local constants.
type ConstStmt struct {
	Pos
	Consts []*ConstDecl `json:"consts"`
}

// AssignStmt is `[Let] target = value` or `Set target = value`.
type AssignStmt struct {
	Pos
	Target Expr `json:"target"`
	Value  Expr `json:"value"`
	Set    bool `json:"set,omitempty"`
}

// CallStmt invokes a procedure for its side effects:
// `Foo 1, 2`, `Call Foo(1, 2)` or `obj.Method arg`. A bare `Foo` is a
// call with no arguments.
type CallStmt struct {
	Pos
	Call *FunctionCall `json:"call"`
}

// IfStmt covers block and single-line If.
type IfStmt struct {
	Pos
	Cond    Expr            `json:"cond"`
	Then    []Stmt          `json:"then,omitempty"`
	ElseIfs []*ElseIfClause `json:"else_ifs,omitempty"`
	HasElse bool            `json:"has_else,omitempty"`
	Else    []Stmt          `json:"else,omitempty"`
}

// ElseIfClause is one ElseIf branch.
type ElseIfClause struct {
	Pos
	Cond Expr   `json:"cond"`
	Body []Stmt `json:"body,omitempty"`
}

// ForStmt is a counted loop. Step is nil when omitted (step 1).
type ForStmt struct {
	Pos
	Var  Expr   `json:"var"`
	From Expr   `json:"from"`
	To   Expr   `json:"to"`
	Step Expr   `json:"step,omitempty"`
	Body []Stmt `json:"body,omitempty"`
}

// ForEachStmt iterates a collection or array.
type ForEachStmt struct {
	Pos
	Var        Expr   `json:"var"`
	Collection Expr   `json:"collection"`
	Body       []Stmt `json:"body,omitempty"`
}

// DoStmt is Do ... Loop. Cond is nil for an unconditional loop. PostTest
// marks the `Loop While cond` form; Until negates the condition.
type DoStmt struct {
	Pos
	Cond     Expr   `json:"cond,omitempty"`
	Until    bool   `json:"until,omitempty"`
	PostTest bool   `json:"post_test,omitempty"`
	Body     []Stmt `json:"body,omitempty"`
}

// WhileStmt is While ... Wend.
type WhileStmt struct {
	Pos
	Cond Expr   `json:"cond"`
	Body []Stmt `json:"body,omitempty"`
}

// SelectStmt is Select Case.
type SelectStmt struct {
	Pos
	Subject Expr          `json:"subject"`
	Cases   []*CaseClause `json:"cases,omitempty"`
	HasElse bool          `json:"has_else,omitempty"`
	Else    []Stmt        `json:"else,omitempty"`
}

// CaseClause is one `Case a, b To c, Is > d` arm.
type CaseClause struct {
	Pos
	Conds []*CaseCond `json:"conds"`
	Body  []Stmt      `json:"body,omitempty"`
}

// CaseCondKind selects how a CaseCond matches the subject.
type CaseCondKind int

const (
	CaseValue CaseCondKind = iota // Case 5
	CaseRange                     // Case 1 To 10
	CaseIs                        // Case Is > 3
)

// CaseCond is one comma-separated condition of a Case arm.
type CaseCond struct {
	Kind  CaseCondKind   `json:"kind"`
	Value Expr           `json:"value"`
	Upper Expr           `json:"upper,omitempty"` // CaseRange
	Op    BinaryOperator `json:"op,omitempty"`    // CaseIs
}

// WithStmt is With obj ... End With.
type WithStmt struct {
	Pos
	Object Expr   `json:"object"`
	Body   []Stmt `json:"body,omitempty"`
}

// OnErrorMode selects the error handling installed by On Error.
type OnErrorMode int

const (
	OnErrorGoTo       OnErrorMode = iota // On Error GoTo label
	OnErrorResumeNext                    // On Error Resume Next
	OnErrorGoToZero                      // On Error GoTo 0
)

// OnErrorStmt installs or clears an error handler.
type OnErrorStmt struct {
	Pos
	Mode  OnErrorMode `json:"mode"`
	Label string      `json:"label,omitempty"`
}

// ResumeStmt leaves an error handler: Resume, Resume Next or Resume label.
type ResumeStmt struct {
	Pos
	Next  bool   `json:"next,omitempty"`
	Label string `json:"label,omitempty"`
}

// GoToStmt jumps to a label in the same procedure.
type GoToStmt struct {
	Pos
	Label string `json:"label"`
}

// GoSubStmt jumps to a label and returns on Return.
type GoSubStmt struct {
	Pos
	Label string `json:"label"`
}

// ReturnStmt returns from a GoSub.
type ReturnStmt struct {
	Pos
}

// ExitKind is the construct left by an Exit statement.
type ExitKind int

const (
	ExitSub ExitKind = iota
	ExitFunction
	ExitProperty
	ExitFor
	ExitDo
)

func (k ExitKind) String() string {
	switch k {
	case ExitSub:
		return "Sub"
	case ExitFunction:
		return "Function"
	case ExitProperty:
		return "Property"
	case ExitFor:
		return "For"
	default:
		return "Do"
	}
}

// ExitStmt leaves a procedure or loop early.
type ExitStmt struct {
	Pos
	Kind ExitKind `json:"kind"`
}

// LabelStmt marks a jump target.
type LabelStmt struct {
	Pos
	Name string `json:"name"`
}

// RaiseEventStmt fires an event declared in the module.
type RaiseEventStmt struct {
	Pos
	Name string `json:"name"`
	Args []*Arg `json:"args,omitempty"`
}

// EndStmt is a bare End, which terminates the program.
type EndStmt struct {
	Pos
}

// CommentStmt keeps a comment line for preserveComments output.
type CommentStmt struct {
	Pos
	Text string `json:"text"`
	Rem  bool   `json:"rem,omitempty"`
}

// UnsupportedStmt is a recognized legacy statement the generator has no
// translation for (file I/O and similar). Text is the reconstructed source.
type UnsupportedStmt struct {
	Pos
	Keyword string `json:"keyword"`
	Text    string `json:"text"`
}

func (*DimStmt) stmtNode()         {}
func (*ReDimStmt) stmtNode()       {}
func (*ConstStmt) stmtNode()       {}
func (*AssignStmt) stmtNode()      {}
func (*CallStmt) stmtNode()        {}
func (*IfStmt) stmtNode()          {}
func (*ForStmt) stmtNode()         {}
func (*ForEachStmt) stmtNode()     {}
func (*DoStmt) stmtNode()          {}
func (*WhileStmt) stmtNode()       {}
func (*SelectStmt) stmtNode()      {}
func (*WithStmt) stmtNode()        {}
func (*OnErrorStmt) stmtNode()     {}
func (*ResumeStmt) stmtNode()      {}
func (*GoToStmt) stmtNode()        {}
func (*GoSubStmt) stmtNode()       {}
func (*ReturnStmt) stmtNode()      {}
func (*ExitStmt) stmtNode()        {}
func (*LabelStmt) stmtNode()       {}
func (*RaiseEventStmt) stmtNode()  {}
func (*EndStmt) stmtNode()         {}
func (*CommentStmt) stmtNode()     {}
func (*UnsupportedStmt) stmtNode() {}
