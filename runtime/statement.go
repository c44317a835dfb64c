package mruntime

// Statement is one executable statement. The set of statement types is
// closed; the interpreter dispatches on it with a single type switch.
type Statement interface {
	isStatement()
}

// Block is a statement list. Breakable blocks stop as soon as a loop-control
// flag is raised by one of their children.
type Block struct {
	Statements []Statement
	Breakable  bool
}

// Program is the lowered form of a whole program.
type Program struct {
	Begin []Statement
	Main  []Statement
	End   []Statement
}

// Redirect sends a statement's output to a file instead of the stream.
type Redirect struct {
	Target Evaluator
	Append bool
}

type VarArgKind uint8

const (
	VarFullRecord VarArgKind = iota
	VarFieldName
	VarComputedField
	VarOosvarPath
)

// VarArg is one target of a multi-target statement such as unset or emitf.
type VarArg struct {
	Kind VarArgKind
	Name string
	Expr Evaluator
	Path []Evaluator
}

type SrecAssign struct {
	Name string
	RHS  Evaluator
}

type IndirectSrecAssign struct {
	Name Evaluator
	RHS  Evaluator
}

type OosvarAssign struct {
	Path []Evaluator
	RHS  Evaluator
}

// OosvarCopy is @dst = @src where the right-hand side may be a whole submap.
type OosvarCopy struct {
	Dst []Evaluator
	Src []Evaluator
}

type OosvarFromFullSrec struct {
	Path []Evaluator
	Mode InferMode
}

type FullSrecFromOosvar struct {
	Path []Evaluator
}

type Unset struct {
	Targets []VarArg
}

type UnsetAll struct{}

// CondBlock is a pattern-action block: the body runs when Cond is true.
type CondBlock struct {
	Cond Evaluator
	Body Block
}

// IfItem is one arm of an if chain; Cond is nil for else.
type IfItem struct {
	Cond Evaluator
	Body Block
}

type IfChain struct {
	Items []IfItem
}

type While struct {
	Cond Evaluator
	Body Block
}

type DoWhile struct {
	Body Block
	Cond Evaluator
}

type ForSrec struct {
	KeyName   string
	ValueName string
	Mode      InferMode
	Body      Block
	frame     *ScopeFrame
}

type ForOosvar struct {
	KeyNames  []string
	ValueName string
	Path      []Evaluator
	Body      Block
	frame     *ScopeFrame
}

type Break struct{}

type Continue struct{}

// Emitf emits one record made of the named, non-indexed oosvars.
type Emitf struct {
	Targets  []VarArg
	Redirect *Redirect
}

// Emit flattens one oosvar subtree, or every oosvar when All is set.
type Emit struct {
	Path     []Evaluator
	All      bool
	Names    []Evaluator
	Prefixed bool
	Redirect *Redirect
}

type EmitLashed struct {
	Paths    [][]Evaluator
	Names    []Evaluator
	Prefixed bool
	Redirect *Redirect
}

type Print struct {
	Value    Evaluator
	Stderr   bool
	Newline  bool
	Redirect *Redirect
}

type Dump struct {
	Stderr   bool
	Redirect *Redirect
}

type Tee struct {
	Redirect Redirect
}

type Filter struct {
	Cond Evaluator
}

type BareBoolean struct {
	Expr Evaluator
}

func (*SrecAssign) isStatement()         {}
func (*IndirectSrecAssign) isStatement() {}
func (*OosvarAssign) isStatement()       {}
func (*OosvarCopy) isStatement()         {}
func (*OosvarFromFullSrec) isStatement() {}
func (*FullSrecFromOosvar) isStatement() {}
func (*Unset) isStatement()              {}
func (*UnsetAll) isStatement()           {}
func (*CondBlock) isStatement()          {}
func (*IfChain) isStatement()            {}
func (*While) isStatement()              {}
func (*DoWhile) isStatement()            {}
func (*ForSrec) isStatement()            {}
func (*ForOosvar) isStatement()          {}
func (*Break) isStatement()              {}
func (*Continue) isStatement()           {}
func (*Emitf) isStatement()              {}
func (*Emit) isStatement()               {}
func (*EmitLashed) isStatement()         {}
func (*Print) isStatement()              {}
func (*Dump) isStatement()               {}
func (*Tee) isStatement()                {}
func (*Filter) isStatement()             {}
func (*BareBoolean) isStatement()        {}
