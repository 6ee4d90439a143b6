package vm

import "github.com/mprmesh/mprmesh/ring"

// RingSel names which ring a VAR token reads/writes: an input signal's
// history (x / x$N), the output's history (y), or a user-declared
// variable's history (spec.md §4.C "user variables").
type RingSel int

const (
	SelInput RingSel = iota
	SelOutput
	SelVar
	SelAlive // reserved side-channel variable (spec.md §4.C)
	SelMuted // reserved side-channel variable (spec.md §4.C)
)

// VarRef addresses one VAR token's operand: spec.md §4.B
// "VAR (slot, hist_idx?, vec_idx?, sig_idx?)".
type VarRef struct {
	Sel     RingSel
	Index   int     // input slot index (n in x$n), or user-var slot
	Hist    float64 // history offset, 0 = most recent; fractional interpolates
	HasVec  bool
	Vec     float64 // vector index, fractional interpolates along the vector axis
	Cast    ring.Vtype
	HasCast bool
}

// Kind is an instruction's opcode (spec.md §4.B "closed token set").
type Kind int

const (
	KLit Kind = iota
	KVLit
	KVar
	KVarNumInst
	KTT
	KOp
	KUnary
	KFn
	KVFn
	KReduce
	KAssign
	KCast
)

// Instr is one node of a compiled expression tree. Representing the
// program as a tree of typed nodes (rather than the source's raw
// postfix token stream) is the tagged-variant re-expression named in
// spec.md §9's REDESIGN FLAGS; Eval below walks it exactly the way a
// postfix/stack VM would, operand-first.
type Instr struct {
	Kind Kind
	Args []*Instr // operands, evaluated left-to-right before this node

	Lit     float64
	VLit    []float64
	LitType ring.Vtype

	Ref VarRef

	// KVar only: when the node sits inside a KReduce's Body, one of
	// these marks it as reading the live per-iteration binding instead
	// of its own static Ref - IsIterVar for the element being walked
	// (history/instance/signal/vector dimension), IsAccVar for the
	// reduce(in, acc -> body) accumulator. An IsAccVar node always
	// reads the accumulator of the innermost enclosing reduce that has
	// one, so a nested body (disallowed for the *same* reduction kind,
	// per spec.md §4.C, but a vector reduce may still nest inside a
	// history reduce's body) cannot reach an outer accumulator.
	IsIterVar bool
	IsAccVar  bool

	Op  Op
	Fn  Fn
	VFn VFn

	CastType ring.Vtype

	// KReduce: spec.md §4.B "LOOP_START/LOOP_END kind" + "COPY_FROM" +
	// "the *reduce* higher-order form", concretized into a single
	// instruction that runs Body once per iteration instead of
	// back-branching bytecode (spec.md §9 REDESIGN FLAGS). N is the
	// history depth, fixed at compile time; instance, signal and vector
	// reductions leave it 0 and Eval takes the count (active instance
	// count, connected-signal count, or vector length) from the rings.
	// IterRef is the per-dimension VarRef template a Body KVar with
	// IsIterVar consults for its non-looped fields (signal slot, cast);
	// the loop supplies the looped field (Hist/Index/Vec) itself.
	//
	// With no accumulator, each iteration's Body result is collected
	// and folded with VFnKind. With HasAcc, AccInit runs once before
	// the loop to seed the accumulator and Body's own result becomes its
	// next value (the reduce(in, acc -> body) sugar); AccSlot records the
	// variable slot the parser gave the accumulator's name, which Eval
	// does not read. The reduction's
	// value is the accumulator's value after the final iteration.
	ReduceKind LoopKind
	N          int
	IterRef    VarRef
	Body       *Instr
	HasVFn     bool
	VFnKind    VFn
	HasAcc     bool
	AccSlot    int
	AccInit    *Instr

	// KAssign
	AssignKind AssignKind
	Dest       VarRef
}

// Program is a compiled expression: zero or more independent
// assignment statements, executed in sequence (spec.md §4.C "Multiple
// statements separated by ';' each produce an assignment"). History
// initializers (assignments to past y samples) are moved to the front
// by the compiler so they run once before the steady-state statements.
type Program struct {
	Stmts []*Instr // each is a KAssign root

	NIns         int
	InputHist    []int // required history depth per input (§4.C descriptor)
	OutputHist   int
	NVars        int
	StackDepth   int
	ManagesAlive bool
	ManagesMuted bool
}
