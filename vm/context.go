package vm

import "github.com/mprmesh/mprmesh/ring"

// Context is one evaluation's bindings: the input/output/variable
// rings a compiled Program reads and writes, plus the reserved
// 'alive'/'muted' side-channel variables (spec.md §4.C).
type Context struct {
	Inputs []*ring.Ring // indexed by input slot, x$0.. first is plain x
	Output *ring.Ring
	Vars   []*ring.Ring // user-declared variables, one ring each so they keep their own history

	Inst     int   // instance index being evaluated
	WallTime int64 // current sample's arrival time, the TT token's default

	Alive bool
	Muted bool

	outTime     int64
	wroteOutput bool
	aliveStmt   int // index of last statement that wrote 'alive', -1 if none
	outStmt     int // index of last statement that wrote the output, -1 if none
	iters       []iterFrame
}

func NewContext(inputs []*ring.Ring, output *ring.Ring, vars []*ring.Ring) *Context {
	return &Context{Inputs: inputs, Output: output, Vars: vars, Alive: true}
}
