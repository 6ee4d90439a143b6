package expr

import (
	"math"
	"strings"

	"github.com/mprmesh/mprmesh/ring"
	"github.com/mprmesh/mprmesh/vm"
)

// Options describes the signal shapes an expression compiles against,
// per spec.md §4.C "n_ins, per-input type and vector length, output
// type and vector length".
type Options struct {
	NIns      int
	InTypes   []ring.Vtype
	InVecLen  []int
	OutType   ring.Vtype
	OutVecLen int
}

type parser struct {
	lex  *lexer
	cur  token
	opts Options

	varSlots map[string]int
	varNames []string

	inputHist  []int
	outputHist int

	managesAlive bool
	managesMuted bool

	sawHistX, sawHistY bool
	activeReduce       []vm.LoopKind

	inDepth  int
	accStack []string
}

func newParser(src string, opts Options) *parser {
	return &parser{
		lex:       newLexer(src),
		opts:      opts,
		varSlots:  map[string]int{},
		inputHist: make([]int, max(opts.NIns, 1)),
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.cur = t
	return nil
}

func (p *parser) expect(k tokKind, msg string) error {
	if p.cur.kind != k {
		return errAt(p.cur.offset, msg)
	}
	return nil
}

// Compile parses src against opts and returns a *vm.Program ready to
// evaluate, or a *CompileError describing the first failure.
func Compile(src string, opts Options) (*vm.Program, error) {
	p := newParser(src, opts)
	if err := p.advance(); err != nil {
		return nil, err
	}

	var stmts []*vm.Instr
	for {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
		if p.cur.kind == tokSemi {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if p.cur.kind != tokEOF {
		return nil, errAt(p.cur.offset, "unmatched brackets/parens")
	}

	return p.finish(stmts), nil
}

// finish reorders history initializers to the front (spec.md §4.C) and
// fills in the program's descriptor fields.
func (p *parser) finish(stmts []*vm.Instr) *vm.Program {
	var inits, rest []*vm.Instr
	for _, s := range stmts {
		if s.Dest.Sel == vm.SelOutput && s.Dest.Hist != 0 {
			inits = append(inits, s)
		} else {
			rest = append(rest, s)
		}
	}
	prog := &vm.Program{
		Stmts:        append(inits, rest...),
		NIns:         p.opts.NIns,
		InputHist:    p.inputHist,
		OutputHist:   p.outputHist,
		NVars:        len(p.varNames),
		ManagesAlive: p.managesAlive,
		ManagesMuted: p.managesMuted,
		StackDepth:   estimateDepth(append(append([]*vm.Instr{}, inits...), rest...)),
	}
	return prog
}

func estimateDepth(stmts []*vm.Instr) int {
	max := 0
	for _, s := range stmts {
		if d := depthOf(s); d > max {
			max = d
		}
	}
	return max
}

func depthOf(n *vm.Instr) int {
	if n == nil || len(n.Args) == 0 {
		if n != nil && n.Body != nil {
			return 1 + depthOf(n.Body)
		}
		return 1
	}
	m := 0
	for _, a := range n.Args {
		if d := depthOf(a); d > m {
			m = d
		}
	}
	return m + 1
}

// ---- statements ----

func (p *parser) parseStatement() (*vm.Instr, error) {
	if p.cur.kind != tokIdent {
		return nil, errAt(p.cur.offset, "unknown token")
	}
	name := p.cur.text
	offset := p.cur.offset

	var dest vm.VarRef
	assignKind := vm.AssignOrdinary

	switch {
	case name == "x":
		return nil, errAt(offset, "assignment to x")
	case name == "y":
		if err := p.advance(); err != nil {
			return nil, err
		}
		hist := 0
		if p.cur.kind == tokLBrace {
			h, err := p.parseBracedInt(tokLBrace, tokRBrace)
			if err != nil {
				return nil, err
			}
			hist = h
		}
		if hist > 0 || hist < -vm.MaxHistSize {
			return nil, errAt(offset, "history index out of range")
		}
		dest = vm.VarRef{Sel: vm.SelOutput, Hist: float64(hist)}
		if hist != 0 {
			assignKind = vm.AssignConstInit
		}
		if -hist > p.outputHist {
			p.outputHist = -hist
		}
	case name == "alive":
		if err := p.advance(); err != nil {
			return nil, err
		}
		dest = vm.VarRef{Sel: vm.SelAlive}
		p.managesAlive = true
	case name == "muted":
		if err := p.advance(); err != nil {
			return nil, err
		}
		dest = vm.VarRef{Sel: vm.SelMuted}
		p.managesMuted = true
	default:
		if err := p.advance(); err != nil {
			return nil, err
		}
		slot, err := p.varSlot(name, offset)
		if err != nil {
			return nil, err
		}
		dest = vm.VarRef{Sel: vm.SelVar, Index: slot}
	}

	if err := p.expect(tokAssign, "unknown token"); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if folded, ok := vm.FoldConst(val); ok {
		val = &folded
	}

	return &vm.Instr{Kind: vm.KAssign, AssignKind: assignKind, Dest: dest, Args: []*vm.Instr{val}}, nil
}

func (p *parser) varSlot(name string, offset int) (int, error) {
	if slot, ok := p.varSlots[name]; ok {
		return slot, nil
	}
	if len(p.varNames) >= vm.MaxVars {
		return 0, errAt(offset, "maximum variable count exceeded")
	}
	slot := len(p.varNames)
	p.varNames = append(p.varNames, name)
	p.varSlots[name] = slot
	return slot, nil
}

// parseBracedInt consumes `open intLiteral close` and returns the int,
// with open already current.
func (p *parser) parseBracedInt(open, close tokKind) (int, error) {
	if err := p.advance(); err != nil { // consume open
		return 0, err
	}
	neg := false
	if p.cur.kind == tokOp && p.cur.text == "-" {
		neg = true
		if err := p.advance(); err != nil {
			return 0, err
		}
	}
	if p.cur.kind != tokNumber {
		return 0, errAt(p.cur.offset, "non-integer vector index at reduction entry")
	}
	v := int(p.cur.num)
	if neg {
		v = -v
	}
	if err := p.advance(); err != nil {
		return 0, err
	}
	if p.cur.kind != close {
		return 0, errAt(p.cur.offset, "unmatched brackets/parens")
	}
	return v, p.advance()
}

// ---- expressions: precedence-climbing over a fixed operator table ----

type opInfo struct {
	op   vm.Op
	prec int
}

var binOps = map[string]opInfo{
	"||": {vm.LogOr, 1}, "&&": {vm.LogAnd, 2},
	"|": {vm.Or, 3}, "^": {vm.Xor, 4}, "&": {vm.And, 5},
	"==": {vm.Eq, 6}, "!=": {vm.Neq, 6},
	"<": {vm.Lt, 7}, "<=": {vm.Lte, 7}, ">": {vm.Gt, 7}, ">=": {vm.Gte, 7},
	"<<": {vm.Shl, 8}, ">>": {vm.Shr, 8},
	"+": {vm.Add, 9}, "-": {vm.Sub, 9},
	"*": {vm.Mul, 10}, "/": {vm.Div, 10}, "%": {vm.Mod, 10},
}

func (p *parser) parseExpr() (*vm.Instr, error) { return p.parseTernary() }

func (p *parser) parseTernary() (*vm.Instr, error) {
	cond, err := p.parseBinary(0)
	if err != nil {
		return nil, err
	}
	if p.cur.kind == tokOp && p.cur.text == "?" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokColon, "unmatched brackets/parens"); err != nil {
			return nil, err
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		b, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		n := &vm.Instr{Kind: vm.KOp, Op: vm.Ternary, Args: []*vm.Instr{cond, a, b}}
		return promote3(n, cond, a, b), nil
	}
	return cond, nil
}

func (p *parser) parseBinary(minPrec int) (*vm.Instr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		if p.cur.kind != tokOp {
			break
		}
		info, ok := binOps[p.cur.text]
		if !ok || info.prec < minPrec {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseBinary(info.prec + 1)
		if err != nil {
			return nil, err
		}
		left = buildBinary(info.op, left, right)
	}
	return left, nil
}

func buildBinary(op vm.Op, a, b *vm.Instr) *vm.Instr {
	n := &vm.Instr{Kind: vm.KOp, Op: op, Args: []*vm.Instr{a, b}}
	if folded, ok := vm.FoldConst(n); ok {
		return &folded
	}
	return promote2(n, a, b)
}

// promote2/promote3 apply the i32<f32<f64 join and cast type onto a
// freshly-built node so the VM sees a uniform, already-promoted
// operand type at evaluation time (spec.md §4.C "Type promotion").
func promote2(n, a, b *vm.Instr) *vm.Instr {
	n.CastType = ring.Join(typeOf(a), typeOf(b))
	return n
}

func promote3(n, a, b, c *vm.Instr) *vm.Instr {
	n.CastType = ring.Join(typeOf(a), ring.Join(typeOf(b), typeOf(c)))
	return n
}

func typeOf(n *vm.Instr) ring.Vtype {
	switch n.Kind {
	case vm.KLit, vm.KVLit:
		return n.LitType
	case vm.KCast:
		return n.CastType
	case vm.KVar:
		if n.Ref.HasCast {
			return n.Ref.Cast
		}
		return ring.F64
	default:
		if n.CastType != 0 || n.Kind == vm.KOp {
			return n.CastType
		}
		return ring.F64
	}
}

func (p *parser) parseUnary() (*vm.Instr, error) {
	if p.cur.kind == tokOp && (p.cur.text == "-" || p.cur.text == "!" || p.cur.text == "~") {
		var op vm.Op
		switch p.cur.text {
		case "-":
			op = vm.Neg
		case "!":
			op = vm.Not
		case "~":
			op = vm.BitNot
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		n := &vm.Instr{Kind: vm.KUnary, Op: op, Args: []*vm.Instr{operand}}
		if folded, ok := vm.FoldConst(n); ok {
			return &folded, nil
		}
		n.CastType = typeOf(operand)
		return n, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (*vm.Instr, error) {
	n, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur.kind {
		case tokLBracket:
			idx, err := p.parseBracedInt(tokLBracket, tokRBracket)
			if err != nil {
				return nil, err
			}
			if n.Kind == vm.KVar {
				n.Ref.HasVec, n.Ref.Vec = true, float64(idx)
			}
		default:
			return n, nil
		}
	}
}

func (p *parser) parsePrimary() (*vm.Instr, error) {
	tok := p.cur
	switch tok.kind {
	case tokNumber:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &vm.Instr{Kind: vm.KLit, Lit: tok.num, LitType: litTypeOf(tok.num)}, nil
	case tokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, "unmatched brackets/parens"); err != nil {
			return nil, err
		}
		return e, p.advance()
	case tokIdent:
		return p.parseIdentPrimary()
	default:
		return nil, errAt(tok.offset, "unknown token")
	}
}

func litTypeOf(f float64) ring.Vtype {
	if f == math.Trunc(f) {
		return ring.I32
	}
	return ring.F64
}

func (p *parser) parseIdentPrimary() (*vm.Instr, error) {
	tok := p.cur
	name := tok.text
	lname := strings.ToLower(name)

	switch lname {
	case "pi":
		return p.advanceReturn(&vm.Instr{Kind: vm.KLit, Lit: math.Pi, LitType: ring.F64})
	case "e":
		return p.advanceReturn(&vm.Instr{Kind: vm.KLit, Lit: math.E, LitType: ring.F64})
	case "alive":
		return p.advanceReturn(&vm.Instr{Kind: vm.KVar, Ref: vm.VarRef{Sel: vm.SelAlive}})
	case "muted":
		return p.advanceReturn(&vm.Instr{Kind: vm.KVar, Ref: vm.VarRef{Sel: vm.SelMuted}})
	case "x", "y":
		return p.parseSignalRef(lname, tok.offset)
	case "history", "instance", "signal", "vector":
		return p.parseReductionHead(lname, true, tok.offset)
	case "reduce":
		return p.parseReduceCall(tok.offset)
	}

	if strings.HasPrefix(name, "t_") {
		base := strings.ToLower(name[2:])
		if base != "x" && base != "y" {
			return nil, errAt(tok.offset, "unknown token")
		}
		sel := vm.SelInput
		if base == "y" {
			sel = vm.SelOutput
		}
		return p.advanceReturn(&vm.Instr{Kind: vm.KTT, Ref: vm.VarRef{Sel: sel}})
	}

	if p.inDepth > 0 && name == "in" {
		return p.advanceReturn(&vm.Instr{Kind: vm.KVar, IsIterVar: true})
	}
	for _, acc := range p.accStack {
		if acc == name {
			return p.advanceReturn(&vm.Instr{Kind: vm.KVar, IsAccVar: true})
		}
	}

	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.kind == tokLParen {
		return p.parseCall(name, tok.offset)
	}
	slot, err := p.varSlot(name, tok.offset)
	if err != nil {
		return nil, err
	}
	return &vm.Instr{Kind: vm.KVar, Ref: vm.VarRef{Sel: vm.SelVar, Index: slot}, CastType: ring.F64}, nil
}

func (p *parser) advanceReturn(n *vm.Instr) (*vm.Instr, error) {
	return n, p.advance()
}

func (p *parser) parseSignalRef(name string, offset int) (*vm.Instr, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	sigIdx := 0
	if p.cur.kind == tokDollar {
		if name != "x" {
			return nil, errAt(offset, "signal-index on a non-x token")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.kind != tokNumber {
			return nil, errAt(p.cur.offset, "unknown token")
		}
		sigIdx = int(p.cur.num)
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	sel := vm.SelInput
	if name == "y" {
		sel = vm.SelOutput
	}
	if sel == vm.SelInput && sigIdx >= max(p.opts.NIns, 1) {
		return nil, errAt(offset, "signal index out of range")
	}
	ref := vm.VarRef{Sel: sel, Index: sigIdx}
	if p.cur.kind == tokLBrace {
		h, err := p.parseBracedInt(tokLBrace, tokRBrace)
		if err != nil {
			return nil, err
		}
		if h > 0 || h < -vm.MaxHistSize {
			return nil, errAt(offset, "history index out of range")
		}
		ref.Hist = float64(h)
	}
	if sel == vm.SelInput {
		if -int(ref.Hist) > p.inputHist[sigIdx] && sigIdx < len(p.inputHist) {
			p.inputHist[sigIdx] = -int(ref.Hist)
		}
	} else if -int(ref.Hist) > p.outputHist {
		p.outputHist = -int(ref.Hist)
	}
	t := ring.F64
	if sel == vm.SelInput && sigIdx < len(p.opts.InTypes) {
		t = p.opts.InTypes[sigIdx]
	} else if sel == vm.SelOutput {
		t = p.opts.OutType
	}
	ref.HasCast, ref.Cast = true, t
	return &vm.Instr{Kind: vm.KVar, Ref: ref, CastType: t}, nil
}

var vfnNames = map[string]vm.VFn{
	"sum": vm.VSum, "mean": vm.VMean, "min": vm.VMin, "max": vm.VMax,
	"center": vm.VCenter, "norm": vm.VNorm, "sort": vm.VSort, "median": vm.VMedian,
	"length": vm.VLength, "any": vm.VAny, "all": vm.VAll,
}

// parseReductionHead handles history(n)/instance()/signal()/vector()
// prefixes, desugaring `instance().x.mean()`-style chains into a
// single KReduce the way spec.md §4.C describes (requireVFn is false
// only when called as the `in` operand of reduce(...), which supplies
// its own fold via an accumulator instead).
func (p *parser) parseReductionHead(kind string, requireVFn bool, offset int) (*vm.Instr, error) {
	if err := p.advance(); err != nil { // consume keyword
		return nil, err
	}
	if err := p.expect(tokLParen, "unmatched brackets/parens"); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	n := 0
	if kind == "history" {
		if p.cur.kind != tokNumber {
			return nil, errAt(p.cur.offset, "arity mismatch")
		}
		n = int(p.cur.num)
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if err := p.expect(tokRParen, "unmatched brackets/parens"); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expect(tokDot, "reduction without any reference to an input slot"); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.kind != tokIdent || (p.cur.text != "x" && p.cur.text != "y") {
		return nil, errAt(p.cur.offset, "reduction without any reference to an input slot")
	}
	refName := p.cur.text
	if err := p.advance(); err != nil {
		return nil, err
	}
	sigIdx := 0
	if p.cur.kind == tokDollar {
		if refName != "x" {
			return nil, errAt(offset, "signal-index on a non-x token")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.kind != tokNumber {
			return nil, errAt(p.cur.offset, "non-integer vector index at reduction entry")
		}
		sigIdx = int(p.cur.num)
		if err := p.advance(); err != nil {
			return nil, err
		}
		if sigIdx >= max(p.opts.NIns, 1) {
			return nil, errAt(offset, "signal index out of range")
		}
	}

	var loopKind vm.LoopKind
	switch kind {
	case "history":
		loopKind = vm.LoopHistory
	case "instance":
		loopKind = vm.LoopInstance
	case "signal":
		loopKind = vm.LoopSignal
	case "vector":
		loopKind = vm.LoopVector
	}
	for _, k := range p.activeReduce {
		if k == loopKind {
			return nil, errAt(offset, "nested reductions of the same kind")
		}
	}
	if loopKind == vm.LoopHistory {
		if refName == "x" {
			p.sawHistX = true
		} else {
			p.sawHistY = true
		}
		if p.sawHistX && p.sawHistY {
			return nil, errAt(offset, "mixed history-reduce over both x and y")
		}
	}

	sel := vm.SelInput
	if refName == "y" {
		sel = vm.SelOutput
	}
	iterRef := vm.VarRef{Sel: sel, Index: sigIdx}

	if loopKind == vm.LoopHistory && n > 0 {
		depth := n - 1
		if sel == vm.SelInput && sigIdx < len(p.inputHist) {
			if depth > p.inputHist[sigIdx] {
				p.inputHist[sigIdx] = depth
			}
		} else if sel == vm.SelOutput && depth > p.outputHist {
			p.outputHist = depth
		}
	}

	reduceInstr := &vm.Instr{
		Kind:       vm.KReduce,
		ReduceKind: loopKind,
		IterRef:    iterRef,
		Body:       &vm.Instr{Kind: vm.KVar, IsIterVar: true},
	}
	if loopKind == vm.LoopHistory {
		reduceInstr.N = n
	}

	if !requireVFn {
		return reduceInstr, nil
	}

	if err := p.expect(tokDot, "reduction without any reference to an input slot"); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.kind != tokIdent {
		return nil, errAt(p.cur.offset, "unknown token")
	}
	vfnName := strings.ToLower(p.cur.text)
	if vfnName == "count" {
		if loopKind != vm.LoopInstance {
			return nil, errAt(p.cur.offset, "count() requires 'instance' prefix")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expect(tokLParen, "arity mismatch"); err != nil {
			return nil, err
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, "arity mismatch"); err != nil {
			return nil, err
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		// count() over a bare signal needs no per-instance walk: fold
		// straight to the instance count the reduce would have counted.
		return &vm.Instr{Kind: vm.KVarNumInst, Ref: iterRef}, nil
	}
	vfn, ok := vfnNames[vfnName]
	if !ok {
		return nil, errAt(p.cur.offset, "unknown token")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expect(tokLParen, "arity mismatch"); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expect(tokRParen, "arity mismatch"); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	reduceInstr.VFnKind = vfn
	reduceInstr.HasVFn = true
	reduceInstr.CastType = ring.F64
	return reduceInstr, nil
}

func (p *parser) parseReduceCall(offset int) (*vm.Instr, error) {
	if err := p.advance(); err != nil { // consume 'reduce'
		return nil, err
	}
	if err := p.expect(tokLParen, "unmatched brackets/parens"); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	if p.cur.kind != tokIdent {
		return nil, errAt(p.cur.offset, "reduction without any reference to an input slot")
	}
	kind := strings.ToLower(p.cur.text)
	if kind != "history" && kind != "instance" && kind != "signal" && kind != "vector" {
		return nil, errAt(p.cur.offset, "reduction without any reference to an input slot")
	}
	inNode, err := p.parseReductionHead(kind, false, p.cur.offset)
	if err != nil {
		return nil, err
	}

	if err := p.expect(tokComma, "arity mismatch"); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.kind != tokIdent {
		return nil, errAt(p.cur.offset, "unknown token")
	}
	accName := p.cur.text
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expect(tokArrow, "arity mismatch"); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	accSlot, err := p.varSlot(accName, offset)
	if err != nil {
		return nil, err
	}

	p.activeReduce = append(p.activeReduce, inNode.ReduceKind)
	p.inDepth++
	p.accStack = append(p.accStack, accName)
	body, err := p.parseExpr()
	p.accStack = p.accStack[:len(p.accStack)-1]
	p.inDepth--
	p.activeReduce = p.activeReduce[:len(p.activeReduce)-1]
	if err != nil {
		return nil, err
	}

	if err := p.expect(tokRParen, "unmatched brackets/parens"); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	inNode.HasAcc = true
	inNode.AccSlot = accSlot
	inNode.AccInit = &vm.Instr{Kind: vm.KLit, Lit: 0, LitType: ring.F64}
	inNode.Body = body
	return inNode, nil
}

// parseCall handles a plain `name(args...)` call against the scalar
// Fn and vector VFn tables; min/max are overloaded between the two
// depending on arity (2 scalar args vs. 1 vector argument to reduce).
func (p *parser) parseCall(name string, offset int) (*vm.Instr, error) {
	if err := p.advance(); err != nil { // consume '('
		return nil, err
	}
	var args []*vm.Instr
	if p.cur.kind != tokRParen {
		for {
			a, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if p.cur.kind == tokComma {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
	}
	if err := p.expect(tokRParen, "unmatched brackets/parens"); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	lname := strings.ToLower(name)
	if lname == "min" || lname == "max" {
		if len(args) == 1 {
			return vfnCall(vfnNames[lname], args, offset)
		}
		if len(args) == 2 {
			fn := vm.FnMin
			if lname == "max" {
				fn = vm.FnMax
			}
			return fnCall(fn, args, offset)
		}
		return nil, errAt(offset, "arity mismatch")
	}

	if e, ok := fnTable[lname]; ok {
		if len(args) != e.arity {
			return nil, errAt(offset, "arity mismatch")
		}
		return fnCall(e.fn, args, offset)
	}
	if e, ok := vfnTable[lname]; ok {
		if len(args) != e.arity {
			return nil, errAt(offset, "arity mismatch")
		}
		return vfnCall(e.vfn, args, offset)
	}
	return nil, errAt(offset, "unknown token")
}

var fnTable = map[string]struct {
	fn    vm.Fn
	arity int
}{
	"abs": {vm.FnAbs, 1}, "sqrt": {vm.FnSqrt, 1}, "floor": {vm.FnFloor, 1},
	"ceil": {vm.FnCeil, 1}, "round": {vm.FnRound, 1}, "sin": {vm.FnSin, 1},
	"cos": {vm.FnCos, 1}, "tan": {vm.FnTan, 1}, "atan2": {vm.FnAtan2, 2},
	"exp": {vm.FnExp, 1}, "log": {vm.FnLog, 1}, "log2": {vm.FnLog2, 1},
	"log10": {vm.FnLog10, 1}, "pow": {vm.FnPow, 2}, "sign": {vm.FnSign, 1},
}

var vfnTable = map[string]struct {
	vfn   vm.VFn
	arity int
}{
	"concat": {vm.VConcat, 2}, "dot": {vm.VDot, 2}, "angle": {vm.VAngle, 2},
}

func fnCall(fn vm.Fn, args []*vm.Instr, offset int) (*vm.Instr, error) {
	_ = offset
	n := &vm.Instr{Kind: vm.KFn, Fn: fn, Args: args}
	if folded, ok := vm.FoldConst(n); ok {
		return &folded, nil
	}
	return n, nil
}

func vfnCall(vfn vm.VFn, args []*vm.Instr, offset int) (*vm.Instr, error) {
	_ = offset
	n := &vm.Instr{Kind: vm.KVFn, VFn: vfn, Args: args}
	if folded, ok := vm.FoldConst(n); ok {
		return &folded, nil
	}
	return n, nil
}
