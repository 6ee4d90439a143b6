// Grounded in the teacher's postfix-evaluation shape nowhere in
// particular - this is a direct, idiomatic rendering of the stack
// machine spec.md §4.B describes, with Instr.Args standing in for the
// explicit operand stack a bytecode interpreter would maintain.
package vm

import (
	"errors"

	"github.com/mprmesh/mprmesh/ring"
)

// errDivZero is the sentinel for spec.md §4.B's integer divide-by-zero
// rule: the current assignment is abandoned (its destination keeps its
// prior value) and evaluation resumes at the next statement, rather
// than failing the whole Eval call.
var errDivZero = errors.New("vm: integer divide by zero")

// iterFrame is the live binding a KReduce installs around its Body
// while it runs one iteration, consulted by any KVar node in Body
// marked IsIterVar or IsAccVar.
type iterFrame struct {
	ref    VarRef // IterRef with the looped field filled in for this iteration
	acc    ring.Vector
	hasAcc bool
}

func (c *Context) pushIter(f iterFrame) { c.iters = append(c.iters, f) }
func (c *Context) popIter()             { c.iters = c.iters[:len(c.iters)-1] }
func (c *Context) topIter() *iterFrame  { return &c.iters[len(c.iters)-1] }

// Eval runs prog's statements in order against ctx, returning the
// bitmask describing what happened to the output and the instance's
// liveness (spec.md §4.B).
func Eval(prog *Program, ctx *Context) (Status, error) {
	ctx.outTime = ctx.WallTime
	ctx.wroteOutput = false
	ctx.aliveStmt, ctx.outStmt = -1, -1
	aliveAtStart := ctx.Alive

	for i, stmt := range prog.Stmts {
		if err := evalStmt(i, stmt, ctx); err != nil {
			if err == errDivZero {
				continue
			}
			return 0, err
		}
	}

	var st Status
	switch {
	case !ctx.Alive && aliveAtStart:
		// released partway through this eval: before or after the
		// output write decides whether the caller should still route it.
		if ctx.outStmt >= 0 && ctx.aliveStmt > ctx.outStmt {
			st |= ReleaseAfterUpdate
			if ctx.wroteOutput {
				st |= updateBit(ctx)
			}
		} else {
			st |= ReleaseBeforeUpdate
		}
	case !ctx.Alive:
		st |= ReleaseBeforeUpdate
	case ctx.wroteOutput:
		st |= updateBit(ctx)
	}
	return st | Done, nil
}

func updateBit(ctx *Context) Status {
	if ctx.Muted {
		return MutedUpdate
	}
	return Update
}

// evalStmt runs one top-level KAssign statement.
func evalStmt(idx int, stmt *Instr, ctx *Context) error {
	if stmt.Kind != KAssign {
		_, err := evalNode(stmt, ctx)
		return err
	}
	if stmt.AssignKind == AssignConstInit {
		if dst := ringFor(stmt.Dest, ctx); dst != nil {
			if _, _, ok := dst.Get(ctx.Inst, 0); ok {
				return nil // already seeded, const initializers run once
			}
		}
	}

	v, err := evalNode(stmt.Args[0], ctx)
	if err != nil {
		return err
	}

	switch stmt.Dest.Sel {
	case SelAlive:
		ctx.Alive = v.At(0) != 0
		ctx.aliveStmt = idx
		return nil
	case SelMuted:
		ctx.Muted = v.At(0) != 0
		return nil
	}

	if stmt.AssignKind == AssignTimetag {
		ctx.outTime = int64(v.At(0))
		return nil
	}

	dst := ringFor(stmt.Dest, ctx)
	dst.Push(ctx.Inst, v, ctx.outTime)
	if stmt.Dest.Sel == SelOutput {
		ctx.wroteOutput = true
		ctx.outStmt = idx
	}
	return nil
}
