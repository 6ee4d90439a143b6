package expr

import "fmt"

// CompileError is returned for every failure mode spec.md §4.C names;
// each carries the byte offset of the offending token so a caller can
// point a user at the exact spot.
type CompileError struct {
	Offset int
	Msg    string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("expr: %s (at offset %d)", e.Msg, e.Offset)
}

func errAt(offset int, msg string) error { return &CompileError{Offset: offset, Msg: msg} }
