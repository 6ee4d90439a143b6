// Package ring implements component A: a per-(slot,instance) ring
// buffer of typed, vector-valued, timestamped samples (spec.md §4.A).
//
// Grounded in the teacher's small leaf-level value types (cmn/cos):
// a closed, ordered enum with monotone promotion, the same shape as
// cos.FsID/Bck's fixed-width typed fields, generalized here to the
// three scalar kinds spec.md §3 names for a signal.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package ring

import "fmt"

// Vtype is the closed i32 < f32 < f64 promotion lattice from spec.md §4.C.
type Vtype uint8

const (
	I32 Vtype = iota
	F32
	F64
)

func (t Vtype) String() string {
	switch t {
	case I32:
		return "i32"
	case F32:
		return "f32"
	case F64:
		return "f64"
	default:
		return fmt.Sprintf("Vtype(%d)", uint8(t))
	}
}

// Join returns the promoted type of two siblings per the i32<f32<f64 lattice.
func Join(a, b Vtype) Vtype {
	if a > b {
		return a
	}
	return b
}

func ParseVtype(s string) (Vtype, bool) {
	switch s {
	case "i32":
		return I32, true
	case "f32":
		return F32, true
	case "f64":
		return F64, true
	default:
		return 0, false
	}
}
