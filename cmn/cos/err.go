// Package cos provides small low-level types and utilities shared
// across this module's packages.
//
// Adapted from the teacher's cmn/cos/err.go: keeps the ErrNotFound
// typed error verbatim in spirit, drops the syscall/HTTP
// connection-classification helpers (no socket layer lives in this
// module - see SPEC_FULL.md §6, Non-goals) and the Errs multi-error
// accumulator (no call site in this module ever holds more than one
// outstanding error at a time to accumulate).
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package cos

import (
	"fmt"
	"os"
)

type ErrNotFound struct {
	what string
}

func NewErrNotFound(format string, a ...any) *ErrNotFound {
	return &ErrNotFound{fmt.Sprintf(format, a...)}
}

func (e *ErrNotFound) Error() string { return e.what + " does not exist" }

func IsErrNotFound(err error) bool {
	_, ok := err.(*ErrNotFound)
	return ok
}

// Fatal termination: unrecoverable conditions (§7) such as a device
// booting with a config that can't be turned into working state
// propagate up and terminate the device.
const fatalPrefix = "FATAL ERROR: "

func Exitf(f string, a ...any) {
	fmt.Fprintln(os.Stderr, fmt.Sprintf(fatalPrefix+f, a...))
	os.Exit(1)
}
