//go:build debug

/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package debug

import "fmt"

func Assert(cond bool, args ...any) {
	if !cond {
		panic(fmt.Sprintln(append([]any{"assertion failed:"}, args...)...))
	}
}

func Assertf(cond bool, format string, args ...any) {
	if !cond {
		panic("assertion failed: " + fmt.Sprintf(format, args...))
	}
}

func AssertNoErr(err error) {
	if err != nil {
		panic("assertion failed: " + err.Error())
	}
}

func AssertFunc(fn func() bool, args ...any) {
	Assert(fn(), args...)
}
