// Package nlog is a small severity-leveled logger.
//
// Adapted from the teacher's cmn/nlog package: same severity model and
// "file:line timestamp message" header format, stripped of file
// rotation and buffer pooling (this module has no on-disk log store -
// see DESIGN.md).
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package nlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

type severity int

const (
	sevInfo severity = iota
	sevWarn
	sevErr
)

var (
	mu    sync.Mutex
	out   io.Writer = os.Stderr
	level severity   // minimum severity written; raise to silence Infof
)

// SetOutput redirects all log output; mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	out = w
	mu.Unlock()
}

// SetQuiet raises the minimum severity to Warning, suppressing Infof/Infoln.
func SetQuiet(quiet bool) {
	mu.Lock()
	if quiet {
		level = sevWarn
	} else {
		level = sevInfo
	}
	mu.Unlock()
}

func Infof(format string, args ...any)    { log(sevInfo, format, args...) }
func Infoln(args ...any)                  { logln(sevInfo, args...) }
func Warningf(format string, args ...any) { log(sevWarn, format, args...) }
func Warningln(args ...any)               { logln(sevWarn, args...) }
func Errorf(format string, args ...any)   { log(sevErr, format, args...) }
func Errorln(args ...any)                 { logln(sevErr, args...) }

func log(sev severity, format string, args ...any) {
	if sev < level {
		return
	}
	write(header(sev) + fmt.Sprintf(format, args...))
}

func logln(sev severity, args ...any) {
	if sev < level {
		return
	}
	write(header(sev) + strings.TrimSuffix(fmt.Sprintln(args...), "\n"))
}

func write(line string) {
	mu.Lock()
	defer mu.Unlock()
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	io.WriteString(out, line)
}

func header(sev severity) string {
	const chars = "IWE"
	_, fn, ln, ok := runtime.Caller(3)
	if !ok {
		fn, ln = "???", 0
	} else if idx := strings.LastIndexByte(fn, filepath.Separator); idx >= 0 {
		fn = fn[idx+1:]
	}
	now := time.Now()
	return fmt.Sprintf("%c %s %s:%s ", chars[sev], now.Format("15:04:05.000000"), fn, strconv.Itoa(ln))
}
