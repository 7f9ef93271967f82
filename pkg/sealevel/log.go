package sealevel

import (
	"fmt"
	"strings"
)

type Logger interface {
	Log(s string)
}

type LogRecorder struct {
	Logs []string
}

func (r *LogRecorder) Log(s string) {
	r.Logs = append(r.Logs, s)
}

// Join renders logs the way explorers display them.
func (r *LogRecorder) Join() string {
	return strings.Join(r.Logs, "\n")
}

// ProgramLog emits a program message with the conventional prefix.
func (execCtx *ExecutionCtx) ProgramLog(format string, args ...any) {
	if execCtx.Log == nil {
		return
	}
	execCtx.Log.Log("Program log: " + fmt.Sprintf(format, args...))
}

func (execCtx *ExecutionCtx) runtimeLog(format string, args ...any) {
	if execCtx.Log == nil {
		return
	}
	execCtx.Log.Log(fmt.Sprintf(format, args...))
}
