//go:build !windows

package daemon

import (
	"os"
	"syscall"
)

var (
	PauseSignal  os.Signal = syscall.SIGUSR1
	ResumeSignal os.Signal = syscall.SIGUSR2
)
