//go:build windows

package daemon

import "os"

// No user signals on Windows; pause and resume go through the web API.
var (
	PauseSignal  os.Signal
	ResumeSignal os.Signal
)
