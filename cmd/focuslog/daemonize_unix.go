//go:build !windows

package main

import (
	"os"
	"syscall"
)

// daemonize re-executes the binary in a new session with the child marker set.
func daemonize() (int, error) {
	env := append(os.Environ(), daemonChildEnv+"=1")

	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}

	procAttr := &os.ProcAttr{
		Env:   env,
		Files: []*os.File{nil, nil, nil}, // stdin, stdout, stderr to /dev/null
		Sys: &syscall.SysProcAttr{
			Setsid: true, // Create new session
		},
	}

	process, err := os.StartProcess(exe, os.Args, procAttr)
	if err != nil {
		return 0, err
	}
	pid := process.Pid
	_ = process.Release()
	return pid, nil
}
