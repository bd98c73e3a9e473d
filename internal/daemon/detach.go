package daemon

import (
	"fmt"
	"os"
	"syscall"
)

// ChildEnv marks the detached child so that it runs instead of forking again.
const ChildEnv = "LIVESTATUS_DAEMON_CHILD"

// IsChild reports whether this process was started by Detach.
func IsChild() bool {
	return os.Getenv(ChildEnv) == "1"
}

// Detach re-executes args in a new session with stdio on /dev/null.
func Detach(args []string) (*os.Process, error) {
	executable, err := os.Executable()
	if err != nil {
		executable = args[0]
	}

	env := append(os.Environ(), ChildEnv+"=1")
	procAttr := &os.ProcAttr{
		Env:   env,
		Files: []*os.File{nil, nil, nil}, // stdin, stdout, stderr to /dev/null
		Sys: &syscall.SysProcAttr{
			Setsid: true, // Create new session
		},
	}

	process, err := os.StartProcess(executable, args, procAttr)
	if err != nil {
		return nil, fmt.Errorf("failed to start daemon process: %w", err)
	}
	return process, nil
}
