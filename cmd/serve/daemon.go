package serve

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"syscall"
)

const (
	// daemonEnv marks the detached child process
	daemonEnv = "AESD_DAEMON_CHILD"
	// listenerFd is the descriptor of the inherited listening socket (first of ExtraFiles)
	listenerFd = 3
)

// fileListener is implemented by *net.TCPListener and *net.UnixListener
type fileListener interface {
	File() (*os.File, error)
}

// isDaemonChild reports whether this process was started by detach
func isDaemonChild() bool {
	return os.Getenv(daemonEnv) == "1"
}

// inheritedListener rebuilds the listening socket passed by the parent process
func inheritedListener() (net.Listener, error) {
	f := os.NewFile(listenerFd, "aesdlog-listener")
	if f == nil {
		return nil, fmt.Errorf("no listening socket inherited")
	}
	defer f.Close()

	listener, err := net.FileListener(f)
	if err != nil {
		return nil, fmt.Errorf("failed to use inherited socket: %w", err)
	}
	return listener, nil
}

// detach starts this program again in a new session, hands it the bound
// listener and returns. The caller exits afterwards with code 0.
func detach(listener net.Listener) error {
	defer listener.Close()

	// the child keeps serving on the same socket path
	if ul, ok := listener.(*net.UnixListener); ok {
		ul.SetUnlinkOnClose(false)
	}

	fl, ok := listener.(fileListener)
	if !ok {
		return fmt.Errorf("listener of type %T cannot be handed to a daemon", listener)
	}
	f, err := fl.File()
	if err != nil {
		return fmt.Errorf("failed to duplicate listening socket: %w", err)
	}
	defer f.Close()

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer devNull.Close()

	child := exec.Command(exe, os.Args[1:]...)
	child.Env = append(os.Environ(), daemonEnv+"=1")
	child.ExtraFiles = []*os.File{f}
	child.Stdin = devNull
	child.Stdout = os.Stdout
	child.Stderr = os.Stderr
	child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := child.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	Logger.Infof("Started daemon with pid %d on %s", child.Process.Pid, listener.Addr())
	return child.Process.Release()
}
