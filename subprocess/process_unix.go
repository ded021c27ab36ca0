//go:build linux || freebsd || solaris || darwin

package subprocess

import (
	"bytes"
	"syscall"

	"github.com/mongodb/grip"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// sessionAttr places the child in its own session so that signals
// delivered to the supervising process group do not reach the child,
// and the escalation protocol remains the only way the supervisor
// terminates it.
func sessionAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}

func (s *Supervisor) signal(sig unix.Signal) error {
	return errors.Wrapf(unix.Kill(s.cmd.Process.Pid, sig),
		"sending signal %s to pid %d", unix.SignalName(sig), s.cmd.Process.Pid)
}

// pollExit checks for and reaps an exited child without blocking,
// recording the exit code. Subsequent calls after the child has been
// reaped are cheap and return true.
func (s *Supervisor) pollExit() bool {
	if s.finished {
		return true
	}

	var ws unix.WaitStatus
	pid, err := unix.Wait4(s.cmd.Process.Pid, &ws, unix.WNOHANG, nil)
	switch {
	case err == unix.EINTR:
		return false
	case err != nil:
		// ECHILD here means the process was reaped out from
		// under us; there is nothing left to monitor either way.
		grip.Error(errors.Wrapf(err, "polling pid %d for exit", s.cmd.Process.Pid))
		s.finished = true
		s.exitCode = -1
	case pid == s.cmd.Process.Pid:
		s.finished = true
		switch {
		case ws.Exited():
			s.exitCode = ws.ExitStatus()
		case ws.Signaled():
			s.exitCode = -int(ws.Signal())
		}
	}

	return s.finished
}

// readOutput pulls whatever the child has written into the line
// buffer without blocking, stopping as soon as a complete line is
// buffered, the pipe runs dry, or the pipe reaches end of output.
func (s *Supervisor) readOutput() {
	for {
		n, err := unix.Read(s.outFd, s.chunk)
		if n > 0 {
			s.outBuf = append(s.outBuf, s.chunk[:n]...)
			if bytes.IndexByte(s.outBuf, '\n') >= 0 {
				return
			}
			continue
		}

		switch {
		case n == 0 && err == nil:
			s.outEOF = true
			return
		case err == unix.EAGAIN || err == unix.EWOULDBLOCK:
			return
		case err == unix.EINTR:
			continue
		default:
			grip.Error(errors.Wrapf(err, "reading output from %s", s))
			s.outEOF = true
			return
		}
	}
}
