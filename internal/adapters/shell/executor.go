// Package shell starts build tool processes and captures their output line by line.
package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/creack/pty"
	"go.trai.ch/cloudbuilder/internal/core/domain"
	"go.trai.ch/cloudbuilder/internal/core/ports"
	"go.trai.ch/zerr"
)

var errNoPTY = errors.New("pty unavailable")

// Executor implements ports.Executor using os/exec and pty.
type Executor struct {
	logger ports.Logger
}

// NewExecutor creates a new Executor.
func NewExecutor(logger ports.Logger) *Executor {
	return &Executor{
		logger: logger,
	}
}

// Start launches the command in a PTY, falling back to a pipe when no PTY can be
// opened. Standard output and standard error are merged.
func (e *Executor) Start(ctx context.Context, spec domain.ProcessSpec, onLine func(string)) (ports.Process, error) {
	if len(spec.Command) == 0 {
		return nil, domain.ErrEmptyCommand
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := spec.Command[0]
	args := spec.Command[1:]

	cmdEnv := resolveEnvironment(os.Environ(), spec.Env)

	// Names with a separator are resolved by the OS relative to the working directory.
	executable := name
	if !strings.ContainsRune(name, filepath.Separator) {
		if lp, err := lookPath(name, cmdEnv); err == nil {
			executable = lp
		}
	}

	cmd := exec.Command(executable, args...) //nolint:gosec // build tool command comes from the node config
	cmd.Args[0] = name
	cmd.Dir = spec.Dir
	cmd.Env = cmdEnv

	lw := &lineWriter{onLine: onLine}

	proc, err := startPTY(cmd, lw)
	if errors.Is(err, errNoPTY) {
		e.logger.Warn("pty unavailable, capturing build output through a pipe")
		proc, err = startPipe(cmd, lw)
	}
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to start build process"), "command", name)
	}
	return proc, nil
}

func startPTY(cmd *exec.Cmd, lw *lineWriter) (*process, error) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		return nil, errors.Join(errNoPTY, err)
	}
	defer func() { _ = tty.Close() }()

	cmd.Stdin = tty
	cmd.Stdout = tty
	cmd.Stderr = tty
	cmd.SysProcAttr = ptyAttr()

	if err := cmd.Start(); err != nil {
		_ = ptmx.Close()
		return nil, err
	}

	ioDone := make(chan struct{})
	go func() {
		defer close(ioDone)
		defer func() { _ = ptmx.Close() }()
		// Flush the last unterminated line once the PTY is drained.
		defer func() { _ = lw.Close() }()

		// Reading the master after the child hung up yields EIO, which ends the copy.
		_, _ = io.Copy(lw, ptmx)
	}()

	return &process{cmd: cmd, ioDone: ioDone}, nil
}

func startPipe(cmd *exec.Cmd, lw *lineWriter) (*process, error) {
	// A single writer makes exec share one pipe between stdout and stderr.
	cmd.Stdout = lw
	cmd.Stderr = lw
	cmd.SysProcAttr = pipeAttr()

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &process{cmd: cmd, flush: lw}, nil
}

// process is a started build command.
type process struct {
	cmd    *exec.Cmd
	ioDone <-chan struct{}
	flush  io.Closer

	waitOnce sync.Once
	err      error
}

// Wait waits for the command to exit and for its output to be delivered.
func (p *process) Wait() error {
	p.waitOnce.Do(func() {
		err := p.cmd.Wait()

		if p.ioDone != nil {
			<-p.ioDone
		} else if p.flush != nil {
			_ = p.flush.Close()
		}

		if err != nil {
			exitCode := -1
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				exitCode = exitErr.ExitCode()
			}
			p.err = zerr.With(zerr.Wrap(err, "command failed"), "exit_code", exitCode)
		}
	})
	return p.err
}

// Kill sends SIGKILL to the process group of the command.
func (p *process) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	if err := killGroup(p.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return zerr.Wrap(err, "failed to kill build process")
	}
	return nil
}

// lineWriter splits a byte stream into lines. It is written from one goroutine.
type lineWriter struct {
	onLine func(string)
	buf    []byte
}

func (w *lineWriter) Write(p []byte) (n int, err error) {
	w.buf = append(w.buf, p...)

	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}

		w.emit(w.buf[:i])
		w.buf = w.buf[i+1:]
	}

	return len(p), nil
}

func (w *lineWriter) Close() error {
	if len(w.buf) > 0 {
		w.emit(w.buf)
		w.buf = nil
	}
	return nil
}

func (w *lineWriter) emit(line []byte) {
	// PTYs translate \n into \r\n.
	w.onLine(strings.TrimSuffix(string(line), "\r"))
}

// resolveEnvironment overlays the configured variables on the inherited environment.
// The result is sorted so the child sees a stable environment.
func resolveEnvironment(sysEnv, overrides []string) []string {
	envMap := make(map[string]string, len(sysEnv)+len(overrides))
	for _, list := range [][]string{sysEnv, overrides} {
		for _, entry := range list {
			if k, v, ok := strings.Cut(entry, "="); ok && k != "" {
				envMap[k] = v
			}
		}
	}

	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, k+"="+v)
	}
	slices.Sort(result)
	return result
}

// lookPath searches for an executable in the directories named by the PATH entry of env.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if after, ok := strings.CutPrefix(e, "PATH="); ok {
			path = after
			break
		}
	}

	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		candidate := filepath.Join(dir, file)
		if err := findExecutable(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
