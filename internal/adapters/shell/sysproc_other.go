//go:build !unix

package shell

import (
	"os"
	"syscall"
)

func ptyAttr() *syscall.SysProcAttr {
	return nil
}

func pipeAttr() *syscall.SysProcAttr {
	return nil
}

func killGroup(p *os.Process) error {
	return p.Kill()
}
