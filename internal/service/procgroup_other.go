//go:build !unix

package service

import "os/exec"

func setProcessGroup(_ *exec.Cmd) {}
