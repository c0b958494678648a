//go:build !unix

package desktop

import "os/exec"

// killGroupOnCancel keeps the default cancel behaviour; WaitDelay still
// bounds the wait for children holding the output pipes.
func killGroupOnCancel(cmd *exec.Cmd) {}
