//go:build !unix

package exec

import "os/exec"

func setProcessGroup(_ *exec.Cmd) {}

func shellCommand(command string) []string {
	return []string{"cmd", "/C", command}
}
