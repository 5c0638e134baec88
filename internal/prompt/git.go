package prompt

import (
	"os/exec"
	"strings"
)

// GitRunner reports what changed in a target's working tree.
type GitRunner interface {
	DiffSummary(dir string) (string, error)
	FilesChanged(dir string) (string, error)
}

// ExecGit implements GitRunner with the git binary. Changes are measured
// against HEAD so uncommitted edits by the builder are included.
type ExecGit struct{}

func (g *ExecGit) DiffSummary(dir string) (string, error) {
	return runGit(dir, "diff", "--stat", "HEAD")
}

func (g *ExecGit) FilesChanged(dir string) (string, error) {
	return runGit(dir, "diff", "--name-only", "HEAD")
}

func runGit(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
