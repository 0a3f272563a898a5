//go:build e2e

package e2e

import (
	"strings"
	"testing"
)

// These tests build fixture repositories with the real git binary and
// assert that gitcli's read-only commands (log/cat-file/diff/status/
// branch/tag/show) agree with real git's output, mirroring how a
// read-only viewer in this position would be tested.

const (
	readTS1 = "2025-01-15T10:00:00-05:00"
	readTS2 = "2025-01-15T11:00:00-05:00"
	readTS3 = "2025-01-15T12:00:00-05:00"
)

func setupRealGitRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	git(t, dir, "init", "-b", "main")
	git(t, dir, "config", "user.name", "Test User")
	git(t, dir, "config", "user.email", "test@example.com")
	return dir
}

func addRealCommit(t *testing.T, dir, filename, content, message, timestamp string) {
	t.Helper()
	writeFile(t, dir, filename, content)
	env := []string{"GIT_AUTHOR_DATE=" + timestamp, "GIT_COMMITTER_DATE=" + timestamp}
	gitWithRealEnv(t, dir, env, "add", filename)
	gitWithRealEnv(t, dir, env, "commit", "-m", message)
}

func setupStandardGitRepo(t *testing.T) string {
	t.Helper()
	dir := setupRealGitRepo(t)
	addRealCommit(t, dir, "README.md", "# Hello\n", "Initial commit", readTS1)
	addRealCommit(t, dir, "main.go", "package main\n", "Add main.go", readTS2)
	addRealCommit(t, dir, "main.go", "package main\n\nfunc main() {}\n", "Update main.go", readTS3)
	return dir
}

func TestReadLog(t *testing.T) {
	dir := setupStandardGitRepo(t)
	cliOut := runCLI(t, dir, "log", "--oneline")
	gitOut := git(t, dir, "log", "--oneline", "--decorate=short", "--no-color")
	compareOutput(t, "log --oneline", cliOut, gitOut)
}

func TestReadCatFileType(t *testing.T) {
	dir := setupStandardGitRepo(t)
	cliOut := runCLI(t, dir, "cat-file", "-t", "HEAD")
	gitOut := git(t, dir, "cat-file", "-t", "HEAD")
	compareOutput(t, "cat-file -t", cliOut, gitOut)
}

func TestReadCatFilePrettyCommit(t *testing.T) {
	dir := setupStandardGitRepo(t)
	cliOut := runCLI(t, dir, "cat-file", "-p", "HEAD")
	gitOut := git(t, dir, "cat-file", "-p", "HEAD")
	compareOutput(t, "cat-file -p", cliOut, gitOut)
}

func TestReadDiffHasHunkMarkers(t *testing.T) {
	dir := setupStandardGitRepo(t)
	logOut := git(t, dir, "log", "--format=%H")
	hashes := strings.Fields(strings.TrimSpace(logOut))
	if len(hashes) < 2 {
		t.Fatal("need at least 2 commits")
	}
	cliOut := runCLI(t, dir, "diff", hashes[1], hashes[0])
	if !strings.Contains(cliOut, "@@") {
		t.Errorf("diff output missing hunk headers:\n%s", cliOut)
	}
}

func TestReadStatusClean(t *testing.T) {
	dir := setupStandardGitRepo(t)
	cliOut := runCLI(t, dir, "status", "--porcelain")
	if strings.TrimSpace(cliOut) != "" {
		t.Errorf("expected empty porcelain output for clean repo, got:\n%s", cliOut)
	}
}

func TestReadStatusModified(t *testing.T) {
	dir := setupStandardGitRepo(t)
	writeFile(t, dir, "main.go", "package main\n\n// modified\nfunc main() {}\n")
	cliOut := runCLI(t, dir, "status", "--porcelain")
	if !strings.Contains(cliOut, " M main.go") {
		t.Errorf("expected ' M main.go' in porcelain output, got:\n%s", cliOut)
	}
}

func TestReadBranch(t *testing.T) {
	dir := setupStandardGitRepo(t)
	git(t, dir, "branch", "feature")
	cliOut := runCLI(t, dir, "branch")
	gitOut := git(t, dir, "branch", "--no-color")
	compareOutput(t, "branch", cliOut, gitOut)
}

func TestReadTag(t *testing.T) {
	dir := setupStandardGitRepo(t)
	git(t, dir, "tag", "v0.1.0")
	git(t, dir, "tag", "v0.2.0")
	cliOut := runCLI(t, dir, "tag")
	gitOut := git(t, dir, "tag")
	compareOutput(t, "tag", cliOut, gitOut)
}

func TestReadShow(t *testing.T) {
	dir := setupStandardGitRepo(t)
	cliOut := runCLI(t, dir, "show")
	if !strings.Contains(cliOut, "commit ") {
		t.Error("show output missing 'commit ' line")
	}
	if !strings.Contains(cliOut, "Author:") {
		t.Error("show output missing 'Author:' line")
	}
	if !strings.Contains(cliOut, "diff --git") {
		t.Error("show output missing 'diff --git' header")
	}
}
