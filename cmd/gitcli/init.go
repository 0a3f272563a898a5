package main

import (
	"fmt"
	"os"
	"path/filepath"
)

const defaultInitBranch = "main"

// runInit lays out a fresh .git directory, matching the structure
// validateGitDirectory expects (objects/, refs/heads/, refs/tags/, HEAD)
// without opening a Repository, since one doesn't exist yet.
func runInit(args []string) int {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	gitDir := filepath.Join(dir, ".git")
	if _, err := os.Stat(gitDir); err == nil {
		absDir, _ := filepath.Abs(dir)
		fmt.Printf("Reinitialized existing Git repository in %s\n", filepath.Join(absDir, ".git"))
		return 0
	}

	dirs := []string{
		filepath.Join(gitDir, "objects"),
		filepath.Join(gitDir, "refs", "heads"),
		filepath.Join(gitDir, "refs", "tags"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			return 128
		}
	}

	head := fmt.Sprintf("ref: refs/heads/%s\n", defaultInitBranch)
	if err := os.WriteFile(filepath.Join(gitDir, "HEAD"), []byte(head), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		absDir = dir
	}
	fmt.Printf("Initialized empty Git repository in %s\n", filepath.Join(absDir, ".git"))
	return 0
}
