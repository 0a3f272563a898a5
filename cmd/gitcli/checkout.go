package main

import (
	"fmt"
	"os"

	"gitcli/internal/gitcore"
)

func runCheckout(repo *gitcore.Repository, args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: gitcli checkout <rev>")
		return 1
	}
	rev := args[0]

	targetHash, err := repo.ResolveRevision(rev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	commit, err := repo.GetCommit(targetHash)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	if dirty, err := dirtyTrackedFiles(repo); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	} else if len(dirty) > 0 {
		fmt.Fprintln(os.Stderr, "error: your local changes to the following files would be overwritten by checkout:")
		for _, path := range dirty {
			fmt.Fprintf(os.Stderr, "\t%s\n", path)
		}
		fmt.Fprintln(os.Stderr, "Please commit your changes or stash them before you switch branches.")
		return 1
	}

	oldIdx, err := gitcore.ReadIndex(repo.GitDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	newIdx, err := gitcore.CheckoutTree(repo, commit.Tree)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	if err := gitcore.RemoveStaleWorkingTreeFiles(repo, oldIdx, newIdx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	if err := newIdx.Write(repo.GitDir()); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	branches := repo.Branches()
	if _, isBranch := branches[rev]; isBranch {
		if err := repo.SetHead(targetHash, "refs/heads/"+rev, false); err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			return 128
		}
		fmt.Printf("Switched to branch '%s'\n", rev)
		return 0
	}

	if err := repo.SetHead(targetHash, "", true); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}
	fmt.Printf("Note: checking out '%s'.\n\nYou are in 'detached HEAD' state.\n", rev)
	return 0
}

// dirtyTrackedFiles returns the paths of any tracked file that has staged or
// unstaged changes, the set checkout must refuse to clobber.
func dirtyTrackedFiles(repo *gitcore.Repository) ([]string, error) {
	status, err := gitcore.ComputeWorkingTreeStatus(repo)
	if err != nil {
		return nil, err
	}
	var dirty []string
	for _, f := range status.Files {
		if f.IndexStatus != "" || f.WorkStatus != "" {
			dirty = append(dirty, f.Path)
		}
	}
	return dirty, nil
}
