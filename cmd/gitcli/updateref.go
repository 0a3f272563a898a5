package main

import (
	"fmt"
	"os"

	"gitcli/internal/gitcore"
)

func runUpdateRef(repo *gitcore.Repository, args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: gitcli update-ref <ref> <new-value>")
		return 1
	}
	refName, rev := args[0], args[1]

	hash, err := repo.ResolveRevision(rev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	if err := repo.UpdateRef(refName, hash); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}
	return 0
}
