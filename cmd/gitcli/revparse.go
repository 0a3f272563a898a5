package main

import (
	"fmt"
	"os"

	"gitcli/internal/gitcore"
)

func runRevParse(repo *gitcore.Repository, args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: gitcli rev-parse <rev>")
		return 1
	}

	hash, err := repo.ResolveRevision(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	fmt.Println(hash)
	return 0
}
