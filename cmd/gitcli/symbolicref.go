package main

import (
	"fmt"
	"os"

	"gitcli/internal/gitcore"
)

func runSymbolicRef(repo *gitcore.Repository, args []string) int {
	if len(args) == 0 || args[0] != "HEAD" {
		fmt.Fprintln(os.Stderr, "usage: gitcli symbolic-ref HEAD [<ref>]")
		return 1
	}

	if len(args) == 1 {
		if repo.HeadDetached() {
			fmt.Fprintln(os.Stderr, "fatal: ref HEAD is not a symbolic ref")
			return 1
		}
		fmt.Println(repo.HeadRef())
		return 0
	}

	newRef := args[1]
	target, err := repo.ResolveRevision(newRef)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	if err := repo.SetHead(target, newRef, false); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}
	return 0
}
