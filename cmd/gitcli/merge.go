package main

import (
	"fmt"
	"os"

	"gitcli/internal/gitcore"
)

func runMerge(repo *gitcore.Repository, args []string) int {
	if len(args) == 1 && args[0] == "--abort" {
		if err := gitcore.AbortMerge(repo); err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			return 128
		}
		return 0
	}

	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: gitcli merge <rev> | --abort")
		return 1
	}

	theirsHash, err := repo.ResolveRevision(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	committer, err := gitcore.CommitterIdentity()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	message := fmt.Sprintf("Merge %s into %s\n", args[0], branchShortName(repo.HeadRef()))

	result, err := gitcore.PerformMerge(repo, theirsHash, committer, message)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	switch {
	case result.AlreadyUpToDate:
		fmt.Println("Already up to date.")
		return 0
	case result.FastForward:
		fmt.Printf("Fast-forward\n")
		return 0
	case len(result.Conflicts) > 0:
		fmt.Println("Automatic merge failed; fix conflicts and then commit the result.")
		for _, path := range result.Conflicts {
			fmt.Printf("CONFLICT (content): Merge conflict in %s\n", path)
		}
		return 1
	default:
		fmt.Printf("Merge made by the 'recursive' strategy.\n")
		return 0
	}
}
