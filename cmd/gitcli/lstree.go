package main

import (
	"fmt"
	"os"

	"gitcli/internal/gitcore"
)

func runLsTree(repo *gitcore.Repository, args []string) int {
	rev := "HEAD"
	if len(args) > 0 {
		rev = args[0]
	}

	hash, err := repo.ResolveRevision(rev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	treeHash := hash
	typeName, _, err := repo.GetObjectInfo(hash)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}
	if typeName == "commit" {
		commit, err := repo.GetCommit(hash)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			return 128
		}
		treeHash = commit.Tree
	}

	tree, err := repo.GetTree(treeHash)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	for _, entry := range tree.Entries {
		fmt.Printf("%s %s %s\t%s\n", entry.Mode, entry.Type, entry.ID, entry.Name)
	}
	return 0
}
