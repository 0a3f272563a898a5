package main

import (
	"fmt"
	"os"

	"gitcli/internal/gitcore"
)

func runLsFiles(repo *gitcore.Repository, args []string) int {
	staged := false
	for _, a := range args {
		if a == "--staged" || a == "-s" {
			staged = true
		}
	}

	idx, err := gitcore.ReadIndex(repo.GitDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	for _, entry := range idx.Entries0() {
		if staged {
			fmt.Printf("%06o %s %d\t%s\n", entry.Mode, entry.Hash, entry.Stage, entry.Path)
		} else {
			fmt.Println(entry.Path)
		}
	}
	return 0
}
