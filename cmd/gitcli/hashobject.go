package main

import (
	"fmt"
	"os"

	"gitcli/internal/gitcore"
)

func runHashObject(repo *gitcore.Repository, args []string) int {
	write := false
	var path string
	for _, a := range args {
		switch a {
		case "-w":
			write = true
		default:
			path = a
		}
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "usage: gitcli hash-object [-w] <path>")
		return 1
	}

	//nolint:gosec // G304: path is a user-supplied CLI argument, same trust level as the git binary itself
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	if !write {
		fmt.Println(gitcore.HashObjectContent("blob", content))
		return 0
	}

	hash, err := repo.WriteObject("blob", content)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}
	fmt.Println(hash)
	return 0
}
