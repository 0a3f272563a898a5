package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gitcli/internal/gitcore"
	"gitcli/internal/termcolor"
)

func runBranch(repo *gitcore.Repository, args []string, cw *termcolor.Writer) int {
	var (
		deleteFlag bool
		forceDelete bool
		renameFlag bool
	)
	var rest []string
	for _, a := range args {
		switch a {
		case "-d", "--delete":
			deleteFlag = true
		case "-D":
			deleteFlag = true
			forceDelete = true
		case "-m", "--move":
			renameFlag = true
		default:
			rest = append(rest, a)
		}
	}
	switch {
	case deleteFlag:
		return runBranchDelete(repo, rest, forceDelete)
	case renameFlag:
		return runBranchRename(repo, rest)
	case len(rest) == 1:
		return runBranchCreate(repo, rest[0])
	case len(rest) == 0:
		return listBranches(repo, cw)
	default:
		fmt.Fprintln(os.Stderr, "usage: gitcli branch [-d|-D <name>] [-m <old> <new>] [<name>]")
		return 1
	}
}

func listBranches(repo *gitcore.Repository, cw *termcolor.Writer) int {
	branches := repo.Branches()

	names := make([]string, 0, len(branches))
	for name := range branches {
		names = append(names, name)
	}
	sort.Strings(names)

	// Determine current branch from HEAD symbolic ref
	current := ""
	if ref := repo.HeadRef(); ref != "" {
		current = strings.TrimPrefix(ref, "refs/heads/")
	}

	for _, name := range names {
		if name == current {
			fmt.Printf("* %s\n", cw.Green(name))
		} else {
			fmt.Printf("  %s\n", name)
		}
	}

	return 0
}

func runBranchCreate(repo *gitcore.Repository, name string) int {
	target := repo.Head()
	if target == "" {
		fmt.Fprintln(os.Stderr, "fatal: not a valid object name: HEAD")
		return 128
	}
	if err := repo.CreateBranch(name, target); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}
	return 0
}

func runBranchDelete(repo *gitcore.Repository, args []string, force bool) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: gitcli branch -d <name>")
		return 1
	}
	name := args[0]

	target, exists := repo.Branches()[name]
	if !exists {
		fmt.Fprintf(os.Stderr, "error: branch '%s' not found.\n", name)
		return 1
	}

	if !force {
		merged, err := gitcore.IsAncestor(repo, target, repo.Head())
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		if !merged {
			fmt.Fprintf(os.Stderr, "error: the branch '%s' is not fully merged.\n", name)
			fmt.Fprintf(os.Stderr, "If you are sure you want to delete it, run 'gitcli branch -D %s'.\n", name)
			return 1
		}
	}

	if err := repo.DeleteBranch(name); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Printf("Deleted branch %s.\n", name)
	return 0
}

func runBranchRename(repo *gitcore.Repository, args []string) int {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: gitcli branch -m <old> <new>")
		return 1
	}
	if err := repo.RenameBranch(args[0], args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
