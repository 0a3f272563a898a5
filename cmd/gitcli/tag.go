package main

import (
	"fmt"
	"os"
	"sort"

	"gitcli/internal/gitcore"
	"gitcli/internal/termcolor"
)

func runTag(repo *gitcore.Repository, args []string, _ *termcolor.Writer) int {
	var (
		deleteFlag    bool
		annotateFlag  bool
		message       string
		rest          []string
	)
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-d", "--delete":
			deleteFlag = true
		case "-a", "--annotate":
			annotateFlag = true
		case "-m", "--message":
			if i+1 < len(args) {
				i++
				message = args[i]
			}
		default:
			rest = append(rest, args[i])
		}
	}

	switch {
	case deleteFlag:
		return runTagDelete(repo, rest)
	case len(rest) >= 1:
		return runTagCreate(repo, rest, annotateFlag, message)
	default:
		return listTags(repo)
	}
}

func listTags(repo *gitcore.Repository) int {
	names := repo.TagNames()
	sort.Strings(names)

	for _, name := range names {
		fmt.Println(name)
	}

	return 0
}

func runTagCreate(repo *gitcore.Repository, rest []string, annotate bool, message string) int {
	name := rest[0]
	target := repo.Head()
	if len(rest) > 1 {
		hash, err := repo.ResolveRevision(rest[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			return 128
		}
		target = hash
	}
	if target == "" {
		fmt.Fprintln(os.Stderr, "fatal: not a valid object name: HEAD")
		return 128
	}

	if !annotate {
		if err := repo.CreateLightweightTag(name, target); err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			return 128
		}
		return 0
	}

	if message == "" {
		fmt.Fprintln(os.Stderr, "fatal: annotated tag requires a message (-m)")
		return 128
	}
	tagger, err := gitcore.CommitterIdentity()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}
	if _, err := repo.CreateAnnotatedTag(name, target, gitcore.CommitObject, tagger, message); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}
	return 0
}

func runTagDelete(repo *gitcore.Repository, rest []string) int {
	if len(rest) != 1 {
		fmt.Fprintln(os.Stderr, "usage: gitcli tag -d <name>")
		return 1
	}
	if err := repo.DeleteTag(rest[0]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Printf("Deleted tag '%s'\n", rest[0])
	return 0
}
