package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gitcli/internal/gitcore"
	"gitcli/internal/termcolor"
)

// runDiff dispatches to the three forms git diff supports: two explicit
// revisions (commit-to-commit tree diff), --staged/--cached (index vs HEAD),
// or no arguments at all (working tree vs index).
func runDiff(repo *gitcore.Repository, args []string, cw *termcolor.Writer) int {
	stat := false
	staged := false
	var revs []string

	for _, arg := range args {
		switch arg {
		case "--stat":
			stat = true
		case "--staged", "--cached":
			staged = true
		default:
			revs = append(revs, arg)
		}
	}

	switch {
	case len(revs) == 2 && !staged:
		return runDiffCommits(repo, revs[0], revs[1], stat, cw)
	case len(revs) == 0 && staged:
		return runDiffStagedVsHead(repo, stat, cw)
	case len(revs) == 0:
		return runDiffWorkingVsIndex(repo, stat, cw)
	default:
		fmt.Fprintln(os.Stderr, "usage: gitcli diff [--stat] [--staged] [<commit1> <commit2>]")
		return 1
	}
}

func runDiffCommits(repo *gitcore.Repository, rev1, rev2 string, stat bool, cw *termcolor.Writer) int {
	hash1, err := repo.ResolveRevision(rev1)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}
	hash2, err := repo.ResolveRevision(rev2)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	commit1, err := repo.GetCommit(hash1)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}
	commit2, err := repo.GetCommit(hash2)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	entries, err := gitcore.TreeDiff(repo, commit1.Tree, commit2.Tree, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	if stat {
		return printDiffStat(entries)
	}
	return printUnifiedDiff(repo, entries, cw)
}

// runDiffStagedVsHead diffs the index against HEAD (--staged/--cached), by
// materializing the index's own tree object and reusing TreeDiff exactly as
// the commit-to-commit path does.
func runDiffStagedVsHead(repo *gitcore.Repository, stat bool, cw *termcolor.Writer) int {
	idx, err := gitcore.ReadIndex(repo.GitDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	indexTree, err := idx.BuildTree(repo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	var headTree gitcore.Hash
	if head := repo.Head(); head != "" {
		headCommit, err := repo.GetCommit(head)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			return 128
		}
		headTree = headCommit.Tree
	}

	entries, err := gitcore.TreeDiff(repo, headTree, indexTree, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	if stat {
		return printDiffStat(entries)
	}
	return printUnifiedDiff(repo, entries, cw)
}

// runDiffWorkingVsIndex diffs tracked files on disk against what is staged
// for them, the comparison a bare `gitcli diff` performs.
func runDiffWorkingVsIndex(repo *gitcore.Repository, stat bool, cw *termcolor.Writer) int {
	idx, err := gitcore.ReadIndex(repo.GitDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	status, err := gitcore.ComputeWorkingTreeStatus(repo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	var paths []string
	for _, f := range status.Files {
		if f.WorkStatus != "" {
			paths = append(paths, f.Path)
		}
	}
	sort.Strings(paths)

	if stat {
		return printWorkingTreeDiffStat(paths)
	}

	for _, path := range paths {
		var indexHash gitcore.Hash
		if entry := idx.Entry(path); entry != nil {
			indexHash = entry.Hash
		}

		fd, err := gitcore.ComputeStagedFileDiff(repo, path, indexHash, gitcore.DefaultContextLines)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			continue
		}

		fmt.Println(cw.Bold(fmt.Sprintf("diff --git a/%s b/%s", path, path)))
		oldHash := fd.OldHash.Short()
		if oldHash == "" {
			oldHash = "0000000"
		}
		fmt.Println(cw.Bold(fmt.Sprintf("index %s..0000000", oldHash)))

		if fd.IsBinary {
			fmt.Printf("Binary files differ\n")
			continue
		}

		fmt.Println(cw.Bold(fmt.Sprintf("--- a/%s", path)))
		fmt.Println(cw.Bold(fmt.Sprintf("+++ b/%s", path)))
		printDiffHunks(fd, cw)
	}
	return 0
}

func printUnifiedDiff(repo *gitcore.Repository, entries []gitcore.DiffEntry, cw *termcolor.Writer) int {
	for _, entry := range entries {
		path := entry.Path
		oldPath := entry.OldPath
		if oldPath == "" {
			oldPath = path
		}

		fmt.Println(cw.Bold(fmt.Sprintf("diff --git a/%s b/%s", oldPath, path)))

		// index line
		oldHash := entry.OldHash.Short()
		newHash := entry.NewHash.Short()
		if oldHash == "" {
			oldHash = "0000000"
		}
		if newHash == "" {
			newHash = "0000000"
		}

		switch entry.Status {
		case gitcore.DiffStatusAdded:
			fmt.Println(cw.Bold(fmt.Sprintf("new file mode %s", normalizeMode(entry.NewMode))))
			fmt.Println(cw.Bold(fmt.Sprintf("index %s..%s", oldHash, newHash)))
		case gitcore.DiffStatusDeleted:
			fmt.Println(cw.Bold(fmt.Sprintf("deleted file mode %s", normalizeMode(entry.OldMode))))
			fmt.Println(cw.Bold(fmt.Sprintf("index %s..%s", oldHash, newHash)))
		case gitcore.DiffStatusRenamed:
			fmt.Println(cw.Bold("similarity index 100%"))
			fmt.Println(cw.Bold(fmt.Sprintf("rename from %s", oldPath)))
			fmt.Println(cw.Bold(fmt.Sprintf("rename to %s", path)))
			continue // No content diff for exact renames
		default:
			fmt.Println(cw.Bold(fmt.Sprintf("index %s..%s", oldHash, newHash)))
		}

		if entry.IsBinary {
			fmt.Printf("Binary files differ\n")
			continue
		}

		fileDiff, err := gitcore.ComputeFileDiff(repo, entry.OldHash, entry.NewHash, path, gitcore.DefaultContextLines)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			continue
		}

		if fileDiff.IsBinary {
			fmt.Printf("Binary files differ\n")
			continue
		}

		// --- / +++ headers
		if entry.Status == gitcore.DiffStatusAdded {
			fmt.Println(cw.Bold("--- /dev/null"))
		} else {
			fmt.Println(cw.Bold(fmt.Sprintf("--- a/%s", oldPath)))
		}
		if entry.Status == gitcore.DiffStatusDeleted {
			fmt.Println(cw.Bold("+++ /dev/null"))
		} else {
			fmt.Println(cw.Bold(fmt.Sprintf("+++ b/%s", path)))
		}

		printDiffHunks(fileDiff, cw)
	}
	return 0
}

// printDiffHunks prints a FileDiff's "@@ ... @@" hunk headers and lines,
// shared by the commit/staged tree-diff path and the working-tree-vs-index
// path.
func printDiffHunks(fileDiff *gitcore.FileDiff, cw *termcolor.Writer) {
	for _, hunk := range fileDiff.Hunks {
		fmt.Println(cw.Cyan(fmt.Sprintf("@@ -%d,%d +%d,%d @@", hunk.OldStart, hunk.OldLines, hunk.NewStart, hunk.NewLines)))
		for _, line := range hunk.Lines {
			switch line.Type {
			case gitcore.LineTypeContext:
				fmt.Printf(" %s\n", line.Content)
			case gitcore.LineTypeAddition:
				fmt.Println(cw.Green(fmt.Sprintf("+%s", line.Content)))
			case gitcore.LineTypeDeletion:
				fmt.Println(cw.Red(fmt.Sprintf("-%s", line.Content)))
			}
		}
	}
}

func printDiffStat(entries []gitcore.DiffEntry) int {
	if len(entries) == 0 {
		return 0
	}

	maxNameLen := 0
	for _, e := range entries {
		name := statDisplayName(e)
		if len(name) > maxNameLen {
			maxNameLen = len(name)
		}
	}

	for _, e := range entries {
		name := statDisplayName(e)

		if e.IsBinary {
			fmt.Printf(" %-*s | Bin\n", maxNameLen, name)
			continue
		}

		switch e.Status {
		case gitcore.DiffStatusAdded:
			fmt.Printf(" %-*s | (new)\n", maxNameLen, name)
		case gitcore.DiffStatusDeleted:
			fmt.Printf(" %-*s | (gone)\n", maxNameLen, name)
		case gitcore.DiffStatusRenamed:
			fmt.Printf(" %-*s | 0\n", maxNameLen, name)
		default:
			fmt.Printf(" %-*s | (modified)\n", maxNameLen, name)
		}
	}

	fmt.Printf(" %d file(s) changed\n", len(entries))

	return 0
}

// printWorkingTreeDiffStat is printDiffStat's counterpart for the
// working-tree-vs-index path, which has plain paths rather than DiffEntry
// values to draw a status character from.
func printWorkingTreeDiffStat(paths []string) int {
	if len(paths) == 0 {
		return 0
	}

	maxNameLen := 0
	for _, p := range paths {
		if len(p) > maxNameLen {
			maxNameLen = len(p)
		}
	}

	for _, p := range paths {
		fmt.Printf(" %-*s | (modified)\n", maxNameLen, p)
	}
	fmt.Printf(" %d file(s) changed\n", len(paths))

	return 0
}

func statDisplayName(e gitcore.DiffEntry) string {
	if e.Status == gitcore.DiffStatusRenamed {
		return e.OldPath + " => " + e.Path
	}
	return e.Path
}

func normalizeMode(mode string) string {
	if mode == "" {
		return "100644"
	}
	if len(mode) < 6 {
		return strings.Repeat("0", 6-len(mode)) + mode
	}
	return mode
}
