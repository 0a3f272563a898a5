package main

import (
	"fmt"
	"os"
	"runtime"

	"gitcli/internal/cli"
	"gitcli/internal/gitcore"
	"gitcli/internal/termcolor"
)

// Build-time variables set via -ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	gf, args := parseGlobalFlags(os.Args[1:])

	// --version is handled before app.Run because "--" prefixed args
	// would be treated as unknown commands by the dispatcher.
	for _, a := range args {
		if a == "--version" {
			printVersion()
			os.Exit(0)
		}
	}

	cw := termcolor.NewWriter(os.Stdout, gf.colorMode)

	app := cli.NewApp("gitcli", version)
	app.Stderr = os.Stderr

	// repo is declared here and assigned after dispatch determines that
	// the matched command needs it (NeedsRepo). Closures capture the
	// pointer variable, which is populated before they execute.
	var repo *gitcore.Repository

	app.Register(&cli.Command{
		Name:      "branch",
		Summary:   "List, create, delete, or rename branches",
		Usage:     "gitcli branch [<name> | -d|-D <name> | -m <old> <new>]",
		NeedsRepo: true,
		Run:       func(args []string) int { return runBranch(repo, args, cw) },
	})

	app.Register(&cli.Command{
		Name:      "log",
		Summary:   "Show commit log",
		Usage:     "gitcli log [--oneline] [-n <count>]",
		Examples:  []string{"gitcli log", "gitcli log --oneline -n5"},
		NeedsRepo: true,
		Run:       func(args []string) int { return runLog(repo, args, cw) },
	})

	app.Register(&cli.Command{
		Name:      "cat-file",
		Summary:   "Show object content, type, or size",
		Usage:     "gitcli cat-file (-t|-s|-p) <object>",
		Examples:  []string{"gitcli cat-file -p HEAD", "gitcli cat-file -t abc1234"},
		NeedsRepo: true,
		Run:       func(args []string) int { return runCatFile(repo, args) },
	})

	app.Register(&cli.Command{
		Name:      "diff",
		Summary:   "Show changes between commits, the index, and the working tree",
		Usage:     "gitcli diff [--stat] [--staged] [<commit1> <commit2>]",
		Examples:  []string{"gitcli diff HEAD~1 HEAD", "gitcli diff --stat main dev"},
		NeedsRepo: true,
		Run:       func(args []string) int { return runDiff(repo, args, cw) },
	})

	app.Register(&cli.Command{
		Name:      "show",
		Summary:   "Show commit details and diff",
		Usage:     "gitcli show [--stat] [<commit>]",
		Examples:  []string{"gitcli show", "gitcli show --stat HEAD"},
		NeedsRepo: true,
		Run:       func(args []string) int { return runShow(repo, args, cw) },
	})

	app.Register(&cli.Command{
		Name:      "status",
		Summary:   "Show working tree status",
		Usage:     "gitcli status [-s|--porcelain]",
		Examples:  []string{"gitcli status", "gitcli status --porcelain"},
		NeedsRepo: true,
		Run:       func(args []string) int { return runStatus(repo, args) },
	})

	app.Register(&cli.Command{
		Name:      "tag",
		Summary:   "Create, list, or delete tags",
		Usage:     "gitcli tag [-a] [-m <msg>] <name> [<target>] | -d <name>",
		Examples:  []string{"gitcli tag", "gitcli tag v1.0", "gitcli tag -a -m 'release' v1.0", "gitcli tag -d v1.0"},
		NeedsRepo: true,
		Run:       func(args []string) int { return runTag(repo, args, cw) },
	})

	app.Register(&cli.Command{
		Name:      "init",
		Summary:   "Create an empty repository",
		Usage:     "gitcli init [<directory>]",
		Examples:  []string{"gitcli init", "gitcli init myproject"},
		NeedsRepo: false,
		Run:       func(args []string) int { return runInit(args) },
	})

	app.Register(&cli.Command{
		Name:      "add",
		Summary:   "Add file contents to the index",
		Usage:     "gitcli add <path>...",
		Examples:  []string{"gitcli add .", "gitcli add hello.txt"},
		NeedsRepo: true,
		Run:       func(args []string) int { return runAdd(repo, args) },
	})

	app.Register(&cli.Command{
		Name:      "commit",
		Summary:   "Record staged changes",
		Usage:     "gitcli commit -m <message>",
		Examples:  []string{"gitcli commit -m \"first\""},
		NeedsRepo: true,
		Run:       func(args []string) int { return runCommit(repo, args) },
	})

	app.Register(&cli.Command{
		Name:      "checkout",
		Summary:   "Switch branches or restore working tree files",
		Usage:     "gitcli checkout <rev>",
		Examples:  []string{"gitcli checkout main", "gitcli checkout HEAD~1"},
		NeedsRepo: true,
		Run:       func(args []string) int { return runCheckout(repo, args) },
	})

	app.Register(&cli.Command{
		Name:      "merge",
		Summary:   "Join two or more development histories",
		Usage:     "gitcli merge <rev> | --abort",
		Examples:  []string{"gitcli merge topic", "gitcli merge --abort"},
		NeedsRepo: true,
		Run:       func(args []string) int { return runMerge(repo, args) },
	})

	app.Register(&cli.Command{
		Name:      "ls-tree",
		Summary:   "List the contents of a tree object",
		Usage:     "gitcli ls-tree <rev>",
		NeedsRepo: true,
		Run:       func(args []string) int { return runLsTree(repo, args) },
	})

	app.Register(&cli.Command{
		Name:      "ls-files",
		Summary:   "List files in the index",
		Usage:     "gitcli ls-files [--staged|-s]",
		NeedsRepo: true,
		Run:       func(args []string) int { return runLsFiles(repo, args) },
	})

	app.Register(&cli.Command{
		Name:      "rev-parse",
		Summary:   "Resolve a revision expression to a hash",
		Usage:     "gitcli rev-parse <rev>",
		Examples:  []string{"gitcli rev-parse HEAD^1", "gitcli rev-parse HEAD~2"},
		NeedsRepo: true,
		Run:       func(args []string) int { return runRevParse(repo, args) },
	})

	app.Register(&cli.Command{
		Name:      "hash-object",
		Summary:   "Compute the object hash of a file",
		Usage:     "gitcli hash-object [-w] <path>",
		NeedsRepo: true,
		Run:       func(args []string) int { return runHashObject(repo, args) },
	})

	app.Register(&cli.Command{
		Name:      "update-ref",
		Summary:   "Update the object name stored in a ref",
		Usage:     "gitcli update-ref <ref> <new-value>",
		NeedsRepo: true,
		Run:       func(args []string) int { return runUpdateRef(repo, args) },
	})

	app.Register(&cli.Command{
		Name:      "symbolic-ref",
		Summary:   "Read or modify the symbolic ref HEAD",
		Usage:     "gitcli symbolic-ref HEAD [<ref>]",
		NeedsRepo: true,
		Run:       func(args []string) int { return runSymbolicRef(repo, args) },
	})

	app.Register(&cli.Command{
		Name:    "version",
		Summary: "Show version information",
		Usage:   "gitcli version",
		Run:     func([]string) int { printVersion(); return 0 },
	})

	// Determine which command will run so we can load the repo only when needed.
	if len(args) > 0 {
		cmd := app.Lookup(args[0])
		if cmd != nil && cmd.NeedsRepo {
			repoPath := os.Getenv("GIT_DIR")
			if repoPath == "" {
				repoPath = "."
			}
			var err error
			repo, err = gitcore.NewRepository(repoPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
				os.Exit(128)
			}
		}
	}

	os.Exit(app.Run(args, cw))
}

func printVersion() {
	fmt.Printf("gitcli %s\n", version)
	fmt.Printf("  commit:     %s\n", commit)
	fmt.Printf("  built:      %s\n", buildDate)
	fmt.Printf("  go version: %s\n", runtime.Version())
	fmt.Printf("  platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
