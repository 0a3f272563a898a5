package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
	"golang.org/x/text/unicode/norm"

	"gitcli/internal/gitcore"
	"gitcli/internal/progress"
)

// addSpinnerThreshold is the file count above which runAdd shows a spinner;
// below it the hashing is fast enough that the animation would just flicker.
const addSpinnerThreshold = 50

// runAdd stages one or more paths. Directories are walked recursively; the
// special path "." stages the entire working tree. Blob hashing for the
// discovered files runs concurrently since each file's SHA-1/zlib write is
// independent of the others.
func runAdd(repo *gitcore.Repository, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: gitcli add <path>...")
		return 1
	}

	paths, err := collectAddPaths(repo, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	idx, err := gitcore.ReadIndex(repo.GitDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	entries := make([]gitcore.IndexEntry, len(paths))

	var sp *progress.Spinner
	if len(paths) > addSpinnerThreshold {
		sp = progress.New(fmt.Sprintf("hashing %d files", len(paths)))
		sp.Start()
		defer sp.Stop()
	}

	var eg errgroup.Group
	var mu sync.Mutex // guards repo.WriteObject's internal object-store writes across goroutines
	for i, relPath := range paths {
		i, relPath := i, relPath
		eg.Go(func() error {
			entry, err := hashAndStatPath(repo, relPath, &mu)
			if err != nil {
				return fmt.Errorf("%s: %w", relPath, err)
			}
			entries[i] = entry
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	for _, entry := range entries {
		idx.Add(entry)
	}

	if err := idx.Write(repo.GitDir()); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	return 0
}

// collectAddPaths expands args (files, directories, or ".") into a
// deduplicated list of working-tree-relative file paths, skipping .git.
// The list is not sorted; it follows the order in which args are expanded.
func collectAddPaths(repo *gitcore.Repository, args []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string

	for _, arg := range args {
		abs := filepath.Join(repo.WorkDir(), arg)
		// Lstat, not Stat: a symlink argument must be staged as the symlink
		// itself (even one pointing at a directory), never followed.
		info, err := os.Lstat(abs)
		if err != nil {
			return nil, fmt.Errorf("pathspec %q did not match any files: %w", arg, err)
		}

		if !info.IsDir() {
			rel, err := filepath.Rel(repo.WorkDir(), abs)
			if err != nil {
				return nil, err
			}
			rel = norm.NFC.String(filepath.ToSlash(rel))
			if !seen[rel] {
				seen[rel] = true
				out = append(out, rel)
			}
			continue
		}

		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if d.Name() == ".git" {
					return filepath.SkipDir
				}
				return nil
			}
			rel, err := filepath.Rel(repo.WorkDir(), path)
			if err != nil {
				return err
			}
			rel = norm.NFC.String(filepath.ToSlash(rel))
			if !seen[rel] {
				seen[rel] = true
				out = append(out, rel)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return out, nil
}

// hashAndStatPath hashes the file at relPath as a blob object, writing it
// into the object store, and builds the IndexEntry recording its stat info.
// mu serializes the underlying object-store writes, which are not safe for
// concurrent use from multiple goroutines.
func hashAndStatPath(repo *gitcore.Repository, relPath string, mu *sync.Mutex) (gitcore.IndexEntry, error) {
	diskPath := filepath.Join(repo.WorkDir(), filepath.FromSlash(relPath))

	// Lstat, not Stat: a symlink must be staged as a 120000 entry recording
	// its target text, never dereferenced into the target's content.
	info, err := os.Lstat(diskPath)
	if err != nil {
		return gitcore.IndexEntry{}, err
	}

	var content []byte
	mode := uint32(0o100644)

	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(diskPath)
		if err != nil {
			return gitcore.IndexEntry{}, err
		}
		content = []byte(target)
		mode = 0o120000
	} else {
		//nolint:gosec // G304: path is derived from the working directory, which is caller-controlled
		content, err = os.ReadFile(diskPath)
		if err != nil {
			return gitcore.IndexEntry{}, err
		}
		if info.Mode()&0o111 != 0 {
			mode = 0o100755
		}
	}

	var st unix.Stat_t
	hasStat := unix.Lstat(diskPath, &st) == nil

	mu.Lock()
	hash, err := repo.WriteObject("blob", content)
	mu.Unlock()
	if err != nil {
		return gitcore.IndexEntry{}, err
	}

	entry := gitcore.IndexEntry{
		Mode:      mode,
		FileSize:  uint32(len(content)), //nolint:gosec // G115: file sizes fit uint32 for this use case
		Hash:      hash,
		Path:      relPath,
		MtimeSec:  uint32(info.ModTime().Unix()),
		MtimeNsec: uint32(info.ModTime().Nanosecond()),
	}

	if hasStat {
		entry.Device = uint32(st.Dev)   //nolint:gosec // G115: truncated device/inode numbers are an accepted index limitation
		entry.Inode = uint32(st.Ino)    //nolint:gosec // G115
		entry.UID = st.Uid
		entry.GID = st.Gid
		entry.CtimeSec = uint32(st.Ctim.Sec)   //nolint:gosec // G115
		entry.CtimeNsec = uint32(st.Ctim.Nsec) //nolint:gosec // G115
	}

	return entry, nil
}
