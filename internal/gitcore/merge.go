package gitcore

import (
	"container/heap"
	"fmt"
	"os"
	"path/filepath"
)

// MergeBase finds the best common ancestor of two commits using a
// bidirectional BFS with date-ordered priority queues.
// Returns an error if no common ancestor exists.
func MergeBase(repo *Repository, ours, theirs Hash) (Hash, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	cm := repo.commitsMap()

	oursCommit, ok := cm[ours]
	if !ok {
		return "", fmt.Errorf("commit not found: %s", ours)
	}
	theirsCommit, ok := cm[theirs]
	if !ok {
		return "", fmt.Errorf("commit not found: %s", theirs)
	}

	// Track which sides have visited each commit.
	// Bit 1 = ours, bit 2 = theirs.
	const sideOurs = 1
	const sideTheirs = 2

	visited := make(map[Hash]int)

	h := &commitHeap{}
	heap.Init(h)

	visited[ours] = sideOurs
	visited[theirs] |= sideTheirs

	heap.Push(h, oursCommit)
	if ours != theirs {
		heap.Push(h, theirsCommit)
	} else {
		return ours, nil
	}

	for h.Len() > 0 {
		c := heap.Pop(h).(*Commit) //nolint:errcheck

		side := visited[c.ID]
		if side == sideOurs|sideTheirs {
			return c.ID, nil
		}

		for _, parentHash := range c.Parents {
			prevSide := visited[parentHash]
			newSide := prevSide | side

			if newSide == sideOurs|sideTheirs {
				return parentHash, nil
			}

			if newSide != prevSide {
				visited[parentHash] = newSide
				if parent, found := cm[parentHash]; found {
					heap.Push(h, parent)
				}
			}
		}
	}

	return "", fmt.Errorf("no common ancestor between %s and %s", ours.Short(), theirs.Short())
}

// MergePreview computes a preview of merging theirs into ours without
// modifying the repository. It finds the merge base, diffs both sides
// against it, and classifies each changed file.
func MergePreview(repo *Repository, oursHash, theirsHash Hash) (*MergePreviewResult, error) {
	baseHash, err := MergeBase(repo, oursHash, theirsHash)
	if err != nil {
		return nil, err
	}

	// Look up commits to get tree hashes.
	oursCommit, err := repo.GetCommit(oursHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get ours commit: %w", err)
	}
	theirsCommit, err := repo.GetCommit(theirsHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get theirs commit: %w", err)
	}

	var baseTree Hash
	if baseHash != "" {
		baseCommit, err := repo.GetCommit(baseHash)
		if err != nil {
			return nil, fmt.Errorf("failed to get base commit: %w", err)
		}
		baseTree = baseCommit.Tree
	}

	oursDiff, err := TreeDiff(repo, baseTree, oursCommit.Tree, "")
	if err != nil {
		return nil, fmt.Errorf("failed to diff ours against base: %w", err)
	}

	theirsDiff, err := TreeDiff(repo, baseTree, theirsCommit.Tree, "")
	if err != nil {
		return nil, fmt.Errorf("failed to diff theirs against base: %w", err)
	}

	// Index diffs by path.
	oursMap := make(map[string]DiffEntry, len(oursDiff))
	for _, e := range oursDiff {
		oursMap[e.Path] = e
	}
	theirsMap := make(map[string]DiffEntry, len(theirsDiff))
	for _, e := range theirsDiff {
		theirsMap[e.Path] = e
	}

	// Union of all changed paths.
	allPaths := make(map[string]struct{})
	for p := range oursMap {
		allPaths[p] = struct{}{}
	}
	for p := range theirsMap {
		allPaths[p] = struct{}{}
	}

	entries := make([]MergePreviewEntry, 0, len(allPaths))
	conflicts := 0

	for path := range allPaths {
		oursEntry, inOurs := oursMap[path]
		theirsEntry, inTheirs := theirsMap[path]

		entry := MergePreviewEntry{
			Path:     path,
			IsBinary: (inOurs && oursEntry.IsBinary) || (inTheirs && theirsEntry.IsBinary),
		}

		if inOurs {
			entry.OursStatus = oursEntry.Status.String()
			entry.OursHash = oursEntry.NewHash
			entry.BaseHash = oursEntry.OldHash
		}
		if inTheirs {
			entry.TheirsStatus = theirsEntry.Status.String()
			entry.TheirsHash = theirsEntry.NewHash
			if entry.BaseHash == "" {
				entry.BaseHash = theirsEntry.OldHash
			}
		}

		switch {
		case inOurs && !inTheirs:
			// Only ours changed — clean merge.
			entry.ConflictType = ConflictNone

		case !inOurs && inTheirs:
			// Only theirs changed — clean merge.
			entry.ConflictType = ConflictNone

		case inOurs && inTheirs:
			entry.ConflictType = classifyConflict(oursEntry, theirsEntry)
		}

		if entry.ConflictType != ConflictNone {
			conflicts++
		}

		entries = append(entries, entry)
	}

	return &MergePreviewResult{
		MergeBaseHash: baseHash,
		OursHash:      oursHash,
		TheirsHash:    theirsHash,
		Entries:       entries,
		Stats: MergePreviewStats{
			TotalFiles: len(entries),
			Conflicts:  conflicts,
			CleanMerge: len(entries) - conflicts,
		},
	}, nil
}

// classifyConflict determines the conflict type when both sides changed the same file.
func classifyConflict(ours, theirs DiffEntry) ConflictType {
	// Both sides made the same change (same resulting hash) — trivial merge.
	if ours.NewHash != "" && ours.NewHash == theirs.NewHash {
		return ConflictNone
	}

	// Both added the same path.
	if ours.Status == DiffStatusAdded && theirs.Status == DiffStatusAdded {
		return ConflictBothAdded
	}

	// One deleted, other modified.
	if (ours.Status == DiffStatusDeleted && theirs.Status != DiffStatusDeleted) ||
		(ours.Status != DiffStatusDeleted && theirs.Status == DiffStatusDeleted) {
		return ConflictDeleteModify
	}

	// Both deleted — no conflict.
	if ours.Status == DiffStatusDeleted && theirs.Status == DiffStatusDeleted {
		return ConflictNone
	}

	// Both modified to different hashes — content conflict.
	return ConflictConflicting
}

// IsAncestor reports whether ancestor is reachable by walking parent links
// from descendant (including descendant == ancestor).
func IsAncestor(repo *Repository, ancestor, descendant Hash) (bool, error) {
	if ancestor == descendant {
		return true, nil
	}
	cm := repo.Commits()

	visited := make(map[Hash]bool)
	queue := []Hash{descendant}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if h == ancestor {
			return true, nil
		}
		if visited[h] {
			continue
		}
		visited[h] = true
		c, ok := cm[h]
		if !ok {
			continue
		}
		queue = append(queue, c.Parents...)
	}
	return false, nil
}

// MergeResult describes the outcome of PerformMerge.
type MergeResult struct {
	// CommitHash is the resulting HEAD commit. Set for fast-forwards, clean
	// merges, and the already-up-to-date case; empty when conflicts remain
	// and a manual commit is required to finish the merge.
	CommitHash Hash
	// FastForward is true when no merge commit was created because HEAD was
	// simply advanced to theirs.
	FastForward bool
	// AlreadyUpToDate is true when theirs was already an ancestor of HEAD.
	AlreadyUpToDate bool
	// Conflicts lists the paths that received conflict markers.
	Conflicts []string
}

// mergeHeadFile and mergeMsgFile name the metadata files written under the
// git directory while a merge has unresolved conflicts, mirroring MERGE_HEAD
// and MERGE_MSG.
const (
	mergeHeadFile = "MERGE_HEAD"
	mergeMsgFile  = "MERGE_MSG"
)

// PerformMerge implements §4.6: it finds the merge base, fast-forwards when
// possible, and otherwise three-way-merges every file that changed on both
// sides, writing a two-parent merge commit when the result is clean. When
// conflicts remain, it writes MERGE_HEAD/MERGE_MSG and conflict markers into
// the working tree and returns a MergeResult with a non-empty Conflicts list
// and an empty CommitHash; the caller (the commit command) is expected to
// finish the merge once conflicts are resolved.
func PerformMerge(repo *Repository, theirsHash Hash, committer Signature, message string) (*MergeResult, error) {
	oursHash := repo.Head()

	if oursHash == "" {
		// No commits yet on our side — merging is equivalent to a fast-forward.
		if err := fastForwardTo(repo, theirsHash); err != nil {
			return nil, err
		}
		return &MergeResult{CommitHash: theirsHash, FastForward: true}, nil
	}

	upToDate, err := IsAncestor(repo, theirsHash, oursHash)
	if err != nil {
		return nil, err
	}
	if upToDate {
		return &MergeResult{CommitHash: oursHash, AlreadyUpToDate: true}, nil
	}

	canFastForward, err := IsAncestor(repo, oursHash, theirsHash)
	if err != nil {
		return nil, err
	}
	if canFastForward {
		if err := fastForwardTo(repo, theirsHash); err != nil {
			return nil, err
		}
		return &MergeResult{CommitHash: theirsHash, FastForward: true}, nil
	}

	preview, err := MergePreview(repo, oursHash, theirsHash)
	if err != nil {
		return nil, err
	}

	oursCommit, err := repo.GetCommit(oursHash)
	if err != nil {
		return nil, fmt.Errorf("merge: reading ours commit: %w", err)
	}

	idx, err := CheckoutTree(repo, oursCommit.Tree)
	if err != nil {
		return nil, fmt.Errorf("merge: rebuilding index: %w", err)
	}

	var conflictPaths []string
	for _, entry := range preview.Entries {
		switch entry.ConflictType {
		case ConflictNone:
			if entry.TheirsStatus != "" {
				if err := applyCleanMergeEntry(repo, idx, entry); err != nil {
					return nil, err
				}
			}
		default:
			conflicted, err := applyConflictedMergeEntry(repo, idx, entry)
			if err != nil {
				return nil, err
			}
			if conflicted {
				conflictPaths = append(conflictPaths, entry.Path)
			}
		}
	}

	if err := idx.Write(repo.GitDir()); err != nil {
		return nil, fmt.Errorf("merge: writing index: %w", err)
	}

	if len(conflictPaths) > 0 {
		if err := writeMergeState(repo, theirsHash, message); err != nil {
			return nil, err
		}
		return &MergeResult{Conflicts: conflictPaths}, nil
	}

	treeHash, err := idx.BuildTree(repo)
	if err != nil {
		return nil, fmt.Errorf("merge: building tree: %w", err)
	}

	body := fmt.Sprintf("tree %s\nparent %s\nparent %s\nauthor %s\ncommitter %s\n\n%s\n",
		treeHash, oursHash, theirsHash, FormatSignatureLine(committer), FormatSignatureLine(committer), message)
	commitHash, err := repo.WriteObject(objectTypeCommit, []byte(body))
	if err != nil {
		return nil, fmt.Errorf("merge: writing commit: %w", err)
	}

	if err := advanceHead(repo, commitHash); err != nil {
		return nil, err
	}

	return &MergeResult{CommitHash: commitHash}, nil
}

// applyCleanMergeEntry stages the side that changed (theirs, since ours is
// already the checkout base) when only one side touched a path.
func applyCleanMergeEntry(repo *Repository, idx *Index, entry MergePreviewEntry) error {
	if entry.TheirsStatus == StatusDeleted {
		idx.Remove(entry.Path)
		diskPath := filepath.Join(repo.WorkDir(), filepath.FromSlash(entry.Path))
		if err := os.Remove(diskPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("merge: removing %s: %w", entry.Path, err)
		}
		return nil
	}
	return writeMergedBlob(repo, idx, entry.Path, entry.TheirsHash, "100644")
}

// applyConflictedMergeEntry resolves one conflicting path: delete/modify
// conflicts keep the modified side's content per §4.6 and are still flagged
// as conflicts; content conflicts and both-added conflicts run the three-way
// text merge and write conflict markers when regions remain unresolved.
func applyConflictedMergeEntry(repo *Repository, idx *Index, entry MergePreviewEntry) (bool, error) {
	if entry.ConflictType == ConflictDeleteModify {
		keepHash := entry.OursHash
		if keepHash == "" {
			keepHash = entry.TheirsHash
		}
		if err := writeMergedBlob(repo, idx, entry.Path, keepHash, "100644"); err != nil {
			return false, err
		}
		return true, nil
	}

	diff, err := ComputeThreeWayDiff(repo, entry.BaseHash, entry.OursHash, entry.TheirsHash, entry.Path)
	if err != nil {
		return false, fmt.Errorf("merge: three-way diff for %s: %w", entry.Path, err)
	}
	if diff.IsBinary {
		// Binary conflicts cannot carry text markers; keep ours and flag it.
		if err := writeMergedBlob(repo, idx, entry.Path, entry.OursHash, "100644"); err != nil {
			return false, err
		}
		return true, nil
	}

	merged := RenderMergedText(diff, DefaultMergeRenderOptions())
	diskPath := filepath.Join(repo.WorkDir(), filepath.FromSlash(entry.Path))
	if err := os.MkdirAll(filepath.Dir(diskPath), 0o755); err != nil {
		return false, fmt.Errorf("merge: mkdir for %s: %w", entry.Path, err)
	}
	if err := atomicWriteFile(diskPath, []byte(merged.Content), 0o644); err != nil {
		return false, fmt.Errorf("merge: writing %s: %w", entry.Path, err)
	}

	if !merged.HasConflicts {
		blobHash, err := repo.WriteObject(objectTypeBlob, []byte(merged.Content))
		if err != nil {
			return false, err
		}
		idx.Add(IndexEntry{Mode: 0o100644, Hash: blobHash, Path: entry.Path, FileSize: uint32(len(merged.Content))}) //nolint:gosec
		return false, nil
	}

	// Leave conflicted content on disk and out of the index (git stages all
	// three conflict stages; tracking the clean stage-0 entry is deferred
	// until the conflict is resolved and the path is re-added).
	idx.Remove(entry.Path)
	return true, nil
}

// writeMergedBlob stages blobHash at path, reading its content to materialize
// the working-tree file and recording a normal (stage-0) index entry.
func writeMergedBlob(repo *Repository, idx *Index, path string, blobHash Hash, mode string) error {
	content, err := repo.GetBlob(blobHash)
	if err != nil {
		return fmt.Errorf("merge: reading blob for %s: %w", path, err)
	}
	diskPath := filepath.Join(repo.WorkDir(), filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(diskPath), 0o755); err != nil {
		return fmt.Errorf("merge: mkdir for %s: %w", path, err)
	}
	if err := atomicWriteFile(diskPath, content, 0o644); err != nil {
		return fmt.Errorf("merge: writing %s: %w", path, err)
	}
	idx.Add(IndexEntry{Mode: modeFromTreeEntry(mode), Hash: blobHash, Path: path, FileSize: uint32(len(content))}) //nolint:gosec
	return nil
}

// fastForwardTo materializes theirsHash's tree into the working directory and
// index, then advances HEAD.
func fastForwardTo(repo *Repository, theirsHash Hash) error {
	commit, err := repo.GetCommit(theirsHash)
	if err != nil {
		return fmt.Errorf("merge: reading target commit: %w", err)
	}
	oldIdx, _ := ReadIndex(repo.GitDir())
	newIdx, err := CheckoutTree(repo, commit.Tree)
	if err != nil {
		return fmt.Errorf("merge: checking out target tree: %w", err)
	}
	if err := RemoveStaleWorkingTreeFiles(repo, oldIdx, newIdx); err != nil {
		return err
	}
	if err := newIdx.Write(repo.GitDir()); err != nil {
		return fmt.Errorf("merge: writing index: %w", err)
	}
	return advanceHead(repo, theirsHash)
}

// advanceHead updates the current branch ref (or HEAD directly, if detached)
// to point at commitHash.
func advanceHead(repo *Repository, commitHash Hash) error {
	if repo.HeadDetached() {
		return repo.SetHead(commitHash, "", true)
	}
	return repo.UpdateRef(repo.HeadRef(), commitHash)
}

// writeMergeState records MERGE_HEAD and MERGE_MSG so a later commit knows it
// is completing a merge (picking up a second parent) and --abort knows what
// to undo.
func writeMergeState(repo *Repository, theirsHash Hash, message string) error {
	if err := atomicWriteFile(filepath.Join(repo.GitDir(), mergeHeadFile), []byte(string(theirsHash)+"\n"), 0o644); err != nil {
		return newError(ErrIO, fmt.Errorf("write MERGE_HEAD: %w", err))
	}
	if err := atomicWriteFile(filepath.Join(repo.GitDir(), mergeMsgFile), []byte(message+"\n"), 0o644); err != nil {
		return newError(ErrIO, fmt.Errorf("write MERGE_MSG: %w", err))
	}
	return nil
}

// ReadMergeState reports whether a merge is in progress (MERGE_HEAD exists)
// and, if so, the pending merge parent and message.
func ReadMergeState(repo *Repository) (theirsHash Hash, message string, inProgress bool, err error) {
	headPath := filepath.Join(repo.GitDir(), mergeHeadFile)
	data, readErr := os.ReadFile(headPath) //nolint:gosec // G304: path is derived from the repository's own git directory
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return "", "", false, nil
		}
		return "", "", false, newError(ErrIO, readErr)
	}
	hash, err := NewHash(trimNewline(string(data)))
	if err != nil {
		return "", "", false, newError(ErrInvalid, fmt.Errorf("invalid MERGE_HEAD: %w", err))
	}

	msgData, err := os.ReadFile(filepath.Join(repo.GitDir(), mergeMsgFile)) //nolint:gosec // G304: same as above
	if err != nil && !os.IsNotExist(err) {
		return "", "", false, newError(ErrIO, err)
	}
	return hash, trimNewline(string(msgData)), true, nil
}

// ClearMergeState removes MERGE_HEAD and MERGE_MSG, completing or aborting a
// merge.
func ClearMergeState(repo *Repository) error {
	for _, name := range []string{mergeHeadFile, mergeMsgFile} {
		path := filepath.Join(repo.GitDir(), name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return newError(ErrIO, err)
		}
	}
	return nil
}

// AbortMerge restores HEAD's tree into the working directory and index and
// clears merge metadata, per §4.6's "merge --abort".
func AbortMerge(repo *Repository) error {
	headHash := repo.Head()
	oldIdx, _ := ReadIndex(repo.GitDir())

	var treeHash Hash
	if headHash != "" {
		commit, err := repo.GetCommit(headHash)
		if err != nil {
			return fmt.Errorf("merge abort: reading HEAD commit: %w", err)
		}
		treeHash = commit.Tree
	}

	newIdx, err := CheckoutTree(repo, treeHash)
	if err != nil {
		return fmt.Errorf("merge abort: restoring tree: %w", err)
	}
	if err := RemoveStaleWorkingTreeFiles(repo, oldIdx, newIdx); err != nil {
		return err
	}
	if err := newIdx.Write(repo.GitDir()); err != nil {
		return fmt.Errorf("merge abort: writing index: %w", err)
	}
	return ClearMergeState(repo)
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
