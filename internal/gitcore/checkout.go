package gitcore

import (
	"fmt"
	"os"
	"path/filepath"
)

// CheckoutTree writes every blob in the tree rooted at treeHash into the
// repository's working directory and returns a fresh in-memory Index
// reflecting the tree's contents. The returned Index is not yet written to
// disk; callers persist it via Index.Write once any additional staging is
// done.
func CheckoutTree(repo *Repository, treeHash Hash) (*Index, error) {
	idx := &Index{Version: 2, Entries: make([]IndexEntry, 0), ByPath: make(map[string]*IndexEntry)}
	if treeHash != "" {
		if err := checkoutTreeNode(repo, treeHash, "", idx); err != nil {
			return nil, err
		}
	}
	idx.reindex()
	return idx, nil
}

func checkoutTreeNode(repo *Repository, treeHash Hash, prefix string, idx *Index) error {
	tree, err := repo.GetTree(treeHash)
	if err != nil {
		return fmt.Errorf("checkout: reading tree %s: %w", treeHash, err)
	}

	for _, entry := range tree.Entries {
		path := entry.Name
		if prefix != "" {
			path = prefix + "/" + entry.Name
		}

		if isTreeEntry(entry) {
			if err := checkoutTreeNode(repo, entry.ID, path, idx); err != nil {
				return err
			}
			continue
		}
		if isSubmodule(entry) {
			continue // submodules are out of scope; no working-tree materialization
		}

		content, err := repo.GetBlob(entry.ID)
		if err != nil {
			return fmt.Errorf("checkout: reading blob %s (%s): %w", entry.ID, path, err)
		}

		diskPath := filepath.Join(repo.WorkDir(), filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(diskPath), 0o755); err != nil {
			return fmt.Errorf("checkout: mkdir for %s: %w", path, err)
		}

		if entry.Mode == "120000" {
			// Symlink: the blob content is the link target text, not file
			// bytes to write verbatim.
			if err := os.RemoveAll(diskPath); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("checkout: removing existing %s: %w", path, err)
			}
			if err := os.Symlink(string(content), diskPath); err != nil {
				return fmt.Errorf("checkout: creating symlink %s: %w", path, err)
			}
		} else {
			mode := os.FileMode(0o644)
			if entry.Mode == "100755" {
				mode = 0o755
			}
			if err := atomicWriteFile(diskPath, content, mode); err != nil {
				return fmt.Errorf("checkout: writing %s: %w", path, err)
			}
		}

		var size, mtimeSec, mtimeNsec uint32
		// Lstat, not Stat: a symlink's own metadata is wanted, not its
		// target's (which may not even exist on disk).
		if info, statErr := os.Lstat(diskPath); statErr == nil {
			size = uint32(info.Size()) //nolint:gosec // file sizes fit uint32 for this use case
			mtimeSec = uint32(info.ModTime().Unix())
			mtimeNsec = uint32(info.ModTime().Nanosecond())
		}

		idx.Entries = append(idx.Entries, IndexEntry{
			Mode:      modeFromTreeEntry(entry.Mode),
			FileSize:  size,
			Hash:      entry.ID,
			Path:      path,
			MtimeSec:  mtimeSec,
			MtimeNsec: mtimeNsec,
		})
	}
	return nil
}

func modeFromTreeEntry(mode string) uint32 {
	switch mode {
	case "100755":
		return 0o100755
	case "120000":
		return 0o120000
	case "160000":
		return 0o160000
	default:
		return 0o100644
	}
}

// RemoveStaleWorkingTreeFiles deletes any file tracked in oldIdx but absent
// from newIdx from the working directory, used by checkout and fast-forward
// merge to clean up files that no longer exist in the target tree.
func RemoveStaleWorkingTreeFiles(repo *Repository, oldIdx, newIdx *Index) error {
	if oldIdx == nil {
		return nil
	}
	for path := range oldIdx.ByPath {
		if _, stillPresent := newIdx.ByPath[path]; stillPresent {
			continue
		}
		diskPath := filepath.Join(repo.WorkDir(), filepath.FromSlash(path))
		if err := os.Remove(diskPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("checkout: removing stale %s: %w", path, err)
		}
	}
	return nil
}
