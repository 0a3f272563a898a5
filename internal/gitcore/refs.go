package gitcore

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// loadRefs loads all Git references (branches, tags) into the refs map.
func (r *Repository) loadRefs() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.loadLooseRefs("heads"); err != nil {
		return fmt.Errorf("failed to load loose branches: %w", err)
	}
	if err := r.loadLooseRefs("tags"); err != nil {
		return fmt.Errorf("failed to load loose tags: %w", err)
	}
	if err := r.loadPackedRefs(); err != nil {
		return fmt.Errorf("failed to load packed refs: %w", err)
	}
	if err := r.loadHEAD(); err != nil {
		return fmt.Errorf("failed to load head: %w", err)
	}

	return nil
}

// loadLooseRefs recursively loads all refs in a directory.
// prefix is like "heads" for branches, or "tags" for tags.
func (r *Repository) loadLooseRefs(prefix string) error {
	refsDir := filepath.Join(r.gitDir, "refs", prefix)

	if _, err := os.Stat(refsDir); os.IsNotExist(err) {
		// No refs of this type yet (e.g., new repo with no tags), this is ok.
		return nil
	} else if err != nil {
		return err
	}

	return filepath.Walk(refsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(r.gitDir, path)
		if err != nil {
			return err
		}

		refName := filepath.ToSlash(relPath)
		hash, err := r.resolveRef(path)
		if err != nil {
			// Log the error but continue with other potentially valid refs.
			log.Printf("error resolving ref: %v", err)
			return nil
		}

		r.refs[refName] = hash
		return nil
	})
}

// loadPackedRefs reads the packed-refs file and loads all refs within.
func (r *Repository) loadPackedRefs() error {
	packedRefsFile := filepath.Join(r.gitDir, "packed-refs")

	//nolint:gosec // G304: Packed-refs path is controlled by git repository structure
	file, err := os.Open(packedRefsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.Printf("failed to close packed-refs file: %v", err)
		}
	}()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "^") {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) != 2 {
			continue
		}

		hash, err := NewHash(parts[0])
		if err != nil {
			continue
		}

		refName := parts[1]
		r.refs[refName] = hash
	}

	return scanner.Err()
}

// loadHEAD reads and caches HEAD information.
func (r *Repository) loadHEAD() error {
	headPath := filepath.Join(r.gitDir, "HEAD")
	//nolint:gosec // G304: HEAD path is controlled by git repository structure
	content, err := os.ReadFile(headPath)
	if err != nil {
		return fmt.Errorf("failed to read HEAD: %w", err)
	}

	line := strings.TrimSpace(string(content))

	if strings.HasPrefix(line, "ref: ") {
		r.headRef = strings.TrimPrefix(line, "ref: ")
		r.headDetached = false

		if hash, exists := r.refs[r.headRef]; exists {
			r.head = hash
		} else {
			r.head = "" // New repository with no commits, this is ok.
		}
	} else {
		r.headDetached = true
		r.headRef = ""

		hash, err := NewHash(line)
		if err != nil {
			return fmt.Errorf("invalid HEAD: %w", err)
		}
		r.head = hash
	}

	return nil
}

// UpdateRef writes hash into refs/<kind>/<name> (kind is "heads" or "tags")
// atomically and updates the in-memory refs map. If HEAD is a symbolic ref
// pointing at this ref, the cached head hash is advanced too.
func (r *Repository) UpdateRef(refName string, hash Hash) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	path := filepath.Join(r.gitDir, filepath.FromSlash(refName))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return newError(ErrIO, err)
	}
	if err := atomicWriteFile(path, []byte(string(hash)+"\n"), 0o644); err != nil {
		return newError(ErrIO, fmt.Errorf("write ref %s: %w", refName, err))
	}

	r.refs[refName] = hash
	if !r.headDetached && r.headRef == refName {
		r.head = hash
	}
	return nil
}

// DeleteRef removes a ref file and its in-memory entry.
func (r *Repository) DeleteRef(refName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	path := filepath.Join(r.gitDir, filepath.FromSlash(refName))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return newError(ErrIO, err)
	}
	delete(r.refs, refName)
	return nil
}

// SetHead points HEAD at a branch ref (symbolic) if detach is false, or
// directly at a commit hash (detached) if detach is true.
func (r *Repository) SetHead(target Hash, refName string, detach bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	headPath := filepath.Join(r.gitDir, "HEAD")
	var content string
	if detach {
		content = string(target) + "\n"
	} else {
		content = "ref: " + refName + "\n"
	}

	if err := atomicWriteFile(headPath, []byte(content), 0o644); err != nil {
		return newError(ErrIO, fmt.Errorf("write HEAD: %w", err))
	}

	r.head = target
	r.headDetached = detach
	if detach {
		r.headRef = ""
	} else {
		r.headRef = refName
	}
	return nil
}

// CreateBranch creates refs/heads/<name> pointing at target. Fails with
// ErrConflict if the branch already exists.
func (r *Repository) CreateBranch(name string, target Hash) error {
	refName := "refs/heads/" + name
	r.mu.RLock()
	_, exists := r.refs[refName]
	r.mu.RUnlock()
	if exists {
		return newError(ErrConflict, fmt.Errorf("branch %q already exists", name))
	}
	return r.UpdateRef(refName, target)
}

// DeleteBranch removes refs/heads/<name>.
func (r *Repository) DeleteBranch(name string) error {
	return r.DeleteRef("refs/heads/" + name)
}

// RenameBranch moves refs/heads/<oldName> to refs/heads/<newName>, updating
// HEAD if it symbolically pointed at the old name.
func (r *Repository) RenameBranch(oldName, newName string) error {
	oldRef := "refs/heads/" + oldName
	newRef := "refs/heads/" + newName

	r.mu.RLock()
	hash, exists := r.refs[oldRef]
	_, clash := r.refs[newRef]
	wasHead := !r.headDetached && r.headRef == oldRef
	r.mu.RUnlock()

	if !exists {
		return newError(ErrNotFound, fmt.Errorf("branch %q not found", oldName))
	}
	if clash {
		return newError(ErrConflict, fmt.Errorf("branch %q already exists", newName))
	}

	if err := r.UpdateRef(newRef, hash); err != nil {
		return err
	}
	if err := r.DeleteRef(oldRef); err != nil {
		return err
	}
	if wasHead {
		return r.SetHead(hash, newRef, false)
	}
	return nil
}

// CreateLightweightTag creates refs/tags/<name> pointing directly at target.
func (r *Repository) CreateLightweightTag(name string, target Hash) error {
	refName := "refs/tags/" + name
	r.mu.RLock()
	_, exists := r.refs[refName]
	r.mu.RUnlock()
	if exists {
		return newError(ErrConflict, fmt.Errorf("tag %q already exists", name))
	}
	return r.UpdateRef(refName, target)
}

// CreateAnnotatedTag writes a tag object referencing target, then points
// refs/tags/<name> at the new tag object's hash.
func (r *Repository) CreateAnnotatedTag(name string, target Hash, targetType ObjectType, tagger Signature, message string) (Hash, error) {
	refName := "refs/tags/" + name
	r.mu.RLock()
	_, exists := r.refs[refName]
	r.mu.RUnlock()
	if exists {
		return "", newError(ErrConflict, fmt.Errorf("tag %q already exists", name))
	}

	body := fmt.Sprintf("object %s\ntype %s\ntag %s\ntagger %s\n\n%s\n",
		target, targetType, name, FormatSignatureLine(tagger), message)

	tagHash, err := r.WriteObject(objectTypeTag, []byte(body))
	if err != nil {
		return "", err
	}
	if err := r.UpdateRef(refName, tagHash); err != nil {
		return "", err
	}
	return tagHash, nil
}

// DeleteTag removes refs/tags/<name>.
func (r *Repository) DeleteTag(name string) error {
	return r.DeleteRef("refs/tags/" + name)
}

// resolveRef reads a single ref file and returns its hash.
// Handles both direct hashes and symbolic refs.
func (r *Repository) resolveRef(path string) (Hash, error) {
	//nolint:gosec // G304: Ref paths are controlled by git repository structure
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	line := strings.TrimSpace(string(content))

	if strings.HasPrefix(line, "ref: ") {
		targetRef := strings.TrimPrefix(line, "ref: ")
		targetPath := filepath.Join(r.gitDir, targetRef)
		return r.resolveRef(targetPath)
	}

	hash, err := NewHash(line)
	if err != nil {
		return "", fmt.Errorf("invalid hash in ref file %s: %w", path, err)
	}
	return hash, nil
}
