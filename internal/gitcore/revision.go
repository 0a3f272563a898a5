package gitcore

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// ResolveRevision implements the full revision-expression cascade: literal
// hashes (full or abbreviated), HEAD, ^{type} peeling, ^N/~N parent walks,
// rev:path tree lookups, and finally branch/tag/loose-ref lookup.
func (r *Repository) ResolveRevision(expr string) (Hash, error) {
	if isFullHex(expr) {
		if _, err := r.readObject(Hash(expr)); err != nil {
			return "", newError(ErrNotFound, fmt.Errorf("unknown revision %q", expr))
		}
		return Hash(expr), nil
	}

	if idx := strings.Index(expr, ":"); idx >= 0 && !strings.HasPrefix(expr, "^") {
		return r.resolvePathRevision(expr[:idx], expr[idx+1:])
	}

	if idx := strings.Index(expr, "^{"); idx >= 0 && strings.HasSuffix(expr, "}") {
		base := expr[:idx]
		targetType := expr[idx+2 : len(expr)-1]
		hash, err := r.ResolveRevision(base)
		if err != nil {
			return "", err
		}
		return r.peel(hash, targetType)
	}

	if base, ops, ok := splitSuffixOps(expr); ok {
		hash, err := r.ResolveRevision(base)
		if err != nil {
			return "", err
		}
		return r.applySuffixOps(hash, ops)
	}

	if expr == "HEAD" {
		head := r.Head()
		if head == "" {
			return "", newError(ErrNotFound, fmt.Errorf("HEAD does not point to a commit yet"))
		}
		return head, nil
	}

	if isAbbreviatedHex(expr) {
		return r.ExpandHash(expr)
	}

	r.mu.RLock()
	branchHash, isBranch := r.refs["refs/heads/"+expr]
	tagHash, isTag := r.refs["refs/tags/"+expr]
	directHash, isDirect := r.refs[expr]
	r.mu.RUnlock()
	if isBranch {
		return branchHash, nil
	}
	if isTag {
		return r.peelTag(tagHash)
	}
	if isDirect {
		return directHash, nil
	}
	if hash, err := r.resolveRef(filepath.Join(r.gitDir, expr)); err == nil {
		return hash, nil
	}

	return "", newError(ErrNotFound, fmt.Errorf("cannot resolve reference %q", expr))
}

// revSuffixOp is one parsed "^N" or "~N" suffix operation, applied left to right.
type revSuffixOp struct {
	caret bool // true for ^N (Nth parent), false for ~N (first-parent walk)
	n     int
}

// splitSuffixOps splits trailing ^N/~N sequences off expr. Returns ok=false
// if expr has no such suffix.
func splitSuffixOps(expr string) (base string, ops []revSuffixOp, ok bool) {
	end := len(expr)
	var rev []revSuffixOp

	for end > 0 {
		c := expr[end-1]
		if c != '^' && c != '~' && !(c >= '0' && c <= '9') {
			break
		}
		// Walk backward to find the start of this operator (a run of digits
		// preceded by ^ or ~).
		digitsEnd := end
		i := end
		for i > 0 && expr[i-1] >= '0' && expr[i-1] <= '9' {
			i--
		}
		if i == 0 || (expr[i-1] != '^' && expr[i-1] != '~') {
			break
		}
		opChar := expr[i-1]
		numStr := expr[i:digitsEnd]
		n := 1
		if numStr != "" {
			parsed, err := strconv.Atoi(numStr)
			if err != nil {
				break
			}
			n = parsed
		}
		rev = append(rev, revSuffixOp{caret: opChar == '^', n: n})
		end = i - 1
	}

	if len(rev) == 0 {
		return expr, nil, false
	}
	// rev was built by scanning right-to-left off the end; reverse for
	// left-to-right application.
	ops = make([]revSuffixOp, len(rev))
	for i, op := range rev {
		ops[len(rev)-1-i] = op
	}
	return expr[:end], ops, true
}

// applySuffixOps walks ^N (Nth parent, default/0 meaning) and ~N (first-parent,
// N times) operations starting from hash, in order.
func (r *Repository) applySuffixOps(hash Hash, ops []revSuffixOp) (Hash, error) {
	current := hash
	for _, op := range ops {
		commit, err := r.GetCommit(current)
		if err != nil {
			return "", newError(ErrNotFound, fmt.Errorf("%s is not a commit: %w", current, err))
		}
		if op.caret {
			if op.n == 0 {
				continue // ^0 is the commit itself
			}
			if op.n > len(commit.Parents) {
				return "", newError(ErrNotFound, fmt.Errorf("%s has no parent number %d", current, op.n))
			}
			current = commit.Parents[op.n-1]
		} else {
			for i := 0; i < op.n; i++ {
				c, err := r.GetCommit(current)
				if err != nil {
					return "", newError(ErrNotFound, fmt.Errorf("%s is not a commit: %w", current, err))
				}
				if len(c.Parents) == 0 {
					return "", newError(ErrNotFound, fmt.Errorf("%s has no parent", current))
				}
				current = c.Parents[0]
			}
		}
	}
	return current, nil
}

// peel dereferences hash to the requested object type ("commit", "tree", "blob").
// A tag is recursively dereferenced to its target first.
func (r *Repository) peel(hash Hash, targetType string) (Hash, error) {
	obj, err := r.readObject(hash)
	if err != nil {
		// Could be a blob, which readObject (commit/tree/tag parser) can't parse;
		// GetObjectInfo handles the generic case.
		kind, _, infoErr := r.GetObjectInfo(hash)
		if infoErr != nil {
			return "", newError(ErrNotFound, err)
		}
		if kind == targetType {
			return hash, nil
		}
		return "", newError(ErrInvalid, fmt.Errorf("cannot peel %s (%s) to %s", hash, kind, targetType))
	}

	switch o := obj.(type) {
	case *Tag:
		return r.peel(o.Object, targetType)
	case *Commit:
		if targetType == "commit" {
			return hash, nil
		}
		if targetType == "tree" {
			return o.Tree, nil
		}
		return "", newError(ErrInvalid, fmt.Errorf("cannot peel commit %s to %s", hash, targetType))
	case *Tree:
		if targetType == "tree" {
			return hash, nil
		}
		return "", newError(ErrInvalid, fmt.Errorf("cannot peel tree %s to %s", hash, targetType))
	default:
		return "", newError(ErrInvalid, fmt.Errorf("cannot peel %s to %s", hash, targetType))
	}
}

// peelTag dereferences a tag ref to its ultimate commit, if the ref points at
// an annotated tag object; lightweight tags (pointing directly at a commit)
// are returned unchanged.
func (r *Repository) peelTag(hash Hash) (Hash, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tags {
		if t.ID == hash {
			return t.Object, nil
		}
	}
	return hash, nil
}

// resolvePathRevision resolves "<rev>:<path>" by walking path through the
// tree of the commit/tree that rev resolves to.
func (r *Repository) resolvePathRevision(revExpr, path string) (Hash, error) {
	revHash, err := r.ResolveRevision(revExpr)
	if err != nil {
		return "", err
	}

	treeHash := revHash
	if commit, err := r.GetCommit(revHash); err == nil {
		treeHash = commit.Tree
	}

	if path == "" {
		return treeHash, nil
	}

	components := strings.Split(strings.Trim(path, "/"), "/")
	current := treeHash
	for i, component := range components {
		tree, err := r.GetTree(current)
		if err != nil {
			return "", newError(ErrNotFound, fmt.Errorf("failed to read tree %s: %w", current, err))
		}
		found := false
		for _, e := range tree.Entries {
			if e.Name == component {
				current = e.ID
				found = true
				break
			}
		}
		if !found {
			return "", newError(ErrNotFound, fmt.Errorf("path %q not found", path))
		}
		_ = i
	}
	return current, nil
}

func isFullHex(s string) bool {
	if len(s) != 40 {
		return false
	}
	return isAbbreviatedHex(s)
}

func isAbbreviatedHex(s string) bool {
	if len(s) < 4 || len(s) > 40 {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}
