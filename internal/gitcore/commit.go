package gitcore

import "fmt"

// CreateCommit writes a commit object recording the index's current tree
// against parents, then advances HEAD to point at the new commit. It mirrors
// the merge-commit construction in merge.go but accepts an arbitrary parent
// list so it serves both the root-commit and ordinary-commit cases.
func CreateCommit(repo *Repository, idx *Index, parents []Hash, author, committer Signature, message string) (Hash, error) {
	treeHash, err := idx.BuildTree(repo)
	if err != nil {
		return "", fmt.Errorf("commit: building tree: %w", err)
	}

	var parentLines string
	for _, p := range parents {
		parentLines += fmt.Sprintf("parent %s\n", p)
	}

	body := fmt.Sprintf("tree %s\n%sauthor %s\ncommitter %s\n\n%s\n",
		treeHash, parentLines, FormatSignatureLine(author), FormatSignatureLine(committer), message)

	commitHash, err := repo.WriteObject(objectTypeCommit, []byte(body))
	if err != nil {
		return "", fmt.Errorf("commit: writing commit object: %w", err)
	}

	if err := advanceHead(repo, commitHash); err != nil {
		return "", err
	}

	return commitHash, nil
}
