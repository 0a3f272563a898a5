// Package gitcore provides pure Go implementation of Git object parsing and repository traversal.
package gitcore

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"context"
	"crypto/sha1" //nolint:gosec // G505: SHA-1 is the object-identity algorithm, not used for security
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	objectTypeCommit = "commit"
	objectTypeTree   = "tree"
	objectTypeBlob   = "blob"
	objectTypeTag    = "tag"
)

// loadObjects loads all Git objects into the object store.
// It traverses all references and their histories, then builds the
// hash-to-commit index used by commitsMap.
// It assumes that all references have already been loaded.
func (r *Repository) loadObjects() error {
	visited := make(map[Hash]bool)
	for _, ref := range r.refs {
		r.traverseObjects(ref, visited)
	}

	r.commitMap = make(map[Hash]*Commit, len(r.commits))
	for _, c := range r.commits {
		r.commitMap[c.ID] = c
	}
	return nil
}

// traverseObjects recursively loads all objects beginning from the provided reference,
// using the visited map to avoid processing the same object multiple times.
func (r *Repository) traverseObjects(ref Hash, visited map[Hash]bool) {
	if visited[ref] {
		return
	}
	visited[ref] = true

	object, err := r.readObject(ref)
	if err != nil {
		// Log the error but continue with other potentially valid objects.
		log.Printf("error traversing object: %v", err)
		return
	}

	switch object.Type() {
	case CommitObject:
		commit := object.(*Commit)
		r.commits = append(r.commits, commit)
		for _, parent := range commit.Parents {
			r.traverseObjects(parent, visited)
		}
	case TagObject:
		tag := object.(*Tag)
		r.tags = append(r.tags, tag)
		r.traverseObjects(tag.Object, visited)
	default:
		// Unrecognized type, log the error but continue on.
		log.Printf("unsupported object type: %d", object.Type())
	}
}

// readObject parses an object from its hash.
// Objects in this core are always loose (packfiles are out of scope).
func (r *Repository) readObject(id Hash) (Object, error) {
	header, content, err := r.readLooseObjectRaw(id)
	if err != nil {
		return nil, newError(ErrNotFound, fmt.Errorf("object not found: %s: %w", id, err))
	}

	switch {
	case strings.HasPrefix(header, objectTypeCommit):
		return parseCommitBody(content, id)
	case strings.HasPrefix(header, objectTypeTag):
		return parseTagBody(content, id)
	case strings.HasPrefix(header, objectTypeTree):
		return parseTreeBody(content, id)
	default:
		return nil, newError(ErrInvalid, fmt.Errorf("unrecognized loose object type: %q for %s", header, id))
	}
}

// readObjectData reads any object and returns its raw body and type byte.
func (r *Repository) readObjectData(id Hash) ([]byte, byte, error) {
	header, content, err := r.readLooseObjectRaw(id)
	if err != nil {
		return nil, 0, newError(ErrNotFound, fmt.Errorf("object not found: %s: %w", id, err))
	}
	typeNum, err := objectTypeFromHeader(header)
	if err != nil {
		return nil, 0, err
	}
	return content, typeNum, nil
}

// readLooseObjectRaw reads a loose object from disk and returns its header and content.
// This is the common implementation used by both readObject and readObjectData.
func (r *Repository) readLooseObjectRaw(id Hash) (header string, content []byte, err error) {
	objectPath := filepath.Join(r.gitDir, "objects", string(id)[:2], string(id)[2:])

	//nolint:gosec // G304: Object paths are controlled by git repository structure
	file, err := os.Open(objectPath)
	if err != nil {
		return "", nil, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.Printf("failed to close loose object file: %v", err)
		}
	}()

	data, err := readCompressedData(file)
	if err != nil {
		return "", nil, fmt.Errorf("invalid compressed data: %w", err)
	}

	nullIdx := bytes.IndexByte(data, 0)
	if nullIdx == -1 {
		return "", nil, fmt.Errorf("invalid object format")
	}

	header, content = string(data[:nullIdx]), data[nullIdx+1:]
	return header, content, nil
}

// objectTypeFromHeader converts a Git object header string to its ObjectType byte.
func objectTypeFromHeader(header string) (byte, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return 0, newError(ErrInvalid, fmt.Errorf("invalid header: %s", header))
	}

	switch parts[0] {
	case objectTypeCommit:
		return byte(CommitObject), nil
	case objectTypeTree:
		return byte(TreeObject), nil
	case objectTypeBlob:
		return byte(BlobObject), nil
	case objectTypeTag:
		return byte(TagObject), nil
	default:
		return 0, newError(ErrInvalid, fmt.Errorf("unsupported object type: %s", parts[0]))
	}
}

// parseCommitBody parses the body of a commit object into a Commit struct.
func parseCommitBody(body []byte, id Hash) (*Commit, error) {
	commit := &Commit{ID: id}
	scanner := bufio.NewScanner(bytes.NewReader(body))
	inMessage := false
	var messageLines []string

	for scanner.Scan() {
		line := scanner.Text()

		if inMessage {
			messageLines = append(messageLines, line)
			continue
		}
		if line == "" {
			inMessage = true
			continue
		}

		if strings.HasPrefix(line, "parent ") {
			parent, err := NewHash(strings.TrimPrefix(line, "parent "))
			if err != nil {
				return nil, fmt.Errorf("invalid parent hash: %w", err)
			}
			commit.Parents = append(commit.Parents, parent)
		} else if strings.HasPrefix(line, "tree ") {
			tree, err := NewHash(strings.TrimPrefix(line, "tree "))
			if err != nil {
				return nil, fmt.Errorf("invalid tree hash: %w", err)
			}
			commit.Tree = tree
		} else if strings.HasPrefix(line, "author ") {
			authorLine := strings.TrimPrefix(line, "author ")
			author, err := NewSignature(authorLine)
			if err != nil {
				return nil, fmt.Errorf("invalid author signature: %w", err)
			}
			commit.Author = author
		} else if strings.HasPrefix(line, "committer ") {
			committerLine := strings.TrimPrefix(line, "committer ")
			committer, err := NewSignature(committerLine)
			if err != nil {
				return nil, fmt.Errorf("invalid committer signature: %w", err)
			}
			commit.Committer = committer
		}
	}

	commit.Message = strings.Join(messageLines, "\n")
	commit.Message = strings.TrimSpace(commit.Message)

	return commit, nil
}

// parseTagBody parses the body of a tag object into a Tag struct.
func parseTagBody(body []byte, id Hash) (*Tag, error) {
	tag := &Tag{ID: id}
	scanner := bufio.NewScanner(bytes.NewReader(body))
	inMessage := false
	var messageLines []string

	for scanner.Scan() {
		line := scanner.Text()

		if inMessage {
			messageLines = append(messageLines, line)
			continue
		}
		if line == "" {
			inMessage = true
			continue
		}

		if strings.HasPrefix(line, "object ") {
			objectHash, err := NewHash(strings.TrimPrefix(line, "object "))
			if err != nil {
				return nil, fmt.Errorf("invalid object hash: %w", err)
			}
			tag.Object = objectHash
		} else if strings.HasPrefix(line, "type ") {
			typeStr := strings.TrimPrefix(line, "type ")
			tag.ObjType = StrToObjectType(typeStr)
		} else if strings.HasPrefix(line, "tag ") {
			tag.Name = strings.TrimPrefix(line, "tag ")
		} else if strings.HasPrefix(line, "tagger ") {
			taggerLine := strings.TrimPrefix(line, "tagger ")
			tagger, err := NewSignature(taggerLine)
			if err != nil {
				return nil, fmt.Errorf("invalid tagger: %w", err)
			}
			tag.Tagger = tagger
		}
	}

	tag.Message = strings.Join(messageLines, "\n")
	tag.Message = strings.TrimSpace(tag.Message)

	return tag, nil
}

// parseTreeBody parses the body of a tree object into a Tree struct.
func parseTreeBody(body []byte, id Hash) (*Tree, error) {
	tree := &Tree{
		ID:      id,
		Entries: make([]TreeEntry, 0),
	}
	reader := bytes.NewReader(body)

	for {
		var modeBuilder strings.Builder
		for {
			b, err := reader.ReadByte()
			if err == io.EOF {
				return tree, nil
			}
			if err != nil {
				return nil, fmt.Errorf("failed to read mode: %w", err)
			}
			if b == ' ' {
				break
			}
			modeBuilder.WriteByte(b)
		}
		mode := modeBuilder.String()

		var nameBuilder strings.Builder
		for {
			b, err := reader.ReadByte()
			if err != nil {
				return nil, fmt.Errorf("failed to read name: %w", err)
			}
			if b == 0 {
				break
			}
			nameBuilder.WriteByte(b)
		}
		name := nameBuilder.String()

		var hashBytes [20]byte
		if _, err := io.ReadFull(reader, hashBytes[:]); err != nil {
			return nil, fmt.Errorf("failed to read hash: %w", err)
		}

		hash, err := NewHashFromBytes(hashBytes)
		if err != nil {
			return nil, fmt.Errorf("invalid hash in tree entry: %w", err)
		}

		// Determine type based on mode:
		//  - 100644/100755 = blob (file)
		//  - 040000 = tree (directory)
		//  - 120000/160000 = commit (submodule)
		var entryType string
		if strings.HasPrefix(mode, "100") {
			entryType = "blob"
		} else if mode == "040000" || mode == "40000" {
			entryType = "tree"
		} else if mode == "120000" || mode == "160000" {
			entryType = "commit"
		} else {
			entryType = "unknown"
		}

		tree.Entries = append(tree.Entries, TreeEntry{
			ID:   hash,
			Name: name,
			Mode: mode,
			Type: entryType,
		})
	}
}

// maxDecompressedSize caps the size of any single decompressed Git object.
// Objects larger than this are rejected to prevent zip-bomb style attacks.
const maxDecompressedSize = 256 * 1024 * 1024 // 256MB

// readCompressedData reads and decompresses zlib-compressed data from the given reader.
// Returns an error if the decompressed output exceeds maxDecompressedSize.
func readCompressedData(r io.Reader) ([]byte, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create zlib reader: %w", err)
	}
	defer func() {
		if err := zr.Close(); err != nil {
			log.Printf("failed to close zlib reader: %v", err)
		}
	}()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(zr, maxDecompressedSize+1)); err != nil {
		return nil, fmt.Errorf("failed to decompress data: %w", err)
	}
	if buf.Len() > maxDecompressedSize {
		return nil, fmt.Errorf("decompressed object exceeds maximum allowed size (%d bytes)", maxDecompressedSize)
	}

	return buf.Bytes(), nil
}

// WriteObject hashes, compresses, and stores kind+content as a loose object,
// returning its hash. Writing is a no-op (beyond hashing) if the object
// already exists, since content addressing makes objects immutable.
func (r *Repository) WriteObject(kind string, content []byte) (Hash, error) {
	header := fmt.Sprintf("%s %d\x00", kind, len(content))
	full := append([]byte(header), content...)

	sum := sha1.Sum(full) //nolint:gosec // G401: SHA-1 is the object-identity algorithm
	id, err := NewHashFromBytes(sum)
	if err != nil {
		return "", newError(ErrInvalid, err)
	}

	exists, err := r.ObjectExists(id)
	if err != nil {
		return "", err
	}
	if exists {
		return id, nil
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(full); err != nil {
		return "", newError(ErrIO, fmt.Errorf("compress object: %w", err))
	}
	if err := zw.Close(); err != nil {
		return "", newError(ErrIO, fmt.Errorf("close zlib writer: %w", err))
	}

	objectPath := r.objectPath(id)
	if err := os.MkdirAll(filepath.Dir(objectPath), 0o755); err != nil {
		return "", newError(ErrIO, fmt.Errorf("create object directory: %w", err))
	}
	if err := atomicWriteFile(objectPath, compressed.Bytes(), 0o444); err != nil {
		return "", newError(ErrIO, fmt.Errorf("write object %s: %w", id, err))
	}

	return id, nil
}

// HashObjectContent computes the object hash for kind+content without
// touching the object store, matching the first half of WriteObject.
func HashObjectContent(kind string, content []byte) Hash {
	header := fmt.Sprintf("%s %d\x00", kind, len(content))
	full := append([]byte(header), content...)
	sum := sha1.Sum(full) //nolint:gosec // G401: SHA-1 is the object-identity algorithm
	id, _ := NewHashFromBytes(sum)
	return id
}

// ObjectExists reports whether an object with the given hash is present in the store.
func (r *Repository) ObjectExists(id Hash) (bool, error) {
	_, err := os.Stat(r.objectPath(id))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, newError(ErrIO, err)
}

// objectPath computes the on-disk path for a hash: objects/<xx>/<38-hex>.
func (r *Repository) objectPath(id Hash) string {
	return filepath.Join(r.gitDir, "objects", string(id)[:2], string(id)[2:])
}

// ExpandHash resolves an abbreviated hash (len >= 4) to the single matching
// full hash, failing on zero or multiple matches.
func (r *Repository) ExpandHash(short string) (Hash, error) {
	if len(short) < 4 {
		return "", newError(ErrInvalid, fmt.Errorf("abbreviated hash too short: %q", short))
	}
	if len(short) == 40 {
		return NewHash(short)
	}

	dir := filepath.Join(r.gitDir, "objects", short[:2])
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", newError(ErrNotFound, fmt.Errorf("no object matches %q", short))
		}
		return "", newError(ErrIO, err)
	}

	rest := short[2:]
	var matches []Hash
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), rest) {
			matches = append(matches, Hash(short[:2]+entry.Name()))
		}
	}

	switch len(matches) {
	case 0:
		return "", newError(ErrNotFound, fmt.Errorf("no object matches %q", short))
	case 1:
		return matches[0], nil
	default:
		return "", newError(ErrInvalid, fmt.Errorf("ambiguous abbreviated hash %q matches %d objects", short, len(matches)))
	}
}

// atomicWriteFile writes data to a temp file in the same directory as path,
// then renames it into place. A rename that fails because the target
// already exists is retried up to 5 times, 10ms apart; any other failure
// is returned at once.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck // best-effort cleanup if rename never happens

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return err
	}

	backoff := retry.WithMaxRetries(5, retry.NewConstant(10*time.Millisecond))
	return retry.Do(context.Background(), backoff, func(ctx context.Context) error {
		if err := os.Rename(tmpPath, path); err != nil {
			if errors.Is(err, os.ErrExist) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
}
