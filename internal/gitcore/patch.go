package gitcore

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/clipperhouse/uax29/v2/words"
	"go.uber.org/multierr"
)

// FormatFileDiff renders a single FileDiff as unified-diff text, including the
// "--- a/<path>" / "+++ b/<path>" file headers and one "@@ ... @@" line per
// hunk. oldPath/newPath are used verbatim in the headers so callers can supply
// "/dev/null" for added or deleted files.
func FormatFileDiff(fd *FileDiff, oldPath, newPath string) string {
	if fd.IsBinary {
		return fmt.Sprintf("Binary files %s and %s differ\n", oldPath, newPath)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- %s\n", oldPath)
	fmt.Fprintf(&b, "+++ %s\n", newPath)

	for _, hunk := range fd.Hunks {
		fmt.Fprintf(&b, "@@ -%s +%s @@\n", formatHunkRange(hunk.OldStart, hunk.OldLines), formatHunkRange(hunk.NewStart, hunk.NewLines))
		for _, line := range hunk.Lines {
			switch line.Type {
			case LineTypeAddition:
				b.WriteByte('+')
			case LineTypeDeletion:
				b.WriteByte('-')
			default:
				b.WriteByte(' ')
			}
			b.WriteString(line.Content)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// formatHunkRange renders a hunk's start/count pair, omitting ",1" for
// single-line ranges the way diff does.
func formatHunkRange(start, count int) string {
	if count == 1 {
		return strconv.Itoa(start)
	}
	return fmt.Sprintf("%d,%d", start, count)
}

// FormatCommitPatch renders every changed file in a CommitDiff as one
// concatenated unified-diff text, computing hunks on demand.
func FormatCommitPatch(repo *Repository, cd *CommitDiff) (string, error) {
	var b strings.Builder
	for _, entry := range cd.Entries {
		if entry.IsBinary {
			fmt.Fprintf(&b, "diff --git a/%s b/%s\n", pathOrName(entry.OldPath, entry.Path), entry.Path)
			fmt.Fprintf(&b, "Binary files differ\n")
			continue
		}

		fd, err := ComputeFileDiff(repo, entry.OldHash, entry.NewHash, entry.Path, DefaultContextLines)
		if err != nil {
			return "", fmt.Errorf("diff %s: %w", entry.Path, err)
		}

		oldPath, newPath := "a/"+entry.Path, "b/"+entry.Path
		if entry.Status == DiffStatusAdded {
			oldPath = "/dev/null"
		}
		if entry.Status == DiffStatusDeleted {
			newPath = "/dev/null"
		}

		fmt.Fprintf(&b, "diff --git a/%s b/%s\n", pathOrName(entry.OldPath, entry.Path), entry.Path)
		b.WriteString(FormatFileDiff(fd, oldPath, newPath))
	}
	return b.String(), nil
}

func pathOrName(oldPath, path string) string {
	if oldPath != "" {
		return oldPath
	}
	return path
}

// ParseUnifiedDiff parses a single file's unified-diff text (as produced by
// FormatFileDiff, or a reasonably well-formed equivalent) into a FileDiff.
// Hunk header counts are optional: a bare "@@ -12 +12 @@" is read as a
// one-line range, matching common diff tooling. A trailing
// "\ No newline at end of file" marker is recognized and dropped.
func ParseUnifiedDiff(text string) (*FileDiff, error) {
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	fd := &FileDiff{Hunks: make([]DiffHunk, 0)}
	var oldPath, newPath string
	var current *DiffHunk
	oldLine, newLine := 0, 0

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		switch {
		case strings.HasPrefix(line, "--- "):
			oldPath = strings.TrimPrefix(line, "--- ")
		case strings.HasPrefix(line, "+++ "):
			newPath = strings.TrimPrefix(line, "+++ ")
		case strings.HasPrefix(line, "@@ "):
			if current != nil {
				finalizeHunk(current)
				fd.Hunks = append(fd.Hunks, *current)
			}
			hunk, err := parseHunkHeader(line)
			if err != nil {
				return nil, err
			}
			current = hunk
			oldLine, newLine = hunk.OldStart, hunk.NewStart
		case line == `\ No newline at end of file`:
			// Recognized and dropped; content already captured without a
			// trailing newline by the caller's writer.
		case current != nil && len(line) > 0:
			dl := parsePatchLine(line, &oldLine, &newLine)
			current.Lines = append(current.Lines, dl)
		case current != nil && len(line) == 0:
			current.Lines = append(current.Lines, DiffLine{Type: LineTypeContext, Content: "", OldLine: oldLine, NewLine: newLine})
			oldLine++
			newLine++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parse patch: %w", err)
	}
	if current != nil {
		finalizeHunk(current)
		fd.Hunks = append(fd.Hunks, *current)
	}

	fd.Path = strings.TrimPrefix(strings.TrimPrefix(newPath, "b/"), "a/")
	if fd.Path == "" || newPath == "/dev/null" {
		fd.Path = strings.TrimPrefix(strings.TrimPrefix(oldPath, "a/"), "b/")
	}
	return fd, nil
}

func parsePatchLine(line string, oldLine, newLine *int) DiffLine {
	marker, content := line[0], line[1:]
	switch marker {
	case '+':
		dl := DiffLine{Type: LineTypeAddition, Content: content, NewLine: *newLine}
		*newLine++
		return dl
	case '-':
		dl := DiffLine{Type: LineTypeDeletion, Content: content, OldLine: *oldLine}
		*oldLine++
		return dl
	default:
		dl := DiffLine{Type: LineTypeContext, Content: content, OldLine: *oldLine, NewLine: *newLine}
		*oldLine++
		*newLine++
		return dl
	}
}

// parseHunkHeader parses "@@ -oldStart[,oldLines] +newStart[,newLines] @@".
// Missing counts default to 1, matching tools that omit ",1" ranges.
func parseHunkHeader(line string) (*DiffHunk, error) {
	body := strings.TrimPrefix(line, "@@ ")
	if idx := strings.Index(body, " @@"); idx >= 0 {
		body = body[:idx]
	}
	fields := strings.Fields(body)
	if len(fields) != 2 {
		return nil, fmt.Errorf("malformed hunk header: %q", line)
	}
	oldStart, oldLines, err := parseHunkRange(fields[0], '-')
	if err != nil {
		return nil, err
	}
	newStart, newLines, err := parseHunkRange(fields[1], '+')
	if err != nil {
		return nil, err
	}
	return &DiffHunk{
		OldStart: oldStart,
		OldLines: oldLines,
		NewStart: newStart,
		NewLines: newLines,
		Lines:    make([]DiffLine, 0),
	}, nil
}

func parseHunkRange(field string, sigil byte) (start, count int, err error) {
	field = strings.TrimPrefix(field, string(sigil))
	parts := strings.SplitN(field, ",", 2)
	start, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed hunk range %q: %w", field, err)
	}
	count = 1
	if len(parts) == 2 {
		count, err = strconv.Atoi(parts[1])
		if err != nil {
			return 0, 0, fmt.Errorf("malformed hunk range %q: %w", field, err)
		}
	}
	return start, count, nil
}

// ReverseFileDiff swaps additions and deletions and flips old/new line
// numbers, producing the patch that would undo fd.
func ReverseFileDiff(fd *FileDiff) *FileDiff {
	out := &FileDiff{
		Path:      fd.Path,
		OldHash:   fd.NewHash,
		NewHash:   fd.OldHash,
		IsBinary:  fd.IsBinary,
		Truncated: fd.Truncated,
		Hunks:     make([]DiffHunk, len(fd.Hunks)),
	}
	for i, h := range fd.Hunks {
		rh := DiffHunk{
			OldStart: h.NewStart,
			OldLines: h.NewLines,
			NewStart: h.OldStart,
			NewLines: h.OldLines,
			Lines:    make([]DiffLine, len(h.Lines)),
		}
		for j, l := range h.Lines {
			rl := DiffLine{Content: l.Content, OldLine: l.NewLine, NewLine: l.OldLine}
			switch l.Type {
			case LineTypeAddition:
				rl.Type = LineTypeDeletion
			case LineTypeDeletion:
				rl.Type = LineTypeAddition
			default:
				rl.Type = LineTypeContext
			}
			rh.Lines[j] = rl
		}
		out.Hunks[i] = rh
	}
	return out
}

// ApplyFileDiff applies fd's hunks to the lines of original content, returning
// the patched content. Each hunk is first tried at its recorded OldStart; if
// the context there doesn't match (the file has drifted), nearby offsets
// within fuzzOffset lines are tried before the hunk is reported as failed.
// Multiple hunk failures are aggregated via multierr so the caller sees every
// rejected hunk, not just the first.
func ApplyFileDiff(original []byte, fd *FileDiff) ([]byte, error) {
	lines := splitLines(original)
	var errs error

	for i, hunk := range fd.Hunks {
		applied, ok := tryApplyHunk(lines, hunk)
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("hunk #%d failed to apply at line %d", i+1, hunk.OldStart))
			continue
		}
		lines = applied
	}
	if errs != nil {
		return nil, errs
	}

	out := strings.Join(lines, "\n")
	if len(lines) > 0 {
		out += "\n"
	}
	return []byte(out), nil
}

const fuzzOffset = 3

// tryApplyHunk attempts to apply a single hunk at its recorded offset, then
// at increasing +/- offsets up to fuzzOffset lines away.
func tryApplyHunk(lines []string, hunk DiffHunk) ([]string, bool) {
	oldText := make([]string, 0, len(hunk.Lines))
	newText := make([]string, 0, len(hunk.Lines))
	for _, l := range hunk.Lines {
		switch l.Type {
		case LineTypeContext:
			oldText = append(oldText, l.Content)
			newText = append(newText, l.Content)
		case LineTypeDeletion:
			oldText = append(oldText, l.Content)
		case LineTypeAddition:
			newText = append(newText, l.Content)
		}
	}

	base := hunk.OldStart - 1
	if base < 0 {
		base = 0
	}
	for _, delta := range fuzzOffsets(fuzzOffset) {
		pos := base + delta
		if pos < 0 || pos+len(oldText) > len(lines) {
			continue
		}
		if regionMatches(lines, pos, oldText) {
			out := make([]string, 0, len(lines)-len(oldText)+len(newText))
			out = append(out, lines[:pos]...)
			out = append(out, newText...)
			out = append(out, lines[pos+len(oldText):]...)
			return out, true
		}
	}
	return nil, false
}

// fuzzOffsets yields 0, then +1,-1,+2,-2... out to max, matching patch's
// closest-first search order.
func fuzzOffsets(max int) []int {
	offsets := []int{0}
	for d := 1; d <= max; d++ {
		offsets = append(offsets, d, -d)
	}
	return offsets
}

func regionMatches(lines []string, pos int, want []string) bool {
	for i, w := range want {
		if lines[pos+i] != w {
			return false
		}
	}
	return true
}

// WordDiff tokenizes two text lines into Unicode word boundaries (UAX #29)
// and returns the tokens of each that differ, for callers that want
// intraline highlighting rather than whole-line replacement.
func WordDiff(oldLine, newLine string) (oldTokens, newTokens []string, changed bool) {
	oldTokens = tokenizeWords(oldLine)
	newTokens = tokenizeWords(newLine)

	if len(oldTokens) == len(newTokens) {
		changed = false
		for i := range oldTokens {
			if oldTokens[i] != newTokens[i] {
				changed = true
				break
			}
		}
	} else {
		changed = true
	}
	return oldTokens, newTokens, changed
}

func tokenizeWords(line string) []string {
	tokens := make([]string, 0, len(line)/4+1)
	seg := words.NewSegmenter([]byte(line))
	for seg.Next() {
		tok := strings.TrimSpace(string(seg.Value()))
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}
