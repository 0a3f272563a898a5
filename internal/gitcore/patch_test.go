package gitcore

import (
	"reflect"
	"strings"
	"testing"
)

// buildFileDiff computes hunks directly via myersDiff, bypassing the blob
// store so patch.go's parse/apply/reverse logic can be exercised in
// isolation from object storage.
func buildFileDiff(oldText, newText, path string) *FileDiff {
	oldLines := splitLines([]byte(oldText))
	newLines := splitLines([]byte(newText))
	return &FileDiff{
		Path:  path,
		Hunks: myersDiff(oldLines, newLines, DefaultContextLines),
	}
}

func TestParseUnifiedDiffRoundTrip(t *testing.T) {
	oldText := "line one\nline two\nline three\n"
	newText := "line one\nline TWO\nline three\nline four\n"

	fd := buildFileDiff(oldText, newText, "example.txt")

	formatted := FormatFileDiff(fd, "a/example.txt", "b/example.txt")
	parsed, err := ParseUnifiedDiff(formatted)
	if err != nil {
		t.Fatalf("ParseUnifiedDiff: %v", err)
	}

	if parsed.Path != "example.txt" {
		t.Errorf("parsed path = %q, want %q", parsed.Path, "example.txt")
	}
	if len(parsed.Hunks) != len(fd.Hunks) {
		t.Fatalf("parsed %d hunks, want %d", len(parsed.Hunks), len(fd.Hunks))
	}
	for i, h := range fd.Hunks {
		ph := parsed.Hunks[i]
		if ph.OldStart != h.OldStart || ph.NewStart != h.NewStart {
			t.Errorf("hunk %d: got start (%d,%d), want (%d,%d)", i, ph.OldStart, ph.NewStart, h.OldStart, h.NewStart)
		}
		if len(ph.Lines) != len(h.Lines) {
			t.Fatalf("hunk %d: got %d lines, want %d", i, len(ph.Lines), len(h.Lines))
		}
		for j, l := range h.Lines {
			if ph.Lines[j].Type != l.Type || ph.Lines[j].Content != l.Content {
				t.Errorf("hunk %d line %d: got %+v, want %+v", i, j, ph.Lines[j], l)
			}
		}
	}
}

func TestParseUnifiedDiffDeletedFile(t *testing.T) {
	text := strings.Join([]string{
		"--- a/gone.txt",
		"+++ /dev/null",
		"@@ -1,2 +0,0 @@",
		"-line one",
		"-line two",
		"",
	}, "\n")

	fd, err := ParseUnifiedDiff(text)
	if err != nil {
		t.Fatalf("ParseUnifiedDiff: %v", err)
	}
	if fd.Path != "gone.txt" {
		t.Errorf("path = %q, want %q", fd.Path, "gone.txt")
	}
	if len(fd.Hunks) != 1 || len(fd.Hunks[0].Lines) != 2 {
		t.Fatalf("unexpected hunks: %+v", fd.Hunks)
	}
}

func TestApplyFileDiffProducesNewContent(t *testing.T) {
	oldText := "alpha\nbeta\ngamma\n"
	newText := "alpha\nBETA\ngamma\ndelta\n"

	fd := buildFileDiff(oldText, newText, "f.txt")

	applied, err := ApplyFileDiff([]byte(oldText), fd)
	if err != nil {
		t.Fatalf("ApplyFileDiff: %v", err)
	}
	if string(applied) != newText {
		t.Errorf("applied = %q, want %q", applied, newText)
	}
}

// TestApplyFileDiffToleratesContextDrift asserts the fuzzOffset search: a
// hunk recorded against the original file still applies after an unrelated
// line is inserted ahead of it, as long as the shift is within fuzzOffset.
func TestApplyFileDiffToleratesContextDrift(t *testing.T) {
	oldText := "a\nb\nc\nd\ne\nf\ng\n"
	newText := "a\nb\nc\nD\ne\nf\ng\n"
	fd := buildFileDiff(oldText, newText, "f.txt")

	drifted := "x\n" + oldText
	applied, err := ApplyFileDiff([]byte(drifted), fd)
	if err != nil {
		t.Fatalf("ApplyFileDiff with drift: %v", err)
	}
	want := "x\n" + newText
	if string(applied) != want {
		t.Errorf("applied = %q, want %q", applied, want)
	}
}

func TestApplyFileDiffReportsFailedHunk(t *testing.T) {
	oldText := "a\nb\nc\n"
	newText := "a\nB\nc\n"
	fd := buildFileDiff(oldText, newText, "f.txt")

	unrelated := "completely\ndifferent\ncontent\n"
	if _, err := ApplyFileDiff([]byte(unrelated), fd); err == nil {
		t.Fatal("expected ApplyFileDiff to fail against unrelated content")
	}
}

// TestReverseFileDiffUndoesApply covers patch reversibility: applying a
// diff and then its reverse restores the original content byte-for-byte.
func TestReverseFileDiffUndoesApply(t *testing.T) {
	oldText := "one\ntwo\nthree\n"
	newText := "one\n2\nthree\nfour\n"
	fd := buildFileDiff(oldText, newText, "f.txt")

	patched, err := ApplyFileDiff([]byte(oldText), fd)
	if err != nil {
		t.Fatalf("ApplyFileDiff: %v", err)
	}
	if string(patched) != newText {
		t.Fatalf("ApplyFileDiff produced %q, want %q", patched, newText)
	}

	reversed := ReverseFileDiff(fd)
	restored, err := ApplyFileDiff(patched, reversed)
	if err != nil {
		t.Fatalf("ApplyFileDiff(reversed): %v", err)
	}
	if string(restored) != oldText {
		t.Errorf("restored = %q, want original %q", restored, oldText)
	}
}

func TestWordDiffFlagsChangedTokens(t *testing.T) {
	oldTokens, newTokens, changed := WordDiff("the quick fox", "the slow fox")
	if !changed {
		t.Fatal("expected changed = true")
	}
	if reflect.DeepEqual(oldTokens, newTokens) {
		t.Error("old and new tokens should differ")
	}

	_, _, changedSame := WordDiff("identical line", "identical line")
	if changedSame {
		t.Error("identical lines should report changed = false")
	}
}
