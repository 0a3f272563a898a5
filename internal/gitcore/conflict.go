package gitcore

import (
	"fmt"
	"strings"
)

// ConflictStyle selects how conflict blocks are rendered into merged text.
type ConflictStyle string

const (
	// ConflictStyleMerge renders the two-way <<<<<<< / ======= / >>>>>>> form.
	ConflictStyleMerge ConflictStyle = "merge"
	// ConflictStyleDiff3 additionally renders the ||||||| base section.
	ConflictStyleDiff3 ConflictStyle = "diff3"
)

// MergeRenderOptions controls conflict marker labels and style when rendering
// a ThreeWayFileDiff's regions into merged text.
type MergeRenderOptions struct {
	Style      ConflictStyle
	OursLabel  string
	TheirsLabel string
	BaseLabel  string
}

// DefaultMergeRenderOptions matches the labels git itself uses by default.
func DefaultMergeRenderOptions() MergeRenderOptions {
	return MergeRenderOptions{
		Style:       ConflictStyleMerge,
		OursLabel:   "ours",
		TheirsLabel: "theirs",
		BaseLabel:   "base",
	}
}

// ConflictRegion records one conflict block emitted into merged text: its
// base/ours/theirs text and its 1-indexed, inclusive line span in the output.
type ConflictRegion struct {
	Index     int    `json:"index"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
	Base      string `json:"base"`
	Ours      string `json:"ours"`
	Theirs    string `json:"theirs"`
}

// MergedText is the text produced by rendering a ThreeWayFileDiff, plus the
// record of every conflict block it contains.
type MergedText struct {
	Content     string
	HasConflicts bool
	Conflicts   []ConflictRegion
}

// RenderMergedText walks a ThreeWayFileDiff's regions and produces the merged
// file content, emitting diff3-style conflict markers for MergeRegionConflict
// spans per §4.6: "<<<<<<< <ours-label>" + ours, optional "||||||| <base-label>"
// + base (diff3 style only), "=======", theirs, ">>>>>>> <theirs-label>".
func RenderMergedText(diff *ThreeWayFileDiff, opts MergeRenderOptions) MergedText {
	var b strings.Builder
	var conflicts []ConflictRegion
	lineNo := 1

	writeLines := func(lines []string) {
		for _, l := range lines {
			b.WriteString(l)
			b.WriteByte('\n')
			lineNo++
		}
	}

	for _, region := range diff.Regions {
		switch region.Type {
		case MergeRegionContext:
			writeLines(region.BaseLines)
		case MergeRegionOurs:
			writeLines(region.OursLines)
		case MergeRegionTheirs:
			writeLines(region.TheirsLines)
		case MergeRegionConflict:
			start := lineNo
			writeMarkerLine(&b, "<<<<<<< ", opts.OursLabel, &lineNo)
			writeLines(region.OursLines)
			if opts.Style == ConflictStyleDiff3 {
				writeMarkerLine(&b, "||||||| ", opts.BaseLabel, &lineNo)
				writeLines(region.BaseLines)
			}
			writeMarkerLine(&b, "=======", "", &lineNo)
			writeLines(region.TheirsLines)
			writeMarkerLine(&b, ">>>>>>> ", opts.TheirsLabel, &lineNo)

			conflicts = append(conflicts, ConflictRegion{
				Index:     len(conflicts),
				StartLine: start,
				EndLine:   lineNo - 1,
				Base:      strings.Join(region.BaseLines, "\n"),
				Ours:      strings.Join(region.OursLines, "\n"),
				Theirs:    strings.Join(region.TheirsLines, "\n"),
			})
		}
	}

	return MergedText{
		Content:      b.String(),
		HasConflicts: len(conflicts) > 0,
		Conflicts:    conflicts,
	}
}

func writeMarkerLine(b *strings.Builder, prefix, label string, lineNo *int) {
	b.WriteString(prefix)
	b.WriteString(label)
	b.WriteByte('\n')
	*lineNo++
}

// HasConflicts reports whether text contains a full diff3/merge-style
// conflict marker set: all of "<<<<<<<", "=======", and ">>>>>>>" prefixes.
func HasConflicts(text string) bool {
	hasStart, hasMid, hasEnd := false, false, false
	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(line, "<<<<<<<"):
			hasStart = true
		case strings.HasPrefix(line, "======="):
			hasMid = true
		case strings.HasPrefix(line, ">>>>>>>"):
			hasEnd = true
		}
	}
	return hasStart && hasMid && hasEnd
}

// ExtractConflicts parses every marker-delimited conflict region out of text,
// in the order they appear. Text between conflicts is not represented.
func ExtractConflicts(text string) []ConflictRegion {
	lines := strings.Split(text, "\n")
	var regions []ConflictRegion

	i := 0
	for i < len(lines) {
		if !strings.HasPrefix(lines[i], "<<<<<<<") {
			i++
			continue
		}
		start := i + 1 // 1-indexed
		i++

		var ours, base, theirs []string
		for i < len(lines) && !strings.HasPrefix(lines[i], "|||||||") && !strings.HasPrefix(lines[i], "=======") {
			ours = append(ours, lines[i])
			i++
		}
		if i < len(lines) && strings.HasPrefix(lines[i], "|||||||") {
			i++
			for i < len(lines) && !strings.HasPrefix(lines[i], "=======") {
				base = append(base, lines[i])
				i++
			}
		}
		if i < len(lines) && strings.HasPrefix(lines[i], "=======") {
			i++
		}
		for i < len(lines) && !strings.HasPrefix(lines[i], ">>>>>>>") {
			theirs = append(theirs, lines[i])
			i++
		}
		end := i + 1
		if i < len(lines) {
			i++ // consume the >>>>>>> line
		}

		regions = append(regions, ConflictRegion{
			Index:     len(regions),
			StartLine: start,
			EndLine:   end,
			Base:      strings.Join(base, "\n"),
			Ours:      strings.Join(ours, "\n"),
			Theirs:    strings.Join(theirs, "\n"),
		})
	}
	return regions
}

// ResolveConflict rewrites the Nth (0-indexed) conflict region in text per
// choice ("ours", "theirs", "base", or a literal replacement string) and
// leaves every other region untouched.
func ResolveConflict(text string, index int, choice string) (string, error) {
	lines := strings.Split(text, "\n")
	var out []string

	conflictIdx := 0
	i := 0
	for i < len(lines) {
		if !strings.HasPrefix(lines[i], "<<<<<<<") {
			out = append(out, lines[i])
			i++
			continue
		}

		blockStart := i
		i++
		var ours, base, theirs []string
		for i < len(lines) && !strings.HasPrefix(lines[i], "|||||||") && !strings.HasPrefix(lines[i], "=======") {
			ours = append(ours, lines[i])
			i++
		}
		if i < len(lines) && strings.HasPrefix(lines[i], "|||||||") {
			i++
			for i < len(lines) && !strings.HasPrefix(lines[i], "=======") {
				base = append(base, lines[i])
				i++
			}
		}
		if i < len(lines) && strings.HasPrefix(lines[i], "=======") {
			i++
		}
		for i < len(lines) && !strings.HasPrefix(lines[i], ">>>>>>>") {
			theirs = append(theirs, lines[i])
			i++
		}
		if i < len(lines) {
			i++ // consume >>>>>>> line
		}

		if conflictIdx != index {
			out = append(out, lines[blockStart:i]...)
			conflictIdx++
			continue
		}

		switch choice {
		case "ours":
			out = append(out, ours...)
		case "theirs":
			out = append(out, theirs...)
		case "base":
			out = append(out, base...)
		default:
			out = append(out, strings.Split(choice, "\n")...)
		}
		conflictIdx++
	}

	if conflictIdx <= index {
		return "", newError(ErrInvalid, fmt.Errorf("no conflict region at index %d (found %d)", index, conflictIdx))
	}
	return strings.Join(out, "\n"), nil
}
