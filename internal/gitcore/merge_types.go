package gitcore

// ConflictType classifies how a single path's changes between the merge base
// and the two sides being merged relate to each other.
type ConflictType string

const (
	ConflictNone         ConflictType = "none"
	ConflictBothAdded    ConflictType = "both-added"
	ConflictDeleteModify ConflictType = "delete-modify"
	ConflictConflicting  ConflictType = "conflicting"
)

// MergeRegionType classifies a contiguous span of a three-way diff3 walk.
type MergeRegionType string

const (
	MergeRegionContext  MergeRegionType = "context"
	MergeRegionOurs     MergeRegionType = "ours"
	MergeRegionTheirs   MergeRegionType = "theirs"
	MergeRegionConflict MergeRegionType = "conflict"
)

// MergeRegion is one span produced by mergeWalk: either unchanged base
// content, a change taken cleanly from one side, or a conflict carrying both
// sides' content plus the base text they diverged from.
type MergeRegion struct {
	Type        MergeRegionType `json:"type"`
	BaseStart   int             `json:"baseStart"` // 1-indexed
	BaseLines   []string        `json:"baseLines"`
	OursLines   []string        `json:"oursLines,omitempty"`
	TheirsLines []string        `json:"theirsLines,omitempty"`
}

// ThreeWayDiffStats summarizes a ThreeWayFileDiff's regions.
type ThreeWayDiffStats struct {
	OursAdded       int `json:"oursAdded"`
	OursDeleted     int `json:"oursDeleted"`
	TheirsAdded     int `json:"theirsAdded"`
	TheirsDeleted   int `json:"theirsDeleted"`
	ConflictRegions int `json:"conflictRegions"`
}

// ThreeWayFileDiff is the result of a three-way merge of one file's content
// across base/ours/theirs.
type ThreeWayFileDiff struct {
	Path         string            `json:"path"`
	IsBinary     bool              `json:"isBinary"`
	Truncated    bool              `json:"truncated"`
	ConflictType ConflictType      `json:"conflictType"`
	Regions      []MergeRegion     `json:"regions"`
	Stats        ThreeWayDiffStats `json:"stats"`
}

// MergePreviewEntry describes one changed path considered by MergePreview.
type MergePreviewEntry struct {
	Path         string       `json:"path"`
	BaseHash     Hash         `json:"baseHash,omitempty"`
	OursHash     Hash         `json:"oursHash,omitempty"`
	TheirsHash   Hash         `json:"theirsHash,omitempty"`
	OursStatus   string       `json:"oursStatus,omitempty"`
	TheirsStatus string       `json:"theirsStatus,omitempty"`
	IsBinary     bool         `json:"isBinary"`
	ConflictType ConflictType `json:"conflictType"`
}

// MergePreviewStats summarizes a MergePreviewResult.
type MergePreviewStats struct {
	TotalFiles int `json:"totalFiles"`
	Conflicts  int `json:"conflicts"`
	CleanMerge int `json:"cleanMerge"`
}

// MergePreviewResult is the outcome of diffing both merge sides against their
// common ancestor, without writing anything to the repository.
type MergePreviewResult struct {
	MergeBaseHash Hash                `json:"mergeBaseHash"`
	OursHash      Hash                `json:"oursHash"`
	TheirsHash    Hash                `json:"theirsHash"`
	Entries       []MergePreviewEntry `json:"entries"`
	Stats         MergePreviewStats   `json:"stats"`
}
