package types

import "time"

// WorkItem is one unit of generation work: a single artifact path plus the
// opaque context the producer needs to materialize it. Items are created by
// the caller and consumed exactly once by a scheduler run.
type WorkItem struct {
	Path      string
	Context   any
	Priority  int
	CreatedAt time.Time
}

// NewWorkItem stamps the creation time so queue ties stay reproducible.
func NewWorkItem(path string, context any, priority int) WorkItem {
	return WorkItem{
		Path:      path,
		Context:   context,
		Priority:  priority,
		CreatedAt: time.Now(),
	}
}

// Result records the terminal outcome for one artifact. Immutable once
// recorded; a failed producer still yields a Result, never an aborted run.
type Result struct {
	Path      string
	Content   string
	Success   bool
	Skipped   bool
	Error     string
	Duration  time.Duration
	Timestamp time.Time
}

// Structure is the declarative project-shape input: file leaves plus nested
// folders. It mirrors the JSON form {files: [...], folders: [...]}.
type Structure struct {
	Files   []string `json:"files"`
	Folders []Folder `json:"folders"`
}

// Folder is one named level of the structure tree.
type Folder struct {
	Name    string   `json:"name"`
	Files   []string `json:"files"`
	Folders []Folder `json:"folders"`
}
