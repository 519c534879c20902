package state

import (
	"sort"

	"github.com/codefionn/pyrite/internal/protocol"
)

// ErrorIndex maps source files to their diagnostics. Insertion order within
// a file is preserved and duplicates are appended as-is; deduplication, if
// any, is the analysis engine's concern.
type ErrorIndex struct {
	byFile map[string][]protocol.Diagnostic
}

// NewErrorIndex creates an empty index
func NewErrorIndex() *ErrorIndex {
	return &ErrorIndex{
		byFile: make(map[string][]protocol.Diagnostic),
	}
}

// Add appends diagnostics for a file
func (idx *ErrorIndex) Add(path string, diags ...protocol.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	idx.byFile[path] = append(idx.byFile[path], diags...)
}

// Get returns the diagnostics recorded for a file, in insertion order
func (idx *ErrorIndex) Get(path string) []protocol.Diagnostic {
	return idx.byFile[path]
}

// Drop removes all diagnostics for a file
func (idx *ErrorIndex) Drop(path string) {
	delete(idx.byFile, path)
}

// Files returns the number of files with at least one diagnostic
func (idx *ErrorIndex) Files() int {
	return len(idx.byFile)
}

// Total returns the number of diagnostics across all files
func (idx *ErrorIndex) Total() int {
	n := 0
	for _, diags := range idx.byFile {
		n += len(diags)
	}
	return n
}

// All returns every diagnostic, grouped by file in sorted path order so
// responses are deterministic.
func (idx *ErrorIndex) All() []protocol.Diagnostic {
	paths := make([]string, 0, len(idx.byFile))
	for path := range idx.byFile {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var out []protocol.Diagnostic
	for _, path := range paths {
		out = append(out, idx.byFile[path]...)
	}
	return out
}

// Copy returns an index that can be mutated without affecting the original
// snapshot.
func (idx *ErrorIndex) Copy() *ErrorIndex {
	next := NewErrorIndex()
	for path, diags := range idx.byFile {
		next.byFile[path] = append([]protocol.Diagnostic(nil), diags...)
	}
	return next
}
