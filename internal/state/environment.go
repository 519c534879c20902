package state

import "sort"

// Environment tracks the set of source files known to the analysis engine
type Environment struct {
	files map[string]struct{}
}

// NewEnvironment creates an empty environment
func NewEnvironment() *Environment {
	return &Environment{files: make(map[string]struct{})}
}

// Track adds a file to the environment
func (e *Environment) Track(path string) {
	e.files[path] = struct{}{}
}

// Untrack removes a file from the environment
func (e *Environment) Untrack(path string) {
	delete(e.files, path)
}

// Contains reports whether a file is tracked
func (e *Environment) Contains(path string) bool {
	_, ok := e.files[path]
	return ok
}

// Count returns the number of tracked files
func (e *Environment) Count() int {
	return len(e.files)
}

// List returns the tracked files in sorted order
func (e *Environment) List() []string {
	out := make([]string, 0, len(e.files))
	for path := range e.files {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// Copy returns an environment that can be mutated independently
func (e *Environment) Copy() *Environment {
	next := NewEnvironment()
	for path := range e.files {
		next.files[path] = struct{}{}
	}
	return next
}
