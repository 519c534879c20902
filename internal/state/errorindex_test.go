package state

import (
	"testing"

	"github.com/codefionn/pyrite/internal/protocol"
)

func diag(path, description string) protocol.Diagnostic {
	return protocol.Diagnostic{Path: path, Line: 1, Description: description}
}

func TestErrorIndexPreservesInsertionOrder(t *testing.T) {
	idx := NewErrorIndex()
	idx.Add("/proj/a.py", diag("/proj/a.py", "first"))
	idx.Add("/proj/a.py", diag("/proj/a.py", "second"))

	got := idx.Get("/proj/a.py")
	if len(got) != 2 {
		t.Fatalf("Expected 2 diagnostics, got %d", len(got))
	}
	if got[0].Description != "first" || got[1].Description != "second" {
		t.Error("Insertion order not preserved")
	}
}

func TestErrorIndexAppendsDuplicates(t *testing.T) {
	idx := NewErrorIndex()
	d := diag("/proj/a.py", "same")
	idx.Add("/proj/a.py", d)
	idx.Add("/proj/a.py", d)

	if len(idx.Get("/proj/a.py")) != 2 {
		t.Error("Duplicates should be appended, not deduplicated")
	}
}

func TestErrorIndexCounts(t *testing.T) {
	idx := NewErrorIndex()
	idx.Add("/proj/a.py", diag("/proj/a.py", "one"), diag("/proj/a.py", "two"))
	idx.Add("/proj/b.py", diag("/proj/b.py", "three"))

	if idx.Files() != 2 {
		t.Errorf("Files() = %d, want 2", idx.Files())
	}
	if idx.Total() != 3 {
		t.Errorf("Total() = %d, want 3", idx.Total())
	}
}

func TestErrorIndexAllSortedByPath(t *testing.T) {
	idx := NewErrorIndex()
	idx.Add("/proj/b.py", diag("/proj/b.py", "b"))
	idx.Add("/proj/a.py", diag("/proj/a.py", "a"))

	all := idx.All()
	if len(all) != 2 {
		t.Fatalf("Expected 2 diagnostics, got %d", len(all))
	}
	if all[0].Path != "/proj/a.py" || all[1].Path != "/proj/b.py" {
		t.Error("All() should group files in sorted path order")
	}
}

func TestErrorIndexCopyIsIndependent(t *testing.T) {
	idx := NewErrorIndex()
	idx.Add("/proj/a.py", diag("/proj/a.py", "original"))

	copied := idx.Copy()
	copied.Add("/proj/a.py", diag("/proj/a.py", "extra"))
	copied.Drop("/proj/a.py")

	if len(idx.Get("/proj/a.py")) != 1 {
		t.Error("Mutating a copy must not affect the original snapshot")
	}
}

func TestEnvironmentCopyIsIndependent(t *testing.T) {
	env := NewEnvironment()
	env.Track("/proj/a.py")

	copied := env.Copy()
	copied.Untrack("/proj/a.py")
	copied.Track("/proj/b.py")

	if !env.Contains("/proj/a.py") || env.Contains("/proj/b.py") {
		t.Error("Mutating a copy must not affect the original environment")
	}
	if got := copied.List(); len(got) != 1 || got[0] != "/proj/b.py" {
		t.Errorf("Unexpected copy contents: %v", got)
	}
}
