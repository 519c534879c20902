package socketpath

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveDeterministic(t *testing.T) {
	first := Resolve("/var/log/pyre/server.log")
	second := Resolve("/var/log/pyre/server.log")

	if first != second {
		t.Errorf("Resolve is not deterministic: %q vs %q", first, second)
	}
}

func TestResolveDistinguishesIdentifiers(t *testing.T) {
	a := Resolve("/var/log/pyre/project_a.log")
	b := Resolve("/var/log/pyre/project_b.log")

	if a == b {
		t.Errorf("Different identifiers mapped to the same path: %q", a)
	}
}

func TestResolveShape(t *testing.T) {
	path := Resolve(strings.Repeat("/very/long/identifier", 50))

	dir := filepath.Dir(path)
	if dir != filepath.Clean(os.TempDir()) {
		t.Errorf("Expected socket in temp dir %q, got %q", os.TempDir(), dir)
	}

	base := filepath.Base(path)
	if !strings.HasPrefix(base, Prefix) {
		t.Errorf("Expected prefix %q in %q", Prefix, base)
	}
	if !strings.HasSuffix(base, ".sock") {
		t.Errorf("Expected .sock suffix in %q", base)
	}

	// Domain socket paths have a hard length limit; the digest keeps the
	// name fixed-size no matter how long the identifier is
	if len(base) != len(Prefix)+16+len(".sock") {
		t.Errorf("Unexpected socket name length: %q", base)
	}
}

func TestDigestCanonicalizesRelativePaths(t *testing.T) {
	abs, err := filepath.Abs("some/log/path.log")
	if err != nil {
		t.Fatalf("Abs failed: %v", err)
	}

	if Digest("some/log/path.log") != Digest(abs) {
		t.Error("Relative and absolute forms of the same identifier should share a digest")
	}
}
