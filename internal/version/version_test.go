package version

import (
	"strings"
	"testing"
)

func TestDefaults(t *testing.T) {
	if Version == "" || BuildTime == "" || GitCommit == "" {
		t.Fatal("version variables must be initialized")
	}
}

func TestString(t *testing.T) {
	oldV, oldC, oldB := Version, GitCommit, BuildTime
	t.Cleanup(func() { Version, GitCommit, BuildTime = oldV, oldC, oldB })

	Version, GitCommit, BuildTime = "v1.2.3", "abc123", "2025-06-20"
	got := String()
	for _, want := range []string{"v1.2.3", "abc123", "2025-06-20"} {
		if !strings.Contains(got, want) {
			t.Errorf("String() = %q, missing %q", got, want)
		}
	}
}
