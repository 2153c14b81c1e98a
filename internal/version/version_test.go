package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	previousVersion, previousCommit, previousBuilt := Version, CommitSHA, BuildTime
	t.Cleanup(func() {
		Version, CommitSHA, BuildTime = previousVersion, previousCommit, previousBuilt
	})

	Version = "1.2.3"
	CommitSHA = "abc123"
	BuildTime = "2026-01-11T12:34:56Z"

	assert.Equal(t, "1.2.3", Short())
	info := Info()
	assert.Contains(t, info, "llm-council 1.2.3")
	assert.Contains(t, info, "commit:     abc123")
	assert.Contains(t, info, "built:      2026-01-11T12:34:56Z")
	assert.Contains(t, info, runtime.Version())
}
