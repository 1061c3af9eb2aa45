package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrent(t *testing.T) {
	b := Current()
	assert.Equal(t, "dev", b.Version)
	assert.Equal(t, runtime.Version(), b.GoVersion)
	assert.Contains(t, b.String(), "nagarikta version dev\nCommit: unknown")
}
