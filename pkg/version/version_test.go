package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet_KeepsDefaultsForEmptyValues(t *testing.T) {
	saved := current
	t.Cleanup(func() { current = saved })

	Set("v1.0.0", "", "")

	got := Get()
	assert.Equal(t, "v1.0.0", got.Version)
	assert.Equal(t, saved.Commit, got.Commit)
	assert.Equal(t, saved.Date, got.Date)
}

func TestInfo_String(t *testing.T) {
	info := Info{Version: "v1.2.3", Commit: "abc123", Date: "2026-01-01"}

	assert.Equal(t, "imagerelay v1.2.3 (commit abc123, built 2026-01-01)", info.String())
}
