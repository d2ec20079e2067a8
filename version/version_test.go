package version

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShort(t *testing.T) {
	assert.Equal(t, "v1.2.0-0123456", Info{Version: "v1.2.0", GitHash: "0123456789abcdef"}.Short())
	assert.Equal(t, "v1.2.0-abc", Info{Version: "v1.2.0", GitHash: "abc"}.Short())
	assert.Equal(t, "None", Get().Short())
}

func TestFprint(t *testing.T) {
	var buf bytes.Buffer
	Info{Version: "v1", GitBranch: "main", GitHash: "deadbeefcafe", BuildTS: "2026-01-01"}.Fprint(&buf)
	assert.Contains(t, buf.String(), "v1-deadbee")
	assert.Contains(t, buf.String(), "Git Branch:        main")
}
