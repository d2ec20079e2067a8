package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFromConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scout.log")
	logger, closer, err := FromConfig("info", path)
	require.NoError(t, err)

	logger.Debug("dropped")
	logger.Named("run").Info("run finished", zap.String("status", "ok"), zap.Duration("took", 1500*time.Millisecond))
	require.NoError(t, logger.Sync())
	require.NoError(t, closer.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, sonic.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "run finished", entry["msg"])
	assert.Equal(t, "ok", entry["status"])
	assert.Equal(t, "run", entry["component"])
	assert.EqualValues(t, 1500, entry["took"])
	assert.Contains(t, entry, "timestamp")
	assert.Contains(t, entry, "caller")
}

func TestFromConfigBadLevel(t *testing.T) {
	_, _, err := FromConfig("loud", "")
	assert.Error(t, err)
}
