package logger_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/feedsync/feedsync/internal/setup/telemetry/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatorKeepsLastLines(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "main.log")
	r, err := logger.Open(path, 5)
	require.NoError(t, err)
	defer r.Close()

	for i := range 12 {
		_, err := fmt.Fprintf(r, "line %d\n", i)
		require.NoError(t, err)
	}
	require.NoError(t, r.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	// Compacted to 5 lines after the 10th write, then 2 more appended
	assert.Equal(t, []string{"line 5", "line 6", "line 7", "line 8", "line 9", "line 10", "line 11"}, lines)
}

func TestRotatorMultiLineWrite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "main.log")
	r, err := logger.Open(path, 2)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Write([]byte("a\nb\nc\nd\n"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "c\nd\n", string(data))
}

func TestOpenRejectsZeroLimit(t *testing.T) {
	t.Parallel()

	_, err := logger.Open(filepath.Join(t.TempDir(), "x.log"), 0)
	require.Error(t, err)
}
