package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePatternsFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCheckAndReloadPatterns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.yml")
	writePatternsFile(t, path, "play: '^AAA (.+)$'\n")
	t.Setenv(PatternsFileEnv, path)
	require.NoError(t, InitPatterns())
	t.Cleanup(func() {
		patPath = ""
		setPatterns(DefaultPatterns())
	})

	fi, err := os.Stat(path)
	require.NoError(t, err)
	patLastMod = fi.ModTime()

	// unchanged mtime: nothing happens
	checkAndReloadPatterns()
	assert.True(t, CurrentPatterns().Play.MatchString("AAA site"))

	// bump the mtime and the grammar swaps
	writePatternsFile(t, path, "play: '^BBB (.+)$'\n")
	later := patLastMod.Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, later, later))
	checkAndReloadPatterns()
	assert.True(t, CurrentPatterns().Play.MatchString("BBB site"))

	// a broken rewrite keeps the last good grammar active
	writePatternsFile(t, path, "play: '^(broken'\n")
	later = later.Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, later, later))
	checkAndReloadPatterns()
	assert.True(t, CurrentPatterns().Play.MatchString("BBB site"))
}

func TestCheckAndReloadPatternsMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.yml")
	writePatternsFile(t, path, "play: '^CCC (.+)$'\n")
	t.Setenv(PatternsFileEnv, path)
	require.NoError(t, InitPatterns())
	t.Cleanup(func() {
		patPath = ""
		setPatterns(DefaultPatterns())
	})

	// file vanishes mid-replace: no reload, no panic
	require.NoError(t, os.Remove(path))
	checkAndReloadPatterns()
	assert.True(t, CurrentPatterns().Play.MatchString("CCC site"))
}

func TestStartPatternsWatcherWithoutFile(t *testing.T) {
	t.Setenv(PatternsFileEnv, "")
	require.NoError(t, InitPatterns())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartPatternsWatcher(ctx)
	assert.False(t, patWatcherRunning)
}

func TestStartPatternsWatcherDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.yml")
	writePatternsFile(t, path, "play: '^DDD (.+)$'\n")
	t.Setenv(PatternsFileEnv, path)
	t.Setenv(PatternsWatchEnv, "false")
	require.NoError(t, InitPatterns())
	t.Cleanup(func() {
		patPath = ""
		setPatterns(DefaultPatterns())
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartPatternsWatcher(ctx)
	assert.False(t, patWatcherRunning)
}
