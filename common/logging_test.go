package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldLogRespectsLevel(t *testing.T) {
	t.Setenv("PLAYMAP_LOG_LEVEL", "warn")
	assert.False(t, shouldLog("debug"))
	assert.False(t, shouldLog("info"))
	assert.True(t, shouldLog("warn"))
	assert.True(t, shouldLog("error"))
	assert.True(t, shouldLog("fatal"))
}

func TestShouldLogDefaultsToInfo(t *testing.T) {
	t.Setenv("PLAYMAP_LOG_LEVEL", "")
	assert.False(t, shouldLog("debug"))
	assert.True(t, shouldLog("info"))
}

func TestShouldLogUnknownConfiguredLevel(t *testing.T) {
	// unknown configured level falls back to logging everything
	t.Setenv("PLAYMAP_LOG_LEVEL", "verbose")
	assert.True(t, shouldLog("debug"))
	assert.True(t, shouldLog("error"))
}
