package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"playmap/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPatterns(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/patterns", nil)
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Source   string            `json:"source"`
		Patterns map[string]string `json:"patterns"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "builtin", body.Source)
	assert.Len(t, body.Patterns, 6)
	assert.Contains(t, body.Patterns["play"], "PLAY")
}

func TestReloadPatternsWithoutFile(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/patterns/reload", nil)
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReloadPatternsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.yml")
	require.NoError(t, os.WriteFile(path, []byte("play: '^PLAYBOOK \\[(.+?)\\]'\n"), 0o644))
	t.Setenv(services.PatternsFileEnv, path)
	require.NoError(t, services.InitPatterns())
	defer func() {
		os.Unsetenv(services.PatternsFileEnv)
		services.InitPatterns()
	}()

	req := httptest.NewRequest(http.MethodPost, "/api/patterns/reload", nil)
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "reloaded", body["status"])
	assert.Equal(t, path, body["source"])
}
