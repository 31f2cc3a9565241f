// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, MustFileExists(dir))
	filePath := filepath.Join(dir, "points.npy")
	assert.False(t, MustFileExists(filePath))
	require.NoError(t, os.WriteFile(filePath, []byte("x"), 0o644))
	exists, err := FileExists(filePath)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestReplaceTildeInDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	for input, want := range map[string]string{
		"~":                 home,
		"~/data/points.npy": filepath.Join(home, "data", "points.npy"),
		"/tmp/points.npy":   "/tmp/points.npy",
		"points~.npy":       "points~.npy",
		"":                  "",
	} {
		got, err := ReplaceTildeInDir(input)
		require.NoError(t, err)
		assert.Equal(t, want, got, "input %q", input)
	}

	_, err = ReplaceTildeInDir("~no_such_user_for_pointgraph/x")
	require.Error(t, err)
}
