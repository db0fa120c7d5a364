// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package lratio_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dzpbip/pbip-checker/internal/lratio"
)

func TestOpenEmptyPathDiscards(t *testing.T) {
	w, err := lratio.Open("")
	require.NoError(t, err)
	n, err := w.Write([]byte("1 1 0 0\n"))
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.NoError(t, w.Close())
}

func TestOpenDashWritesStdout(t *testing.T) {
	w, err := lratio.Open("-")
	require.NoError(t, err)
	assert.NoError(t, w.Close())
}

func TestOpenPathCreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "proof.lrat")
	w, err := lratio.Open(path)
	require.NoError(t, err)
	_, err = w.Write([]byte("1 1 0 0\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1 1 0 0\n", string(content))
}
