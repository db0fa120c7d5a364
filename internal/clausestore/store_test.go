// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package clausestore_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dzpbip/pbip-checker/internal/clausestore"
)

func TestAddInputAssignsDenseIds(t *testing.T) {
	var buf bytes.Buffer
	s := clausestore.New(&buf, nil)
	id1 := s.AddInput([]int{1, 2})
	id2 := s.AddInput([]int{-1, 3})
	require.Equal(t, 1, id1)
	require.Equal(t, 2, id2)
	require.NoError(t, s.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1 1 2 0 0", lines[0])
	assert.Equal(t, "2 -1 3 0 0", lines[1])
}

func TestAddDerivedRecordsAntecedents(t *testing.T) {
	var buf bytes.Buffer
	s := clausestore.New(&buf, nil)
	s.AddInput([]int{1, 2})
	id := s.AddDerived([]int{2}, []int{1}, "unit propagation")
	require.Equal(t, 2, id)
	require.NoError(t, s.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "2 2 0 1 0", lines[1])
}

func TestAddDerivedTautologyWithNoAntecedentsIsSuppressed(t *testing.T) {
	var buf bytes.Buffer
	s := clausestore.New(&buf, nil)
	id := s.AddDerived([]int{5, -5}, nil, "trivial")
	assert.Equal(t, clausestore.TautologyID, id)
	require.NoError(t, s.Close())
	assert.Empty(t, buf.String())
}

func TestAddDerivedFiltersTautologyFromAntecedents(t *testing.T) {
	var buf bytes.Buffer
	s := clausestore.New(&buf, nil)
	id := s.AddDerived([]int{1}, []int{clausestore.TautologyID, 7}, "")
	require.NoError(t, s.Close())
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, "1 1 0 7 0", lines[len(lines)-1])
	assert.Equal(t, 1, id)
}

func TestCommentIsEmittedAsCLine(t *testing.T) {
	var buf bytes.Buffer
	s := clausestore.New(&buf, nil)
	s.Comment("hello world")
	require.NoError(t, s.Close())
	assert.Equal(t, "c hello world\n", buf.String())
}
