// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package pbipio_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dzpbip/pbip-checker/internal/pbipio"
)

func TestParseInputStep(t *testing.T) {
	steps, err := pbipio.Parse(strings.NewReader("i 1 x1 1 x2 >= 1 ; 1 2\n"))
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, pbipio.Input, steps[0].Kind)
	assert.Equal(t, []int{1, 2}, steps[0].InputHints)
}

func TestParseSkipsBlankAndCommentLines(t *testing.T) {
	steps, err := pbipio.Parse(strings.NewReader("* a comment\n\ni 1 x1 >= 1 ; 1\n"))
	require.NoError(t, err)
	require.Len(t, steps, 1)
}

func TestParseAssertStep(t *testing.T) {
	steps, err := pbipio.Parse(strings.NewReader("a 1 x1 >= 1 ; 3 4\n"))
	require.NoError(t, err)
	assert.Equal(t, pbipio.Assert, steps[0].Kind)
	assert.Equal(t, []int{3, 4}, steps[0].AssertHints)
}

func TestParseRupHintsPairSplitsSharedHead(t *testing.T) {
	steps, err := pbipio.Parse(strings.NewReader("u 1 x1 >= 1 ; [3 1 2] [4]\n"))
	require.NoError(t, err)
	require.Equal(t, pbipio.Rup, steps[0].Kind)
	assert.Equal(t, []pbipio.RupHint{{Step: 3, Literal: 1}, {Step: 3, Literal: 2}, {Step: 4}}, steps[0].RupHints)
}

func TestParseAttachesPrecedingCommentsToNextStep(t *testing.T) {
	steps, err := pbipio.Parse(strings.NewReader("* first note\n* second note\ni 1 x1 >= 1 ; 1\na >= 1 ; 1\n"))
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, []string{"first note", "second note"}, steps[0].Comments)
	assert.Empty(t, steps[1].Comments)
}

func TestParseMissingSemicolonIsParseError(t *testing.T) {
	_, err := pbipio.Parse(strings.NewReader("i 1 x1 >= 1\n"))
	require.Error(t, err)
}

func TestParseUnrecognisedCommandIsParseError(t *testing.T) {
	_, err := pbipio.Parse(strings.NewReader("z 1 x1 >= 1 ;\n"))
	require.Error(t, err)
}

func TestWriteRendersHintsBackToText(t *testing.T) {
	steps, err := pbipio.Parse(strings.NewReader("i 1 x1 1 x2 >= 1 ; 1 2\nu 1 x1 >= 1 ; [1 1] [2]\n"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, pbipio.Write(&buf, steps))

	reparsed, err := pbipio.Parse(&buf)
	require.NoError(t, err)
	require.Len(t, reparsed, 2)
	assert.Equal(t, []int{1, 2}, reparsed[0].InputHints)
	assert.Equal(t, []pbipio.RupHint{{Step: 1, Literal: 1}, {Step: 2}}, reparsed[1].RupHints)
}
