// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package pbc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dzpbip/pbip-checker/internal/pbc"
)

func TestParseOPBSimpleClause(t *testing.T) {
	cons, err := pbc.ParseOPB("1 x1 1 x2 >= 1 ;")
	require.NoError(t, err)
	require.Len(t, cons, 1)
	c := cons[0]
	assert.Equal(t, 1, c.RHS())
	lits, ok := c.AsClause()
	require.True(t, ok)
	assert.Equal(t, []int{1, 2}, lits)
}

func TestParseOPBNegatedLiteral(t *testing.T) {
	// 2 ~x1 + 3 x2 >= 1  ==  2*(1-x1) + 3*x2 >= 1  ==  -2 x1 + 3 x2 >= -1
	// coefficient-normalised: 2 (~x1) + 3 x2 >= 1 (aᵢ already positive here).
	cons, err := pbc.ParseOPB("2 ~x1 3 x2 >= 1 ;")
	require.NoError(t, err)
	require.Len(t, cons, 1)
	c := cons[0]
	m := c.CoeffMap()
	assert.Equal(t, -2, m[1])
	assert.Equal(t, 3, m[2])
	assert.Equal(t, 1, c.RHS())
}

func TestParseOPBNegativeCoefficientIsFlipped(t *testing.T) {
	// -2 x1 + 3 x2 >= 1  -->  variable normalisation already done (no
	// negation marker), coefficient normalisation flips -2x1 onto 2(~x1).
	cons, err := pbc.ParseOPB("-2 x1 3 x2 >= 1 ;")
	require.NoError(t, err)
	require.Len(t, cons, 1)
	c := cons[0]
	for _, term := range c.Terms() {
		assert.Positive(t, term.Coeff)
	}
	m := c.CoeffMap()
	assert.Equal(t, -2, m[1])
	assert.Equal(t, 3, m[2])
	// -2x1 == 2(~x1) - 2, so -2x1 + 3x2 >= 1  ==  2(~x1) + 3x2 >= 1 + 2.
	assert.Equal(t, 1+2, c.RHS())
}

func TestParseOPBEqualitySplitsIntoTwoConstraints(t *testing.T) {
	cons, err := pbc.ParseOPB("1 x1 1 x2 = 1 ;")
	require.NoError(t, err)
	require.Len(t, cons, 2)
	for _, c := range cons {
		for _, term := range c.Terms() {
			assert.Positive(t, term.Coeff)
		}
	}
}

func TestParseOPBStrictInequalities(t *testing.T) {
	lt, err := pbc.ParseOPB("1 x1 1 x2 < 2 ;")
	require.NoError(t, err)
	require.Len(t, lt, 1)
	assert.Equal(t, 1, lt[0].RHS()) // <2 on -lhs >= ... ends up rhs=1

	gt, err := pbc.ParseOPB("1 x1 1 x2 > 0 ;")
	require.NoError(t, err)
	require.Len(t, gt, 1)
	assert.Equal(t, 1, gt[0].RHS())
}

func TestIsCardinalityAndMaxCoefficient(t *testing.T) {
	cons, err := pbc.ParseOPB("1 x1 1 x2 1 x3 >= 2 ;")
	require.NoError(t, err)
	c := cons[0]
	assert.True(t, c.IsCardinality())
	assert.Equal(t, 1, c.MaxCoefficient())

	cons2, err := pbc.ParseOPB("2 x1 1 x2 >= 2 ;")
	require.NoError(t, err)
	c2 := cons2[0]
	assert.False(t, c2.IsCardinality())
	assert.Equal(t, 2, c2.MaxCoefficient())
}

func TestNegateRoundTrip(t *testing.T) {
	cons, err := pbc.ParseOPB("1 x1 1 x2 >= 1 ;")
	require.NoError(t, err)
	c := cons[0]
	neg := c.Negate()
	// Σaᵢ = 2, k = 1, negation has rhs = 2-1+1 = 2: x1=x2=0 is the only
	// model of the original constraint's complement under clause shape.
	assert.Equal(t, 2, neg.RHS())
	for _, t2 := range neg.Terms() {
		assert.Negative(t, t2.Lit)
	}
}

func TestDuplicateVariableTermsMerge(t *testing.T) {
	cons, err := pbc.ParseOPB("1 x1 1 x1 >= 1 ;")
	require.NoError(t, err)
	c := cons[0]
	require.Len(t, c.Terms(), 1)
	assert.Equal(t, 2, c.Terms()[0].Coeff)
}

func TestParseOPBRejectsMalformed(t *testing.T) {
	_, err := pbc.ParseOPB("1 x1 >= ")
	assert.Error(t, err)
	_, err = pbc.ParseOPB("1 x1 1 x2 ?? 1 ;")
	assert.Error(t, err)
}
