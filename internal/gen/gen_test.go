// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package gen_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dzpbip/pbip-checker/internal/bdd"
	"github.com/dzpbip/pbip-checker/internal/cfg"
	"github.com/dzpbip/pbip-checker/internal/gen"
	"github.com/dzpbip/pbip-checker/internal/pbc"
	"github.com/dzpbip/pbip-checker/internal/pbipio"
)

func newGenerator(t *testing.T, problemVars int) *gen.Generator {
	t.Helper()
	m, err := bdd.New(problemVars, nil)
	require.NoError(t, err)
	ctx := cfg.NewContext(cfg.DefaultConfig(), time.Unix(0, 0))
	return gen.New(ctx, m, problemVars)
}

func TestGenerateClauseShapedConstraintEmitsDirectly(t *testing.T) {
	g := newGenerator(t, 2)
	steps := []pbipio.Step{
		{Kind: pbipio.Input, Constraints: []pbc.Constraint{pbc.New([]pbc.Term{{Lit: 1, Coeff: 1}, {Lit: 2, Coeff: 1}}, 1)}},
	}
	out, err := g.Generate(steps)
	require.NoError(t, err)
	require.Len(t, out[0].InputHints, 1)

	cnf := g.CNF()
	require.Len(t, cnf.Clauses, 1)
	assert.ElementsMatch(t, []int{1, 2}, cnf.Clauses[0])
}

func TestGenerateCardinalityConstraintIntroducesExtensionVariables(t *testing.T) {
	g := newGenerator(t, 4)
	// at least 3 of 4, not clause-shaped (rhs != 1): exercises the
	// sequential-counter cardinality pass.
	terms := []pbc.Term{{Lit: 1, Coeff: 1}, {Lit: 2, Coeff: 1}, {Lit: 3, Coeff: 1}, {Lit: 4, Coeff: 1}}
	steps := []pbipio.Step{
		{Kind: pbipio.Input, Constraints: []pbc.Constraint{pbc.New(terms, 3)}},
	}
	out, err := g.Generate(steps)
	require.NoError(t, err)
	assert.NotEmpty(t, out[0].InputHints)

	cnf := g.CNF()
	assert.Greater(t, cnf.Varnum, 4, "cardinality encoder should allocate extension variables")
	assert.Len(t, cnf.Clauses, len(out[0].InputHints))
}

func TestGenerateWeightedConstraintUsesBddPass(t *testing.T) {
	g := newGenerator(t, 2)
	// 2 x1 + 1 x2 >= 2: not a clause, not a cardinality constraint.
	terms := []pbc.Term{{Lit: 1, Coeff: 2}, {Lit: 2, Coeff: 1}}
	steps := []pbipio.Step{
		{Kind: pbipio.Input, Constraints: []pbc.Constraint{pbc.New(terms, 2)}},
	}
	out, err := g.Generate(steps)
	require.NoError(t, err)
	assert.NotEmpty(t, out[0].InputHints)
	assert.Len(t, g.CNF().Clauses, len(out[0].InputHints))
}

func TestGenerateNonInputStepsPassThroughUnchanged(t *testing.T) {
	g := newGenerator(t, 1)
	assertStep := pbipio.Step{
		Kind:        pbipio.Assert,
		Constraints: []pbc.Constraint{pbc.New([]pbc.Term{{Lit: 1, Coeff: 1}}, 1)},
		AssertHints: []int{1},
	}
	out, err := g.Generate([]pbipio.Step{assertStep})
	require.NoError(t, err)
	assert.Equal(t, assertStep, out[0])
}

func TestRenameKeepsClauseCountAndVarnum(t *testing.T) {
	g := newGenerator(t, 4)
	terms := []pbc.Term{{Lit: 1, Coeff: 1}, {Lit: 2, Coeff: 1}, {Lit: 3, Coeff: 1}, {Lit: 4, Coeff: 1}}
	_, err := g.Generate([]pbipio.Step{
		{Kind: pbipio.Input, Constraints: []pbc.Constraint{pbc.New(terms, 3)}},
	})
	require.NoError(t, err)

	before := g.CNF()
	g.Rename()
	after := g.CNF()

	assert.Equal(t, len(before.Clauses), len(after.Clauses))
	assert.Equal(t, before.Varnum, after.Varnum)
}
