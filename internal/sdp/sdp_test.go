// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package sdp_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dzpbip/pbip-checker/internal/bdd"
	"github.com/dzpbip/pbip-checker/internal/clausestore"
	"github.com/dzpbip/pbip-checker/internal/sdp"
)

func newManager(t *testing.T, varnum int) (*bdd.Manager, *clausestore.Store) {
	t.Helper()
	var buf bytes.Buffer
	store := clausestore.New(&buf, nil)
	m, err := bdd.New(varnum, store)
	require.NoError(t, err)
	return m, store
}

func addInputClauses(store *clausestore.Store, literalSets [][]int) []sdp.Clause {
	clauses := make([]sdp.Clause, len(literalSets))
	for i, lits := range literalSets {
		clauses[i] = sdp.Clause{ID: store.AddInput(lits), Literals: lits}
	}
	return clauses
}

func TestReduceAllInputNoTseitinVariables(t *testing.T) {
	// (x1 v x2) with every variable an input variable: no head/splitting
	// literal is ever formed, so this exercises only the initial-term and
	// bucket-0 merge path.
	m, store := newManager(t, 2)
	clauses := addInputClauses(store, [][]int{{1, 2}})

	r := sdp.New(m, store, func(int) bool { return true }, nil)
	root, validation := r.Reduce(clauses)

	require.NotEqual(t, clausestore.TautologyID, validation)
	assert.NotEqual(t, 0, *root)
}

func TestReduceResolvesAwayTseitinVariable(t *testing.T) {
	// (z3 v x1) ^ (~z3 v x2), z3 a Tseitin variable: resolving on z3 must
	// yield (x1 v x2) over the input variables alone.
	m, store := newManager(t, 3)
	clauses := addInputClauses(store, [][]int{{3, 1}, {-3, 2}})

	isInput := func(v int) bool { return v == 1 || v == 2 }
	r := sdp.New(m, store, isInput, nil)
	root, validation := r.Reduce(clauses)

	require.NotEqual(t, clausestore.TautologyID, validation)
	for _, lvl := range m.GetSupportLevels(root) {
		assert.Contains(t, []int32{0, 1}, lvl, "result must only range over input variables x1/x2")
	}
}

func TestReducePureTseitinLiteralIsDropped(t *testing.T) {
	// (z3 v x1) alone: z3 only ever appears positively, so it is pure and
	// the clause is dropped rather than advanced with z3 stripped off.
	m, store := newManager(t, 3)
	clauses := addInputClauses(store, [][]int{{3, 1}})

	isInput := func(v int) bool { return v == 1 || v == 2 }
	r := sdp.New(m, store, isInput, nil)
	root, validation := r.Reduce(clauses)

	assert.Equal(t, 1, *root, "no constraint survives once the only clause mentioning x1 is dropped")
	assert.Equal(t, clausestore.TautologyID, validation)
}

func TestReduceEmptyClauseListIsTrue(t *testing.T) {
	m, store := newManager(t, 1)

	r := sdp.New(m, store, func(int) bool { return true }, nil)
	root, validation := r.Reduce(nil)

	assert.Equal(t, 1, *root)
	assert.Equal(t, clausestore.TautologyID, validation)
}
