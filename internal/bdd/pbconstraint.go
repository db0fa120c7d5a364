// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package bdd

import "github.com/dzpbip/pbip-checker/internal/pbc"

// constraintKey memoises ConstructConstraint's recursion on the pair
// (index into the term list, remaining right-hand side).
type constraintKey struct {
	idx, rhs int
}

// ConstructConstraint builds the reduced BDD of a canonical pseudo-Boolean
// constraint Σ aᵢ·lᵢ ≥ k (spec.md §4.2): walk the terms in level order
// (pbc.Constraint already orders them by increasing variable id, which
// matches the BDD's variable order one-for-one) carrying the remaining
// right-hand side; branch on each literal's two outcomes and terminate
// early once the constraint is forced true (rhs already met) or forced
// false (not enough coefficient mass left to ever meet it). No clause is
// emitted for the construction itself — unlike a clause's TBDD, a
// constraint's BDD needs no inputId to validate against, since it is
// simply the constraint's own truth-functional definition; its defining
// clauses (emitted per node by makenode) already characterise it.
func (b *Manager) ConstructConstraint(terms []pbc.Term, rhs int) Node {
	suffix := make([]int, len(terms)+1)
	for i := len(terms) - 1; i >= 0; i-- {
		suffix[i] = suffix[i+1] + terms[i].Coeff
	}
	memo := make(map[constraintKey]int)
	return b.retnode(b.buildConstraint(terms, suffix, memo, 0, rhs))
}

func (b *Manager) buildConstraint(terms []pbc.Term, suffix []int, memo map[constraintKey]int, idx, rhs int) int {
	if rhs <= 0 {
		return 1
	}
	if suffix[idx] < rhs {
		return 0
	}
	k := constraintKey{idx, rhs}
	if n, ok := memo[k]; ok {
		return n
	}
	t := terms[idx]
	level := levelOf(t.Lit)
	satisfied := b.buildConstraint(terms, suffix, memo, idx+1, rhs-t.Coeff)
	unsatisfied := b.buildConstraint(terms, suffix, memo, idx+1, rhs)
	var lo, hi int
	if t.Lit > 0 {
		hi, lo = satisfied, unsatisfied
	} else {
		hi, lo = unsatisfied, satisfied
	}
	node := b.makenode(level, lo, hi)
	memo[k] = node
	return node
}
