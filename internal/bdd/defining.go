// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package bdd

import "fmt"

// extvar returns the Boolean extension variable identifying node k, for
// k >= 2. Problem variables occupy ids [1..varnum]; node k's extension
// variable is varnum+(k-1), so that distinct node table slots never collide
// with a problem variable or with one another.
func (b *Manager) extvar(k int) int {
	return int(b.varnum) + (k - 1)
}

// posLiteral returns the literal asserting "x holds" where x is a BDD branch
// (a node id, or one of the two constants). For the constant 1 the disjunct
// is always true, so any clause containing it is a tautology and the caller
// must skip emitting it; for the constant 0 the disjunct is always false, so
// the caller must omit it (and emit the rest of the clause).
func (b *Manager) posLiteral(x int) (lit int, tautology, omit bool) {
	switch x {
	case 1:
		return 0, true, false
	case 0:
		return 0, false, true
	default:
		return b.extvar(x), false, false
	}
}

// negLiteral is the dual of posLiteral, for a disjunct asserting "not x".
func (b *Manager) negLiteral(x int) (lit int, tautology, omit bool) {
	switch x {
	case 1:
		return 0, false, true
	case 0:
		return 0, true, false
	default:
		return -b.extvar(x), false, false
	}
}

// emitDefiningClauses emits the four defining clauses HD/LD/HU/LU for a
// freshly allocated node k = (level, low, high), through the injected clause
// store. Together the four clauses characterise node <-> ite(var, high, low)
// (spec.md §3, §4.3). A clause that would be a structural tautology (one of
// its branches is the constant that already satisfies it) carries no
// information and is skipped rather than recorded.
func (b *Manager) emitDefiningClauses(k int, level int32, low, high int) {
	if b.store == nil {
		return
	}
	node := b.extvar(k)
	v := int(level) + 1
	var w witness

	if lit, taut, omit := b.posLiteral(high); !taut {
		lits := []int{-node, -v}
		if !omit {
			lits = append(lits, lit)
		}
		w.hd = b.store.AddDerived(lits, nil, fmt.Sprintf("HD for node %d", node))
	}
	if lit, taut, omit := b.posLiteral(low); !taut {
		lits := []int{-node, v}
		if !omit {
			lits = append(lits, lit)
		}
		w.ld = b.store.AddDerived(lits, nil, fmt.Sprintf("LD for node %d", node))
	}
	if lit, taut, omit := b.negLiteral(high); !taut {
		lits := []int{node, -v}
		if !omit {
			lits = append(lits, lit)
		}
		w.hu = b.store.AddDerived(lits, nil, fmt.Sprintf("HU for node %d", node))
	}
	if lit, taut, omit := b.negLiteral(low); !taut {
		lits := []int{node, v}
		if !omit {
			lits = append(lits, lit)
		}
		w.lu = b.store.AddDerived(lits, nil, fmt.Sprintf("LU for node %d", node))
	}
	b.defClauses[k] = w
}
