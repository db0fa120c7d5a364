// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package bdd

import (
	"fmt"
	"sort"

	"github.com/dzpbip/pbip-checker/internal/clausestore"
)

const tautologyID = clausestore.TautologyID

// min2 returns the smaller of two BDD levels.
func min2(p, q int32) int32 {
	if p <= q {
		return p
	}
	return q
}

// nodeVar returns the CNF literal asserting that node n holds: its
// extension variable. It is only meaningful for an internal node (n >= 2);
// for the constants 0 and 1 it returns an unrelated variable, so callers
// special-case 0 and 1 before reaching here.
func (b *Manager) nodeVar(n int) int {
	return b.extvar(n)
}

func (b *Manager) witnessOf(n int) witness {
	return b.defClauses[n]
}

// JustifyImply proves f => g, returning the id of the clause asserting
// (-f.id v g.id) together with true on success, or (-1, false) if the
// implication does not hold. Grounded on spec.md §4.3's recursive
// definition: recurse on top(f) vs top(g), combining the two child
// witnesses with f's and g's defining clauses; a base case is reached
// as soon as either side collapses to a constant or the two nodes
// coincide.
func (b *Manager) JustifyImply(f, g Node) (int, bool) {
	if b.checkptr(f) != nil || b.checkptr(g) != nil {
		return -1, false
	}
	return b.justifyImply(*f, *g)
}

func (b *Manager) justifyImply(fi, gi int) (int, bool) {
	switch {
	case fi == 0:
		return tautologyID, true
	case gi == 1:
		return tautologyID, true
	case fi == gi:
		return tautologyID, true
	case fi == 1:
		return -1, false
	case gi == 0:
		return -1, false
	}

	lvl := min2(b.nodes[fi].level, b.nodes[gi].level)
	f0, f1 := fi, fi
	if b.nodes[fi].level == lvl {
		f0, f1 = b.nodes[fi].low, b.nodes[fi].high
	}
	g0, g1 := gi, gi
	if b.nodes[gi].level == lvl {
		g0, g1 = b.nodes[gi].low, b.nodes[gi].high
	}

	v0, ok := b.justifyImply(f0, g0)
	if !ok {
		return -1, false
	}
	v1, ok := b.justifyImply(f1, g1)
	if !ok {
		return -1, false
	}

	if b.store == nil {
		return tautologyID, true
	}
	fw, gw := b.witnessOf(fi), b.witnessOf(gi)
	lits := []int{-b.nodeVar(fi), b.nodeVar(gi)}
	antecedents := []int{v0, v1, fw.hd, fw.ld, gw.hu, gw.lu}
	cid := b.store.AddDerived(lits, antecedents, fmt.Sprintf("justify %d => %d", b.nodeVar(fi), b.nodeVar(gi)))
	return cid, true
}

// justifyAndImplies proves f ^ g => h, returning the id of the clause
// asserting (-f.id v -g.id v h.id). Used both directly (ApplyAndJustify
// proving the conjunction it just built implies itself) and as the first
// leg of ApplyAndJustifyImply.
func (b *Manager) justifyAndImplies(fi, gi, hi int) int {
	switch {
	case fi == 0 || gi == 0:
		return tautologyID
	case hi == 1:
		return tautologyID
	case fi == 1:
		cid, _ := b.justifyImply(gi, hi)
		return cid
	case gi == 1:
		cid, _ := b.justifyImply(fi, hi)
		return cid
	case fi == gi:
		cid, _ := b.justifyImply(fi, hi)
		return cid
	}

	lvl := min3(b.nodes[fi].level, b.nodes[gi].level, b.nodes[hi].level)
	f0, f1 := fi, fi
	if b.nodes[fi].level == lvl {
		f0, f1 = b.nodes[fi].low, b.nodes[fi].high
	}
	g0, g1 := gi, gi
	if b.nodes[gi].level == lvl {
		g0, g1 = b.nodes[gi].low, b.nodes[gi].high
	}
	h0, h1 := hi, hi
	if b.nodes[hi].level == lvl {
		h0, h1 = b.nodes[hi].low, b.nodes[hi].high
	}

	v0 := b.justifyAndImplies(f0, g0, h0)
	v1 := b.justifyAndImplies(f1, g1, h1)

	if b.store == nil {
		return tautologyID
	}
	fw, gw, hw := b.witnessOf(fi), b.witnessOf(gi), b.witnessOf(hi)
	lits := []int{-b.nodeVar(fi), -b.nodeVar(gi)}
	if hi >= 2 {
		lits = append(lits, b.nodeVar(hi))
	}
	antecedents := []int{v0, v1, fw.hd, fw.ld, gw.hd, gw.ld, hw.hu, hw.lu}
	return b.store.AddDerived(lits, antecedents, fmt.Sprintf("justify %d ^ %d => %d", b.nodeVar(fi), b.nodeVar(gi), b.nodeVar(hi)))
}

// ApplyAndJustify computes h = f ^ g and a clause id proving f ^ g => h.
func (b *Manager) ApplyAndJustify(f, g Node) (Node, int) {
	h := b.Apply(f, g, OPand)
	if b.checkptr(h) != nil {
		return h, -1
	}
	cid := b.justifyAndImplies(*f, *g, *h)
	return h, cid
}

// ApplyAndJustifyImply proves f ^ g => h for a given (not computed) h,
// by building the actual conjunction k = f ^ g and chaining f^g=>k with
// k=>h.
func (b *Manager) ApplyAndJustifyImply(f, g, h Node) (int, bool) {
	k := b.Apply(f, g, OPand)
	if b.checkptr(k) != nil || b.checkptr(h) != nil {
		return -1, false
	}
	proveFGK := b.justifyAndImplies(*f, *g, *k)
	proveKH, ok := b.justifyImply(k, h)
	if !ok {
		return -1, false
	}
	if b.store == nil {
		return tautologyID, true
	}
	if *k == *h {
		return proveFGK, true
	}
	if *f < 2 || *g < 2 || *h < 2 {
		return proveKH, true
	}
	lits := []int{-b.nodeVar(*f), -b.nodeVar(*g), b.nodeVar(*h)}
	cid := b.store.AddDerived(lits, []int{proveFGK, proveKH}, fmt.Sprintf("justify %d ^ %d => %d", b.nodeVar(*f), b.nodeVar(*g), b.nodeVar(*h)))
	return cid, true
}

// literal returns the Node for variable v in the given phase (true for the
// positive literal, false for the negated one).
func (b *Manager) literal(v int, phase bool) Node {
	if phase {
		return b.Ithvar(v)
	}
	return b.NIthvar(v)
}

// levelOf returns the BDD level of a 1-based CNF variable id, matching the
// v = level+1 convention used throughout defining.go.
func levelOf(v int) int32 {
	if v < 0 {
		v = -v
	}
	return int32(v - 1)
}

// byDescendingLevel sorts a literal slice so that the variable with the
// highest BDD level comes first, matching the right-fold order required by
// ConstructClauseBdd (spec.md §4.4). ConstructOr/ConstructAnd fold their
// literals in the order given and do not use it.
func byDescendingLevel(literals []int) []int {
	sorted := append([]int(nil), literals...)
	sort.Slice(sorted, func(i, j int) bool { return levelOf(sorted[i]) > levelOf(sorted[j]) })
	return sorted
}

// ConstructClauseBdd builds the reduced BDD of the disjunction of literals
// and a validation proving inputID => root.id. It folds from the constant
// false, adding one literal at a time in descending level order (spec.md
// §4.4's "right-fold").
func (b *Manager) ConstructClauseBdd(inputID int, literals []int) (Node, int) {
	r := 0
	val := tautologyID
	for _, lit := range byDescendingLevel(literals) {
		lvl := levelOf(lit)
		var hi, lo int
		if lit > 0 {
			hi, lo = 1, r
		} else {
			hi, lo = r, 1
		}
		nr := b.makenode(lvl, lo, hi)
		if nr == 1 {
			// the clause is already a tautology at this prefix: no further
			// literal can change that, and inputID => true trivially.
			r, val = nr, tautologyID
			break
		}
		if b.store != nil {
			w := b.witnessOf(nr)
			lits := []int{-inputID, b.nodeVar(nr)}
			val = b.store.AddDerived(lits, []int{val, w.hd, w.ld, w.hu, w.lu}, fmt.Sprintf("constructClauseBdd step for literal %d", lit))
		}
		r = nr
	}
	return b.retnode(r), val
}

// ConstructOr builds the reduced BDD of the disjunction of literals and a
// validation proving root <-> (l1 v l2 v ...). Dual of ConstructClauseBdd,
// folding via actual Apply/OPor so the intermediate Boolean combination
// (not just an implication from a named clause) is what gets justified.
func (b *Manager) ConstructOr(literals []int) (Node, int) {
	if len(literals) == 0 {
		return b.False(), tautologyID
	}
	acc := b.literal(int(levelOf(literals[0])), literals[0] > 0)
	val := tautologyID
	for _, lit := range literals[1:] {
		l := b.literal(int(levelOf(lit)), lit > 0)
		nacc := b.Apply(acc, l, OPor)
		if b.store != nil && *nacc >= 2 {
			w := b.witnessOf(*nacc)
			val = b.store.AddDerived([]int{b.nodeVar(*nacc)}, []int{val, w.hu, w.lu}, "constructOr step")
		}
		acc = nacc
	}
	return acc, val
}

// ConstructAnd is the conjunctive dual of ConstructOr.
func (b *Manager) ConstructAnd(literals []int) (Node, int) {
	if len(literals) == 0 {
		return b.True(), tautologyID
	}
	acc := b.literal(int(levelOf(literals[0])), literals[0] > 0)
	val := tautologyID
	for _, lit := range literals[1:] {
		l := b.literal(int(levelOf(lit)), lit > 0)
		nacc := b.Apply(acc, l, OPand)
		if b.store != nil && *nacc >= 2 {
			w := b.witnessOf(*nacc)
			val = b.store.AddDerived([]int{b.nodeVar(*nacc)}, []int{val, w.hd, w.ld}, "constructAnd step")
		}
		acc = nacc
	}
	return acc, val
}

// NodeID returns the clause-store literal identifying node n: its
// extension variable for an internal node. Exported so the bucket/SDP
// reducers and the driver can build clause literal lists (e.g. the unit
// clause [nroot.id]) without reaching into the manager's internals. The
// two constants have no such literal; callers distinguish them via
// Equal(n, True())/Equal(n, False()) before calling NodeID.
func (b *Manager) NodeID(n Node) int {
	if b.checkptr(n) != nil || *n < 2 {
		return 0
	}
	return b.nodeVar(*n)
}

// ExistJustify existentially quantifies n over the single variable at the
// given level and folds the caller's own validation of n (rootValidation)
// with the implication witness n=>nroot into one derived clause
// asserting [nroot.id]. Mirrors the original's quantifyRoot: a bucket
// reducer calls this once a bucket has a lone surviving member whose
// variable must be eliminated (spec.md §4.5 step 2).
func (b *Manager) ExistJustify(n Node, level int, rootValidation int) (Node, int) {
	varset := b.Makeset([]int{level})
	nroot := b.Exist(n, varset)
	if b.checkptr(nroot) != nil {
		return nroot, -1
	}
	cid, ok := b.JustifyImply(n, nroot)
	if !ok {
		return nroot, -1
	}
	if b.store == nil || *nroot == 1 {
		return nroot, tautologyID
	}
	antecedents := []int{rootValidation}
	if cid != tautologyID {
		antecedents = append(antecedents, cid)
	}
	// *nroot == 0 means quantifying level out of n still leaves the constant
	// false: n was already unsatisfiable, and this clause is the empty
	// clause (the refutation). *nroot >= 2 is the ordinary case, a unit
	// clause over the node's own extension variable.
	lits := []int{}
	if *nroot >= 2 {
		lits = []int{b.nodeVar(*nroot)}
	}
	val := b.store.AddDerived(lits, antecedents, fmt.Sprintf("quantify level %d", level))
	return nroot, val
}

// GenerateClauses returns a CNF realising root = true: the defining
// clauses (in literal form, not clause-store ids) of every node reachable
// from root, plus the unit clause asserting root itself. Used by C8's BDD
// pass, which needs actual clauses to write to the output CNF rather than
// clause-store references.
func (b *Manager) GenerateClauses(root Node) [][]int {
	if b.checkptr(root) != nil {
		return nil
	}
	var clauses [][]int
	if *root == 0 {
		return [][]int{{}}
	}
	if *root != 1 {
		clauses = append(clauses, []int{b.nodeVar(*root)})
	}
	b.Allnodes(func(id, level, low, high int) error {
		if id < 2 {
			return nil
		}
		v := level + 1
		node := b.nodeVar(id)
		if lit, taut, omit := b.posLiteral(high); !taut {
			c := []int{-node, -v}
			if !omit {
				c = append(c, lit)
			}
			clauses = append(clauses, c)
		}
		if lit, taut, omit := b.posLiteral(low); !taut {
			c := []int{-node, v}
			if !omit {
				c = append(c, lit)
			}
			clauses = append(clauses, c)
		}
		if lit, taut, omit := b.negLiteral(high); !taut {
			c := []int{node, -v}
			if !omit {
				c = append(c, lit)
			}
			clauses = append(clauses, c)
		}
		if lit, taut, omit := b.negLiteral(low); !taut {
			c := []int{node, v}
			if !omit {
				c = append(c, lit)
			}
			clauses = append(clauses, c)
		}
		return nil
	}, root)
	return clauses
}

// GetSupportLevels returns the descending list of levels appearing in
// root's support.
func (b *Manager) GetSupportLevels(root Node) []int32 {
	if b.checkptr(root) != nil {
		return nil
	}
	seen := make(map[int32]bool)
	b.Allnodes(func(id, level, low, high int) error {
		if id >= 2 {
			seen[int32(level)] = true
		}
		return nil
	}, root)
	levels := make([]int32, 0, len(seen))
	for lvl := range seen {
		levels = append(levels, lvl)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] > levels[j] })
	return levels
}
