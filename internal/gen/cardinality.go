// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package gen

// encodeAtLeastK emits CNF clauses asserting that at least k of lits are
// true, using the "Pysat-style sequential-counter-like" encoder spec.md
// §4.8 names: one extension variable per (prefix-length, count) pair,
// with the clause families of encodeAtMostK. It is the direct dual of the classical Sinz
// at-most-k sequential counter (encodeAtMostK below): at-least-k of lits
// is exactly at-most-(n-k) of their negations.
func (g *Generator) encodeAtLeastK(lits []int, k int) []int {
	n := len(lits)
	if k <= 0 {
		return nil
	}
	if k > n {
		return []int{g.addClause(nil)}
	}
	neg := make([]int, n)
	for i, l := range lits {
		neg[i] = -l
	}
	return g.encodeAtMostK(neg, n-k)
}

// encodeAtMostK is Sinz's sequential-counter "at most k" encoding.
// Register r[i][j] (i in [0,n-2], j in [0,k-1]) means "at least j+1 of
// lits[0..i] are true". Three clause families carry the induction:
// monotonicity (a register true at prefix i stays true at prefix i+1),
// increment (a true literal bumps the count into the next register), and
// overflow (a (k+1)-th true literal anywhere is forbidden) — plus two
// small boundary families for the first prefix and the last literal.
func (g *Generator) encodeAtMostK(lits []int, k int) []int {
	n := len(lits)
	if k >= n {
		return nil
	}
	if k <= 0 {
		ids := make([]int, n)
		for i, l := range lits {
			ids[i] = g.addClause([]int{-l})
		}
		return ids
	}

	r := make([][]int, n-1)
	for i := range r {
		r[i] = make([]int, k)
		for j := range r[i] {
			r[i][j] = g.freshVar()
		}
	}

	var ids []int
	ids = append(ids, g.addClause([]int{-lits[0], r[0][0]}))
	for j := 1; j < k; j++ {
		ids = append(ids, g.addClause([]int{-r[0][j]}))
	}

	for i := 1; i < n-1; i++ {
		for j := 0; j < k; j++ {
			ids = append(ids, g.addClause([]int{-r[i-1][j], r[i][j]}))
		}
		for j := 0; j < k-1; j++ {
			ids = append(ids, g.addClause([]int{-lits[i], -r[i-1][j], r[i][j+1]}))
		}
		ids = append(ids, g.addClause([]int{-lits[i], r[i][0]}))
	}

	for i := 1; i < n-1; i++ {
		ids = append(ids, g.addClause([]int{-lits[i], -r[i-1][k-1]}))
	}
	ids = append(ids, g.addClause([]int{-lits[n-1], -r[n-2][k-1]}))

	return ids
}
