// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

// Package sdp implements symbolic Davis-Putnam reduction (component C6 of
// the specification), the alternative to internal/bucket (C5) for proving
// that a named set of CNF clauses implies a constraint's BDD. SDP keeps
// BDDs smaller than plain bucket elimination by postponing quantification:
// it carries each clause's non-input ("Tseitin") literals as an explicit
// head/splitting-literal pair instead of folding them into the BDD
// immediately, and only builds BDD structure (the "tail") out of input
// variables.
package sdp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dzpbip/pbip-checker/internal/bdd"
	"github.com/dzpbip/pbip-checker/internal/clausestore"
)

// Clause is one named input clause, same shape as bucket.Clause.
type Clause struct {
	ID       int
	Literals []int
}

// Term is (head, ℓ, tail, validation) per spec.md §4.6: head is an ordered
// tuple of literals over non-input variables (descending level, excluding
// ℓ), ℓ is the splitting literal (0 once exhausted), tail is a BDD over
// input variables, and validation is a clause id proving
// "head ∨ ℓ ∨ tail.id" (or "head ∨ tail.id" when ℓ=0).
type Term struct {
	head       []int
	lit        int
	tail       bdd.Node
	validation int
}

// Reducer runs SDP reduction against a shared BDD manager and clause
// store. isInput reports whether a (1-based) variable id is an input
// variable of the constraint being proved; every other variable is
// treated as a Tseitin/extension variable to be resolved away.
type Reducer struct {
	m       *bdd.Manager
	store   *clausestore.Store
	isInput func(v int) bool
	log     *logrus.Entry
}

// New returns a Reducer sharing the given manager and clause store.
func New(m *bdd.Manager, store *clausestore.Store, isInput func(int) bool, log *logrus.Entry) *Reducer {
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	return &Reducer{m: m, store: store, isInput: isInput, log: log}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func levelOfVar(v int) int {
	return abs(v) - 1
}

// headKey canonicalises a head for grouping terms that share it.
func headKey(head []int) string {
	parts := make([]string, len(head))
	for i, l := range head {
		parts[i] = fmt.Sprintf("%d", l)
	}
	return strings.Join(parts, ",")
}

// Reduce proves that the conjunction of clauses implies a root BDD over
// only input variables, and returns that root with the clause id of the
// validation. Mirrors bucket.Reducer.Reduce's contract.
func (r *Reducer) Reduce(clauses []Clause) (bdd.Node, int) {
	buckets := make(map[int][]Term)
	for _, c := range clauses {
		t := r.initialTerm(c)
		buckets[r.bucketOf(t)] = append(buckets[r.bucketOf(t)], t)
	}

	for {
		key := maxKey(buckets)
		if key == 0 {
			break
		}
		r.processBucket(buckets, key)
	}

	return r.processFinal(buckets)
}

func maxKey(buckets map[int][]Term) int {
	best := 0
	for key, members := range buckets {
		if key > best && len(members) > 0 {
			best = key
		}
	}
	return best
}

func (r *Reducer) bucketOf(t Term) int {
	return abs(t.lit)
}

// clauseLiterals assembles the DIMACS literal list for a term's clause:
// head, then ℓ if present, then the tail's node literal unless the tail is
// the constant false (which contributes nothing to a disjunction).
func clauseLiterals(head []int, lit int, tail bdd.Node, m *bdd.Manager) []int {
	lits := append([]int(nil), head...)
	if lit != 0 {
		lits = append(lits, lit)
	}
	if *tail >= 2 {
		lits = append(lits, m.NodeID(tail))
	}
	return lits
}

func isTautology(lits []int) bool {
	seen := make(map[int]bool, len(lits))
	for _, l := range lits {
		if seen[-l] {
			return true
		}
		seen[l] = true
	}
	return false
}

// initialTerm splits a clause's literals into input/non-input groups,
// builds the tail BDD for the input literals, and folds the clause's own
// id with the tail's construction witness into the term's validation.
func (r *Reducer) initialTerm(c Clause) Term {
	var nonInput, inputLits []int
	for _, lit := range c.Literals {
		if r.isInput(abs(lit)) {
			inputLits = append(inputLits, lit)
		} else {
			nonInput = append(nonInput, lit)
		}
	}
	sort.Slice(nonInput, func(i, j int) bool { return levelOfVar(nonInput[i]) > levelOfVar(nonInput[j]) })

	tail, tailVal := r.m.ConstructOr(inputLits)

	lit := 0
	head := nonInput
	if len(nonInput) > 0 {
		lit = nonInput[0]
		head = nonInput[1:]
	}

	lits := clauseLiterals(head, lit, tail, r.m)
	validation := clausestore.TautologyID
	if r.store != nil && !isTautology(lits) && *tail != 1 {
		antecedents := []int{c.ID}
		if tailVal != clausestore.TautologyID {
			antecedents = append(antecedents, tailVal)
		}
		validation = r.store.AddDerived(lits, antecedents, "sdp initial term")
	}
	return Term{head: head, lit: lit, tail: tail, validation: validation}
}

// mergeTails combines two terms that share the same head and splitting
// literal by conjoining their tails: (A v t1) ^ (A v t2) = A v (t1 ^ t2),
// a sound distribution over the shared prefix A = head v lit.
func (r *Reducer) mergeTails(t1, t2 Term) Term {
	tail, cid := r.m.ApplyAndJustify(t1.tail, t2.tail)
	lits := clauseLiterals(t1.head, t1.lit, tail, r.m)
	validation := clausestore.TautologyID
	if r.store != nil && !isTautology(lits) && *tail != 1 {
		antecedents := []int{t1.validation, t2.validation}
		if cid != clausestore.TautologyID {
			antecedents = append(antecedents, cid)
		}
		validation = r.store.AddDerived(lits, antecedents, "sdp tail merge")
	}
	return Term{head: t1.head, lit: t1.lit, tail: tail, validation: validation}
}

// tailMerge groups a bucket's members by (head, sign(lit)) and merges
// each group down to a single survivor (spec.md §4.6 step 1).
func (r *Reducer) tailMerge(members []Term) []Term {
	type groupKey struct {
		head string
		sign bool
	}
	groups := make(map[groupKey][]Term)
	var order []groupKey
	for _, t := range members {
		k := groupKey{headKey(t.head), t.lit > 0}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], t)
	}
	survivors := make([]Term, 0, len(order))
	for _, k := range order {
		g := groups[k]
		merged := g[0]
		for _, t := range g[1:] {
			merged = r.mergeTails(merged, t)
		}
		survivors = append(survivors, merged)
	}
	return survivors
}

// advance moves a term whose splitting literal is now resolved away into
// the bucket of its new deepest remaining literal (spec.md §4.6 step 4).
func (r *Reducer) advance(buckets map[int][]Term, t Term) {
	lit := 0
	head := t.head
	if len(head) > 0 {
		lit = head[0]
		head = head[1:]
	}
	nt := Term{head: head, lit: lit, tail: t.tail, validation: t.validation}
	idx := r.bucketOf(nt)
	buckets[idx] = append(buckets[idx], nt)
}

// processBucket runs the tail-merge/join/resolve pipeline for the bucket
// indexed by variable v (spec.md §4.6).
func (r *Reducer) processBucket(buckets map[int][]Term, v int) {
	members := buckets[v]
	delete(buckets, v)
	members = r.tailMerge(members)

	if r.isInput(v) {
		r.join(buckets, members, v)
		return
	}
	r.resolve(buckets, members, v)
}

// foldLiteralIntoTail absorbs a join-bucket term's lone (unpaired)
// splitting literal into its tail via a plain OR: v is an input variable
// and belongs in the tail's domain regardless of whether an opposite-phase
// partner turned up to join against.
func (r *Reducer) foldLiteralIntoTail(t Term, v int) Term {
	level := levelOfVar(v)
	var litNode bdd.Node
	if t.lit > 0 {
		litNode = r.m.Ithvar(level)
	} else {
		litNode = r.m.NIthvar(level)
	}
	tail := r.m.Apply(t.tail, litNode, bdd.OPor)
	lits := clauseLiterals(t.head, 0, tail, r.m)
	validation := clausestore.TautologyID
	if r.store != nil && !isTautology(lits) && *tail != 1 {
		validation = r.store.AddDerived(lits, []int{t.validation}, "sdp join fold literal")
	}
	return Term{head: t.head, lit: 0, tail: tail, validation: validation}
}

// join combines, for an input-variable bucket, the (at most) two survivors
// of opposite phase into one term whose tail is the ITE over v of their
// tails, dropping the literal entirely (spec.md §4.6 step 2). A head with
// only one phase present has its literal folded into the tail instead,
// since v is an input variable that belongs in the final result.
func (r *Reducer) join(buckets map[int][]Term, members []Term, v int) {
	byHead := make(map[string][]Term)
	var order []string
	for _, t := range members {
		k := headKey(t.head)
		if _, ok := byHead[k]; !ok {
			order = append(order, k)
		}
		byHead[k] = append(byHead[k], t)
	}
	for _, k := range order {
		g := byHead[k]
		if len(g) == 1 {
			r.advance(buckets, r.foldLiteralIntoTail(g[0], v))
			continue
		}
		pos, neg := g[0], g[1]
		if pos.lit < 0 {
			pos, neg = neg, pos
		}
		level := levelOfVar(v)
		node := r.m.Ite(r.m.Ithvar(level), pos.tail, neg.tail)
		lits := clauseLiterals(pos.head, 0, node, r.m)
		validation := clausestore.TautologyID
		if r.store != nil && !isTautology(lits) && *node != 1 {
			validation = r.store.AddDerived(lits, []int{pos.validation, neg.validation}, "sdp join")
		}
		nt := Term{head: pos.head, lit: 0, tail: node, validation: validation}
		r.advance(buckets, nt)
	}
}

// resolve combines, for a Tseitin-variable bucket, head pairs of opposite
// phase of v by dropping v from both heads and disjoining their tails
// (spec.md §4.6 step 3). A bucket where v is pure (only one phase present)
// contributes nothing to what the conjunction implies about the remaining
// variables and is dropped outright: those clauses are satisfiable by
// fixing v regardless of any other assignment.
func (r *Reducer) resolve(buckets map[int][]Term, members []Term, v int) {
	var pos, neg []Term
	for _, t := range members {
		if t.lit > 0 {
			pos = append(pos, t)
		} else {
			neg = append(neg, t)
		}
	}
	if len(pos) == 0 || len(neg) == 0 {
		return
	}
	for _, p := range pos {
		for _, n := range neg {
			// Standard resolution on v: from (head1 v lit v tail1) and
			// (head2 v ~lit v tail2), derive (head1 v head2 v tail1 v tail2).
			// The tail is disjoined (not conjoined, unlike tailMerge), so it
			// is built with a plain Apply rather than ApplyAndJustify.
			tail := r.m.Apply(p.tail, n.tail, bdd.OPor)
			head := append(append([]int(nil), p.head...), n.head...)
			sort.Slice(head, func(i, j int) bool { return levelOfVar(head[i]) > levelOfVar(head[j]) })
			lits := clauseLiterals(head, 0, tail, r.m)
			validation := clausestore.TautologyID
			if r.store != nil && !isTautology(lits) && *tail != 1 {
				validation = r.store.AddDerived(lits, []int{p.validation, n.validation}, "sdp resolve")
			}
			nt := Term{head: head, lit: 0, tail: tail, validation: validation}
			r.advance(buckets, nt)
		}
	}
}

// processFinal pairs bucket 0's remaining terms down to the single
// empty-head, input-variable-only result (spec.md §4.6 termination). Each
// pairing resolves away any stray non-shared head literals are already
// gone by construction, since every term reaching bucket 0 has an empty
// head (advance only re-buckets on head[0] when head is non-empty).
func (r *Reducer) processFinal(buckets map[int][]Term) (bdd.Node, int) {
	members := buckets[0]
	if len(members) == 0 {
		return r.m.True(), clausestore.TautologyID
	}
	acc := members[0]
	for _, t := range members[1:] {
		acc = r.mergeTails(acc, t)
	}
	return acc.tail, acc.validation
}
