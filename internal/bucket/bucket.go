// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

// Package bucket implements bucket elimination (component C5 of the
// specification): given a named set of input CNF clauses and a set of
// variables to keep, it builds each clause's BDD, conjoins and
// existentially quantifies bucket by bucket, and produces a root BDD over
// the kept variables together with a clause validating that the
// conjunction of the input clauses implies that root.
package bucket

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/dzpbip/pbip-checker/internal/bdd"
	"github.com/dzpbip/pbip-checker/internal/clausestore"
)

// Clause is one named input clause: its clause-store id (as already
// recorded by the caller, typically via clausestore.Store.AddInput) and its
// literals in DIMACS convention.
type Clause struct {
	ID       int
	Literals []int
}

// term pairs a BDD root with the clause id of the validation proving that
// whatever has been folded into root so far implies root.
type term struct {
	root       bdd.Node
	validation int
}

// Reducer runs bucket elimination against a shared BDD manager and clause
// store. There is one Reducer per reduction; it holds no state between
// calls to Reduce.
type Reducer struct {
	m     *bdd.Manager
	store *clausestore.Store
	log   *logrus.Entry
}

// New returns a Reducer sharing the given manager and clause store. A nil
// log falls back to a default logrus logger (stderr, Info level), matching
// clausestore.New.
func New(m *bdd.Manager, store *clausestore.Store, log *logrus.Entry) *Reducer {
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	return &Reducer{m: m, store: store, log: log}
}

// Reduce proves that the conjunction of clauses implies a root BDD whose
// support is contained in keep (a set of 1-based CNF variable ids), and
// returns that root together with the clause id of the validation. keep
// may be nil or empty, in which case every variable is eliminated and the
// result is the constant true or false.
func (r *Reducer) Reduce(clauses []Clause, keep map[int]bool) (bdd.Node, int) {
	buckets := make(map[int][]term)
	for _, c := range clauses {
		root, validation := r.m.ConstructClauseBdd(c.ID, c.Literals)
		idx := r.bucketIndex(root, keep)
		buckets[idx] = append(buckets[idx], term{root, validation})
	}

	for {
		key := maxKey(buckets)
		if key == 0 {
			break
		}
		r.processBucket(buckets, key, keep)
	}

	return r.processFinal(buckets)
}

// bucketIndex returns the bucket a term belongs in: the 1-based variable id
// of its deepest level not in keep, or 0 if its whole support is in keep.
func (r *Reducer) bucketIndex(root bdd.Node, keep map[int]bool) int {
	for _, level := range r.m.GetSupportLevels(root) {
		v := int(level) + 1
		if !keep[v] {
			return v
		}
	}
	return 0
}

// maxKey returns the largest non-zero, non-empty bucket key present, or 0
// if only bucket 0 (or nothing) remains.
func maxKey(buckets map[int][]term) int {
	best := 0
	for key, members := range buckets {
		if key > best && len(members) > 0 {
			best = key
		}
	}
	return best
}

// processBucket drains bucket key by FIFO-pairing its members with
// applyAndJustify until at most one remains; a lone survivor has its
// variable existentially quantified out. In both cases the result is
// re-bucketed, which may feed it straight back into key (spec.md §4.5
// step 2) or forward it to an already-smaller, not-yet-processed bucket.
func (r *Reducer) processBucket(buckets map[int][]term, key int, keep map[int]bool) {
	members := buckets[key]
	delete(buckets, key)

	for len(members) > 1 {
		t1, t2 := members[0], members[1]
		members = members[2:]
		nt := r.conjunctTerms(t1, t2)
		idx := r.bucketIndex(nt.root, keep)
		if idx == key {
			members = append(members, nt)
			continue
		}
		buckets[idx] = append(buckets[idx], nt)
	}

	if len(members) == 1 {
		t := members[0]
		root, validation := r.m.ExistJustify(t.root, key-1, t.validation)
		nt := term{root, validation}
		idx := r.bucketIndex(nt.root, keep)
		buckets[idx] = append(buckets[idx], nt)
	}
}

// processFinal pairs down bucket 0, the last one processed, to a single
// term and returns it. An empty bucket 0 (no clause at all, e.g. an empty
// clause list with everything quantified away) yields the constant true.
func (r *Reducer) processFinal(buckets map[int][]term) (bdd.Node, int) {
	members := buckets[0]
	if len(members) == 0 {
		return r.m.True(), clausestore.TautologyID
	}
	for len(members) > 1 {
		t1, t2 := members[0], members[1]
		members = members[2:]
		members = append(members, r.conjunctTerms(t1, t2))
	}
	return members[0].root, members[0].validation
}

// conjunctTerms computes h = t1.root ^ t2.root and folds t1's and t2's
// validations together with the applyAndJustify implication into a single
// clause asserting h (or the empty clause, if h is the constant false: the
// conjunction is itself a contradiction). If h is syntactically identical
// to one of the two inputs, its own validation is reused directly instead
// of emitting a redundant clause (mirrors the original reducer's
// conjunctTerms shortcut).
func (r *Reducer) conjunctTerms(t1, t2 term) term {
	nroot, cid := r.m.ApplyAndJustify(t1.root, t2.root)
	if cid == clausestore.TautologyID {
		if *nroot == *t1.root {
			return term{nroot, t1.validation}
		}
		if *nroot == *t2.root {
			return term{nroot, t2.validation}
		}
	}
	if r.store == nil || *nroot == 1 {
		return term{nroot, clausestore.TautologyID}
	}

	antecedents := []int{t1.validation, t2.validation}
	if cid != clausestore.TautologyID {
		antecedents = append(antecedents, cid)
	}
	lits := []int{}
	if *nroot >= 2 {
		lits = []int{r.m.NodeID(nroot)}
	}
	val := r.store.AddDerived(lits, antecedents, "bucket conjunction")
	return term{nroot, val}
}

// sortedKeys returns the bucket keys in descending order, independent of
// map iteration order. Nothing in this module calls it.
func sortedKeys(buckets map[int][]term) []int {
	keys := make([]int, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(keys)))
	return keys
}
