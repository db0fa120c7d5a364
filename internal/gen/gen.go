// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

// Package gen implements the PBIP->CNF generator (component C8 of the
// specification, spec.md §4.8): given a PBIP file whose `i` lines carry
// no hints, it emits an equivalent CNF and fills in each `i` line's hint
// list with the ids of the clauses that encode it.
package gen

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/dzpbip/pbip-checker/internal/bdd"
	"github.com/dzpbip/pbip-checker/internal/cfg"
	"github.com/dzpbip/pbip-checker/internal/cnfio"
	"github.com/dzpbip/pbip-checker/internal/pbc"
	"github.com/dzpbip/pbip-checker/internal/pbipio"
)

// Generator runs the cardinality and BDD passes against a BDD manager
// dedicated to generation; it carries no clause store, since generated
// clauses need no TBDD witnesses of their own (they are the CNF being
// produced, not a proof over an existing one).
type Generator struct {
	ctx         cfg.Context
	m           *bdd.Manager
	clauses     [][]int
	nextID      int
	problemVars int
	nextVar     int

	// lowestProblemVar maps an extension variable to the lowest-numbered
	// problem variable it has appeared in a clause together with, the
	// statistic the optional rename pass (spec.md §4.8) sorts on.
	lowestProblemVar map[int]int
}

// New returns a Generator. m must already have been created with
// problemVars variables (bdd.New(problemVars, nil) — no clause store);
// extension variables are appended to it on demand via ExtVarnum.
func New(ctx cfg.Context, m *bdd.Manager, problemVars int) *Generator {
	return &Generator{
		ctx:              ctx.WithComponent("gen"),
		m:                m,
		nextID:           1,
		problemVars:      problemVars,
		nextVar:          problemVars,
		lowestProblemVar: make(map[int]int),
	}
}

// Generate fills in the hint list of every `i` step and returns the
// rewritten steps; `a`/`u`/`k` steps pass through unchanged, since their
// hints reference earlier PBIP steps rather than CNF clause ids.
func (g *Generator) Generate(steps []pbipio.Step) ([]pbipio.Step, error) {
	out := make([]pbipio.Step, len(steps))
	for i, step := range steps {
		if step.Kind != pbipio.Input {
			out[i] = step
			continue
		}
		var hints []int
		for _, c := range step.Constraints {
			hints = append(hints, g.generateConstraint(c)...)
		}
		ns := step
		ns.InputHints = hints
		out[i] = ns
	}
	if g.m.Errored() {
		return nil, cfg.InternalErrorf(-1, "BDD manager error during CNF generation").Wrap(errors.New(g.m.Error()))
	}
	return out, nil
}

// CNF returns the CNF produced so far.
func (g *Generator) CNF() cnfio.File {
	return cnfio.File{Varnum: g.nextVar, Clauses: append([][]int(nil), g.clauses...)}
}

// generateConstraint dispatches one constraint to the clause-direct,
// cardinality, or BDD pass and returns the ids of the clauses emitted for
// it (spec.md §4.8 passes 1 and 2).
func (g *Generator) generateConstraint(c pbc.Constraint) []int {
	if lits, ok := c.AsClause(); ok {
		return []int{g.addClause(lits)}
	}
	if c.IsCardinality() {
		terms := c.Terms()
		lits := make([]int, len(terms))
		for i, t := range terms {
			lits[i] = t.Lit
		}
		return g.encodeAtLeastK(lits, c.RHS())
	}
	root := g.m.ConstructConstraint(c.Terms(), c.RHS())
	var ids []int
	for _, lits := range g.m.GenerateClauses(root) {
		ids = append(ids, g.addClause(lits))
	}
	return ids
}

func (g *Generator) addClause(lits []int) int {
	id := g.nextID
	g.nextID++
	g.clauses = append(g.clauses, lits)
	g.noteRename(lits)
	return id
}

func (g *Generator) noteRename(lits []int) {
	lowest := 0
	var extVars []int
	for _, l := range lits {
		v := abs(l)
		if v <= g.problemVars {
			if lowest == 0 || v < lowest {
				lowest = v
			}
		} else {
			extVars = append(extVars, v)
		}
	}
	if lowest == 0 {
		return
	}
	for _, v := range extVars {
		if cur, ok := g.lowestProblemVar[v]; !ok || lowest < cur {
			g.lowestProblemVar[v] = lowest
		}
	}
}

// freshVar allocates a new extension variable, growing the shared BDD
// manager to match.
func (g *Generator) freshVar() int {
	_ = g.m.ExtVarnum(1)
	g.nextVar++
	return g.nextVar
}

// Rename implements spec.md §4.8's optional post-pass: problem variables
// keep their numbers, and the extension variables are renumbered, still
// above every problem variable, in increasing order of the lowest problem
// variable each was seen together with in some clause (ties by old
// number), so that extension variables of one cluster sit next to each
// other in the variable order a later bucket/SDP reduction will see.
func (g *Generator) Rename() {
	type entry struct{ oldVar, lowest int }
	entries := make([]entry, 0, len(g.lowestProblemVar))
	for v, lowest := range g.lowestProblemVar {
		entries = append(entries, entry{v, lowest})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].lowest != entries[j].lowest {
			return entries[i].lowest < entries[j].lowest
		}
		return entries[i].oldVar < entries[j].oldVar
	})

	remap := make(map[int]int, g.nextVar-g.problemVars)
	next := g.problemVars + 1
	for _, e := range entries {
		remap[e.oldVar] = next
		next++
	}
	// An extension variable that never co-occurred with a problem variable
	// (fully resolved within the encoding's own helper structure) keeps a
	// stable position after every renamed one.
	for v := g.problemVars + 1; v <= g.nextVar; v++ {
		if _, ok := remap[v]; !ok {
			remap[v] = next
			next++
		}
	}

	for i, clause := range g.clauses {
		nc := make([]int, len(clause))
		for j, lit := range clause {
			v := abs(lit)
			nv, ok := remap[v]
			if !ok {
				nv = v
			}
			if lit < 0 {
				nc[j] = -nv
			} else {
				nc[j] = nv
			}
		}
		g.clauses[i] = nc
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
