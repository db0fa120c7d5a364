// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

// Package pbc implements pseudo-Boolean constraints (component C2 of the
// specification): parsing from OPB syntax, normalisation to the canonical
// form Σ aᵢ·lᵢ ≥ k with every aᵢ > 0, and the derived queries the rest of
// the checker needs (is-clause, is-cardinality, max coefficient).
package pbc

import (
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Term is one addend aᵢ·lᵢ of a canonical constraint. Coeff is always > 0;
// the sign of Lit carries the literal's polarity.
type Term struct {
	Lit   int
	Coeff int
}

// Constraint is a canonical pseudo-Boolean constraint Σ aᵢ·lᵢ ≥ k, aᵢ > 0,
// lᵢ literals over pairwise-distinct variables. Constraints are values:
// every normalising operation in this package returns a new Constraint
// rather than mutating one in place (spec.md Design Note 9).
type Constraint struct {
	terms []Term
	rhs   int
}

// New builds a canonical Constraint directly from already-normalised
// terms (Coeff > 0, distinct variables) and a RHS. It is mostly useful for
// tests and for code that synthesises constraints programmatically; OPB
// text should go through ParseOPB.
func New(terms []Term, rhs int) Constraint {
	cp := append([]Term(nil), terms...)
	sort.Slice(cp, func(i, j int) bool { return abs(cp[i].Lit) < abs(cp[j].Lit) })
	return Constraint{terms: cp, rhs: rhs}
}

// Terms returns the canonical terms, ordered by increasing variable id.
func (c Constraint) Terms() []Term {
	return append([]Term(nil), c.terms...)
}

// RHS returns k in the canonical Σ aᵢ·lᵢ ≥ k form.
func (c Constraint) RHS() int {
	return c.rhs
}

// Relation always returns ">=": every Constraint value in this package is
// already normalised to that relation.
func (c Constraint) Relation() string {
	return ">="
}

// CoeffMap returns the variable -> signed-coefficient view named in
// spec.md §3: a positive entry means the term is on the positive literal,
// a negative entry means it is on the negated literal (with |value| the
// canonical aᵢ).
func (c Constraint) CoeffMap() map[int]int {
	m := make(map[int]int, len(c.terms))
	for _, t := range c.terms {
		if t.Lit > 0 {
			m[t.Lit] = t.Coeff
		} else {
			m[-t.Lit] = -t.Coeff
		}
	}
	return m
}

// MaxCoefficient returns the largest aᵢ among the constraint's terms, or 0
// for a constraint with no terms.
func (c Constraint) MaxCoefficient() int {
	max := 0
	for _, t := range c.terms {
		if t.Coeff > max {
			max = t.Coeff
		}
	}
	return max
}

// IsCardinality reports whether every aᵢ == 1.
func (c Constraint) IsCardinality() bool {
	for _, t := range c.terms {
		if t.Coeff != 1 {
			return false
		}
	}
	return true
}

// AsClause returns the literals of the constraint when it is clause-shaped
// (every aᵢ == 1 and k == 1), and false otherwise.
func (c Constraint) AsClause() ([]int, bool) {
	if c.rhs != 1 || !c.IsCardinality() {
		return nil, false
	}
	lits := make([]int, len(c.terms))
	for i, t := range c.terms {
		lits[i] = t.Lit
	}
	return lits, true
}

// VarNormalisedRHS returns the RHS as it stands after variable
// normalisation (every term rewritten onto the positive variable): since
// Constraint always stores the fully-normalised canonical form, this is
// simply RHS(); the method exists to name the query from spec.md §3
// explicitly for callers that care about the distinction conceptually.
func (c Constraint) VarNormalisedRHS() int {
	return c.rhs
}

// CoeffSum returns the (arbitrary precision) sum of all coefficients,
// computed with math/big so that very large weights cannot overflow a
// machine int. No other package in this module calls it; every other
// arithmetic operation in this package stays on plain int.
func (c Constraint) CoeffSum() *big.Int {
	sum := big.NewInt(0)
	for _, t := range c.terms {
		sum.Add(sum, big.NewInt(int64(t.Coeff)))
	}
	return sum
}

// Negate returns the logical negation of the constraint, i.e. a
// Constraint C' such that C' holds exactly when C does not. For Σaᵢlᵢ≥k
// the negation is Σaᵢlᵢ≤k-1, which we renormalise by flipping every
// literal: Σaᵢ(¬lᵢ) ≥ (Σaᵢ)-k+1.
func (c Constraint) Negate() Constraint {
	sum := 0
	terms := make([]Term, len(c.terms))
	for i, t := range c.terms {
		terms[i] = Term{Lit: -t.Lit, Coeff: t.Coeff}
		sum += t.Coeff
	}
	return New(terms, sum-c.rhs+1)
}

// String renders the constraint back to OPB syntax (used for the parser
// round-trip property in spec.md §8.7: parsing String() and renormalising
// must be the identity on canonical constraints).
func (c Constraint) String() string {
	var out strings.Builder
	for _, t := range c.terms {
		if t.Lit < 0 {
			fmt.Fprintf(&out, "%d ~x%d ", t.Coeff, -t.Lit)
		} else {
			fmt.Fprintf(&out, "%d x%d ", t.Coeff, t.Lit)
		}
	}
	fmt.Fprintf(&out, ">= %d ;", c.rhs)
	return out.String()
}

// ParseOPB parses one OPB constraint line (without requiring the trailing
// ';', which callers typically strip along with any hint suffix) and
// returns one Constraint for a <, <=, >= or > relation, or two for an =
// relation (spec.md §3 "Equality =k parses to two constraints").
//
// Grounded on original_source/tools/pbip.py's parseOpb: relation
// normalisation to >=, strict-inequality RHS adjustment, and the
// '~'/'!'-prefixed negated-literal convention.
func ParseOPB(line string) ([]Constraint, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, errors.New("empty constraint")
	}
	if fields[len(fields)-1] == ";" {
		fields = fields[:len(fields)-1]
	} else if strings.HasSuffix(fields[len(fields)-1], ";") {
		fields[len(fields)-1] = strings.TrimSuffix(fields[len(fields)-1], ";")
	}
	if len(fields) < 2 || len(fields)%2 != 0 {
		return nil, errors.Errorf("invalid number of fields in %q", line)
	}
	k, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil {
		return nil, errors.Wrapf(err, "invalid constant %q", fields[len(fields)-1])
	}
	rel := fields[len(fields)-2]
	switch rel {
	case "<", "<=", "=", ">=", ">":
	default:
		return nil, errors.Errorf("invalid relation %q", rel)
	}
	cfields := fields[:len(fields)-2]
	terms := make([]Term, 0, len(cfields)/2)
	for i := 0; i < len(cfields)/2; i++ {
		scoeff := cfields[2*i]
		coeff, err := strconv.Atoi(scoeff)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid coefficient %q", scoeff)
		}
		svar := cfields[2*i+1]
		if svar == "" {
			return nil, errors.Errorf("empty term in %q", line)
		}
		if svar[0] == '~' || svar[0] == '!' {
			k -= coeff
			coeff = -coeff
			svar = svar[1:]
		}
		if len(svar) < 2 || svar[0] != 'x' {
			return nil, errors.Errorf("invalid term %q", svar)
		}
		v, err := strconv.Atoi(svar[1:])
		if err != nil {
			return nil, errors.Wrapf(err, "invalid variable %q", svar)
		}
		if v <= 0 {
			return nil, errors.Errorf("non-positive variable id in %q", svar)
		}
		terms = append(terms, Term{Lit: v, Coeff: coeff})
	}

	switch rel {
	case "<":
		rel = "<="
		k--
	case ">":
		rel = ">="
		k++
	}
	if rel == "<=" {
		rel = ">="
		k = -k
		for i := range terms {
			terms[i].Coeff = -terms[i].Coeff
		}
	}
	con1 := normalise(terms, k)
	if rel == ">=" {
		return []Constraint{con1}, nil
	}
	// rel == "=": the second implied constraint is the same inequality
	// with every sign flipped.
	flipped := make([]Term, len(terms))
	for i, t := range terms {
		flipped[i] = Term{Lit: t.Lit, Coeff: -t.Coeff}
	}
	con2 := normalise(flipped, -k)
	return []Constraint{con1, con2}, nil
}

// normalise takes raw (variable, signedCoefficient) terms plus a RHS and
// performs both variable normalisation (folding negated-literal terms back
// onto the positive variable happens implicitly here, since our raw terms
// are already keyed by variable with a signed coefficient picked up from
// the '~'/'!' marker during parsing) and coefficient normalisation
// (flipping any term whose signed coefficient is negative onto the negated
// literal, adjusting k so the inequality is preserved).
func normalise(raw []Term, k int) Constraint {
	// first, merge duplicate variables (OPB does not forbid repeating a
	// variable across terms); signed coefficients add.
	byVar := make(map[int]int)
	order := make([]int, 0, len(raw))
	for _, t := range raw {
		v := abs(t.Lit)
		signed := t.Coeff
		if t.Lit < 0 {
			signed = -signed
		}
		if _, ok := byVar[v]; !ok {
			order = append(order, v)
		}
		byVar[v] += signed
	}
	terms := make([]Term, 0, len(order))
	for _, v := range order {
		signed := byVar[v]
		if signed == 0 {
			continue
		}
		if signed > 0 {
			terms = append(terms, Term{Lit: v, Coeff: signed})
			continue
		}
		// coefficient normalisation: -c·x  ==  c·(¬x) + c, moved to RHS.
		c := -signed
		terms = append(terms, Term{Lit: -v, Coeff: c})
		k -= signed // k -= (-c) == k += c
	}
	return New(terms, k)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
