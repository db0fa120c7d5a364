// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package bdd

import (
	"testing"

	"github.com/dzpbip/pbip-checker/internal/pbc"
)

func TestConstructConstraintCardinalityOneIsOr(t *testing.T) {
	m, err := New(2, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	terms := []pbc.Term{{Lit: 1, Coeff: 1}, {Lit: 2, Coeff: 1}}
	got := m.ConstructConstraint(terms, 1)
	want := m.Apply(m.Ithvar(0), m.Ithvar(1), OPor)
	if *got != *want {
		t.Errorf("x1+x2>=1: got node %d, want %d (OR)", *got, *want)
	}
}

func TestConstructConstraintCardinalityTwoIsAnd(t *testing.T) {
	m, err := New(2, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	terms := []pbc.Term{{Lit: 1, Coeff: 1}, {Lit: 2, Coeff: 1}}
	got := m.ConstructConstraint(terms, 2)
	want := m.Apply(m.Ithvar(0), m.Ithvar(1), OPand)
	if *got != *want {
		t.Errorf("x1+x2>=2: got node %d, want %d (AND)", *got, *want)
	}
}

func TestConstructConstraintZeroRhsIsTrue(t *testing.T) {
	m, err := New(1, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got := m.ConstructConstraint([]pbc.Term{{Lit: 1, Coeff: 1}}, 0)
	if *got != 1 {
		t.Errorf("rhs<=0: got node %d, want constant true (1)", *got)
	}
}

func TestConstructConstraintUnreachableRhsIsFalse(t *testing.T) {
	m, err := New(1, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got := m.ConstructConstraint([]pbc.Term{{Lit: 1, Coeff: 1}}, 2)
	if *got != 0 {
		t.Errorf("rhs beyond coefficient sum: got node %d, want constant false (0)", *got)
	}
}

func TestConstructConstraintNegatedLiteral(t *testing.T) {
	m, err := New(1, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// ~x1 >= 1  ==  x1 must be false.
	got := m.ConstructConstraint([]pbc.Term{{Lit: -1, Coeff: 1}}, 1)
	want := m.NIthvar(0)
	if *got != *want {
		t.Errorf("~x1>=1: got node %d, want %d (NOT x1)", *got, *want)
	}
}
