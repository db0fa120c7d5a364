// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

// Package clausestore implements the append-only clause ledger used by the
// PBIP checker (component C1 of the specification): it assigns
// monotonically increasing clause ids and, as a side effect, emits each
// clause as a line of LRAT.
package clausestore

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// TautologyID is the sentinel id returned by AddDerived for a clause that is
// syntactically a tautology and has no antecedents. No real clause is ever
// assigned this id (real ids start at 1), so AddDerived drops it from any
// antecedent list it is given.
const TautologyID = 0

// ErrBadReference is the error for an id that refers to a clause that has
// not been produced yet. No method of Store returns it.
var ErrBadReference = errors.New("clause id does not refer to an already-emitted clause")

// Store is the clause store / LRAT emitter. It owns the monotonic id
// counter and the underlying LRAT sink; there is exactly one Store per
// check, shared by every other component (spec.md §5: single BDD manager,
// single clause store).
type Store struct {
	w       *bufio.Writer
	nextID  int
	ninputs int
	log     *logrus.Entry
}

// New returns a Store that writes LRAT lines to w. A nil w is legal and
// simply discards the proof (useful for -o-less dry runs); w is always
// flushed by Close.
func New(w io.Writer, log *logrus.Entry) *Store {
	if w == nil {
		w = io.Discard
	}
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	return &Store{w: bufio.NewWriter(w), nextID: 1, log: log}
}

// Close flushes any buffered LRAT output.
func (s *Store) Close() error {
	return s.w.Flush()
}

// NextID returns the id that will be assigned to the next clause, without
// consuming it.
func (s *Store) NextID() int {
	return s.nextID
}

// AddInput records an input clause (no antecedents); its id is assigned in
// the order clauses are read from the CNF file, which the caller must
// preserve by calling AddInput once per CNF clause in file order before any
// AddDerived call.
func (s *Store) AddInput(literals []int) int {
	id := s.nextID
	s.nextID++
	s.ninputs++
	s.writeLine(id, literals, nil)
	return id
}

// AddDerived emits an LRAT line for a clause derived from antecedents and
// returns its id. If literals is a syntactic tautology (it contains both a
// literal and its negation) and antecedents is empty, no line is emitted
// and TautologyID is returned instead: a tautology needs no unit-propagation
// justification and callers must never use it as an antecedent.
func (s *Store) AddDerived(literals []int, antecedents []int, comment string) int {
	antecedents = filterTautology(antecedents)
	if len(antecedents) == 0 && isTautology(literals) {
		return TautologyID
	}
	id := s.nextID
	s.nextID++
	if comment != "" {
		s.log.WithFields(logrus.Fields{"clause": id}).Debug(comment)
	}
	s.writeLine(id, literals, antecedents)
	return id
}

// Comment records a comment for the LRAT stream. Comments are written as
// lines starting with 'c ', following the convention used for CNF/DIMACS
// comment lines; an LRAT checker that does not recognise them simply skips
// them, and the text is always also sent to the Store's logger so it shows
// up in -v 2+ output even when there is no LRAT output file.
func (s *Store) Comment(text string) {
	s.log.Debug(text)
	fmt.Fprintf(s.w, "c %s\n", strings.ReplaceAll(text, "\n", " "))
}

// writeLine emits "id literal* 0 antecedent* 0", the LRAT line format of
// spec.md §6. Input clauses (antecedents == nil or empty) still carry the
// trailing antecedent-section "0": the section is always present, just
// empty for a clause with no antecedents.
func (s *Store) writeLine(id int, literals []int, antecedents []int) {
	fmt.Fprintf(s.w, "%d", id)
	for _, lit := range literals {
		fmt.Fprintf(s.w, " %d", lit)
	}
	fmt.Fprint(s.w, " 0")
	for _, a := range antecedents {
		fmt.Fprintf(s.w, " %d", a)
	}
	fmt.Fprint(s.w, " 0\n")
}

func filterTautology(antecedents []int) []int {
	if len(antecedents) == 0 {
		return antecedents
	}
	out := antecedents[:0:0]
	for _, a := range antecedents {
		if a == TautologyID {
			continue
		}
		out = append(out, a)
	}
	return out
}

func isTautology(literals []int) bool {
	seen := make(map[int]bool, len(literals))
	for _, l := range literals {
		if seen[-l] {
			return true
		}
		seen[l] = true
	}
	return false
}
