// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

// Package pbipio parses the PBIP proof-script format (spec.md §6): one
// command per non-comment line, each line a constraint in OPB syntax
// followed by a semicolon-delimited hint list whose shape depends on the
// command letter. This is an "external collaborator" per spec.md §1: kept
// intentionally minimal, just enough to drive the trusted core end to end.
package pbipio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/dzpbip/pbip-checker/internal/cfg"
	"github.com/dzpbip/pbip-checker/internal/pbc"
)

// Kind is the PBIP command letter, spec.md §6.
type Kind int

const (
	// Input declares an input constraint (command `i`).
	Input Kind = iota
	// Assert is an assertion justified by one or two earlier steps
	// (command `a`).
	Assert
	// Rup is a reverse-unit-propagation step (command `u`).
	Rup
	// Target enters counterfactual mode (command `k`); this checker
	// refuses it (DESIGN.md Open Question (a)).
	Target
)

func (k Kind) String() string {
	switch k {
	case Input:
		return "i"
	case Assert:
		return "a"
	case Rup:
		return "u"
	case Target:
		return "k"
	default:
		return "?"
	}
}

// RupHint is one `[stepId literal]` (or bare `[stepId]`) pair of a RUP
// hint list; Literal is 0 for the bare, clause-only form.
type RupHint struct {
	Step    int
	Literal int
}

// Step is one parsed PBIP line. Constraints holds one element, or two for
// a line whose relation was `=` (pbc.ParseOPB's two-constraint split,
// spec.md §6 "splits = into the two implied inequalities"). Only the hint
// field matching Kind is populated.
type Step struct {
	Kind        Kind
	Constraints []pbc.Constraint
	Line        int

	// Comments holds any `*`-prefixed comment lines immediately
	// preceding this step (the original's `comlist`, spec.md's
	// Supplemented feature #2): the driver forwards them to the LRAT
	// comment stream ahead of the step's own emitted clause.
	Comments []string

	InputHints  []int
	AssertHints []int
	RupHints    []RupHint
}

// Parse reads a whole PBIP file. Blank lines are skipped; comment lines
// (leading `*`) are accumulated and attached to the next command line as
// its Comments, reproducing the original's comlist-precedes-step
// association (spec.md Supplemented feature #2).
func Parse(r io.Reader) ([]Step, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	var steps []Step
	var pending []string
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "*") {
			pending = append(pending, strings.TrimSpace(strings.TrimPrefix(line, "*")))
			continue
		}
		step, err := parseLine(line, lineNo)
		if err != nil {
			return nil, err
		}
		step.Comments = pending
		pending = nil
		steps = append(steps, step)
	}
	if err := scanner.Err(); err != nil {
		return nil, cfg.ParseErrorf("pbip", lineNo, "read error").Wrap(err)
	}
	return steps, nil
}

func parseLine(line string, lineNo int) (Step, error) {
	if len(line) < 1 {
		return Step{}, cfg.ParseErrorf("pbip", lineNo, "empty command line")
	}
	kindCh := line[0]
	rest := strings.TrimSpace(line[1:])

	semi := strings.Index(rest, ";")
	if semi < 0 {
		return Step{}, cfg.ParseErrorf("pbip", lineNo, "missing ';' terminating the constraint")
	}
	constraintText := rest[:semi+1]
	hintText := strings.TrimSpace(rest[semi+1:])

	var kind Kind
	switch kindCh {
	case 'i':
		kind = Input
	case 'a':
		kind = Assert
	case 'u':
		kind = Rup
	case 'k':
		kind = Target
	default:
		return Step{}, cfg.ParseErrorf("pbip", lineNo, "unrecognised command %q", string(kindCh))
	}

	constraints, err := pbc.ParseOPB(constraintText)
	if err != nil {
		return Step{}, cfg.ParseErrorf("pbip", lineNo, "invalid constraint").Wrap(err)
	}

	step := Step{Kind: kind, Constraints: constraints, Line: lineNo}
	switch kind {
	case Input:
		hints, err := parseIntList(hintText)
		if err != nil {
			return Step{}, cfg.ParseErrorf("pbip", lineNo, "invalid input hint list").Wrap(err)
		}
		step.InputHints = hints
	case Assert:
		hints, err := parseIntList(hintText)
		if err != nil {
			return Step{}, cfg.ParseErrorf("pbip", lineNo, "invalid assertion hint list").Wrap(err)
		}
		step.AssertHints = hints
	case Rup:
		hints, err := parseRupHints(hintText)
		if err != nil {
			return Step{}, cfg.ParseErrorf("pbip", lineNo, "invalid RUP hint list").Wrap(err)
		}
		step.RupHints = hints
	case Target:
		// no hints; a target constraint is given on its own.
	}
	return step, nil
}

// Write renders steps back to PBIP text, the inverse of Parse; used by
// pbip-cnf to emit the hinted proof script it produced from the
// hint-less input (spec.md §6 "-o OUTFILE.pbip"). A Step's two
// Constraints (an `=` split) are rejoined with the same " = " spelling
// Constraint.String would have flattened, so the emitted line still
// reads as a single `=` constraint rather than two chained `>=` ones.
func Write(w io.Writer, steps []Step) error {
	bw := bufio.NewWriter(w)
	for _, step := range steps {
		fmt.Fprint(bw, step.Kind.String(), " ", constraintText(step.Constraints), " ")
		switch step.Kind {
		case Input:
			writeIntList(bw, step.InputHints)
		case Assert:
			writeIntList(bw, step.AssertHints)
		case Rup:
			for i, h := range step.RupHints {
				if i > 0 {
					fmt.Fprint(bw, " ")
				}
				if h.Literal == 0 {
					fmt.Fprintf(bw, "[%d]", h.Step)
				} else {
					fmt.Fprintf(bw, "[%d %d]", h.Step, h.Literal)
				}
			}
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

func constraintText(cs []pbc.Constraint) string {
	if len(cs) == 1 {
		return cs[0].String()
	}
	// An `=` split: ParseOPB's first half is Σ aᵢ·lᵢ ≥ k and its second
	// half is the same sum ≤ k, so the first half printed with `=` in
	// place of `>=` is the original equality, which ParseOPB splits the
	// same way again.
	return strings.Replace(cs[0].String(), ">=", "=", 1)
}

func writeIntList(w io.Writer, ints []int) {
	for i, v := range ints {
		if i > 0 {
			fmt.Fprint(w, " ")
		}
		fmt.Fprintf(w, "%d", v)
	}
}

func parseIntList(s string) ([]int, error) {
	fields := strings.Fields(s)
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid integer %q", f)
		}
		out = append(out, v)
	}
	return out, nil
}

// parseRupHints implements spec.md §6's "generic list parser... depth-2
// lists, pair-split if a sublist contains more than two literals (head
// shared across the split pairs)": each bracketed group's first field is
// the step id (the shared head), and every field after it is paired with
// that same step id into its own RupHint.
func parseRupHints(s string) ([]RupHint, error) {
	var hints []RupHint
	for {
		s = strings.TrimSpace(s)
		if s == "" {
			break
		}
		if s[0] != '[' {
			return nil, errors.Errorf("expected '[' at %q", s)
		}
		end := strings.IndexByte(s, ']')
		if end < 0 {
			return nil, errors.New("unterminated '[' group")
		}
		inner := strings.Fields(s[1:end])
		if len(inner) == 0 {
			return nil, errors.New("empty [...] hint group")
		}
		head, err := strconv.Atoi(inner[0])
		if err != nil {
			return nil, errors.Wrapf(err, "invalid step id %q", inner[0])
		}
		if len(inner) == 1 {
			hints = append(hints, RupHint{Step: head})
		} else {
			for _, tok := range inner[1:] {
				lit, err := strconv.Atoi(tok)
				if err != nil {
					return nil, errors.Wrapf(err, "invalid literal %q", tok)
				}
				hints = append(hints, RupHint{Step: head, Literal: lit})
			}
		}
		s = s[end+1:]
	}
	return hints, nil
}
