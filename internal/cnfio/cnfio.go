// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

// Package cnfio reads and writes DIMACS CNF (spec.md §6): the `p cnf
// NVARS NCLAUSES` header, `c `-prefixed comments, and clauses as
// whitespace-separated signed integers terminated by a literal `0`
// (possibly spanning several lines). An "external collaborator" per
// spec.md §1, kept minimal.
package cnfio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/dzpbip/pbip-checker/internal/cfg"
)

// File is a parsed CNF instance: the declared variable count and the
// clauses in file order (their 1-based position is their clause-store
// input id once registered via clausestore.Store.AddInput).
type File struct {
	Varnum  int
	Clauses [][]int
}

// Parse reads a CNF file from r.
func Parse(r io.Reader) (File, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	var f File
	var current []int
	lineNo := 0
	sawHeader := false
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "c") {
			continue
		}
		if strings.HasPrefix(line, "p") {
			fields := strings.Fields(line)
			if len(fields) < 4 || fields[1] != "cnf" {
				return File{}, cfg.ParseErrorf("cnf", lineNo, "malformed header %q", line)
			}
			n, err := strconv.Atoi(fields[2])
			if err != nil {
				return File{}, cfg.ParseErrorf("cnf", lineNo, "invalid variable count").Wrap(err)
			}
			f.Varnum = n
			sawHeader = true
			continue
		}
		for _, tok := range strings.Fields(line) {
			v, err := strconv.Atoi(tok)
			if err != nil {
				return File{}, cfg.ParseErrorf("cnf", lineNo, "invalid literal %q", tok).Wrap(err)
			}
			if v == 0 {
				f.Clauses = append(f.Clauses, current)
				current = nil
				continue
			}
			current = append(current, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return File{}, cfg.ParseErrorf("cnf", lineNo, "read error").Wrap(err)
	}
	if len(current) > 0 {
		return File{}, cfg.ParseErrorf("cnf", lineNo, "final clause missing terminating 0")
	}
	if !sawHeader {
		return File{}, errors.New("cnf: missing 'p cnf' header")
	}
	return f, nil
}

// Write renders f back to DIMACS CNF, used by pbip-cnf's output.
func Write(w io.Writer, f File) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "p cnf %d %d\n", f.Varnum, len(f.Clauses)); err != nil {
		return err
	}
	for _, clause := range f.Clauses {
		for _, lit := range clause {
			if _, err := fmt.Fprintf(bw, "%d ", lit); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(bw, "0"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
