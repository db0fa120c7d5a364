// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

// Package lratio resolves the LRAT output destination named by a CLI flag
// (spec.md §6 "-o FILE.lrat (optional)"). The LRAT line format itself is
// owned entirely by clausestore.Store, which already writes directly to
// whatever io.Writer this package hands it; lratio's only job is turning
// a flag value into that writer (or io.Discard when no -o was given).
package lratio

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// nopCloser adapts an io.Writer that must not be closed by the caller
// (os.Stdout, io.Discard) to io.WriteCloser.
type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// Open returns the WriteCloser the LRAT stream should be written to: path
// == "" discards the proof (a dry run that only reports the verdict),
// path == "-" writes to stdout, anything else is created/truncated as a
// regular file. Callers must Close the result (clausestore.Store.Close
// flushes its buffer but does not itself close the underlying writer).
func Open(path string) (io.WriteCloser, error) {
	switch path {
	case "":
		return nopCloser{io.Discard}, nil
	case "-":
		return nopCloser{os.Stdout}, nil
	default:
		f, err := os.Create(path)
		if err != nil {
			return nil, errors.Wrapf(err, "opening LRAT output %q", path)
		}
		return f, nil
	}
}
