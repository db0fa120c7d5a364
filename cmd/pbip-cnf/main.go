// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

// Command pbip-cnf turns a hint-less PBIP proof script into a DIMACS CNF
// instance plus the same proof with every `i` line's hint list filled in
// (spec.md §6 "CLI (pbip-cnf)"). The actual encoding work is
// internal/gen (C8); this file only parses flags, opens files, and wires
// the generator's output to disk.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dzpbip/pbip-checker/internal/bdd"
	"github.com/dzpbip/pbip-checker/internal/cfg"
	"github.com/dzpbip/pbip-checker/internal/cnfio"
	"github.com/dzpbip/pbip-checker/internal/gen"
	"github.com/dzpbip/pbip-checker/internal/pbipio"
)

var (
	inPath    string
	cnfOut    string
	pbipOut   string
	rename    bool
	verbosity int
)

func main() {
	root := &cobra.Command{
		Use:           "pbip-cnf",
		Short:         "Generate a CNF instance and hinted PBIP proof from a hint-less PBIP script",
		Long:          `pbip-cnf reads a PBIP script whose 'i' lines carry no hints, encodes every input constraint into CNF clauses (direct, cardinality, or BDD passes depending on shape), and writes both the CNF instance and the same script with each 'i' line's hint list filled in with the ids of the clauses that encode it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runGenerate,
	}
	flags := root.Flags()
	flags.StringVarP(&inPath, "input", "i", "", "hint-less PBIP input script (required)")
	flags.StringVarP(&cnfOut, "cnf-output", "c", "", "CNF output file (required)")
	flags.StringVarP(&pbipOut, "output", "o", "", "hinted PBIP output file (required)")
	flags.BoolVarP(&rename, "rename", "r", false, "renumber extension variables in order of their lowest co-occurring problem variable")
	flags.IntVarP(&verbosity, "verbosity", "v", 1, "verbosity level (0-4)")
	_ = root.MarkFlagRequired("input")
	_ = root.MarkFlagRequired("cnf-output")
	_ = root.MarkFlagRequired("output")

	if err := root.Execute(); err != nil {
		reportFailure(err)
		os.Exit(exitCodeFor(err))
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	start := time.Now()
	config := cfg.DefaultConfig()
	config.Verbosity = verbosity
	config.Rename = rename
	ctx := cfg.NewContext(config, start)

	in, err := os.Open(inPath)
	if err != nil {
		return cfg.ParseErrorf("pbip", 0, "cannot open %q", inPath).Wrap(err)
	}
	defer in.Close()
	steps, err := pbipio.Parse(in)
	if err != nil {
		return err
	}

	problemVars := maxVar(steps)
	if problemVars < 1 {
		return cfg.ParseErrorf("pbip", 0, "input script declares no variables")
	}
	m, err := bdd.New(problemVars, nil)
	if err != nil {
		return cfg.InternalErrorf(-1, "cannot create BDD manager").Wrap(err)
	}

	g := gen.New(ctx, m, problemVars)
	hinted, err := g.Generate(steps)
	if err != nil {
		return err
	}
	if config.Rename {
		g.Rename()
	}

	cnfFile, err := os.Create(cnfOut)
	if err != nil {
		return cfg.InternalErrorf(-1, "cannot create %q", cnfOut).Wrap(err)
	}
	defer cnfFile.Close()
	if err := cnfio.Write(cnfFile, g.CNF()); err != nil {
		return cfg.InternalErrorf(-1, "writing CNF output").Wrap(err)
	}

	pbipFile, err := os.Create(pbipOut)
	if err != nil {
		return cfg.InternalErrorf(-1, "cannot create %q", pbipOut).Wrap(err)
	}
	defer pbipFile.Close()
	if err := pbipio.Write(pbipFile, hinted); err != nil {
		return cfg.InternalErrorf(-1, "writing PBIP output").Wrap(err)
	}

	if config.Verbosity >= 1 {
		cnf := g.CNF()
		fmt.Fprintf(cmd.OutOrStdout(), "generated %s clauses over %s variables in %s\n",
			humanize.Comma(int64(len(cnf.Clauses))), humanize.Comma(int64(cnf.Varnum)),
			time.Since(start).Round(time.Millisecond))
	}
	fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("PBIP-CNF generated"))
	return nil
}

func maxVar(steps []pbipio.Step) int {
	max := 0
	for _, step := range steps {
		for _, c := range step.Constraints {
			for _, t := range c.Terms() {
				if v := abs(t.Lit); v > max {
					max = v
				}
			}
		}
	}
	return max
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func reportFailure(err error) {
	if cerr, ok := err.(*cfg.Error); ok {
		fmt.Fprintln(os.Stderr, color.RedString("error:")+" "+cerr.Error())
		return
	}
	fmt.Fprintln(os.Stderr, color.RedString("error:")+" "+err.Error())
}

func exitCodeFor(err error) int {
	if _, ok := err.(*cfg.Error); ok {
		return 1
	}
	return 2
}
