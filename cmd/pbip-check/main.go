// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

// Command pbip-check verifies a PBIP refutation proof against a DIMACS
// CNF instance and emits the LRAT certificate the proof reduces to
// (spec.md §6 "CLI (pbip-check)"). It is a thin wiring layer: every
// actual checking decision lives in internal/driver (C7); this file only
// parses flags, opens files, and reports the verdict.
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
	"github.com/dzpbip/pbip-checker/internal/clausestore"
	"github.com/dzpbip/pbip-checker/internal/cnfio"
	"github.com/dzpbip/pbip-checker/internal/driver"
	"github.com/dzpbip/pbip-checker/internal/lratio"
	"github.com/dzpbip/pbip-checker/internal/pbipio"
)

var (
	cnfPath    string
	pbipPath   string
	lratPath   string
	verbosity  int
	bddOnly    bool
	noSdp      bool
	noReorder  bool
	nodeSize   int
	cacheSize  int
	maxNodeInc int
)

func main() {
	root := &cobra.Command{
		Use:           "pbip-check",
		Short:         "Check a PBIP refutation proof against a CNF instance",
		Long:          `pbip-check replays a PBIP proof step by step against a DIMACS CNF instance, validating every input, assertion and RUP step against a single trusted BDD manager, and emits the resulting argument as an LRAT certificate.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runCheck,
	}
	flags := root.Flags()
	flags.StringVarP(&cnfPath, "cnf", "i", "", "input CNF instance (required)")
	flags.StringVarP(&pbipPath, "pbip", "p", "", "PBIP proof script (required)")
	flags.StringVarP(&lratPath, "output", "o", "", "LRAT output file ('-' for stdout, omit to discard)")
	flags.IntVarP(&verbosity, "verbosity", "v", 1, "verbosity level (0-4)")
	flags.BoolVarP(&bddOnly, "bdd-only", "b", false, "skip the clause-shortcut path")
	flags.BoolVarP(&noSdp, "no-sdp", "S", false, "disable the SDP reducer, use bucket reduction")
	flags.BoolVarP(&noReorder, "no-reorder", "R", false, "disable BDD variable reordering")
	flags.IntVar(&nodeSize, "node-size", 0, "initial BDD node table size (0: manager default)")
	flags.IntVar(&cacheSize, "cache-size", 0, "initial BDD operation cache size (0: manager default)")
	flags.IntVar(&maxNodeInc, "max-node-increase", 0, "cap on node table growth per resize (0: manager default)")
	_ = root.MarkFlagRequired("cnf")
	_ = root.MarkFlagRequired("pbip")

	if err := root.Execute(); err != nil {
		reportFailure(err)
		os.Exit(exitCodeFor(err))
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	start := time.Now()
	config := cfg.DefaultConfig()
	config.Verbosity = verbosity
	config.BddOnly = bddOnly
	config.SdpReduce = !noSdp
	config.Reorder = !noReorder
	config.NodeSize = nodeSize
	config.CacheSize = cacheSize
	config.MaxNodeIncrease = maxNodeInc
	ctx := cfg.NewContext(config, start)

	cnfFile, err := os.Open(cnfPath)
	if err != nil {
		return cfg.ParseErrorf("cnf", 0, "cannot open %q", cnfPath).Wrap(err)
	}
	defer cnfFile.Close()
	cnf, err := cnfio.Parse(cnfFile)
	if err != nil {
		return err
	}

	lratOut, err := lratio.Open(lratPath)
	if err != nil {
		return err
	}
	defer lratOut.Close()

	store := clausestore.New(lratOut, ctx.Log)
	for _, c := range cnf.Clauses {
		store.AddInput(c)
	}

	tuning := bdd.Tuning(config.NodeSize, config.CacheSize, config.MaxNodeIncrease)
	m, err := bdd.New(cnf.Varnum, store, tuning)
	if err != nil {
		return cfg.InternalErrorf(-1, "cannot create BDD manager").Wrap(err)
	}

	pbipFile, err := os.Open(pbipPath)
	if err != nil {
		return cfg.ParseErrorf("pbip", 0, "cannot open %q", pbipPath).Wrap(err)
	}
	defer pbipFile.Close()
	steps, err := pbipio.Parse(pbipFile)
	if err != nil {
		return err
	}

	d := driver.New(ctx, m, store, cnf.Clauses)
	result, runErr := d.Run(steps)
	if closeErr := store.Close(); closeErr != nil && runErr == nil {
		runErr = cfg.InternalErrorf(-1, "flushing LRAT output").Wrap(closeErr)
	}
	if runErr != nil {
		return runErr
	}

	if config.Verbosity >= 1 {
		fmt.Fprintf(cmd.OutOrStdout(), "processed %s steps in %s\n",
			humanize.Comma(int64(result.StepCount)), time.Since(start).Round(time.Millisecond))
	}
	reportVerdict(cmd, result)
	if !result.Refuted {
		os.Exit(1)
	}
	return nil
}

func reportVerdict(cmd *cobra.Command, result driver.Result) {
	out := cmd.OutOrStdout()
	if result.Refuted {
		fmt.Fprintln(out, color.GreenString("PBIP UNSAT")+fmt.Sprintf(" (refuted at step %d)", result.RefutedAtStep))
		return
	}
	fmt.Fprintln(out, color.YellowString("PBIP Final status unknown")+" (proof exhausted without reaching the empty clause)")
}

func reportFailure(err error) {
	if cerr, ok := err.(*cfg.Error); ok {
		fmt.Fprintln(os.Stderr, color.RedString("PBIP INVALID")+": "+cerr.Error())
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
