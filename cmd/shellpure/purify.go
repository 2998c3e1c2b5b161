package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"shellpure/internal/analysis"
	"shellpure/internal/config"
	"shellpure/internal/driver"
	"shellpure/internal/fix"
)

var errMultipleOutputs = errors.New("several targets: use --write or --diff")

var purifyCmd = &cobra.Command{
	Use:     "purify [flags] <file|directory|->...",
	Aliases: []string{"fix"},
	Short:   "Rewrite scripts into deterministic, idempotent form",
	Long: `Purify applies every safe fix, verifies the result and prints it.
With one target the purified text goes to stdout; --write updates files in
place and --diff prints a unified diff instead. Diagnostics go to stderr.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPurify(cmd, args, 0)
	},
}

func init() {
	addRunFlags(purifyCmd, true)
	addPurifyFlags(purifyCmd)
}

func addPurifyFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("write", false, "write purified text back to the files")
	cmd.Flags().Bool("diff", false, "print a unified diff instead of the purified text")
	cmd.Flags().Int("max-rounds", 0, "fixpoint rounds before giving up (0 = config or default)")
	cmd.Flags().Bool("keep-shebang", false, "do not rewrite #!/bin/bash to #!/bin/sh")
	cmd.Flags().Bool("shellcheck", false, "also run shellcheck on purified shell output")
	cmd.Flags().Bool("no-verify", false, "skip tree-sitter and shellcheck verification")
}

type purifyFlags struct {
	write    bool
	diff     bool
	noVerify bool
}

// runPurify is shared by `purify` and `make purify`; lang 0 means auto-detect.
func runPurify(cmd *cobra.Command, args []string, lang analysis.Language) error {
	start := time.Now()
	flags := cmd.Flags()
	var pf purifyFlags
	var err error
	if pf.write, err = flags.GetBool("write"); err != nil {
		return fmt.Errorf("failed to get write flag: %w", err)
	}
	if pf.diff, err = flags.GetBool("diff"); err != nil {
		return fmt.Errorf("failed to get diff flag: %w", err)
	}
	if pf.noVerify, err = flags.GetBool("no-verify"); err != nil {
		return fmt.Errorf("failed to get no-verify flag: %w", err)
	}
	if pf.write && len(args) == 1 && args[0] == "-" {
		return fmt.Errorf("--write cannot be used with stdin")
	}

	s, err := loadSettings(cmd, args, lang, func(cfg *config.Config) error {
		if flags.Changed("max-rounds") {
			rounds, err := flags.GetInt("max-rounds")
			if err != nil {
				return fmt.Errorf("failed to get max-rounds flag: %w", err)
			}
			cfg.Purify.MaxRounds = rounds
		}
		keep, err := flags.GetBool("keep-shebang")
		if err != nil {
			return fmt.Errorf("failed to get keep-shebang flag: %w", err)
		}
		if keep {
			cfg.Purify.PosixShebang = false
		}
		shellcheck, err := flags.GetBool("shellcheck")
		if err != nil {
			return fmt.Errorf("failed to get shellcheck flag: %w", err)
		}
		if shellcheck {
			cfg.Verify.ShellCheck = true
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.opts.Fix = true
	if pf.noVerify {
		s.opts.Verify.TreeSitter = false
		s.opts.Verify.ShellCheck = nil
	}

	results, err := process(cmd, s, args, "purifying")
	if err != nil {
		return err
	}
	if !pf.write && !pf.diff && len(results) > 1 {
		return errMultipleOutputs
	}

	stderr := stderrIfVisible(s.quiet)
	ro := renderOpts{args: append([]string{cmd.CommandPath()}, args...)}
	if err := renderDiagnostics(os.Stderr, results, s, ro); err != nil {
		return fmt.Errorf("failed to render diagnostics: %w", err)
	}
	if err := emitPurified(cmd.OutOrStdout(), stderr, results, pf); err != nil {
		return err
	}
	if s.format == "pretty" {
		printPurifySummary(stderr, summarize(results))
	}
	if s.timings {
		printTimings(os.Stderr, results, time.Since(start))
	}
	return finalError(results)
}

// emitPurified writes files, diffs or the single purified text.
func emitPurified(out, report io.Writer, results []*driver.FileResult, pf purifyFlags) error {
	for _, r := range results {
		if r == nil || r.Err != nil {
			continue
		}
		for _, line := range r.Report {
			fmt.Fprintf(report, "%s: %s\n", r.Path, line)
		}
		switch {
		case pf.diff:
			if !r.Changed() {
				continue
			}
			text, err := unifiedDiff(r.Path, r.Original, r.Purified)
			if err != nil {
				return fmt.Errorf("diff %s: %w", r.Path, err)
			}
			if _, err := io.WriteString(out, text); err != nil {
				return err
			}
		case pf.write:
			if !r.Changed() {
				continue
			}
			if err := fix.WriteBack(r.Path, []byte(r.Purified)); err != nil {
				return err
			}
			fmt.Fprintf(report, "wrote %s\n", r.Path)
		default:
			if _, err := io.WriteString(out, r.Purified); err != nil {
				return err
			}
		}
	}
	return nil
}

// unifiedDiff renders a three-line-context diff between original and purified.
func unifiedDiff(path, original, purified string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(purified),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  3,
	})
}
