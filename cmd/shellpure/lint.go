package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"shellpure/internal/analysis"
	"shellpure/internal/diagfmt"
)

var lintCmd = &cobra.Command{
	Use:   "lint [flags] <file|directory|->...",
	Short: "Report problems in shell scripts and Makefiles",
	Long: `Lint parses every target, runs the enabled rules and prints diagnostics.
Directories are walked for *.sh, *.bash, Makefiles and scripts with a shell
shebang; "-" reads a single script from stdin.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLint(cmd, args, 0)
	},
}

func init() {
	addRunFlags(lintCmd, true)
	addLintFlags(lintCmd)
}

func addLintFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("show-fixes", false, "print the suggested fix under each diagnostic")
	cmd.Flags().Bool("preview", false, "show before/after lines for suggested fixes")
	cmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
}

// runLint is shared by `lint` and `make lint`; lang 0 means auto-detect.
func runLint(cmd *cobra.Command, args []string, lang analysis.Language) error {
	start := time.Now()
	s, err := loadSettings(cmd, args, lang, nil)
	if err != nil {
		return err
	}
	ro, err := readRenderOpts(cmd, s, args)
	if err != nil {
		return err
	}

	results, err := process(cmd, s, args, "linting")
	if err != nil {
		return err
	}
	if err := renderDiagnostics(cmd.OutOrStdout(), results, s, ro); err != nil {
		return fmt.Errorf("failed to render diagnostics: %w", err)
	}
	if s.format == "pretty" {
		printLintSummary(stderrIfVisible(s.quiet), summarize(results))
	}
	if s.timings {
		printTimings(os.Stderr, results, time.Since(start))
	}
	return finalError(results)
}

func readRenderOpts(cmd *cobra.Command, s *runSettings, args []string) (renderOpts, error) {
	var ro renderOpts
	var err error
	if ro.showFixes, err = cmd.Flags().GetBool("show-fixes"); err != nil {
		return ro, fmt.Errorf("failed to get show-fixes flag: %w", err)
	}
	if ro.showPreview, err = cmd.Flags().GetBool("preview"); err != nil {
		return ro, fmt.Errorf("failed to get preview flag: %w", err)
	}
	if ro.showPreview {
		ro.showFixes = true
	}
	fullPath, err := cmd.Flags().GetBool("fullpath")
	if err != nil {
		return ro, fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	if fullPath {
		s.pathMode = diagfmt.PathModeAbsolute
	}
	ro.args = append([]string{cmd.CommandPath()}, args...)
	return ro, nil
}
