package main

import (
	"github.com/spf13/cobra"

	"shellpure/internal/analysis"
)

var makeCmd = &cobra.Command{
	Use:   "make",
	Short: "Lint and purify GNU Makefiles",
	Long:  `Same as lint and purify, but every target is treated as a Makefile regardless of its name.`,
}

var makeLintCmd = &cobra.Command{
	Use:   "lint [flags] <Makefile|directory|->...",
	Short: "Report problems in Makefiles",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLint(cmd, args, analysis.LangMake)
	},
}

var makePurifyCmd = &cobra.Command{
	Use:     "purify [flags] <Makefile|directory|->...",
	Aliases: []string{"fix"},
	Short:   "Rewrite Makefiles into deterministic, idempotent form",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPurify(cmd, args, analysis.LangMake)
	},
}

func init() {
	addRunFlags(makeLintCmd, false)
	addLintFlags(makeLintCmd)
	addRunFlags(makePurifyCmd, false)
	addPurifyFlags(makePurifyCmd)
	makeCmd.AddCommand(makeLintCmd)
	makeCmd.AddCommand(makePurifyCmd)
}
