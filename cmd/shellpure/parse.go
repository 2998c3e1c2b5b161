package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"shellpure/internal/analysis"
	"shellpure/internal/diag"
	"shellpure/internal/diagfmt"
	"shellpure/internal/driver"
	mkparser "shellpure/internal/makefile/parser"
	shparser "shellpure/internal/shell/parser"
	"shellpure/internal/source"
)

var parseCmd = &cobra.Command{
	Use:   "parse [flags] <file|->",
	Short: "Parse a script or Makefile and print its syntax tree",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().String("format", "pretty", "output format (pretty|json)")
	parseCmd.Flags().String("lang", "auto", "input language (auto|shell|make)")
}

func runParse(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unknown format: %s", format)
	}
	langFlag, err := cmd.Flags().GetString("lang")
	if err != nil {
		return fmt.Errorf("failed to get lang flag: %w", err)
	}
	lang, err := driver.ParseLanguage(langFlag)
	if err != nil {
		return err
	}

	fs := source.NewFileSet()
	var id source.FileID
	if args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		if id, err = fs.AddBytes(stdinName, data); err != nil {
			return err
		}
	} else if id, err = fs.Load(args[0]); err != nil {
		return err
	}
	file := fs.Get(id)
	if lang == 0 {
		if lang, err = driver.Classify(file.Path, file.Content); err != nil {
			return err
		}
	}

	var root diagfmt.ASTNodeOutput
	switch lang {
	case analysis.LangMake:
		f, perr := mkparser.Parse(fs, id)
		if perr != nil {
			return reportParseError(fs, perr.ToDiagnostic())
		}
		root = diagfmt.MakeTree(f)
	default:
		script, perr := shparser.Parse(fs, id)
		if perr != nil {
			return reportParseError(fs, perr.ToDiagnostic())
		}
		root = diagfmt.ShellTree(script)
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		return diagfmt.FormatASTJSON(out, root)
	}
	diagfmt.FormatASTPretty(out, root, fs)
	return nil
}

func reportParseError(fs *source.FileSet, d diag.Diagnostic) error {
	bag := diag.NewBag(1)
	bag.Add(d)
	diagfmt.Pretty(os.Stderr, bag, fs, diagfmt.PrettyOpts{Color: isTerminal(os.Stderr), Codes: true})
	return errFindings
}
