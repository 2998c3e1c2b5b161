package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"shellpure/internal/ctxlog"
	"shellpure/internal/version"
)

// errFindings ends a run with exit code 1 without printing anything more:
// the diagnostics were already rendered.
var errFindings = errors.New("errors reported")

var rootCmd = &cobra.Command{
	Use:   "shellpure",
	Short: "Lint and purify shell scripts and Makefiles",
	Long: `shellpure finds non-deterministic, non-idempotent and unsafe constructs in
POSIX/Bash scripts and GNU Makefiles, and rewrites the ones it can fix safely.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupRun,
}

func init() {
	// Устанавливаем версию для автоматического флага --version
	rootCmd.Version = version.String()

	// Добавляем команды
	rootCmd.AddCommand(lintCmd)
	rootCmd.AddCommand(purifyCmd)
	rootCmd.AddCommand(makeCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().Int("max-diagnostics", 0, "maximum number of diagnostics per file (0 = config or unlimited)")
	rootCmd.PersistentFlags().String("config", "", "config file (default: nearest .shellpure.toml above the target)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text|json)")
	rootCmd.PersistentFlags().String("cpu-profile", "", "write a CPU profile to file")
	rootCmd.PersistentFlags().String("mem-profile", "", "write a heap profile to file on exit")
	rootCmd.PersistentFlags().String("runtime-trace", "", "write a runtime trace to file")
}

// main executes the root command. Any error exits with status 1.
func main() {
	err := rootCmd.Execute()
	stopProfiling()
	if err != nil {
		if !errors.Is(err, errFindings) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func setupRun(cmd *cobra.Command, _ []string) error {
	if err := setupLogging(cmd); err != nil {
		return err
	}
	return setupProfiling(cmd)
}

func setupLogging(cmd *cobra.Command) error {
	level, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("log-format")
	if err != nil {
		return err
	}
	logger, err := ctxlog.New(level, format, os.Stderr)
	if err != nil {
		return err
	}
	cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))
	return nil
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
