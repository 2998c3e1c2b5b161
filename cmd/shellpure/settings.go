package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"shellpure/internal/analysis"
	"shellpure/internal/config"
	"shellpure/internal/ctxlog"
	"shellpure/internal/diagfmt"
	"shellpure/internal/driver"
	"shellpure/internal/ui"
)

// stdinName is the display name of a script read from "-".
const stdinName = "<stdin>"

// runSettings is the config file merged with command-line flags.
type runSettings struct {
	cfg      config.Config
	opts     driver.Options
	jobs     int
	format   string
	pathMode diagfmt.PathMode
	color    bool
	quiet    bool
	timings  bool
	ui       uiMode
}

// addRunFlags registers the flags shared by lint and purify.
func addRunFlags(cmd *cobra.Command, withLang bool) {
	cmd.Flags().String("format", "pretty", "output format (pretty|short|json|sarif)")
	if withLang {
		cmd.Flags().String("lang", "auto", "input language (auto|shell|make)")
	}
	cmd.Flags().Int("jobs", 0, "max parallel workers for directory processing (0=auto)")
	cmd.Flags().String("path-mode", "auto", "file path style (auto|absolute|relative|basename|as-is)")
	cmd.Flags().StringSlice("disable", nil, "rule codes to switch off")
	cmd.Flags().StringSlice("enable-only", nil, "run only these rule codes")
	cmd.Flags().Bool("no-cache", false, "bypass the result cache")
	cmd.Flags().String("ui", "auto", "progress view for batches (auto|on|off)")
}

// loadSettings reads the config for the first target and applies flags.
// adjust lets a command apply its own flags before validation.
func loadSettings(cmd *cobra.Command, targets []string, lang analysis.Language, adjust func(*config.Config) error) (*runSettings, error) {
	cfg, err := loadConfig(cmd, targets)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()

	if lang == 0 && flags.Lookup("lang") != nil {
		langFlag, err := flags.GetString("lang")
		if err != nil {
			return nil, fmt.Errorf("failed to get lang flag: %w", err)
		}
		if lang, err = driver.ParseLanguage(langFlag); err != nil {
			return nil, err
		}
	}

	disable, err := flags.GetStringSlice("disable")
	if err != nil {
		return nil, fmt.Errorf("failed to get disable flag: %w", err)
	}
	cfg.Lint.Disable = append(cfg.Lint.Disable, disable...)
	enableOnly, err := flags.GetStringSlice("enable-only")
	if err != nil {
		return nil, fmt.Errorf("failed to get enable-only flag: %w", err)
	}
	if len(enableOnly) > 0 {
		cfg.Lint.EnableOnly = enableOnly
	}
	if flags.Changed("max-diagnostics") {
		maxDiagnostics, err := flags.GetInt("max-diagnostics")
		if err != nil {
			return nil, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
		}
		cfg.Lint.MaxDiagnostics = maxDiagnostics
	}
	noCache, err := flags.GetBool("no-cache")
	if err != nil {
		return nil, fmt.Errorf("failed to get no-cache flag: %w", err)
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if adjust != nil {
		if err := adjust(&cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &runSettings{cfg: cfg}
	if s.format, err = flags.GetString("format"); err != nil {
		return nil, fmt.Errorf("failed to get format flag: %w", err)
	}
	switch s.format {
	case "pretty", "short", "json", "sarif":
	default:
		return nil, fmt.Errorf("unknown format: %s", s.format)
	}
	if s.jobs, err = flags.GetInt("jobs"); err != nil {
		return nil, fmt.Errorf("failed to get jobs flag: %w", err)
	}
	pathFlag, err := flags.GetString("path-mode")
	if err != nil {
		return nil, fmt.Errorf("failed to get path-mode flag: %w", err)
	}
	var ok bool
	if s.pathMode, ok = diagfmt.ParsePathMode(pathFlag); !ok {
		return nil, fmt.Errorf("invalid --path-mode value %q", pathFlag)
	}
	colorFlag, err := flags.GetString("color")
	if err != nil {
		return nil, err
	}
	if s.color, err = readColor(colorFlag); err != nil {
		return nil, err
	}
	if s.quiet, err = flags.GetBool("quiet"); err != nil {
		return nil, err
	}
	if s.timings, err = flags.GetBool("timings"); err != nil {
		return nil, err
	}
	uiFlag, err := flags.GetString("ui")
	if err != nil {
		return nil, err
	}
	if s.ui, err = readUIMode(uiFlag); err != nil {
		return nil, err
	}

	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	s.opts = driver.Options{
		Registry:       reg,
		Purify:         cfg.PurifyOptions(reg),
		Lang:           lang,
		MaxDiagnostics: cfg.Lint.MaxDiagnostics,
		Verify: driver.VerifyOptions{
			Idempotency: true,
			TreeSitter:  cfg.Verify.TreeSitter,
			ShellCheck:  cfg.ShellCheck(),
		},
		ConfigDigest: cfg.Digest(),
	}
	if cfg.Cache.Enabled {
		cache, err := driver.OpenCache(cfg.Cache.Dir)
		if err != nil {
			ctxlog.FromContext(cmd.Context()).Warn("result cache disabled", "err", err)
		} else {
			s.opts.Cache = cache
		}
	}
	return s, nil
}

func loadConfig(cmd *cobra.Command, targets []string) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	if path != "" {
		return config.Load(path)
	}
	start := "."
	if len(targets) > 0 && targets[0] != "-" {
		start = targets[0]
	}
	cfg, err := config.Discover(start)
	if err != nil {
		return config.Config{}, err
	}
	if cfg.Path != "" {
		ctxlog.FromContext(cmd.Context()).Debug("config loaded", "path", cfg.Path)
	}
	return cfg, nil
}

// process runs the pipeline over targets; "-" reads one script from stdin.
func process(cmd *cobra.Command, s *runSettings, targets []string, title string) ([]*driver.FileResult, error) {
	ctx := cmd.Context()
	if len(targets) == 1 && targets[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return []*driver.FileResult{driver.ProcessSource(ctx, stdinName, data, s.opts)}, nil
	}

	files, err := driver.Expand(targets, s.opts.Lang)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no shell scripts or Makefiles found in %v", targets)
	}
	if !s.quiet && shouldUseTUI(s.ui, len(files)) {
		return ui.RunBatch(os.Stderr, title, files, func(sink driver.ProgressSink) ([]*driver.FileResult, error) {
			opts := s.opts
			opts.Progress = sink
			return driver.Run(ctx, files, opts, s.jobs)
		})
	}
	return driver.Run(ctx, files, s.opts, s.jobs)
}
