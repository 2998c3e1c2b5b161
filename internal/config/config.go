// Package config loads .shellpure.toml.
package config

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"shellpure/internal/purify"
	"shellpure/internal/rules"
	"shellpure/internal/verify"
)

// FileName is the config file looked up from the target upwards.
const FileName = ".shellpure.toml"

var (
	// ErrUnknownKey reports a key the config format does not define.
	ErrUnknownKey = errors.New("unknown config key")
	// ErrInvalidValue reports a value outside its allowed range.
	ErrInvalidValue = errors.New("invalid config value")
)

// Lint is the [lint] section.
type Lint struct {
	Disable    []string          `toml:"disable"`
	EnableOnly []string          `toml:"enable_only"`
	Severity   map[string]string `toml:"severity"`
	// MaxDiagnostics ограничивает bag на файл; 0 = без лимита.
	MaxDiagnostics int `toml:"max_diagnostics"`
}

// Purify is the [purify] section.
type Purify struct {
	MaxRounds    int  `toml:"max_rounds"`
	PosixShebang bool `toml:"posix_shebang"`
}

// Verify is the [verify] section.
type Verify struct {
	ShellCheck     bool   `toml:"shellcheck"`
	ShellCheckPath string `toml:"shellcheck_path"`
	Timeout        string `toml:"timeout"`
	TreeSitter     bool   `toml:"tree_sitter"`
}

// Cache is the [cache] section.
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// Config is the whole file. Path is empty for the built-in defaults.
type Config struct {
	Path   string `toml:"-"`
	Lint   Lint   `toml:"lint"`
	Purify Purify `toml:"purify"`
	Verify Verify `toml:"verify"`
	Cache  Cache  `toml:"cache"`
}

// Default returns the configuration used when no file is found.
func Default() Config {
	return Config{
		Purify: Purify{MaxRounds: purify.DefaultMaxRounds, PosixShebang: true},
		Verify: Verify{Timeout: verify.DefaultTimeout.String(), TreeSitter: true},
		Cache:  Cache{Dir: defaultCacheDir()},
	}
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "shellpure")
	}
	return filepath.Join(os.TempDir(), "shellpure-cache")
}

// Find walks up from start (a file or a directory) to locate FileName.
func Find(start string) (path string, ok bool, err error) {
	if start == "" {
		start = "."
	}
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	if info, statErr := os.Stat(dir); statErr == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load reads path over the defaults. Keys the file leaves out keep their
// default values.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("%s: %w: %s", path, ErrUnknownKey, strings.Join(keys, ", "))
	}
	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Discover finds and loads the config for target, or returns Default.
func Discover(target string) (Config, error) {
	path, ok, err := Find(target)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks ranges and rule codes against the default registry.
func (c Config) Validate() error {
	if c.Purify.MaxRounds < 0 {
		return fmt.Errorf("%w: [purify].max_rounds must be >= 0, got %d", ErrInvalidValue, c.Purify.MaxRounds)
	}
	if c.Lint.MaxDiagnostics < 0 {
		return fmt.Errorf("%w: [lint].max_diagnostics must be >= 0, got %d", ErrInvalidValue, c.Lint.MaxDiagnostics)
	}
	if _, err := c.VerifyTimeout(); err != nil {
		return err
	}
	if _, err := c.Registry(); err != nil {
		return fmt.Errorf("%w: [lint]: %w", ErrInvalidValue, err)
	}
	return nil
}

// VerifyTimeout parses [verify].timeout; empty means verify.DefaultTimeout.
func (c Config) VerifyTimeout() (time.Duration, error) {
	if strings.TrimSpace(c.Verify.Timeout) == "" {
		return verify.DefaultTimeout, nil
	}
	d, err := time.ParseDuration(c.Verify.Timeout)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: [verify].timeout %q", ErrInvalidValue, c.Verify.Timeout)
	}
	return d, nil
}

// Overrides converts [lint] into registry overrides.
func (c Config) Overrides() rules.Overrides {
	return rules.Overrides{
		Disable:    c.Lint.Disable,
		EnableOnly: c.Lint.EnableOnly,
		Severity:   c.Lint.Severity,
	}
}

// Registry returns the default registry with [lint] applied.
func (c Config) Registry() (*rules.Registry, error) {
	o := c.Overrides()
	if o.IsZero() {
		return rules.Default(), nil
	}
	return rules.Default().With(o)
}

// PurifyOptions builds engine options around reg.
func (c Config) PurifyOptions(reg *rules.Registry) purify.Options {
	return purify.Options{
		Registry:    reg,
		MaxRounds:   c.Purify.MaxRounds,
		KeepShebang: !c.Purify.PosixShebang,
	}
}

// ShellCheck returns the external linter configured by [verify], or nil
// when it is switched off.
func (c Config) ShellCheck() *verify.ShellCheck {
	if !c.Verify.ShellCheck {
		return nil
	}
	timeout, err := c.VerifyTimeout()
	if err != nil {
		timeout = verify.DefaultTimeout
	}
	return &verify.ShellCheck{Path: c.Verify.ShellCheckPath, Timeout: timeout}
}

// Digest hashes every setting that changes lint or purify output. Cache
// entries are keyed by it, so cache settings themselves are left out.
func (c Config) Digest() [32]byte {
	canon := c
	canon.Path = ""
	canon.Cache = Cache{}
	canon.Lint.Disable = sortedUpper(canon.Lint.Disable)
	canon.Lint.EnableOnly = sortedUpper(canon.Lint.EnableOnly)

	var buf bytes.Buffer
	// toml.Encoder сортирует ключи map, вывод детерминирован
	if err := toml.NewEncoder(&buf).Encode(canon); err != nil {
		fmt.Fprintf(&buf, "%#v", canon)
	}
	return sha256.Sum256(buf.Bytes())
}

func sortedUpper(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	sort.Strings(out)
	return out
}
