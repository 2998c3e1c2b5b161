package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"shellpure/internal/diag"
	"shellpure/internal/purify"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	want := writeConfig(t, root, "")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	script := filepath.Join(nested, "run.sh")
	if err := os.WriteFile(script, []byte("echo hi\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, start := range []string{nested, script} {
		got, ok, err := Find(start)
		if err != nil || !ok {
			t.Fatalf("Find(%s) = %q, %v, %v", start, got, ok, err)
		}
		if got != want {
			t.Errorf("Find(%s) = %q, want %q", start, got, want)
		}
	}
}

func TestDiscoverDefaults(t *testing.T) {
	cfg, err := Discover(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Path != "" || cfg.Purify.MaxRounds != purify.DefaultMaxRounds || !cfg.Purify.PosixShebang {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
[lint]
disable = ["SEC006"]
max_diagnostics = 50

[lint.severity]
DET001 = "error"

[purify]
max_rounds = 3
posix_shebang = false

[verify]
shellcheck = true
timeout = "2s"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := Lint{Disable: []string{"SEC006"}, MaxDiagnostics: 50, Severity: map[string]string{"DET001": "error"}}
	if diff := cmp.Diff(want, cfg.Lint); diff != "" {
		t.Errorf("lint mismatch (-want +got):\n%s", diff)
	}
	if cfg.Purify.MaxRounds != 3 || cfg.Purify.PosixShebang {
		t.Errorf("purify = %+v", cfg.Purify)
	}
	// незаданные ключи сохраняют значения по умолчанию
	if !cfg.Verify.TreeSitter {
		t.Error("tree_sitter default lost")
	}

	reg, err := cfg.Registry()
	if err != nil {
		t.Fatal(err)
	}
	if reg.Enabled("SEC006") {
		t.Error("SEC006 still enabled")
	}
	if r, ok := reg.Lookup("DET001"); !ok || r.Severity != diag.SevError {
		t.Errorf("DET001 = %+v", r)
	}

	opts := cfg.PurifyOptions(reg)
	if opts.MaxRounds != 3 || !opts.KeepShebang || opts.Registry != reg {
		t.Errorf("options = %+v", opts)
	}
	sc := cfg.ShellCheck()
	if sc == nil || sc.Timeout != 2*time.Second {
		t.Errorf("shellcheck = %+v", sc)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"unknown key", "[lint]\ndisabled = [\"SEC001\"]\n", ErrUnknownKey},
		{"unknown code", "[lint]\ndisable = [\"NOPE42\"]\n", ErrInvalidValue},
		{"bad severity", "[lint.severity]\nSEC001 = \"fatal\"\n", ErrInvalidValue},
		{"negative rounds", "[purify]\nmax_rounds = -1\n", ErrInvalidValue},
		{"bad timeout", "[verify]\ntimeout = \"soon\"\n", ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, t.TempDir(), tt.body))
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := Load(writeConfig(t, t.TempDir(), "[lint\n")); err == nil {
		t.Error("broken TOML accepted")
	}
}

func TestDigest(t *testing.T) {
	a := Default()
	b := Default()
	b.Cache.Dir = "/elsewhere"
	b.Path = "/x/.shellpure.toml"
	if a.Digest() != b.Digest() {
		t.Error("cache settings changed the digest")
	}

	c := Default()
	c.Lint.Disable = []string{"sec006", "DET001"}
	d := Default()
	d.Lint.Disable = []string{"DET001", "SEC006"}
	if c.Digest() != d.Digest() {
		t.Error("code order or case changed the digest")
	}
	if a.Digest() == c.Digest() {
		t.Error("disabled rules did not change the digest")
	}
}
