package analysis

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"shellpure/internal/source"
)

func baseOf(text string) source.Span {
	return source.Span{File: 1, Start: 100, End: 100 + uint32(len(text))}
}

func names(ch Chain) []string {
	var out []string
	for _, c := range ch.Cmds {
		out = append(out, c.Name()+c.Op)
	}
	return out
}

func TestParseLineOperators(t *testing.T) {
	text := `cd build; make all && rm -f x || true | tee log > out.txt 2>&1 &`
	chains := ParseLine(text, baseOf(text))
	if len(chains) != 1 {
		t.Fatalf("chains = %d", len(chains))
	}
	want := []string{"cd;", "make&&", "rm||", "true|", "tee&"}
	if diff := cmp.Diff(want, names(chains[0])); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if !chains[0].Background {
		t.Fatal("expected background chain")
	}
	tee := chains[0].Cmds[4]
	if w := tee.Writes(); len(w) != 1 || w[0].Text != "out.txt" {
		t.Fatalf("tee writes = %+v", w)
	}
	if len(tee.Redirs) != 2 || tee.Redirs[1].N != "2" || tee.Redirs[1].Op != ">&" {
		t.Fatalf("redirs = %+v", tee.Redirs)
	}
}

func TestParseLineWordsAndSpans(t *testing.T) {
	text := `FOO=bar cp "$(SRC) dir" 'a b' $$HOME\ x`
	base := baseOf(text)
	chains := ParseLine(text, base)
	cmd := chains[0].Cmds[0]
	if len(cmd.Assigns) != 1 || cmd.Assigns[0].Name != "FOO" || cmd.Assigns[0].Value.Text != "bar" {
		t.Fatalf("assigns = %+v", cmd.Assigns)
	}
	var got []string
	for _, a := range cmd.Args {
		got = append(got, a.Text)
	}
	want := []string{"cp", "$(SRC) dir", "a b", "$$HOME x"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("words mismatch (-want +got):\n%s", diff)
	}
	for _, a := range cmd.Args {
		start := int(a.Span.Start - base.Start)
		end := int(a.Span.End - base.Start)
		if text[start:end] != a.Raw {
			t.Errorf("span %s covers %q, raw is %q", a.Span, text[start:end], a.Raw)
		}
	}
	if !cmd.Args[1].Quoted || cmd.Args[0].Quoted {
		t.Fatal("quoting flags are wrong")
	}
}

func TestParseLineSubstitutions(t *testing.T) {
	text := "echo $$(date +%s) \"`hostname`\" $(shell uname -n) $$((1+2))"
	chains := ParseLine(text, baseOf(text))
	var got []string
	for _, ch := range chains {
		got = append(got, ch.Cmds[0].Name())
	}
	want := []string{"echo", "date", "hostname", "uname"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("chains mismatch (-want +got):\n%s", diff)
	}
}

func TestParseLineKeywords(t *testing.T) {
	text := `if [ -d x ]; then rm -r x; fi; for f in a b; do echo $$f; done`
	chains := ParseLine(text, baseOf(text))
	want := []string{"[;", "rm;", "for;", "echo;"}
	if diff := cmp.Diff(want, names(chains[0])); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestCommandFlags(t *testing.T) {
	text := `sudo -E rm -rf -- -weird dir`
	cmd := ParseLine(text, baseOf(text))[0].Cmds[0]
	if cmd.Name() != "rm" {
		t.Fatalf("name = %q", cmd.Name())
	}
	if !cmd.HasFlag('f', "force") || !cmd.HasFlag('r', "") || cmd.HasFlag('w', "") {
		t.Fatal("flag detection is wrong")
	}
	ops := cmd.Operands()
	if len(ops) != 2 || ops[0].Text != "-weird" {
		t.Fatalf("operands = %+v", ops)
	}
}
