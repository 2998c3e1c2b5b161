package rules

import (
	"errors"
	"testing"

	"shellpure/internal/analysis"
	"shellpure/internal/diag"
)

func TestDefaultRegistry(t *testing.T) {
	reg := Default()
	if reg != Default() {
		t.Fatal("Default must return the same registry")
	}
	if got, want := reg.Len(), len(analysis.Kinds()); got != want {
		t.Fatalf("Len() = %d, want %d", got, want)
	}
	for _, k := range analysis.Kinds() {
		rule, ok := reg.Lookup(k.Code())
		if !ok {
			t.Fatalf("missing rule %s", k.Code())
		}
		if rule.Kind != k || rule.Severity != k.Info().Severity {
			t.Errorf("%s: rule %+v does not match kind", k.Code(), rule)
		}
	}
	if _, ok := reg.Lookup("sec001"); !ok {
		t.Error("lookup must ignore case")
	}
	rules := reg.Rules()
	for i := 1; i < len(rules); i++ {
		if rules[i-1].Code >= rules[i].Code {
			t.Fatalf("rules not sorted: %s before %s", rules[i-1].Code, rules[i].Code)
		}
	}
}

func TestNewRegistry_Duplicate(t *testing.T) {
	r := FromKind(analysis.KindEval)
	_, err := NewRegistry([]Rule{r, r})
	if !errors.Is(err, ErrDuplicateCode) {
		t.Fatalf("err = %v, want ErrDuplicateCode", err)
	}
	if _, err := NewRegistry([]Rule{{Name: "nameless"}}); err == nil {
		t.Fatal("empty code must be rejected")
	}
}

func TestRegistry_With(t *testing.T) {
	base := Default()
	reg, err := base.With(Overrides{
		Disable:  []string{"sec006"},
		Severity: map[string]string{"DET002": "error"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if reg.Enabled("SEC006") {
		t.Error("SEC006 should be disabled")
	}
	if !base.Enabled("SEC006") {
		t.Error("base registry must not change")
	}
	if rule, _ := reg.Lookup("DET002"); rule.Severity != diag.SevError {
		t.Errorf("DET002 severity = %v", rule.Severity)
	}

	only, err := base.With(Overrides{EnableOnly: []string{"SEC001", "MAKE001"}})
	if err != nil {
		t.Fatal(err)
	}
	if got := len(only.ForLanguage(analysis.LangShell)); got != 1 {
		t.Errorf("shell rules = %d, want 1", got)
	}
	if got := len(only.ForLanguage(analysis.LangMake)); got != 2 {
		t.Errorf("make rules = %d, want 2", got)
	}

	if _, err := base.With(Overrides{Disable: []string{"NOPE42"}}); !errors.Is(err, ErrUnknownCode) {
		t.Errorf("err = %v, want ErrUnknownCode", err)
	}
	if _, err := base.With(Overrides{Severity: map[string]string{"SEC001": "fatal"}}); err == nil {
		t.Error("bad severity must fail")
	}
}
