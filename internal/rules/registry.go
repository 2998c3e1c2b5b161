// Package rules is the catalogue of lint rules and the linter entry point.
//
// Every rule wraps one analysis.Kind: its code, severity and fixability come
// from the registry and nowhere else, so configuration overrides and the
// purifier agree on what a rule is.
package rules

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"shellpure/internal/analysis"
	"shellpure/internal/diag"
)

var (
	// ErrDuplicateCode is returned when two rules share a code.
	ErrDuplicateCode = errors.New("duplicate rule code")
	// ErrUnknownCode is returned by overrides naming a code the registry lacks.
	ErrUnknownCode = errors.New("unknown rule code")
)

// Rule is one registry entry.
type Rule struct {
	Code        diag.Code
	Name        string
	Description string
	Help        string
	Severity    diag.Severity
	Fixable     bool
	Lang        analysis.Language
	Category    analysis.Category
	Kind        analysis.Kind
	Disabled    bool
}

// FromKind builds the rule for an analysis kind with its default metadata.
func FromKind(k analysis.Kind) Rule {
	info := k.Info()
	return Rule{
		Code:        info.Code,
		Name:        info.Name,
		Description: info.Summary,
		Help:        info.Help,
		Severity:    info.Severity,
		Fixable:     info.Fixable,
		Lang:        info.Lang,
		Category:    info.Category,
		Kind:        k,
	}
}

// Builtin returns the rules for every analysis kind.
func Builtin() []Rule {
	kinds := analysis.Kinds()
	out := make([]Rule, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, FromKind(k))
	}
	return out
}

// Registry is an immutable code -> rule map. Rules are kept sorted by code.
type Registry struct {
	rules  []Rule
	byCode map[diag.Code]int
}

// NewRegistry validates the rules and builds a registry.
func NewRegistry(rules []Rule) (*Registry, error) {
	r := &Registry{
		rules:  make([]Rule, len(rules)),
		byCode: make(map[diag.Code]int, len(rules)),
	}
	copy(r.rules, rules)
	sort.SliceStable(r.rules, func(i, j int) bool { return r.rules[i].Code < r.rules[j].Code })
	for i, rule := range r.rules {
		if rule.Code == diag.UnknownCode {
			return nil, fmt.Errorf("rule %q: empty code", rule.Name)
		}
		if _, dup := r.byCode[rule.Code]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCode, rule.Code)
		}
		r.byCode[rule.Code] = i
	}
	return r, nil
}

// Default is the process-wide registry of built-in rules.
var Default = sync.OnceValue(func() *Registry {
	r, err := NewRegistry(Builtin())
	if err != nil {
		panic(err)
	}
	return r
})

// Lookup returns the rule for code.
func (r *Registry) Lookup(code diag.Code) (Rule, bool) {
	i, ok := r.byCode[diag.Code(strings.ToUpper(string(code)))]
	if !ok {
		return Rule{}, false
	}
	return r.rules[i], true
}

// Enabled reports whether code is known and not disabled.
func (r *Registry) Enabled(code diag.Code) bool {
	rule, ok := r.Lookup(code)
	return ok && !rule.Disabled
}

// Rules returns a copy of all rules sorted by code.
func (r *Registry) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// ForLanguage returns the enabled rules that apply to lang.
func (r *Registry) ForLanguage(lang analysis.Language) []Rule {
	var out []Rule
	for _, rule := range r.rules {
		if !rule.Disabled && rule.Lang.Has(lang) {
			out = append(out, rule)
		}
	}
	return out
}

// Len returns the number of rules, disabled ones included.
func (r *Registry) Len() int { return len(r.rules) }

// Overrides adjusts a registry from configuration.
type Overrides struct {
	// Disable switches the listed codes off.
	Disable []string
	// EnableOnly, when non-empty, switches every other code off.
	EnableOnly []string
	// Severity maps codes to "error", "warning" or "info".
	Severity map[string]string
}

// IsZero reports whether o changes nothing.
func (o Overrides) IsZero() bool {
	return len(o.Disable) == 0 && len(o.EnableOnly) == 0 && len(o.Severity) == 0
}

// With returns a new registry with o applied. r itself is not modified.
func (r *Registry) With(o Overrides) (*Registry, error) {
	rules := r.Rules()
	index := func(code string) (int, error) {
		i, ok := r.byCode[diag.Code(strings.ToUpper(strings.TrimSpace(code)))]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnknownCode, code)
		}
		return i, nil
	}
	if len(o.EnableOnly) > 0 {
		keep := make(map[int]bool, len(o.EnableOnly))
		for _, code := range o.EnableOnly {
			i, err := index(code)
			if err != nil {
				return nil, err
			}
			keep[i] = true
		}
		for i := range rules {
			rules[i].Disabled = !keep[i]
		}
	}
	for _, code := range o.Disable {
		i, err := index(code)
		if err != nil {
			return nil, err
		}
		rules[i].Disabled = true
	}
	codes := make([]string, 0, len(o.Severity))
	for code := range o.Severity {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		i, err := index(code)
		if err != nil {
			return nil, err
		}
		sev, err := diag.ParseSeverity(o.Severity[code])
		if err != nil {
			return nil, fmt.Errorf("severity for %s: %w", code, err)
		}
		rules[i].Severity = sev
	}
	return NewRegistry(rules)
}
