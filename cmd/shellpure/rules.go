package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"shellpure/internal/diag"
	"shellpure/internal/driver"
	"shellpure/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules [flags] [CODE]",
	Short: "List lint rules or explain one of them",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRules,
}

func init() {
	rulesCmd.Flags().Bool("json", false, "print rules as JSON")
	rulesCmd.Flags().String("lang", "auto", "only rules for this language (auto|shell|make)")
}

type ruleJSON struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Severity    string `json:"severity"`
	Category    string `json:"category"`
	Lang        string `json:"lang"`
	Fixable     bool   `json:"fixable"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description"`
	Help        string `json:"help,omitempty"`
}

func runRules(cmd *cobra.Command, args []string) error {
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("failed to get json flag: %w", err)
	}
	langFlag, err := cmd.Flags().GetString("lang")
	if err != nil {
		return fmt.Errorf("failed to get lang flag: %w", err)
	}
	lang, err := driver.ParseLanguage(langFlag)
	if err != nil {
		return err
	}
	colorFlag, err := cmd.Flags().GetString("color")
	if err != nil {
		return err
	}
	useColor, err := readColor(colorFlag)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return err
	}

	var list []rules.Rule
	if len(args) == 1 {
		code := diag.Code(strings.ToUpper(strings.TrimSpace(args[0])))
		r, ok := reg.Lookup(code)
		if !ok {
			return fmt.Errorf("%w: %q", rules.ErrUnknownCode, args[0])
		}
		list = []rules.Rule{r}
	} else if lang != 0 {
		list = reg.ForLanguage(lang)
	} else {
		list = reg.Rules()
	}

	out := cmd.OutOrStdout()
	if asJSON {
		return renderRulesJSON(out, list)
	}
	if len(args) == 1 {
		renderRuleDetail(out, list[0], useColor)
		return nil
	}
	renderRulesTable(out, list, useColor)
	return nil
}

func toRuleJSON(r rules.Rule) ruleJSON {
	return ruleJSON{
		Code:        string(r.Code),
		Name:        r.Name,
		Severity:    r.Severity.Label(),
		Category:    r.Category.String(),
		Lang:        r.Lang.String(),
		Fixable:     r.Fixable,
		Enabled:     !r.Disabled,
		Description: r.Description,
		Help:        r.Help,
	}
}

func renderRulesJSON(out io.Writer, list []rules.Rule) error {
	payload := make([]ruleJSON, 0, len(list))
	for _, r := range list {
		payload = append(payload, toRuleJSON(r))
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func severityColor(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return color.New(color.FgRed, color.Bold)
	case diag.SevWarning:
		return color.New(color.FgYellow, color.Bold)
	}
	return color.New(color.FgCyan)
}

// renderRulesTable печатает выровненную таблицу; ширина считается по
// runewidth, так что цвет не ломает колонки.
func renderRulesTable(out io.Writer, list []rules.Rule, useColor bool) {
	nameWidth := len("NAME")
	for _, r := range list {
		nameWidth = max(nameWidth, runewidth.StringWidth(r.Name))
	}
	header := color.New(color.Bold)
	header.EnableColor()
	if !useColor {
		header.DisableColor()
	}
	fmt.Fprintln(out, header.Sprintf("%-8s %s %-7s %-5s %-16s %s", "CODE", runewidth.FillRight("NAME", nameWidth), "LEVEL", "FIX", "CATEGORY", "LANG"))
	for _, r := range list {
		sev := severityColor(r.Severity)
		if useColor {
			sev.EnableColor()
		} else {
			sev.DisableColor()
		}
		level := sev.Sprint(runewidth.FillRight(r.Severity.Label(), 7))
		fixable := "-"
		if r.Fixable {
			fixable = "yes"
		}
		line := fmt.Sprintf("%-8s %s %s %-5s %-16s %s", r.Code, runewidth.FillRight(r.Name, nameWidth), level, fixable, r.Category, r.Lang)
		if r.Disabled {
			line += "  (disabled)"
		}
		fmt.Fprintln(out, line)
	}
}

func renderRuleDetail(out io.Writer, r rules.Rule, useColor bool) {
	sev := severityColor(r.Severity)
	if useColor {
		sev.EnableColor()
	} else {
		sev.DisableColor()
	}
	fmt.Fprintf(out, "%s %s (%s)\n", r.Code, r.Name, sev.Sprint(r.Severity.Label()))
	fmt.Fprintf(out, "category: %s\n", r.Category)
	fmt.Fprintf(out, "language: %s\n", r.Lang)
	fmt.Fprintf(out, "fixable:  %t\n", r.Fixable)
	if r.Disabled {
		fmt.Fprintln(out, "status:   disabled by config")
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, r.Description)
	if r.Help != "" {
		fmt.Fprintf(out, "\nhelp: %s\n", r.Help)
	}
}
