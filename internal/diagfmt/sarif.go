package diagfmt

import (
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"shellpure/internal/diag"
)

const (
	sarifVersion = "2.1.0"
	sarifSchema  = "https://json.schemastore.org/sarif-2.1.0.json"
)

type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool        sarifTool         `json:"tool"`
	Invocations []sarifInvocation `json:"invocations,omitempty"`
	Results     []sarifResult     `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string            `json:"name"`
	Version        string            `json:"version,omitempty"`
	InformationURI string            `json:"informationUri,omitempty"`
	Rules          []sarifDescriptor `json:"rules,omitempty"`
}

type sarifDescriptor struct {
	ID                   string        `json:"id"`
	Name                 string        `json:"name,omitempty"`
	ShortDescription     *sarifMessage `json:"shortDescription,omitempty"`
	Help                 *sarifMessage `json:"help,omitempty"`
	DefaultConfiguration *sarifConfig  `json:"defaultConfiguration,omitempty"`
}

type sarifConfig struct {
	Level string `json:"level"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifInvocation struct {
	Arguments           []string `json:"arguments,omitempty"`
	ExecutionSuccessful bool     `json:"executionSuccessful"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	RuleIndex *int            `json:"ruleIndex,omitempty"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
	Fixes     []sarifFix      `json:"fixes,omitempty"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int           `json:"startLine,omitempty"`
	StartColumn int           `json:"startColumn,omitempty"`
	ByteOffset  *int          `json:"byteOffset,omitempty"`
	ByteLength  *int          `json:"byteLength,omitempty"`
	Snippet     *sarifMessage `json:"snippet,omitempty"`
}

type sarifFix struct {
	Description     sarifMessage          `json:"description"`
	ArtifactChanges []sarifArtifactChange `json:"artifactChanges"`
}

type sarifArtifactChange struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Replacements     []sarifReplacement    `json:"replacements"`
}

type sarifReplacement struct {
	DeletedRegion   sarifRegion   `json:"deletedRegion"`
	InsertedContent *sarifMessage `json:"insertedContent,omitempty"`
}

func sarifLevel(s diag.Severity) string {
	switch s {
	case diag.SevError:
		return "error"
	case diag.SevWarning:
		return "warning"
	}
	return "note"
}

// Sarif форматирует диагностики в SARIF формат (v2.1.0).
func Sarif(w io.Writer, bag *diag.Bag, meta SarifRunMeta) error {
	driver := sarifDriver{
		Name:           meta.ToolName,
		Version:        meta.ToolVersion,
		InformationURI: meta.InformationURI,
	}
	ruleIndex := make(map[string]int, len(meta.Rules))
	for i, r := range meta.Rules {
		ruleIndex[r.ID] = i
		desc := sarifDescriptor{ID: r.ID, Name: r.Name}
		if r.Description != "" {
			desc.ShortDescription = &sarifMessage{Text: r.Description}
		}
		if r.Help != "" {
			desc.Help = &sarifMessage{Text: r.Help}
		}
		if r.Level != "" {
			desc.DefaultConfiguration = &sarifConfig{Level: r.Level}
		}
		driver.Rules = append(driver.Rules, desc)
	}

	results := make([]sarifResult, 0, bag.Len())
	failed := false
	for _, d := range bag.Items() {
		failed = failed || d.Severity == diag.SevError
		res := sarifResult{
			RuleID:  d.Code.ID(),
			Level:   sarifLevel(d.Severity),
			Message: sarifMessage{Text: d.Message + "\nnote: " + d.Note + "\nhelp: " + d.Help},
		}
		if i, ok := ruleIndex[res.RuleID]; ok {
			res.RuleIndex = &i
		}
		uri := sarifURI(d.Location.File, meta)
		if uri != "" {
			region := &sarifRegion{StartLine: d.Location.Line, StartColumn: d.Location.Column}
			if d.Location.SourceLine != "" {
				region.Snippet = &sarifMessage{Text: d.Location.SourceLine}
			}
			if region.StartLine == 0 {
				region = nil
			}
			res.Locations = []sarifLocation{{PhysicalLocation: sarifPhysicalLocation{
				ArtifactLocation: sarifArtifactLocation{URI: uri},
				Region:           region,
			}}}
			if d.Fix != nil {
				offset, length := int(d.Fix.Span.Start), int(d.Fix.Span.Len())
				res.Fixes = []sarifFix{{
					Description: sarifMessage{Text: d.Fix.Title},
					ArtifactChanges: []sarifArtifactChange{{
						ArtifactLocation: sarifArtifactLocation{URI: uri},
						Replacements: []sarifReplacement{{
							DeletedRegion:   sarifRegion{ByteOffset: &offset, ByteLength: &length},
							InsertedContent: &sarifMessage{Text: d.Fix.Replacement},
						}},
					}},
				}}
			}
		}
		results = append(results, res)
	}

	run := sarifRun{
		Tool:    sarifTool{Driver: driver},
		Results: results,
	}
	if len(meta.InvocationArgs) > 0 {
		run.Invocations = []sarifInvocation{{Arguments: meta.InvocationArgs, ExecutionSuccessful: !failed}}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(sarifLog{Schema: sarifSchema, Version: sarifVersion, Runs: []sarifRun{run}})
}

func sarifURI(path string, meta SarifRunMeta) string {
	if path == "" {
		return ""
	}
	return strings.TrimPrefix(filepath.ToSlash(meta.PathMode.format(path, meta.BaseDir)), "./")
}
