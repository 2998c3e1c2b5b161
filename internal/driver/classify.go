package driver

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"shellpure/internal/analysis"
)

// ErrUnknownLanguage means a file is neither a recognised shell script nor a
// Makefile.
var ErrUnknownLanguage = errors.New("driver: unknown input language")

var makefileNames = map[string]bool{
	"Makefile":    true,
	"makefile":    true,
	"GNUmakefile": true,
}

var shellInterpreters = map[string]bool{
	"sh":   true,
	"bash": true,
	"dash": true,
	"ksh":  true,
	"zsh":  true,
}

// ParseLanguage accepts "auto" (returns 0), "shell"/"sh"/"bash" and "make".
func ParseLanguage(s string) (analysis.Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return 0, nil
	case "shell", "sh", "bash":
		return analysis.LangShell, nil
	case "make", "makefile":
		return analysis.LangMake, nil
	}
	return 0, fmt.Errorf("invalid language %q (expected auto|shell|make)", s)
}

// Classify decides the language of a file from its name and, failing that,
// from the shebang on its first line.
func Classify(path string, content []byte) (analysis.Language, error) {
	if lang, ok := classifyName(path); ok {
		return lang, nil
	}
	if shebangIsShell(content) {
		return analysis.LangShell, nil
	}
	return 0, fmt.Errorf("%s: %w", path, ErrUnknownLanguage)
}

func classifyName(path string) (analysis.Language, bool) {
	base := filepath.Base(path)
	if makefileNames[base] {
		return analysis.LangMake, true
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".mk", ".make":
		return analysis.LangMake, true
	case ".sh", ".bash":
		return analysis.LangShell, true
	}
	return 0, false
}

// shebangIsShell понимает `#!/bin/bash`, `#! /bin/sh -e` и `#!/usr/bin/env [-S] bash`.
func shebangIsShell(content []byte) bool {
	if !bytes.HasPrefix(content, []byte("#!")) {
		return false
	}
	line, _, _ := bytes.Cut(content[2:], []byte("\n"))
	fields := strings.Fields(string(line))
	if len(fields) == 0 {
		return false
	}
	interp := filepath.Base(fields[0])
	if interp == "env" {
		rest := fields[1:]
		for len(rest) > 0 && (strings.HasPrefix(rest[0], "-") || strings.Contains(rest[0], "=")) {
			rest = rest[1:]
		}
		if len(rest) == 0 {
			return false
		}
		interp = filepath.Base(rest[0])
	}
	return shellInterpreters[interp]
}
