// Package diag defines the diagnostic model shared by the parsers, the lint
// rules, the purifier and the verifier.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity: Info, Warning or Error.
//   - Code: stable identifier (SEC001, MAKE013, SH000, ...). Rule codes are
//     owned by internal/rules; codes owned by the tool itself live in codes.go.
//   - Message: short statement of the problem.
//   - Location: file, line, column and the source line snippet. Every field is
//     optional; Resolve fills all of them from a source.Span.
//   - Note and Help: explanation and remediation. Both are always non-empty,
//     New fills fallbacks when a producer leaves them blank.
//   - Fix: a replacement for one span, present only when the finding was
//     classified safe to apply automatically.
//
// # Quality score
//
// QualityScore is a pure function over ScoreInput weighing message, note, help
// and the four location fields. A diagnostic with message, note and help but no
// location scores about 0.70; one with every field present scores exactly 1.0.
//
// Rendering lives in internal/diagfmt; application of fixes lives in
// internal/purify.
package diag
