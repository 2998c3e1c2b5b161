package driver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shellpure/internal/analysis"
	"shellpure/internal/ctxlog"
	"shellpure/internal/diag"
	"shellpure/internal/observ"
	"shellpure/internal/purify"
	"shellpure/internal/rules"
	"shellpure/internal/source"
	"shellpure/internal/verify"
)

// VerifyOptions selects the post-fix checks.
type VerifyOptions struct {
	// Idempotency purifies the output again; a change drops all fixes.
	Idempotency bool
	// TreeSitter cross-parses purified Bash with the tree-sitter grammar.
	TreeSitter bool
	// ShellCheck lints purified Bash when non-nil.
	ShellCheck *verify.ShellCheck
}

// Options controls how a file is processed.
type Options struct {
	// Registry defaults to rules.Default().
	Registry *rules.Registry
	// Purify.Registry defaults to Registry.
	Purify purify.Options
	// Lang forces the language; 0 means Classify.
	Lang analysis.Language
	// Fix runs the purifier after linting.
	Fix            bool
	MaxDiagnostics int
	Verify         VerifyOptions
	// Cache is optional; ConfigDigest must then describe Registry and Purify.
	Cache        *Cache
	ConfigDigest [32]byte
	Progress     ProgressSink
}

func (o Options) registry() *rules.Registry {
	if o.Registry != nil {
		return o.Registry
	}
	return rules.Default()
}

func (o Options) purifyOptions() purify.Options {
	p := o.Purify
	if p.Registry == nil {
		p.Registry = o.registry()
	}
	return p
}

func (o Options) mode() string {
	if !o.Fix {
		return "lint"
	}
	var b strings.Builder
	b.WriteString("purify")
	if o.Verify.Idempotency {
		b.WriteString("+idem")
	}
	if o.Verify.TreeSitter {
		b.WriteString("+ts")
	}
	if o.Verify.ShellCheck != nil {
		b.WriteString("+sc")
	}
	return b.String()
}

// FileResult is the outcome for one file. Err is set only when the file
// could not be processed at all (unreadable, unknown language).
type FileResult struct {
	Path    string
	Lang    analysis.Language
	FileSet *source.FileSet
	File    source.FileID
	Bag     *diag.Bag

	Original string
	// Purified equals Original unless Fix was set and a fix survived verification.
	Purified string
	Applied  int
	Manual   int
	Report   []string

	Cached bool
	Timing observ.Report
	Err    error
}

// Changed reports whether purification produced different text.
func (r *FileResult) Changed() bool {
	return r.Purified != r.Original
}

// HasErrors reports a processing failure or an error diagnostic.
func (r *FileResult) HasErrors() bool {
	return r.Err != nil || r.Bag.HasErrors()
}

// ProcessFile loads path from disk and runs the pipeline on it.
func ProcessFile(ctx context.Context, path string, opts Options) *FileResult {
	fs := source.NewFileSet()
	res := &FileResult{Path: path, FileSet: fs, Bag: diag.NewBag(opts.MaxDiagnostics)}
	timer := observ.NewTimer()
	defer func() { res.Timing = timer.Report() }()

	idx := timer.Begin(string(StageLoad))
	id, err := fs.Load(path)
	timer.End(idx, "")
	if err != nil {
		res.Err = fmt.Errorf("load %s: %w", path, err)
		res.Bag.Add(diag.New(diag.SevError, diag.CodeIO, "cannot read file: "+err.Error(), "", "check the path and its permissions").
			WithLocation(diag.Location{File: path}))
		emit(opts.Progress, Event{File: path, Stage: StageLoad, Status: StatusError, Err: res.Err})
		return res
	}
	process(ctx, res, id, opts, timer)
	return res
}

// ProcessSource runs the pipeline on in-memory content, e.g. stdin.
func ProcessSource(ctx context.Context, name string, src []byte, opts Options) *FileResult {
	fs := source.NewFileSet()
	res := &FileResult{Path: name, FileSet: fs, Bag: diag.NewBag(opts.MaxDiagnostics)}
	timer := observ.NewTimer()
	defer func() { res.Timing = timer.Report() }()

	id, err := fs.AddBytes(name, src)
	if err != nil {
		res.Err = err
		res.Bag.Add(diag.New(diag.SevError, diag.CodeIO, "cannot decode input: "+err.Error(), "", "").
			WithLocation(diag.Location{File: name}))
		return res
	}
	process(ctx, res, id, opts, timer)
	return res
}

func process(ctx context.Context, res *FileResult, id source.FileID, opts Options, timer *observ.Timer) {
	log := ctxlog.FromContext(ctx).With("file", res.Path)
	file := res.FileSet.Get(id)
	res.File = id
	res.Original = string(file.Content)
	res.Purified = res.Original

	lang := opts.Lang
	if lang == 0 {
		var err error
		if lang, err = Classify(res.Path, file.Content); err != nil {
			res.Err = err
			res.Bag.Add(diag.New(diag.SevError, diag.CodeIO,
				"cannot tell whether this is a shell script or a Makefile",
				"shell scripts are recognised by a .sh/.bash extension or a sh/bash/dash/ksh/zsh shebang, Makefiles by their name",
				"rename the file or pass --lang shell|make").
				WithLocation(diag.Location{File: res.Path}))
			emit(opts.Progress, Event{File: res.Path, Stage: StageLoad, Status: StatusError, Err: err})
			return
		}
	}
	res.Lang = lang

	var key Digest
	if opts.Cache != nil {
		key = CacheKey(res.Path, file.Hash, lang, opts.mode(), opts.ConfigDigest)
		var entry CacheEntry
		hit, err := opts.Cache.Get(key, &entry)
		if err != nil {
			log.Warn("cache read failed", "err", err)
		}
		if hit {
			log.Debug("cache hit")
			res.Cached = true
			res.Bag.AddAll(entry.Diagnostics)
			res.Purified = entry.Purified
			res.Applied, res.Manual, res.Report = entry.Applied, entry.Manual, entry.Report
			finish(opts.Progress, res, timer)
			return
		}
		log.Debug("cache miss")
	}

	run(ctx, res, id, lang, opts, timer)

	if opts.Cache != nil {
		entry := &CacheEntry{
			Lang:        uint8(lang),
			Purified:    res.Purified,
			Applied:     res.Applied,
			Manual:      res.Manual,
			Report:      res.Report,
			Diagnostics: res.Bag.Items(),
		}
		if err := opts.Cache.Put(key, entry); err != nil {
			log.Warn("cache write failed", "err", err)
		}
	}
	finish(opts.Progress, res, timer)
}

func finish(sink ProgressSink, res *FileResult, timer *observ.Timer) {
	status := StatusDone
	if res.HasErrors() {
		status = StatusError
	}
	elapsed := time.Duration(timer.Report().TotalMS * float64(time.Millisecond))
	emit(sink, Event{File: res.Path, Status: status, Err: res.Err, Elapsed: elapsed})
}

// phase times one stage and reports it to the sink and the debug log.
func phase(ctx context.Context, res *FileResult, opts Options, timer *observ.Timer, stage Stage, fn func() string) {
	emit(opts.Progress, Event{File: res.Path, Stage: stage, Status: StatusWorking})
	var note string
	elapsed := timer.Measure(string(stage), func() string {
		note = fn()
		return note
	})
	ctxlog.FromContext(ctx).Debug("phase", "file", res.Path, "stage", stage, "elapsed", elapsed, "note", note)
}

func run(ctx context.Context, res *FileResult, id source.FileID, lang analysis.Language, opts Options, timer *observ.Timer) {
	var in *rules.Input
	parsed := true
	phase(ctx, res, opts, timer, StageParse, func() string {
		var perr *diag.Diagnostic
		in, perr = rules.Prepare(res.FileSet, id, lang)
		if perr != nil {
			res.Bag.Add(*perr)
			parsed = false
			return "parse error"
		}
		return ""
	})
	if !parsed {
		return
	}

	phase(ctx, res, opts, timer, StageLint, func() string {
		lr := rules.LintInput(opts.registry(), in)
		res.Bag.AddAll(lr.Diagnostics)
		return fmt.Sprintf("%d findings", len(lr.Diagnostics))
	})
	if !opts.Fix {
		return
	}

	popts := opts.purifyOptions()
	phase(ctx, res, opts, timer, StagePurify, func() string {
		switch lang {
		case analysis.LangMake:
			absorb(res, purify.Makefile(res.FileSet, in.Make, popts))
		default:
			absorb(res, purify.Shell(res.FileSet, in.Script, popts))
		}
		return fmt.Sprintf("%d applied, %d manual", res.Applied, res.Manual)
	})

	if !res.Changed() {
		return
	}
	phase(ctx, res, opts, timer, StageVerify, func() string {
		return verifyOutput(ctx, res, lang, popts, opts.Verify)
	})
}

func absorb[N any](res *FileResult, r purify.Result[N]) {
	res.Purified = r.Text
	res.Applied = r.TransformationsApplied
	res.Manual = r.ManualFixesNeeded
	res.Report = r.Report
	res.Bag.AddAll(r.Diagnostics)
}

// dropFixes keeps the manual part of the report and the original text.
func dropFixes(res *FileResult) {
	res.Purified = res.Original
	res.Applied = 0
	kept := res.Report[:0]
	for _, line := range res.Report {
		if !strings.HasPrefix(line, "fixed: ") {
			kept = append(kept, line)
		}
	}
	res.Report = kept
}

func verifyOutput(ctx context.Context, res *FileResult, lang analysis.Language, popts purify.Options, v VerifyOptions) string {
	if v.Idempotency {
		if err := verify.Idempotent(lang, res.Path, res.Purified, popts); err != nil {
			res.Bag.Add(verify.IdempotentDiagnostic(res.Path, err))
			dropFixes(res)
			return "not idempotent"
		}
	}
	if lang != analysis.LangShell {
		return ""
	}
	if v.TreeSitter {
		ds := verify.SyntaxDiagnostics(ctx, res.Path, res.Purified)
		switch {
		case len(ds) == 0:
		case ds[0].Code == diag.CodeVerifyUnavailable:
			res.Bag.AddAll(ds)
		default:
			// грамматика tree-sitter отвергает и сам вход: сверять не с чем
			if se, err := verify.TreeSitterSyntax(ctx, res.Original); err == nil && se == nil {
				res.Bag.AddAll(ds)
				dropFixes(res)
				return "rejected by tree-sitter"
			}
		}
	}
	if v.ShellCheck != nil {
		res.Bag.AddAll(v.ShellCheck.Diagnose(ctx, res.Path, res.Purified))
	}
	return ""
}
