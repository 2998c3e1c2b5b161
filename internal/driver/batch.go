package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"shellpure/internal/analysis"
	"shellpure/internal/ctxlog"
)

// shebangPeek is how much of an extension-less file is read to find a shebang.
const shebangPeek = 256

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"vendor":       true,
}

// ListFiles walks root and returns the sorted paths of every file whose
// language is lang (0 = both). A file root is returned as is.
func ListFiles(root string, lang analysis.Language) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}
	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && (skipDirs[d.Name()] || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		got, ok := classifyName(path)
		if !ok {
			head, err := readHead(path)
			if err != nil || !shebangIsShell(head) {
				return nil
			}
			got = analysis.LangShell
		}
		if lang == 0 || got == lang {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Сортируем для детерминированного порядка
	sort.Strings(files)
	return files, nil
}

func readHead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, shebangPeek)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}

// Run processes files in parallel, at most jobs at a time (0 = GOMAXPROCS).
// Results come back in input order; a failing file never stops the others.
// The only error is a cancelled context.
func Run(ctx context.Context, files []string, opts Options, jobs int) ([]*FileResult, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	for _, path := range files {
		emit(opts.Progress, Event{File: path, Status: StatusQueued})
	}

	// Результаты (индексы уникальны для каждой горутины, мьютекс не нужен)
	results := make([]*FileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))
	for i, path := range files {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = ProcessFile(gctx, path, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("batch cancelled: %w", err)
	}
	ctxlog.FromContext(ctx).Debug("batch finished", "files", len(files), "jobs", jobs)
	return results, nil
}

// RunPaths expands every path (file or directory) and runs the batch.
// Duplicate paths are processed once.
func RunPaths(ctx context.Context, paths []string, opts Options, jobs int) ([]*FileResult, error) {
	files, err := Expand(paths, opts.Lang)
	if err != nil {
		return nil, err
	}
	return Run(ctx, files, opts, jobs)
}

// Expand lists the files behind paths, preserving argument order.
func Expand(paths []string, lang analysis.Language) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, p := range paths {
		listed, err := ListFiles(p, lang)
		if err != nil {
			return nil, err
		}
		for _, f := range listed {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}
	return files, nil
}
