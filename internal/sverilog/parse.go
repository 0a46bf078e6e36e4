package sverilog

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"golang.org/x/sync/errgroup"

	"github.com/morty-hdl/morty/internal/diag"
)

// ParsedFile is C2's output: the exact bytes the grammar consumed plus the
// resulting CST, immutable after parse (spec.md §3).
type ParsedFile struct {
	Job             ParseJob
	PreprocessedText []byte
	Tree            *sitter.Tree
	DefinesOut      DefineMap
}

// ParseOptions configures C2 (spec.md §4.2, §5).
type ParseOptions struct {
	// NoParallel forces single-threaded parsing (stack-limited environments).
	NoParallel bool

	// PropagateDefines serializes parsing so each job sees defines_out of
	// every prior job (spec.md §4.1/§4.2).
	PropagateDefines bool

	IgnoreUnparseable bool
}

// ParseAll parses every job, returning ParsedFiles re-sorted into original
// job order (spec.md §5 "Ordering guarantees"). Grounded on
// internal/extractor.Extractor.Extract's tree-sitter parse call and
// internal/indexer.Run's fan-out-then-resort shape, with the worker pool
// upgraded to golang.org/x/sync/errgroup (see DESIGN.md) for first-error
// propagation and a SetLimit knob.
func ParseAll(jobs []ParseJob, opts ParseOptions, d *diag.Collector) ([]ParsedFile, error) {
	if opts.PropagateDefines {
		return parseSerial(jobs, opts, d)
	}
	return parseParallel(jobs, opts, d)
}

func parseParallel(jobs []ParseJob, opts ParseOptions, d *diag.Collector) ([]ParsedFile, error) {
	limit := runtime.GOMAXPROCS(0)
	if opts.NoParallel || limit < 1 {
		limit = 1
	}

	results := make([]*ParsedFile, len(jobs))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(limit)

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			pf, err := parseOne(job)
			if err != nil {
				if opts.IgnoreUnparseable {
					d.Add(diag.Diagnostic{
						Severity: diag.Warning,
						Kind:     diag.KindParse,
						File:     job.Path,
						Message:  err.Error(),
					})
					return nil
				}
				return fmt.Errorf("parsing %s: %w", job.Path, err)
			}
			mu.Lock()
			results[i] = pf
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return compactParsed(results), nil
}

func parseSerial(jobs []ParseJob, opts ParseOptions, d *diag.Collector) ([]ParsedFile, error) {
	results := make([]*ParsedFile, len(jobs))
	accumulated := DefineMap{}

	for i, job := range jobs {
		job.Defines = accumulated.Merge(job.Defines)
		pf, err := parseOne(job)
		if err != nil {
			if opts.IgnoreUnparseable {
				d.Add(diag.Diagnostic{
					Severity: diag.Warning,
					Kind:     diag.KindParse,
					File:     job.Path,
					Message:  err.Error(),
				})
				continue
			}
			return nil, fmt.Errorf("parsing %s: %w", job.Path, err)
		}
		results[i] = pf
		accumulated = pf.DefinesOut
	}

	return compactParsed(results), nil
}

func parseOne(job ParseJob) (*ParsedFile, error) {
	pp, err := preprocess(job)
	if err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	parser.SetLanguage(language())

	tree, err := parser.ParseCtx(context.Background(), nil, pp.text)
	if err != nil {
		return nil, fmt.Errorf("grammar error: %w", err)
	}

	return &ParsedFile{
		Job:              job,
		PreprocessedText: pp.text,
		Tree:             tree,
		DefinesOut:       pp.definesOut,
	}, nil
}

// compactParsed drops nil slots (dropped by --ignore-unparseable) while
// keeping the remaining entries in original job-index order.
func compactParsed(results []*ParsedFile) []ParsedFile {
	out := make([]ParsedFile, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Job.Index < out[j].Job.Index
	})
	return out
}
