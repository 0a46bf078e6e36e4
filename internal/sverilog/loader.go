package sverilog

import (
	"fmt"
	"os"

	"github.com/morty-hdl/morty/internal/diag"
)

// LoaderOptions configures the File Bundle Loader (C1, spec.md §4.1).
type LoaderOptions struct {
	// ExtraDefines are applied to every bundle in addition to its own.
	ExtraDefines DefineMap

	// PropagateDefines records whether define propagation is on. BuildJobs
	// does not read it: the folding of every prior job's defines_out into
	// each job happens in ParseAll under ParseOptions.PropagateDefines.
	PropagateDefines bool

	// IgnoreUnparseable demotes a missing file from a fatal error to a
	// warning; the file is dropped from the job stream.
	IgnoreUnparseable bool
}

// BuildJobs normalizes an ordered list of Bundles into ParseJobs in
// original textual order, per spec.md §4.1. Grounded on
// internal/indexer.Run's file-collection stage and
// internal/config.ResolveLibraries, generalized from glob-expanded VHDL
// libraries to spec.md's explicit files/library_files bundle shape.
//
// A job's Defines here is only its own bundle's contribution plus the
// global extra defines; when define propagation is on, C2's parser
// additionally folds in defines_out of every prior job as it parses each
// one serially, because defines_out is only known after a file is parsed.
func BuildJobs(bundles []Bundle, opts LoaderOptions, d *diag.Collector) ([]ParseJob, error) {
	var jobs []ParseJob

	appendJob := func(path string, includeDirs []string, defines DefineMap, isLibrary bool) error {
		if _, err := os.Stat(path); err != nil {
			if opts.IgnoreUnparseable {
				d.Add(diag.Diagnostic{
					Severity: diag.Warning,
					Kind:     diag.KindInput,
					File:     path,
					Message:  fmt.Sprintf("file not found, dropped: %v", err),
				})
				return nil
			}
			return fmt.Errorf("input file %s: %w", path, err)
		}

		jobs = append(jobs, ParseJob{
			Index:       len(jobs),
			Path:        path,
			IncludeDirs: includeDirs,
			Defines:     defines.Merge(opts.ExtraDefines),
			IsLibrary:   isLibrary,
		})
		return nil
	}

	for _, b := range bundles {
		for _, f := range b.Files {
			if err := appendJob(f, b.IncludeDirs, b.Defines, false); err != nil {
				return nil, err
			}
		}
		for _, f := range b.LibraryFiles {
			if err := appendJob(f, b.IncludeDirs, b.Defines, true); err != nil {
				return nil, err
			}
		}
	}

	return jobs, nil
}
