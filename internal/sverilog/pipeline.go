package sverilog

import (
	"io"
	"time"

	"github.com/morty-hdl/morty/internal/diag"
)

// Options is the full configuration surface of a Run (spec.md §6),
// gathered here so cmd/morty only has to translate flags into one struct.
type Options struct {
	Loader LoaderOptions
	Parse  ParseOptions
	Prune  PruneOptions
	Rename RenamePolicy
	Emit   EmitOptions

	// Timing receives one stage event per pipeline phase when non-nil
	// (--timing). A nil value disables tracing entirely.
	Timing *TimingRecorder
}

// Result is everything a caller (cmd/morty, or a test) might want to
// inspect after a Run besides the emitted bytes, which are written
// directly to w.
type Result struct {
	Index *Index
	Usage *UsageGraph
	Files []ParsedFile
}

// Run executes the full pipeline C1 through C7 in order, mirroring
// internal/indexer.Indexer.Run's phase structure: load, parse, index,
// resolve usages, prune, plan, emit. C3 (index) and C4 (usages) run
// single-threaded and in sequence even though they operate on
// independently-parsed files, since spec.md requires deterministic
// output and neither phase is a bottleneck next to C2's parse fan-out.
func Run(bundles []Bundle, opts Options, d *diag.Collector, w io.Writer) (*Result, error) {
	tr := opts.Timing

	stage := func(phase string, fn func() error) error {
		start := time.Now()
		err := fn()
		tr.RecordStage(phase, start, time.Since(start))
		return err
	}

	var jobs []ParseJob
	if err := stage("load", func() (err error) {
		jobs, err = BuildJobs(bundles, opts.Loader, d)
		return err
	}); err != nil {
		return nil, err
	}

	var files []ParsedFile
	if err := stage("parse", func() (err error) {
		files, err = ParseAll(jobs, opts.Parse, d)
		return err
	}); err != nil {
		return nil, err
	}

	var idx *Index
	_ = stage("index", func() error {
		idx = IndexFiles(files, d)
		return nil
	})

	var usages *UsageGraph
	_ = stage("usage", func() error {
		usages = BuildUsages(files, idx)
		return nil
	})

	var retained map[string]bool
	_ = stage("prune", func() error {
		retained = Prune(idx, usages, opts.Prune)
		return nil
	})

	// Undefined-instantiation diagnostics are only meaningful for units
	// that survived pruning (spec.md §8, scenario S6: a pruned unit's own
	// undefined references never surface a warning).
	ReportUnresolved(usages, retained, d)

	// Likewise drop usages owned by a pruned-away unit so renaming never
	// touches dead code.
	usages.Usages = filterUsagesByRetainedOwner(usages.Usages, retained)

	var edits [][]Edit
	_ = stage("plan", func() error {
		edits = Plan(idx, usages, files, retained, opts.Rename)
		return nil
	})

	emitOpts := opts.Emit
	if emitOpts.ManifestBundle == nil {
		emitOpts.ManifestBundle = retainedManifest(idx, files, retained)
	}

	if err := stage("emit", func() error {
		return Emit(w, files, edits, emitOpts)
	}); err != nil {
		return nil, err
	}

	return &Result{Index: idx, Usage: usages, Files: files}, nil
}

// filterUsagesByRetainedOwner drops usages recorded inside a unit that
// ended up pruned away, so emitted renames never reference a deleted
// unit's interior (spec.md §4.5: a deleted unit's outer span becomes
// empty, so any edit inside it would be meaningless).
func filterUsagesByRetainedOwner(usages []Usage, retained map[string]bool) []Usage {
	out := make([]Usage, 0, len(usages))
	for _, u := range usages {
		if u.Owner != "" && !retained[u.Owner] {
			continue
		}
		out = append(out, u)
	}
	return out
}

// retainedManifest builds the default --manifest payload: one bundle per
// retained file, matching spec.md §4.7's "enumerating the retained input
// files and effective include/define state."
func retainedManifest(idx *Index, files []ParsedFile, retained map[string]bool) Manifest {
	fileRetained := make(map[int]bool, len(files))
	for _, u := range idx.Units {
		if retained[u.Name] {
			fileRetained[u.FileID] = true
		}
	}

	var m Manifest
	for i, pf := range files {
		if !fileRetained[i] {
			continue
		}
		m = append(m, Bundle{
			IncludeDirs: pf.Job.IncludeDirs,
			Defines:     pf.Job.Defines,
			Files:       []string{pf.Job.Path},
		})
	}
	return m
}
