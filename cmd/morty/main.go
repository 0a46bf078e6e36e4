// =============================================================================
// morty - SystemVerilog Pickler
// =============================================================================
//
// morty ingests a set of SystemVerilog source files together with include
// paths and preprocessor defines, parses each into a concrete syntax tree,
// resolves declared design units and their cross-references, and emits a
// single SV text file in which selected units have been renamed under a
// common prefix/suffix, optionally stripping comments and preprocessor
// artifacts and pruning to whatever a chosen top module actually reaches.
//
// THE PIPELINE:
//   1. File Bundle Loader normalizes manifests/flists/flags into ParseJobs
//   2. Parallel Parser preprocesses `include/`define and runs tree-sitter
//   3. Declaration Indexer records every module/interface/package/program
//   4. Usage Graph Builder resolves instantiations, imports, param types
//   5. Top-Module Pruner computes the reachable set from --top-module
//   6. Rename Planner computes the sorted, non-overlapping edit list
//   7. Emitter applies edits and writes the pickled file (and manifest)
//
// WHEN INVESTIGATING UNEXPECTED OUTPUT:
//   Start at the beginning of the pipeline, not the end! A missing rename
//   is usually an indexing or usage-resolution problem, not an emitter bug.
// =============================================================================

package main

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/morty-hdl/morty/internal/diag"
	"github.com/morty-hdl/morty/internal/sverilog"
)

const version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := pflag.NewFlagSet("morty", pflag.ContinueOnError)
	flags.Usage = func() { printUsage(flags) }

	var (
		prefix           string
		suffix           string
		excludeRename    []string
		exclude          []string
		preserve         []string
		topModule        string
		libraryFiles     []string
		libraryDirs      []string
		includeDirs      []string
		defines          []string
		manifestPath     string
		stripComments    bool
		keepDefines      bool
		keepTimescale    bool
		propagateDefines bool
		noParallel       bool
		ignoreUnparse    bool
		outPath          string
		writeManifest    string
		timingPath       string
		verbose          bool
		quiet            bool
	)

	flags.StringVarP(&prefix, "prefix", "p", "", "rename prefix applied to retained design units")
	flags.StringVarP(&suffix, "suffix", "s", "", "rename suffix applied to retained design units")
	flags.StringArrayVar(&excludeRename, "exclude-rename", nil, "retain unit but skip renaming (repeatable)")
	flags.StringArrayVar(&exclude, "exclude", nil, "remove unit entirely (repeatable)")
	flags.StringArrayVar(&preserve, "preserve", nil, "force retention under top-module pruning (repeatable)")
	flags.StringVar(&topModule, "top-module", "", "prune to the set reachable from this unit")
	flags.StringArrayVar(&libraryFiles, "library-file", nil, "parse as library: declarations only (repeatable)")
	flags.StringArrayVar(&libraryDirs, "library-dir", nil, "parse every SV file under dir as library (repeatable)")
	flags.StringArrayVarP(&includeDirs, "incdir", "I", nil, "include directory (repeatable)")
	flags.StringArrayVarP(&defines, "define", "D", nil, "preprocessor define, name[=value] (repeatable)")
	flags.StringVarP(&manifestPath, "flist", "f", "", "JSON manifest or +incdir+/+define+ flist path")
	flags.BoolVar(&stripComments, "strip-comments", false, "delete non-doc comments (spec rule 4.6.4)")
	flags.BoolVar(&keepDefines, "keep-defines", false, "do not strip `define/`undef directives")
	flags.BoolVar(&keepTimescale, "keep-timescale", false, "do not strip `timescale/timeunit/timeprecision")
	flags.BoolVar(&propagateDefines, "propagate-defines", false, "carry defines across files (serializes parsing)")
	flags.BoolVar(&noParallel, "no-parallel", false, "force single-threaded parsing")
	flags.BoolVarP(&ignoreUnparse, "ignore-unparseable", "i", false, "demote parse/input failures to warnings")
	flags.StringVarP(&outPath, "output", "o", "", "output file (default stdout)")
	flags.StringVar(&writeManifest, "manifest", "", "write retained-file manifest to this path")
	flags.StringVar(&timingPath, "timing", "", "write a JSONL phase/file timing trace to this path")
	flags.BoolVarP(&verbose, "verbose", "v", false, "print progress to stderr")
	flags.BoolVarP(&quiet, "quiet", "q", false, "suppress progress and diagnostics summary")

	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return 2
	}

	excludeRename = splitCommaLists(excludeRename)
	exclude = splitCommaLists(exclude)
	preserve = splitCommaLists(preserve)

	extraDefines, err := parseDefineFlags(defines)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	bundles, err := collectBundles(flags.Args(), libraryFiles, libraryDirs, includeDirs, extraDefines, manifestPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if len(bundles) == 0 {
		bundles = []sverilog.Bundle{{}}
	}

	d := diag.New()

	now := time.Now()
	timer, err := sverilog.NewTimingRecorder(timingPath, now)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer timer.Close()

	opts := sverilog.Options{
		Loader: sverilog.LoaderOptions{
			ExtraDefines:      extraDefines,
			PropagateDefines:  propagateDefines,
			IgnoreUnparseable: ignoreUnparse,
		},
		Parse: sverilog.ParseOptions{
			NoParallel:        noParallel,
			PropagateDefines:  propagateDefines,
			IgnoreUnparseable: ignoreUnparse,
		},
		Prune: sverilog.PruneOptions{
			TopModule: topModule,
			Preserve:  preserve,
			Exclude:   exclude,
		},
		Rename: sverilog.RenamePolicy{
			Prefix:        prefix,
			Suffix:        suffix,
			RenameExclude: excludeRename,
			StripComments: stripComments,
			KeepDefines:   keepDefines,
			KeepTimescale: keepTimescale,
		},
		Emit: sverilog.EmitOptions{
			Version:       version,
			Now:           now.Local().Format(time.RFC3339),
			WriteManifest: writeManifest,
		},
		Timing: timer,
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "morty: %d bundle(s), top-module=%q\n", len(bundles), topModule)
	}

	// Writing to -o goes through a buffer so it can be committed with
	// write-temp-then-rename (spec.md §5 "Cancellation"); stdout has
	// nothing to make atomic against, so it streams directly.
	var out *bytes.Buffer
	var runErr error
	if outPath != "" {
		out = &bytes.Buffer{}
		_, runErr = sverilog.Run(bundles, opts, d, out)
	} else {
		_, runErr = sverilog.Run(bundles, opts, d, os.Stdout)
	}

	if !quiet {
		d.WriteTo(os.Stderr)
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "morty: %v\n", runErr)
		return 1
	}

	if outPath != "" {
		if err := sverilog.WriteFileAtomic(outPath, out.Bytes()); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	if d.HasFatal() {
		return 1
	}
	return 0
}

func printUsage(flags *pflag.FlagSet) {
	fmt.Fprintln(os.Stderr, "Usage: morty [flags] [source.sv ...]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, flags.FlagUsages())
}

// splitCommaLists accepts both repeated-flag and comma-list forms for
// --exclude/--exclude-rename/--preserve (SPEC_FULL.md's supplemented
// feature, folded in from the original CLI, which accepts either form).
func splitCommaLists(vals []string) []string {
	var out []string
	for _, v := range vals {
		out = append(out, strings.Split(v, ",")...)
	}
	return out
}

// parseDefineFlags converts repeated "-D name[=value]" flags into a
// DefineMap, per spec.md §6.
func parseDefineFlags(defines []string) (sverilog.DefineMap, error) {
	out := sverilog.DefineMap{}
	for _, d := range defines {
		name, value, _ := strings.Cut(d, "=")
		if name == "" {
			return nil, fmt.Errorf("invalid -D flag %q: missing name", d)
		}
		out[name] = value
	}
	return out, nil
}

// collectBundles merges the -f manifest/flist (if any) with directly
// specified positional files, -I, -D, --library-file, and --library-dir
// into the ordered Bundle list C1 consumes (spec.md §6).
func collectBundles(positional, libraryFiles, libraryDirs, includeDirs []string, extraDefines sverilog.DefineMap, manifestPath string) ([]sverilog.Bundle, error) {
	var bundles []sverilog.Bundle

	if manifestPath != "" {
		b, err := loadManifestOrFlist(manifestPath)
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, b...)
	}

	libFromDirs, err := expandLibraryDirs(libraryDirs)
	if err != nil {
		return nil, err
	}

	if len(positional) > 0 || len(libraryFiles) > 0 || len(libFromDirs) > 0 {
		bundles = append(bundles, sverilog.Bundle{
			IncludeDirs:  includeDirs,
			Defines:      extraDefines,
			Files:        positional,
			LibraryFiles: append(libraryFiles, libFromDirs...),
		})
	}

	return bundles, nil
}

// loadManifestOrFlist tries the JSON manifest format first (spec.md §6)
// and falls back to the +incdir+/+define+ flist format on a decode error,
// since both share the -f flag.
func loadManifestOrFlist(path string) ([]sverilog.Bundle, error) {
	if m, err := sverilog.LoadManifest(path); err == nil {
		return m, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	b, err := sverilog.ParseFlist(f)
	if err != nil {
		return nil, fmt.Errorf("parsing flist %s: %w", path, err)
	}
	return []sverilog.Bundle{b}, nil
}

var librarySourceExt = map[string]bool{
	".sv": true, ".svh": true, ".v": true, ".vh": true,
}

// expandLibraryDirs walks every --library-dir recursively, collecting SV
// source files to parse as library-only declarations.
func expandLibraryDirs(dirs []string) ([]string, error) {
	var files []string
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if librarySourceExt[strings.ToLower(filepath.Ext(path))] {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking library dir %s: %w", dir, err)
		}
	}
	return files, nil
}

