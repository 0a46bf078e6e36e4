// Package sverilog implements morty's source-preserving transformation
// pipeline: bundle loading, parallel parsing, declaration indexing, usage
// graph construction, top-module pruning, rename planning, and emission.
package sverilog

// DefineMap is a set of preprocessor defines keyed by name; iteration
// order is not defined. Values are stored verbatim ("" for a value-less
// define such as `-D FOO`).
type DefineMap map[string]string

// Clone returns a shallow copy so a job's effective defines never alias
// its bundle's or a prior job's map.
func (d DefineMap) Clone() DefineMap {
	out := make(DefineMap, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Merge overlays other on top of d, returning a new map. Later values win.
func (d DefineMap) Merge(other DefineMap) DefineMap {
	out := d.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Bundle groups files that share include directories and defines
// (spec.md §4.1). It is the unit the File Bundle Loader (C1) normalizes
// into ParseJobs.
type Bundle struct {
	IncludeDirs  []string  `json:"include_dirs,omitempty"`
	Defines      DefineMap `json:"defines,omitempty"`
	Files        []string  `json:"files,omitempty"`
	LibraryFiles []string  `json:"library_files,omitempty"`
}

// Manifest is a JSON array of Bundles, per spec.md §6. The same type
// serves as both the -f input format and the --manifest output format.
type Manifest []Bundle

// ParseJob is a single input unit to the Parallel Parser (C2).
type ParseJob struct {
	// Index preserves original emission order; parsing may reorder
	// completion, but output is always re-sorted by Index (spec.md §5).
	Index int

	Path        string
	IncludeDirs []string
	Defines     DefineMap
	IsLibrary   bool
}
