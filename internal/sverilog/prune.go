package sverilog

// PruneOptions configures C5 (spec.md §4.5, §6).
type PruneOptions struct {
	// TopModule is the root unit name reachability is computed from. If
	// empty, every non-library unit not in Exclude is retained (spec.md's
	// "no top configured" case); library units are retained only when a
	// retained unit references them.
	TopModule string

	// Preserve names are unioned into the retained set regardless of
	// reachability from TopModule.
	Preserve []string

	// Exclude names are dropped from the retained set even if reachable.
	Exclude []string
}

// Prune computes the set of DesignUnit names to retain (C5). Grounded on
// internal/indexer/deps.go's computeImpact level-by-level BFS, redirected
// from reverse-impact traversal to forward reachability over the
// UsageGraph built by C4.
//
// Library units (spec.md §3 "Library jobs contribute declarations but no
// emitted text unless referenced"; glossary "Library file") are never
// part of the default retained set, top-module or not: they are pulled
// in only by following reference edges out from whatever is already
// retained, mirroring original_source/src/lib.rs's load_library_module,
// which resolves a library module only when an instantiation fails to
// resolve among the main files and appends only those to used_libs.
func Prune(idx *Index, g *UsageGraph, opts PruneOptions) map[string]bool {
	excluded := toSet(opts.Exclude)
	isLibrary := libraryUnitNames(idx)

	retained := make(map[string]bool)

	if opts.TopModule == "" {
		for _, u := range idx.Units {
			if isLibrary[u.Name] || excluded[u.Name] {
				continue
			}
			retained[u.Name] = true
		}
	} else {
		retained = reachableFrom(opts.TopModule, g)
		retained[opts.TopModule] = true
	}

	// A library unit is retained only when reachable from whatever is
	// already retained (top-module reachability already covers this for
	// the --top-module case; the no-top-module case needs its own pass
	// since "retain everything" deliberately excluded libraries above).
	retainReferencedLibraries(retained, isLibrary, g)

	for name := range excluded {
		delete(retained, name)
	}

	for _, name := range opts.Preserve {
		if !excluded[name] {
			retained[name] = true
		}
	}

	return retained
}

// libraryUnitNames returns the set of names whose retained (duplicate-
// policy-resolved) declaration is library-only.
func libraryUnitNames(idx *Index) map[string]bool {
	out := make(map[string]bool)
	for name, u := range idx.byName {
		if u.IsLibraryOnly {
			out[name] = true
		}
	}
	return out
}

// retainReferencedLibraries walks the UsageGraph outward from every
// currently-retained name, adding any library unit it reaches (and
// continuing the walk from it, so a library referencing another library
// pulls that one in too).
func retainReferencedLibraries(retained map[string]bool, isLibrary map[string]bool, g *UsageGraph) {
	visited := make(map[string]bool, len(retained))
	frontier := make([]string, 0, len(retained))
	for name := range retained {
		visited[name] = true
		frontier = append(frontier, name)
	}

	for len(frontier) > 0 {
		var next []string
		for _, name := range frontier {
			for _, dep := range g.Reachable(name) {
				if visited[dep] {
					continue
				}
				visited[dep] = true
				if isLibrary[dep] {
					retained[dep] = true
				}
				next = append(next, dep)
			}
		}
		frontier = next
	}
}

// reachableFrom performs a level-by-level breadth-first traversal of g
// starting at root (a queue of the current level, expanded one hop at a
// time) rather than plain recursion, so cyclic module graphs terminate
// cleanly.
func reachableFrom(root string, g *UsageGraph) map[string]bool {
	visited := map[string]bool{root: true}
	frontier := []string{root}

	for len(frontier) > 0 {
		var next []string
		for _, name := range frontier {
			for _, dep := range g.Reachable(name) {
				if !visited[dep] {
					visited[dep] = true
					next = append(next, dep)
				}
			}
		}
		frontier = next
	}

	return visited
}

func toSet(names []string) map[string]bool {
	s := make(map[string]bool, len(names))
	for _, n := range names {
		s[n] = true
	}
	return s
}
