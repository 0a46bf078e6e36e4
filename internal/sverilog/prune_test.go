package sverilog

import "testing"

// buildGraph constructs a minimal UsageGraph from a plain adjacency map,
// for tests that only exercise Prune's reachability logic.
func buildGraph(adj map[string][]string) *UsageGraph {
	return &UsageGraph{edges: adj}
}

func unitsOf(names ...string) *Index {
	idx := &Index{byName: make(map[string]*DesignUnit)}
	for _, n := range names {
		u := &DesignUnit{Name: n}
		idx.Units = append(idx.Units, u)
		idx.byName[n] = u
	}
	return idx
}

// libraryUnitsOf builds an Index where libNames are IsLibraryOnly and the
// rest are ordinary units, for testing Prune's library-retention rule
// (spec.md §3, glossary "Library file").
func libraryUnitsOf(libNames map[string]bool, names ...string) *Index {
	idx := &Index{byName: make(map[string]*DesignUnit)}
	for _, n := range names {
		u := &DesignUnit{Name: n, IsLibraryOnly: libNames[n]}
		idx.Units = append(idx.Units, u)
		idx.byName[n] = u
	}
	return idx
}

func TestPruneTopModuleReachability(t *testing.T) {
	// S6: A instantiates B only; C is unreachable.
	idx := unitsOf("A", "B", "C")
	g := buildGraph(map[string][]string{"A": {"B"}})

	retained := Prune(idx, g, PruneOptions{TopModule: "A"})

	if !retained["A"] || !retained["B"] {
		t.Errorf("expected A and B retained, got %v", retained)
	}
	if retained["C"] {
		t.Errorf("expected C pruned, got retained")
	}
}

func TestPruneNoTopModuleRetainsAllExceptExcluded(t *testing.T) {
	idx := unitsOf("A", "B", "C")
	g := buildGraph(nil)

	retained := Prune(idx, g, PruneOptions{Exclude: []string{"B"}})

	if !retained["A"] || !retained["C"] {
		t.Errorf("expected A and C retained, got %v", retained)
	}
	if retained["B"] {
		t.Errorf("expected excluded B pruned, got retained")
	}
}

func TestPrunePreserveOverridesUnreachable(t *testing.T) {
	idx := unitsOf("A", "B", "C")
	g := buildGraph(map[string][]string{"A": {"B"}})

	retained := Prune(idx, g, PruneOptions{TopModule: "A", Preserve: []string{"C"}})

	if !retained["C"] {
		t.Errorf("expected preserved C retained, got %v", retained)
	}
}

func TestPruneExcludeWinsOverReachability(t *testing.T) {
	idx := unitsOf("A", "B")
	g := buildGraph(map[string][]string{"A": {"B"}})

	retained := Prune(idx, g, PruneOptions{TopModule: "A", Exclude: []string{"B"}})

	if retained["B"] {
		t.Errorf("expected excluded B dropped despite reachability")
	}
	if !retained["A"] {
		t.Errorf("expected top module A retained")
	}
}

func TestPruneHandlesCycles(t *testing.T) {
	idx := unitsOf("A", "B")
	g := buildGraph(map[string][]string{"A": {"B"}, "B": {"A"}})

	retained := Prune(idx, g, PruneOptions{TopModule: "A"})

	if !retained["A"] || !retained["B"] {
		t.Errorf("expected both units retained in a cycle, got %v", retained)
	}
}

// TestPruneLibraryUnitNotEmittedByDefault covers spec.md §3: "Library jobs
// contribute declarations but no emitted text unless referenced." With no
// --top-module, a library unit that nothing instantiates must not be
// retained even though every other (non-library) unit is.
func TestPruneLibraryUnitNotEmittedByDefault(t *testing.T) {
	idx := libraryUnitsOf(map[string]bool{"L": true}, "A", "L")
	g := buildGraph(nil)

	retained := Prune(idx, g, PruneOptions{})

	if !retained["A"] {
		t.Errorf("expected non-library A retained, got %v", retained)
	}
	if retained["L"] {
		t.Errorf("expected unreferenced library unit L pruned, got retained")
	}
}

// TestPruneLibraryUnitRetainedWhenReferenced covers the flip side: a
// library unit reachable from a retained (non-library) unit is pulled in,
// independent of --top-module.
func TestPruneLibraryUnitRetainedWhenReferenced(t *testing.T) {
	idx := libraryUnitsOf(map[string]bool{"L": true}, "A", "L")
	g := buildGraph(map[string][]string{"A": {"L"}})

	retained := Prune(idx, g, PruneOptions{})

	if !retained["A"] || !retained["L"] {
		t.Errorf("expected both A and referenced library unit L retained, got %v", retained)
	}
}

// TestPruneLibraryUnitUnreferencedUnderTopModule covers the --top-module
// case: a library unit the top module's closure never reaches stays
// pruned even though Prune's no-top-module branch is not taken.
func TestPruneLibraryUnitUnreferencedUnderTopModule(t *testing.T) {
	idx := libraryUnitsOf(map[string]bool{"L": true}, "A", "B", "L")
	g := buildGraph(map[string][]string{"A": {"B"}})

	retained := Prune(idx, g, PruneOptions{TopModule: "A"})

	if !retained["A"] || !retained["B"] {
		t.Errorf("expected A and B retained, got %v", retained)
	}
	if retained["L"] {
		t.Errorf("expected unreferenced library unit L pruned under top-module, got retained")
	}
}
