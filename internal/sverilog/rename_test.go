package sverilog

import "testing"

func TestIsStrippableComment(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"// plain comment", true},
		{"//// four-slash doc comment", false},
		{"/// triple-slash doc comment", false},
		{"//! bang doc comment", false},
		{"/* block */", true},
		{"/*** doc block ***/", false},
	}
	for _, c := range cases {
		if got := isStrippableComment(c.text); got != c.want {
			t.Errorf("isStrippableComment(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

func TestResolveConflictsDropsRenameInsideDeletion(t *testing.T) {
	deletion := Span{0, 100}
	edits := []Edit{
		{Span: deletion, Replacement: ""},
		{Span: Span{10, 20}, Replacement: "renamed"},
	}

	out := resolveConflicts(edits, []Span{deletion})

	if len(out) != 1 {
		t.Fatalf("got %d edits, want 1 (deletion only): %+v", len(out), out)
	}
	if out[0].Span != deletion {
		t.Errorf("surviving edit = %+v, want the deletion span", out[0])
	}
}

func TestResolveConflictsSortsByStartOffset(t *testing.T) {
	edits := []Edit{
		{Span: Span{50, 60}, Replacement: "b"},
		{Span: Span{10, 20}, Replacement: "a"},
	}

	out := resolveConflicts(edits, nil)

	if len(out) != 2 || out[0].Replacement != "a" || out[1].Replacement != "b" {
		t.Fatalf("edits not sorted by start offset: %+v", out)
	}
}

func TestResolveConflictsKeepsSiblingEdits(t *testing.T) {
	edits := []Edit{
		{Span: Span{0, 10}, Replacement: "x"},
		{Span: Span{20, 30}, Replacement: "y"},
	}

	out := resolveConflicts(edits, nil)

	if len(out) != 2 {
		t.Fatalf("expected both sibling edits kept, got %+v", out)
	}
}

// TestPlanRenamesDeclarationsAndUsages exercises Plan end-to-end against
// hand-built DesignUnits/Usages (no CST required, since Plan only walks
// the tree for comment/directive stripping which is skipped when
// ParsedFile.Tree is nil).
func TestPlanRenamesDeclarationsAndUsages(t *testing.T) {
	idx := &Index{byName: make(map[string]*DesignUnit)}
	top := &DesignUnit{
		Name:      "top",
		FileID:    0,
		OuterSpan: Span{0, 100},
		NameSpan:  Span{7, 10},
	}
	sub := &DesignUnit{
		Name:      "sub",
		FileID:    0,
		OuterSpan: Span{0, 0},
		NameSpan:  Span{200, 203},
	}
	idx.Units = []*DesignUnit{top, sub}
	idx.byName["top"] = top
	idx.byName["sub"] = sub

	g := &UsageGraph{
		edges: map[string][]string{"top": {"sub"}},
		Usages: []Usage{
			{FileID: 0, Span: Span{50, 53}, Target: UsageTarget{Kind: TargetModuleInst, Name: "sub"}, Owner: "top"},
		},
	}

	files := []ParsedFile{{Job: ParseJob{Index: 0, Path: "top.sv"}}}
	retained := map[string]bool{"top": true, "sub": true}

	edits := Plan(idx, g, files, retained, RenamePolicy{Prefix: "pfx_"})

	if len(edits) != 1 {
		t.Fatalf("expected edits for 1 file, got %d", len(edits))
	}

	byStart := map[int]Edit{}
	for _, e := range edits[0] {
		byStart[e.Span.Start] = e
	}

	if e, ok := byStart[7]; !ok || e.Replacement != "pfx_top" {
		t.Errorf("declaration rename for top missing or wrong: %+v", byStart[7])
	}
	if e, ok := byStart[200]; !ok || e.Replacement != "pfx_sub" {
		t.Errorf("declaration rename for sub missing or wrong: %+v", byStart[200])
	}
	if e, ok := byStart[50]; !ok || e.Replacement != "pfx_sub" {
		t.Errorf("usage-site rename for sub instantiation missing or wrong: %+v", byStart[50])
	}
}

func TestPlanDropsDeletedUnitDeclarationRename(t *testing.T) {
	idx := &Index{byName: make(map[string]*DesignUnit)}
	dead := &DesignUnit{Name: "dead", FileID: 0, OuterSpan: Span{0, 50}, NameSpan: Span{7, 11}}
	idx.Units = []*DesignUnit{dead}
	idx.byName["dead"] = dead

	g := &UsageGraph{edges: map[string][]string{}}
	files := []ParsedFile{{Job: ParseJob{Index: 0, Path: "dead.sv"}}}
	retained := map[string]bool{} // dead is pruned

	edits := Plan(idx, g, files, retained, RenamePolicy{Prefix: "pfx_"})

	if len(edits[0]) != 1 {
		t.Fatalf("expected only the deletion edit to survive, got %+v", edits[0])
	}
	if edits[0][0].Replacement != "" {
		t.Errorf("expected a deletion edit, got replacement %q", edits[0][0].Replacement)
	}
}

func TestPlanRenameExcludeSkipsDeclaration(t *testing.T) {
	idx := &Index{byName: make(map[string]*DesignUnit)}
	u := &DesignUnit{Name: "keep_name", FileID: 0, OuterSpan: Span{0, 50}, NameSpan: Span{7, 16}}
	idx.Units = []*DesignUnit{u}
	idx.byName["keep_name"] = u

	g := &UsageGraph{edges: map[string][]string{}}
	files := []ParsedFile{{Job: ParseJob{Index: 0, Path: "f.sv"}}}
	retained := map[string]bool{"keep_name": true}

	edits := Plan(idx, g, files, retained, RenamePolicy{Prefix: "pfx_", RenameExclude: []string{"keep_name"}})

	if len(edits[0]) != 0 {
		t.Errorf("expected no edits for a rename-excluded, non-deleted unit, got %+v", edits[0])
	}
}
