package sverilog

import (
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// RenamePolicy configures C6 (spec.md §4.6, §6).
type RenamePolicy struct {
	Prefix        string
	Suffix        string
	RenameExclude []string // retained but never renamed
	StripComments bool
	KeepDefines   bool
	KeepTimescale bool
}

// Edit is a single planned byte-range replacement in one file's
// preprocessed text (spec.md §3).
type Edit struct {
	FileID      int
	Span        Span
	Replacement string
}

// Plan computes, per file, the sorted list of non-overlapping Edits that
// implement deletion (from C5's retained set), renaming, and stripping
// (C6). Built fresh in the teacher's idiom (plain structs plus a slice of
// edits, sorted and conflict-resolved in one pass) since the teacher has
// no byte-range-edit concept of its own; grounded directly on spec.md
// §4.6's priority rules. rename_test.go exercises it on hand-built
// indexes (declaration and usage renames, deletion, rename exclusion).
func Plan(idx *Index, g *UsageGraph, files []ParsedFile, retained map[string]bool, policy RenamePolicy) [][]Edit {
	excludeRename := toSet(policy.RenameExclude)

	byFile := make([][]Edit, len(files))
	deletedSpans := make([][]Span, len(files))

	// Rule: deletion for pruned-out units, and for every duplicate
	// declaration that lost the duplicate-name policy of registerRetained.
	for _, u := range idx.Units {
		if winner, _ := idx.Lookup(u.Name); retained[u.Name] && winner == u {
			continue
		}
		byFile[u.FileID] = append(byFile[u.FileID], Edit{FileID: u.FileID, Span: u.OuterSpan, Replacement: ""})
		deletedSpans[u.FileID] = append(deletedSpans[u.FileID], u.OuterSpan)
	}

	// Rule 2: rename the declaration (and its end-label) for every
	// retained, non-excluded unit.
	renamedName := func(name string) (string, bool) {
		u, ok := idx.Lookup(name)
		if !ok || !retained[name] || excludeRename[name] {
			return "", false
		}
		return policy.Prefix + u.Name + policy.Suffix, true
	}

	for _, u := range idx.Units {
		if !retained[u.Name] || excludeRename[u.Name] {
			continue
		}
		newName := policy.Prefix + u.Name + policy.Suffix
		byFile[u.FileID] = append(byFile[u.FileID], Edit{FileID: u.FileID, Span: u.NameSpan, Replacement: newName})
		if u.HasEndLabel {
			byFile[u.FileID] = append(byFile[u.FileID], Edit{FileID: u.FileID, Span: u.EndLabelSpan, Replacement: newName})
		}
	}

	// Rule 3: rename at usage sites whose resolved target is renamed.
	for _, u := range g.Usages {
		newName, ok := renamedName(u.Target.Name)
		if !ok {
			continue
		}
		byFile[u.FileID] = append(byFile[u.FileID], Edit{FileID: u.FileID, Span: u.Span, Replacement: newName})
	}

	// Rule 4: comment stripping.
	if policy.StripComments {
		for fileID := range files {
			for _, span := range findStrippableComments(&files[fileID]) {
				byFile[fileID] = append(byFile[fileID], Edit{FileID: fileID, Span: span, Replacement: ""})
			}
		}
	}

	// Rule 5: define & timescale stripping, enabled by default.
	for fileID := range files {
		for _, span := range findDirectiveSpans(&files[fileID], policy.KeepDefines, policy.KeepTimescale) {
			byFile[fileID] = append(byFile[fileID], Edit{FileID: fileID, Span: span, Replacement: ""})
		}
	}

	// Rule 6: sort and resolve conflicts per file.
	for fileID := range byFile {
		byFile[fileID] = resolveConflicts(byFile[fileID], deletedSpans[fileID])
	}

	return byFile
}

// resolveConflicts sorts edits by start offset, drops rename/strip edits
// strictly contained in a deletion (rule 1: deletion dominates), and
// collapses any duplicate deletion span produced by overlapping rules.
func resolveConflicts(edits []Edit, deletions []Span) []Edit {
	sort.SliceStable(edits, func(i, j int) bool {
		if edits[i].Span.Start != edits[j].Span.Start {
			return edits[i].Span.Start < edits[j].Span.Start
		}
		return edits[i].Span.End < edits[j].Span.End
	})

	out := make([]Edit, 0, len(edits))
	seen := make(map[Span]bool)
	for _, e := range edits {
		if seen[e.Span] {
			continue
		}
		if !isDeletionSpan(e.Span, deletions) && insideAnyDeletion(e.Span, deletions) {
			continue
		}
		seen[e.Span] = true
		out = append(out, e)
	}

	return out
}

func insideAnyDeletion(s Span, deletions []Span) bool {
	for _, d := range deletions {
		if d == s {
			continue // the deletion itself, not a nested edit
		}
		if d.Contains(s) {
			return true
		}
	}
	return false
}

func isDeletionSpan(s Span, deletions []Span) bool {
	for _, d := range deletions {
		if d == s {
			return true
		}
	}
	return false
}

// findStrippableComments returns the spans of every comment CST node
// whose text does not begin with the "////" (or "/***") four-slash
// documentation marker, and does not begin with "///" or "//!" (spec.md
// §4.6.4).
func findStrippableComments(pf *ParsedFile) []Span {
	if pf.Tree == nil {
		return nil
	}
	source := pf.PreprocessedText
	var spans []Span

	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == nodeComment {
			text := n.Content(source)
			if isStrippableComment(text) {
				spans = append(spans, Span{int(n.StartByte()), int(n.EndByte())})
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i))
		}
	}
	visit(pf.Tree.RootNode())

	return spans
}

// isStrippableComment implements spec.md §4.6.4's four-slash / doc-comment
// retention rule.
func isStrippableComment(text string) bool {
	switch {
	case strings.HasPrefix(text, "////"):
		return false
	case strings.HasPrefix(text, "/***"):
		return false
	case strings.HasPrefix(text, "///"):
		return false
	case strings.HasPrefix(text, "//!"):
		return false
	default:
		return true
	}
}

// findDirectiveSpans returns the spans of `define/`undef/`timescale/
// timeunit/timeprecision directive nodes to delete, honoring
// --keep-defines and --keep-timescale.
func findDirectiveSpans(pf *ParsedFile, keepDefines, keepTimescale bool) []Span {
	if pf.Tree == nil {
		return nil
	}
	var spans []Span

	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n == nil {
			return
		}
		switch n.Type() {
		case nodeDefineDirective, nodeUndefDirective:
			if !keepDefines {
				spans = append(spans, Span{int(n.StartByte()), int(n.EndByte())})
			}
		case nodeTimescaleDirective, nodeTimeunitDecl:
			if !keepTimescale {
				spans = append(spans, Span{int(n.StartByte()), int(n.EndByte())})
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i))
		}
	}
	visit(pf.Tree.RootNode())

	return spans
}
