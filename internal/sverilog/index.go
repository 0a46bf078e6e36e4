package sverilog

import (
	"fmt"
	"regexp"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/morty-hdl/morty/internal/diag"
)

// Index is C3's output: every declared design unit and package-scoped
// symbol across all parsed files (spec.md §4.3).
type Index struct {
	Units   []*DesignUnit
	Symbols []*Symbol

	// byName holds the retained (first-seen-wins, see DESIGN.md) unit for
	// each name, across the shared module/interface/package/program/
	// checker keyspace spec.md §3 describes.
	byName map[string]*DesignUnit
}

// Lookup returns the retained DesignUnit for name, if any.
func (idx *Index) Lookup(name string) (*DesignUnit, bool) {
	u, ok := idx.byName[name]
	return u, ok
}

var endLabelPattern = regexp.MustCompile(`:\s*(\w+)`)

// IndexFiles walks every parsed file's CST and builds the declaration
// index (C3). Grounded on internal/extractor.Extractor.walkTree's
// node-type switch plus recursive descent, and
// internal/indexer.registerSymbolsForFacts's duplicate bookkeeping.
// Files must already be in job-index order (as ParseAll returns them) so
// "first declared" is well defined.
func IndexFiles(files []ParsedFile, d *diag.Collector) *Index {
	idx := &Index{byName: make(map[string]*DesignUnit)}

	for fileID := range files {
		indexFile(fileID, &files[fileID], idx, d)
	}

	return idx
}

func indexFile(fileID int, pf *ParsedFile, idx *Index, d *diag.Collector) {
	if pf.Tree == nil {
		return
	}
	source := pf.PreprocessedText

	var walk func(n *sitter.Node, inPackage string)
	walk = func(n *sitter.Node, inPackage string) {
		if n == nil {
			return
		}

		switch n.Type() {
		case nodeModuleDecl:
			addUnit(n, KindModule, fileID, pf, source, idx, d)
		case nodeInterfaceDecl:
			addUnit(n, KindInterface, fileID, pf, source, idx, d)
		case nodeProgramDecl:
			addUnit(n, KindProgram, fileID, pf, source, idx, d)
		case nodeCheckerDecl:
			addUnit(n, KindChecker, fileID, pf, source, idx, d)
		case nodePackageDecl:
			u := addUnit(n, KindPackage, fileID, pf, source, idx, d)
			pkgName := ""
			if u != nil {
				pkgName = u.Name
			}
			for i := 0; i < int(n.ChildCount()); i++ {
				walk(n.Child(i), pkgName)
			}
			return
		case nodeTypedefDecl:
			addSymbol(n, SymbolType, inPackage, fileID, source, idx)
		case nodeConstDecl:
			addSymbol(n, SymbolConst, inPackage, fileID, source, idx)
		case nodeFunctionDecl:
			addSymbol(n, SymbolFunction, inPackage, fileID, source, idx)
		case nodeTaskDecl:
			addSymbol(n, SymbolTask, inPackage, fileID, source, idx)
		case nodeNetDecl:
			addSymbol(n, SymbolNet, inPackage, fileID, source, idx)
		case nodeModportDecl:
			addSymbol(n, SymbolModport, inPackage, fileID, source, idx)
		}

		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i), inPackage)
		}
	}

	walk(pf.Tree.RootNode(), "")
}

func addUnit(n *sitter.Node, kind UnitKind, fileID int, pf *ParsedFile, source []byte, idx *Index, d *diag.Collector) *DesignUnit {
	nameNode := n.ChildByFieldName(fieldName)
	if nameNode == nil {
		return nil
	}

	u := &DesignUnit{
		Name:          nameNode.Content(source),
		Kind:          kind,
		FileID:        fileID,
		Path:          pf.Job.Path,
		OuterSpan:     Span{int(n.StartByte()), int(n.EndByte())},
		NameSpan:      Span{int(nameNode.StartByte()), int(nameNode.EndByte())},
		IsLibraryOnly: pf.Job.IsLibrary,
	}

	if span, ok := findEndLabel(n, kind, source); ok {
		u.EndLabelSpan = span
		u.HasEndLabel = true
	}

	idx.Units = append(idx.Units, u)
	registerRetained(u, idx, d)
	return u
}

// registerRetained applies the duplicate-name policy pinned in DESIGN.md:
// first non-library declaration wins; a library declaration never
// conflicts with (and is superseded by) a non-library one of the same
// name; two non-library declarations of the same name are a genuine
// conflict and the first-seen is retained with a warning.
func registerRetained(u *DesignUnit, idx *Index, d *diag.Collector) {
	existing, ok := idx.byName[u.Name]
	if !ok {
		idx.byName[u.Name] = u
		return
	}

	switch {
	case existing.IsLibraryOnly && !u.IsLibraryOnly:
		idx.byName[u.Name] = u
	case u.IsLibraryOnly:
		// library declaration never displaces a retained non-library one
	default:
		d.Add(diag.Diagnostic{
			Severity: diag.Warning,
			Kind:     diag.KindConflict,
			File:     u.Path,
			Message: fmt.Sprintf("duplicate declaration of %q (%s), first declared in %s; first declaration retained",
				u.Name, u.Kind, existing.Path),
		})
	}
}

func addSymbol(n *sitter.Node, kind SymbolKind, inPackage string, fileID int, source []byte, idx *Index) {
	if inPackage == "" {
		return
	}
	nameNode := n.ChildByFieldName(fieldName)
	if nameNode == nil {
		return
	}
	idx.Symbols = append(idx.Symbols, &Symbol{
		Qualifier: inPackage,
		Name:      nameNode.Content(source),
		Kind:      kind,
		FileID:    fileID,
		Span:      Span{int(nameNode.StartByte()), int(nameNode.EndByte())},
	})
}

// findEndLabel locates the "identifier" of a trailing "endmodule : name"
// (spec.md §4.3). Scanned textually over the unit's own already-delimited
// outer span rather than via a grammar field, since end-label placement
// varies across grammar revisions; the span returned is absolute into
// source.
func findEndLabel(n *sitter.Node, kind UnitKind, source []byte) (Span, bool) {
	kw := kind.endKeyword()
	if kw == "" {
		return Span{}, false
	}
	text := n.Content(source)
	idx := lastIndex(text, kw)
	if idx < 0 {
		return Span{}, false
	}
	rest := text[idx+len(kw):]
	loc := endLabelPattern.FindStringSubmatchIndex(rest)
	if loc == nil {
		return Span{}, false
	}
	base := int(n.StartByte()) + idx + len(kw)
	return Span{base + loc[2], base + loc[3]}, true
}

func lastIndex(s, substr string) int {
	last := -1
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			last = i
		}
	}
	return last
}

