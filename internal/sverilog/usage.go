package sverilog

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/morty-hdl/morty/internal/diag"
)

// UsageTargetKind classifies a Usage's target (spec.md §3).
type UsageTargetKind int

const (
	TargetModuleInst UsageTargetKind = iota
	TargetInterfacePort
	TargetPackageRef
	TargetImportItem
	TargetImportWildcard
	TargetEndLabel
	TargetParamType
)

// UsageTarget names what a Usage refers to.
type UsageTarget struct {
	Kind         UsageTargetKind
	Name         string // module/interface/package name
	ModportName  string // set only for TargetInterfacePort with a modport
}

// Usage is a single occurrence of a name that may need renaming
// (spec.md §3).
type Usage struct {
	FileID int
	Span   Span
	Target UsageTarget

	// Owner is the name of the DesignUnit whose outer span encloses this
	// usage, "" if none (file-root import). Used to defer
	// undefined-target diagnostics until after pruning: a usage whose
	// Owner was pruned away must never surface a warning (spec.md §8,
	// scenario S6).
	Owner string
}

// UsageGraph is the directed multigraph of spec.md §3: nodes are
// DesignUnit names, edges are ModuleInst/InterfacePort usages plus import
// edges into packages. Self-edges and parallel edges are preserved.
type UsageGraph struct {
	Usages []Usage

	// Unresolved records module/interface/checker instantiations whose
	// type name never resolved to a DesignUnit. Diagnostics for these
	// are deferred until after pruning (see Owner on Usage) so a pruned
	// unit's own undefined references never surface (spec.md §8, S6).
	Unresolved []UnresolvedInstance

	// edges[from] lists every name directly reachable from "from" by
	// following a ModuleInst, InterfacePort, PackageRef, ImportItem,
	// ImportWildcard, or ParamType usage recorded while walking that
	// unit's own outer span.
	edges map[string][]string
}

// UnresolvedInstance is an instantiation whose type name has no matching
// DesignUnit (spec.md §4.4 "undefined instantiation").
type UnresolvedInstance struct {
	FileID int
	Path   string
	Line   int
	Column int
	Owner  string
	Name   string
}

// Reachable exposes the adjacency used by the Top-Module Pruner (C5).
func (g *UsageGraph) Reachable(from string) []string {
	return g.edges[from]
}

// BuildUsages walks every parsed file's CST collecting Usages and the
// unit-to-unit adjacency used for pruning (C4, spec.md §4.4). It never
// reports diagnostics itself: undefined-instantiation warnings are
// deferred until after C5 prunes the design, via g.Unresolved (see
// ReportUnresolved). The adjacency map holds forward Usage/UsageTarget
// edges (spec.md §3): a unit points at what it instantiates or imports,
// not the reverse.
func BuildUsages(files []ParsedFile, idx *Index) *UsageGraph {
	g := &UsageGraph{edges: make(map[string][]string)}

	for fileID := range files {
		buildFileUsages(fileID, &files[fileID], idx, g)
	}

	// End-labels: one Usage per DesignUnit that has one, per spec.md's
	// invariant "For every EndLabel(u) usage there exists a DesignUnit
	// named u whose outer span strictly contains the end-label span."
	for _, u := range idx.Units {
		if !u.HasEndLabel {
			continue
		}
		g.Usages = append(g.Usages, Usage{
			FileID: u.FileID,
			Span:   u.EndLabelSpan,
			Target: UsageTarget{Kind: TargetEndLabel, Name: u.Name},
			Owner:  u.Name,
		})
	}

	return g
}

// ReportUnresolved adds a warning diagnostic for every unresolved
// instantiation whose owning unit survived pruning (spec.md §8, S6: a
// pruned unit's own undefined references never surface).
func ReportUnresolved(g *UsageGraph, retained map[string]bool, d *diag.Collector) {
	for _, u := range g.Unresolved {
		if u.Owner != "" && !retained[u.Owner] {
			continue
		}
		d.Add(diag.Diagnostic{
			Severity: diag.Warning,
			Kind:     diag.KindResolve,
			File:     u.Path,
			Line:     u.Line,
			Column:   u.Column,
			Message:  fmt.Sprintf("instantiation of undefined module/interface/checker %q", u.Name),
		})
	}
}

func buildFileUsages(fileID int, pf *ParsedFile, idx *Index, g *UsageGraph) {
	if pf.Tree == nil {
		return
	}
	source := pf.PreprocessedText
	path := pf.Job.Path

	// Global `import pkg::*;` at file root acts as an ambient scope
	// applied to every subsequent unit in the file (spec.md §4.4, §9).
	var globalImports []string
	enclosingUnit := ""

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}

		switch n.Type() {
		case nodeModuleDecl, nodeInterfaceDecl, nodeProgramDecl, nodeCheckerDecl, nodePackageDecl:
			prevUnit := enclosingUnit
			if nameNode := n.ChildByFieldName(fieldName); nameNode != nil {
				enclosingUnit = nameNode.Content(source)
				for _, pkg := range globalImports {
					addEdge(g, enclosingUnit, pkg)
				}
			}
			for i := 0; i < int(n.ChildCount()); i++ {
				walk(n.Child(i))
			}
			enclosingUnit = prevUnit
			return

		case nodeModuleInstantiation:
			handleModuleInstantiation(n, fileID, path, source, idx, g, enclosingUnit)

		case nodeInterfacePortHeader:
			handleInterfacePort(n, fileID, source, idx, g, enclosingUnit)

		case nodeImportDecl:
			handleImportDecl(n, fileID, source, g, enclosingUnit, &globalImports, enclosingUnit == "")

		case nodePackageScope:
			handlePackageScope(n, fileID, source, idx, g, enclosingUnit)
		}

		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}

	walk(pf.Tree.RootNode())
}

func addEdge(g *UsageGraph, from, to string) {
	if from == "" || to == "" {
		return
	}
	g.edges[from] = append(g.edges[from], to)
}

func handleModuleInstantiation(n *sitter.Node, fileID int, path string, source []byte, idx *Index, g *UsageGraph, enclosingUnit string) {
	typeNode := n.ChildByFieldName(fieldInstanceType)
	if typeNode == nil {
		return
	}
	name := typeNode.Content(source)

	if _, ok := idx.Lookup(name); !ok {
		g.Unresolved = append(g.Unresolved, UnresolvedInstance{
			FileID: fileID,
			Path:   path,
			Line:   int(typeNode.StartPoint().Row) + 1,
			Column: int(typeNode.StartPoint().Column) + 1,
			Owner:  enclosingUnit,
			Name:   name,
		})
		return
	}

	g.Usages = append(g.Usages, Usage{
		FileID: fileID,
		Span:   Span{int(typeNode.StartByte()), int(typeNode.EndByte())},
		Target: UsageTarget{Kind: TargetModuleInst, Name: name},
		Owner:  enclosingUnit,
	})
	addEdge(g, enclosingUnit, name)
}

func handleInterfacePort(n *sitter.Node, fileID int, source []byte, idx *Index, g *UsageGraph, enclosingUnit string) {
	ifaceNode := n.ChildByFieldName(fieldInterfaceName)
	if ifaceNode == nil {
		return
	}
	name := ifaceNode.Content(source)
	modport := ""
	if mp := n.ChildByFieldName(fieldModportName); mp != nil {
		modport = mp.Content(source)
	}

	g.Usages = append(g.Usages, Usage{
		FileID: fileID,
		Span:   Span{int(ifaceNode.StartByte()), int(ifaceNode.EndByte())},
		Target: UsageTarget{Kind: TargetInterfacePort, Name: name, ModportName: modport},
		Owner:  enclosingUnit,
	})
	addEdge(g, enclosingUnit, name)
}

func handleImportDecl(n *sitter.Node, fileID int, source []byte, g *UsageGraph, enclosingUnit string, globalImports *[]string, atFileRoot bool) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		item := n.NamedChild(i)
		if item.Type() != nodeImportItem {
			continue
		}
		pkgNode := item.ChildByFieldName(fieldPackage)
		if pkgNode == nil {
			continue
		}
		pkgName := pkgNode.Content(source)
		span := Span{int(pkgNode.StartByte()), int(pkgNode.EndByte())}

		wildcard := true
		if member := item.ChildByFieldName(fieldItem); member != nil {
			wildcard = false
		}

		kind := TargetImportWildcard
		if !wildcard {
			kind = TargetImportItem
		}

		g.Usages = append(g.Usages, Usage{
			FileID: fileID,
			Span:   span,
			Target: UsageTarget{Kind: kind, Name: pkgName},
			Owner:  enclosingUnit,
		})
		addEdge(g, enclosingUnit, pkgName)

		if atFileRoot {
			*globalImports = append(*globalImports, pkgName)
		}
	}
}

func handlePackageScope(n *sitter.Node, fileID int, source []byte, idx *Index, g *UsageGraph, enclosingUnit string) {
	pkgNode := n.ChildByFieldName(fieldPackage)
	if pkgNode == nil {
		pkgNode = n.NamedChild(0)
	}
	if pkgNode == nil {
		return
	}
	pkgName := pkgNode.Content(source)
	span := Span{int(pkgNode.StartByte()), int(pkgNode.EndByte())}

	kind := TargetPackageRef
	if inParameterDecl(n) {
		kind = TargetParamType
	}

	g.Usages = append(g.Usages, Usage{
		FileID: fileID,
		Span:   span,
		Target: UsageTarget{Kind: kind, Name: pkgName},
		Owner:  enclosingUnit,
	})
	addEdge(g, enclosingUnit, pkgName)
}

// inParameterDecl reports whether n sits inside a parameter declaration,
// distinguishing spec.md's ParamType(pkg) usage from a plain PackageRef.
func inParameterDecl(n *sitter.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Type() == nodeParamDecl || p.Type() == nodeParamPortDecl {
			return true
		}
	}
	return false
}
