package sverilog

import (
	sitter "github.com/smacker/go-tree-sitter"
	tsverilog "github.com/tree-sitter-grammars/tree-sitter-verilog"
)

// language returns the tree-sitter grammar for (System)Verilog, vendored
// under tree-sitter-verilog/bindings/go (spec.md §1's "external SV
// parser").
func language() *sitter.Language {
	return tsverilog.GetLanguage()
}
