// Package tree_sitter_verilog provides the Go binding for the
// tree-sitter-verilog grammar (Verilog and SystemVerilog), vendored here
// following the same bindings/go convention used by every other
// tree-sitter grammar in this ecosystem (see tree-sitter/tree-sitter-vhdl).
package tree_sitter_verilog

// #cgo CFLAGS: -std=c11 -fPIC
// #include "../../src/parser.h"
//
// TSLanguage *tree_sitter_verilog(void);
import "C"

import (
	"unsafe"

	sitter "github.com/smacker/go-tree-sitter"
)

// GetLanguage returns the tree-sitter Language for (System)Verilog.
func GetLanguage() *sitter.Language {
	return sitter.NewLanguage(unsafe.Pointer(C.tree_sitter_verilog()))
}
