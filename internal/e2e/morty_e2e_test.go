// Package e2e pickles a small fixture bundle through the full pipeline
// and checks the emitted text, rather than unit-testing a single stage.
package e2e

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/morty-hdl/morty/internal/diag"
	"github.com/morty-hdl/morty/internal/sverilog"
)

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", name, err)
	}
	return path
}

// TestPickleTopModulePruneAndRename exercises C1-C7 together: under
// --top-module, the leaf the top module instantiates is kept, a module
// nothing instantiates must be dropped, and every retained
// declaration/usage must carry the configured prefix.
func TestPickleTopModulePruneAndRename(t *testing.T) {
	dir := t.TempDir()

	topPath := writeFixture(t, dir, "top.sv", strings.Join([]string{
		"module top;",
		"  leaf u_leaf();",
		"endmodule",
		"",
	}, "\n"))

	leafPath := writeFixture(t, dir, "leaf.sv", strings.Join([]string{
		"module leaf;",
		"endmodule",
		"",
	}, "\n"))

	unusedPath := writeFixture(t, dir, "unused.sv", strings.Join([]string{
		"module unused;",
		"endmodule",
		"",
	}, "\n"))

	bundles := []sverilog.Bundle{{
		Files: []string{topPath, leafPath, unusedPath},
	}}

	opts := sverilog.Options{
		Prune: sverilog.PruneOptions{TopModule: "top"},
		Rename: sverilog.RenamePolicy{
			Prefix: "pfx_",
		},
		Emit: sverilog.EmitOptions{
			Version:      "test",
			Now:          "1970-01-01T00:00:00Z",
			NoProvenance: true,
		},
	}

	d := diag.New()
	var out bytes.Buffer
	if _, err := sverilog.Run(bundles, opts, d, &out); err != nil {
		t.Fatalf("Run: %v", err)
	}

	text := out.String()
	if !strings.Contains(text, "module pfx_top") {
		t.Errorf("expected renamed top declaration, got %q", text)
	}
	if !strings.Contains(text, "pfx_leaf") {
		t.Errorf("expected renamed leaf instance/declaration, got %q", text)
	}
	if strings.Contains(text, "unused") {
		t.Errorf("expected unused module pruned away entirely, got %q", text)
	}
}

// TestPickleLibraryNotEmittedUnlessReferenced covers spec.md §3's "Library
// jobs contribute declarations but no emitted text unless referenced" with
// no --top-module configured: an unreferenced library module must not
// appear in the output at all, while one instantiated from a main file
// must be pulled in and renamed like any other retained unit.
func TestPickleLibraryNotEmittedUnlessReferenced(t *testing.T) {
	dir := t.TempDir()

	topPath := writeFixture(t, dir, "top.sv", strings.Join([]string{
		"module top;",
		"  used u_used();",
		"endmodule",
		"",
	}, "\n"))

	usedLibPath := writeFixture(t, dir, "used.sv", strings.Join([]string{
		"module used;",
		"endmodule",
		"",
	}, "\n"))

	unusedLibPath := writeFixture(t, dir, "unused_lib.sv", strings.Join([]string{
		"module unused_lib;",
		"endmodule",
		"",
	}, "\n"))

	bundles := []sverilog.Bundle{{
		Files:        []string{topPath},
		LibraryFiles: []string{usedLibPath, unusedLibPath},
	}}

	opts := sverilog.Options{
		Rename: sverilog.RenamePolicy{
			Prefix: "pfx_",
		},
		Emit: sverilog.EmitOptions{
			Version:      "test",
			Now:          "1970-01-01T00:00:00Z",
			NoProvenance: true,
		},
	}

	d := diag.New()
	var out bytes.Buffer
	if _, err := sverilog.Run(bundles, opts, d, &out); err != nil {
		t.Fatalf("Run: %v", err)
	}

	text := out.String()
	if !strings.Contains(text, "module pfx_top") {
		t.Errorf("expected renamed top declaration, got %q", text)
	}
	if !strings.Contains(text, "pfx_used") {
		t.Errorf("expected referenced library module pulled in and renamed, got %q", text)
	}
	if strings.Contains(text, "unused_lib") {
		t.Errorf("expected unreferenced library module never emitted, got %q", text)
	}
}
