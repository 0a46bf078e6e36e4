package sverilog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestPreprocessIfdefSelectsTakenBranch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.sv")
	writeFile(t, path, "`ifdef FOO\nmodule taken; endmodule\n`else\nmodule skipped; endmodule\n`endif\n")

	job := ParseJob{Path: path, Defines: DefineMap{"FOO": ""}}
	res, err := preprocess(job)
	if err != nil {
		t.Fatalf("preprocess: %v", err)
	}

	text := string(res.text)
	if !strings.Contains(text, "taken") {
		t.Errorf("expected taken branch retained, got %q", text)
	}
	if strings.Contains(text, "skipped") {
		t.Errorf("expected untaken branch elided, got %q", text)
	}
}

func TestPreprocessIfndefElseFallsThrough(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.sv")
	writeFile(t, path, "`ifndef FOO\nmodule a; endmodule\n`else\nmodule b; endmodule\n`endif\n")

	job := ParseJob{Path: path, Defines: DefineMap{}}
	res, err := preprocess(job)
	if err != nil {
		t.Fatalf("preprocess: %v", err)
	}
	text := string(res.text)
	if !strings.Contains(text, "module a") || strings.Contains(text, "module b") {
		t.Errorf("ifndef branch selection wrong, got %q", text)
	}
}

func TestPreprocessDefineTrackedButLineKept(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.sv")
	writeFile(t, path, "`define WIDTH 32\nwire [`WIDTH-1:0] x;\n")

	job := ParseJob{Path: path}
	res, err := preprocess(job)
	if err != nil {
		t.Fatalf("preprocess: %v", err)
	}

	text := string(res.text)
	if !strings.Contains(text, "`define WIDTH 32") {
		t.Errorf("expected `define directive line preserved verbatim, got %q", text)
	}
	if !strings.Contains(text, "wire [32-1:0] x;") {
		t.Errorf("expected macro substitution in body, got %q", text)
	}
	if res.definesOut["WIDTH"] != "32" {
		t.Errorf("definesOut[WIDTH] = %q, want 32", res.definesOut["WIDTH"])
	}
}

func TestPreprocessUndefRemovesDefine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.sv")
	writeFile(t, path, "`undef FOO\n")

	job := ParseJob{Path: path, Defines: DefineMap{"FOO": "1"}}
	res, err := preprocess(job)
	if err != nil {
		t.Fatalf("preprocess: %v", err)
	}
	if _, ok := res.definesOut["FOO"]; ok {
		t.Errorf("expected FOO undefined after `undef, definesOut = %v", res.definesOut)
	}
}

func TestPreprocessIncludeExpansion(t *testing.T) {
	dir := t.TempDir()
	incPath := filepath.Join(dir, "inc.svh")
	writeFile(t, incPath, "module included; endmodule\n")

	mainPath := filepath.Join(dir, "main.sv")
	writeFile(t, mainPath, "`include \"inc.svh\"\n")

	job := ParseJob{Path: mainPath}
	res, err := preprocess(job)
	if err != nil {
		t.Fatalf("preprocess: %v", err)
	}
	if !strings.Contains(string(res.text), "module included") {
		t.Errorf("expected included content inlined, got %q", res.text)
	}
}

func TestPreprocessIncludeCycleDetected(t *testing.T) {
	dir := t.TempDir()
	aPath := filepath.Join(dir, "a.svh")
	bPath := filepath.Join(dir, "b.svh")
	writeFile(t, aPath, "`include \"b.svh\"\n")
	writeFile(t, bPath, "`include \"a.svh\"\n")

	job := ParseJob{Path: aPath}
	_, err := preprocess(job)
	if err == nil {
		t.Fatal("expected cycle error, got nil")
	}
}

func TestPreprocessMissingFileIsFatal(t *testing.T) {
	job := ParseJob{Path: filepath.Join(t.TempDir(), "missing.sv")}
	_, err := preprocess(job)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
