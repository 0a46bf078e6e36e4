package sverilog

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// preprocessResult is the output of preprocessing a single job: the exact
// byte sequence the grammar parses (spec.md §3 "Preprocessed text") and
// the defines visible at EOF (spec.md's ParsedFile.defines_out).
type preprocessResult struct {
	text       []byte
	definesOut DefineMap
}

var (
	reInclude  = regexp.MustCompile("^\\s*`include\\s+[\"<]([^\">]+)[\">]")
	reDefine   = regexp.MustCompile("^\\s*`define\\s+(\\w+)(?:\\(([^)]*)\\))?\\s?(.*)$")
	reUndef    = regexp.MustCompile("^\\s*`undef\\s+(\\w+)")
	reIfdef    = regexp.MustCompile("^\\s*`ifdef\\s+(\\w+)")
	reIfndef   = regexp.MustCompile("^\\s*`ifndef\\s+(\\w+)")
	reElsif    = regexp.MustCompile("^\\s*`elsif\\s+(\\w+)")
	reElse     = regexp.MustCompile("^\\s*`else\\b")
	reEndif    = regexp.MustCompile("^\\s*`endif\\b")
	reMacroUse = regexp.MustCompile("`(\\w+)")
)

type condFrame struct {
	taken     bool // whether the opening `ifdef/`ifndef branch was active; set once on push
	active    bool // this exact branch is currently emitting text
	sawTruthy bool // some sibling branch of this if/elsif/else chain already fired
}

// preprocess implements C2's preprocessing responsibility: `include
// expansion, `ifdef/`ifndef/`elsif/`else/`endif branch selection, and
// object-like `define/`undef macro substitution. Directive lines for
// `define, `undef, `timescale, timeunit, and timeprecision are preserved
// verbatim in the output text (rather than consumed) so the Rename
// Planner (C6) can locate and, if requested, strip them at CST-node
// granularity per spec.md §4.6.5. `ifdef control
// directives themselves are elided along with their untaken branches,
// mirroring a conventional preprocessor's line-oriented behavior.
func preprocess(job ParseJob) (preprocessResult, error) {
	defines := job.Defines.Clone()
	var out bytes.Buffer
	var stack []condFrame
	seenIncludes := map[string]bool{job.Path: true}

	var run func(path string, r *bufio.Scanner) error
	run = func(path string, r *bufio.Scanner) error {
		for r.Scan() {
			line := r.Text()
			trimmed := strings.TrimLeft(line, " \t")

			switch {
			case strings.HasPrefix(trimmed, "`ifdef"):
				m := reIfdef.FindStringSubmatch(line)
				cond := len(m) > 0
				_, defined := defines[safeGroup(m, 1)]
				active := activeBranch(stack) && cond && defined
				stack = append(stack, condFrame{taken: active, active: active, sawTruthy: active})
				continue
			case strings.HasPrefix(trimmed, "`ifndef"):
				m := reIfndef.FindStringSubmatch(line)
				_, defined := defines[safeGroup(m, 1)]
				active := activeBranch(stack) && !defined
				stack = append(stack, condFrame{taken: active, active: active, sawTruthy: active})
				continue
			case strings.HasPrefix(trimmed, "`elsif"):
				if len(stack) == 0 {
					return fmt.Errorf("%s: `elsif without matching `ifdef", path)
				}
				top := &stack[len(stack)-1]
				m := reElsif.FindStringSubmatch(line)
				_, defined := defines[safeGroup(m, 1)]
				parentActive := activeBranch(stack[:len(stack)-1])
				top.active = parentActive && !top.sawTruthy && defined
				if top.active {
					top.sawTruthy = true
				}
				continue
			case strings.HasPrefix(trimmed, "`else"):
				if len(stack) == 0 {
					return fmt.Errorf("%s: `else without matching `ifdef", path)
				}
				top := &stack[len(stack)-1]
				parentActive := activeBranch(stack[:len(stack)-1])
				top.active = parentActive && !top.sawTruthy
				continue
			case strings.HasPrefix(trimmed, "`endif"):
				if len(stack) == 0 {
					return fmt.Errorf("%s: `endif without matching `ifdef", path)
				}
				stack = stack[:len(stack)-1]
				continue
			}

			if !activeBranch(stack) {
				continue
			}

			switch {
			case strings.HasPrefix(trimmed, "`include"):
				m := reInclude.FindStringSubmatch(line)
				if m == nil {
					out.WriteString(line)
					out.WriteByte('\n')
					continue
				}
				incPath, content, err := resolveInclude(m[1], job.IncludeDirs, path)
				if err != nil {
					return err
				}
				if seenIncludes[incPath] {
					return fmt.Errorf("`include cycle detected at %s", incPath)
				}
				seenIncludes[incPath] = true
				incScanner := bufio.NewScanner(bytes.NewReader(content))
				incScanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
				if err := run(incPath, incScanner); err != nil {
					return err
				}
				delete(seenIncludes, incPath)
				continue

			case strings.HasPrefix(trimmed, "`define"):
				m := reDefine.FindStringSubmatch(line)
				if m != nil {
					defines[m[1]] = strings.TrimSpace(m[3])
				}
				out.WriteString(line)
				out.WriteByte('\n')
				continue

			case strings.HasPrefix(trimmed, "`undef"):
				m := reUndef.FindStringSubmatch(line)
				if m != nil {
					delete(defines, m[1])
				}
				out.WriteString(line)
				out.WriteByte('\n')
				continue

			case strings.HasPrefix(trimmed, "`timescale"),
				strings.HasPrefix(trimmed, "timeunit"),
				strings.HasPrefix(trimmed, "timeprecision"):
				out.WriteString(line)
				out.WriteByte('\n')
				continue
			}

			out.WriteString(substituteMacros(line, defines))
			out.WriteByte('\n')
		}
		return r.Err()
	}

	rootContent, err := os.ReadFile(job.Path)
	if err != nil {
		return preprocessResult{}, fmt.Errorf("reading %s: %w", job.Path, err)
	}
	initial := bufio.NewScanner(bytes.NewReader(rootContent))
	initial.Buffer(make([]byte, 0, 64*1024), 1<<20)
	if err := run(job.Path, initial); err != nil {
		return preprocessResult{}, err
	}
	if len(stack) != 0 {
		return preprocessResult{}, fmt.Errorf("%s: unterminated `ifdef/`ifndef", job.Path)
	}

	return preprocessResult{text: out.Bytes(), definesOut: defines}, nil
}

func activeBranch(stack []condFrame) bool {
	for _, f := range stack {
		if !f.active {
			return false
		}
	}
	return true
}

func safeGroup(m []string, i int) string {
	if len(m) > i {
		return m[i]
	}
	return ""
}

// substituteMacros replaces object-like `NAME uses with their defined
// text. Function-like macro invocation with arguments is out of scope
// (spec.md §1 Non-goals: "Macro expansion beyond what the underlying
// preprocessor already performs").
func substituteMacros(line string, defines DefineMap) string {
	return reMacroUse.ReplaceAllStringFunc(line, func(tok string) string {
		name := tok[1:]
		if v, ok := defines[name]; ok {
			return v
		}
		return tok
	})
}

func resolveInclude(name string, includeDirs []string, fromFile string) (string, []byte, error) {
	candidates := []string{filepath.Join(filepath.Dir(fromFile), name)}
	for _, dir := range includeDirs {
		candidates = append(candidates, filepath.Join(dir, name))
	}
	for _, c := range candidates {
		if content, err := os.ReadFile(c); err == nil {
			return c, content, nil
		}
	}
	return "", nil, fmt.Errorf("`include %q: not found in %v", name, includeDirs)
}
