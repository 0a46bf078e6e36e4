package sverilog

import (
	"bufio"
	"io"
	"strings"
)

// ParseFlist reads the whitespace-separated flist format of spec.md §6:
// `+incdir+DIR` adds an include dir, `+define+NAME[=VAL]` adds a define,
// any other token is a file path. A plain field scan rather than
// regex-per-construct, since the flist grammar is token-shaped rather
// than line-shaped.
func ParseFlist(r io.Reader) (Bundle, error) {
	b := Bundle{Defines: DefineMap{}}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		for _, tok := range strings.Fields(line) {
			switch {
			case strings.HasPrefix(tok, "+incdir+"):
				dir := strings.TrimPrefix(tok, "+incdir+")
				if dir != "" {
					b.IncludeDirs = append(b.IncludeDirs, dir)
				}
			case strings.HasPrefix(tok, "+define+"):
				def := strings.TrimPrefix(tok, "+define+")
				name, value, _ := strings.Cut(def, "=")
				if name != "" {
					b.Defines[name] = value
				}
			case tok == "":
				// skip
			default:
				b.Files = append(b.Files, tok)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return Bundle{}, err
	}
	return b, nil
}
