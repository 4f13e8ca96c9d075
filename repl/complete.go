package repl

import (
	"sort"
	"strings"

	"github.com/lumenlisp/lumen/lumen"
)

// symbolCompleter implements readline.AutoCompleter by enumerating bindings
// visible in the REPL's global frame; lumen has a single flat namespace, so
// completion needs no package-qualification logic.
type symbolCompleter struct {
	state *lumen.State
}

func (c *symbolCompleter) Do(line []rune, pos int) ([][]rune, int) {
	start := pos
	for start > 0 {
		ch := line[start-1]
		if ch == ' ' || ch == '\t' || ch == '(' || ch == '\n' {
			break
		}
		start--
	}
	prefix := string(line[start:pos])
	if prefix == "" {
		return nil, 0
	}

	candidates := c.collectSymbols(prefix)
	if len(candidates) == 0 {
		return nil, 0
	}

	result := make([][]rune, 0, len(candidates))
	for _, sym := range candidates {
		result = append(result, []rune(sym[len(prefix):]))
	}
	return result, len(prefix)
}

func (c *symbolCompleter) collectSymbols(prefix string) []string {
	var result []string
	for name := range c.state.Global.Scope {
		if strings.HasPrefix(name, prefix) {
			result = append(result, name)
		}
	}
	sort.Strings(result)
	return result
}
