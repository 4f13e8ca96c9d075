package lumen

import (
	"strconv"
	"strings"
	"unicode"
)

// reader is a recursive-descent parser over a single source string,
// tracking line/column for every form it produces so diagnostics can point
// at the exact offending token. Grounded on the original's parse_at: the
// same delimiter set, the same dotted-tail convention (a bare `.` symbol
// splices the following expression in as the list's final cdr), the same
// quote/quasiquote/unquote abbreviations each stamped at the abbreviation's
// own location, and the same "nil" literal recognition.
type reader struct {
	s    *State
	src  string
	pos  int
	line int
	col  int
	name string
}

func isDelim(c byte) bool {
	return unicode.IsSpace(rune(c)) || c == '(' || c == ')' || c == '\'' || c == '"' || c == ';' || c == '`' || c == ','
}

func (r *reader) advance() {
	if r.pos >= len(r.src) {
		return
	}
	c := r.src[r.pos]
	r.pos++
	if c == '\n' {
		r.line++
		r.col = 1
	} else {
		r.col++
	}
}

func (r *reader) skipWSAndComments() {
	for r.pos < len(r.src) {
		c := r.src[r.pos]
		if unicode.IsSpace(rune(c)) {
			r.advance()
			continue
		}
		if c == ';' {
			for r.pos < len(r.src) && r.src[r.pos] != '\n' {
				r.advance()
			}
			continue
		}
		break
	}
}

func (r *reader) parseError(line, col int, msg string) *LumenError {
	return &LumenError{Message: msg, Loc: SourceLoc{File: r.name, Line: line, Col: col}, HasLoc: true}
}

// parseOne reads the next form, or returns (Nil, false) at EOF.
func (r *reader) parseOne() (Value, bool) {
	r.skipWSAndComments()
	if r.pos >= len(r.src) {
		return Nil, false
	}
	c := r.src[r.pos]
	switch {
	case c == ')':
		panic(r.parseError(r.line, r.col, "unexpected )"))
	case c == '(':
		return r.parseList(), true
	case c == '\'':
		return r.parseAbbrev("quote"), true
	case c == '`':
		return r.parseAbbrev("quasiquote"), true
	case c == ',':
		return r.parseAbbrev("unquote"), true
	case c == '"':
		return r.parseString(), true
	default:
		return r.parseAtom(), true
	}
}

func (r *reader) parseAbbrev(sym string) Value {
	qline, qcol := r.line, r.col
	r.advance()
	inner, ok := r.parseOne()
	if !ok {
		panic(r.parseError(qline, qcol, "unexpected EOF after "+sym+" abbreviation"))
	}
	res := r.s.ListOf(r.s.Intern(sym), inner)
	r.s.SetSourceLoc(res, SourceLoc{File: r.name, Line: qline, Col: qcol})
	return res
}

func (r *reader) parseList() Value {
	openLine, openCol := r.line, r.col
	r.advance() // '('

	head := Nil
	last := &head
	closed := false
	for {
		r.skipWSAndComments()
		if r.pos >= len(r.src) {
			break
		}
		if r.src[r.pos] == ')' {
			r.advance()
			closed = true
			break
		}
		elem, ok := r.parseOne()
		if !ok {
			break
		}
		if !elem.IsNumber() && elem.Type() == TagSymbol && r.s.SymbolName(elem) == "." {
			r.skipWSAndComments()
			if r.pos >= len(r.src) {
				panic(r.parseError(openLine, openCol, "unexpected EOF after . in list"))
			}
			tail, ok := r.parseOne()
			if !ok {
				panic(r.parseError(openLine, openCol, "unexpected EOF after . in list"))
			}
			*last = tail
			r.skipWSAndComments()
			if r.pos >= len(r.src) || r.src[r.pos] != ')' {
				panic(r.parseError(openLine, openCol, "expected ) after dotted-tail"))
			}
			r.advance()
			closed = true
			break
		}
		cell := r.s.Cons(elem, Nil)
		r.s.SetSourceLoc(cell, SourceLoc{File: r.name, Line: openLine, Col: openCol})
		*last = cell
		last = &r.s.pairAt(cell).Cdr
	}
	if !closed {
		panic(r.parseError(openLine, openCol, "unexpected EOF while reading list"))
	}
	return head
}

func (r *reader) parseString() Value {
	sline, scol := r.line, r.col
	r.advance() // opening quote
	var b strings.Builder
	for r.pos < len(r.src) && r.src[r.pos] != '"' {
		if r.src[r.pos] == '\\' && r.pos+1 < len(r.src) {
			r.advance()
			esc := r.src[r.pos]
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '\\':
				b.WriteByte('\\')
			case '"':
				b.WriteByte('"')
			default:
				b.WriteByte(esc)
			}
			r.advance()
		} else {
			b.WriteByte(r.src[r.pos])
			r.advance()
		}
	}
	if r.pos >= len(r.src) {
		panic(r.parseError(sline, scol, "unexpected EOF while reading string"))
	}
	r.advance() // closing quote
	v := r.s.MakeString(b.String())
	r.s.SetSourceLoc(v, SourceLoc{File: r.name, Line: sline, Col: scol})
	return v
}

func (r *reader) parseAtom() Value {
	start := r.pos
	tline, tcol := r.line, r.col
	for r.pos < len(r.src) && !isDelim(r.src[r.pos]) {
		r.advance()
	}
	tok := r.src[start:r.pos]
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		v := NumberValue(f)
		r.s.SetSourceLoc(v, SourceLoc{File: r.name, Line: tline, Col: tcol})
		return v
	}
	if tok == "nil" {
		return Nil
	}
	v := r.s.Intern(tok)
	r.s.SetSourceLoc(v, SourceLoc{File: r.name, Line: tline, Col: tcol})
	return v
}

// Parse reads a single form from src, or Nil if src has no forms.
func (s *State) Parse(src, name string) Value {
	s.sources[name] = src
	r := &reader{s: s, src: src, line: 1, col: 1, name: name}
	v, _ := r.parseOne()
	return v
}

// ParseAll reads every form in src and returns them as a proper list, the
// unit of work `require` hands to DoList; RunSource and the REPL evaluate
// the list form by form.
func (s *State) ParseAll(src, name string) Value {
	s.sources[name] = src
	r := &reader{s: s, src: src, line: 1, col: 1, name: name}
	head := Nil
	last := &head
	for {
		v, ok := r.parseOne()
		if !ok {
			break
		}
		cell := s.Cons(v, Nil)
		*last = cell
		last = &s.pairAt(cell).Cdr
	}
	return head
}
