// Copyright Project Contour Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sqlfilter

import (
	"fmt"
	"strconv"
	"strings"
)

// tokenKind mirrors original_source/dds/src/sql/scan.h's Token enum,
// trimmed to the subset this parser actually consumes (the original's
// join/SELECT/FROM machinery is scanned the same way but has no Go
// parser counterpart).
type tokenKind int

const (
	tkEOL tokenKind = iota
	tkParam
	tkID

	tkDot
	tkComma
	tkStar
	tkLPar
	tkRPar
	tkEq
	tkGt
	tkGe
	tkLt
	tkLe
	tkNe

	tkOrder
	tkBy
	tkSelect
	tkFrom
	tkWhere
	tkAnd
	tkOr
	tkNot
	tkBetween
	tkLike

	tkInvalid
)

// paramType mirrors scan.h's ParamType.
type paramType int

const (
	ptInt paramType = iota
	ptFloat
	ptString
	ptParam
)

var keywords = map[string]tokenKind{
	"ORDER":   tkOrder,
	"BY":      tkBy,
	"SELECT":  tkSelect,
	"FROM":    tkFrom,
	"WHERE":   tkWhere,
	"AND":     tkAnd,
	"OR":      tkOr,
	"NOT":     tkNot,
	"BETWEEN": tkBetween,
	"LIKE":    tkLike,
}

type token struct {
	kind    tokenKind
	ptype   paramType
	ival    int64
	fval    float64
	sval    string
	ident   string
	parIdx  int
}

// scanner walks s one token at a time, the Go counterpart of scan.c's
// sql_next_token driven off a ScanData cursor.
type scanner struct {
	s   string
	pos int
}

func newScanner(s string) *scanner { return &scanner{s: s} }

func (sc *scanner) peekByte() byte {
	if sc.pos >= len(sc.s) {
		return 0
	}
	return sc.s[sc.pos]
}

func (sc *scanner) skipSpace() {
	for sc.pos < len(sc.s) && (sc.s[sc.pos] == ' ' || sc.s[sc.pos] == '\t' || sc.s[sc.pos] == '\n' || sc.s[sc.pos] == '\r') {
		sc.pos++
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// next returns the next token, or an error for an unrecognized or
// malformed lexeme (the original's TK_INVALID, surfaced here as a Go
// error so the parser can attach position context).
func (sc *scanner) next() (token, error) {
	sc.skipSpace()
	if sc.pos >= len(sc.s) {
		return token{kind: tkEOL}, nil
	}

	c := sc.s[sc.pos]
	switch c {
	case '.':
		sc.pos++
		return token{kind: tkDot}, nil
	case ',':
		sc.pos++
		return token{kind: tkComma}, nil
	case '*':
		sc.pos++
		return token{kind: tkStar}, nil
	case '(':
		sc.pos++
		return token{kind: tkLPar}, nil
	case ')':
		sc.pos++
		return token{kind: tkRPar}, nil
	case '=':
		sc.pos++
		return token{kind: tkEq}, nil
	case '>':
		sc.pos++
		if sc.peekByte() == '=' {
			sc.pos++
			return token{kind: tkGe}, nil
		}
		return token{kind: tkGt}, nil
	case '<':
		sc.pos++
		switch sc.peekByte() {
		case '=':
			sc.pos++
			return token{kind: tkLe}, nil
		case '>':
			sc.pos++
			return token{kind: tkNe}, nil
		}
		return token{kind: tkLt}, nil
	case '\'':
		return sc.scanString()
	case '%':
		return sc.scanParam()
	}

	if isDigit(c) || (c == '-' && sc.pos+1 < len(sc.s) && isDigit(sc.s[sc.pos+1])) {
		return sc.scanNumber()
	}
	if isIdentStart(c) {
		return sc.scanIdentOrKeyword()
	}
	return token{}, fmt.Errorf("sqlfilter: unexpected character %q at offset %d", c, sc.pos)
}

func (sc *scanner) scanString() (token, error) {
	sc.pos++ // opening quote
	start := sc.pos
	for sc.pos < len(sc.s) && sc.s[sc.pos] != '\'' {
		sc.pos++
	}
	if sc.pos >= len(sc.s) {
		return token{}, fmt.Errorf("sqlfilter: unterminated string literal")
	}
	s := sc.s[start:sc.pos]
	sc.pos++ // closing quote
	return token{kind: tkParam, ptype: ptString, sval: s}, nil
}

func (sc *scanner) scanParam() (token, error) {
	sc.pos++ // '%'
	start := sc.pos
	for sc.pos < len(sc.s) && isDigit(sc.s[sc.pos]) {
		sc.pos++
	}
	if sc.pos == start {
		return token{}, fmt.Errorf("sqlfilter: expected digits after %%")
	}
	n, err := strconv.Atoi(sc.s[start:sc.pos])
	if err != nil {
		return token{}, err
	}
	if n > 99 {
		return token{}, fmt.Errorf("sqlfilter: parameter index %%%d out of range 0..99", n)
	}
	return token{kind: tkParam, ptype: ptParam, parIdx: n}, nil
}

func (sc *scanner) scanNumber() (token, error) {
	start := sc.pos
	if sc.s[sc.pos] == '-' {
		sc.pos++
	}
	hex := false
	if sc.pos+1 < len(sc.s) && sc.s[sc.pos] == '0' && (sc.s[sc.pos+1] == 'x' || sc.s[sc.pos+1] == 'X') {
		hex = true
		sc.pos += 2
		for sc.pos < len(sc.s) && isHexDigit(sc.s[sc.pos]) {
			sc.pos++
		}
	} else {
		for sc.pos < len(sc.s) && isDigit(sc.s[sc.pos]) {
			sc.pos++
		}
	}
	isFloat := false
	if !hex && sc.pos < len(sc.s) && sc.s[sc.pos] == '.' {
		isFloat = true
		sc.pos++
		for sc.pos < len(sc.s) && isDigit(sc.s[sc.pos]) {
			sc.pos++
		}
	}
	lit := sc.s[start:sc.pos]
	if isFloat {
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return token{}, err
		}
		return token{kind: tkParam, ptype: ptFloat, fval: f}, nil
	}
	base := 10
	parseLit := lit
	if hex {
		base = 0
	}
	i, err := strconv.ParseInt(parseLit, base, 64)
	if err != nil {
		return token{}, fmt.Errorf("sqlfilter: invalid integer literal %q: %w", lit, err)
	}
	return token{kind: tkParam, ptype: ptInt, ival: i}, nil
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func (sc *scanner) scanIdentOrKeyword() (token, error) {
	start := sc.pos
	for sc.pos < len(sc.s) && isIdentCont(sc.s[sc.pos]) {
		sc.pos++
	}
	word := sc.s[start:sc.pos]
	if kind, ok := keywords[strings.ToUpper(word)]; ok {
		return token{kind: kind}, nil
	}
	return token{kind: tkID, ident: word}, nil
}
