/*
Copyright (C) 2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package blocks

import (
	"fmt"
	"strconv"
	"strings"
)

/* text form of block scripts:

	(selector input...)   block
	{ block... }          sequence
	[ input... ]          multi-arg group
	_                     empty slot
	name                  variable
	12.5 "text" true false nil   literals
	/* ... * /            comment
*/

type token struct {
	kind byte // one of ( ) { } [ ] or n = number, s = string, y = symbol
	text string
	num  float64
	info SourceInfo
}

// Read parses exactly the first node of s and panics on syntax errors.
func Read(source, s string) Node {
	tokens := tokenize(source, s)
	if len(tokens) == 0 {
		return &Sequence{}
	}
	return readFrom(&tokens)
}

// ReadAll parses all top level nodes of s.
func ReadAll(source, s string) (result []Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
			result = nil
		}
	}()
	tokens := tokenize(source, s)
	for len(tokens) > 0 {
		result = append(result, readFrom(&tokens))
	}
	return
}

// Syntactic Analysis
func readFrom(tokens *[]token) Node {
	t := (*tokens)[0]
	*tokens = (*tokens)[1:]
	switch t.kind {
	case 'n':
		return &Literal{t.num}
	case 's':
		return &Literal{t.text}
	case 'y':
		switch t.text {
		case "true":
			return &Literal{true}
		case "false":
			return &Literal{false}
		case "nil":
			return &Literal{nil}
		case "_":
			return &EmptySlot{}
		}
		return &VarRef{t.text}
	case '(':
		if len(*tokens) == 0 {
			panic(t.info.String() + ": expecting matching )")
		}
		head := (*tokens)[0]
		if head.kind != 'y' && head.kind != 's' {
			panic(t.info.String() + ": block must start with a selector")
		}
		*tokens = (*tokens)[1:]
		b := &Block{Selector: head.text, Source: t.info}
		b.Inputs = readUntil(tokens, ')', t.info)
		return b
	case '{':
		return &Sequence{readUntil(tokens, '}', t.info)}
	case '[':
		return &MultiArg{readUntil(tokens, ']', t.info)}
	}
	panic(t.info.String() + ": unexpected " + string(t.kind))
}

func readUntil(tokens *[]token, closing byte, info SourceInfo) []Node {
	result := make([]Node, 0)
	for {
		if len(*tokens) == 0 {
			panic(info.String() + ": expecting matching " + string(closing))
		}
		next := (*tokens)[0]
		if next.kind == closing {
			*tokens = (*tokens)[1:]
			return result
		}
		if next.kind == ')' || next.kind == '}' || next.kind == ']' {
			panic(next.info.String() + ": expecting matching " + string(closing) + " but found " + string(next.kind))
		}
		result = append(result, readFrom(tokens))
	}
}

func isDelimiter(ch rune) bool {
	switch ch {
	case '(', ')', '{', '}', '[', ']':
		return true
	}
	return false
}

func isSpace(ch rune) bool {
	return ch == ' ' || ch == '\r' || ch == '\n' || ch == '\t'
}

// Lexical Analysis
func tokenize(source, s string) []token {
	/* tokenizer state machine:
		0 = expecting next item
		1 = inside Number
		2 = inside Symbol
		3 = inside string
		4 = inside escaping sequence of string
		5 = inside comment
		6 = comment ending * from * /
	*/
	line := 1
	col := 0

	stringreplacer := strings.NewReplacer("\\\"", "\"", "\\\\", "\\", "\\n", "\n", "\\r", "\r", "\\t", "\t")
	state := 0
	startToken := 0
	startInfo := SourceInfo{source, 1, 1}
	result := make([]token, 0)
	finishNumber := func(text string) {
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			result = append(result, token{kind: 'n', num: f, text: text, info: startInfo})
		} else {
			result = append(result, token{kind: 'y', text: text, info: startInfo})
		}
	}
	for i, ch := range s {
		if ch == '\n' {
			line++
			col = 0
		} else {
			col++
		}

		if state == 1 && (ch == '.' || ch >= '0' && ch <= '9') {
			// another digit
		} else if state == 2 && ch == '*' && s[startToken:i] == "/" {
			state = 5
		} else if state == 5 && ch == '*' {
			state = 6
		} else if state == 5 {
			// comment
		} else if state == 6 && ch == '/' {
			state = 0
		} else if state == 6 {
			state = 5
		} else if state == 2 && !isSpace(ch) && !isDelimiter(ch) {
			// another character added to Symbol
		} else if state == 3 && ch != '"' && ch != '\\' {
			// another character added to string
		} else if state == 3 && ch == '\\' {
			state = 4
		} else if state == 4 {
			state = 3
		} else if state == 3 && ch == '"' {
			result = append(result, token{kind: 's', text: stringreplacer.Replace(s[startToken+1 : i]), info: startInfo})
			state = 0
		} else {
			// state change
			if state == 1 {
				finishNumber(s[startToken:i])
			}
			if state == 2 {
				result = append(result, token{kind: 'y', text: s[startToken:i], info: startInfo})
			}
			startToken = i
			startInfo = SourceInfo{source, line, col}
			if isDelimiter(ch) {
				result = append(result, token{kind: byte(ch), info: startInfo})
				state = 0
			} else if ch == '"' {
				state = 3
			} else if ch >= '0' && ch <= '9' || ch == '-' {
				state = 1
			} else if isSpace(ch) {
				state = 0
			} else {
				state = 2
			}
		}
	}
	if state == 1 {
		finishNumber(s[startToken:])
	}
	if state == 2 {
		result = append(result, token{kind: 'y', text: s[startToken:], info: startInfo})
	}
	if state == 3 || state == 4 {
		panic(startInfo.String() + ": unterminated string")
	}
	return result
}
