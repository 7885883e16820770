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
package threads

import "strings"
import "unicode"
import "unicode/utf8"
import "golang.org/x/text/cases"
import "golang.org/x/text/language"
import "github.com/launix-de/blockvm/blocks"

var upper = cases.Upper(language.Und)
var lower = cases.Lower(language.Und)

// joinText flattens lists item by item, so join (list a b) c gives "abc".
func joinText(b *strings.Builder, v any) {
	if l, ok := v.(*blocks.List); ok {
		l.Each(func(item any) bool {
			joinText(b, item)
			return true
		})
		return
	}
	b.WriteString(blocks.ToText(v))
}

// letterIndex resolves a 1-based position; "last" picks the last one and
// out of range positions give -1.
func letterIndex(idx any, length int) int {
	if s, ok := idx.(string); ok && s == "last" {
		return length - 1
	}
	i := toInt(idx)
	if i < 1 || i > length {
		return -1
	}
	return i - 1
}

func splitText(s string, by string) *blocks.List {
	var parts []string
	switch by {
	case "letter":
		for _, r := range s {
			parts = append(parts, string(r))
		}
	case "word":
		parts = strings.Fields(s)
	case "line":
		s = strings.ReplaceAll(s, "\r\n", "\n")
		parts = strings.Split(s, "\n")
	case "tab":
		parts = strings.Split(s, "\t")
	case "cr":
		parts = strings.Split(s, "\r")
	case "csv":
		result := blocks.NewList()
		for _, line := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
			if line == "" {
				continue
			}
			row := blocks.NewList()
			for _, field := range strings.Split(line, ",") {
				row.Add(field)
			}
			result.Add(row)
		}
		return result
	default:
		if by == "" {
			parts = strings.Fields(s)
		} else {
			parts = strings.Split(s, by)
		}
	}
	items := make([]any, len(parts))
	for i, part := range parts {
		items[i] = part
	}
	return blocks.NewList(items...)
}

func init_strings() {
	DeclareTitle("Text")

	Declare(&Declaration{
		"reportJoinWords", "concatenates texts; lists are joined item by item",
		0, 1000,
		[]DeclarationParameter{
			DeclarationParameter{"value", "any", "parts"},
		}, "text",
		func(a ...any) any {
			var b strings.Builder
			for _, v := range a {
				joinText(&b, v)
			}
			return b.String()
		},
	})
	Declare(&Declaration{
		"reportLetter", "the letter at a 1-based position; empty when out of range",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"index", "any", "position or \"last\""},
			DeclarationParameter{"text", "text", "text"},
		}, "text",
		func(a ...any) any {
			letters := []rune(blocks.ToText(a[1]))
			i := letterIndex(a[0], len(letters))
			if i < 0 {
				return ""
			}
			return string(letters[i])
		},
	})
	Declare(&Declaration{
		"reportStringSize", "number of letters",
		1, 1,
		[]DeclarationParameter{
			DeclarationParameter{"text", "text", "text"},
		}, "number",
		func(a ...any) any {
			return float64(utf8.RuneCountInString(blocks.ToText(a[0])))
		},
	})
	Declare(&Declaration{
		"reportUnicode", "code point of the first letter",
		1, 1,
		[]DeclarationParameter{
			DeclarationParameter{"text", "text", "text"},
		}, "number",
		func(a ...any) any {
			r, size := utf8.DecodeRuneInString(blocks.ToText(a[0]))
			if size == 0 {
				return 0.0
			}
			return float64(r)
		},
	})
	Declare(&Declaration{
		"reportUnicodeAsLetter", "the letter of a code point",
		1, 1,
		[]DeclarationParameter{
			DeclarationParameter{"code", "number", "code point"},
		}, "text",
		func(a ...any) any {
			code := toInt(a[0])
			if code < 0 || code > unicode.MaxRune {
				raise(DivisionOrDomainError, "%d is not a unicode code point", code)
			}
			return string(rune(code))
		},
	})
	Declare(&Declaration{
		"reportTextSplit", "splits text by letter | word | line | tab | cr | csv or a separator",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"text", "text", "text to split"},
			DeclarationParameter{"by", "text", "mode or separator"},
		}, "list",
		func(a ...any) any {
			return splitText(blocks.ToText(a[0]), blocks.ToText(a[1]))
		},
	})
	Declare(&Declaration{
		"reportTextAttribute", "length | lower case | upper case | trimmed of a text",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"attribute", "text", "attribute name"},
			DeclarationParameter{"text", "text", "text"},
		}, "any",
		func(a ...any) any {
			s := blocks.ToText(a[1])
			switch blocks.ToText(a[0]) {
			case "length":
				return float64(utf8.RuneCountInString(s))
			case "lower case":
				return lower.String(s)
			case "upper case":
				return upper.String(s)
			case "trimmed":
				return strings.TrimSpace(s)
			}
			raise(TypeMismatch, "unknown text attribute %s", blocks.ToText(a[0]))
			return nil
		},
	})
}
