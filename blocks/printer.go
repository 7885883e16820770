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

import "strings"

var quoteReplacer = strings.NewReplacer("\\", "\\\\", "\"", "\\\"", "\n", "\\n", "\r", "\\r", "\t", "\\t")

func quote(s string) string {
	return "\"" + quoteReplacer.Replace(s) + "\""
}

// Serialize writes n in the form Read accepts.
func Serialize(b *strings.Builder, n Node) {
	switch v := n.(type) {
	case nil:
		b.WriteString("nil")
	case *Literal:
		switch x := v.Value.(type) {
		case nil:
			b.WriteString("nil")
		case string:
			b.WriteString(quote(x))
		case bool, float64:
			b.WriteString(ToText(x))
		default:
			b.WriteString(quote(ToText(x)))
		}
	case *VarRef:
		b.WriteString(v.Name)
	case *EmptySlot:
		b.WriteString("_")
	case *Block:
		b.WriteString("(")
		if strings.ContainsAny(v.Selector, " ()[]{}\"") {
			b.WriteString(quote(v.Selector))
		} else {
			b.WriteString(v.Selector)
		}
		for _, in := range v.Inputs {
			b.WriteString(" ")
			Serialize(b, in)
		}
		b.WriteString(")")
	case *Sequence:
		b.WriteString("{")
		for i, in := range v.Statements {
			if i > 0 {
				b.WriteString(" ")
			}
			Serialize(b, in)
		}
		b.WriteString("}")
	case *MultiArg:
		b.WriteString("[")
		for i, in := range v.Inputs {
			if i > 0 {
				b.WriteString(" ")
			}
			Serialize(b, in)
		}
		b.WriteString("]")
	case *Script:
		if v.Hat == nil {
			Serialize(b, v.Body)
			return
		}
		hat := v.Hat.Copy()
		hat.Inputs = append(hat.Inputs, v.Body)
		Serialize(b, hat)
	}
}

func String(n Node) string {
	var b strings.Builder
	Serialize(&b, n)
	return b.String()
}
