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

import "math"
import "strings"
import "github.com/launix-de/blockvm/blocks"

// listIndex resolves 1-based positions and the words "last" and "random".
func listIndex(idx any, l *blocks.List) int {
	if s, ok := idx.(string); ok {
		switch s {
		case "last":
			return l.Length()
		case "random", "any":
			if l.Length() == 0 {
				return 0
			}
			return int(random(1, float64(l.Length())))
		}
	}
	return toInt(idx)
}

func numbers(from, to float64) *blocks.List {
	result := blocks.NewList()
	if math.IsInf(from, 0) || math.IsInf(to, 0) || math.IsNaN(from) || math.IsNaN(to) {
		raise(DivisionOrDomainError, "cannot count to infinity")
	}
	if from <= to {
		for i := from; i <= to; i++ {
			result.Add(i)
		}
	} else {
		for i := from; i >= to; i-- {
			result.Add(i)
		}
	}
	return result
}

// isA checks against the type names of "type of" plus the abstract
// classes "ring" and "any".
func isA(v any, typ string) bool {
	typ = strings.ToLower(typ)
	name := strings.ToLower(blocks.TypeOf(v))
	switch typ {
	case "any":
		return true
	case "ring":
		_, ok := v.(*Context)
		return ok
	}
	return name == typ
}

func init_lists() {
	DeclareTitle("Lists")

	Declare(&Declaration{
		"reportNewList", "a new list of its inputs",
		0, 1000,
		[]DeclarationParameter{
			DeclarationParameter{"item", "any", "items"},
		}, "list",
		func(a ...any) any {
			return blocks.NewList(a...)
		},
	})
	Declare(&Declaration{
		"reportNumbers", "list of the numbers from a to b",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"from", "number", "first number"},
			DeclarationParameter{"to", "number", "last number"},
		}, "list",
		func(a ...any) any {
			return numbers(toNumber(a[0]), toNumber(a[1]))
		},
	})
	Declare(&Declaration{
		"reportCONS", "a linked list with a new first item; the rest is shared",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"first", "any", "new first item"},
			DeclarationParameter{"rest", "list", "rest of the list"},
		}, "list",
		func(a ...any) any {
			return blocks.Cons(a[0], toList(a[1]))
		},
	})
	Declare(&Declaration{
		"reportCDR", "all but the first item",
		1, 1,
		[]DeclarationParameter{
			DeclarationParameter{"list", "list", "list"},
		}, "list",
		func(a ...any) any {
			return toList(a[0]).Cdr()
		},
	})
	Declare(&Declaration{
		"reportListItem", "item at a 1-based position, \"last\" or \"random\"; empty when out of range",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"index", "any", "position"},
			DeclarationParameter{"list", "list", "list"},
		}, "any",
		func(a ...any) any {
			l := toList(a[1])
			if idx, ok := a[0].(*blocks.List); ok {
				// a list of indices selects several items
				result := blocks.NewList()
				idx.Each(func(i any) bool {
					result.Add(l.At(listIndex(i, l)))
					return true
				})
				return result
			}
			v := l.At(listIndex(a[0], l))
			if v == nil {
				return ""
			}
			return v
		},
	})
	Declare(&Declaration{
		"reportListLength", "number of items",
		1, 1,
		[]DeclarationParameter{
			DeclarationParameter{"list", "list", "list"},
		}, "number",
		func(a ...any) any {
			return float64(toList(a[0]).Length())
		},
	})
	Declare(&Declaration{
		"reportListIsEmpty", "true if the list has no items",
		1, 1,
		[]DeclarationParameter{
			DeclarationParameter{"list", "list", "list"},
		}, "bool",
		func(a ...any) any {
			return toList(a[0]).IsEmpty()
		},
	})
	Declare(&Declaration{
		"reportListContainsItem", "true if an item equals the value",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"list", "list", "list"},
			DeclarationParameter{"value", "any", "value to look for"},
		}, "bool",
		func(a ...any) any {
			return toList(a[0]).Contains(a[1])
		},
	})
	Declare(&Declaration{
		"reportListIndex", "1-based position of the value or 0",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"value", "any", "value to look for"},
			DeclarationParameter{"list", "list", "list"},
		}, "number",
		func(a ...any) any {
			return float64(toList(a[1]).IndexOf(a[0]))
		},
	})
	Declare(&Declaration{
		"doAddToList", "appends an item",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"item", "any", "new item"},
			DeclarationParameter{"list", "list", "list to change"},
		}, "nil",
		func(a ...any) any {
			toList(a[1]).Add(a[0])
			return nil
		},
	})
	Declare(&Declaration{
		"doDeleteFromList", "removes the item at a position, \"last\" or \"all\"",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"index", "any", "position"},
			DeclarationParameter{"list", "list", "list to change"},
		}, "nil",
		func(a ...any) any {
			l := toList(a[1])
			if s, ok := a[0].(string); ok && s == "all" {
				l.Clear()
				return nil
			}
			l.Remove(listIndex(a[0], l))
			return nil
		},
	})
	Declare(&Declaration{
		"doInsertInList", "inserts an item before a position; \"last\" appends",
		3, 3,
		[]DeclarationParameter{
			DeclarationParameter{"item", "any", "new item"},
			DeclarationParameter{"index", "any", "position"},
			DeclarationParameter{"list", "list", "list to change"},
		}, "nil",
		func(a ...any) any {
			l := toList(a[2])
			if s, ok := a[1].(string); ok && s == "last" {
				l.Add(a[0])
				return nil
			}
			l.Insert(a[0], listIndex(a[1], l))
			return nil
		},
	})
	Declare(&Declaration{
		"doReplaceInList", "replaces the item at a position",
		3, 3,
		[]DeclarationParameter{
			DeclarationParameter{"index", "any", "position"},
			DeclarationParameter{"list", "list", "list to change"},
			DeclarationParameter{"item", "any", "new item"},
		}, "nil",
		func(a ...any) any {
			l := toList(a[1])
			l.Put(a[2], listIndex(a[0], l))
			return nil
		},
	})
	Declare(&Declaration{
		"reportTypeOf", "number | text | Boolean | list | command | reporter | predicate | continuation | nothing",
		1, 1,
		[]DeclarationParameter{
			DeclarationParameter{"value", "any", "value"},
		}, "text",
		func(a ...any) any {
			return blocks.TypeOf(a[0])
		},
	})
	Declare(&Declaration{
		"reportIsA", "checks the type of a value",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"value", "any", "value"},
			DeclarationParameter{"type", "text", "type name, ring or any"},
		}, "bool",
		func(a ...any) any {
			return isA(a[0], blocks.ToText(a[1]))
		},
	})
}
