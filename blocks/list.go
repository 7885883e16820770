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

// List is either arrayed (contents) or linked (first + rest). Linked lists
// are built by Cons and turn into arrayed lists on the first mutation.
type List struct {
	contents []any
	first    any
	rest     *List
	isLinked bool
}

func NewList(items ...any) *List {
	return &List{contents: append([]any(nil), items...)}
}

// Cons prepends first to rest without copying rest.
func Cons(first any, rest *List) *List {
	if rest == nil {
		rest = NewList()
	}
	return &List{first: first, rest: rest, isLinked: true}
}

func (l *List) IsLinked() bool {
	return l.isLinked
}

func (l *List) Length() int {
	n := 0
	for l.isLinked {
		n++
		l = l.rest
	}
	return n + len(l.contents)
}

func (l *List) IsEmpty() bool {
	if l.isLinked {
		return false
	}
	return len(l.contents) == 0
}

// At returns the 1-based element i or nil when out of range.
func (l *List) At(i int) any {
	if i < 1 {
		return nil
	}
	for l.isLinked {
		if i == 1 {
			return l.first
		}
		i--
		l = l.rest
	}
	if i > len(l.contents) {
		return nil
	}
	return l.contents[i-1]
}

func (l *List) First() any {
	return l.At(1)
}

// Cdr returns all but the first element. For linked lists this shares structure.
func (l *List) Cdr() *List {
	if l.isLinked {
		return l.rest
	}
	if len(l.contents) < 2 {
		return NewList()
	}
	return NewList(l.contents[1:]...)
}

func (l *List) becomeArrayed() {
	if !l.isLinked {
		return
	}
	items := make([]any, 0, l.Length())
	node := l
	for node.isLinked {
		items = append(items, node.first)
		node = node.rest
	}
	items = append(items, node.contents...)
	l.contents = items
	l.first = nil
	l.rest = nil
	l.isLinked = false
}

// ItemsArray returns the backing slice. Callers must not keep it across mutations.
func (l *List) ItemsArray() []any {
	l.becomeArrayed()
	return l.contents
}

func (l *List) Add(v any) {
	l.becomeArrayed()
	l.contents = append(l.contents, v)
}

// Insert puts v before the 1-based index i; i beyond the end appends.
func (l *List) Insert(v any, i int) {
	l.becomeArrayed()
	if i < 1 {
		i = 1
	}
	if i > len(l.contents) {
		l.contents = append(l.contents, v)
		return
	}
	l.contents = append(l.contents, nil)
	copy(l.contents[i:], l.contents[i-1:])
	l.contents[i-1] = v
}

func (l *List) Put(v any, i int) {
	l.becomeArrayed()
	if i < 1 || i > len(l.contents) {
		return
	}
	l.contents[i-1] = v
}

func (l *List) Remove(i int) {
	l.becomeArrayed()
	if i < 1 || i > len(l.contents) {
		return
	}
	l.contents = append(l.contents[:i-1], l.contents[i:]...)
}

func (l *List) Clear() {
	l.contents = nil
	l.first = nil
	l.rest = nil
	l.isLinked = false
}

func (l *List) Contains(v any) bool {
	return l.IndexOf(v) > 0
}

// IndexOf returns the 1-based position of v or 0.
func (l *List) IndexOf(v any) int {
	i := 1
	node := l
	for node.isLinked {
		if Equal(node.first, v) {
			return i
		}
		i++
		node = node.rest
	}
	for _, item := range node.contents {
		if Equal(item, v) {
			return i
		}
		i++
	}
	return 0
}

// Copy returns a shallow arrayed copy.
func (l *List) Copy() *List {
	items := make([]any, 0, l.Length())
	l.Each(func(v any) bool {
		items = append(items, v)
		return true
	})
	return &List{contents: items}
}

// Each visits the elements in order without converting a linked list.
func (l *List) Each(fn func(any) bool) {
	node := l
	for node.isLinked {
		if !fn(node.first) {
			return
		}
		node = node.rest
	}
	for _, item := range node.contents {
		if !fn(item) {
			return
		}
	}
}

func (l *List) Equal(other *List) bool {
	if l == other {
		return true
	}
	if l.Length() != other.Length() {
		return false
	}
	a, b := l.Copy().contents, other.Copy().contents
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func (l *List) String() string {
	var b strings.Builder
	b.WriteString("[")
	first := true
	l.Each(func(v any) bool {
		if !first {
			b.WriteString(" ")
		}
		first = false
		if s, ok := v.(string); ok {
			b.WriteString(quote(s))
		} else {
			b.WriteString(ToText(v))
		}
		return true
	})
	b.WriteString("]")
	return b.String()
}
