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

import "fmt"

// Node is an element of a block script. Scripts are read-only while a process
// runs them; the only field the runtime writes is EmptySlot.Index.
type Node interface {
	node()
}

type SourceInfo struct {
	Source string
	Line   int
	Col    int
}

func (s SourceInfo) String() string {
	if s.Source == "" {
		return "?"
	}
	return fmt.Sprintf("%s:%d:%d", s.Source, s.Line, s.Col)
}

// Literal is a constant input: float64, string, bool or nil
type Literal struct {
	Value any
}

type VarRef struct {
	Name string
}

// Block invokes a primitive, a special form or a custom block definition.
type Block struct {
	Selector string
	Inputs   []Node
	Source   SourceInfo
}

// Sequence is a stack of command blocks (a C-slot or a script body).
type Sequence struct {
	Statements []Node
}

// MultiArg is a variadic input group. It evaluates to a list.
type MultiArg struct {
	Inputs []Node
}

// EmptySlot is an unfilled input. Inside a ring without formal parameters
// it becomes an implicit parameter with Index >= 1.
type EmptySlot struct {
	Index int
}

func (*Literal) node()   {}
func (*VarRef) node()    {}
func (*Block) node()     {}
func (*Sequence) node()  {}
func (*MultiArg) node()  {}
func (*EmptySlot) node() {}

func (b *Block) String() string {
	return b.Selector + " (" + b.Source.String() + ")"
}

// Copy returns a block with its own input slice; the inputs themselves are shared.
func (b *Block) Copy() *Block {
	result := *b
	result.Inputs = append([]Node(nil), b.Inputs...)
	return &result
}

func (b *Block) Input(i int) Node {
	if i < len(b.Inputs) {
		return b.Inputs[i]
	}
	return nil
}

func (s *Sequence) BlockSequence() []Node {
	return s.Statements
}

// IsRing reports whether n reifies a script, reporter or predicate.
func IsRing(n Node) bool {
	if b, ok := n.(*Block); ok {
		switch b.Selector {
		case "reifyScript", "reifyReporter", "reifyPredicate":
			return true
		}
	}
	return false
}

// MarkEmptySlots numbers the empty slots of expr in reading order and returns
// how many it found. Rings nested inside expr keep their own numbering.
func MarkEmptySlots(expr Node) int {
	count := 0
	var walk func(n Node)
	walk = func(n Node) {
		switch v := n.(type) {
		case *EmptySlot:
			count++
			v.Index = count
		case *Block:
			if IsRing(v) {
				return
			}
			for _, in := range v.Inputs {
				walk(in)
			}
		case *MultiArg:
			for _, in := range v.Inputs {
				walk(in)
			}
		case *Sequence:
			for _, in := range v.Statements {
				walk(in)
			}
		}
	}
	walk(expr)
	return count
}

// Walk calls fn for every node below and including n until fn returns false.
func Walk(n Node, fn func(Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	switch v := n.(type) {
	case *Block:
		for _, in := range v.Inputs {
			if !Walk(in, fn) {
				return false
			}
		}
	case *MultiArg:
		for _, in := range v.Inputs {
			if !Walk(in, fn) {
				return false
			}
		}
	case *Sequence:
		for _, in := range v.Statements {
			if !Walk(in, fn) {
				return false
			}
		}
	}
	return true
}
