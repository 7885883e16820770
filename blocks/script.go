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

const GreenFlagMessage = "__shout__go__"
const CloneMessage = "__clone__init__"
const AnyMessage = "any message"

// Script is an event handler: a hat block on top of a body.
//
// hat selectors: receiveGo, receiveMessage(msg [dataVar]), receiveKey(key),
// receiveCondition(pred), receiveOnClone
type Script struct {
	Hat  *Block
	Body *Sequence
}

func (*Script) node() {}

func (s *Script) String() string {
	if s.Hat == nil {
		return "script"
	}
	return s.Hat.String()
}

func (s *Script) BlockSequence() []Node {
	return s.Body.Statements
}

// RespondsTo tells whether a broadcast of message starts this script.
func (s *Script) RespondsTo(message string) bool {
	if s.Hat == nil {
		return false
	}
	switch s.Hat.Selector {
	case "receiveGo":
		return message == GreenFlagMessage
	case "receiveOnClone":
		return message == CloneMessage
	case "receiveMessage":
		if message == GreenFlagMessage || message == CloneMessage {
			return false
		}
		name := nameOf(s.Hat.Input(0))
		return name == message || name == AnyMessage
	}
	return false
}

// DataVariable is the optional variable a receiveMessage hat binds the
// broadcast payload to.
func (s *Script) DataVariable() string {
	if s.Hat == nil || s.Hat.Selector != "receiveMessage" {
		return ""
	}
	return nameOf(s.Hat.Input(1))
}

// MessageVariable is bound to the message name for "any message" hats
func (s *Script) MessageVariable() string {
	if s.Hat == nil || s.Hat.Selector != "receiveMessage" {
		return ""
	}
	return nameOf(s.Hat.Input(2))
}

func (s *Script) RespondsToKey(key string) bool {
	if s.Hat == nil || s.Hat.Selector != "receiveKey" {
		return false
	}
	want := nameOf(s.Hat.Input(0))
	return want == "any key" || strings.EqualFold(want, key)
}

// Condition returns the predicate of a generic "when" hat or nil.
func (s *Script) Condition() Node {
	if s.Hat == nil || s.Hat.Selector != "receiveCondition" {
		return nil
	}
	return s.Hat.Input(0)
}

func nameOf(n Node) string {
	switch v := n.(type) {
	case *Literal:
		return ToText(v.Value)
	case *VarRef:
		return v.Name
	}
	return ""
}

// NameOf resolves a node that spells a name (a literal or a bare symbol).
func NameOf(n Node) string {
	return nameOf(n)
}

type BlockKind int

const (
	Command BlockKind = iota
	Reporter
	Predicate
)

func (k BlockKind) String() string {
	switch k {
	case Reporter:
		return "reporter"
	case Predicate:
		return "predicate"
	}
	return "command"
}

type Param struct {
	Name    string
	IsUpvar bool
	Default any
}

// Definition is a user defined block.
type Definition struct {
	Selector string
	Kind     BlockKind
	Params   []Param
	Body     *Sequence
	IsGlobal bool
	Warp     bool

	recursive int8 // 0 = unknown, 1 = yes, 2 = no
}

// IsDirectlyRecursive reports whether the body calls the definition itself.
func (d *Definition) IsDirectlyRecursive() bool {
	if d.recursive == 0 {
		d.recursive = 2
		if d.Body == nil {
			return false
		}
		Walk(d.Body, func(n Node) bool {
			if b, ok := n.(*Block); ok && b.Selector == d.Selector {
				d.recursive = 1
				return false
			}
			return true
		})
	}
	return d.recursive == 1
}
