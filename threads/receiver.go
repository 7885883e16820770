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

import "github.com/launix-de/blockvm/blocks"

// Receiver is the object a script runs for (a sprite or the stage).
type Receiver interface {
	Name() string
	Variables() *VariableFrame
	Scripts() []*blocks.Script
	CustomBlock(selector string) *blocks.Definition
	IsDead() bool
}

// Shadower receivers accept create-on-write copies of inherited variables.
type Shadower interface {
	ShadowVar(name string, value any)
}

type Positioned interface {
	Position() (x, y float64)
	SetPosition(x, y float64)
}

// Talker receivers keep their speech bubble; nil clears it.
type Talker interface {
	SetBubble(value any, thought bool)
}

// Grabbable receivers pause their scripts while the user drags them.
type Grabbable interface {
	IsPickedUp() bool
}

// World gives broadcasts and generic hats access to all receivers.
type World interface {
	Receivers() []Receiver
	Receiver(name string) Receiver
}

// Object is a plain receiver without a body. Stage objects build on it.
type Object struct {
	name        string
	variables   *VariableFrame
	scripts     []*blocks.Script
	definitions map[string]*blocks.Definition
	parent      *Object // definitions fall back to the parent
	dead        bool
}

func NewObject(name string, globals *VariableFrame) *Object {
	o := &Object{name: name, definitions: make(map[string]*blocks.Definition)}
	o.variables = NewFrame(globals, o)
	return o
}

func (o *Object) Name() string                  { return o.name }
func (o *Object) Variables() *VariableFrame     { return o.variables }
func (o *Object) Scripts() []*blocks.Script     { return o.scripts }
func (o *Object) IsDead() bool                  { return o.dead }
func (o *Object) SetDead(dead bool)             { o.dead = dead }
func (o *Object) Rename(name string)            { o.name = name }
func (o *Object) AddScript(s *blocks.Script)    { o.scripts = append(o.scripts, s) }
func (o *Object) SetScripts(s []*blocks.Script) { o.scripts = s }
func (o *Object) String() string                { return o.name }

func (o *Object) SetParent(parent *Object) {
	o.parent = parent
}

func (o *Object) Define(def *blocks.Definition) {
	o.definitions[def.Selector] = def
}

func (o *Object) Definitions() []*blocks.Definition {
	result := make([]*blocks.Definition, 0, len(o.definitions))
	for _, d := range o.definitions {
		result = append(result, d)
	}
	return result
}

func (o *Object) CustomBlock(selector string) *blocks.Definition {
	for obj := o; obj != nil; obj = obj.parent {
		if d, ok := obj.definitions[selector]; ok {
			return d
		}
	}
	return nil
}
