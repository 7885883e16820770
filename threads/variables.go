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

import "sort"
import "math"
import "github.com/launix-de/blockvm/blocks"

type Variable struct {
	Value       any
	IsTransient bool
	IsHidden    bool
}

func (v *Variable) String() string {
	return blocks.ToText(v.Value)
}

// VariableFrame is one scope. Lookups walk parentFrame. A frame with an
// owner belongs to a receiver; writes from a different receiver create a
// shadow on the writer instead of touching the owner's cell.
type VariableFrame struct {
	vars        map[string]*Variable
	parentFrame *VariableFrame
	owner       Receiver
}

func NewFrame(parent *VariableFrame, owner Receiver) *VariableFrame {
	return &VariableFrame{parentFrame: parent, owner: owner}
}

func (f *VariableFrame) Parent() *VariableFrame {
	return f.parentFrame
}

func (f *VariableFrame) SetParent(parent *VariableFrame) {
	f.parentFrame = parent
}

func (f *VariableFrame) Owner() Receiver {
	return f.owner
}

// SetOwner is for receivers that embed another receiver type.
func (f *VariableFrame) SetOwner(owner Receiver) {
	f.owner = owner
}

// AddVar declares name in this frame; a nil value is stored as 0.
func (f *VariableFrame) AddVar(name string, value any) {
	if value == nil {
		value = 0.0
	}
	f.bind(name, &Variable{Value: value})
}

func (f *VariableFrame) bind(name string, cell *Variable) {
	if f.vars == nil {
		f.vars = make(map[string]*Variable)
	}
	f.vars[name] = cell
}

func (f *VariableFrame) DeleteVar(name string) {
	if frame := f.SilentFind(name); frame != nil {
		delete(frame.vars, name)
	}
}

// SilentFind returns the frame that declares name or nil.
func (f *VariableFrame) SilentFind(name string) *VariableFrame {
	for frame := f; frame != nil; frame = frame.parentFrame {
		if _, ok := frame.vars[name]; ok {
			return frame
		}
	}
	return nil
}

// Find is SilentFind but raises UndeclaredVariable.
func (f *VariableFrame) Find(name string) *VariableFrame {
	frame := f.SilentFind(name)
	if frame == nil {
		panic(&Error{Kind: UndeclaredVariable, Message: "a variable of name '" + name + "' does not exist in this context"})
	}
	return frame
}

// Cell returns the storage of name so it can be aliased into another frame.
func (f *VariableFrame) Cell(name string) *Variable {
	return f.Find(name).vars[name]
}

func (f *VariableFrame) GetVar(name string) any {
	return f.Find(name).vars[name].Value
}

// SetVar assigns an existing variable. sender is the receiver running the
// assignment, it decides about create-on-write shadowing.
func (f *VariableFrame) SetVar(name string, value any, sender Receiver) {
	frame := f.Find(name)
	if frame.shadowsFor(sender) {
		sender.(Shadower).ShadowVar(name, value)
		return
	}
	frame.vars[name].Value = value
}

func (f *VariableFrame) shadowsFor(sender Receiver) bool {
	if f.owner == nil || sender == nil || f.owner == sender {
		return false
	}
	_, ok := sender.(Shadower)
	return ok
}

// ChangeVar adds delta to a numeric variable. A non-numeric old value counts as 0.
func (f *VariableFrame) ChangeVar(name string, delta any, sender Receiver) {
	frame := f.Find(name)
	d, ok := blocks.ToNumber(delta)
	if !ok {
		raise(TypeMismatch, "expecting a number but getting %s", blocks.ToText(delta))
	}
	old, ok := blocks.ToNumber(frame.vars[name].Value)
	value := old + d
	if !ok || math.IsNaN(old) {
		value = d
	}
	if frame.shadowsFor(sender) {
		sender.(Shadower).ShadowVar(name, value)
		return
	}
	frame.vars[name].Value = value
}

// Names lists the variables declared in this frame only.
func (f *VariableFrame) Names(includeHidden bool) []string {
	result := make([]string, 0, len(f.vars))
	for name, v := range f.vars {
		if v.IsHidden && !includeHidden {
			continue
		}
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// AllNames lists every visible variable, nearest scope first.
func (f *VariableFrame) AllNames() []string {
	seen := make(map[string]bool)
	result := make([]string, 0)
	for frame := f; frame != nil; frame = frame.parentFrame {
		for _, name := range frame.Names(false) {
			if !seen[name] {
				seen[name] = true
				result = append(result, name)
			}
		}
	}
	return result
}

// Fork copies the primitive values (numbers, text, booleans) of the given
// names into a detached frame. No names means every visible variable.
func (f *VariableFrame) Fork(names []string) *VariableFrame {
	if len(names) == 0 {
		names = f.AllNames()
	}
	result := NewFrame(nil, f.owner)
	for _, name := range names {
		frame := f.SilentFind(name)
		if frame == nil {
			continue
		}
		v := frame.vars[name]
		if blocks.IsPrimitive(v.Value) {
			result.bind(name, &Variable{Value: v.Value, IsTransient: v.IsTransient, IsHidden: v.IsHidden})
		}
	}
	return result
}

// Merge takes over the cells of other, replacing variables of the same name.
func (f *VariableFrame) Merge(other *VariableFrame) {
	if other == nil {
		return
	}
	for name, v := range other.vars {
		f.bind(name, v)
	}
}
