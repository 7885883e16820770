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
package stage

import "math"
import "github.com/launix-de/blockvm/threads"

// Sprite is a receiver with a position on the stage. Clones inherit the
// variables of their prototype and shadow them on the first write.
type Sprite struct {
	*threads.Object
	stage *Stage

	x, y     float64
	heading  float64 // 0 = up, 90 = right
	size     float64 // percent
	visible  bool
	costume  string
	bubble   any
	thought  bool
	pickedUp bool

	prototype *Sprite // nil for originals
}

func newSprite(st *Stage, name string) *Sprite {
	s := &Sprite{
		Object:  threads.NewObject(name, st.globals),
		stage:   st,
		heading: 90,
		size:    100,
		visible: true,
	}
	s.Variables().SetOwner(s)
	s.SetParent(st.Object)
	return s
}

func (s *Sprite) TypeName() string { return "sprite" }

func (s *Sprite) Position() (float64, float64) {
	return s.x, s.y
}

func (s *Sprite) SetPosition(x, y float64) {
	s.x, s.y = x, y
}

func (s *Sprite) Heading() float64 { return s.heading }

// SetHeading normalizes to (-180, 180].
func (s *Sprite) SetHeading(deg float64) {
	h := math.Mod(deg, 360)
	if h > 180 {
		h -= 360
	} else if h <= -180 {
		h += 360
	}
	s.heading = h
}

func (s *Sprite) Forward(steps float64) {
	rad := s.heading * math.Pi / 180
	s.x += steps * math.Sin(rad)
	s.y += steps * math.Cos(rad)
}

func (s *Sprite) Size() float64      { return s.size }
func (s *Sprite) IsVisible() bool    { return s.visible }
func (s *Sprite) Costume() string    { return s.costume }
func (s *Sprite) IsClone() bool      { return s.prototype != nil }
func (s *Sprite) Prototype() *Sprite { return s.prototype }

func (s *Sprite) SetBubble(value any, thought bool) {
	s.bubble = value
	s.thought = thought
}

// Bubble is what the sprite currently says or thinks; nil when silent.
func (s *Sprite) Bubble() (value any, thought bool) {
	return s.bubble, s.thought
}

func (s *Sprite) IsPickedUp() bool        { return s.pickedUp }
func (s *Sprite) SetPickedUp(picked bool) { s.pickedUp = picked }

// ShadowVar gives a clone its own copy of an inherited variable.
func (s *Sprite) ShadowVar(name string, value any) {
	s.Variables().AddVar(name, value)
}

// attribute reads a property for "attribute of"; other names are variables.
func (s *Sprite) attribute(name string) any {
	switch name {
	case "x position":
		return s.x
	case "y position":
		return s.y
	case "direction":
		return s.heading
	case "size":
		return s.size
	case "costume name":
		return s.costume
	case "shown?":
		return s.visible
	}
	return s.Variables().GetVar(name)
}
