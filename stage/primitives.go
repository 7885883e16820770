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
import "github.com/launix-de/blockvm/blocks"
import "github.com/launix-de/blockvm/threads"

func fail(kind threads.ErrorKind, msg string) {
	panic(&threads.Error{Kind: kind, Message: msg})
}

func num(v any) float64 {
	f, ok := blocks.ToNumber(v)
	if !ok {
		fail(threads.TypeMismatch, "expecting a number but getting "+blocks.TypeOf(v))
	}
	return f
}

func stageOf(r threads.Receiver) *Stage {
	switch v := r.(type) {
	case *Sprite:
		return v.stage
	case *Stage:
		return v
	}
	fail(threads.TypeMismatch, "this block only works on a stage")
	return nil
}

// resolve turns a name, "myself" or a receiver value into a receiver.
func resolve(r threads.Receiver, target any) threads.Receiver {
	switch t := target.(type) {
	case threads.Receiver:
		return t
	case nil:
		return r
	}
	name := blocks.ToText(target)
	if name == "" || name == "myself" {
		return r
	}
	if found := stageOf(r).Receiver(name); found != nil {
		return found
	}
	fail(threads.TypeMismatch, "there is no sprite named "+name)
	return nil
}

// motion runs fn for sprites; the stage does not move.
func motion(fn func(s *Sprite, a []any)) func(threads.Receiver, ...any) any {
	return func(r threads.Receiver, a ...any) any {
		if s, ok := r.(*Sprite); ok {
			fn(s, a)
		}
		return nil
	}
}

func attribute(fn func(s *Sprite) any) func(threads.Receiver, ...any) any {
	return func(r threads.Receiver, a ...any) any {
		if s, ok := r.(*Sprite); ok {
			return fn(s)
		}
		return 0.0
	}
}

func init() {
	init_motion()
	init_looks()
	init_sensing()
	init_clones()
}

func init_motion() {
	threads.DeclareTitle("Motion")

	threads.Declare(&threads.Declaration{
		"forward", "moves the sprite in its direction",
		1, 1,
		[]threads.DeclarationParameter{
			threads.DeclarationParameter{"steps", "number", "distance"},
		}, "nil",
		motion(func(s *Sprite, a []any) { s.Forward(num(a[0])) }),
	})
	threads.Declare(&threads.Declaration{
		"turn", "turns clockwise",
		1, 1,
		[]threads.DeclarationParameter{
			threads.DeclarationParameter{"degrees", "number", "angle"},
		}, "nil",
		motion(func(s *Sprite, a []any) { s.SetHeading(s.heading + num(a[0])) }),
	})
	threads.Declare(&threads.Declaration{
		"turnLeft", "turns counterclockwise",
		1, 1,
		[]threads.DeclarationParameter{
			threads.DeclarationParameter{"degrees", "number", "angle"},
		}, "nil",
		motion(func(s *Sprite, a []any) { s.SetHeading(s.heading - num(a[0])) }),
	})
	threads.Declare(&threads.Declaration{
		"setHeading", "points the sprite in a direction; 0 is up, 90 is right",
		1, 1,
		[]threads.DeclarationParameter{
			threads.DeclarationParameter{"direction", "number", "angle"},
		}, "nil",
		motion(func(s *Sprite, a []any) { s.SetHeading(num(a[0])) }),
	})
	threads.Declare(&threads.Declaration{
		"doFaceTowards", "points the sprite towards another sprite or the center",
		1, 1,
		[]threads.DeclarationParameter{
			threads.DeclarationParameter{"target", "any", "sprite name or \"center\""},
		}, "nil",
		func(r threads.Receiver, a ...any) any {
			s, ok := r.(*Sprite)
			if !ok {
				return nil
			}
			var tx, ty float64
			if blocks.ToText(a[0]) != "center" {
				if p, ok := resolve(r, a[0]).(*Sprite); ok {
					tx, ty = p.Position()
				}
			}
			if tx != s.x || ty != s.y {
				s.SetHeading(math.Atan2(tx-s.x, ty-s.y) * 180 / math.Pi)
			}
			return nil
		},
	})
	threads.Declare(&threads.Declaration{
		"gotoXY", "moves the sprite to a position",
		2, 2,
		[]threads.DeclarationParameter{
			threads.DeclarationParameter{"x", "number", "x coordinate"},
			threads.DeclarationParameter{"y", "number", "y coordinate"},
		}, "nil",
		motion(func(s *Sprite, a []any) { s.SetPosition(num(a[0]), num(a[1])) }),
	})
	threads.Declare(&threads.Declaration{
		"doGotoObject", "moves the sprite to another sprite or the center",
		1, 1,
		[]threads.DeclarationParameter{
			threads.DeclarationParameter{"target", "any", "sprite name or \"center\""},
		}, "nil",
		func(r threads.Receiver, a ...any) any {
			s, ok := r.(*Sprite)
			if !ok {
				return nil
			}
			if blocks.ToText(a[0]) == "center" {
				s.SetPosition(0, 0)
			} else if p, ok := resolve(r, a[0]).(*Sprite); ok {
				s.SetPosition(p.Position())
			}
			return nil
		},
	})
	threads.Declare(&threads.Declaration{
		"changeXPosition", "moves the sprite horizontally",
		1, 1,
		[]threads.DeclarationParameter{
			threads.DeclarationParameter{"delta", "number", "distance"},
		}, "nil",
		motion(func(s *Sprite, a []any) { s.x += num(a[0]) }),
	})
	threads.Declare(&threads.Declaration{
		"setXPosition", "sets the x coordinate",
		1, 1,
		[]threads.DeclarationParameter{
			threads.DeclarationParameter{"x", "number", "x coordinate"},
		}, "nil",
		motion(func(s *Sprite, a []any) { s.x = num(a[0]) }),
	})
	threads.Declare(&threads.Declaration{
		"changeYPosition", "moves the sprite vertically",
		1, 1,
		[]threads.DeclarationParameter{
			threads.DeclarationParameter{"delta", "number", "distance"},
		}, "nil",
		motion(func(s *Sprite, a []any) { s.y += num(a[0]) }),
	})
	threads.Declare(&threads.Declaration{
		"setYPosition", "sets the y coordinate",
		1, 1,
		[]threads.DeclarationParameter{
			threads.DeclarationParameter{"y", "number", "y coordinate"},
		}, "nil",
		motion(func(s *Sprite, a []any) { s.y = num(a[0]) }),
	})
	threads.Declare(&threads.Declaration{
		"xPosition", "the x coordinate of the sprite",
		0, 0,
		[]threads.DeclarationParameter{}, "number",
		attribute(func(s *Sprite) any { return s.x }),
	})
	threads.Declare(&threads.Declaration{
		"yPosition", "the y coordinate of the sprite",
		0, 0,
		[]threads.DeclarationParameter{}, "number",
		attribute(func(s *Sprite) any { return s.y }),
	})
	threads.Declare(&threads.Declaration{
		"direction", "the heading of the sprite",
		0, 0,
		[]threads.DeclarationParameter{}, "number",
		attribute(func(s *Sprite) any { return s.heading }),
	})
}

func init_looks() {
	threads.DeclareTitle("Looks")

	threads.Declare(&threads.Declaration{
		"show", "makes the sprite visible",
		0, 0,
		[]threads.DeclarationParameter{}, "nil",
		motion(func(s *Sprite, a []any) { s.visible = true }),
	})
	threads.Declare(&threads.Declaration{
		"hide", "makes the sprite invisible",
		0, 0,
		[]threads.DeclarationParameter{}, "nil",
		motion(func(s *Sprite, a []any) { s.visible = false }),
	})
	threads.Declare(&threads.Declaration{
		"reportShown", "true if the sprite is visible",
		0, 0,
		[]threads.DeclarationParameter{}, "bool",
		func(r threads.Receiver, a ...any) any {
			s, ok := r.(*Sprite)
			return !ok || s.visible
		},
	})
	threads.Declare(&threads.Declaration{
		"setScale", "sets the size in percent",
		1, 1,
		[]threads.DeclarationParameter{
			threads.DeclarationParameter{"percent", "number", "size"},
		}, "nil",
		motion(func(s *Sprite, a []any) { s.size = math.Max(0, num(a[0])) }),
	})
	threads.Declare(&threads.Declaration{
		"changeScale", "grows or shrinks the sprite",
		1, 1,
		[]threads.DeclarationParameter{
			threads.DeclarationParameter{"delta", "number", "percent points"},
		}, "nil",
		motion(func(s *Sprite, a []any) { s.size = math.Max(0, s.size+num(a[0])) }),
	})
	threads.Declare(&threads.Declaration{
		"getScale", "the size in percent",
		0, 0,
		[]threads.DeclarationParameter{}, "number",
		attribute(func(s *Sprite) any { return s.size }),
	})
	threads.Declare(&threads.Declaration{
		"doSwitchToCostume", "switches to a costume by name",
		1, 1,
		[]threads.DeclarationParameter{
			threads.DeclarationParameter{"costume", "text", "costume name"},
		}, "nil",
		motion(func(s *Sprite, a []any) { s.costume = blocks.ToText(a[0]) }),
	})
	threads.Declare(&threads.Declaration{
		"getCostumeName", "the name of the current costume",
		0, 0,
		[]threads.DeclarationParameter{}, "text",
		attribute(func(s *Sprite) any { return s.costume }),
	})
}

func init_sensing() {
	threads.DeclareTitle("Sensing")

	threads.Declare(&threads.Declaration{
		"getTimer", "seconds since the timer was reset",
		0, 0,
		[]threads.DeclarationParameter{}, "number",
		func(r threads.Receiver, a ...any) any {
			return stageOf(r).Timer()
		},
	})
	threads.Declare(&threads.Declaration{
		"doResetTimer", "sets the timer to 0",
		0, 0,
		[]threads.DeclarationParameter{}, "nil",
		func(r threads.Receiver, a ...any) any {
			stageOf(r).ResetTimer()
			return nil
		},
	})
	threads.Declare(&threads.Declaration{
		"reportKeyPressed", "true while the key is held down",
		1, 1,
		[]threads.DeclarationParameter{
			threads.DeclarationParameter{"key", "text", "key name or \"any key\""},
		}, "bool",
		func(r threads.Receiver, a ...any) any {
			return stageOf(r).IsKeyPressed(blocks.ToText(a[0]))
		},
	})
	threads.Declare(&threads.Declaration{
		"reportObject", "the sprite or stage of that name",
		1, 1,
		[]threads.DeclarationParameter{
			threads.DeclarationParameter{"name", "any", "name or \"myself\""},
		}, "any",
		func(r threads.Receiver, a ...any) any {
			return resolve(r, a[0])
		},
	})
	threads.Declare(&threads.Declaration{
		"reportAttributeOf", "x position | y position | direction | size | costume name | shown? or a variable of a sprite",
		2, 2,
		[]threads.DeclarationParameter{
			threads.DeclarationParameter{"attribute", "text", "attribute or variable name"},
			threads.DeclarationParameter{"sprite", "any", "sprite or name"},
		}, "any",
		func(r threads.Receiver, a ...any) any {
			name := blocks.ToText(a[0])
			target := resolve(r, a[1])
			if s, ok := target.(*Sprite); ok {
				return s.attribute(name)
			}
			return target.Variables().GetVar(name)
		},
	})
}

func init_clones() {
	threads.DeclareTitle("Clones")

	clone := func(r threads.Receiver, target any) *Sprite {
		s, ok := resolve(r, target).(*Sprite)
		if !ok {
			fail(threads.TypeMismatch, "only sprites can be cloned")
		}
		return stageOf(r).Clone(s)
	}
	threads.Declare(&threads.Declaration{
		"createClone", "creates a clone that inherits variables and scripts",
		1, 1,
		[]threads.DeclarationParameter{
			threads.DeclarationParameter{"sprite", "any", "\"myself\" or a sprite name"},
		}, "nil",
		func(r threads.Receiver, a ...any) any {
			clone(r, a[0])
			return nil
		},
	})
	threads.Declare(&threads.Declaration{
		"reportNewClone", "creates a clone and reports it",
		1, 1,
		[]threads.DeclarationParameter{
			threads.DeclarationParameter{"sprite", "any", "\"myself\" or a sprite name"},
		}, "any",
		func(r threads.Receiver, a ...any) any {
			return clone(r, a[0])
		},
	})
	threads.Declare(&threads.Declaration{
		"removeClone", "deletes this clone and stops its scripts; originals ignore it",
		0, 0,
		[]threads.DeclarationParameter{}, "nil",
		func(r threads.Receiver, a ...any) any {
			if s, ok := r.(*Sprite); ok {
				stageOf(r).RemoveClone(s)
			}
			return nil
		},
	})
}
