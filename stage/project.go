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

import "io"
import "os"
import "fmt"
import "strings"
import "path/filepath"
import "compress/gzip"
import "github.com/ulikunitz/xz"
import "github.com/pierrec/lz4/v4"
import "github.com/launix-de/blockvm/blocks"
import "github.com/launix-de/blockvm/threads"

/* project files are block scripts with a few top level forms:

	(var "name" value)                           global variable
	(define command "sel" [a (upvar "b")] {...})  global custom block
	(stage forms...)                             the stage
	(sprite "Name" forms...)                     a sprite

forms inside stage and sprite:

	(var "name" value)
	(define reporter "sel" [params] {body} warp)
	(position x y) (heading deg) (costume "name")   sprites only
	(receiveGo {...}) (receiveMessage "msg" data {...}) (receiveKey "space" {...})
	(receiveCondition (predicate) {...}) (receiveOnClone {...})
*/

// LoadProject reads a project file into the stage. Files ending in .xz,
// .lz4 or .gz are decompressed first.
func (st *Stage) LoadProject(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening project: %w", err)
	}
	defer f.Close()
	var r io.Reader = f
	switch {
	case strings.HasSuffix(path, ".xz"):
		if r, err = xz.NewReader(f); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	case strings.HasSuffix(path, ".lz4"):
		r = lz4.NewReader(f)
	case strings.HasSuffix(path, ".gz"):
		if r, err = gzip.NewReader(f); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return st.LoadSource(filepath.Base(path), string(data))
}

// LoadSource adds the sprites, scripts and variables of a project text.
func (st *Stage) LoadSource(name, src string) (err error) {
	nodes, err := blocks.ReadAll(name, src)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("loading %s: %v", name, r)
		}
	}()
	var loaded []*threads.Object
	for _, n := range nodes {
		b, ok := n.(*blocks.Block)
		if !ok {
			panic(fmt.Sprintf("expecting a top level form, got %s", blocks.String(n)))
		}
		switch b.Selector {
		case "var":
			declareVar(st.globals, b)
		case "define":
			st.Define(definition(b))
		case "stage":
			st.applyForms(st.Object, nil, b.Inputs)
			loaded = append(loaded, st.Object)
		case "sprite":
			if len(b.Inputs) == 0 {
				panic(b.Source.String() + ": sprite needs a name")
			}
			s := st.AddSprite(blocks.NameOf(b.Inputs[0]))
			st.applyForms(s.Object, s, b.Inputs[1:])
			loaded = append(loaded, s.Object)
		default:
			panic(b.Source.String() + ": unknown top level form " + b.Selector)
		}
	}
	for _, d := range st.Definitions() {
		if err := threads.Validate(d.Body, st.CustomBlock); err != nil {
			return err
		}
	}
	for _, o := range loaded {
		if err := validate(o); err != nil {
			return err
		}
	}
	threads.Log.Info("loaded %s: %d sprites", name, len(st.sprites))
	return nil
}

func validate(o *threads.Object) error {
	for _, d := range o.Definitions() {
		if err := threads.Validate(d.Body, o.CustomBlock); err != nil {
			return err
		}
	}
	for _, s := range o.Scripts() {
		if cond := s.Condition(); cond != nil {
			if err := threads.Validate(cond, o.CustomBlock); err != nil {
				return err
			}
		}
		if err := threads.Validate(s.Body, o.CustomBlock); err != nil {
			return err
		}
	}
	return nil
}

func (st *Stage) applyForms(o *threads.Object, s *Sprite, forms []blocks.Node) {
	for _, n := range forms {
		b, ok := n.(*blocks.Block)
		if !ok {
			panic(fmt.Sprintf("%s: expecting a form, got %s", o.Name(), blocks.String(n)))
		}
		switch {
		case b.Selector == "var":
			declareVar(o.Variables(), b)
		case b.Selector == "define":
			o.Define(definition(b))
		case strings.HasPrefix(b.Selector, "receive"):
			o.AddScript(hatScript(b))
		case s == nil:
			panic(b.Source.String() + ": the stage has no " + b.Selector)
		case b.Selector == "position":
			s.SetPosition(literalNumber(b, 0), literalNumber(b, 1))
		case b.Selector == "heading":
			s.SetHeading(literalNumber(b, 0))
		case b.Selector == "costume":
			s.costume = blocks.NameOf(b.Input(0))
		default:
			panic(b.Source.String() + ": unknown form " + b.Selector)
		}
	}
}

// hatScript splits (receiveX inputs... {body}) into hat and body.
func hatScript(b *blocks.Block) *blocks.Script {
	n := len(b.Inputs)
	if n == 0 {
		panic(b.Source.String() + ": " + b.Selector + " needs a script")
	}
	body, ok := b.Inputs[n-1].(*blocks.Sequence)
	if !ok {
		panic(b.Source.String() + ": " + b.Selector + " needs a script as its last input")
	}
	hat := &blocks.Block{Selector: b.Selector, Inputs: b.Inputs[:n-1], Source: b.Source}
	return &blocks.Script{Hat: hat, Body: body}
}

func declareVar(frame *threads.VariableFrame, b *blocks.Block) {
	name := blocks.NameOf(b.Input(0))
	if name == "" {
		panic(b.Source.String() + ": var needs a name")
	}
	frame.AddVar(name, literal(b.Input(1)))
}

// literal is the value of a constant input; [a b c] is a list.
func literal(n blocks.Node) any {
	switch v := n.(type) {
	case nil:
		return 0.0
	case *blocks.Literal:
		return v.Value
	case *blocks.VarRef:
		return v.Name
	case *blocks.MultiArg:
		items := make([]any, len(v.Inputs))
		for i, in := range v.Inputs {
			items[i] = literal(in)
		}
		return blocks.NewList(items...)
	}
	panic("expecting a constant, got " + blocks.String(n))
}

func literalNumber(b *blocks.Block, i int) float64 {
	f, ok := blocks.ToNumber(literal(b.Input(i)))
	if !ok {
		panic(b.Source.String() + ": " + b.Selector + " expects numbers")
	}
	return f
}

// definition reads (define kind "selector" [params] {body} [warp]).
func definition(b *blocks.Block) *blocks.Definition {
	if len(b.Inputs) < 3 {
		panic(b.Source.String() + ": define needs a kind, a selector and a body")
	}
	d := &blocks.Definition{Selector: blocks.NameOf(b.Inputs[1])}
	switch blocks.NameOf(b.Inputs[0]) {
	case "command":
		d.Kind = blocks.Command
	case "reporter":
		d.Kind = blocks.Reporter
	case "predicate":
		d.Kind = blocks.Predicate
	default:
		panic(b.Source.String() + ": unknown block kind " + blocks.NameOf(b.Inputs[0]))
	}
	rest := b.Inputs[2:]
	if params, ok := rest[0].(*blocks.MultiArg); ok {
		for _, p := range params.Inputs {
			d.Params = append(d.Params, parameter(b, p))
		}
		rest = rest[1:]
	}
	if len(rest) == 0 {
		panic(b.Source.String() + ": define " + d.Selector + " has no body")
	}
	body, ok := rest[0].(*blocks.Sequence)
	if !ok {
		panic(b.Source.String() + ": the body of " + d.Selector + " must be a script")
	}
	d.Body = body
	if len(rest) > 1 {
		switch w := rest[1].(type) {
		case *blocks.VarRef:
			d.Warp = w.Name == "warp"
		case *blocks.Literal:
			d.Warp = blocks.ToBool(w.Value)
		}
	}
	return d
}

// parameter reads name, (upvar "name") or (param "name" default).
func parameter(def *blocks.Block, n blocks.Node) blocks.Param {
	if b, ok := n.(*blocks.Block); ok {
		switch b.Selector {
		case "upvar":
			return blocks.Param{Name: blocks.NameOf(b.Input(0)), IsUpvar: true}
		case "param":
			return blocks.Param{Name: blocks.NameOf(b.Input(0)), Default: literal(b.Input(1))}
		}
		panic(def.Source.String() + ": unknown parameter form " + b.Selector)
	}
	name := blocks.NameOf(n)
	if name == "" {
		panic(def.Source.String() + ": parameter without a name")
	}
	return blocks.Param{Name: name}
}
