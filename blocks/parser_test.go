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
import "testing"

func TestReadBlock(t *testing.T) {
	n := Read("test", `(doSetVar "x" (reportSum 1 -2.5)) /* ignored */`)
	b, ok := n.(*Block)
	if !ok || b.Selector != "doSetVar" {
		t.Fatalf("expected doSetVar block, got %#v", n)
	}
	if len(b.Inputs) != 2 {
		t.Fatalf("expected 2 inputs, got %d", len(b.Inputs))
	}
	if lit, ok := b.Inputs[0].(*Literal); !ok || lit.Value != "x" {
		t.Fatalf("expected literal x, got %#v", b.Inputs[0])
	}
	sum := b.Inputs[1].(*Block)
	if sum.Inputs[1].(*Literal).Value != -2.5 {
		t.Fatalf("expected -2.5, got %#v", sum.Inputs[1])
	}
	if b.Source.Line != 1 || b.Source.Col != 1 {
		t.Fatalf("unexpected source position %s", b.Source)
	}
}

func TestReadShapes(t *testing.T) {
	nodes, err := ReadAll("test", "{(doFoo _ x true)}\n[1 \"a\\\"b\" nil]")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(nodes))
	}
	seq := nodes[0].(*Sequence)
	foo := seq.Statements[0].(*Block)
	if _, ok := foo.Inputs[0].(*EmptySlot); !ok {
		t.Fatalf("expected empty slot")
	}
	if v, ok := foo.Inputs[1].(*VarRef); !ok || v.Name != "x" {
		t.Fatalf("expected var x")
	}
	if foo.Inputs[2].(*Literal).Value != true {
		t.Fatalf("expected true")
	}
	multi := nodes[1].(*MultiArg)
	if multi.Inputs[1].(*Literal).Value != "a\"b" {
		t.Fatalf("escape not handled: %#v", multi.Inputs[1])
	}
	if multi.Inputs[2].(*Literal).Value != nil {
		t.Fatalf("expected nil literal")
	}
}

func TestReadErrors(t *testing.T) {
	for _, src := range []string{"(doFoo 1", "{(doFoo)]", "(1 2)", "\"open"} {
		if _, err := ReadAll("test", src); err == nil {
			t.Fatalf("expected error for %q", src)
		}
	}
	_, err := ReadAll("file.blk", "\n  (doFoo")
	if err == nil || !strings.HasPrefix(err.Error(), "file.blk:2:3") {
		t.Fatalf("expected position in error, got %v", err)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	src := `(doIf (reportLessThan x 10) {(doChangeVar "x" 1) ("my block" _ [1 2])})`
	got := String(Read("test", src))
	if got != src {
		t.Fatalf("expected %s, got %s", src, got)
	}
}

func TestMarkEmptySlots(t *testing.T) {
	n := Read("test", `(reportSum _ (reportMap (reifyReporter (reportProduct _ 2)) _))`)
	if count := MarkEmptySlots(n); count != 2 {
		t.Fatalf("expected 2 implicit slots, got %d", count)
	}
	outer := n.(*Block)
	if outer.Inputs[0].(*EmptySlot).Index != 1 {
		t.Fatalf("first slot should be #1")
	}
	mapBlock := outer.Inputs[1].(*Block)
	if mapBlock.Inputs[1].(*EmptySlot).Index != 2 {
		t.Fatalf("second slot should be #2")
	}
	ring := mapBlock.Inputs[0].(*Block)
	inner := ring.Inputs[0].(*Block).Inputs[0].(*EmptySlot)
	if inner.Index != 0 {
		t.Fatalf("nested ring slots must stay unmarked")
	}
}

func TestScriptResponds(t *testing.T) {
	hat := Read("test", `(receiveMessage "ping" data)`).(*Block)
	s := &Script{Hat: hat, Body: &Sequence{}}
	if !s.RespondsTo("ping") || s.RespondsTo("pong") || s.RespondsTo(GreenFlagMessage) {
		t.Fatalf("wrong message matching")
	}
	if s.DataVariable() != "data" {
		t.Fatalf("expected data variable, got %q", s.DataVariable())
	}
	anyHat := &Script{Hat: Read("test", `(receiveMessage "any message")`).(*Block), Body: &Sequence{}}
	if !anyHat.RespondsTo("whatever") {
		t.Fatalf("any message must match")
	}
	flag := &Script{Hat: Read("test", `(receiveGo)`).(*Block), Body: &Sequence{}}
	if !flag.RespondsTo(GreenFlagMessage) || flag.RespondsTo("go") {
		t.Fatalf("green flag matching broken")
	}
}

func TestDirectRecursion(t *testing.T) {
	body := Read("test", `{(doIf (reportLessThan n 1) {(doReport 0)}) ("count down %n" (reportDifference n 1))}`).(*Sequence)
	d := &Definition{Selector: "count down %n", Body: body}
	if !d.IsDirectlyRecursive() {
		t.Fatalf("expected recursion to be detected")
	}
	d2 := &Definition{Selector: "other", Body: body}
	if d2.IsDirectlyRecursive() {
		t.Fatalf("no recursion expected")
	}
}
