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

import (
	"math"
	"testing"

	"github.com/launix-de/blockvm/blocks"
)

func TestQuotient(t *testing.T) {
	f := newFixture()
	if v := f.run(t, "(reportQuotient 5 0)"); v != math.Inf(1) {
		t.Fatalf("5/0: expected +Inf, got %v", v)
	}
	if v := f.run(t, "(reportQuotient -5 0)"); v != math.Inf(-1) {
		t.Fatalf("-5/0: expected -Inf, got %v", v)
	}
	if v := f.run(t, "(reportQuotient 0 0)"); v != 0.0 {
		t.Fatalf("0/0: expected 0, got %v", v)
	}
	if v := f.run(t, "(reportQuotient 7 2)"); v != 3.5 {
		t.Fatalf("7/2: expected 3.5, got %v", v)
	}
}

func TestArithmetic(t *testing.T) {
	f := newFixture()
	cases := map[string]any{
		"(reportSum)":                     0.0,
		"(reportSum 1 2 3)":               6.0,
		"(reportSum \"2\" 3)":             5.0,
		"(reportDifference 10 4)":         6.0,
		"(reportProduct 2 3 4)":           24.0,
		"(reportModulus -7 3)":            2.0,
		"(reportModulus 7 -3)":            -2.0,
		"(reportPower 2 10)":              1024.0,
		"(reportRound 2.5)":               3.0,
		"(reportRound -2.5)":              -2.0,
		"(reportMonadic \"abs\" -3)":      3.0,
		"(reportMonadic \"sqrt\" 16)":     4.0,
		"(reportMonadic \"floor\" 2.7)":   2.0,
		"(reportMonadic \"10^\" 2)":       100.0,
		"(reportMin 4 2 8)":               2.0,
		"(reportMax 4 2 8)":               8.0,
		"(reportLessThan 2 10)":           true,
		"(reportLessThan \"b\" \"a\")":    false,
		"(reportEquals \"ABC\" \"abc\")":  true,
		"(reportEquals 1 \"1.0\")":        true,
		"(reportNotEquals 1 2)":           true,
		"(reportNot false)":               true,
		"(reportGreaterThanOrEquals 3 3)": true,
	}
	for src, want := range cases {
		if v := f.run(t, src); v != want {
			t.Fatalf("%s: expected %v, got %v", src, want, v)
		}
	}
	v := f.run(t, "(reportSum (reportNewList 1 2) 10)")
	if !blocks.Equal(v, blocks.NewList(11.0, 12.0)) {
		t.Fatalf("hyper sum: got %s", blocks.ToText(v))
	}
	if r := f.run(t, "(reportRandom 1 6)").(float64); r < 1 || r > 6 || r != math.Floor(r) {
		t.Fatalf("random out of range: %v", r)
	}
}

func TestDomainErrors(t *testing.T) {
	f := newFixture()
	for _, src := range []string{
		"(reportModulus 1 0)",
		"(reportMonadic \"sqrt\" -1)",
		"(reportMonadic \"ln\" 0)",
		"(reportMonadic \"asin\" 2)",
		"(reportPower -8 0.5)",
	} {
		if e := f.runError(t, src); e.Kind != DivisionOrDomainError {
			t.Fatalf("%s: expected DivisionOrDomainError, got %v", src, e)
		}
	}
}

func TestText(t *testing.T) {
	f := newFixture()
	cases := map[string]any{
		"(reportJoinWords \"hello\" \" \" \"world\")":      "hello world",
		"(reportJoinWords (reportNewList \"a\" \"b\") 1)":  "ab1",
		"(reportLetter 2 \"äbc\")":                         "b",
		"(reportLetter \"last\" \"abc\")":                  "c",
		"(reportLetter 9 \"abc\")":                         "",
		"(reportStringSize \"äöü\")":                       3.0,
		"(reportUnicode \"A\")":                            65.0,
		"(reportUnicodeAsLetter 97)":                       "a",
		"(reportTextAttribute \"upper case\" \"straße\")": "STRASSE",
		"(reportTextAttribute \"trimmed\" \"  x \")":       "x",
		"(reportListLength (reportTextSplit \"a b  c\" \"word\"))": 3.0,
		"(reportListItem 2 (reportTextSplit \"a,b\" \",\"))":       "b",
	}
	for src, want := range cases {
		if v := f.run(t, src); v != want {
			t.Fatalf("%s: expected %v, got %v", src, want, v)
		}
	}
}

func TestLists(t *testing.T) {
	f := newFixture()
	f.obj.Variables().AddVar("l", blocks.NewList())
	f.run(t, `{
		(doSetVar l (reportNumbers 1 5))
		(doDeleteFromList 1 l)
		(doDeleteFromList "last" l)
		(doInsertInList 9 1 l)
		(doReplaceInList 2 l "x")
		(doAddToList "end" l)
	}`)
	want := blocks.NewList(9.0, "x", 3.0, 4.0, "end")
	if !blocks.Equal(f.get("l"), want) {
		t.Fatalf("expected %s, got %s", want, blocks.ToText(f.get("l")))
	}
	cases := map[string]any{
		"(reportListItem \"last\" (reportNewList 1 2 3))":         3.0,
		"(reportListItem 5 (reportNewList 1 2 3))":                "",
		"(reportListContainsItem (reportNewList \"A\" 2) \"a\")":  true,
		"(reportListIndex 3 (reportNewList 1 2 3))":               3.0,
		"(reportListIsEmpty (reportCDR (reportNewList 1)))":       true,
		"(reportListLength (reportCONS 1 (reportNewList 2 3)))":   3.0,
		"(reportTypeOf (reportNewList))":                          "list",
		"(reportTypeOf (reifyReporter (reportSum _ 1)))":          "reporter",
		"(reportTypeOf (reifyScript {}))":                         "command",
		"(reportIsA 5 \"number\")":                                true,
		"(reportIsA (reifyPredicate (reportNot _)) \"ring\")":     true,
		"(reportTypeOf (reifyPredicate (reportNot _)))":           "predicate",
	}
	for src, want := range cases {
		if v := f.run(t, src); v != want {
			t.Fatalf("%s: expected %v, got %v", src, want, v)
		}
	}
	f.run(t, `(doDeleteFromList "all" l)`)
	if f.get("l").(*blocks.List).Length() != 0 {
		t.Fatalf("delete all left items")
	}
}

func TestHigherOrderOnLinkedLists(t *testing.T) {
	f := newFixture()
	linked := "(reportCONS 1 (reportCONS 2 (reportNewList 3)))"
	v := f.run(t, "(reportMap (reifyReporter (reportProduct _ 2)) "+linked+")")
	if !blocks.Equal(v, blocks.NewList(2.0, 4.0, 6.0)) {
		t.Fatalf("map: got %s", blocks.ToText(v))
	}
	v = f.run(t, "(reportKeep (reifyPredicate (reportGreaterThan _ 1)) "+linked+")")
	if !blocks.Equal(v, blocks.NewList(2.0, 3.0)) {
		t.Fatalf("keep: got %s", blocks.ToText(v))
	}
	if v := f.run(t, "(reportFindFirst (reifyPredicate (reportGreaterThan _ 1)) "+linked+")"); v != 2.0 {
		t.Fatalf("find: got %v", v)
	}
	if v := f.run(t, "(reportFindFirst (reifyPredicate (reportGreaterThan _ 5)) "+linked+")"); v != "" {
		t.Fatalf("find without match: got %v", v)
	}
	if v := f.run(t, "(reportCombine "+linked+" (reifyReporter (reportSum _ _)))"); v != 6.0 {
		t.Fatalf("combine: got %v", v)
	}
	if v := f.run(t, "(reportCombine (reportNewList) (reifyReporter (reportSum _ _)))"); v != nil {
		t.Fatalf("combine of nothing: got %v", v)
	}
	v = f.run(t, "(reportMap (reifyReporter (reportSum item idx) [item idx]) (reportNewList 10 20))")
	if !blocks.Equal(v, blocks.NewList(11.0, 22.0)) {
		t.Fatalf("map with index: got %s", blocks.ToText(v))
	}
	if v := f.run(t, "(reportPipe 3 (reifyReporter (reportSum _ 1)) (reifyReporter (reportProduct _ 10)))"); v != 40.0 {
		t.Fatalf("pipe: got %v", v)
	}
}

func TestVariables(t *testing.T) {
	f := newFixture()
	f.vars("x")
	f.run(t, "{(doSetVar x \"abc\") (doChangeVar x 2)}")
	if f.get("x") != 2.0 {
		t.Fatalf("change of a text counts from 0, got %v", f.get("x"))
	}
	if v := f.run(t, "{(doDeclareVariables a b) (doSetVar a 4) (doReport (reportSum a b))}"); v != 4.0 {
		t.Fatalf("expected 4, got %v", v)
	}
	if f.obj.Variables().SilentFind("a") != nil {
		t.Fatalf("script variable leaked into the sprite")
	}
}

func TestShadowing(t *testing.T) {
	f := newFixture()
	f.vars("x")
	f.obj.Variables().SetVar("x", 1.0, f.obj)
	c := &testClone{NewObject("clone", f.obj.Variables())}
	c.Variables().SetOwner(c)

	p := f.tm.StartProcess(parse(t, "{(doSetVar x 5)}"), c, ProcessOptions{})
	f.finish(t, p)
	if f.get("x") != 1.0 {
		t.Fatalf("clone wrote through to the prototype: %v", f.get("x"))
	}
	if c.Variables().GetVar("x") != 5.0 {
		t.Fatalf("clone did not get its own copy")
	}
	f.run(t, "{(doSetVar x 2)}")
	if c.Variables().GetVar("x") != 5.0 {
		t.Fatalf("shadowed variable follows the prototype")
	}
	p = f.tm.StartProcess(parse(t, "{(doChangeVar x 1)}"), c, ProcessOptions{})
	f.finish(t, p)
	if c.Variables().GetVar("x") != 6.0 || f.get("x") != 2.0 {
		t.Fatalf("unexpected values clone=%v prototype=%v", c.Variables().GetVar("x"), f.get("x"))
	}
}
