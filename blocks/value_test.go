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

import "math"
import "testing"

func TestNumberConversion(t *testing.T) {
	if f, ok := ToNumber(" 42 "); !ok || f != 42 {
		t.Fatalf("expected 42, got %v %v", f, ok)
	}
	if f, ok := ToNumber(""); !ok || f != 0 {
		t.Fatalf("empty text should be 0")
	}
	if _, ok := ToNumber("abc"); ok {
		t.Fatalf("abc is not a number")
	}
	if f, _ := ToNumber("-Infinity"); !math.IsInf(f, -1) {
		t.Fatalf("expected -Infinity")
	}
	cases := map[float64]string{
		3:                    "3",
		-0.5:                 "-0.5",
		1e21:                 "1e+21",
		math.Inf(1):          "Infinity",
		1234567.25:           "1234567.25",
		math.Copysign(0, -1): "0",
	}
	for f, want := range cases {
		if got := FormatNumber(f); got != want {
			t.Fatalf("FormatNumber(%v) = %q, want %q", f, got, want)
		}
	}
}

func TestEqual(t *testing.T) {
	if !Equal("10", 10.0) {
		t.Fatalf("numeric text equals number")
	}
	if !Equal("Hello", "hELLO") {
		t.Fatalf("text comparison ignores case")
	}
	if Equal("", 0.0) {
		t.Fatalf("empty text is not zero for equality")
	}
	if !Equal(NewList(1.0, "a"), NewList("1", "A")) {
		t.Fatalf("lists compare element-wise")
	}
	if Equal(NewList(1.0), 1.0) {
		t.Fatalf("list never equals a scalar")
	}
	if CompareText("apple", "Banana") >= 0 {
		t.Fatalf("apple sorts before Banana")
	}
}

func TestLinkedList(t *testing.T) {
	l := NewList()
	for i := 5; i >= 1; i-- {
		l = Cons(float64(i), l)
	}
	if !l.IsLinked() || l.Length() != 5 {
		t.Fatalf("expected linked list of 5, got %d", l.Length())
	}
	if l.At(3) != 3.0 || l.At(6) != nil {
		t.Fatalf("At is 1-based")
	}
	rest := l.Cdr()
	if rest.First() != 2.0 || rest.Length() != 4 {
		t.Fatalf("cdr shares structure")
	}
	l.Add(6.0)
	if l.IsLinked() || l.Length() != 6 || l.At(6) != 6.0 {
		t.Fatalf("mutation converts to arrayed")
	}
	if rest.Length() != 4 {
		t.Fatalf("cdr must not see the mutation")
	}
	l.Insert(0.0, 1)
	l.Remove(7)
	l.Put("x", 2)
	if l.String() != `[0 "x" 2 3 4 5]` {
		t.Fatalf("unexpected list %s", l.String())
	}
	if l.IndexOf("X") != 2 || !l.Contains(4.0) {
		t.Fatalf("search uses snap equality")
	}
}
