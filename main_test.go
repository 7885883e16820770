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
package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestEngine(t *testing.T) (*engine, *bytes.Buffer) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "counter.blocks")
	src := `
		(var "n" 0)
		(sprite "Cat"
			(var "lives" 9)
			(receiveGo {(doRepeat 3 {(doChangeVar n 1)}) (bubble n)}))
	`
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	e := newEngine(newConsoleHost(&out), []string{path})
	if err := e.reload(); err != nil {
		t.Fatal(err)
	}
	return e, &out
}

func TestBatchRun(t *testing.T) {
	e, out := newTestEngine(t)
	e.stage.FireGreenFlag()
	e.loop(nil, true)
	if v := e.stage.Globals().GetVar("n"); v != 3.0 {
		t.Fatalf("expected 3 iterations, got %v", v)
	}
	if !strings.Contains(out.String(), "Cat says: 3") {
		t.Fatalf("speech not printed: %q", out.String())
	}
}

func TestEvalAndCommands(t *testing.T) {
	e, out := newTestEngine(t)
	if err := e.eval("(reportSum 1 2)"); err != nil {
		t.Fatal(err)
	}
	e.loop(nil, true)
	if !strings.Contains(out.String(), "= 3") {
		t.Fatalf("result not printed: %q", out.String())
	}

	if err := e.eval("(reportSum 1"); err == nil || !incomplete(err) {
		t.Fatalf("an open block should ask for more input: %v", err)
	}
	if err := e.eval("(reportSum 1 2))"); err == nil || incomplete(err) {
		t.Fatalf("a stray ) is a syntax error: %v", err)
	}
	if err := e.eval("(noSuchBlock)"); err == nil {
		t.Fatalf("unknown blocks must be rejected")
	}

	e.command(":sprite Cat")
	if e.current.Name() != "Cat" {
		t.Fatalf("current receiver not switched")
	}
	out.Reset()
	e.command(":vars")
	if !strings.Contains(out.String(), "lives = 9") || !strings.Contains(out.String(), "n = 0") {
		t.Fatalf("variables not listed: %q", out.String())
	}
	out.Reset()
	e.command(":go")
	if !strings.Contains(out.String(), "started 1 scripts") {
		t.Fatalf("green flag: %q", out.String())
	}
	e.command(":stop")
	if e.stage.Threads().HasRunning() {
		t.Fatalf("stop left processes running")
	}
	if e.command(":quit") {
		t.Fatalf(":quit should end the prompt")
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("unknown commands should fail")
			}
		}()
		e.command(":frobnicate")
	}()
}

func TestReload(t *testing.T) {
	e, _ := newTestEngine(t)
	e.command(":sprite Cat")
	e.stage.Globals().SetVar("n", 42.0, nil)
	e.command(":load")
	if e.current != e.stage {
		t.Fatalf("reload should return to the stage")
	}
	if e.stage.Globals().GetVar("n") != 0.0 || e.stage.Sprite("Cat") == nil {
		t.Fatalf("project not reloaded")
	}
}
