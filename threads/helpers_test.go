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
	"testing"
	"time"

	"github.com/launix-de/blockvm/blocks"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type testWorld struct {
	receivers []Receiver
}

func (w *testWorld) Receivers() []Receiver { return w.receivers }

func (w *testWorld) Receiver(name string) Receiver {
	for _, r := range w.receivers {
		if r.Name() == name {
			return r
		}
	}
	return nil
}

// testClone copies inherited variables on write like a sprite clone.
type testClone struct {
	*Object
}

func (c *testClone) ShadowVar(name string, value any) {
	c.Variables().AddVar(name, value)
}

type fixture struct {
	tm    *ThreadManager
	host  *HeadlessHost
	clock *fakeClock
	obj   *Object
	world *testWorld
}

func newFixture() *fixture {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	host := NewHeadlessHost()
	host.Clock = clock.Now
	obj := NewObject("Sprite", NewFrame(nil, nil))
	world := &testWorld{[]Receiver{obj}}
	return &fixture{NewThreadManager(host, world), host, clock, obj, world}
}

func parse(t *testing.T, src string) blocks.Node {
	t.Helper()
	nodes, err := blocks.ReadAll("test", src)
	if err != nil {
		t.Fatalf("parse %s: %v", src, err)
	}
	if len(nodes) != 1 {
		t.Fatalf("parse %s: expected one node, got %d", src, len(nodes))
	}
	return nodes[0]
}

func hatScript(t *testing.T, hat, body string) *blocks.Script {
	t.Helper()
	return &blocks.Script{Hat: parse(t, hat).(*blocks.Block), Body: parse(t, body).(*blocks.Sequence)}
}

func (f *fixture) start(t *testing.T, src string) *Process {
	t.Helper()
	return f.tm.StartProcess(parse(t, src), f.obj, ProcessOptions{})
}

// finish steps until p has ended.
func (f *fixture) finish(t *testing.T, p *Process) {
	t.Helper()
	for i := 0; p.IsRunning(); i++ {
		if i > 10000 {
			t.Fatalf("%s does not terminate", p)
		}
		f.tm.Step()
	}
	f.tm.Step()
}

// run evaluates src to its end and returns the reported value.
func (f *fixture) run(t *testing.T, src string) any {
	t.Helper()
	p := f.start(t, src)
	f.finish(t, p)
	if p.ErrorFlag() {
		t.Fatalf("%s: %v", src, p.LastError())
	}
	return p.Result()
}

func (f *fixture) runError(t *testing.T, src string) *Error {
	t.Helper()
	p := f.start(t, src)
	f.finish(t, p)
	if !p.ErrorFlag() {
		t.Fatalf("%s: expected an error, got %v", src, p.Result())
	}
	return p.LastError()
}

func (f *fixture) get(name string) any {
	return f.obj.Variables().GetVar(name)
}

func (f *fixture) vars(names ...string) {
	for _, name := range names {
		f.obj.Variables().AddVar(name, 0.0)
	}
}

// recordingHost remembers redraw holds and the sounds it started.
type recordingHost struct {
	*HeadlessHost
	deferred []bool
	sounds   []*timedPlayback
}

func (h *recordingHost) DeferRedraw(r Receiver, on bool) {
	h.deferred = append(h.deferred, on)
}

func (h *recordingHost) PlaySound(r Receiver, name string) Playback {
	pb := h.HeadlessHost.PlaySound(r, name)
	if t, ok := pb.(*timedPlayback); ok {
		h.sounds = append(h.sounds, t)
	}
	return pb
}

func (h *recordingHost) redrawDeferred() bool {
	return len(h.deferred) > 0 && h.deferred[len(h.deferred)-1]
}

func newRecordingFixture() (*fixture, *recordingHost) {
	f := newFixture()
	h := &recordingHost{HeadlessHost: f.host}
	f.tm = NewThreadManager(h, f.world)
	return f, h
}

// deepestStack steps p to its end and returns its largest context stack.
func (f *fixture) deepestStack(t *testing.T, p *Process, maxSteps int) int {
	t.Helper()
	deepest := 0
	for i := 0; p.IsRunning(); i++ {
		if i > maxSteps {
			t.Fatalf("%s does not terminate", p)
		}
		f.tm.Step()
		if p.Context() != nil && p.Context().StackSize() > deepest {
			deepest = p.Context().StackSize()
		}
	}
	return deepest
}
