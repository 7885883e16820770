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

import (
	"math"
	"testing"
	"time"

	"github.com/launix-de/blockvm/blocks"
	"github.com/launix-de/blockvm/threads"
)

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestStage(t *testing.T, src string) (*Stage, *clock) {
	t.Helper()
	c := &clock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
	host := threads.NewHeadlessHost()
	host.Clock = c.Now
	st := NewStage(host)
	if err := st.LoadSource("test", src); err != nil {
		t.Fatalf("load: %v", err)
	}
	return st, c
}

// settle steps until no process is left.
func settle(t *testing.T, st *Stage) {
	t.Helper()
	for i := 0; st.Threads().HasRunning(); i++ {
		if i > 1000 {
			t.Fatalf("scripts do not terminate")
		}
		st.Step()
	}
	st.Step()
}

func eval(t *testing.T, st *Stage, r threads.Receiver, src string) any {
	t.Helper()
	top, err := blocks.ReadAll("eval", src)
	if err != nil {
		t.Fatal(err)
	}
	p := st.Threads().StartProcess(top[0], r, threads.ProcessOptions{})
	settle(t, st)
	if p.ErrorFlag() {
		t.Fatalf("%s: %v", src, p.LastError())
	}
	return p.Result()
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestLoadAndGreenFlag(t *testing.T) {
	st, _ := newTestStage(t, `
		(var "score" 0)
		(define reporter "double" [n] {(doReport (reportProduct n 2))})
		(sprite "Cat"
			(position 10 20)
			(var "lives" 3)
			(receiveGo {(doChangeVar score (double 5)) (forward 10)}))
		(stage
			(receiveMessage "ping" {(doChangeVar score 1)}))
	`)
	cat := st.Sprite("Cat")
	if cat == nil {
		t.Fatalf("sprite not loaded")
	}
	if procs := st.FireGreenFlag(); len(procs) != 1 {
		t.Fatalf("expected one green flag script, got %d", len(procs))
	}
	settle(t, st)
	if v := st.Globals().GetVar("score"); v != 10.0 {
		t.Fatalf("expected score 10, got %v", v)
	}
	if x, y := cat.Position(); !near(x, 20) || !near(y, 20) {
		t.Fatalf("cat at %v %v", x, y)
	}
	st.Threads().DoBroadcast("ping", nil, nil, nil)
	settle(t, st)
	if v := st.Globals().GetVar("score"); v != 11.0 {
		t.Fatalf("stage did not receive the message, score %v", v)
	}
	if cat.Variables().GetVar("lives") != 3.0 {
		t.Fatalf("sprite variable missing")
	}
	if st.Receiver("Cat") != cat || st.Receiver("stage") != st || st.Receiver("Dog") != nil {
		t.Fatalf("receiver lookup broken")
	}
}

func TestClones(t *testing.T) {
	st, _ := newTestStage(t, `
		(var "count" 0)
		(sprite "Cat"
			(var "hp" 5)
			(receiveGo {(createClone "myself") (createClone "Cat")})
			(receiveOnClone {(doChangeVar hp 1) (changeXPosition 10) (doChangeVar count 1)}))
	`)
	cat := st.Sprite("Cat")
	st.FireGreenFlag()
	settle(t, st)
	if st.Globals().GetVar("count") != 2.0 {
		t.Fatalf("expected two clone scripts, count %v", st.Globals().GetVar("count"))
	}
	receivers := st.Receivers()
	if len(receivers) != 4 {
		t.Fatalf("expected stage, cat and two clones, got %d receivers", len(receivers))
	}
	for _, r := range receivers[2:] {
		c := r.(*Sprite)
		if !c.IsClone() || c.Prototype() != cat {
			t.Fatalf("not a clone of cat")
		}
		if c.Variables().GetVar("hp") != 6.0 {
			t.Fatalf("clone hp %v", c.Variables().GetVar("hp"))
		}
		if x, _ := c.Position(); x != 10 {
			t.Fatalf("clone x %v", x)
		}
	}
	if cat.Variables().GetVar("hp") != 5.0 {
		t.Fatalf("clone changed the prototype's variable")
	}
	if x, _ := cat.Position(); x != 0 {
		t.Fatalf("prototype moved")
	}

	// a clone without a write of its own follows the prototype
	fresh := st.Clone(cat)
	settle(t, st)
	cat.Variables().SetVar("hp", 9.0, cat)
	if fresh.Variables().GetVar("hp") != 6.0 {
		// the clone script of fresh has already shadowed hp
		t.Fatalf("fresh clone hp %v", fresh.Variables().GetVar("hp"))
	}

	st.StopAll()
	if len(st.Receivers()) != 2 {
		t.Fatalf("stop should remove all clones")
	}
}

func TestCloneInheritance(t *testing.T) {
	st, _ := newTestStage(t, `
		(sprite "Cat"
			(var "hp" 5)
			(define reporter "twice" [n] {(doReport (reportSum n n))}))
	`)
	cat := st.Sprite("Cat")
	c := st.Clone(cat)
	cat.Variables().SetVar("hp", 7.0, cat)
	if c.Variables().GetVar("hp") != 7.0 {
		t.Fatalf("clone should see the prototype's value")
	}
	if v := eval(t, st, c, "(twice hp)"); v != 14.0 {
		t.Fatalf("inherited custom block reported %v", v)
	}
	eval(t, st, c, "{(doSetVar hp 1)}")
	if c.Variables().GetVar("hp") != 1.0 || cat.Variables().GetVar("hp") != 7.0 {
		t.Fatalf("write did not shadow")
	}
	eval(t, st, c, "{(removeClone)}")
	if !c.IsDead() || len(st.Receivers()) != 2 {
		t.Fatalf("clone not removed")
	}
	eval(t, st, cat, "{(removeClone)}")
	if cat.IsDead() {
		t.Fatalf("originals must survive removeClone")
	}
}

func TestKeysAndTimer(t *testing.T) {
	st, c := newTestStage(t, `
		(sprite "Cat"
			(var "pressed" 0)
			(receiveKey "space" {(doSetVar pressed (reportKeyPressed "space"))}))
	`)
	cat := st.Sprite("Cat")
	st.SetKeyPressed("space", true)
	if procs := st.FireKeyEvent("space"); len(procs) != 1 {
		t.Fatalf("expected one key script, got %d", len(procs))
	}
	if procs := st.FireKeyEvent("a"); len(procs) != 0 {
		t.Fatalf("wrong key started a script")
	}
	settle(t, st)
	if cat.Variables().GetVar("pressed") != true {
		t.Fatalf("key state not visible")
	}
	st.SetKeyPressed("space", false)
	if st.IsKeyPressed("any key") {
		t.Fatalf("no key is down")
	}

	c.Advance(2 * time.Second)
	if v := eval(t, st, cat, "(getTimer)"); v != 2.0 {
		t.Fatalf("timer %v", v)
	}
	eval(t, st, cat, "{(doResetTimer)}")
	if st.Timer() != 0 {
		t.Fatalf("timer not reset")
	}
}

func TestMotion(t *testing.T) {
	st, c := newTestStage(t, `(sprite "Cat") (sprite "Dog" (position 0 50))`)
	cat := st.Sprite("Cat")
	eval(t, st, cat, "{(gotoXY 0 0) (setHeading 0) (forward 10) (turn 90) (forward 5)}")
	if x, y := cat.Position(); !near(x, 5) || !near(y, 10) {
		t.Fatalf("cat at %v %v", x, y)
	}
	eval(t, st, cat, "{(setHeading 270)}")
	if cat.Heading() != -90 {
		t.Fatalf("heading not normalized: %v", cat.Heading())
	}
	eval(t, st, cat, `{(gotoXY 0 0) (doFaceTowards "Dog")}`)
	if !near(cat.Heading(), 0) {
		t.Fatalf("expected to face up, got %v", cat.Heading())
	}
	if v := eval(t, st, st, `(reportAttributeOf "y position" "Dog")`); v != 50.0 {
		t.Fatalf("attribute of Dog: %v", v)
	}

	st.Threads().StartProcess(blocks.Read("glide", "{(doGlide 1 100 0)}"), cat, threads.ProcessOptions{})
	st.Step()
	c.Advance(500 * time.Millisecond)
	st.Step()
	if x, _ := cat.Position(); !near(x, 50) {
		t.Fatalf("glide halfway at %v", x)
	}
	c.Advance(500 * time.Millisecond)
	st.Step()
	if x, _ := cat.Position(); x != 100 {
		t.Fatalf("glide did not end at 100: %v", x)
	}
}

func TestTellAndLooks(t *testing.T) {
	st, c := newTestStage(t, `(sprite "Cat")`)
	cat := st.Sprite("Cat")
	eval(t, st, st, `{(doTellTo "Cat" (reifyScript {(gotoXY 3 4) (hide) (setScale 50)}))}`)
	if x, y := cat.Position(); x != 3 || y != 4 {
		t.Fatalf("tell did not move the cat: %v %v", x, y)
	}
	if cat.IsVisible() || cat.Size() != 50 {
		t.Fatalf("looks not applied")
	}
	if v := eval(t, st, st, `(reportAskFor "Cat" (reifyReporter (xPosition)))`); v != 3.0 {
		t.Fatalf("ask reported %v", v)
	}

	st.Threads().StartProcess(blocks.Read("say", `{(doSayFor "hi" 1)}`), cat, threads.ProcessOptions{})
	st.Step()
	if v, thought := cat.Bubble(); v != "hi" || thought {
		t.Fatalf("bubble %v", v)
	}
	c.Advance(time.Second)
	st.Step()
	if v, _ := cat.Bubble(); v != nil {
		t.Fatalf("bubble not cleared")
	}
}

func TestGenericHatOnStage(t *testing.T) {
	st, _ := newTestStage(t, `
		(var "x" 0)
		(var "seen" 0)
		(stage (receiveCondition (reportGreaterThan x 5) {(doChangeVar seen 1)}))
	`)
	if at, ok := st.NextWakeup(); !ok || at != st.Host().Now() {
		t.Fatalf("generic hats must be polled every frame")
	}
	st.Step()
	st.Globals().SetVar("x", 6.0, nil)
	st.Step()
	st.Step()
	st.Step()
	if st.Globals().GetVar("seen") != 1.0 {
		t.Fatalf("when hat did not fire once: %v", st.Globals().GetVar("seen"))
	}
}

func TestClear(t *testing.T) {
	st, _ := newTestStage(t, `(var "a" 1) (sprite "Cat" (receiveGo {(doForever {})}))`)
	st.FireGreenFlag()
	st.Step()
	st.Clear()
	if len(st.SpriteNames()) != 0 || st.Threads().HasRunning() {
		t.Fatalf("clear left sprites or processes behind")
	}
	if st.Globals().SilentFind("a") != nil {
		t.Fatalf("clear left globals behind")
	}
	if err := st.LoadSource("again", `(sprite "Dog")`); err != nil || st.Sprite("Dog") == nil {
		t.Fatalf("reload failed: %v", err)
	}
}
