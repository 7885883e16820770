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
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/launix-de/blockvm/blocks"
)

func TestBroadcastAndWait(t *testing.T) {
	f := newFixture()
	f.vars("n", "done")
	f.obj.AddScript(hatScript(t, `(receiveMessage "go")`, "{(doWait 1) (doChangeVar n 1)}"))

	p := f.start(t, `{(doBroadcastAndWait "go") (doSetVar done 1)}`)
	f.tm.Step()
	if len(f.tm.Processes()) != 2 {
		t.Fatalf("expected the receiver to be started, got %d processes", len(f.tm.Processes()))
	}
	f.tm.Step()
	f.clock.Advance(time.Second)
	f.tm.Step()
	if f.get("n") != 1.0 || f.get("done") != 0.0 {
		t.Fatalf("sender went on too early: n=%v done=%v", f.get("n"), f.get("done"))
	}
	f.finish(t, p)
	if f.get("done") != 1.0 {
		t.Fatalf("sender did not continue")
	}
}

func TestBroadcastAndWaitWithoutReceivers(t *testing.T) {
	f := newFixture()
	f.vars("done")
	p := f.start(t, `{(doBroadcastAndWait "nobody") (doSetVar done 1)}`)
	f.tm.Step()
	if f.get("done") != 1.0 || p.IsRunning() {
		t.Fatalf("sender should go on in the same step: done=%v", f.get("done"))
	}
}

func TestBroadcastAndWaitRestartsSender(t *testing.T) {
	f := newFixture()
	f.vars("n")
	f.obj.AddScript(hatScript(t, `(receiveMessage "go")`, `{(doChangeVar n 1) (doBroadcastAndWait "go")}`))
	f.tm.DoBroadcast("go", nil, nil, nil)
	for i := 0; i < 3; i++ {
		f.tm.Step()
		for _, p := range f.tm.Processes() {
			if p.ErrorFlag() {
				t.Fatalf("restart raised %v", p.LastError())
			}
		}
	}
	if len(f.host.Bubbles()) != 0 {
		t.Fatalf("a restart must stop the sender quietly, got %d bubbles", len(f.host.Bubbles()))
	}
	if f.get("n") != 3.0 {
		t.Fatalf("expected one restart per step, got n=%v", f.get("n"))
	}
	if len(f.tm.Processes()) != 1 {
		t.Fatalf("expected exactly the restarted script, got %d processes", len(f.tm.Processes()))
	}
}

func TestBroadcastData(t *testing.T) {
	f := newFixture()
	f.vars("got")
	f.obj.AddScript(hatScript(t, `(receiveMessage "go" data)`, "{(doSetVar got data)}"))
	var heard []string
	f.tm.AddMessageListener("", func(message string, data any) {
		heard = append(heard, message+"="+blocks.ToText(data))
	})

	f.run(t, `(doBroadcast "go" "all" 42)`)
	for i := 0; i < 3; i++ {
		f.tm.Step()
	}
	if f.get("got") != 42.0 {
		t.Fatalf("expected the payload 42, got %v", f.get("got"))
	}
	f.run(t, `(doBroadcast "go")`)
	for i := 0; i < 3; i++ {
		f.tm.Step()
	}
	if f.get("got") != "go" {
		t.Fatalf("payload should default to the message, got %v", f.get("got"))
	}
	if len(heard) != 2 || heard[0] != "go=42" || heard[1] != "go=go" {
		t.Fatalf("listener saw %v", heard)
	}
}

func TestStartProcessRestarts(t *testing.T) {
	f := newFixture()
	f.vars("x")
	s := hatScript(t, "(receiveGo)", "{(doForever {(doChangeVar x 1)})}")
	p1 := f.tm.StartProcess(s, f.obj, ProcessOptions{})
	if p2 := f.tm.StartProcess(s, f.obj, ProcessOptions{IsThreadSafe: true}); p2 != p1 {
		t.Fatalf("thread safe start should keep the running process")
	}
	p3 := f.tm.StartProcess(s, f.obj, ProcessOptions{})
	if p3 == p1 || p1.IsRunning() {
		t.Fatalf("start should restart the script")
	}
	if len(f.tm.Processes()) != 1 {
		t.Fatalf("expected one process, got %d", len(f.tm.Processes()))
	}
	if f.host.ThreadCount(s) != 1 {
		t.Fatalf("script should be highlighted once")
	}
	f.tm.StopAllForBlock(s)
	f.tm.Step()
	if f.host.ThreadCount(s) != 0 {
		t.Fatalf("highlight not removed")
	}
}

func TestDeadReceiver(t *testing.T) {
	f := newFixture()
	ghost := NewObject("ghost", nil)
	ghost.Variables().AddVar("x", 0.0)
	completed := false
	f.tm.StartProcess(parse(t, "{(doForever {(doChangeVar x 1)})}"), ghost, ProcessOptions{
		OnComplete: func(any) { completed = true },
	})
	f.tm.Step()
	ghost.SetDead(true)
	f.tm.Step()
	if len(f.tm.Processes()) != 0 {
		t.Fatalf("process of a removed sprite still scheduled")
	}
	if completed {
		t.Fatalf("a killed process must not report completion")
	}
	if ghost.Variables().GetVar("x") != 1.0 {
		t.Fatalf("process ran after its sprite died")
	}
}

func TestOnComplete(t *testing.T) {
	f := newFixture()
	var got any
	p := f.tm.StartProcess(parse(t, "(reportSum 1 2)"), f.obj, ProcessOptions{OnComplete: func(v any) { got = v }})
	f.finish(t, p)
	if got != 3.0 {
		t.Fatalf("expected 3, got %v", got)
	}
	p = f.tm.StartProcess(parse(t, "(reportSum 2 2)"), f.obj, ProcessOptions{IsClicked: true})
	f.finish(t, p)
	bubbles := f.host.Bubbles()
	if len(bubbles) != 1 || bubbles[0].Value != 4.0 || bubbles[0].IsError {
		t.Fatalf("clicked reporter should show its result, got %v", bubbles)
	}
}

func TestInvoke(t *testing.T) {
	f := newFixture()
	v, err := f.tm.Invoke(NewRing(parse(t, "(reportSum _ 1)"), f.obj), blocks.NewList(41.0), nil, time.Second, false)
	if err != nil || v != 42.0 {
		t.Fatalf("expected 42, got %v %v", v, err)
	}
	v, err = f.tm.Invoke(NewRing(parse(t, "{(doReport (reportJoinWords a b))}"), f.obj, "a", "b"), blocks.NewList("x", "y"), nil, time.Second, false)
	if err != nil || v != "xy" {
		t.Fatalf("expected xy, got %v %v", v, err)
	}
	_, err = f.tm.Invoke(NewRing(parse(t, "(reportModulus 1 0)"), f.obj), nil, nil, time.Second, true)
	e, ok := err.(*Error)
	if !ok || e.Kind != DivisionOrDomainError {
		t.Fatalf("expected a domain error, got %v", err)
	}
	if len(f.host.Bubbles()) != 0 {
		t.Fatalf("suppressed errors must not show a bubble")
	}
	_, err = f.tm.Invoke(42.0, nil, nil, time.Second, false)
	if e, ok := err.(*Error); !ok || e.Kind != TypeMismatch {
		t.Fatalf("expected a type mismatch, got %v", err)
	}
}

type traceBuffer struct {
	strings.Builder
}

func (b *traceBuffer) Close() error { return nil }

func TestInvokeTrace(t *testing.T) {
	f := newFixture()
	buf := &traceBuffer{}
	Trace = NewTrace(buf)
	defer func() { Trace = nil }()
	if _, err := f.tm.Invoke(NewRing(parse(t, "(reportSum _ 1)"), f.obj), blocks.NewList(1.0), nil, time.Second, false); err != nil {
		t.Fatal(err)
	}
	Trace.Close()
	out := buf.String()
	if !strings.Contains(out, `"name":"invoke","cat":"process","ph":"B"`) || !strings.Contains(out, `"name":"invoke","cat":"process","ph":"E"`) {
		t.Fatalf("invoke not traced: %s", out)
	}
}

func TestInvokeTimeout(t *testing.T) {
	f := newFixture()
	f.host.Clock = nil // real time
	f.vars("x")
	start := time.Now()
	_, err := f.tm.Invoke(NewRing(parse(t, "{(doForever {(doChangeVar x 1)})}"), f.obj), nil, nil, 20*time.Millisecond, true)
	e, ok := err.(*Error)
	if !ok || e.Kind != TimeoutExceeded {
		t.Fatalf("expected a timeout, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("timeout was not enforced")
	}
	if f.get("x").(float64) < 1 {
		t.Fatalf("the ring did not run")
	}
}

func TestGenericWhen(t *testing.T) {
	f := newFixture()
	f.vars("x", "fired")
	f.obj.AddScript(hatScript(t, "(receiveCondition (reportGreaterThan x 2))", "{(doChangeVar fired 1)}"))
	settle := func() {
		for i := 0; i < 3; i++ {
			f.tm.Step()
		}
	}

	f.tm.StepGenericConditions(false)
	settle()
	if f.get("fired") != 0.0 {
		t.Fatalf("fired while the condition is false")
	}
	f.obj.Variables().SetVar("x", 3.0, f.obj)
	f.tm.StepGenericConditions(false)
	settle()
	f.tm.StepGenericConditions(false)
	settle()
	if f.get("fired") != 1.0 {
		t.Fatalf("expected one firing on the rising edge, got %v", f.get("fired"))
	}
	f.obj.Variables().SetVar("x", 0.0, f.obj)
	f.tm.StepGenericConditions(false)
	f.obj.Variables().SetVar("x", 5.0, f.obj)
	f.tm.StepGenericConditions(false)
	settle()
	if f.get("fired") != 2.0 {
		t.Fatalf("expected a second firing, got %v", f.get("fired"))
	}

	// sampling only: a condition that is already true stays quiet
	f.obj.Variables().SetVar("x", 0.0, f.obj)
	f.tm.StepGenericConditions(false)
	f.obj.Variables().SetVar("x", 4.0, f.obj)
	f.tm.StepGenericConditions(true)
	f.tm.StepGenericConditions(false)
	settle()
	if f.get("fired") != 2.0 {
		t.Fatalf("sampled condition fired: %v", f.get("fired"))
	}

	f.tm.PauseCustomHats(true)
	f.obj.Variables().SetVar("x", 0.0, f.obj)
	f.tm.StepGenericConditions(false)
	f.obj.Variables().SetVar("x", 9.0, f.obj)
	f.tm.StepGenericConditions(false)
	settle()
	if f.get("fired") != 2.0 {
		t.Fatalf("paused hats fired")
	}
}

func TestAsk(t *testing.T) {
	f := newFixture()
	f.host.Answers = []string{"Alice"}
	if v := f.run(t, `{(doAsk "name?") (doReport (reportJoinWords "hi " (reportLastAnswer)))}`); v != "hi Alice" {
		t.Fatalf("expected hi Alice, got %v", v)
	}
	if v := f.run(t, `{(doAsk "again?") (doReport (reportLastAnswer))}`); v != "" {
		t.Fatalf("expected an empty answer, got %v", v)
	}
}

func TestSayAndSounds(t *testing.T) {
	f := newFixture()
	f.host.Sounds["pop"] = 2 * time.Second
	f.vars("x")
	p := f.start(t, `{(doSayFor "hello" 1) (doPlaySoundUntilDone "pop") (doPlaySoundUntilDone "missing") (doSetVar x 1)}`)
	f.tm.Step()
	if said := f.host.Said(); len(said) != 1 || said[0] != "Sprite: hello" {
		t.Fatalf("unexpected speech %v", said)
	}
	f.clock.Advance(time.Second)
	f.tm.Step()
	f.clock.Advance(time.Second)
	f.tm.Step()
	if f.get("x") != 0.0 {
		t.Fatalf("sound did not wait")
	}
	f.clock.Advance(time.Second)
	f.finish(t, p)
	if f.get("x") != 1.0 {
		t.Fatalf("script did not finish")
	}
}

func waitFor(t *testing.T, f *fixture, p *Process) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for p.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatalf("%s does not terminate", p)
		}
		f.tm.Step()
		time.Sleep(time.Millisecond)
	}
	f.tm.Step()
}

func TestReportURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "hello from "+r.URL.Path)
	}))
	defer srv.Close()

	f := newFixture()
	p := f.start(t, fmt.Sprintf(`(reportURL "%s/blocks")`, srv.URL))
	waitFor(t, f, p)
	if p.ErrorFlag() || p.Result() != "hello from /blocks" {
		t.Fatalf("unexpected result %v %v", p.Result(), p.LastError())
	}

	p = f.start(t, fmt.Sprintf(`(reportURL "%s/missing")`, srv.URL))
	waitFor(t, f, p)
	if !p.ErrorFlag() || p.LastError().Kind != HostIOError {
		t.Fatalf("expected an IO error, got %v", p.LastError())
	}
}

func TestSettings(t *testing.T) {
	saved := Settings
	defer func() { Settings = saved }()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("Tempo: 90\nThreadSafe: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := LoadSettings(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if Settings.Tempo != 90 || !Settings.ThreadSafe || Settings.FrameRate != 60 {
		t.Fatalf("unexpected settings %+v", Settings)
	}
	if ChangeSettings("Tempo") != 90.0 {
		t.Fatalf("ChangeSettings does not read the tempo")
	}
	ChangeSettings("Tempo", 120.0)
	f := newFixture()
	if v := f.run(t, `(reportSettings "Tempo")`); v != 120.0 {
		t.Fatalf("expected tempo 120, got %v", v)
	}
	if err := LoadSettings(filepath.Join(t.TempDir(), "nothing.yaml")); err == nil {
		t.Fatalf("missing file should fail")
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(parse(t, "{(doSetVar x (reportSum 1 2))}"), nil); err != nil {
		t.Fatalf("valid script rejected: %v", err)
	}
	if err := Validate(parse(t, "{(doSetVar x (reportQuotient 1))}"), nil); err == nil || !strings.Contains(err.Error(), "at least 2") {
		t.Fatalf("expected an input count error, got %v", err)
	}
	if err := Validate(parse(t, "(frobnicate 1)"), nil); err == nil || !strings.Contains(err.Error(), "unknown block") {
		t.Fatalf("expected an unknown block error, got %v", err)
	}
	def := &blocks.Definition{Selector: "frobnicate", Params: []blocks.Param{{Name: "n"}}}
	resolve := func(selector string) *blocks.Definition {
		if selector == def.Selector {
			return def
		}
		return nil
	}
	if err := Validate(parse(t, "(frobnicate 1)"), resolve); err != nil {
		t.Fatalf("custom block rejected: %v", err)
	}
}

func TestWriteDocumentation(t *testing.T) {
	dir := t.TempDir()
	if err := WriteDocumentation(dir); err != nil {
		t.Fatalf("docs: %v", err)
	}
	index, err := os.ReadFile(filepath.Join(dir, "index.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(index), "Arithmetic") {
		t.Fatalf("index misses the arithmetic chapter:\n%s", index)
	}
	chapter, err := os.ReadFile(filepath.Join(dir, slugify("Arithmetic")+".md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(chapter), "## reportSum") {
		t.Fatalf("chapter misses reportSum")
	}
}
