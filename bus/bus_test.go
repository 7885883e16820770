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
package bus

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/launix-de/blockvm/blocks"
	"github.com/launix-de/blockvm/stage"
)

const project = `
(var "got" 0)
(sprite "Cat"
	(receiveMessage "go" data {(doSetVar got data) (doBroadcast "done" "all" got)}))
`

func connect(t *testing.T, b *Bus) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func receive(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var frame map[string]any
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read: %v", err)
	}
	return frame
}

func deliver(t *testing.T, b *Bus) {
	t.Helper()
	select {
	case <-b.Pending():
	case <-time.After(5 * time.Second):
		t.Fatalf("event did not arrive")
	}
	if n := b.Deliver(); n != 1 {
		t.Fatalf("expected one queued event, got %d", n)
	}
}

func TestRemoteBroadcast(t *testing.T) {
	st := stage.NewStage(nil)
	if err := st.LoadSource("bus", project); err != nil {
		t.Fatal(err)
	}
	b := New(st)
	conn := connect(t, b)

	if err := conn.WriteJSON(Event{Message: "go", Data: 5}); err != nil {
		t.Fatal(err)
	}
	deliver(t, b)
	if echo := receive(t, conn); echo["message"] != "go" || echo["data"] != 5.0 {
		t.Fatalf("broadcast not pushed: %v", echo)
	}
	started, _ := receive(t, conn)["started"].([]any)
	if len(started) != 1 {
		t.Fatalf("expected one started process, got %v", started)
	}

	for i := 0; st.Threads().HasRunning(); i++ {
		if i > 100 {
			t.Fatalf("script does not end")
		}
		st.Step()
	}
	if st.Globals().GetVar("got") != 5.0 {
		t.Fatalf("payload not bound: %v", st.Globals().GetVar("got"))
	}
	if done := receive(t, conn); done["message"] != "done" || done["data"] != 5.0 {
		t.Fatalf("script broadcast not pushed: %v", done)
	}
}

func TestRemoteErrors(t *testing.T) {
	st := stage.NewStage(nil)
	if err := st.LoadSource("bus", project); err != nil {
		t.Fatal(err)
	}
	b := New(st)
	conn := connect(t, b)

	conn.WriteMessage(websocket.TextMessage, []byte("{"))
	r := receive(t, conn)
	if msg, _ := r["error"].(string); !strings.Contains(msg, "malformed") {
		t.Fatalf("unexpected reply %v", r)
	}
	conn.WriteJSON(map[string]any{"data": 1})
	if r := receive(t, conn); r["error"] != "event without message" {
		t.Fatalf("unexpected reply %v", r)
	}
	conn.WriteJSON(Event{Message: "go", Target: "Dog"})
	deliver(t, b)
	if r := receive(t, conn); r["error"] != "no receiver named Dog" {
		t.Fatalf("unexpected reply %v", r)
	}
	if st.Threads().HasRunning() {
		t.Fatalf("unknown target started scripts")
	}

	b.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("connection still open after Close")
	}
}

func TestPublishWhileClosing(t *testing.T) {
	st := stage.NewStage(nil)
	b := New(st)
	connect(t, b)

	var c *client
	for i := 0; c == nil; i++ {
		if i > 500 {
			t.Fatalf("client did not register")
		}
		b.mu.Lock()
		for k := range b.clients {
			c = k
		}
		b.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			c.send(Event{Message: "tick", Data: float64(i)})
		}
	}()
	go func() {
		defer wg.Done()
		time.Sleep(time.Millisecond)
		c.close()
	}()
	wg.Wait()

	c.send(Event{Message: "late"})
	c.close()
	if !c.closed {
		t.Fatalf("client not marked closed")
	}
}

func TestValueConversion(t *testing.T) {
	v := value([]any{1.0, []any{"a", true}})
	l, ok := v.(*blocks.List)
	if !ok || l.Length() != 2 {
		t.Fatalf("arrays should become lists: %v", v)
	}
	inner, ok := l.At(2).(*blocks.List)
	if !ok || inner.At(1) != "a" || inner.At(2) != true {
		t.Fatalf("nested list: %v", l.At(2))
	}
	back, ok := export(l).([]any)
	if !ok || len(back) != 2 || back[0] != 1.0 {
		t.Fatalf("export: %v", back)
	}
	if export(stringer{}) != "stub" {
		t.Fatalf("other values are exported as text")
	}
}

type stringer struct{}

func (stringer) String() string { return "stub" }
