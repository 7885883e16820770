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

/*
	the message bus lets remote programs take part in broadcasts over a
	websocket. Clients send {"message": "go", "data": 42, "target": "Cat"}
	and get {"started": [process ids]} back. Every broadcast of the project,
	including those from scripts, is pushed to all clients as
	{"message": ..., "data": ...}.
*/
package bus

import "fmt"
import "sort"
import "sync"
import "time"
import "net/http"
import "encoding/json"
import "github.com/gorilla/websocket"
import "github.com/launix-de/blockvm/blocks"
import "github.com/launix-de/blockvm/threads"

const outboxSize = 256

// World is what the bus needs from the project: its scheduler and receivers by name.
type World interface {
	Threads() *threads.ThreadManager
	Receiver(name string) threads.Receiver
}

type Event struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Target  string `json:"target,omitempty"`
}

type reply struct {
	Started []string `json:"started,omitempty"`
	Error   string   `json:"error,omitempty"`
}

type request struct {
	event  Event
	client *client
}

type client struct {
	conn *websocket.Conn

	mu     sync.Mutex // guards out and closed
	out    chan []byte
	closed bool
}

// send queues a frame; a client that does not keep up loses frames.
func (c *client) send(v any) {
	msg, err := json.Marshal(v)
	if err != nil {
		threads.Log.Error("bus: %s", err.Error())
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.out <- msg:
	default:
		threads.Log.Warning("bus: dropping frame for %s", c.conn.RemoteAddr())
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.out)
	c.conn.Close()
}

func (c *client) writeLoop() {
	for msg := range c.out {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			threads.Log.Debug("bus: write to %s: %s", c.conn.RemoteAddr(), err.Error())
			return
		}
	}
}

// Bus is an http.Handler. Incoming events are queued until the scheduler
// goroutine calls Deliver.
type Bus struct {
	world    World
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]bool
	queue   []request
	pending chan struct{}
}

// New attaches a bus to the world. It must be called on the scheduler goroutine.
func New(world World) *Bus {
	b := &Bus{
		world:   world,
		clients: make(map[*client]bool),
		pending: make(chan struct{}, 1),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	world.Threads().AddMessageListener("", func(message string, data any) {
		b.publish(Event{Message: message, Data: export(data)})
	})
	return b
}

// Pending is signalled whenever events wait for Deliver.
func (b *Bus) Pending() <-chan struct{} {
	return b.pending
}

func (b *Bus) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	conn, err := b.upgrader.Upgrade(res, req, nil)
	if err != nil {
		threads.Log.Warning("bus: upgrade failed: %s", err.Error())
		return
	}
	c := &client{conn: conn, out: make(chan []byte, outboxSize)}
	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()
	threads.Log.Info("bus: %s connected", conn.RemoteAddr())
	go c.writeLoop()
	go b.readLoop(c)
}

func (b *Bus) readLoop(c *client) {
	defer func() {
		b.mu.Lock()
		delete(b.clients, c)
		b.mu.Unlock()
		c.close()
		threads.Log.Info("bus: %s disconnected", c.conn.RemoteAddr())
	}()
	for {
		messageType, msg, err := c.conn.ReadMessage()
		if err != nil {
			if _, ok := err.(*websocket.CloseError); !ok {
				threads.Log.Debug("bus: read from %s: %s", c.conn.RemoteAddr(), err.Error())
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		var e Event
		if err := json.Unmarshal(msg, &e); err != nil {
			c.send(reply{Error: "malformed event: " + err.Error()})
			continue
		}
		if e.Message == "" {
			c.send(reply{Error: "event without message"})
			continue
		}
		b.mu.Lock()
		b.queue = append(b.queue, request{e, c})
		b.mu.Unlock()
		select {
		case b.pending <- struct{}{}:
		default:
		}
	}
}

// Deliver broadcasts the queued events into the project and answers each
// sender with the processes it started. Call it on the scheduler goroutine.
func (b *Bus) Deliver() int {
	b.mu.Lock()
	queue := b.queue
	b.queue = nil
	b.mu.Unlock()
	for _, r := range queue {
		var targets []threads.Receiver
		if r.event.Target != "" {
			target := b.world.Receiver(r.event.Target)
			if target == nil {
				r.client.send(reply{Error: "no receiver named " + r.event.Target})
				continue
			}
			targets = []threads.Receiver{target}
		}
		procs := b.world.Threads().DoBroadcast(r.event.Message, value(r.event.Data), targets, nil)
		ids := make([]string, len(procs))
		for i, p := range procs {
			ids[i] = p.ID.String()
		}
		r.client.send(reply{Started: ids})
	}
	return len(queue)
}

func (b *Bus) publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		c.send(e)
	}
}

// Close disconnects all clients.
func (b *Bus) Close() {
	b.mu.Lock()
	clients := b.clients
	b.clients = make(map[*client]bool)
	b.mu.Unlock()
	for c := range clients {
		c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"), time.Now().Add(time.Second))
		c.close()
	}
}

// value turns decoded JSON into block values; arrays become lists.
func value(v any) any {
	switch x := v.(type) {
	case []any:
		items := make([]any, len(x))
		for i, item := range x {
			items[i] = value(item)
		}
		return blocks.NewList(items...)
	case map[string]any:
		// objects become a list of [key value] pairs, sorted by key
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]any, 0, len(x))
		for _, k := range keys {
			pairs = append(pairs, blocks.NewList(k, value(x[k])))
		}
		return blocks.NewList(pairs...)
	}
	return v
}

// export is the inverse of value for anything JSON can carry.
func export(v any) any {
	switch x := v.(type) {
	case nil, bool, float64, string:
		return x
	case *blocks.List:
		items := x.ItemsArray()
		result := make([]any, len(items))
		for i, item := range items {
			result[i] = export(item)
		}
		return result
	}
	return fmt.Sprint(v)
}
