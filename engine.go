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

import "io"
import "fmt"
import "sort"
import "sync"
import "time"
import "strings"
import "github.com/launix-de/blockvm/bus"
import "github.com/launix-de/blockvm/blocks"
import "github.com/launix-de/blockvm/stage"
import "github.com/launix-de/blockvm/threads"

// consoleHost prints speech bubbles, results and errors.
type consoleHost struct {
	*threads.HeadlessHost
	mu  sync.Mutex
	out io.Writer
}

func newConsoleHost(out io.Writer) *consoleHost {
	return &consoleHost{HeadlessHost: threads.NewHeadlessHost(), out: out}
}

func (h *consoleHost) printf(format string, args ...any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprintf(h.out, format, args...)
}

func format(v any) string {
	if l, ok := v.(*blocks.List); ok {
		return l.String()
	}
	return blocks.ToText(v)
}

func nameOf(r threads.Receiver) string {
	if r == nil {
		return "?"
	}
	return r.Name()
}

func (h *consoleHost) Say(r threads.Receiver, value any, thought bool) {
	h.HeadlessHost.Say(r, value, thought)
	if value == nil || value == "" {
		return
	}
	verb := "says"
	if thought {
		verb = "thinks"
	}
	h.printf("%s %s: %s\n", nameOf(r), verb, format(value))
}

func (h *consoleHost) ShowBubble(top blocks.Node, r threads.Receiver, value any, isError bool) {
	h.HeadlessHost.ShowBubble(top, r, value, isError)
	if isError {
		h.printf("\033[31m!\033[0m %s: %s\n", nameOf(r), format(value))
	} else {
		h.printf("\033[31m=\033[0m %s\n", format(value))
	}
}

// engine owns the stage. Everything touching it runs on the goroutine of
// loop; other goroutines hand work over with do.
type engine struct {
	stage   *stage.Stage
	host    *consoleHost
	bus     *bus.Bus // nil without -remote
	tasks   chan func()
	files   []string
	current threads.Receiver
}

func newEngine(host *consoleHost, files []string) *engine {
	e := &engine{
		stage: stage.NewStage(host),
		host:  host,
		tasks: make(chan func(), 16),
		files: files,
	}
	e.current = e.stage
	return e
}

// do runs f on the scheduler goroutine and waits for it. It must not be
// called from the scheduler goroutine itself.
func (e *engine) do(f func()) {
	done := make(chan struct{})
	e.tasks <- func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				e.host.printf("error: %v\n", r)
			}
		}()
		f()
	}
	<-done
}

func (e *engine) pending() <-chan struct{} {
	if e.bus == nil {
		return nil
	}
	return e.bus.Pending()
}

// reload clears the stage and loads all project files again.
func (e *engine) reload() error {
	e.stage.Clear()
	e.current = e.stage
	for _, f := range e.files {
		if err := e.stage.LoadProject(f); err != nil {
			return err
		}
	}
	return nil
}

// eval starts every block of src as a clicked script of the current receiver.
func (e *engine) eval(src string) error {
	nodes, err := blocks.ReadAll("user prompt", src)
	if err != nil {
		return err
	}
	resolve := e.current.CustomBlock
	for _, n := range nodes {
		if err := threads.Validate(n, resolve); err != nil {
			return err
		}
	}
	for _, n := range nodes {
		e.stage.Threads().StartProcess(n, e.current, threads.ProcessOptions{IsClicked: true})
	}
	return nil
}

func toAny(s []string) []any {
	result := make([]any, len(s))
	for i, v := range s {
		result[i] = v
	}
	return result
}

// incomplete tells whether a parse error only means that more lines follow.
func incomplete(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "expecting matching") && !strings.Contains(msg, "but found")
}

const commandHelp = `Commands:
  :go                    click the green flag
  :stop                  stop all scripts and remove clones
  :pause / :resume       pause or resume all scripts
  :broadcast MSG [DATA]  send a message
  :key NAME              press a key
  :sprite [NAME]         evaluate as NAME; without NAME list all sprites
  :vars                  show the variables of the current sprite
  :ps                    list running processes
  :set [KEY VALUE]       show or change a setting
  :load                  reload the project files
  :help [SELECTOR]       this text, or help for a block
  :quit                  leave
Everything else is evaluated as blocks, e.g. (reportSum 1 2)
`

// command runs a :command of the prompt on the scheduler goroutine. It
// returns false for :quit.
func (e *engine) command(line string) bool {
	fields := strings.Fields(strings.TrimPrefix(line, ":"))
	if len(fields) == 0 {
		return true
	}
	arg := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}
	tm := e.stage.Threads()
	switch fields[0] {
	case "quit", "exit", "q":
		return false
	case "help":
		if arg(1) == "" {
			e.host.printf("%s\n", commandHelp)
		}
		threads.Help(arg(1))
	case "go":
		procs := e.stage.FireGreenFlag()
		e.host.printf("started %d scripts\n", len(procs))
	case "stop":
		e.stage.StopAll()
	case "pause":
		tm.PauseAll()
	case "resume":
		tm.ResumeAll()
	case "broadcast":
		if arg(1) == "" {
			panic("usage: :broadcast MSG [DATA]")
		}
		var data any
		if len(fields) > 2 {
			data = strings.Join(fields[2:], " ")
			if f, ok := blocks.ToNumber(data); ok {
				data = f
			}
		}
		procs := tm.DoBroadcast(arg(1), data, nil, nil)
		e.host.printf("started %d scripts\n", len(procs))
	case "key":
		key := strings.Join(fields[1:], " ")
		e.stage.SetKeyPressed(key, true)
		e.stage.FireKeyEvent(key)
		time.AfterFunc(100*time.Millisecond, func() {
			e.tasks <- func() { e.stage.SetKeyPressed(key, false) }
		})
	case "sprite":
		name := strings.Join(fields[1:], " ")
		if name == "" {
			e.host.printf("%s\n", strings.Join(append([]string{e.stage.Name()}, e.stage.SpriteNames()...), ", "))
			return true
		}
		r := e.stage.Receiver(name)
		if r == nil {
			panic("there is no sprite named " + name)
		}
		e.current = r
	case "vars":
		frame := e.current.Variables()
		for _, name := range frame.AllNames() {
			e.host.printf("  %s = %s\n", name, format(frame.GetVar(name)))
		}
	case "ps":
		procs := tm.Processes()
		sort.SliceStable(procs, func(i, j int) bool { return nameOf(procs[i].Receiver()) < nameOf(procs[j].Receiver()) })
		for _, p := range procs {
			state := "running"
			if p.IsPaused() {
				state = "paused"
			} else if !p.IsRunning() {
				state = "done"
			}
			e.host.printf("  %s %-8s %s\n", p.ID.String()[:8], state, p.String())
		}
	case "set":
		if len(fields) < 3 {
			e.host.printf("%s\n", format(threads.ChangeSettings(toAny(fields[1:])...)))
			return true
		}
		var value any = fields[2]
		if f, ok := blocks.ToNumber(value); ok {
			value = f
		}
		threads.ChangeSettings(fields[1], value)
	case "load":
		if err := e.reload(); err != nil {
			panic(err)
		}
		e.host.printf("loaded %d sprites\n", len(e.stage.SpriteNames()))
	default:
		panic("unknown command :" + fields[0] + ", type :help")
	}
	return true
}
