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

import "time"
import "github.com/launix-de/blockvm/blocks"

// MessageCallback listens to broadcasts outside of scripts.
type MessageCallback func(message string, data any)

type ProcessOptions struct {
	IsClicked    bool // started by the user, the result is shown
	ExportResult bool
	IsThreadSafe bool // a running instance is kept instead of restarted
	RightAway    bool // run the first step immediately
	Atomic       bool
	OnComplete   func(result any)
	Variables    *VariableFrame // extra script variables, e.g. message data
}

type hatKey struct {
	script   *blocks.Script
	receiver Receiver
}

type highlightKey struct {
	top      blocks.Node
	receiver Receiver
}

// ThreadManager schedules all processes of a project. It is not safe for
// concurrent use; everything runs on the goroutine that calls Step.
type ThreadManager struct {
	processes            []*Process
	host                 Host
	world                World
	wakeups              *wakeQueue
	messageCallbacks     map[string][]MessageCallback
	hatStates            map[hatKey]bool
	highlighted          map[highlightKey]int
	pauseCustomHatBlocks bool
	wantsToPause         bool
	traceIDs             int

	LastAnswer string
}

func NewThreadManager(host Host, world World) *ThreadManager {
	if host == nil {
		host = NewHeadlessHost()
	}
	return &ThreadManager{
		host:             host,
		world:            world,
		wakeups:          newWakeQueue(),
		messageCallbacks: make(map[string][]MessageCallback),
		hatStates:        make(map[hatKey]bool),
		highlighted:      make(map[highlightKey]int),
	}
}

func (tm *ThreadManager) Host() Host      { return tm.host }
func (tm *ThreadManager) World() World    { return tm.world }
func (tm *ThreadManager) SetWorld(w World) { tm.world = w }

// Processes lists the scheduled processes in registration order.
func (tm *ThreadManager) Processes() []*Process {
	return append([]*Process(nil), tm.processes...)
}

// StartProcess runs top for receiver. A process already running the same
// script is restarted, or returned as is when the start is thread safe.
func (tm *ThreadManager) StartProcess(top blocks.Node, receiver Receiver, opts ProcessOptions) *Process {
	if active := tm.FindProcess(top, receiver); active != nil {
		if opts.IsThreadSafe {
			return active
		}
		active.Stop()
		tm.removeTerminatedProcesses()
	}
	p := newProcess(tm, top, receiver, opts.OnComplete)
	p.isClicked = opts.IsClicked
	p.exportResult = opts.ExportResult
	if opts.Atomic {
		p.isAtomic = true
		p.atomicBase = true
	}
	if opts.Variables != nil {
		p.homeContext.variables.Merge(opts.Variables)
	}
	tm.processes = append(tm.processes, p)
	Log.Debug("%s started: %s", p, describe(top))
	if opts.RightAway {
		p.RunStep(time.Time{})
	}
	tm.highlight()
	return p
}

// FindProcess returns the running process of top for receiver.
func (tm *ThreadManager) FindProcess(top blocks.Node, receiver Receiver) *Process {
	for _, p := range tm.processes {
		if p.topBlock == top && p.receiver == receiver && p.IsRunning() {
			return p
		}
	}
	return nil
}

func (tm *ThreadManager) ProcessesForBlock(top blocks.Node) []*Process {
	var result []*Process
	for _, p := range tm.processes {
		if p.topBlock == top && p.IsRunning() {
			result = append(result, p)
		}
	}
	return result
}

func (tm *ThreadManager) ToggleProcess(top blocks.Node, receiver Receiver) *Process {
	if active := tm.FindProcess(top, receiver); active != nil {
		active.Stop()
		return nil
	}
	return tm.StartProcess(top, receiver, ProcessOptions{IsClicked: true})
}

func (tm *ThreadManager) StopProcess(top blocks.Node, receiver Receiver) {
	if active := tm.FindProcess(top, receiver); active != nil {
		active.Stop()
	}
}

// StopAll stops every process except the given one (which may be nil).
func (tm *ThreadManager) StopAll(except *Process) {
	for _, p := range tm.processes {
		if p != except {
			p.Stop()
		}
	}
	Log.Debug("stopped all processes")
}

func (tm *ThreadManager) StopAllForReceiver(r Receiver, except *Process) {
	for _, p := range tm.processes {
		if p.receiver == r && p != except {
			p.Stop()
		}
	}
}

func (tm *ThreadManager) StopAllForBlock(top blocks.Node) {
	for _, p := range tm.processes {
		if p.topBlock == top {
			p.Stop()
		}
	}
}

func (tm *ThreadManager) PauseAll() {
	for _, p := range tm.processes {
		p.Pause()
	}
}

func (tm *ThreadManager) ResumeAll() {
	for _, p := range tm.processes {
		p.Resume()
	}
}

func (tm *ThreadManager) IsPaused() bool {
	for _, p := range tm.processes {
		if p.isPaused {
			return true
		}
	}
	return false
}

// PauseCustomHats switches generic "when" hats off and on.
func (tm *ThreadManager) PauseCustomHats(paused bool) {
	tm.pauseCustomHatBlocks = paused
}

// Step advances every process by one step in registration order. Processes
// started during the step run from the next step on.
func (tm *ThreadManager) Step() {
	tm.wakeups.expire(tm.host.Now())
	for _, p := range tm.processes {
		if p.receiver != nil && p.receiver.IsDead() {
			p.isDead = true
			p.Stop()
			continue
		}
		if g, ok := p.receiver.(Grabbable); ok && g.IsPickedUp() {
			continue
		}
		if p.IsRunning() {
			p.RunStep(time.Time{})
		}
	}
	tm.removeTerminatedProcesses()
	if tm.wantsToPause {
		tm.wantsToPause = false
		tm.PauseAll()
	}
}

func (tm *ThreadManager) removeTerminatedProcesses() {
	var remaining []*Process
	var finished []*Process
	for _, p := range tm.processes {
		if p.IsRunning() && !p.isDead {
			remaining = append(remaining, p)
		} else {
			finished = append(finished, p)
		}
	}
	tm.processes = remaining
	for _, p := range finished {
		if p.readyToTerminate {
			p.unwind()
		}
		tm.wakeups.remove(p)
		tm.finish(p)
	}
	tm.highlight()
}

// finish delivers the result of a process that ran to its end.
func (tm *ThreadManager) finish(p *Process) {
	if p.errorFlag || p.isDead {
		return
	}
	result := p.Result()
	if p.onComplete != nil {
		p.onComplete(result)
	} else if p.isClicked && (p.isShowingResult || len(p.homeContext.inputs) > 0) {
		tm.host.ShowBubble(p.topBlock, p.receiver, result, false)
	}
	if p.exportResult {
		Log.Info("%s reported %s", p, blocks.ToText(result))
	}
	Log.Debug("%s finished after %d frames", p, p.frameCount)
}

// highlight tells the host how many processes run each script.
func (tm *ThreadManager) highlight() {
	counts := make(map[highlightKey]int)
	for _, p := range tm.processes {
		if p.topBlock != nil && p.IsRunning() {
			counts[highlightKey{p.topBlock, p.receiver}]++
		}
	}
	for k := range tm.highlighted {
		if counts[k] == 0 {
			tm.host.Highlight(k.top, k.receiver, 0)
		}
	}
	for k, n := range counts {
		if tm.highlighted[k] != n {
			tm.host.Highlight(k.top, k.receiver, n)
		}
	}
	tm.highlighted = counts
}

// DoBroadcast starts every script of the targets whose hat responds to
// message. No targets means all receivers of the world.
func (tm *ThreadManager) DoBroadcast(message string, data any, targets []Receiver, sender *Process) []*Process {
	if message == "" {
		return nil
	}
	if targets == nil && tm.world != nil {
		targets = tm.world.Receivers()
	}
	if data == nil {
		data = message
	}
	var procs []*Process
	for _, r := range targets {
		if r == nil || r.IsDead() {
			continue
		}
		for _, s := range r.Scripts() {
			if !s.RespondsTo(message) {
				continue
			}
			vars := NewFrame(nil, nil)
			if name := s.DataVariable(); name != "" {
				vars.AddVar(name, data)
			}
			if name := s.MessageVariable(); name != "" {
				vars.AddVar(name, message)
			}
			procs = append(procs, tm.StartProcess(s, r, ProcessOptions{IsThreadSafe: Settings.ThreadSafe, Variables: vars}))
		}
	}
	for _, fn := range tm.messageCallbacks[message] {
		fn(message, data)
	}
	for _, fn := range tm.messageCallbacks[""] {
		fn(message, data)
	}
	if sender != nil {
		Log.Debug("%s broadcasts %q to %d processes", sender, message, len(procs))
	}
	return procs
}

// AddMessageListener registers fn for message; "" listens to every message.
func (tm *ThreadManager) AddMessageListener(message string, fn MessageCallback) {
	tm.messageCallbacks[message] = append(tm.messageCallbacks[message], fn)
}

// DoWhen fires a generic "when" hat on the rising edge of its condition.
// With stopIt the condition is only sampled, so a condition that is
// already true does not fire later.
func (tm *ThreadManager) DoWhen(s *blocks.Script, r Receiver, stopIt bool) {
	cond := s.Condition()
	if cond == nil || tm.pauseCustomHatBlocks {
		return
	}
	if tm.FindProcess(s, r) != nil {
		return
	}
	key := hatKey{s, r}
	v, err := tm.Invoke(NewRing(cond, r), nil, r, Settings.invokeTimeout(), true)
	if err != nil {
		Log.Debug("condition of %s: %s", describe(s), err.Error())
	}
	test, _ := v.(bool)
	was := tm.hatStates[key]
	tm.hatStates[key] = test
	if test && !was && !stopIt {
		tm.StartProcess(s, r, ProcessOptions{IsThreadSafe: true})
	}
}

// StepGenericConditions polls the generic hats of all receivers.
func (tm *ThreadManager) StepGenericConditions(stopIt bool) {
	if !Settings.EnableCustomHats || tm.world == nil {
		return
	}
	for _, r := range tm.world.Receivers() {
		if r.IsDead() {
			continue
		}
		for _, s := range r.Scripts() {
			if s.Condition() != nil {
				tm.DoWhen(s, r, stopIt)
			}
		}
	}
}

// Invoke calls a ring synchronously and returns what it reports. The call
// runs warped; it fails with TimeoutExceeded when it takes longer than
// timeout (0 uses Settings.InvokeTimeout).
func (tm *ThreadManager) Invoke(fn any, args *blocks.List, receiver Receiver, timeout time.Duration, suppressErrors bool) (result any, err error) {
	ring, ok := fn.(*Context)
	if !ok {
		return nil, &Error{Kind: TypeMismatch, Message: "expecting a ring but getting " + blocks.TypeOf(fn)}
	}
	if receiver == nil {
		receiver = ring.receiver
	} else if receiver != ring.receiver {
		ring = contextFor(ring, receiver)
	}
	if timeout <= 0 {
		timeout = Settings.invokeTimeout()
	}
	proc := newProcess(tm, nil, receiver, nil)
	proc.isAtomic = true
	proc.atomicBase = true
	proc.isCatchingErrors = true
	proc.suppressErrors = suppressErrors
	defer tm.wakeups.remove(proc)

	proc.context = NewContext(nil, nil, proc.homeContext, receiver)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = asError(r, nil)
			}
		}()
		proc.evaluate(ring, args, false)
	}()
	if err != nil {
		return nil, err
	}

	deadline := tm.host.Now().Add(timeout)
	run := func() {
		for proc.IsRunning() {
			if !tm.host.Now().Before(deadline) {
				proc.Stop()
				proc.unwind()
				err = &Error{Kind: TimeoutExceeded, Message: "a synchronous call took longer than " + timeout.String()}
				return
			}
			proc.RunStep(deadline)
		}
	}
	if Trace != nil {
		Trace.Duration("invoke", "process", proc.traceID, run)
	} else {
		run()
	}
	if err != nil {
		return nil, err
	}
	if proc.errorFlag {
		return nil, proc.lastError
	}
	return proc.Result(), nil
}

// NextWakeup tells when Step has work to do. It is now while any process
// polls every frame, else the earliest timer. ok is false when nothing runs.
func (tm *ThreadManager) NextWakeup() (at time.Time, ok bool) {
	running := false
	for _, p := range tm.processes {
		if !p.IsRunning() || p.isPaused {
			continue
		}
		running = true
		if p.context == nil || p.context.suspension != awaitingTimer || p.wakeKey == nil {
			return tm.host.Now(), true
		}
	}
	if !running {
		return time.Time{}, false
	}
	return tm.wakeups.next()
}

// HasRunning reports whether any process still has work.
func (tm *ThreadManager) HasRunning() bool {
	for _, p := range tm.processes {
		if p.IsRunning() {
			return true
		}
	}
	return false
}

func init() {
	init_control()
	init_rings()
	init_hof()
	init_alu()
	init_strings()
	init_lists()
	init_vars()
	init_timed()

	DeclareTitle("Threads")
	Declare(&Declaration{
		"doPauseAll", "pauses all processes at the end of this step",
		0, 0,
		[]DeclarationParameter{}, "nil",
		func(p *Process, a ...any) any {
			p.tm.wantsToPause = true
			return nil
		},
	})
	Declare(&Declaration{
		"reportIsFastTracking", "true while the process runs warped",
		0, 0,
		[]DeclarationParameter{}, "bool",
		func(p *Process, a ...any) any {
			return p.isAtomic
		},
	})
}
