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
import "strconv"
import "github.com/google/uuid"
import "github.com/launix-de/blockvm/blocks"

// Process runs one script. It is stepped by its ThreadManager and never
// blocks: every wait is expressed as a yield and polled on the next step.
type Process struct {
	ID          uuid.UUID
	topBlock    blocks.Node
	receiver    Receiver
	context     *Context
	homeContext *Context
	tm          *ThreadManager
	host        Host

	isPaused         bool
	readyToYield     bool
	readyToTerminate bool
	isInterrupted    bool
	errorFlag        bool
	isAtomic         bool
	atomicBase       bool // started atomic, warp never ends below this
	isDead           bool
	isClicked        bool
	isShowingResult  bool
	exportResult     bool
	isCatchingErrors bool
	canBroadcast     bool
	suppressErrors   bool // errors only go to the caller of Invoke

	timeout        time.Duration
	lastYield      time.Time
	frameCount     int
	procedureCount int
	pauseOffset    time.Time
	onComplete     func(result any)
	errorHandlers  []errorHandler
	lastError      *Error
	wakeKey        *wakeup
	traceID        int
}

type errorHandler struct {
	marker  *Context
	handler *blocks.Sequence
	errVar  string
	outer   *Context
	atomic  bool
}

func newProcess(tm *ThreadManager, top blocks.Node, receiver Receiver, onComplete func(any)) *Process {
	p := &Process{
		ID:               uuid.New(),
		topBlock:         top,
		receiver:         receiver,
		tm:               tm,
		host:             tm.host,
		isCatchingErrors: Settings.CatchErrors,
		canBroadcast:     true,
		timeout:          Settings.timeout(),
		onComplete:       onComplete,
	}
	tm.traceIDs++
	p.traceID = tm.traceIDs
	p.homeContext = NewContext(nil, nil, nil, receiver)
	if receiver != nil {
		p.homeContext.variables.parentFrame = receiver.Variables()
	}
	if top != nil {
		p.context = NewContext(nil, rootExpression(top), p.homeContext, receiver)
	}
	return p
}

func rootExpression(top blocks.Node) any {
	if s, ok := top.(*blocks.Script); ok {
		return s.Body
	}
	return top
}

func (p *Process) TopBlock() blocks.Node { return p.topBlock }
func (p *Process) Receiver() Receiver    { return p.receiver }
func (p *Process) Context() *Context     { return p.context }
func (p *Process) IsPaused() bool        { return p.isPaused }
func (p *Process) IsAtomic() bool        { return p.isAtomic }
func (p *Process) ErrorFlag() bool       { return p.errorFlag }
func (p *Process) LastError() *Error     { return p.lastError }
func (p *Process) FrameCount() int       { return p.frameCount }

func (p *Process) IsRunning() bool {
	return !p.readyToTerminate && (p.context != nil || p.isPaused)
}

// Result is the value reported to the home context, if any.
func (p *Process) Result() any {
	if len(p.homeContext.inputs) > 0 {
		return p.homeContext.inputs[0]
	}
	return nil
}

func (p *Process) String() string {
	return "process " + p.ID.String()
}

// RunStep evaluates contexts until the process yields, the soft timeout
// elapses or deadline is reached. A zero deadline means no hard limit.
func (p *Process) RunStep(deadline time.Time) {
	if p.isPaused {
		return
	}
	p.readyToYield = false
	p.isInterrupted = false
	started := p.host.Now()
	p.lastYield = started
	if Trace != nil {
		Trace.EventHalf("step "+p.describeTop(), "process", "B", p.traceID, 0)
		defer Trace.EventHalf("step "+p.describeTop(), "process", "E", p.traceID, 0)
	}
	for !p.readyToYield && !p.isInterrupted && p.context != nil && !p.isPaused {
		now := p.host.Now()
		if p.timeout > 0 && now.Sub(started) >= p.timeout {
			break
		}
		if !deadline.IsZero() && !now.Before(deadline) {
			break
		}
		p.evaluateContext()
	}
	if p.readyToTerminate {
		p.unwind()
	}
}

func (p *Process) describeTop() string {
	if p.topBlock == nil {
		return "invoke"
	}
	return describe(p.topBlock)
}

// unwind drops the remaining stack and releases warp and media holds.
func (p *Process) unwind() {
	for p.context != nil {
		p.context.stopMedia()
		p.context = p.context.parentContext
	}
	if p.isAtomic {
		p.isAtomic = false
		p.host.DeferRedraw(p.receiver, false)
	}
}

func (p *Process) evaluateContext() {
	ctx := p.context
	if p.isCatchingErrors {
		defer p.recoverError(ctx)
	}
	p.frameCount++
	if ctx.tag == "exit" {
		p.expectReport()
		return
	}
	switch e := ctx.Expression.(type) {
	case nil:
		p.popContext()
	case *blocks.Sequence:
		p.evaluateSequence(e)
	case *blocks.MultiArg:
		p.evaluateMultiSlot(e)
	case *blocks.Block:
		p.evaluateBlock(e)
	case blocks.Node:
		p.evaluateInput(e)
	case pseudoOp:
		p.evaluatePseudoOp(e)
	case *Variable:
		p.returnValueToParentContext(e.Value)
		p.popContext()
	default:
		p.returnValueToParentContext(e)
		p.popContext()
	}
}

func (p *Process) recoverError(ctx *Context) {
	if r := recover(); r != nil {
		var node blocks.Node
		if b, ok := ctx.Expression.(*blocks.Block); ok {
			node = b
		}
		p.handleError(asError(r, node))
	}
}

func (p *Process) evaluateSequence(seq *blocks.Sequence) {
	ctx := p.context
	if seq == nil {
		p.popContext()
		return
	}
	statements := seq.Statements
	pc := ctx.pc
	if pc >= len(statements) {
		p.popContext()
	} else if pc == len(statements)-1 {
		// tail position: the statement takes over the sequence's record
		p.replaceContext(statements[pc], ctx.outerContext)
	} else {
		ctx.pc++
		p.pushContext(statements[pc], ctx.outerContext)
	}
}

// replaceContext swaps the current record for expression without growing
// the stack. The new record inherits the lambda and custom block flags and,
// unless given, the outer context.
func (p *Process) replaceContext(expression any, outer *Context) {
	ctx := p.context
	if outer == nil {
		outer = ctx.outerContext
	}
	next := NewContext(ctx.parentContext, expression, outer, ctx.receiver)
	next.isLambda = ctx.isLambda
	next.isImplicitLambda = ctx.isImplicitLambda
	next.isCustomBlock = ctx.isCustomBlock
	next.isCustomCommand = ctx.isCustomCommand
	ctx.stopMedia()
	p.context = next
}

func (p *Process) evaluateMultiSlot(m *blocks.MultiArg) {
	ctx := p.context
	for len(ctx.inputs) < len(m.Inputs) {
		if !p.evaluateInputNode(ctx, m.Inputs[len(ctx.inputs)], "any") {
			return
		}
	}
	p.returnValueToParentContext(blocks.NewList(ctx.inputs...))
	p.popContext()
}

func (p *Process) evaluateInput(node blocks.Node) {
	ctx := p.context
	var value any
	switch n := node.(type) {
	case *blocks.Literal:
		value = n.Value
	case *blocks.VarRef:
		value = ctx.variables.GetVar(n.Name)
	case *blocks.EmptySlot:
		value = slotValue(ctx, n)
	}
	p.returnValueToParentContext(value)
	p.popContext()
}

// slotValue is the implicit parameter bound to an empty slot, or nothing.
func slotValue(ctx *Context, slot *blocks.EmptySlot) any {
	if slot.Index > 0 {
		name := "#" + strconv.Itoa(slot.Index)
		if frame := ctx.variables.SilentFind(name); frame != nil {
			return frame.vars[name].Value
		}
	}
	return nil
}

// evaluateInputNode adds the value of a simple input to ctx right away and
// reports true. Nested blocks get a context of their own and report false.
func (p *Process) evaluateInputNode(ctx *Context, in blocks.Node, ptype string) bool {
	switch ptype {
	case "upvar":
		ctx.AddInput(blocks.NameOf(in))
		return true
	case "names":
		names := blocks.NewList()
		if m, ok := in.(*blocks.MultiArg); ok {
			for _, n := range m.Inputs {
				names.Add(blocks.NameOf(n))
			}
		} else if in != nil {
			names.Add(blocks.NameOf(in))
		}
		ctx.AddInput(names)
		return true
	case "unevaluated":
		ctx.AddInput(in)
		return true
	}
	switch n := in.(type) {
	case nil:
		ctx.AddInput(nil)
	case *blocks.Literal:
		ctx.AddInput(n.Value)
	case *blocks.VarRef:
		ctx.AddInput(ctx.variables.GetVar(n.Name))
	case *blocks.EmptySlot:
		ctx.AddInput(slotValue(ctx, n))
	case *blocks.Sequence:
		ctx.AddInput(n)
	default:
		p.pushContext(in, ctx.outerContext)
		return false
	}
	return true
}

// evaluateNextInputSet fills the inputs of b until one needs a context of its own.
func (p *Process) evaluateNextInputSet(b *blocks.Block, ptype func(i int) string) {
	ctx := p.context
	for len(ctx.inputs) < len(b.Inputs) {
		i := len(ctx.inputs)
		if !p.evaluateInputNode(ctx, b.Inputs[i], ptype(i)) {
			return
		}
	}
}

func (p *Process) evaluateBlock(b *blocks.Block) {
	ctx := p.context
	if ctx.receiver != nil {
		if def := ctx.receiver.CustomBlock(b.Selector); def != nil {
			p.evaluateCustomBlock(b, def)
			return
		}
	}
	op := dispatch[b.Selector]
	if op == nil {
		raise(TypeMismatch, "no block named %s", b.Selector)
	}
	if op.kind == formHandler {
		p.evaluateForm(op.form, b)
		return
	}
	if len(b.Inputs) < op.def.MinParameter {
		raise(TypeMismatch, "%s expects at least %d inputs but getting %d", b.Selector, op.def.MinParameter, len(b.Inputs))
	}
	if len(ctx.inputs) < len(b.Inputs) {
		if p.evaluateNextInputSet(b, op.paramType); len(ctx.inputs) < len(b.Inputs) {
			return
		}
	}
	if p.flashContext() {
		return
	}
	args := ctx.inputs[:len(b.Inputs)]
	var result any
	switch op.kind {
	case pureHandler:
		result = op.pure(args...)
	case receiverHandler:
		result = op.rcvr(ctx.receiver, args...)
	case valueHandler:
		result = op.value(p, args...)
	case controlHandler:
		op.control(p, args...)
		return
	}
	if !op.command {
		p.returnValueToParentContext(result)
	}
	p.popContext()
}

// flashContext highlights the current block in single-stepping mode and
// interrupts the process once per block.
func (p *Process) flashContext() bool {
	ctx := p.context
	if ctx.isFlashing {
		ctx.isFlashing = false
		p.host.Flash(ctx.Expression.(*blocks.Block), ctx.receiver, false)
		return false
	}
	if !Settings.SingleStepping || p.isAtomic {
		return false
	}
	ctx.isFlashing = true
	p.host.Flash(ctx.Expression.(*blocks.Block), ctx.receiver, true)
	p.pushContext(opInterrupt, nil)
	return true
}

func (p *Process) evaluatePseudoOp(op pseudoOp) {
	switch op {
	case opYield:
		p.popContext()
		if !p.isAtomic {
			p.readyToYield = true
		}
	case opPopContext:
		p.popContext()
	case opInterrupt:
		ctx := p.context
		if ctx.startTime.IsZero() {
			ctx.startTime = p.host.Now()
		}
		if wake := ctx.startTime.Add(Settings.flashTime()); p.host.Now().Before(wake) {
			p.suspend(awaitingTimer, wake)
			return
		}
		p.popContext()
		p.isInterrupted = true
	case opStopWarping:
		p.doStopWarping()
	case opExpectReport:
		p.expectReport()
	case opPopErrorHandler:
		marker := p.context
		for i := len(p.errorHandlers) - 1; i >= 0; i-- {
			if p.errorHandlers[i].marker == marker {
				p.errorHandlers = p.errorHandlers[:i]
				break
			}
		}
		p.popContext()
	}
}

func (p *Process) expectReport() {
	raise(TypeMismatch, "reporter didn't report")
}

func (p *Process) pushContext(expression any, outer *Context) {
	receiver := p.receiver
	if p.context != nil {
		if outer == nil {
			outer = p.context.outerContext
		}
		receiver = p.context.receiver
	}
	p.context = NewContext(p.context, expression, outer, receiver)
}

func (p *Process) popContext() {
	if p.context != nil {
		p.context.stopMedia()
		p.context = p.context.parentContext
	}
}

// returnValueToParentContext hands a value to the waiting parent, or to the
// home context when the root reports.
func (p *Process) returnValueToParentContext(value any) {
	target := p.homeContext
	if p.context != nil && p.context.parentContext != nil {
		target = p.context.parentContext
	}
	target.AddInput(value)
}

// Stop terminates the process. The stack unwinds at the end of the step.
func (p *Process) Stop() {
	p.readyToYield = true
	p.readyToTerminate = true
	p.errorFlag = false
	p.canBroadcast = false
	for c := p.context; c != nil; c = c.parentContext {
		c.stopMedia()
	}
}

func (p *Process) Pause() {
	if p.readyToTerminate || p.isPaused {
		return
	}
	p.isPaused = true
	p.pauseOffset = p.host.Now()
	for c := p.context; c != nil; c = c.parentContext {
		if c.activeAudio != nil {
			c.activeAudio.Pause()
		}
		if c.activeNote != nil {
			c.activeNote.Pause()
		}
	}
}

// Resume shifts every running timer by the time spent paused.
func (p *Process) Resume() {
	if !p.isPaused {
		return
	}
	p.isPaused = false
	paused := p.host.Now().Sub(p.pauseOffset)
	for c := p.context; c != nil; c = c.parentContext {
		if !c.startTime.IsZero() {
			c.startTime = c.startTime.Add(paused)
		}
		if !c.wakeAt.IsZero() {
			c.wakeAt = c.wakeAt.Add(paused)
			if c == p.context && c.suspension == awaitingTimer && p.tm != nil {
				p.tm.wakeups.schedule(p, c.wakeAt)
			}
		}
		if c.activeAudio != nil {
			c.activeAudio.Resume()
		}
		if c.activeNote != nil {
			c.activeNote.Resume()
		}
	}
	p.pauseOffset = time.Time{}
}

func (p *Process) handleError(err *Error) {
	p.lastError = err
	if err.Catchable() && p.catchLocally(err) {
		return
	}
	if p.suppressErrors {
		Log.Debug("%s: %s", p, err.Error())
	} else if err.Catchable() {
		Log.Warning("%s: %s", p, err.Error())
	} else {
		trace := ""
		if p.context != nil {
			trace = p.context.Trace()
		}
		Log.Error("%s: %s\n%s", p, err.Error(), trace)
	}
	p.Stop()
	p.errorFlag = true
	if !p.suppressErrors {
		p.host.ErrorHighlight(p.topBlock, p.receiver, err)
		p.host.ShowBubble(p.topBlock, p.receiver, err.Error(), true)
	}
}

// catchLocally hands err to the innermost try/catch whose body is still running.
func (p *Process) catchLocally(err *Error) bool {
	for len(p.errorHandlers) > 0 {
		h := p.errorHandlers[len(p.errorHandlers)-1]
		p.errorHandlers = p.errorHandlers[:len(p.errorHandlers)-1]
		if !p.onChain(h.marker) {
			continue
		}
		for c := p.context; c != nil && c != h.marker; c = c.parentContext {
			c.stopMedia()
		}
		outer := NewContext(nil, nil, h.outer, h.marker.receiver)
		if h.errVar != "" {
			outer.variables.AddVar(h.errVar, err.Message)
		}
		p.context = NewContext(h.marker.parentContext, h.handler, outer, h.marker.receiver)
		if p.isAtomic != h.atomic {
			p.isAtomic = h.atomic
			p.host.DeferRedraw(p.receiver, p.isAtomic)
		}
		return true
	}
	return false
}

func (p *Process) onChain(target *Context) bool {
	for c := p.context; c != nil; c = c.parentContext {
		if c == target {
			return true
		}
	}
	return false
}

// recomputeAtomic derives the warp state after a jump to another stack.
func (p *Process) recomputeAtomic() {
	was := p.isAtomic
	p.isAtomic = p.atomicBase
	for c := p.context; c != nil && !p.isAtomic; c = c.parentContext {
		if c.Expression == opStopWarping {
			p.isAtomic = true
		}
	}
	if was != p.isAtomic {
		p.host.DeferRedraw(p.receiver, p.isAtomic)
	}
}

func (p *Process) startWarp() {
	p.isAtomic = true
	p.host.DeferRedraw(p.receiver, true)
}

func (p *Process) doStopWarping() {
	p.popContext()
	p.isAtomic = p.atomicBase
	if !p.isAtomic {
		p.host.DeferRedraw(p.receiver, false)
	}
}
