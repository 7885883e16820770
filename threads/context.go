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

import "fmt"
import "time"
import "strings"
import "github.com/launix-de/blockvm/blocks"

// pseudoOp is an internal instruction pushed onto the context stack.
type pseudoOp int

const (
	opYield pseudoOp = iota + 1
	opPopContext
	opInterrupt
	opStopWarping
	opExpectReport
	opPopErrorHandler
)

func (o pseudoOp) String() string {
	switch o {
	case opYield:
		return "yield"
	case opPopContext:
		return "popContext"
	case opInterrupt:
		return "interrupt"
	case opStopWarping:
		return "stopWarping"
	case opExpectReport:
		return "expectReport"
	case opPopErrorHandler:
		return "popErrorHandler"
	}
	return "op?"
}

type suspension int

const (
	notSuspended suspension = iota
	awaitingYield
	awaitingTimer
	awaitingIO
	awaitingProcesses
	awaitingAnswer
	awaitingAudio
)

func (s suspension) String() string {
	return [...]string{"running", "yield", "timer", "io", "processes", "answer", "audio"}[s]
}

// stateCopier is implemented by accumulators that continuations must not share.
type stateCopier interface {
	copyState() any
}

// Context is one activation record. Rings, closures and continuations are
// contexts as well.
type Context struct {
	Expression    any // blocks.Node, pseudoOp or *Variable
	parentContext *Context
	outerContext  *Context
	receiver      Receiver
	variables     *VariableFrame
	inputs        []any
	pc            int
	tag           string

	isContinuation   bool
	isLambda         bool
	isImplicitLambda bool
	isCustomBlock    bool
	isCustomCommand  bool
	isFlashing       bool
	emptySlots       int
	params           []string // formal parameters of a ring

	// progress of interpolated primitives
	startTime     time.Time
	startValue    any
	activeAudio   Playback
	activeNote    Playback
	activeSends   []*Process
	sent          bool
	activeRequest *request
	prompt        Prompt
	suspension    suspension
	wakeAt        time.Time
	accumulator   any
}

// NewContext creates a context. With an outer context, the new frame is
// nested into the outer frame and the receiver is taken from it.
func NewContext(parent *Context, expression any, outer *Context, receiver Receiver) *Context {
	c := &Context{
		Expression:    expression,
		parentContext: parent,
		outerContext:  outer,
		receiver:      receiver,
	}
	c.variables = NewFrame(nil, nil)
	if outer != nil {
		c.variables.parentFrame = outer.variables
		if outer.receiver != nil {
			c.receiver = outer.receiver
		}
	}
	return c
}

// NewRing wraps an expression into a callable ring that closes over the
// receiver's variables.
func NewRing(expression blocks.Node, receiver Receiver, params ...string) *Context {
	home := NewContext(nil, nil, nil, receiver)
	if receiver != nil {
		home.variables.parentFrame = receiver.Variables()
	}
	ring := NewContext(nil, expression, home, receiver)
	ring.isLambda = true
	ring.params = params
	if len(params) == 0 && expression != nil {
		ring.emptySlots = blocks.MarkEmptySlots(expression)
		ring.isImplicitLambda = true
	}
	return ring
}

func (c *Context) Receiver() Receiver              { return c.receiver }
func (c *Context) Variables() *VariableFrame       { return c.variables }
func (c *Context) Parent() *Context                { return c.parentContext }
func (c *Context) Outer() *Context                 { return c.outerContext }
func (c *Context) Params() []string                { return c.params }
func (c *Context) IsContinuation() bool            { return c.isContinuation }
func (c *Context) Inputs() []any                   { return c.inputs }
func (c *Context) TypeName() string {
	if c.isContinuation {
		return "continuation"
	}
	if _, ok := c.Expression.(*blocks.Sequence); ok {
		return "command"
	}
	if b, ok := c.Expression.(*blocks.Block); ok && b.Selector == "reifyPredicate" {
		return "predicate"
	}
	return "reporter"
}

func (c *Context) AddInput(v any) {
	c.inputs = append(c.inputs, v)
}

func (c *Context) StackSize() int {
	n := 0
	for ctx := c; ctx != nil; ctx = ctx.parentContext {
		n++
	}
	return n
}

func (c *Context) String() string {
	if c.isContinuation {
		return "a continuation"
	}
	if c.isLambda {
		var b strings.Builder
		b.WriteString("a ring")
		if len(c.params) > 0 {
			b.WriteString(" (" + strings.Join(c.params, " ") + ")")
		}
		return b.String()
	}
	return "a context of " + describe(c.Expression)
}

// Trace renders the chain of contexts for diagnostics.
func (c *Context) Trace() string {
	var b strings.Builder
	for ctx := c; ctx != nil; ctx = ctx.parentContext {
		fmt.Fprintf(&b, "  at %s pc=%d inputs=%d", describe(ctx.Expression), ctx.pc, len(ctx.inputs))
		if ctx.tag != "" {
			b.WriteString(" tag=" + ctx.tag)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func describe(expression any) string {
	switch e := expression.(type) {
	case nil:
		return "nothing"
	case *blocks.Block:
		return e.String()
	case *blocks.Script:
		return e.String()
	case *blocks.Sequence:
		return fmt.Sprintf("sequence of %d", len(e.Statements))
	case pseudoOp:
		return e.String()
	case blocks.Node:
		return blocks.String(e)
	}
	return fmt.Sprint(expression)
}

// copyOne duplicates a single record; inputs and accumulator get their own storage.
func (c *Context) copyOne() *Context {
	cpy := *c
	cpy.inputs = append([]any(nil), c.inputs...)
	if s, ok := c.accumulator.(stateCopier); ok {
		cpy.accumulator = s.copyState()
	}
	cpy.activeSends = nil
	cpy.sent = false
	cpy.activeRequest = nil
	cpy.prompt = nil
	cpy.activeAudio = nil
	cpy.activeNote = nil
	cpy.startTime = time.Time{}
	cpy.suspension = notSuspended
	return &cpy
}

// copyChain duplicates c and all of its parents.
func (c *Context) copyChain() *Context {
	head := c.copyOne()
	for cur := head; cur.parentContext != nil; cur = cur.parentContext {
		cur.parentContext = cur.parentContext.copyOne()
	}
	return head
}

func (c *Context) isReporterContext() bool {
	switch c.Expression.(type) {
	case *blocks.Sequence, pseudoOp:
		return false
	}
	return true
}

// Continuation captures "the rest of the computation" at this point. A
// reporter continuation rebinds the input slot that is currently awaited
// to an implicit parameter so that calling the continuation feeds the
// argument into that slot.
func (c *Context) Continuation(isReporter bool) *Context {
	var cont *Context
	if _, ok := c.Expression.(*blocks.Sequence); ok {
		cont = c
	} else if c.parentContext != nil {
		cont = c.parentContext
	} else {
		cont = NewContext(nil, opExpectReport, nil, c.receiver)
		cont.isContinuation = true
		return cont
	}
	cont = cont.copyChain()
	if isReporter && cont.isReporterContext() {
		cont.prepareForBinding()
	}
	cont.tag = ""
	cont.isContinuation = true
	return cont
}

// CatchContinuation is a continuation for a catch tag: it returns to right
// after the catching block.
func (c *Context) CatchContinuation(isReporter bool) *Context {
	cont := c.Continuation(isReporter)
	cont.tag = "catch"
	return cont
}

func (c *Context) prepareForBinding() {
	b, ok := c.Expression.(*blocks.Block)
	var inputs []blocks.Node
	switch e := c.Expression.(type) {
	case *blocks.Block:
		inputs = e.Inputs
	case *blocks.MultiArg:
		inputs = e.Inputs
	default:
		return
	}
	pos := len(c.inputs)
	if pos >= len(inputs) {
		return
	}
	slot := &blocks.EmptySlot{Index: 1}
	if ok {
		cpy := b.Copy()
		cpy.Inputs[pos] = slot
		c.Expression = cpy
	} else {
		m := &blocks.MultiArg{Inputs: append([]blocks.Node(nil), inputs...)}
		m.Inputs[pos] = slot
		c.Expression = m
	}
	c.inputs = nil
	c.emptySlots = 1
}

// copyForContinuationCall prepares a fresh copy each time a continuation is
// invoked, so the captured chain stays reusable.
func (c *Context) copyForContinuationCall() *Context {
	head := c.copyChain()
	if head.isReporterContext() {
		head.inputs = nil
	}
	return head
}

// suspend records why the context is waiting. An atomic process polls
// timers again right away; waiting for the outside world always yields.
func (p *Process) suspend(reason suspension, wakeAt time.Time) {
	ctx := p.context
	ctx.suspension = reason
	ctx.wakeAt = wakeAt
	if reason == awaitingTimer && p.tm != nil {
		p.tm.wakeups.schedule(p, wakeAt)
	}
	switch reason {
	case awaitingYield, awaitingTimer:
		if !p.isAtomic {
			p.readyToYield = true
		}
	default:
		p.readyToYield = true
	}
}

// stopMedia ends audio, notes, requests and prompts held by this context.
func (c *Context) stopMedia() {
	if c.activeNote != nil {
		c.activeNote.Stop()
		c.activeNote = nil
	}
	if c.activeAudio != nil {
		c.activeAudio.Stop()
		c.activeAudio = nil
	}
	if c.activeRequest != nil {
		c.activeRequest.cancel()
		c.activeRequest = nil
	}
	if c.prompt != nil {
		c.prompt.Cancel()
		c.prompt = nil
	}
}
