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

import "math"
import "github.com/launix-de/blockvm/blocks"

// script returns the C-slot in v or an empty sequence.
func script(v any) *blocks.Sequence {
	if s, ok := v.(*blocks.Sequence); ok && s != nil {
		return s
	}
	return &blocks.Sequence{}
}

// loop schedules one more iteration: the body runs, then the process yields,
// then the loop block is evaluated again with the inputs it kept.
func (p *Process) loop(body *blocks.Sequence) {
	p.pushContext(opYield, nil)
	p.pushContext(body, nil)
}

// finishLoop ends a conditional loop. Completion yields once as well.
func (p *Process) finishLoop() {
	p.popContext()
	p.pushContext(opYield, nil)
}

type forState struct {
	step float64
	end  float64
}

func (s *forState) copyState() any {
	result := *s
	return &result
}

type forEachState struct {
	source    *blocks.List
	idx       int
	remaining int
}

func (s *forEachState) copyState() any {
	result := *s
	return &result
}

// declareLocal sets name in frame, declaring it there if needed.
func declareLocal(frame *VariableFrame, name string, value any) {
	if cell, ok := frame.vars[name]; ok {
		cell.Value = value
		return
	}
	frame.AddVar(name, value)
}

func (p *Process) scriptScope() *VariableFrame {
	if p.context.outerContext != nil {
		return p.context.outerContext.variables
	}
	return p.context.variables
}

func doIf(p *Process, args ...any) {
	if blocks.ToBool(args[0]) {
		p.replaceContext(script(args[1]), nil)
		return
	}
	p.popContext()
}

func doIfElse(p *Process, args ...any) {
	branch := args[2]
	if blocks.ToBool(args[0]) {
		branch = args[1]
	}
	p.replaceContext(script(branch), nil)
}

func doRepeat(p *Process, args ...any) {
	ctx := p.context
	counter, ok := blocks.ToNumber(args[0])
	if !ok || math.IsNaN(counter) || counter < 1 {
		p.popContext()
		return
	}
	ctx.inputs = []any{counter - 1}
	p.loop(script(args[1]))
}

func doForever(p *Process, args ...any) {
	p.context.inputs = nil
	p.loop(script(args[0]))
}

func doUntil(p *Process, args ...any) {
	if blocks.ToBool(args[0]) {
		p.finishLoop()
		return
	}
	p.context.inputs = nil
	p.loop(script(args[1]))
}

func doWhile(p *Process, args ...any) {
	if !blocks.ToBool(args[0]) {
		p.finishLoop()
		return
	}
	p.context.inputs = nil
	p.loop(script(args[1]))
}

func doWaitUntil(p *Process, args ...any) {
	if blocks.ToBool(args[0]) {
		p.finishLoop()
		return
	}
	p.context.inputs = nil
	p.pushContext(opYield, nil)
}

func doFor(p *Process, args ...any) {
	ctx := p.context
	name := blocks.ToText(args[0])
	vars := p.scriptScope()
	state, _ := ctx.accumulator.(*forState)
	if state == nil {
		start, end := toNumber(args[1]), toNumber(args[2])
		state = &forState{step: 1, end: end}
		if start > end {
			state.step = -1
		}
		ctx.accumulator = state
		declareLocal(vars, name, start)
	} else {
		vars.ChangeVar(name, state.step, ctx.receiver)
	}
	current := toNumber(vars.GetVar(name))
	if (state.step > 0 && current > state.end) || (state.step < 0 && current < state.end) {
		p.finishLoop()
		return
	}
	p.loop(script(args[3]))
}

func doForEach(p *Process, args ...any) {
	ctx := p.context
	list := toList(args[1])
	state, _ := ctx.accumulator.(*forEachState)
	if state == nil {
		state = &forEachState{source: list, remaining: list.Length()}
		ctx.accumulator = state
	}
	if state.remaining == 0 {
		p.popContext()
		return
	}
	state.remaining--
	var next any
	if state.source.IsLinked() {
		next = state.source.First()
		state.source = state.source.Cdr()
	} else {
		state.idx++
		next = state.source.At(state.idx)
	}
	declareLocal(p.scriptScope(), blocks.ToText(args[0]), next)
	p.loop(script(args[2]))
}

func doWarp(p *Process, args ...any) {
	body := script(args[0])
	if p.isAtomic {
		p.replaceContext(body, nil)
		return
	}
	outer := p.context.outerContext
	p.replaceContext(opStopWarping, nil)
	p.startWarp()
	p.pushContext(body, outer)
}

func doStopThis(p *Process, args ...any) {
	choice := "this script"
	if len(args) > 0 && args[0] != nil {
		choice = blocks.ToText(args[0])
	}
	switch choice {
	case "all", "all scenes":
		p.tm.StopAll(nil)
	case "this script":
		p.Stop()
	case "this block":
		if !p.stopCustomBlock() {
			p.Stop()
		}
	case "all but this script":
		p.tm.StopAll(p)
		p.popContext()
	case "other scripts in sprite":
		p.tm.StopAllForReceiver(p.receiver, p)
		p.popContext()
	default:
		raise(TypeMismatch, "unknown stop option %s", choice)
	}
}

// doTryCatch installs a handler record. The marker context below the body
// removes it again when the body completes normally.
func doTryCatch(p *Process, args ...any) {
	ctx := p.context
	errVar := blocks.ToText(args[1])
	var handler *blocks.Sequence
	if len(args) > 2 {
		handler = script(args[2])
	} else {
		handler = &blocks.Sequence{}
	}
	p.replaceContext(opPopErrorHandler, nil)
	marker := p.context
	p.errorHandlers = append(p.errorHandlers, errorHandler{marker, handler, errVar, ctx.outerContext, p.isAtomic})
	p.pushContext(script(args[0]), ctx.outerContext)
}

func doCatch(p *Process, args ...any) {
	ctx := p.context
	tag := blocks.ToText(args[0])
	cont := ctx.CatchContinuation(false)
	outer := NewContext(nil, nil, ctx.outerContext, ctx.receiver)
	outer.variables.AddVar(tag, cont)
	p.replaceContext(script(args[1]), outer)
}

func reportCatch(p *Process, args ...any) {
	ctx := p.context
	tag := blocks.ToText(args[0])
	cont := ctx.CatchContinuation(true)
	outer := NewContext(nil, nil, ctx.outerContext, ctx.receiver)
	outer.variables.AddVar(tag, cont)
	expression, _ := args[1].(blocks.Node)
	ring := NewContext(nil, expression, outer, ctx.receiver)
	ring.isLambda = true
	p.evaluate(ring, nil, false)
}

func doThrow(p *Process, args ...any) {
	ctx := p.context
	tag := args[0]
	if name, ok := tag.(string); ok {
		tag = ctx.variables.GetVar(name)
	}
	cont, ok := tag.(*Context)
	if !ok || !cont.isContinuation {
		raise(TypeMismatch, "expecting a catch tag but getting %s", blocks.ToText(args[0]))
	}
	if cont.tag == "spent" {
		raise(TypeMismatch, "catch tag was already thrown")
	}
	if cont.tag == "catch" {
		cont.tag = "spent"
	}
	var value *blocks.List
	if len(args) > 1 {
		value = blocks.NewList(args[1])
	}
	p.runContinuation(cont, value)
}

func init_control() {
	DeclareTitle("Control")

	Declare(&Declaration{
		"doReport", "reports a value to the block that called the enclosing ring or custom block",
		0, 1,
		[]DeclarationParameter{
			DeclarationParameter{"value", "any", "value to report"},
		}, "nil",
		formReport,
	})
	Declare(&Declaration{
		"reportIfElse", "reports one of two values; only the chosen one is evaluated",
		3, 3,
		[]DeclarationParameter{
			DeclarationParameter{"condition", "bool", "condition"},
			DeclarationParameter{"then", "any", "value if true"},
			DeclarationParameter{"else", "any", "value if false"},
		}, "any",
		formIfElse,
	})
	Declare(&Declaration{
		"doIf", "runs the script if the condition holds",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"condition", "bool", "condition"},
			DeclarationParameter{"then", "script", "C-slot"},
		}, "nil",
		doIf,
	})
	Declare(&Declaration{
		"doIfElse", "runs one of two scripts",
		3, 3,
		[]DeclarationParameter{
			DeclarationParameter{"condition", "bool", "condition"},
			DeclarationParameter{"then", "script", "C-slot if true"},
			DeclarationParameter{"else", "script", "C-slot if false"},
		}, "nil",
		doIfElse,
	})
	Declare(&Declaration{
		"doForever", "runs the script again and again, yielding after each pass",
		1, 1,
		[]DeclarationParameter{
			DeclarationParameter{"body", "script", "C-slot"},
		}, "nil",
		doForever,
	})
	Declare(&Declaration{
		"doRepeat", "runs the script n times, yielding after each pass",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"count", "number", "number of passes"},
			DeclarationParameter{"body", "script", "C-slot"},
		}, "nil",
		doRepeat,
	})
	Declare(&Declaration{
		"doUntil", "runs the script until the condition holds",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"condition", "bool", "evaluated before each pass"},
			DeclarationParameter{"body", "script", "C-slot"},
		}, "nil",
		doUntil,
	})
	Declare(&Declaration{
		"doWhile", "runs the script while the condition holds",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"condition", "bool", "evaluated before each pass"},
			DeclarationParameter{"body", "script", "C-slot"},
		}, "nil",
		doWhile,
	})
	Declare(&Declaration{
		"doWaitUntil", "yields until the condition holds",
		1, 1,
		[]DeclarationParameter{
			DeclarationParameter{"condition", "bool", "polled once per step"},
		}, "nil",
		doWaitUntil,
	})
	Declare(&Declaration{
		"doFor", "counts a script variable from start to end, both inclusive",
		4, 4,
		[]DeclarationParameter{
			DeclarationParameter{"variable", "upvar", "loop variable"},
			DeclarationParameter{"start", "number", "first value"},
			DeclarationParameter{"end", "number", "last value"},
			DeclarationParameter{"body", "script", "C-slot"},
		}, "nil",
		doFor,
	})
	Declare(&Declaration{
		"doForEach", "runs the script for each item of a list",
		3, 3,
		[]DeclarationParameter{
			DeclarationParameter{"variable", "upvar", "item variable"},
			DeclarationParameter{"list", "list", "items"},
			DeclarationParameter{"body", "script", "C-slot"},
		}, "nil",
		doForEach,
	})
	Declare(&Declaration{
		"doWarp", "runs the script without yielding and without redrawing",
		1, 1,
		[]DeclarationParameter{
			DeclarationParameter{"body", "script", "C-slot"},
		}, "nil",
		doWarp,
	})
	Declare(&Declaration{
		"doStopThis", "stops scripts",
		0, 1,
		[]DeclarationParameter{
			DeclarationParameter{"what", "text", "all | all scenes | this script | this block | all but this script | other scripts in sprite"},
		}, "nil",
		doStopThis,
	})
	Declare(&Declaration{
		"doTryCatch", "runs the body; an error runs the handler with the message bound to the error variable",
		2, 3,
		[]DeclarationParameter{
			DeclarationParameter{"body", "script", "C-slot"},
			DeclarationParameter{"error", "upvar", "variable for the message"},
			DeclarationParameter{"handler", "script", "C-slot"},
		}, "nil",
		doTryCatch,
	})
	Declare(&Declaration{
		"doCatch", "binds a catch tag; throwing it continues after this block",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"tag", "upvar", "variable for the tag"},
			DeclarationParameter{"body", "script", "C-slot"},
		}, "nil",
		doCatch,
	})
	Declare(&Declaration{
		"reportCatch", "binds a catch tag; throwing it with a value reports that value",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"tag", "upvar", "variable for the tag"},
			DeclarationParameter{"expression", "unevaluated", "reporter or script that reports"},
		}, "any",
		reportCatch,
	})
	Declare(&Declaration{
		"doThrow", "throws to a catch tag",
		1, 2,
		[]DeclarationParameter{
			DeclarationParameter{"tag", "any", "catch tag or the name of its variable"},
			DeclarationParameter{"value", "any", "value for a reporting catch"},
		}, "nil",
		doThrow,
	})
	Declare(&Declaration{
		"doError", "raises an error",
		1, 1,
		[]DeclarationParameter{
			DeclarationParameter{"message", "any", "error message"},
		}, "nil",
		func(a ...any) any {
			panic(&Error{Kind: UserThrown, Message: blocks.ToText(a[0]), Value: a[0]})
		},
	})
}
