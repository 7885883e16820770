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

import "strconv"
import "github.com/launix-de/blockvm/blocks"

// evaluate calls a ring. The call replaces the current context, so the
// result goes straight to the current context's parent. It returns the
// context that runs the ring's expression, or nil for continuations.
func (p *Process) evaluate(value any, args *blocks.List, isCommand bool) *Context {
	ctx := p.context
	if value == nil {
		if !isCommand {
			p.returnValueToParentContext(nil)
		}
		p.popContext()
		return nil
	}
	if seq, ok := value.(*blocks.Sequence); ok {
		value = closure(seq, ctx)
	}
	ring, ok := value.(*Context)
	if !ok {
		raise(TypeMismatch, "expecting a ring but getting %s", blocks.TypeOf(value))
	}
	if ring.isContinuation {
		p.runContinuation(ring, args)
		return nil
	}
	var parms []any
	if args != nil {
		parms = args.ItemsArray()
	}

	caller := ctx.parentContext
	outer := NewContext(nil, nil, ring.outerContext, ring.receiver)
	runnable := NewContext(caller, ring.Expression, outer, ring.receiver)
	runnable.isLambda = true
	if len(ring.params) == 0 {
		if len(parms) == 1 {
			if ring.emptySlots == 0 && ring.Expression == nil {
				// an empty ring is the identity
				runnable.Expression = &Variable{Value: parms[0]}
			}
			for i := 1; i <= ring.emptySlots; i++ {
				outer.variables.AddVar("#"+strconv.Itoa(i), parms[0])
			}
		} else if len(parms) == ring.emptySlots {
			for i, v := range parms {
				outer.variables.AddVar("#"+strconv.Itoa(i+1), v)
			}
		} else if ring.emptySlots != 1 {
			raise(TypeMismatch, "expecting %d input(s), but getting %d", ring.emptySlots, len(parms))
		}
	} else {
		for i, name := range ring.params {
			var v any
			if i < len(parms) {
				v = parms[i]
			}
			outer.variables.AddVar(name, v)
		}
	}
	if runnable.Expression == nil {
		runnable.Expression = &Variable{}
	}
	if _, ok := runnable.Expression.(*blocks.Sequence); ok && !isCommand {
		// a command script called as a reporter must report
		if caller != nil {
			caller.tag = "exit"
		} else {
			exit := NewContext(nil, opExpectReport, outer, ring.receiver)
			exit.tag = "exit"
			runnable.parentContext = exit
		}
	}
	p.context = runnable
	return runnable
}

// runContinuation abandons the current stack and resumes a fresh copy of
// the captured one. A single argument feeds the slot the continuation was
// waiting for.
func (p *Process) runContinuation(cont *Context, args *blocks.List) {
	var values []any
	if args != nil {
		values = args.ItemsArray()
	}
	for c := p.context; c != nil; c = c.parentContext {
		c.stopMedia()
	}
	if cont.Expression == opExpectReport && cont.parentContext == nil {
		// the script's root was waiting: the value is the process result
		p.homeContext.inputs = nil
		if len(values) > 0 {
			p.homeContext.AddInput(values[0])
		}
		p.context = nil
		p.recomputeAtomic()
		return
	}
	head := cont.copyForContinuationCall()
	head.tag = ""
	head.isContinuation = false
	if len(values) == 1 {
		frame := NewFrame(head.variables.parentFrame, nil)
		frame.AddVar("#1", values[0])
		head.variables = frame
	}
	p.context = head
	p.recomputeAtomic()
}

// contextFor rebinds a ring to another receiver, so tell/ask run it with
// that receiver's variables and definitions.
func contextFor(ring *Context, r Receiver) *Context {
	result := *ring
	result.receiver = r
	if ring.outerContext != nil {
		o := *ring.outerContext
		o.receiver = r
		o.variables = NewFrame(r.Variables(), nil)
		o.variables.Merge(ring.outerContext.variables)
		result.outerContext = &o
	} else {
		home := NewContext(nil, nil, nil, r)
		home.variables.parentFrame = r.Variables()
		result.outerContext = home
	}
	return &result
}

func (p *Process) resolveReceiver(value any) Receiver {
	switch v := value.(type) {
	case Receiver:
		return v
	case string:
		if v == "" || v == "myself" {
			return p.context.receiver
		}
		if p.tm != nil && p.tm.world != nil {
			if r := p.tm.world.Receiver(v); r != nil {
				return r
			}
		}
	}
	raise(TypeMismatch, "expecting a sprite but getting %s", blocks.ToText(value))
	return nil
}

func listArg(args []any, i int) *blocks.List {
	if i < len(args) {
		if l, ok := args[i].(*blocks.List); ok {
			return l
		}
		if args[i] != nil {
			return blocks.NewList(args[i])
		}
	}
	return blocks.NewList()
}

func reify(p *Process, args ...any) any {
	ctx := p.context
	var expression blocks.Node
	if len(args) > 0 {
		expression, _ = args[0].(blocks.Node)
	}
	ring := NewContext(nil, expression, ctx.outerContext, ctx.receiver)
	ring.isLambda = true
	if len(args) > 1 {
		if names, ok := args[1].(*blocks.List); ok {
			names.Each(func(v any) bool {
				if name := blocks.ToText(v); name != "" {
					ring.params = append(ring.params, name)
				}
				return true
			})
		}
	}
	if len(ring.params) == 0 && expression != nil {
		ring.emptySlots = blocks.MarkEmptySlots(expression)
		ring.isImplicitLambda = true
	}
	return ring
}

func init_rings() {
	DeclareTitle("Rings")

	Declare(&Declaration{
		"reifyScript", "wraps a command script into a ring",
		0, 2,
		[]DeclarationParameter{
			DeclarationParameter{"script", "unevaluated", "the command script"},
			DeclarationParameter{"parameters", "names", "formal parameter names"},
		}, "ring",
		reify,
	})
	Declare(&Declaration{
		"reifyReporter", "wraps a reporter into a ring; empty slots become implicit parameters",
		0, 2,
		[]DeclarationParameter{
			DeclarationParameter{"expression", "unevaluated", "the reporter"},
			DeclarationParameter{"parameters", "names", "formal parameter names"},
		}, "ring",
		reify,
	})
	Declare(&Declaration{
		"reifyPredicate", "wraps a predicate into a ring",
		0, 2,
		[]DeclarationParameter{
			DeclarationParameter{"expression", "unevaluated", "the predicate"},
			DeclarationParameter{"parameters", "names", "formal parameter names"},
		}, "ring",
		reify,
	})
	Declare(&Declaration{
		"doRun", "runs a command ring",
		1, 2,
		[]DeclarationParameter{
			DeclarationParameter{"action", "ring", "ring, C-slot or continuation"},
			DeclarationParameter{"inputs", "list", "arguments"},
		}, "nil",
		func(p *Process, args ...any) {
			p.evaluate(args[0], listArg(args, 1), true)
		},
	})
	Declare(&Declaration{
		"evaluate", "calls a reporter ring and reports its value",
		1, 2,
		[]DeclarationParameter{
			DeclarationParameter{"function", "ring", "ring to call"},
			DeclarationParameter{"inputs", "list", "arguments"},
		}, "any",
		func(p *Process, args ...any) {
			p.evaluate(args[0], listArg(args, 1), false)
		},
	})
	Declare(&Declaration{
		"fork", "launches a ring as a new process and continues right away",
		1, 2,
		[]DeclarationParameter{
			DeclarationParameter{"action", "ring", "ring to launch"},
			DeclarationParameter{"inputs", "list", "arguments"},
		}, "nil",
		func(p *Process, args ...any) any {
			ring, ok := args[0].(*Context)
			if !ok || ring.isContinuation {
				raise(TypeMismatch, "expecting a ring but getting %s", blocks.TypeOf(args[0]))
			}
			top, _ := ring.Expression.(blocks.Node)
			proc := newProcess(p.tm, top, ring.receiver, nil)
			proc.context = NewContext(nil, nil, proc.homeContext, ring.receiver)
			proc.evaluate(ring, listArg(args, 1), true)
			p.tm.processes = append(p.tm.processes, proc)
			Log.Debug("%s forked %s", p, proc)
			return nil
		},
	})
	Declare(&Declaration{
		"doCallCC", "runs a ring with the rest of this script as continuation",
		1, 1,
		[]DeclarationParameter{
			DeclarationParameter{"action", "ring", "receives the continuation"},
		}, "nil",
		func(p *Process, args ...any) {
			p.evaluate(args[0], blocks.NewList(p.context.Continuation(false)), true)
		},
	})
	Declare(&Declaration{
		"reportCallCC", "calls a ring with the continuation waiting for this block's value",
		1, 1,
		[]DeclarationParameter{
			DeclarationParameter{"function", "ring", "receives the continuation"},
		}, "any",
		func(p *Process, args ...any) {
			p.evaluate(args[0], blocks.NewList(p.context.Continuation(true)), false)
		},
	})
	Declare(&Declaration{
		"doTellTo", "runs a command ring as another sprite",
		2, 3,
		[]DeclarationParameter{
			DeclarationParameter{"sprite", "any", "sprite or sprite name"},
			DeclarationParameter{"action", "ring", "ring to run"},
			DeclarationParameter{"inputs", "list", "arguments"},
		}, "nil",
		func(p *Process, args ...any) {
			r := p.resolveReceiver(args[0])
			ring, ok := args[1].(*Context)
			if !ok {
				p.evaluate(args[1], listArg(args, 2), true)
				return
			}
			p.evaluate(contextFor(ring, r), listArg(args, 2), true)
		},
	})
	Declare(&Declaration{
		"reportAskFor", "calls a reporter ring as another sprite",
		2, 3,
		[]DeclarationParameter{
			DeclarationParameter{"sprite", "any", "sprite or sprite name"},
			DeclarationParameter{"function", "ring", "ring to call"},
			DeclarationParameter{"inputs", "list", "arguments"},
		}, "any",
		func(p *Process, args ...any) {
			r := p.resolveReceiver(args[0])
			ring, ok := args[1].(*Context)
			if !ok {
				p.evaluate(args[1], listArg(args, 2), false)
				return
			}
			p.evaluate(contextFor(ring, r), listArg(args, 2), false)
		},
	})
}
