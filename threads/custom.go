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

import "github.com/launix-de/blockvm/blocks"

// evaluateCustomBlock runs a user defined block. Its body gets a fresh
// scope below the receiver's variables; the caller's script variables
// are only reachable through upvars.
func (p *Process) evaluateCustomBlock(b *blocks.Block, def *blocks.Definition) {
	ctx := p.context
	if len(ctx.inputs) < len(b.Inputs) {
		p.evaluateNextInputSet(b, func(i int) string {
			if i < len(def.Params) && def.Params[i].IsUpvar {
				return "upvar"
			}
			return "any"
		})
		if len(ctx.inputs) < len(b.Inputs) {
			return
		}
	}
	if p.flashContext() {
		return
	}

	caller := ctx.parentContext
	rcvr := ctx.receiver
	p.procedureCount++
	outer := NewContext(nil, nil, nil, rcvr)
	if rcvr != nil {
		outer.variables.parentFrame = rcvr.Variables()
	}
	for i, param := range def.Params {
		var value any
		if i < len(ctx.inputs) {
			value = ctx.inputs[i]
		}
		if param.IsUpvar {
			name, _ := value.(string)
			if name == "" {
				name = param.Name
			}
			scope := ctx.variables
			if ctx.outerContext != nil {
				scope = ctx.outerContext.variables
			}
			if _, ok := scope.vars[name]; !ok {
				scope.AddVar(name, param.Default)
			}
			outer.variables.bind(param.Name, scope.vars[name])
			continue
		}
		if value == nil {
			value = param.Default
		}
		if seq, ok := value.(*blocks.Sequence); ok {
			value = closure(seq, ctx)
		}
		outer.variables.AddVar(param.Name, value)
	}

	body := def.Body
	if body == nil {
		body = &blocks.Sequence{}
	}
	runnable := NewContext(caller, body, outer, rcvr)
	runnable.isCustomBlock = true
	runnable.isCustomCommand = def.Kind == blocks.Command
	if def.Kind != blocks.Command {
		if caller != nil {
			caller.tag = "exit"
		} else {
			exit := NewContext(nil, opExpectReport, outer, rcvr)
			exit.tag = "exit"
			runnable.parentContext = exit
		}
	}
	if def.Warp && !p.isAtomic {
		stopper := NewContext(runnable.parentContext, opStopWarping, nil, rcvr)
		runnable.parentContext = stopper
		p.startWarp()
	}
	if def.Kind == blocks.Command && def.IsDirectlyRecursive() && !p.isAtomic {
		p.readyToYield = true
	}
	p.context = runnable
}

// closure turns a C-slot passed as a value into a ring over the caller's scope.
func closure(seq *blocks.Sequence, ctx *Context) *Context {
	ring := NewContext(nil, seq, ctx.outerContext, ctx.receiver)
	ring.isLambda = true
	return ring
}

func (p *Process) evaluateForm(form specialForm, b *blocks.Block) {
	ctx := p.context
	switch form {
	case formIfElse:
		switch len(ctx.inputs) {
		case 0:
			p.evaluateInputNode(ctx, b.Input(0), "any")
		case 1:
			branch := b.Input(2)
			if blocks.ToBool(ctx.inputs[0]) {
				branch = b.Input(1)
			}
			p.evaluateInputNode(ctx, branch, "any")
		default:
			p.returnValueToParentContext(ctx.inputs[1])
			p.popContext()
		}
	case formAnd, formOr:
		// the second operand is only evaluated when the first does not decide
		decides := form == formOr
		switch len(ctx.inputs) {
		case 0:
			p.evaluateInputNode(ctx, b.Input(0), "any")
		case 1:
			if blocks.ToBool(ctx.inputs[0]) == decides {
				p.returnValueToParentContext(decides)
				p.popContext()
				return
			}
			p.evaluateInputNode(ctx, b.Input(1), "any")
		default:
			p.returnValueToParentContext(blocks.ToBool(ctx.inputs[1]))
			p.popContext()
		}
	case formReport:
		p.doReport(b)
	}
}

// doReport unwinds to the context waiting for the value and evaluates the
// reported expression there.
func (p *Process) doReport(b *blocks.Block) {
	ctx := p.context
	outer := ctx.outerContext
	if p.reportsFromCommand() {
		// inside a command block, report ends the block
		p.stopCustomBlock()
		return
	}
	for p.context != nil && p.context.tag != "exit" {
		if p.context.Expression == opStopWarping {
			p.doStopWarping()
		} else {
			p.popContext()
		}
	}
	if p.context != nil {
		if p.context.Expression == opExpectReport {
			p.popContext()
		} else {
			p.context.tag = ""
		}
	} else if p.isClicked {
		p.isShowingResult = true
	}
	expression := b.Input(0)
	if expression == nil {
		expression = &blocks.Literal{}
	}
	p.pushContext(expression, outer)
}

func (p *Process) reportsFromCommand() bool {
	for c := p.context; c != nil; c = c.parentContext {
		if c.tag == "exit" {
			return false
		}
		if c.isCustomCommand {
			return true
		}
	}
	return false
}

// stopCustomBlock leaves the innermost custom block. It reports false when
// the process is not inside one.
func (p *Process) stopCustomBlock() bool {
	found := false
	for c := p.context; c != nil; c = c.parentContext {
		if c.isCustomBlock {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	for p.context != nil {
		custom := p.context.isCustomBlock
		if p.context.Expression == opStopWarping {
			p.doStopWarping()
		} else {
			p.popContext()
		}
		if custom {
			break
		}
	}
	return true
}
