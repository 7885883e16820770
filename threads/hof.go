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

/* Higher order blocks evaluate their ring once per item. Each call runs as a
child of the HOF context and returns its value as an extra input; the HOF
block picks it up from there on its next evaluation. Progress lives in a
typed accumulator, so linked lists are walked with Cdr step by step. */

// cursor walks arrayed and linked lists alike.
type cursor struct {
	source    *blocks.List
	idx       int
	remaining int
	current   any
}

func newCursor(l *blocks.List) cursor {
	return cursor{source: l, remaining: l.Length()}
}

func (c *cursor) next() bool {
	if c.remaining == 0 {
		return false
	}
	c.remaining--
	c.idx++
	if c.source.IsLinked() {
		c.current = c.source.First()
		c.source = c.source.Cdr()
	} else {
		c.current = c.source.At(c.idx)
	}
	return true
}

type mapState struct {
	cursor
	target []any
}

func (s *mapState) copyState() any {
	result := *s
	result.target = append([]any(nil), s.target...)
	return &result
}

type keepState struct {
	cursor
	target []any
}

func (s *keepState) copyState() any {
	result := *s
	result.target = append([]any(nil), s.target...)
	return &result
}

type findState struct {
	cursor
}

func (s *findState) copyState() any {
	result := *s
	return &result
}

type combineState struct {
	cursor
	value any
}

func (s *combineState) copyState() any {
	result := *s
	return &result
}

type pipeState struct {
	idx   int
	value any
}

func (s *pipeState) copyState() any {
	result := *s
	return &result
}

// takeResult removes the value a finished ring call left behind.
func takeResult(ctx *Context, arity int) (any, bool) {
	if len(ctx.inputs) > arity {
		v := ctx.inputs[arity]
		ctx.inputs = ctx.inputs[:arity]
		return v, true
	}
	return nil, false
}

// callItem evaluates ring for one item; formal parameters beyond the first
// receive the index and the list.
func (p *Process) callItem(ring any, item any, index int, list *blocks.List) {
	parms := []any{item}
	if r, ok := ring.(*Context); ok {
		if len(r.params) >= 2 {
			parms = append(parms, float64(index))
		}
		if len(r.params) >= 3 {
			parms = append(parms, list)
		}
	}
	p.pushContext(nil, nil)
	p.evaluate(ring, blocks.NewList(parms...), false)
}

func (p *Process) finishHOF(value any) {
	p.returnValueToParentContext(value)
	p.popContext()
}

func reportMap(p *Process, args ...any) {
	ctx := p.context
	list := toList(args[1])
	state, _ := ctx.accumulator.(*mapState)
	if state == nil {
		state = &mapState{cursor: newCursor(list)}
		ctx.accumulator = state
	} else if v, ok := takeResult(ctx, 2); ok {
		state.target = append(state.target, v)
	}
	if !state.next() {
		p.finishHOF(blocks.NewList(state.target...))
		return
	}
	p.callItem(args[0], state.current, state.idx, list)
}

func reportKeep(p *Process, args ...any) {
	ctx := p.context
	list := toList(args[1])
	state, _ := ctx.accumulator.(*keepState)
	if state == nil {
		state = &keepState{cursor: newCursor(list)}
		ctx.accumulator = state
	} else if v, ok := takeResult(ctx, 2); ok && blocks.ToBool(v) {
		state.target = append(state.target, state.current)
	}
	if !state.next() {
		p.finishHOF(blocks.NewList(state.target...))
		return
	}
	p.callItem(args[0], state.current, state.idx, list)
}

func reportFindFirst(p *Process, args ...any) {
	ctx := p.context
	list := toList(args[1])
	state, _ := ctx.accumulator.(*findState)
	if state == nil {
		state = &findState{cursor: newCursor(list)}
		ctx.accumulator = state
	} else if v, ok := takeResult(ctx, 2); ok && blocks.ToBool(v) {
		p.finishHOF(state.current)
		return
	}
	if !state.next() {
		p.finishHOF("")
		return
	}
	p.callItem(args[0], state.current, state.idx, list)
}

// reportCombine folds the list from the left; an empty list reports nothing
// and a single item reports itself.
func reportCombine(p *Process, args ...any) {
	ctx := p.context
	list := toList(args[0])
	state, _ := ctx.accumulator.(*combineState)
	if state == nil {
		if list.Length() < 2 {
			if list.Length() == 1 {
				p.finishHOF(list.At(1))
			} else {
				p.finishHOF(nil)
			}
			return
		}
		state = &combineState{cursor: newCursor(list)}
		state.next()
		state.value = state.current
		ctx.accumulator = state
	} else if v, ok := takeResult(ctx, 2); ok {
		state.value = v
	}
	if !state.next() {
		p.finishHOF(state.value)
		return
	}
	p.pushContext(nil, nil)
	p.evaluate(args[1], blocks.NewList(state.value, state.current), false)
}

// reportPipe feeds a value through a list of rings.
func reportPipe(p *Process, args ...any) {
	ctx := p.context
	arity := len(args)
	state, _ := ctx.accumulator.(*pipeState)
	if state == nil {
		state = &pipeState{value: args[0]}
		ctx.accumulator = state
	} else if v, ok := takeResult(ctx, arity); ok {
		state.value = v
	}
	if state.idx+1 >= arity {
		p.finishHOF(state.value)
		return
	}
	state.idx++
	p.pushContext(nil, nil)
	p.evaluate(args[state.idx], blocks.NewList(state.value), false)
}

func init_hof() {
	DeclareTitle("Higher order")

	Declare(&Declaration{
		"reportMap", "applies a reporter to each item and reports the results",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"function", "ring", "reporter called with item (index list)"},
			DeclarationParameter{"list", "list", "items"},
		}, "list",
		reportMap,
	})
	Declare(&Declaration{
		"reportKeep", "reports the items for which the predicate holds",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"predicate", "ring", "predicate called with item (index list)"},
			DeclarationParameter{"list", "list", "items"},
		}, "list",
		reportKeep,
	})
	Declare(&Declaration{
		"reportFindFirst", "reports the first item for which the predicate holds, or empty text",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"predicate", "ring", "predicate called with item (index list)"},
			DeclarationParameter{"list", "list", "items"},
		}, "any",
		reportFindFirst,
	})
	Declare(&Declaration{
		"reportCombine", "folds a list with a two-input reporter",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"list", "list", "items"},
			DeclarationParameter{"function", "ring", "reporter called with accumulator and item"},
		}, "any",
		reportCombine,
	})
	Declare(&Declaration{
		"reportPipe", "passes a value through the rings from left to right",
		1, 1000,
		[]DeclarationParameter{
			DeclarationParameter{"value", "any", "start value"},
			DeclarationParameter{"functions", "ring", "reporters"},
		}, "any",
		reportPipe,
	})
}
