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

func init_vars() {
	DeclareTitle("Variables")

	Declare(&Declaration{
		"reportGetVar", "value of a variable",
		1, 1,
		[]DeclarationParameter{
			DeclarationParameter{"name", "upvar", "variable name"},
		}, "any",
		func(p *Process, a ...any) any {
			return p.context.variables.GetVar(blocks.ToText(a[0]))
		},
	})
	Declare(&Declaration{
		"doSetVar", "assigns a variable; a clone writing an inherited variable gets its own copy",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"name", "upvar", "variable name"},
			DeclarationParameter{"value", "any", "new value"},
		}, "nil",
		func(p *Process, a ...any) any {
			p.context.variables.SetVar(blocks.ToText(a[0]), a[1], p.context.receiver)
			return nil
		},
	})
	Declare(&Declaration{
		"doChangeVar", "adds to a numeric variable",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"name", "upvar", "variable name"},
			DeclarationParameter{"delta", "number", "amount"},
		}, "nil",
		func(p *Process, a ...any) any {
			p.context.variables.ChangeVar(blocks.ToText(a[0]), a[1], p.context.receiver)
			return nil
		},
	})
	Declare(&Declaration{
		"doDeclareVariables", "declares script variables initialized to 0",
		1, 1000,
		[]DeclarationParameter{
			DeclarationParameter{"name", "upvar", "variable names"},
		}, "nil",
		func(p *Process, a ...any) any {
			scope := p.scriptScope()
			for _, name := range a {
				scope.AddVar(blocks.ToText(name), 0.0)
			}
			return nil
		},
	})
	Declare(&Declaration{
		"doDeleteVar", "removes a variable from the scope that declares it",
		1, 1,
		[]DeclarationParameter{
			DeclarationParameter{"name", "upvar", "variable name"},
		}, "nil",
		func(p *Process, a ...any) any {
			p.context.variables.DeleteVar(blocks.ToText(a[0]))
			return nil
		},
	})
	Declare(&Declaration{
		"reportSettings", "reads all settings, reads one setting or changes a setting",
		0, 2,
		[]DeclarationParameter{
			DeclarationParameter{"name", "text", "setting name"},
			DeclarationParameter{"value", "any", "new value"},
		}, "any",
		ChangeSettings,
	})
}
