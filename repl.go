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
import "strings"
import "github.com/chzyer/readline"

const newprompt = "\033[32m>\033[0m "
const contprompt = "\033[32m.\033[0m "

func prompt(e *engine) string {
	if e.current == nil || e.current == e.stage {
		return newprompt
	}
	return e.current.Name() + " " + newprompt
}

func repl(e *engine) {
	l, err := readline.NewEx(&readline.Config{
		Prompt:            newprompt,
		HistoryFile:       ".blockvm-history.tmp",
		InterruptPrompt:   "^C",
		EOFPrompt:         ":quit",
		HistorySearchFold: true,
	})
	if err != nil {
		panic(err)
	}
	defer l.Close()
	l.CaptureExitSignal()

	oldline := ""
	for {
		line, err := l.Readline()
		line = oldline + line
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			} else {
				oldline = ""
				l.SetPrompt(newprompt)
				continue
			}
		} else if err == io.EOF {
			break
		} else if err != nil {
			panic(err)
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		if strings.HasPrefix(strings.TrimSpace(line), ":") {
			running := true
			e.do(func() { running = e.command(strings.TrimSpace(line)) })
			if !running {
				return
			}
			l.SetPrompt(prompt(e))
			continue
		}
		var evalErr error
		e.do(func() { evalErr = e.eval(line) })
		if evalErr != nil && incomplete(evalErr) {
			// keep oldline
			oldline = line + "\n"
			l.SetPrompt(contprompt)
			continue
		}
		if evalErr != nil {
			e.host.printf("error: %s\n", evalErr.Error())
		}
		oldline = ""
		l.SetPrompt(prompt(e))
	}
}
