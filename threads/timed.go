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
import "context"
import "strings"
import "github.com/launix-de/blockvm/blocks"

/* Timed primitives never block. They keep their progress on the context,
suspend with a reason and are evaluated again on the next step until they
are done. */

// request is an HTTP fetch running on its own goroutine. The scheduler
// only looks at it through poll.
type request struct {
	cancelFn context.CancelFunc
	done     chan struct{}
	result   string
	err      error
}

func startRequest(host Host, url string) *request {
	ctx, cancel := context.WithCancel(context.Background())
	r := &request{cancelFn: cancel, done: make(chan struct{})}
	go func() {
		defer close(r.done)
		r.result, r.err = host.Fetch(ctx, url)
	}()
	return r
}

func (r *request) cancel() {
	r.cancelFn()
}

func (r *request) poll() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

func seconds(secs float64) time.Duration {
	return time.Duration(secs * float64(time.Second))
}

func beats(n float64) float64 {
	tempo := Settings.Tempo
	if tempo <= 0 {
		tempo = 60
	}
	return n * 60 / tempo
}

// elapsed starts the context's clock on the first poll.
func (p *Process) elapsed() time.Duration {
	ctx := p.context
	now := p.host.Now()
	if ctx.startTime.IsZero() {
		ctx.startTime = now
	}
	return now.Sub(ctx.startTime)
}

// waitFor suspends until d has passed since the first poll and reports true once it has.
func (p *Process) waitFor(d time.Duration) bool {
	if p.elapsed() >= d {
		return true
	}
	p.suspend(awaitingTimer, p.context.startTime.Add(d))
	return false
}

func doWait(p *Process, args ...any) {
	ctx := p.context
	secs := toNumber(args[0])
	if secs <= 0 {
		// waiting 0 secs still gives up the rest of the frame
		if ctx.suspension == notSuspended && !p.isAtomic {
			p.suspend(awaitingYield, time.Time{})
			return
		}
		p.popContext()
		return
	}
	if p.waitFor(seconds(secs)) {
		p.popContext()
	}
}

func doGlide(p *Process, args ...any) {
	ctx := p.context
	sprite, ok := ctx.receiver.(Positioned)
	if !ok {
		p.popContext()
		return
	}
	total := seconds(toNumber(args[0]))
	x, y := toNumber(args[1]), toNumber(args[2])
	if ctx.startValue == nil {
		sx, sy := sprite.Position()
		ctx.startValue = [2]float64{sx, sy}
	}
	elapsed := p.elapsed()
	if elapsed >= total {
		sprite.SetPosition(x, y)
		p.popContext()
		return
	}
	start := ctx.startValue.([2]float64)
	f := float64(elapsed) / float64(total)
	sprite.SetPosition(start[0]+f*(x-start[0]), start[1]+f*(y-start[1]))
	p.suspend(awaitingYield, time.Time{})
}

func (p *Process) say(value any, thought bool) {
	r := p.context.receiver
	if t, ok := r.(Talker); ok {
		t.SetBubble(value, thought)
	}
	p.host.Say(r, value, thought)
}

func sayFor(thought bool) func(p *Process, args ...any) {
	return func(p *Process, args ...any) {
		ctx := p.context
		if ctx.startTime.IsZero() {
			p.say(args[0], thought)
		}
		if p.waitFor(seconds(toNumber(args[1]))) {
			p.say(nil, thought)
			p.popContext()
		}
	}
}

func doPlaySoundUntilDone(p *Process, args ...any) {
	ctx := p.context
	if ctx.activeAudio == nil {
		if ctx.sent {
			p.popContext()
			return
		}
		ctx.sent = true
		ctx.activeAudio = p.host.PlaySound(ctx.receiver, blocks.ToText(args[0]))
		if ctx.activeAudio == nil {
			p.popContext()
			return
		}
	}
	if ctx.activeAudio.Ended() {
		ctx.activeAudio = nil
		p.popContext()
		return
	}
	p.suspend(awaitingAudio, time.Time{})
}

func doPlayNote(p *Process, args ...any) {
	ctx := p.context
	secs := beats(toNumber(args[1]))
	if ctx.startTime.IsZero() {
		ctx.activeNote = p.host.PlayNote(ctx.receiver, toNumber(args[0]), secs)
	}
	if p.waitFor(seconds(secs)) {
		ctx.activeNote = nil
		p.popContext()
	}
}

func doRest(p *Process, args ...any) {
	if p.waitFor(seconds(beats(toNumber(args[0])))) {
		p.popContext()
	}
}

func doAsk(p *Process, args ...any) {
	ctx := p.context
	if ctx.prompt == nil {
		ctx.prompt = p.host.Ask(ctx.receiver, blocks.ToText(args[0]))
	}
	answer, ok := ctx.prompt.Answer()
	if !ok {
		p.suspend(awaitingAnswer, time.Time{})
		return
	}
	ctx.prompt = nil
	if p.tm != nil {
		p.tm.LastAnswer = answer
	}
	p.popContext()
}

func reportURL(p *Process, args ...any) {
	ctx := p.context
	if ctx.activeRequest == nil {
		url := blocks.ToText(args[0])
		if !strings.Contains(url, "://") {
			url = "https://" + url
		}
		Log.Debug("%s fetches %s", p, url)
		ctx.activeRequest = startRequest(p.host, url)
	}
	if !ctx.activeRequest.poll() {
		p.suspend(awaitingIO, time.Time{})
		return
	}
	req := ctx.activeRequest
	ctx.activeRequest = nil
	if req.err != nil {
		raise(HostIOError, "%s", req.err.Error())
	}
	p.returnValueToParentContext(req.result)
	p.popContext()
}

// broadcastTargets resolves the optional receiver input; nil means everyone.
func (p *Process) broadcastTargets(args []any) []Receiver {
	if len(args) < 2 || args[1] == nil {
		return nil
	}
	switch t := args[1].(type) {
	case string:
		if t == "" || t == "all" {
			return nil
		}
	case *blocks.List:
		var result []Receiver
		t.Each(func(v any) bool {
			result = append(result, p.resolveReceiver(v))
			return true
		})
		return result
	}
	return []Receiver{p.resolveReceiver(args[1])}
}

func broadcastData(args []any) any {
	if len(args) > 2 {
		return args[2]
	}
	return nil
}

func doBroadcast(p *Process, args ...any) any {
	if p.canBroadcast {
		p.tm.DoBroadcast(blocks.ToText(args[0]), broadcastData(args), p.broadcastTargets(args), p)
	}
	return nil
}

// doBroadcastAndWait waits until every process it started has ended. A
// warped sender drives the receivers itself so it does not spin.
func doBroadcastAndWait(p *Process, args ...any) {
	ctx := p.context
	if !ctx.sent {
		ctx.sent = true
		if p.canBroadcast {
			ctx.activeSends = p.tm.DoBroadcast(blocks.ToText(args[0]), broadcastData(args), p.broadcastTargets(args), p)
		}
		// the sender may have restarted itself
		if p.readyToTerminate || p.context != ctx {
			return
		}
	}
	for _, proc := range ctx.activeSends {
		if proc.IsRunning() {
			if p.isAtomic {
				for _, other := range ctx.activeSends {
					if other != p && other.IsRunning() {
						other.RunStep(time.Time{})
					}
				}
			}
			p.suspend(awaitingProcesses, time.Time{})
			return
		}
	}
	ctx.activeSends = nil
	p.popContext()
}

func init_timed() {
	DeclareTitle("Time and media")

	Declare(&Declaration{
		"doWait", "waits some seconds; 0 waits for the next frame",
		1, 1,
		[]DeclarationParameter{
			DeclarationParameter{"secs", "number", "seconds"},
		}, "nil",
		doWait,
	})
	Declare(&Declaration{
		"doGlide", "moves the sprite to x, y over some seconds",
		3, 3,
		[]DeclarationParameter{
			DeclarationParameter{"secs", "number", "duration in seconds"},
			DeclarationParameter{"x", "number", "target x"},
			DeclarationParameter{"y", "number", "target y"},
		}, "nil",
		doGlide,
	})
	Declare(&Declaration{
		"doSayFor", "shows a speech bubble for some seconds",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"message", "any", "what to say"},
			DeclarationParameter{"secs", "number", "seconds"},
		}, "nil",
		sayFor(false),
	})
	Declare(&Declaration{
		"doThinkFor", "shows a thought bubble for some seconds",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"message", "any", "what to think"},
			DeclarationParameter{"secs", "number", "seconds"},
		}, "nil",
		sayFor(true),
	})
	Declare(&Declaration{
		"bubble", "shows a speech bubble; empty text removes it",
		1, 1,
		[]DeclarationParameter{
			DeclarationParameter{"message", "any", "what to say"},
		}, "nil",
		func(p *Process, a ...any) any {
			p.say(a[0], false)
			return nil
		},
	})
	Declare(&Declaration{
		"doThink", "shows a thought bubble; empty text removes it",
		1, 1,
		[]DeclarationParameter{
			DeclarationParameter{"message", "any", "what to think"},
		}, "nil",
		func(p *Process, a ...any) any {
			p.say(a[0], true)
			return nil
		},
	})
	Declare(&Declaration{
		"playSound", "starts a sound and continues right away",
		1, 1,
		[]DeclarationParameter{
			DeclarationParameter{"sound", "text", "sound name"},
		}, "nil",
		func(p *Process, a ...any) any {
			p.host.PlaySound(p.context.receiver, blocks.ToText(a[0]))
			return nil
		},
	})
	Declare(&Declaration{
		"doPlaySoundUntilDone", "plays a sound and waits for its end",
		1, 1,
		[]DeclarationParameter{
			DeclarationParameter{"sound", "text", "sound name"},
		}, "nil",
		doPlaySoundUntilDone,
	})
	Declare(&Declaration{
		"doPlayNote", "plays a MIDI note for some beats",
		2, 2,
		[]DeclarationParameter{
			DeclarationParameter{"pitch", "number", "MIDI note number"},
			DeclarationParameter{"beats", "number", "duration in beats"},
		}, "nil",
		doPlayNote,
	})
	Declare(&Declaration{
		"doRest", "waits some beats",
		1, 1,
		[]DeclarationParameter{
			DeclarationParameter{"beats", "number", "duration in beats"},
		}, "nil",
		doRest,
	})
	Declare(&Declaration{
		"doSetTempo", "sets the tempo in beats per minute",
		1, 1,
		[]DeclarationParameter{
			DeclarationParameter{"bpm", "number", "beats per minute"},
		}, "nil",
		func(a ...any) any {
			bpm := toNumber(a[0])
			if bpm < 20 {
				bpm = 20
			}
			Settings.Tempo = bpm
			return nil
		},
	})
	Declare(&Declaration{
		"getTempo", "the tempo in beats per minute",
		0, 0,
		[]DeclarationParameter{}, "number",
		func(a ...any) any {
			return Settings.Tempo
		},
	})
	Declare(&Declaration{
		"doAsk", "asks the user and waits for the answer",
		1, 1,
		[]DeclarationParameter{
			DeclarationParameter{"question", "text", "question"},
		}, "nil",
		doAsk,
	})
	Declare(&Declaration{
		"reportLastAnswer", "the answer to the last question",
		0, 0,
		[]DeclarationParameter{}, "text",
		func(p *Process, a ...any) any {
			if p.tm == nil {
				return ""
			}
			return p.tm.LastAnswer
		},
	})
	Declare(&Declaration{
		"reportURL", "fetches a URL; https is assumed without a scheme",
		1, 1,
		[]DeclarationParameter{
			DeclarationParameter{"url", "text", "address"},
		}, "text",
		reportURL,
	})
	Declare(&Declaration{
		"doBroadcast", "sends a message and continues right away",
		1, 3,
		[]DeclarationParameter{
			DeclarationParameter{"message", "text", "message name"},
			DeclarationParameter{"target", "any", "all, a sprite, a sprite name or a list of them"},
			DeclarationParameter{"data", "any", "payload for the receiving hats"},
		}, "nil",
		doBroadcast,
	})
	Declare(&Declaration{
		"doBroadcastAndWait", "sends a message and waits until all started scripts have ended",
		1, 3,
		[]DeclarationParameter{
			DeclarationParameter{"message", "text", "message name"},
			DeclarationParameter{"target", "any", "all, a sprite, a sprite name or a list of them"},
			DeclarationParameter{"data", "any", "payload for the receiving hats"},
		}, "nil",
		doBroadcastAndWait,
	})
}
