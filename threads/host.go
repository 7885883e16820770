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

import "io"
import "fmt"
import "sync"
import "time"
import "context"
import "net/http"
import "github.com/docker/go-units"
import "github.com/launix-de/blockvm/blocks"

// Playback is a running sound or note.
type Playback interface {
	Ended() bool
	Stop()
	Pause()
	Resume()
}

// Prompt is an open question to the user.
type Prompt interface {
	Answer() (string, bool)
	Cancel()
}

// Host is everything the interpreter needs from its surroundings.
type Host interface {
	Now() time.Time
	Highlight(top blocks.Node, r Receiver, threads int)
	ErrorHighlight(top blocks.Node, r Receiver, err *Error)
	Flash(n blocks.Node, r Receiver, on bool)
	DeferRedraw(r Receiver, on bool)
	ShowBubble(top blocks.Node, r Receiver, value any, isError bool)
	Say(r Receiver, value any, thought bool)
	PlaySound(r Receiver, name string) Playback // nil if unknown
	PlayNote(r Receiver, pitch float64, secs float64) Playback
	Ask(r Receiver, question string) Prompt
	Fetch(ctx context.Context, url string) (string, error)
}

type Bubble struct {
	Top      blocks.Node
	Receiver Receiver
	Value    any
	IsError  bool
}

// HeadlessHost runs scripts without a screen. Tests set Clock to drive time.
type HeadlessHost struct {
	Clock           func() time.Time
	Sounds          map[string]time.Duration
	Answers         []string
	Client          *http.Client
	MaxResponseSize int64 // 0 = Settings.MaxResponseSize

	mu      sync.Mutex
	bubbles []Bubble
	said    []string
	counts  map[blocks.Node]int
}

func NewHeadlessHost() *HeadlessHost {
	return &HeadlessHost{Sounds: make(map[string]time.Duration)}
}

func (h *HeadlessHost) Now() time.Time {
	if h.Clock != nil {
		return h.Clock()
	}
	return time.Now()
}

func (h *HeadlessHost) Highlight(top blocks.Node, r Receiver, threads int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.counts == nil {
		h.counts = make(map[blocks.Node]int)
	}
	h.counts[top] = threads
}

// ThreadCount is the last highlight count reported for top.
func (h *HeadlessHost) ThreadCount(top blocks.Node) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counts[top]
}

func (h *HeadlessHost) ErrorHighlight(top blocks.Node, r Receiver, err *Error) {}
func (h *HeadlessHost) Flash(n blocks.Node, r Receiver, on bool)            {}
func (h *HeadlessHost) DeferRedraw(r Receiver, on bool)                     {}

func (h *HeadlessHost) ShowBubble(top blocks.Node, r Receiver, value any, isError bool) {
	h.mu.Lock()
	h.bubbles = append(h.bubbles, Bubble{top, r, value, isError})
	h.mu.Unlock()
}

func (h *HeadlessHost) Bubbles() []Bubble {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Bubble(nil), h.bubbles...)
}

func (h *HeadlessHost) Say(r Receiver, value any, thought bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if value == nil || value == "" {
		return
	}
	name := "?"
	if r != nil {
		name = r.Name()
	}
	h.said = append(h.said, name+": "+blocks.ToText(value))
}

func (h *HeadlessHost) Said() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.said...)
}

func (h *HeadlessHost) PlaySound(r Receiver, name string) Playback {
	d, ok := h.Sounds[name]
	if !ok {
		return nil
	}
	return &timedPlayback{host: h, end: h.Now().Add(d)}
}

func (h *HeadlessHost) PlayNote(r Receiver, pitch float64, secs float64) Playback {
	return &timedPlayback{host: h, end: h.Now().Add(time.Duration(secs * float64(time.Second)))}
}

// Ask answers from Answers in order; when they run out the answer is empty.
func (h *HeadlessHost) Ask(r Receiver, question string) Prompt {
	h.mu.Lock()
	defer h.mu.Unlock()
	answer := ""
	if len(h.Answers) > 0 {
		answer = h.Answers[0]
		h.Answers = h.Answers[1:]
	}
	return &scriptedPrompt{answer: answer}
}

func (h *HeadlessHost) Fetch(ctx context.Context, url string) (string, error) {
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	limit := h.MaxResponseSize
	if limit <= 0 {
		limit = maxResponseBytes
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(body)) > limit {
		return "", fmt.Errorf("response of %s exceeds %s", url, units.HumanSize(float64(limit)))
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%s: %s", url, resp.Status)
	}
	return string(body), nil
}

type timedPlayback struct {
	host      *HeadlessHost
	end       time.Time
	remaining time.Duration
	paused    bool
	stopped   bool
}

func (t *timedPlayback) Ended() bool {
	return t.stopped || (!t.paused && !t.host.Now().Before(t.end))
}

func (t *timedPlayback) Stop() { t.stopped = true }

func (t *timedPlayback) Pause() {
	if !t.paused {
		t.remaining = t.end.Sub(t.host.Now())
		t.paused = true
	}
}

func (t *timedPlayback) Resume() {
	if t.paused {
		t.end = t.host.Now().Add(t.remaining)
		t.paused = false
	}
}

type scriptedPrompt struct {
	answer    string
	cancelled bool
}

func (p *scriptedPrompt) Answer() (string, bool) { return p.answer, !p.cancelled }
func (p *scriptedPrompt) Cancel()                { p.cancelled = true }
