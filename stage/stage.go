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
package stage

import "time"
import "strings"
import "github.com/launix-de/NonLockingReadMap"
import "github.com/launix-de/blockvm/blocks"
import "github.com/launix-de/blockvm/threads"

const maxClones = 5000

// spriteEntry indexes the original sprites by name.
type spriteEntry struct {
	name   string
	sprite *Sprite
}

/* implement NonLockingReadMap */
func (e spriteEntry) GetKey() string {
	return e.name
}

func (e spriteEntry) ComputeSize() uint {
	return 16 + uint(len(e.name)) + 8
}

// Stage is the world of a project: the stage receiver itself, its sprites
// and the thread manager that runs their scripts. Apart from sprite lookup
// by name it belongs to the scheduler goroutine.
type Stage struct {
	*threads.Object
	tm      *threads.ThreadManager
	globals *threads.VariableFrame

	registry NonLockingReadMap.NonLockingReadMap[spriteEntry, string]
	sprites  []*Sprite // layer order, clones included
	clones   int

	keys       map[string]bool
	timerStart time.Time
}

func NewStage(host threads.Host) *Stage {
	st := &Stage{
		globals:  threads.NewFrame(nil, nil),
		registry: NonLockingReadMap.New[spriteEntry, string](),
		keys:     make(map[string]bool),
	}
	st.Object = threads.NewObject("Stage", st.globals)
	st.Variables().SetOwner(st)
	st.tm = threads.NewThreadManager(host, st)
	st.timerStart = st.tm.Host().Now()
	return st
}

func (st *Stage) TypeName() string                { return "stage" }
func (st *Stage) Threads() *threads.ThreadManager { return st.tm }
func (st *Stage) Globals() *threads.VariableFrame { return st.globals }
func (st *Stage) Host() threads.Host              { return st.tm.Host() }

// Receivers lists the stage and all sprites including clones.
func (st *Stage) Receivers() []threads.Receiver {
	result := make([]threads.Receiver, 0, len(st.sprites)+1)
	result = append(result, st)
	for _, s := range st.sprites {
		result = append(result, s)
	}
	return result
}

// Receiver finds the stage or an original sprite by name.
func (st *Stage) Receiver(name string) threads.Receiver {
	if strings.EqualFold(name, st.Name()) {
		return st
	}
	if s := st.Sprite(name); s != nil {
		return s
	}
	return nil
}

// Sprite looks up an original sprite. It may be called from any goroutine.
func (st *Stage) Sprite(name string) *Sprite {
	if e := st.registry.Get(name); e != nil {
		return e.sprite
	}
	return nil
}

// SpriteNames lists the original sprites alphabetically.
func (st *Stage) SpriteNames() []string {
	all := st.registry.GetAll()
	result := make([]string, len(all))
	for i, e := range all {
		result[i] = e.name
	}
	return result
}

// AddSprite creates a sprite or returns the existing one of that name.
func (st *Stage) AddSprite(name string) *Sprite {
	if s := st.Sprite(name); s != nil {
		return s
	}
	s := newSprite(st, name)
	st.sprites = append(st.sprites, s)
	st.registry.Set(&spriteEntry{name, s})
	threads.Log.Debug("sprite %s added", name)
	return s
}

// Clone creates a temporary copy of s and starts its "when I start as a
// clone" scripts.
func (st *Stage) Clone(s *Sprite) *Sprite {
	if st.clones >= maxClones {
		panic(&threads.Error{Kind: threads.TypeMismatch, Message: "too many clones"})
	}
	c := &Sprite{
		Object:    threads.NewObject(s.Name(), s.Variables()),
		stage:     st,
		x:         s.x,
		y:         s.y,
		heading:   s.heading,
		size:      s.size,
		visible:   s.visible,
		costume:   s.costume,
		prototype: s,
	}
	c.Variables().SetOwner(c)
	c.SetParent(s.Object)
	c.SetScripts(s.Scripts())
	st.sprites = append(st.sprites, c)
	st.clones++
	st.tm.DoBroadcast(blocks.CloneMessage, nil, []threads.Receiver{c}, nil)
	return c
}

// RemoveClone stops the scripts of a clone and takes it off the stage.
// Originals are left alone.
func (st *Stage) RemoveClone(c *Sprite) {
	if !c.IsClone() || c.IsDead() {
		return
	}
	c.SetDead(true)
	st.tm.StopAllForReceiver(c, nil)
	for i, s := range st.sprites {
		if s == c {
			st.sprites = append(st.sprites[:i], st.sprites[i+1:]...)
			break
		}
	}
	st.clones--
}

func (st *Stage) RemoveAllClones() {
	for _, s := range append([]*Sprite(nil), st.sprites...) {
		st.RemoveClone(s)
	}
}

// FireGreenFlag removes all clones and starts every green flag script.
func (st *Stage) FireGreenFlag() []*threads.Process {
	st.RemoveAllClones()
	procs := st.tm.DoBroadcast(blocks.GreenFlagMessage, nil, nil, nil)
	threads.Log.Info("green flag started %d scripts", len(procs))
	return procs
}

// StopAll is the stop sign: every process ends and clones disappear.
func (st *Stage) StopAll() {
	st.tm.StopAll(nil)
	st.RemoveAllClones()
	for _, s := range st.sprites {
		s.SetBubble(nil, false)
	}
}

// FireKeyEvent starts the "when key pressed" scripts for key.
func (st *Stage) FireKeyEvent(key string) []*threads.Process {
	var procs []*threads.Process
	for _, r := range st.Receivers() {
		for _, s := range r.Scripts() {
			if s.RespondsToKey(key) {
				procs = append(procs, st.tm.StartProcess(s, r, threads.ProcessOptions{IsThreadSafe: threads.Settings.ThreadSafe}))
			}
		}
	}
	return procs
}

// SetKeyPressed records the key state "key pressed?" reports.
func (st *Stage) SetKeyPressed(key string, down bool) {
	st.keys[strings.ToLower(key)] = down
}

func (st *Stage) IsKeyPressed(key string) bool {
	key = strings.ToLower(key)
	if key == "any key" {
		for _, down := range st.keys {
			if down {
				return true
			}
		}
		return false
	}
	return st.keys[key]
}

// Timer is the number of seconds since the last reset.
func (st *Stage) Timer() float64 {
	return st.Host().Now().Sub(st.timerStart).Seconds()
}

func (st *Stage) ResetTimer() {
	st.timerStart = st.Host().Now()
}

// Step runs one frame: every process advances once, then the generic
// "when" hats are polled.
func (st *Stage) Step() {
	st.tm.Step()
	st.tm.StepGenericConditions(false)
}

func (st *Stage) hasConditions() bool {
	for _, r := range st.Receivers() {
		for _, s := range r.Scripts() {
			if s.Condition() != nil {
				return true
			}
		}
	}
	return false
}

// NextWakeup is when Step has work to do. Generic hats are polled every frame.
func (st *Stage) NextWakeup() (time.Time, bool) {
	if threads.Settings.EnableCustomHats && st.hasConditions() {
		return st.Host().Now(), true
	}
	return st.tm.NextWakeup()
}

// Clear stops everything and removes all sprites, scripts and variables so
// a project can be loaded again.
func (st *Stage) Clear() {
	st.StopAll()
	st.tm.Step()
	for _, s := range st.sprites {
		s.SetDead(true)
	}
	for _, e := range st.registry.GetAll() {
		st.registry.Remove(e.name)
	}
	st.sprites = nil
	st.clones = 0
	st.globals = threads.NewFrame(nil, nil)
	st.Object = threads.NewObject(st.Name(), st.globals)
	st.Variables().SetOwner(st)
	st.keys = make(map[string]bool)
	st.ResetTimer()
}
