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
import "github.com/google/btree"

// wakeup is one pending timer of a suspended process
type wakeup struct {
	at   time.Time
	seq  uint64
	proc *Process
}

func wakeupLess(a, b wakeup) bool {
	if a.at.Equal(b.at) {
		return a.seq < b.seq
	}
	return a.at.Before(b.at)
}

// wakeQueue orders timer deadlines of suspended processes so the frame
// loop knows how long it may sleep. Each process holds at most one entry.
type wakeQueue struct {
	tree *btree.BTreeG[wakeup]
	seq  uint64
}

func newWakeQueue() *wakeQueue {
	return &wakeQueue{tree: btree.NewG[wakeup](16, wakeupLess)}
}

func (q *wakeQueue) schedule(p *Process, at time.Time) {
	if p.wakeKey != nil {
		if p.wakeKey.at.Equal(at) {
			return
		}
		q.tree.Delete(*p.wakeKey)
	}
	q.seq++
	w := wakeup{at, q.seq, p}
	q.tree.ReplaceOrInsert(w)
	p.wakeKey = &w
}

func (q *wakeQueue) remove(p *Process) {
	if p.wakeKey != nil {
		q.tree.Delete(*p.wakeKey)
		p.wakeKey = nil
	}
}

// expire drops every entry that is due; the processes poll on their next step anyway.
func (q *wakeQueue) expire(now time.Time) {
	for {
		w, ok := q.tree.Min()
		if !ok || w.at.After(now) {
			return
		}
		q.tree.DeleteMin()
		if w.proc.wakeKey != nil && w.proc.wakeKey.seq == w.seq {
			w.proc.wakeKey = nil
		}
	}
}

// next is the earliest pending deadline.
func (q *wakeQueue) next() (time.Time, bool) {
	w, ok := q.tree.Min()
	return w.at, ok
}

func (q *wakeQueue) Len() int {
	return q.tree.Len()
}
