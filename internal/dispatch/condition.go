// Copyright Project Contour Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dispatch

import (
	"sync"
	"time"

	"github.com/heptio-dds/ddscore/internal/ddserr"
	"github.com/heptio-dds/ddscore/internal/duration"
	"github.com/heptio-dds/ddscore/internal/history"
	"github.com/heptio-dds/ddscore/internal/sqlfilter"
)

// Condition is anything a WaitSet can block on: a StatusCondition, a
// GuardCondition, a ReadCondition or a QueryCondition, spec.md §4.9's
// four condition kinds.
type Condition interface {
	matches() bool
}

// StatusCondition is true whenever any bit of the entity's current
// status set intersects mask, mirroring spec.md §4.9's
// "ConditionStatus/StatusMask" pairing.
type StatusCondition struct {
	entity Entity
	mask   Mask
	disp   *Dispatcher
}

// NewStatusCondition returns a StatusCondition true whenever e's
// latched status bits intersect mask.
func NewStatusCondition(d *Dispatcher, e Entity, mask Mask) *StatusCondition {
	return &StatusCondition{entity: e, mask: mask, disp: d}
}

func (c *StatusCondition) matches() bool {
	return c.disp.statusBitsFor(c.entity.Handle())&c.mask != 0
}

// SetMask changes which status bits the condition watches.
func (c *StatusCondition) SetMask(mask Mask) { c.mask = mask }

// GuardCondition is a user-latched boolean trigger, spec.md §4.9's
// GuardCondition with set_trigger_value.
type GuardCondition struct {
	mu        sync.Mutex
	triggered bool
}

func NewGuardCondition() *GuardCondition { return &GuardCondition{} }

func (c *GuardCondition) matches() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.triggered
}

// SetTriggerValue sets or clears the guard.
func (c *GuardCondition) SetTriggerValue(v bool) {
	c.mu.Lock()
	c.triggered = v
	c.mu.Unlock()
}

// ReadCondition is true whenever the attached cache holds at least one
// unloaned sample matching mask, spec.md §4.9's ReadCondition.
type ReadCondition struct {
	cache *history.Cache
	mask  history.Mask
}

func NewReadCondition(cache *history.Cache, mask history.Mask) *ReadCondition {
	return &ReadCondition{cache: cache, mask: mask}
}

func (c *ReadCondition) matches() bool { return c.cache.Peek(c.mask, nil) }

// QueryCondition is a ReadCondition additionally narrowed by a
// content-filter expression, spec.md §4.9's QueryCondition --
// DataReader.create_querycondition composed with the same SQL92
// subset internal/sqlfilter compiles for content-filtered topics.
type QueryCondition struct {
	cache  *history.Cache
	mask   history.Mask
	filter *sqlfilter.Filter
	decode func(data []byte) sqlfilter.FieldSource
}

// NewQueryCondition returns a QueryCondition matching samples in
// cache that satisfy mask and, once decoded by decode, filter's
// WHERE-clause.
func NewQueryCondition(cache *history.Cache, mask history.Mask, filter *sqlfilter.Filter, decode func(data []byte) sqlfilter.FieldSource) *QueryCondition {
	return &QueryCondition{cache: cache, mask: mask, filter: filter, decode: decode}
}

func (c *QueryCondition) matches() bool {
	return c.cache.Peek(c.mask, func(data []byte) bool {
		ok, err := c.filter.Eval(c.decode(data))
		return err == nil && ok
	})
}

// WaitSet blocks a caller until one or more of its attached Conditions
// becomes true, spec.md §4.9's WaitSet.wait. Modeled on
// internal/history.Cache.WaitAcks's infinite/finite timeout idiom,
// generalized from a single counter to an arbitrary condition set.
type WaitSet struct {
	mu         sync.Mutex
	cond       *sync.Cond
	conditions []Condition
}

func NewWaitSet() *WaitSet {
	w := &WaitSet{}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// Attach adds c to the set of conditions Wait evaluates.
func (w *WaitSet) Attach(c Condition) {
	w.mu.Lock()
	w.conditions = append(w.conditions, c)
	w.mu.Unlock()
}

// Detach removes c from the waitset.
func (w *WaitSet) Detach(c Condition) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, cand := range w.conditions {
		if cand == c {
			w.conditions = append(w.conditions[:i], w.conditions[i+1:]...)
			return
		}
	}
}

// signal wakes every goroutine blocked in Wait so it can re-check its
// condition set.
func (w *WaitSet) signal() {
	w.mu.Lock()
	w.cond.Broadcast()
	w.mu.Unlock()
}

func (w *WaitSet) activeLocked() []Condition {
	var active []Condition
	for _, c := range w.conditions {
		if c.matches() {
			active = append(active, c)
		}
	}
	return active
}

// Wait blocks until at least one attached Condition is true, or
// timeout elapses, returning the subset of conditions that matched.
func (w *WaitSet) Wait(timeout duration.Value) ([]Condition, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if active := w.activeLocked(); len(active) > 0 {
		return active, nil
	}

	if timeout.IsInfinite() {
		for {
			w.cond.Wait()
			if active := w.activeLocked(); len(active) > 0 {
				return active, nil
			}
		}
	}

	done := make(chan struct{})
	timer := time.AfterFunc(timeout.Duration(), func() {
		close(done)
		w.signal()
	})
	defer timer.Stop()

	for {
		select {
		case <-done:
			return nil, ddserr.New(ddserr.Timeout, nil)
		default:
		}
		w.cond.Wait()
		if active := w.activeLocked(); len(active) > 0 {
			return active, nil
		}
	}
}
