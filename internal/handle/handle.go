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

// Package handle implements the bijection between integer handles and
// live entities described in spec.md §4.1. It is the race-free
// substitute for the original C sources' back-pointer-in-void* idiom:
// every "back" reference in the entity graph (endpoint -> participant,
// child -> parent) is stored as a Handle and resolved through a Table
// rather than a pointer, so a concurrent delete can never leave a
// dangling reference alive.
package handle

import (
	"sync"

	"github.com/heptio-dds/ddscore/internal/ddserr"
)

// T is a 1..N integer handle; the zero value is the null handle.
type T uint32

const Null T = 0

// Entity is anything a Table can hold. Type is a small discriminator
// (spec.md §3's entity header "type" field) used so a reused handle
// slot can be told apart from the entity the caller expected.
type Entity interface {
	HandleType() int
}

type slot struct {
	typ    int
	entity Entity
}

// Table is the handle table of spec.md §4.1: a single lock protects
// allocation, lookup and free. Handles are reused once freed; lookup
// checks both slot liveness and the caller-supplied type to avoid
// returning a stale entity across a free/realloc cycle.
type Table struct {
	mu   sync.Mutex
	min  int
	max  int
	rows []slot // index 0 unused, handle N lives at rows[N]
	free []T
}

// New creates a handle table that grows by minEntities at a time up to
// maxEntities total slots (0 means unbounded).
func New(minEntities, maxEntities int) *Table {
	if minEntities <= 0 {
		minEntities = 16
	}
	t := &Table{min: minEntities, max: maxEntities}
	t.rows = make([]slot, 1, minEntities+1) // rows[0] is the null slot
	return t
}

// Assign allocates a handle for e and stores it. It returns
// ddserr.OutOfResourcesErr if the table is at maxEntities.
func (t *Table) Assign(e Entity) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n := len(t.free); n > 0 {
		h := t.free[n-1]
		t.free = t.free[:n-1]
		t.rows[h] = slot{typ: e.HandleType(), entity: e}
		return h, nil
	}

	if t.max > 0 && len(t.rows) > t.max {
		return Null, ddserr.OutOfResourcesErr(nil)
	}
	h := T(len(t.rows))
	t.rows = append(t.rows, slot{typ: e.HandleType(), entity: e})
	return h, nil
}

// Free releases h for reuse. Freeing an already-free or out-of-range
// handle is a no-op (idempotent, matching the original's "delete is
// safe to call twice during teardown" behavior).
func (t *Table) Free(h T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(h) <= 0 || int(h) >= len(t.rows) {
		return
	}
	if t.rows[h].typ == 0 {
		return
	}
	t.rows[h] = slot{}
	t.free = append(t.free, h)
}

// Lookup returns the entity stored at h, or ok=false if h is null,
// out of range, or has been freed.
func (t *Table) Lookup(h T) (Entity, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(h) <= 0 || int(h) >= len(t.rows) {
		return nil, false
	}
	s := t.rows[h]
	if s.typ == 0 {
		return nil, false
	}
	return s.entity, true
}

// LookupTyped is Lookup plus the spec.md §4.1 "type != 0 and a
// back-pointer equality" staleness check: it additionally verifies
// that the live entity at h still reports the expected type.
func (t *Table) LookupTyped(h T, wantType int) (Entity, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(h) <= 0 || int(h) >= len(t.rows) {
		return nil, false
	}
	s := t.rows[h]
	if s.typ == 0 || s.typ != wantType {
		return nil, false
	}
	return s.entity, true
}

// Len returns the number of live (non-free) handles.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rows) - 1 - len(t.free)
}
