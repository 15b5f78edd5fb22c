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

package qos

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Record is a hash-consed, refcounted QoS value. Every entity that
// shares an identical QoS (the overwhelmingly common case — most
// writers/readers on a system use one of a handful of profiles) points
// at the same Record, matching spec.md §4.3's hash-consing requirement.
type Record struct {
	key   string
	value UniQos
	mu    sync.Mutex
	users int
}

// Value returns the interned QoS value. The returned UniQos must be
// treated as read-only: a Record is shared by every user holding it.
func (r *Record) Value() UniQos { return r.value }

// Table hash-conses UniQos values: Intern returns the same *Record for
// structurally equal QoS, incrementing its refcount. A Record stays
// resident for as long as any caller holds it (users >= 1); once the
// last holder calls Release the evictable LRU backing is allowed to
// reclaim the slot, the same "pinned while referenced, evictable once
// free" discipline spec.md §4.3 asks of the QoS hash-cons cache.
type Table struct {
	mu      sync.Mutex
	pinned  map[string]*Record
	evict   *lru.Cache[string, *Record]
}

// NewTable creates a hash-cons table whose evictable tier holds up to
// evictableCapacity previously-referenced-but-now-unused records,
// trading a bounded amount of memory for avoiding re-validating and
// re-hashing a QoS profile that keeps getting created and destroyed.
func NewTable(evictableCapacity int) *Table {
	c, err := lru.New[string, *Record](max(evictableCapacity, 1))
	if err != nil {
		// Only returns an error for a non-positive size, which max()
		// above rules out.
		panic(err)
	}
	return &Table{
		pinned: make(map[string]*Record),
		evict:  c,
	}
}

// Intern returns the Record for q, creating it if this is the first
// reference. The caller owns one reference and must call Release when
// done with it.
func (t *Table) Intern(q UniQos) *Record {
	key := structuralKey(q)

	t.mu.Lock()
	defer t.mu.Unlock()

	if r, ok := t.pinned[key]; ok {
		r.mu.Lock()
		r.users++
		r.mu.Unlock()
		return r
	}
	if r, ok := t.evict.Get(key); ok {
		t.evict.Remove(key)
		r.mu.Lock()
		r.users++
		r.mu.Unlock()
		t.pinned[key] = r
		return r
	}

	r := &Record{key: key, value: q, users: 1}
	t.pinned[key] = r
	return r
}

// Release drops one reference to r. Once the last reference is
// dropped, r moves from the pinned tier to the evictable LRU tier
// instead of being freed immediately, so a QoS profile that churns
// (created, destroyed, recreated) doesn't pay the structuralKey cost
// every time.
func (t *Table) Release(r *Record) {
	r.mu.Lock()
	r.users--
	dead := r.users <= 0
	r.mu.Unlock()

	if !dead {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.pinned[r.key]; ok && cur == r {
		delete(t.pinned, r.key)
		t.evict.Add(r.key, r)
	}
}

// Len reports the number of currently pinned (actively referenced)
// records, for tests and diagnostics.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pinned)
}

// structuralKey produces a deterministic string key for a UniQos
// value. UniQos carries slice fields (Partition, *Data) so it is not a
// comparable Go type and cannot be used directly as a map key; %#v
// renders every field (including slice contents) in a fixed field
// order, which is all a hash-cons key needs.
func structuralKey(q UniQos) string {
	return fmt.Sprintf("%#v", q)
}
