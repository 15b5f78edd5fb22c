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

package forward

import (
	"encoding/hex"
	"errors"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
)

// DefaultTTL is rtps_ft.h's MAX_FWD_TTL: how long an entry survives
// without being re-discovered.
const DefaultTTL = 200 * time.Second

// AgePeriod is rtps_ft.h's AGE_PERIOD: how often the ageing sweep
// runs. go-cache's janitor is given this as its cleanup interval so
// an entry's remaining lifetime is still only ever wrong by at most
// one sweep, the same bound the original's ttl -= AGE_PERIOD loop has.
const AgePeriod = 5 * time.Second

// Table is spec.md §4.10's forwarding table: GUID prefix -> Entry,
// aged by go-cache's own janitor rather than a hand-rolled ticker (see
// doc.go).
type Table struct {
	mu      sync.Mutex
	entries map[Prefix]*Entry
	cache   *cache.Cache
}

// NewTable returns a Table whose entries expire DefaultTTL after their
// last Add/Touch, reaped every AgePeriod.
func NewTable() *Table {
	t := &Table{
		entries: make(map[Prefix]*Entry),
		cache:   cache.New(DefaultTTL, AgePeriod),
	}
	t.cache.OnEvicted(t.onEvicted)
	return t
}

func key(p Prefix) string { return hex.EncodeToString(p[:]) }

// Lookup hashes prefix and returns its entry, spec.md §4.10's
// `lookup(prefix) -> Option<entry>`. The hash-then-chain-walk rtps_ft.c
// performs by hand is just Go's map lookup here (see doc.go).
func (t *Table) Lookup(prefix Prefix) (*Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[prefix]
	return e, ok
}

// Add inserts a new entry for prefix under domain, optionally as a
// child of parent, ft_add's behavior. Add does not check for an
// existing entry under prefix; callers should Lookup first, per
// rtps_ft.h's documented ft_lookup-then-ft_add usage.
func (t *Table) Add(prefix Prefix, domain uint32, flags uint32, parent *Entry) *Entry {
	e := newEntry(prefix, domain, flags, parent)

	t.mu.Lock()
	t.entries[prefix] = e
	if parent != nil {
		parent.mu.Lock()
		parent.children[prefix] = e
		parent.mu.Unlock()
	}
	t.mu.Unlock()

	t.cache.Set(key(prefix), prefix, cache.DefaultExpiration)
	return e
}

// Touch resets prefix's remaining TTL to DefaultTTL, the effect of a
// repeated discovery advertisement for an already-known participant.
func (t *Table) Touch(prefix Prefix) {
	t.mu.Lock()
	_, ok := t.entries[prefix]
	t.mu.Unlock()
	if !ok {
		return
	}
	t.cache.Set(key(prefix), prefix, cache.DefaultExpiration)
}

// Remove disposes prefix's entry (and, transitively, its children)
// immediately rather than waiting for it to age out, ft_delete.
// Deletion runs through the same OnEvicted path the janitor uses, so
// the dispose/child-cascade logic lives in exactly one place.
func (t *Table) Remove(prefix Prefix) {
	t.cache.Delete(key(prefix))
}

// onEvicted is go-cache's janitor callback, invoked once per expired
// key on every AgePeriod sweep. It is also reached directly by Remove
// for an explicit delete, so dispose logic lives in one place.
func (t *Table) onEvicted(k string, _ interface{}) {
	prefix, err := decodeKey(k)
	if err != nil {
		return
	}
	t.dispose(prefix)
}

// dispose removes prefix's entry from the table, transitively
// disposing every child first and then unlinking the entry from its
// parent -- ft_dispose's "if (p->nchildren) remove all this node's
// children" rule. Each child is disposed through the same cache.Delete
// path so a child discovered independently (and therefore separately
// keyed in go-cache) is also cleared from the janitor's own bookkeeping.
func (t *Table) dispose(prefix Prefix) {
	t.mu.Lock()
	e, ok := t.entries[prefix]
	if !ok {
		t.mu.Unlock()
		return
	}
	e.mu.Lock()
	children := make([]Prefix, 0, len(e.children))
	for cp := range e.children {
		children = append(children, cp)
	}
	e.mu.Unlock()
	t.mu.Unlock()

	// Deleting each child from go-cache re-enters onEvicted for it,
	// which in turn disposes its own children first -- ft_dispose's
	// depth-first "remove all this node's children" rule falls out of
	// this recursion for free.
	for _, cp := range children {
		t.cache.Delete(key(cp))
	}

	t.mu.Lock()
	if t.entries[prefix] == e {
		delete(t.entries, prefix)
	}
	if e.parent != nil {
		e.parent.mu.Lock()
		delete(e.parent.children, prefix)
		e.parent.mu.Unlock()
	}
	t.mu.Unlock()
}

// Len returns the number of live entries in the table.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func decodeKey(k string) (Prefix, error) {
	var p Prefix
	b, err := hex.DecodeString(k)
	if err != nil || len(b) != len(p) {
		if err == nil {
			err = errInvalidKey
		}
		return p, err
	}
	copy(p[:], b)
	return p, nil
}

var errInvalidKey = errors.New("forward: invalid cache key")
