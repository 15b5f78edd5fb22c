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

// Package strintern implements the reference-counted immutable string
// pool of spec.md §3 ("String intern pool"): strings are deduplicated
// behind a single pool lock, refcounted, and a short string (<= 7
// bytes) is stored inline so it never touches the pool at all — the
// same "short string optimization, long string refcounted" split the
// original C `str_t` used, re-expressed as an immutable Go value type
// with explicit Clone/Drop instead of a raw refcount field.
package strintern

import "sync"

const inlineCap = 7

// Ref is an interned string handle. The zero Ref is the empty string.
// Ref is safe to copy; Clone/Drop manage the underlying pool entry's
// refcount explicitly so callers control lifetime the way the
// original's ref-counted `str_t` did, rather than relying on GC alone
// to decide when a long string's pool slot can be reclaimed.
type Ref struct {
	inline    [inlineCap]byte
	inlineLen uint8
	long      bool
	entry     *entry
}

type entry struct {
	mu   sync.Mutex
	s    string
	refs int
}

// Pool deduplicates strings longer than the inline threshold.
type Pool struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewPool creates an empty intern pool.
func NewPool() *Pool {
	return &Pool{entries: make(map[string]*entry)}
}

// Intern returns a Ref for s. Strings of length <= 7 never touch the
// pool; longer strings are deduplicated and refcounted.
func (p *Pool) Intern(s string) Ref {
	if len(s) <= inlineCap {
		var r Ref
		copy(r.inline[:], s)
		r.inlineLen = uint8(len(s))
		return r
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[s]
	if !ok {
		e = &entry{s: s, refs: 0}
		p.entries[s] = e
	}
	e.mu.Lock()
	e.refs++
	e.mu.Unlock()

	return Ref{long: true, entry: e}
}

// Clone increments the refcount (a no-op for inline strings) and
// returns an equal Ref. Use it whenever a Ref is stored in a second
// owning location (e.g. copied from a ParameterList into a Topic).
func (r Ref) Clone() Ref {
	if r.long && r.entry != nil {
		r.entry.mu.Lock()
		r.entry.refs++
		r.entry.mu.Unlock()
	}
	return r
}

// Drop decrements the refcount and releases the pool entry once it
// reaches zero. Drop must be called exactly once per Clone/Intern
// that produced this Ref's long-string entry; it is a no-op for
// inline strings.
func (r Ref) Drop(p *Pool) {
	if !r.long || r.entry == nil {
		return
	}
	r.entry.mu.Lock()
	r.entry.refs--
	dead := r.entry.refs <= 0
	s := r.entry.s
	r.entry.mu.Unlock()

	if dead {
		p.mu.Lock()
		if cur, ok := p.entries[s]; ok && cur == r.entry {
			delete(p.entries, s)
		}
		p.mu.Unlock()
	}
}

// String returns the interned string's value.
func (r Ref) String() string {
	if r.long {
		if r.entry == nil {
			return ""
		}
		return r.entry.s
	}
	return string(r.inline[:r.inlineLen])
}

// Refs reports the current refcount of a long string, or 1 for an
// inline string (which is never shared through the pool).
func (r Ref) Refs() int {
	if !r.long {
		return 1
	}
	if r.entry == nil {
		return 0
	}
	r.entry.mu.Lock()
	defer r.entry.mu.Unlock()
	return r.entry.refs
}
