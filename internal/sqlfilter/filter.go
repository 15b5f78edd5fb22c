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

package sqlfilter

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// SampleID identifies a sample across repeated read()/take() calls for
// the purpose of the order-key cache below; callers typically derive
// it from an instance handle plus a sample sequence number.
type SampleID uint64

// orderCacheKey mirrors SPEC_FULL.md's "keyed by (program pointer,
// parameter generation)" design for the per-filter cache: a new
// generation (bumped by SetParameters) or a newly compiled order
// program simply misses the cache instead of needing an explicit
// flush, giving bc_interpret's documented "cache must be reset when
// either program or parameters change" for free.
type orderCacheKey struct {
	prog       *Program
	generation uint64
}

type orderCacheEntry struct {
	sample SampleID
	key    Cell
}

// Filter is a compiled content filter or query: a match program, an
// optional order program, and the bound parameter list and per-filter
// order-key cache bc_interpret's `cache` argument represents in the
// original. One Filter is built per FilteredTopic/query condition and
// reused across every read()/take() call against it.
type Filter struct {
	mu sync.Mutex

	matchProg *Program
	orderProg *Program

	params     []Cell
	generation uint64

	orderCache *lru.Cache[orderCacheKey, orderCacheEntry]
}

// Compile parses expression as a WHERE-clause condition and orderBy as
// a comma-separated ORDER BY column list (either may be empty) and
// returns a ready-to-use Filter. An empty expression always matches,
// per spec.md §8.
func Compile(expression, orderBy string) (*Filter, error) {
	cond, err := ParseCondition(expression)
	if err != nil {
		return nil, err
	}
	cols, err := ParseOrderBy(orderBy)
	if err != nil {
		return nil, err
	}

	matchProg, err := compileMatch(cond)
	if err != nil {
		return nil, err
	}
	orderProg, err := compileOrder(cols)
	if err != nil {
		return nil, err
	}

	cache, _ := lru.New[orderCacheKey, orderCacheEntry](4) // size is fixed and positive; err is always nil
	return &Filter{
		matchProg:  matchProg,
		orderProg:  orderProg,
		orderCache: cache,
	}, nil
}

// SetParameters rebinds %0.. parameters, invalidating every
// previously-cached order key by advancing the generation counter
// rather than walking the cache to evict entries.
func (f *Filter) SetParameters(params []Cell) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params = params
	f.generation++
}

// NumParams reports how many distinct %N parameters the compiled
// match program references.
func (f *Filter) NumParams() int { return f.matchProg.NParams }

// Eval runs the match program against sample, returning whether it
// passes the filter.
func (f *Filter) Eval(sample FieldSource) (bool, error) {
	f.mu.Lock()
	params := f.params
	f.mu.Unlock()

	result, err := Interpret(f.matchProg, params, sample)
	if err != nil {
		return false, err
	}
	return result.I != 0, nil
}

// OrderKey runs the order program against sample, memoizing the result
// for id until either the parameters change (SetParameters) or a
// different id is asked for — the "cache slot" bc_interpret documents
// for amortizing repeated evaluation of the same sample during a
// read/take loop.
func (f *Filter) OrderKey(id SampleID, sample FieldSource) (Cell, error) {
	f.mu.Lock()
	key := orderCacheKey{prog: f.orderProg, generation: f.generation}
	if entry, ok := f.orderCache.Get(key); ok && entry.sample == id {
		f.mu.Unlock()
		return entry.key, nil
	}
	params := f.params
	f.mu.Unlock()

	result, err := Interpret(f.orderProg, params, sample)
	if err != nil {
		return Cell{}, err
	}

	f.mu.Lock()
	f.orderCache.Add(key, orderCacheEntry{sample: id, key: result})
	f.mu.Unlock()
	return result, nil
}
