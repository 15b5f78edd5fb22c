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
	"testing"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/heptio-dds/ddscore/internal/locator"
)

// shortLivedCache builds a cache.Cache with a TTL/sweep short enough
// to exercise Touch's keep-alive effect inside a fast test.
func shortLivedCache() *cache.Cache {
	return cache.New(30*time.Millisecond, 10*time.Millisecond)
}

func prefix(b byte) Prefix {
	var p Prefix
	for i := range p {
		p[i] = b
	}
	return p
}

func TestLookupMissReportsNotFound(t *testing.T) {
	tbl := NewTable()
	if _, ok := tbl.Lookup(prefix(1)); ok {
		t.Fatal("Lookup on an empty table should report not found")
	}
}

func TestAddThenLookupFindsEntry(t *testing.T) {
	tbl := NewTable()
	e := tbl.Add(prefix(1), 0, 0, nil)

	got, ok := tbl.Lookup(prefix(1))
	if !ok {
		t.Fatal("Lookup should find the entry Add just inserted")
	}
	if got != e {
		t.Fatal("Lookup returned a different *Entry than Add returned")
	}
	if tbl.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", tbl.Len())
	}
}

func TestAddWithParentLinksChild(t *testing.T) {
	tbl := NewTable()
	parent := tbl.Add(prefix(1), 0, 0, nil)
	child := tbl.Add(prefix(2), 0, 0, parent)

	if child.Parent() != parent {
		t.Fatal("child.Parent() should be the parent entry")
	}
	if parent.ChildCount() != 1 {
		t.Fatalf("parent.ChildCount() = %d, want 1", parent.ChildCount())
	}
}

func TestRemoveDisposesEntryAndLinksAreCleared(t *testing.T) {
	tbl := NewTable()
	e := tbl.Add(prefix(1), 0, 0, nil)
	tbl.Remove(prefix(1))

	waitFor(t, func() bool {
		_, ok := tbl.Lookup(prefix(1))
		return !ok
	})
	_ = e
}

func TestRemoveParentTransitivelyDisposesChildren(t *testing.T) {
	tbl := NewTable()
	parent := tbl.Add(prefix(1), 0, 0, nil)
	tbl.Add(prefix(2), 0, 0, parent)
	tbl.Add(prefix(3), 0, 0, parent)

	tbl.Remove(prefix(1))

	waitFor(t, func() bool {
		_, p1 := tbl.Lookup(prefix(1))
		_, p2 := tbl.Lookup(prefix(2))
		_, p3 := tbl.Lookup(prefix(3))
		return !p1 && !p2 && !p3
	})
	if tbl.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after transitive disposal", tbl.Len())
	}
}

func TestRemoveGrandchildCascadeDisposesWholeSubtree(t *testing.T) {
	tbl := NewTable()
	root := tbl.Add(prefix(1), 0, 0, nil)
	mid := tbl.Add(prefix(2), 0, 0, root)
	tbl.Add(prefix(3), 0, 0, mid)

	tbl.Remove(prefix(1))

	waitFor(t, func() bool { return tbl.Len() == 0 })
}

func TestAddLocatorRecordsByModeAndReplyAxis(t *testing.T) {
	tbl := NewTable()
	e := tbl.Add(prefix(1), 0, 0, nil)

	addr := locator.Address{10, 0, 0, 1}
	e.AddLocator(UserUnicast, false, locator.KindUDPv4, addr, 7400, 0, 0, 0)
	e.AddLocator(UserUnicast, true, locator.KindUDPv4, addr, 7401, 0, 0, 0)

	destNodes := e.Locators(UserUnicast, false)
	replyNodes := e.Locators(UserUnicast, true)
	if len(destNodes) != 1 || destNodes[0].Port != 7400 {
		t.Fatalf("destination locators = %+v, want one entry on port 7400", destNodes)
	}
	if len(replyNodes) != 1 || replyNodes[0].Port != 7401 {
		t.Fatalf("reply locators = %+v, want one entry on port 7401", replyNodes)
	}
	if len(e.Locators(MetaMulticast, false)) != 0 {
		t.Fatal("a locator added under UserUnicast must not leak into MetaMulticast")
	}
}

func TestTouchExtendsTTLPastWhatWouldHaveExpired(t *testing.T) {
	tbl := &Table{entries: make(map[Prefix]*Entry)}
	tbl.cache = shortLivedCache()
	tbl.cache.OnEvicted(tbl.onEvicted)

	tbl.Add(prefix(1), 0, 0, nil)
	time.Sleep(20 * time.Millisecond)
	tbl.Touch(prefix(1))
	// The original 30ms TTL (started at Add) has now elapsed and the
	// janitor has swept past it at least once; only the Touch-extended
	// deadline keeps the entry alive this long.
	time.Sleep(25 * time.Millisecond)

	if _, ok := tbl.Lookup(prefix(1)); !ok {
		t.Fatal("Touch should have kept the entry alive past its original short TTL")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition was never satisfied within 2s")
}
