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

package handle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeEntity struct{ typ int }

func (f *fakeEntity) HandleType() int { return f.typ }

func TestAssignLookupFree(t *testing.T) {
	tbl := New(4, 0)
	e := &fakeEntity{typ: 1}

	h, err := tbl.Assign(e)
	require.NoError(t, err)
	require.NotEqual(t, Null, h)

	got, ok := tbl.Lookup(h)
	require.True(t, ok)
	require.Same(t, e, got)
	require.Equal(t, 1, tbl.Len())

	tbl.Free(h)
	_, ok = tbl.Lookup(h)
	require.False(t, ok)
	require.Equal(t, 0, tbl.Len())
}

func TestFreedHandleReuseDoesNotReturnStaleType(t *testing.T) {
	tbl := New(4, 0)
	a := &fakeEntity{typ: 1}
	b := &fakeEntity{typ: 2}

	h1, err := tbl.Assign(a)
	require.NoError(t, err)
	tbl.Free(h1)

	h2, err := tbl.Assign(b)
	require.NoError(t, err)
	require.Equal(t, h1, h2, "freed slots should be reused")

	// A lookup for the old (participant) type must not succeed against
	// the handle now occupied by a different kind of entity.
	_, ok := tbl.LookupTyped(h2, 1)
	require.False(t, ok)

	got, ok := tbl.LookupTyped(h2, 2)
	require.True(t, ok)
	require.Same(t, b, got)
}

func TestLookupOutOfRange(t *testing.T) {
	tbl := New(4, 0)
	_, ok := tbl.Lookup(T(999))
	require.False(t, ok)
	_, ok = tbl.Lookup(Null)
	require.False(t, ok)
}

func TestAssignOutOfResources(t *testing.T) {
	tbl := New(1, 1)
	_, err := tbl.Assign(&fakeEntity{typ: 1})
	require.NoError(t, err)

	_, err = tbl.Assign(&fakeEntity{typ: 1})
	require.Error(t, err)
}
