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

package strintern

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShortStringsStayInline(t *testing.T) {
	p := NewPool()
	r := p.Intern("short")
	require.Equal(t, "short", r.String())
	require.Equal(t, 1, r.Refs())
	require.Empty(t, p.entries)
}

func TestLongStringsAreDeduplicatedAndRefcounted(t *testing.T) {
	p := NewPool()
	a := p.Intern("a rather long topic name string")
	b := p.Intern("a rather long topic name string")

	require.Equal(t, 2, a.Refs())
	require.Equal(t, 2, b.Refs())

	b.Drop(p)
	require.Equal(t, 1, a.Refs())

	a.Drop(p)
	require.Empty(t, p.entries)
}

func TestCloneIncrementsRefcount(t *testing.T) {
	p := NewPool()
	a := p.Intern("a rather long topic name string")
	c := a.Clone()
	require.Equal(t, 2, a.Refs())
	c.Drop(p)
	require.Equal(t, 1, a.Refs())
	a.Drop(p)
}
