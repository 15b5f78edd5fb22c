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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/heptio-dds/ddscore/internal/ddserr"
)

// TestMatchDurabilityIncompatible exercises spec.md §8 scenario 3: a
// VOLATILE writer cannot satisfy a TRANSIENT_LOCAL reader.
func TestMatchDurabilityIncompatible(t *testing.T) {
	w := Default()
	w.Durability = Durability{Kind: Volatile}

	r := Default()
	r.Durability = Durability{Kind: TransientLocal}

	ok, policy := Match(w, r)
	require.False(t, ok)
	require.Equal(t, PolicyDurability, policy)
}

func TestMatchDurabilityCompatible(t *testing.T) {
	w := Default()
	w.Durability = Durability{Kind: TransientLocal}

	r := Default()
	r.Durability = Durability{Kind: Volatile}

	ok, _ := Match(w, r)
	require.True(t, ok)
}

func TestMatchReliabilityIncompatible(t *testing.T) {
	w := Default()
	w.Reliability = Reliability{Kind: BestEffort}

	r := Default()
	r.Reliability = Reliability{Kind: Reliable}

	ok, policy := Match(w, r)
	require.False(t, ok)
	require.Equal(t, PolicyReliability, policy)
}

func TestMatchPresentationScopeIncompatible(t *testing.T) {
	w := Default()
	w.Presentation = Presentation{AccessScope: InstanceScope}

	r := Default()
	r.Presentation = Presentation{AccessScope: TopicScope}

	ok, policy := Match(w, r)
	require.False(t, ok)
	require.Equal(t, PolicyPresentation, policy)
}

func TestMatchPresentationCoherentRequiresWriterSupport(t *testing.T) {
	w := Default()
	w.Presentation = Presentation{AccessScope: GroupScope, Coherent: false}

	r := Default()
	r.Presentation = Presentation{AccessScope: GroupScope, Coherent: true}

	ok, policy := Match(w, r)
	require.False(t, ok)
	require.Equal(t, PolicyPresentation, policy)
}

// TestMatchPartitionWildcard exercises spec.md §8 scenario 5.
func TestMatchPartitionWildcard(t *testing.T) {
	tests := map[string]struct {
		writer, reader []string
		want           bool
	}{
		"wildcard matches":    {writer: []string{"A", "finance.*"}, reader: []string{"finance.eq"}, want: true},
		"disjoint":            {writer: []string{"A"}, reader: []string{"B"}, want: false},
		"both default":        {writer: nil, reader: nil, want: true},
		"exact match":         {writer: []string{"A"}, reader: []string{"A"}, want: true},
		"reader has wildcard": {writer: []string{"finance.eq"}, reader: []string{"finance.*"}, want: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.want, PartitionsIntersect(tc.writer, tc.reader))
		})
	}
}

func TestValidateHistoryDepth(t *testing.T) {
	q := Default()
	q.History = History{Kind: KeepLast, Depth: 0}

	err := q.Validate()
	require.Error(t, err)
	require.Equal(t, ddserr.BadParameter, ddserr.CodeOf(err))
}

func TestValidateResourceLimitsInconsistentWithHistory(t *testing.T) {
	q := Default()
	q.History = History{Kind: KeepLast, Depth: 10}
	q.ResourceLimits.MaxSamplesPerInstance = 5

	err := q.Validate()
	require.Error(t, err)
	require.Equal(t, ddserr.InconsistentPolicy, ddserr.CodeOf(err))
}

func TestValidateDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestTableInternsEqualQosOnce(t *testing.T) {
	tbl := NewTable(8)

	a := tbl.Intern(Default())
	b := tbl.Intern(Default())

	require.Same(t, a, b)
	require.Equal(t, 1, tbl.Len())

	tbl.Release(a)
	require.Equal(t, 1, tbl.Len(), "releasing one of two references keeps the record pinned")
}

func TestTableReleaseToZeroMovesToEvictableTier(t *testing.T) {
	tbl := NewTable(8)

	a := tbl.Intern(Default())
	tbl.Release(a)
	require.Equal(t, 0, tbl.Len())

	b := tbl.Intern(Default())
	require.Same(t, a, b, "a record released to zero users is recovered from the evictable tier, not rebuilt")
}

func TestImmutableDetectsHistoryChange(t *testing.T) {
	a := Default()
	b := Default()
	b.History.Depth = 2

	require.True(t, Immutable(a, b))
}

func TestImmutableIgnoresMutablePolicies(t *testing.T) {
	a := Default()
	b := Default()
	b.UserData = []byte("hello")

	require.False(t, Immutable(a, b))
}
