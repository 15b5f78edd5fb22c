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

package entity

import (
	"sync"

	"github.com/google/btree"
	"github.com/google/uuid"

	"github.com/heptio-dds/ddscore/internal/ddserr"
	"github.com/heptio-dds/ddscore/internal/handle"
)

// Domain is the top-level registry spec.md §4.7 implies by "locks the
// domain" in its lifecycle description: every CreateParticipant call
// for a given DomainId goes through one Domain's lock, and Topics
// (name-unique within a domain, not a participant) live here rather
// than on any one Participant.
type Domain struct {
	mu sync.Mutex

	id           uint32
	handles      *handle.Table
	participants map[handle.T]*Participant
	topics       *btree.BTreeG[*Topic]   // ordered by Topic.Name
	types        map[string]*typeRecord  // interned by type name
}

// NewDomain creates an empty domain registry for DomainId id, sized
// for an expected participant/topic/type population.
func NewDomain(id uint32, maxEntities int) *Domain {
	return &Domain{
		id:           id,
		handles:      handle.New(16, maxEntities),
		participants: make(map[handle.T]*Participant),
		topics:       btree.NewG(32, topicLess),
		types:        make(map[string]*typeRecord),
	}
}

func topicLess(a, b *Topic) bool { return a.Name < b.Name }

// CreateParticipant creates and enables a local participant (unless
// autoenableCreatedEntities is false, in which case Enable must be
// called explicitly later), per spec.md §4.7's enable rule for
// DomainParticipant.
func (d *Domain) CreateParticipant(autoenableCreatedEntities bool) (*Participant, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p := &Participant{
		Header:   Header{kind: KindParticipant, flags: FlagLocal},
		domain:   d,
		Guid:     newGuidPrefix(),
		Endpoints: btree.NewG(32, endpointLess),
	}
	h, err := d.handles.Assign(p)
	if err != nil {
		return nil, ddserr.OutOfResourcesErr(err)
	}
	p.handle = h
	if autoenableCreatedEntities {
		p.Enable()
	}
	d.participants[h] = p
	return p, nil
}

// DeleteParticipant removes p from the domain. The caller must already
// have deleted p's contained entities (spec.md §4.7: "contained-entity
// deletion is explicit").
func (d *Domain) DeleteParticipant(p *Participant) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p.Endpoints.Len() > 0 || len(p.publishers) > 0 || len(p.subscribers) > 0 {
		return ddserr.PreconditionErr(nil)
	}
	d.handles.Free(p.handle)
	delete(d.participants, p.handle)
	return nil
}

// newGuidPrefix derives a locally-unique 12-byte GuidPrefix from a
// random UUID, the supplemented substitute for the original's
// host-network-address-derived prefix (out of scope: wire I/O, so
// there is no host address to derive from).
func newGuidPrefix() [12]byte {
	u := uuid.New()
	var prefix [12]byte
	copy(prefix[:], u[:12])
	return prefix
}
