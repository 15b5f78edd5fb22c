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
	"time"

	"github.com/google/btree"

	"github.com/heptio-dds/ddscore/internal/ddserr"
	"github.com/heptio-dds/ddscore/internal/handle"
	"github.com/heptio-dds/ddscore/internal/locator"
	"github.com/heptio-dds/ddscore/internal/qos"
)

// Participant is spec.md §3's Participant entity: a GuidPrefix, four
// locator lists, its Endpoints indexed by EntityId, and (via its
// owning Domain) the Topics-by-name index it shares with every other
// participant in the domain.
type Participant struct {
	Header

	mu sync.Mutex

	domain *Domain
	Guid   [12]byte
	Qos    qos.UniQos

	DefaultUnicastLocators   locator.List
	DefaultMulticastLocators locator.List
	MetaUnicastLocators      locator.List
	MetaMulticastLocators    locator.List

	LivelinessLeaseDuration time.Duration

	handlesOnce sync.Once
	handles     *handle.Table

	Endpoints   *btree.BTreeG[*Endpoint] // keyed by EntityId, shared writer+reader namespace
	publishers  map[handle.T]*Publisher
	subscribers map[handle.T]*Subscriber

	nextEntityCounter uint32
}

// Domain returns the participant's owning domain.
func (p *Participant) Domain() *Domain { return p.domain }

func (p *Participant) allocEntityId(kind EntityKind) EntityId {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextEntityCounter++
	return NewEntityId(p.nextEntityCounter, kind)
}

func (p *Participant) insertEndpoint(e *Endpoint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Endpoints.ReplaceOrInsert(e)
}

func (p *Participant) deleteEndpoint(e *Endpoint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Endpoints.Delete(e)
}

// CreatePublisher creates a Publisher owned by p. Per spec.md §4.7's
// enable rule, a Publisher can only enable once p itself is enabled.
func (p *Participant) CreatePublisher(q qos.UniQos, autoenable bool) (*Publisher, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.publishers == nil {
		p.publishers = make(map[handle.T]*Publisher)
	}

	pub := &Publisher{
		Header:      Header{kind: KindPublisher, flags: FlagLocal},
		participant: p,
		Qos:         q,
	}
	h, err := p.entityHandles().Assign(pub)
	if err != nil {
		return nil, ddserr.OutOfResourcesErr(err)
	}
	pub.handle = h
	if autoenable && p.enabled() {
		pub.Enable()
	}
	p.publishers[h] = pub
	return pub, nil
}

// CreateSubscriber is CreatePublisher's mirror for the subscriber side.
func (p *Participant) CreateSubscriber(q qos.UniQos, autoenable bool) (*Subscriber, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.subscribers == nil {
		p.subscribers = make(map[handle.T]*Subscriber)
	}

	sub := &Subscriber{
		Header:      Header{kind: KindSubscriber, flags: FlagLocal},
		participant: p,
		Qos:         q,
	}
	h, err := p.entityHandles().Assign(sub)
	if err != nil {
		return nil, ddserr.OutOfResourcesErr(err)
	}
	sub.handle = h
	if autoenable && p.enabled() {
		sub.Enable()
	}
	p.subscribers[h] = sub
	return sub, nil
}

// DeletePublisher removes pub, refusing while it still owns writers
// (spec.md §4.7: "contained-entity deletion is explicit").
func (p *Participant) DeletePublisher(pub *Publisher) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(pub.writers) > 0 {
		return ddserr.PreconditionErr(nil)
	}
	p.entityHandles().Free(pub.handle)
	delete(p.publishers, pub.handle)
	return nil
}

// DeleteSubscriber is DeletePublisher's mirror.
func (p *Participant) DeleteSubscriber(sub *Subscriber) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(sub.readers) > 0 {
		return ddserr.PreconditionErr(nil)
	}
	p.entityHandles().Free(sub.handle)
	delete(p.subscribers, sub.handle)
	return nil
}

// entityHandles lazily creates the participant-local handle table
// publishers, subscribers, writers and readers register in (distinct
// from the Domain's table, which holds the domain-scoped Participant
// and Topic entities).
func (p *Participant) entityHandles() *handle.Table {
	p.handlesOnce.Do(func() { p.handles = handle.New(16, 1<<16) })
	return p.handles
}
