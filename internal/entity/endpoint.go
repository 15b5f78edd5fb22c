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

	"github.com/heptio-dds/ddscore/internal/ddserr"
	"github.com/heptio-dds/ddscore/internal/history"
	"github.com/heptio-dds/ddscore/internal/locator"
	"github.com/heptio-dds/ddscore/internal/metrics"
	"github.com/heptio-dds/ddscore/internal/qos"
)

// Endpoint is the base spec.md §3 describes for Reader/Writer, local
// or remote: participant back-pointer, entity id, topic, QoS, and
// locator lists. Writer and Reader embed it rather than duplicating
// these fields, the same base/extension shape the teacher uses for
// its DAG vertex types.
type Endpoint struct {
	Header

	participant *Participant
	EntityId    EntityId
	Topic       *Topic
	Qos         qos.UniQos

	UnicastLocators   locator.List
	MulticastLocators locator.List
}

func endpointLess(a, b *Endpoint) bool { return a.EntityId.Less(b.EntityId) }

// Participant returns the endpoint's owning participant, the common
// half of Writer.Publisher/Reader.Subscriber's ancestor-walk that
// internal/dispatch needs to find a status notification's next-widest
// listener scope (spec.md §4.9).
func (e *Endpoint) Participant() *Participant { return e.participant }

// Writer is spec.md §3's Writer entity: an Endpoint plus its owning
// Publisher, history cache, and offered-side status counters.
type Writer struct {
	Endpoint

	mu sync.Mutex

	publisher *Publisher
	Cache     *history.Cache

	endpointKey metrics.EndpointKey
	metrics     *metrics.Metrics

	matchedReaders map[EntityId]*Reader
}

// Publisher returns w's owning publisher.
func (w *Writer) Publisher() *Publisher { return w.publisher }

// Reader is spec.md §3's Reader entity: an Endpoint plus its owning
// Subscriber, history cache, and requested-side status counters.
type Reader struct {
	Endpoint

	mu sync.Mutex

	subscriber *Subscriber
	Cache      *history.Cache

	endpointKey metrics.EndpointKey
	metricsRef  *metrics.Metrics

	matchedWriters map[EntityId]*Writer
}

// Subscriber returns r's owning subscriber.
func (r *Reader) Subscriber() *Subscriber { return r.subscriber }

// CreateWriter creates a Writer owned by pub, publishing on topic,
// enabling it immediately when both pub's participant and topic are
// already enabled (spec.md §4.7's enable rule: "a Writer/Reader
// requires both its parent and its Topic"). When pub is suspended the
// new writer is queued rather than eligible for discovery
// announcement until Publisher.Resume runs.
func (pub *Publisher) CreateWriter(topic *Topic, q qos.UniQos, m *metrics.Metrics, autoenable bool) (*Writer, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	p := pub.participant
	id := p.allocEntityId(EntityKindUserWriterWithKey)

	w := &Writer{
		Endpoint: Endpoint{
			Header:      Header{kind: KindWriter, flags: FlagLocal},
			participant: p,
			EntityId:    id,
			Topic:       topic,
			Qos:         q,
		},
		publisher:   pub,
		metrics:     m,
		endpointKey: metrics.EndpointKey{Topic: topic.Name},
		matchedReaders: make(map[EntityId]*Reader),
	}
	w.Cache = history.NewCache(q, m, w.endpointKey)

	h, err := p.entityHandles().Assign(w)
	if err != nil {
		return nil, ddserr.OutOfResourcesErr(err)
	}
	w.handle = h

	p.insertEndpoint(&w.Endpoint)
	topic.addWriter(w)
	pub.registerWriter(w)

	if autoenable && p.enabled() && topic.enabled() {
		w.Enable()
	}
	return w, nil
}

// CreateReader is CreateWriter's mirror for the subscriber side.
func (sub *Subscriber) CreateReader(topic *Topic, q qos.UniQos, m *metrics.Metrics, autoenable bool) (*Reader, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	p := sub.participant
	id := p.allocEntityId(EntityKindUserReaderWithKey)

	r := &Reader{
		Endpoint: Endpoint{
			Header:      Header{kind: KindReader, flags: FlagLocal},
			participant: p,
			EntityId:    id,
			Topic:       topic,
			Qos:         q,
		},
		subscriber:  sub,
		metricsRef:  m,
		endpointKey: metrics.EndpointKey{Topic: topic.Name},
		matchedWriters: make(map[EntityId]*Writer),
	}
	r.Cache = history.NewCache(q, m, r.endpointKey)

	h, err := p.entityHandles().Assign(r)
	if err != nil {
		return nil, ddserr.OutOfResourcesErr(err)
	}
	r.handle = h

	p.insertEndpoint(&r.Endpoint)
	topic.addReader(r)
	sub.registerReader(r)

	if autoenable && p.enabled() && topic.enabled() {
		r.Enable()
	}
	return r, nil
}

// DeleteWriter removes w from its publisher and topic, reaping the
// topic if that was its last reference (spec.md §3's invariant).
func (pub *Publisher) DeleteWriter(w *Writer) error {
	if err := pub.unregisterWriter(w); err != nil {
		return err
	}
	w.Topic.removeWriter(w)
	w.participant.deleteEndpoint(&w.Endpoint)
	w.participant.entityHandles().Free(w.handle)
	w.Topic.domain.reapTopicIfDead(w.Topic)
	return nil
}

// DeleteReader is DeleteWriter's mirror.
func (sub *Subscriber) DeleteReader(r *Reader) error {
	if err := sub.unregisterReader(r); err != nil {
		return err
	}
	r.Topic.removeReader(r)
	r.participant.deleteEndpoint(&r.Endpoint)
	r.participant.entityHandles().Free(r.handle)
	r.Topic.domain.reapTopicIfDead(r.Topic)
	return nil
}

func (t *Topic) addWriter(w *Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writers = append(t.writers, w)
}

func (t *Topic) removeWriter(w *Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, cand := range t.writers {
		if cand == w {
			t.writers = append(t.writers[:i], t.writers[i+1:]...)
			return
		}
	}
}

func (t *Topic) addReader(r *Reader) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.readers = append(t.readers, r)
}

func (t *Topic) removeReader(r *Reader) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, cand := range t.readers {
		if cand == r {
			t.readers = append(t.readers[:i], t.readers[i+1:]...)
			return
		}
	}
}

func (t *Topic) enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Header.enabled()
}

// MatchEndpoints records w/r as a matched writer/reader pair once
// internal/qos.Match (via history.Matches) reports compatibility,
// updating both sides' publication/subscription-matched counters.
func MatchEndpoints(w *Writer, r *Reader) (bool, qos.PolicyID) {
	ok, policy := history.Matches(w.Cache, r.Cache)
	if !ok {
		if w.metrics != nil {
			w.metrics.OfferedIncompatibleQos(w.endpointKey, policy.String())
		}
		if r.metricsRef != nil {
			r.metricsRef.RequestedIncompatibleQos(r.endpointKey, policy.String())
		}
		return false, policy
	}

	w.mu.Lock()
	w.matchedReaders[r.EntityId] = r
	n := len(w.matchedReaders)
	w.mu.Unlock()
	if w.metrics != nil {
		w.metrics.SetPublicationMatched(w.endpointKey, n)
	}

	r.mu.Lock()
	r.matchedWriters[w.EntityId] = w
	n = len(r.matchedWriters)
	r.mu.Unlock()
	if r.metricsRef != nil {
		r.metricsRef.SetSubscriptionMatched(r.endpointKey, n)
	}

	durableOrReliable := r.Qos.Durability.Kind != qos.Volatile || r.Qos.Reliability.Kind == qos.Reliable
	if durableOrReliable {
		w.Cache.SetMatchedDurableOrReliable(true)
	}
	return true, 0
}
