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
	"github.com/heptio-dds/ddscore/internal/handle"
	"github.com/heptio-dds/ddscore/internal/qos"
)

// Publisher is spec.md §3's publisher grouping: the owner of a set of
// local Writers, with a suspended-publications queue per spec.md
// §4.7's enable rules ("Writers enabled inside a suspended publisher
// are deferred onto a `suspended` linked list and announced to
// discovery only on `resume_publications`").
type Publisher struct {
	Header

	mu sync.Mutex

	participant *Participant
	Qos         qos.UniQos

	writers   map[handle.T]*Writer
	suspended []*Writer // deferred announcement, FIFO
}

// Participant returns the owning participant.
func (p *Publisher) Participant() *Participant { return p.participant }

// Suspend sets the suspended flag: newly enabled Writers are queued
// instead of announced until Resume runs.
func (p *Publisher) Suspend() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setFlag(FlagSuspended, true)
}

// Resume flushes the suspended-writer queue, returning the writers
// that must now be announced to discovery (internal/plcdr
// DiscoveredWriterData emission is the caller's job; this package only
// tracks which writers are owed one).
func (p *Publisher) Resume() []*Writer {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setFlag(FlagSuspended, false)
	flushed := p.suspended
	p.suspended = nil
	return flushed
}

// QosUpdate replaces the publisher's default QoS for subsequently
// created writers that don't override it. It does not change the QoS
// of writers that already exist.
func (p *Publisher) QosUpdate(q qos.UniQos) error {
	if err := q.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Qos = q
	return nil
}

func (p *Publisher) registerWriter(w *Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writers == nil {
		p.writers = make(map[handle.T]*Writer)
	}
	p.writers[w.handle] = w
	if p.flags.has(FlagSuspended) {
		p.suspended = append(p.suspended, w)
	}
}

func (p *Publisher) unregisterWriter(w *Writer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.writers[w.handle]; !ok {
		return ddserr.PreconditionErr(nil)
	}
	delete(p.writers, w.handle)
	return nil
}

// Subscriber is spec.md §3's subscriber grouping: the owner of a set
// of local Readers.
type Subscriber struct {
	Header

	mu sync.Mutex

	participant *Participant
	Qos         qos.UniQos

	readers map[handle.T]*Reader
}

// Participant returns the owning participant.
func (s *Subscriber) Participant() *Participant { return s.participant }

// QosUpdate is Publisher.QosUpdate's mirror for subscriber-default QoS.
func (s *Subscriber) QosUpdate(q qos.UniQos) error {
	if err := q.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Qos = q
	return nil
}

func (s *Subscriber) registerReader(r *Reader) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readers == nil {
		s.readers = make(map[handle.T]*Reader)
	}
	s.readers[r.handle] = r
}

func (s *Subscriber) unregisterReader(r *Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.readers[r.handle]; !ok {
		return ddserr.PreconditionErr(nil)
	}
	delete(s.readers, r.handle)
	return nil
}
