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

// Package entity implements spec.md §4.7: the Domain ↔ Participant ↔
// Publisher/Subscriber ↔ Writer/Reader ↔ Topic/Type graph, its
// create/delete/enable lifecycle, and the skiplist-style secondary
// indices (Endpoints-by-EntityId, Topics-by-name) spec.md §3
// describes. Grounded on
// original_source/dds/src/dcps/{domain,dcps_topic,dcps_publisher,dcps_subscriber}.c.
package entity

import "github.com/heptio-dds/ddscore/internal/handle"

// Kind discriminates the entity-header "type" field spec.md §3 names:
// one of {Participant, Topic, Publisher, Subscriber, Writer, Reader}.
type Kind int

const (
	KindParticipant Kind = iota + 1
	KindTopic
	KindPublisher
	KindSubscriber
	KindWriter
	KindReader
)

func (k Kind) String() string {
	switch k {
	case KindParticipant:
		return "PARTICIPANT"
	case KindTopic:
		return "TOPIC"
	case KindPublisher:
		return "PUBLISHER"
	case KindSubscriber:
		return "SUBSCRIBER"
	case KindWriter:
		return "WRITER"
	case KindReader:
		return "READER"
	default:
		return "UNKNOWN"
	}
}

// Flags carries the entity-header bits spec.md §3 lists: local/remote,
// builtin, enabled, suspended, shutdown, not-ignored,
// inline-QoS-expected, filtered-topic.
type Flags uint16

const (
	FlagLocal Flags = 1 << iota
	FlagRemote
	FlagBuiltin
	FlagEnabled
	FlagSuspended
	FlagShutdown
	FlagIgnored
	FlagInlineQosExpected
	FlagFilteredTopic
)

func (f Flags) has(bit Flags) bool { return f&bit != 0 }

// Header is the common entity header spec.md §3 describes, embedded
// by every concrete entity type below. It owns the entity's handle
// registration rather than each concrete type reimplementing it.
type Header struct {
	kind   Kind
	handle handle.T
	flags  Flags
}

// Handle is the entity's handle in the owning Table.
func (h *Header) Handle() handle.T { return h.handle }

// Kind reports the entity-header type field.
func (h *Header) Kind() Kind { return h.kind }

// HandleType satisfies internal/handle.Entity so any concrete entity
// embedding Header can be registered in a handle.Table directly.
func (h *Header) HandleType() int { return int(h.kind) }

func (h *Header) enabled() bool   { return h.flags.has(FlagEnabled) }
func (h *Header) local() bool     { return h.flags.has(FlagLocal) }
func (h *Header) suspended() bool { return h.flags.has(FlagSuspended) }

// Enable sets the enabled flag. Callers are responsible for verifying
// the parent-enabled precondition spec.md §4.7 describes before
// calling this.
func (h *Header) Enable() { h.flags |= FlagEnabled }

func (h *Header) setFlag(f Flags, v bool) {
	if v {
		h.flags |= f
	} else {
		h.flags &^= f
	}
}
