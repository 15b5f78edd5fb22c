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

package dispatch

import (
	"github.com/heptio-dds/ddscore/internal/entity"
	"github.com/heptio-dds/ddscore/internal/handle"
	"github.com/heptio-dds/ddscore/internal/qos"
)

// NotificationType is one of the thirteen status-notification kinds
// spec.md §4.9 lists.
type NotificationType int

const (
	InconsistentTopic NotificationType = iota
	OfferedDeadlineMissed
	RequestedDeadlineMissed
	OfferedIncompatibleQos
	RequestedIncompatibleQos
	SampleLost
	SampleRejected
	DataOnReaders
	DataAvailable
	LivelinessLost
	LivelinessChanged
	PublicationMatched
	SubscriptionMatched
)

func (t NotificationType) String() string {
	switch t {
	case InconsistentTopic:
		return "INCONSISTENT_TOPIC"
	case OfferedDeadlineMissed:
		return "OFFERED_DEADLINE_MISSED"
	case RequestedDeadlineMissed:
		return "REQUESTED_DEADLINE_MISSED"
	case OfferedIncompatibleQos:
		return "OFFERED_INCOMPATIBLE_QOS"
	case RequestedIncompatibleQos:
		return "REQUESTED_INCOMPATIBLE_QOS"
	case SampleLost:
		return "SAMPLE_LOST"
	case SampleRejected:
		return "SAMPLE_REJECTED"
	case DataOnReaders:
		return "DATA_ON_READERS"
	case DataAvailable:
		return "DATA_AVAILABLE"
	case LivelinessLost:
		return "LIVELINESS_LOST"
	case LivelinessChanged:
		return "LIVELINESS_CHANGED"
	case PublicationMatched:
		return "PUBLICATION_MATCHED"
	case SubscriptionMatched:
		return "SUBSCRIPTION_MATCHED"
	default:
		return "UNKNOWN"
	}
}

// Mask is a bitmask of NotificationTypes, the listener mask spec.md
// §4.9 checks against the narrowest ancestor with a registered
// listener.
type Mask uint16

func (m Mask) bit(t NotificationType) Mask { return 1 << uint(t) }

// Includes reports whether t is set in m.
func (m Mask) Includes(t NotificationType) bool { return m&m.bit(t) != 0 }

// MaskOf builds a Mask from the given notification types.
func MaskOf(types ...NotificationType) Mask {
	var m Mask
	for _, t := range types {
		m |= m.bit(t)
	}
	return m
}

// NoMask matches nothing; AllMask matches every NotificationType this
// package defines.
var (
	NoMask  Mask
	AllMask = MaskOf(InconsistentTopic, OfferedDeadlineMissed, RequestedDeadlineMissed,
		OfferedIncompatibleQos, RequestedIncompatibleQos, SampleLost, SampleRejected,
		DataOnReaders, DataAvailable, LivelinessLost, LivelinessChanged,
		PublicationMatched, SubscriptionMatched)
)

// Notification is one (entity, NotificationType) event, per spec.md
// §4.9, plus the policy/count payload a handful of notification types
// carry.
type Notification struct {
	Entity Entity
	Type   NotificationType
	Policy qos.PolicyID // OfferedIncompatibleQos / RequestedIncompatibleQos
	Count  int          // SampleLost / SampleRejected / LivelinessChanged
}

// Entity is the narrow interface Dispatcher needs from whatever
// concrete entity.* type originated a Notification: its handle (for
// status-bit and dirty-set bookkeeping) and enough identity to print a
// useful log line. entity.Header satisfies this for every concrete
// entity type via embedding, so callers pass *entity.Writer,
// *entity.Reader, *entity.Publisher, *entity.Subscriber,
// *entity.Participant or *entity.Topic directly.
type Entity interface {
	Handle() handle.T
	Kind() entity.Kind
}

// ancestors returns e followed by each wider entity in its ownership
// chain, narrowest first: Writer -> Publisher -> Participant, Reader
// -> Subscriber -> Participant, Publisher/Subscriber -> Participant,
// Topic and Participant have no wider scope. This is the "tagged
// variant, dispatch on tag" style spec.md §9's redesign notes call for
// in place of the original's back-pointer walk.
func ancestors(e Entity) []Entity {
	switch v := e.(type) {
	case *entity.Writer:
		return []Entity{v, v.Publisher(), v.Publisher().Participant()}
	case *entity.Reader:
		return []Entity{v, v.Subscriber(), v.Subscriber().Participant()}
	case *entity.Publisher:
		return []Entity{v, v.Participant()}
	case *entity.Subscriber:
		return []Entity{v, v.Participant()}
	default:
		return []Entity{e}
	}
}
