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

// Package qos implements the QoS intern engine of spec.md §4.3: the
// canonical, hash-consed UniQos record and the writer/reader matching
// predicate.
package qos

import (
	"github.com/heptio-dds/ddscore/internal/duration"
)

// PolicyID identifies a single QoS policy, used both as a matching
// failure indicator (spec.md §4.3's "first failing PolicyId") and as
// a label on the incompatible-QoS status counters in internal/metrics.
type PolicyID int

const (
	PolicyUserData PolicyID = iota + 1
	PolicyDurability
	PolicyPresentation
	PolicyDeadline
	PolicyLatencyBudget
	PolicyOwnership
	PolicyOwnershipStrength
	PolicyLiveliness
	PolicyTimeBasedFilter
	PolicyPartition
	PolicyReliability
	PolicyDestinationOrder
	PolicyHistory
	PolicyResourceLimits
	PolicyEntityFactory
	PolicyWriterDataLifecycle
	PolicyReaderDataLifecycle
	PolicyTopicData
	PolicyGroupData
	PolicyTransportPriority
	PolicyLifespan
)

func (p PolicyID) String() string {
	names := map[PolicyID]string{
		PolicyUserData:            "USER_DATA",
		PolicyDurability:          "DURABILITY",
		PolicyPresentation:        "PRESENTATION",
		PolicyDeadline:            "DEADLINE",
		PolicyLatencyBudget:       "LATENCY_BUDGET",
		PolicyOwnership:           "OWNERSHIP",
		PolicyOwnershipStrength:   "OWNERSHIP_STRENGTH",
		PolicyLiveliness:          "LIVELINESS",
		PolicyTimeBasedFilter:     "TIME_BASED_FILTER",
		PolicyPartition:           "PARTITION",
		PolicyReliability:        "RELIABILITY",
		PolicyDestinationOrder:   "DESTINATION_ORDER",
		PolicyHistory:            "HISTORY",
		PolicyResourceLimits:     "RESOURCE_LIMITS",
		PolicyEntityFactory:      "ENTITY_FACTORY",
		PolicyWriterDataLifecycle: "WRITER_DATA_LIFECYCLE",
		PolicyReaderDataLifecycle: "READER_DATA_LIFECYCLE",
		PolicyTopicData:          "TOPIC_DATA",
		PolicyGroupData:          "GROUP_DATA",
		PolicyTransportPriority:  "TRANSPORT_PRIORITY",
		PolicyLifespan:           "LIFESPAN",
	}
	if n, ok := names[p]; ok {
		return n
	}
	return "UNKNOWN_POLICY"
}

// DurabilityKind orders VOLATILE < TRANSIENT_LOCAL < TRANSIENT < PERSISTENT.
type DurabilityKind int

const (
	Volatile DurabilityKind = iota
	TransientLocal
	Transient
	Persistent
)

// ReliabilityKind orders BEST_EFFORT < RELIABLE.
type ReliabilityKind int

const (
	BestEffort ReliabilityKind = iota
	Reliable
)

// HistoryKind selects KEEP_LAST or KEEP_ALL.
type HistoryKind int

const (
	KeepLast HistoryKind = iota
	KeepAll
)

// OwnershipKind selects SHARED or EXCLUSIVE.
type OwnershipKind int

const (
	Shared OwnershipKind = iota
	Exclusive
)

// LivelinessKind orders AUTOMATIC < MANUAL_BY_PARTICIPANT < MANUAL_BY_TOPIC.
type LivelinessKind int

const (
	Automatic LivelinessKind = iota
	ManualByParticipant
	ManualByTopic
)

// DestinationOrderKind orders BY_RECEPTION_TIMESTAMP < BY_SOURCE_TIMESTAMP.
type DestinationOrderKind int

const (
	ByReceptionTimestamp DestinationOrderKind = iota
	BySourceTimestamp
)

// PresentationAccessScope orders INSTANCE < TOPIC < GROUP.
type PresentationAccessScope int

const (
	InstanceScope PresentationAccessScope = iota
	TopicScope
	GroupScope
)

const LengthUnlimited = -1

// Durability policy.
type Durability struct{ Kind DurabilityKind }

// Deadline policy.
type Deadline struct{ Period duration.Value }

// LatencyBudget policy.
type LatencyBudget struct{ Duration duration.Value }

// Liveliness policy.
type Liveliness struct {
	Kind          LivelinessKind
	LeaseDuration duration.Value
}

// Reliability policy.
type Reliability struct {
	Kind            ReliabilityKind
	MaxBlockingTime duration.Value
}

// DestinationOrder policy.
type DestinationOrder struct{ Kind DestinationOrderKind }

// Ownership policy (endpoint-level kind; strength lives on the writer only).
type Ownership struct{ Kind OwnershipKind }

// OwnershipStrength policy (writer only).
type OwnershipStrength struct{ Value int32 }

// Presentation policy.
type Presentation struct {
	AccessScope PresentationAccessScope
	Coherent    bool
	Ordered     bool
}

// History policy.
type History struct {
	Kind  HistoryKind
	Depth int32 // meaningful only for KeepLast
}

// ResourceLimits policy. LengthUnlimited (-1) means unbounded.
type ResourceLimits struct {
	MaxSamples             int32
	MaxInstances           int32
	MaxSamplesPerInstance int32
}

// Lifespan policy.
type Lifespan struct{ Duration duration.Value }

// TimeBasedFilter policy (reader only).
type TimeBasedFilter struct{ MinimumSeparation duration.Value }

// WriterDataLifecycle policy.
type WriterDataLifecycle struct{ AutodisposeUnregisteredInstances bool }

// ReaderDataLifecycle policy.
type ReaderDataLifecycle struct {
	AutopurgeNoWriterSamplesDelay  duration.Value
	AutopurgeDisposedSamplesDelay duration.Value
}
