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
	"github.com/pkg/errors"

	"github.com/heptio-dds/ddscore/internal/ddserr"
	"github.com/heptio-dds/ddscore/internal/duration"
)

// UniQos is the canonical QoS record spec.md §4.3 describes:
// every entity kind's applicable policy set flattened into one struct so
// a single hash-consing table (see table.go) can intern Participant,
// Topic, Publisher, Subscriber, DataWriter and DataReader QoS alike.
// Callers apply only the policies meaningful for their entity kind;
// irrelevant fields are left at their zero value and ignored by match.
type UniQos struct {
	Durability          Durability
	Deadline            Deadline
	LatencyBudget       LatencyBudget
	Liveliness          Liveliness
	Reliability         Reliability
	DestinationOrder    DestinationOrder
	History             History
	ResourceLimits      ResourceLimits
	Ownership           Ownership
	OwnershipStrength   OwnershipStrength
	Presentation        Presentation
	Lifespan            Lifespan
	TimeBasedFilter     TimeBasedFilter
	WriterDataLifecycle WriterDataLifecycle
	ReaderDataLifecycle ReaderDataLifecycle
	Partition           []string
	UserData            []byte
	TopicData           []byte
	GroupData           []byte
	EntityFactoryAutoenableCreatedEntities bool
}

// Default returns the out-of-the-box QoS: VOLATILE durability,
// BEST_EFFORT reliability, KEEP_LAST history with depth 1, deadline
// and liveliness lease at DURATION_INFINITE (no bound), and
// latency_budget/time_based_filter at their zero-length default — the
// same defaults uqos.c's qos_init_default establishes before an
// application overrides anything.
func Default() UniQos {
	return UniQos{
		Reliability:    Reliability{Kind: BestEffort},
		History:        History{Kind: KeepLast, Depth: 1},
		ResourceLimits: ResourceLimits{MaxSamples: LengthUnlimited, MaxInstances: LengthUnlimited, MaxSamplesPerInstance: LengthUnlimited},
		Deadline:       Deadline{Period: duration.Infinite()},
		Liveliness:     Liveliness{Kind: Automatic, LeaseDuration: duration.Infinite()},
		EntityFactoryAutoenableCreatedEntities: true,
	}
}

// Validate runs the same shape of checks uqos.c's qos_valid_* family
// performs before a QoS is accepted by set_qos/create_*: policy values
// that are individually nonsensical are rejected with BAD_PARAMETER,
// and cross-policy bounds (HISTORY vs RESOURCE_LIMITS) are rejected
// with INCONSISTENT_POLICY, matching the DDS spec's distinction between
// the two error codes.
func (q UniQos) Validate() error {
	if q.History.Kind == KeepLast && q.History.Depth < 1 {
		return ddserr.BadParam(errors.Errorf("HISTORY.depth must be >= 1 for KEEP_LAST, got %d", q.History.Depth))
	}

	if q.ResourceLimits.MaxSamples != LengthUnlimited && q.ResourceLimits.MaxSamples < 1 {
		return ddserr.BadParam(errors.Errorf("RESOURCE_LIMITS.max_samples must be unlimited or >= 1, got %d", q.ResourceLimits.MaxSamples))
	}
	if q.ResourceLimits.MaxInstances != LengthUnlimited && q.ResourceLimits.MaxInstances < 1 {
		return ddserr.BadParam(errors.Errorf("RESOURCE_LIMITS.max_instances must be unlimited or >= 1, got %d", q.ResourceLimits.MaxInstances))
	}
	if q.ResourceLimits.MaxSamplesPerInstance != LengthUnlimited && q.ResourceLimits.MaxSamplesPerInstance < 1 {
		return ddserr.BadParam(errors.Errorf("RESOURCE_LIMITS.max_samples_per_instance must be unlimited or >= 1, got %d", q.ResourceLimits.MaxSamplesPerInstance))
	}

	// RESOURCE_LIMITS.max_samples >= max_samples_per_instance, per
	// uqos.c's cross-policy check: a per-instance bound that exceeds
	// the total bound can never be reached.
	if q.ResourceLimits.MaxSamples != LengthUnlimited && q.ResourceLimits.MaxSamplesPerInstance != LengthUnlimited &&
		q.ResourceLimits.MaxSamples < q.ResourceLimits.MaxSamplesPerInstance {
		return ddserr.InconsistentPolicyErr(errors.Errorf("RESOURCE_LIMITS.max_samples (%d) must be >= max_samples_per_instance (%d)",
			q.ResourceLimits.MaxSamples, q.ResourceLimits.MaxSamplesPerInstance))
	}

	// HISTORY.depth <= RESOURCE_LIMITS.max_samples_per_instance: a
	// KEEP_LAST depth the per-instance resource limit can't hold is
	// inconsistent, again following uqos.c.
	if q.History.Kind == KeepLast && q.ResourceLimits.MaxSamplesPerInstance != LengthUnlimited &&
		int32(q.History.Depth) > q.ResourceLimits.MaxSamplesPerInstance {
		return ddserr.InconsistentPolicyErr(errors.Errorf("HISTORY.depth (%d) must be <= RESOURCE_LIMITS.max_samples_per_instance (%d)",
			q.History.Depth, q.ResourceLimits.MaxSamplesPerInstance))
	}

	if q.OwnershipStrength.Value < 0 {
		return ddserr.BadParam(errors.Errorf("OWNERSHIP_STRENGTH.value must be >= 0, got %d", q.OwnershipStrength.Value))
	}

	if q.Presentation.Coherent && q.Presentation.AccessScope == InstanceScope {
		return ddserr.BadParam(errors.Errorf("PRESENTATION.coherent_access is meaningless at INSTANCE access_scope"))
	}

	return nil
}

// Immutable reports whether changing from prev to next would violate
// an IMMUTABLE_QOS_POLICY constraint. Per the DDS spec, DURABILITY,
// LIVELINESS, RELIABILITY, DESTINATION_ORDER, HISTORY, RESOURCE_LIMITS,
// OWNERSHIP and PRESENTATION cannot be changed once an entity is enabled.
func Immutable(prev, next UniQos) bool {
	switch {
	case prev.Durability != next.Durability:
		return true
	case prev.Liveliness != next.Liveliness:
		return true
	case prev.Reliability != next.Reliability:
		return true
	case prev.DestinationOrder != next.DestinationOrder:
		return true
	case prev.History != next.History:
		return true
	case prev.ResourceLimits != next.ResourceLimits:
		return true
	case prev.Ownership != next.Ownership:
		return true
	case prev.Presentation != next.Presentation:
		return true
	}
	return false
}
