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

package config

import (
	"time"

	"github.com/heptio-dds/ddscore/internal/qos"
)

// DomainParticipantConfig is the top-level configuration document for
// one domain participant.
type DomainParticipantConfig struct {
	DomainID       uint32                    `yaml:"domainId"`
	Name           string                    `yaml:"name,omitempty"`
	Discovery      DiscoveryConfig           `yaml:"discovery,omitempty"`
	QoS            QosProfile                `yaml:"qos,omitempty"`
	ResourceLimits ParticipantResourceLimits `yaml:"resourceLimits,omitempty"`
}

// DiscoveryConfig names the locators a participant announces itself
// on and the rate it re-announces at, the SPDP side of participant
// discovery.
type DiscoveryConfig struct {
	MetaMulticastLocators []LocatorSpec `yaml:"metaMulticastLocators,omitempty"`
	MetaUnicastLocators   []LocatorSpec `yaml:"metaUnicastLocators,omitempty"`
	SPDPResendPeriod      time.Duration `yaml:"spdpResendPeriod,omitempty"`
}

// LocatorSpec is a YAML-friendly locator: a transport kind, a
// textual address (parsed by ParseLocators), and a port.
type LocatorSpec struct {
	Kind    string `yaml:"kind"`
	Address string `yaml:"address"`
	Port    uint32 `yaml:"port"`
}

// QosProfile is the five-tier QoS cascade spec.md §4.3 names:
// TOPIC_QOS_DEFAULT, the PUBLISHER/SUBSCRIBER group QoS, and the
// DATAWRITER/DATAREADER QoS each entity kind is actually created
// against. Any tier left unset in a loaded document inherits from its
// parent tier -- see ResolveQos.
type QosProfile struct {
	Topic      qos.UniQos `yaml:"topic,omitempty"`
	Publisher  qos.UniQos `yaml:"publisher,omitempty"`
	Subscriber qos.UniQos `yaml:"subscriber,omitempty"`
	Writer     qos.UniQos `yaml:"writer,omitempty"`
	Reader     qos.UniQos `yaml:"reader,omitempty"`
}

// ResolvedQos is the QosProfile after cascading each tier over its
// parent: the QoS a Publisher/Subscriber/Writer/Reader actually ends
// up being created with.
type ResolvedQos struct {
	Publisher  qos.UniQos
	Subscriber qos.UniQos
	Writer     qos.UniQos
	Reader     qos.UniQos
}

// ParticipantResourceLimits bounds what a single participant may
// discover and hold, the config-level counterpart to
// qos.ResourceLimits' per-entity bounds.
type ParticipantResourceLimits struct {
	MaxParticipants    int           `yaml:"maxParticipants,omitempty"`
	ForwardingTableTTL time.Duration `yaml:"forwardingTableTtl,omitempty"`
}
