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

	"dario.cat/mergo"

	"github.com/heptio-dds/ddscore/internal/forward"
	"github.com/heptio-dds/ddscore/internal/qos"
)

// DefaultSPDPResendPeriod is how often a participant re-announces
// itself on the meta multicast locators when a document doesn't say
// otherwise.
const DefaultSPDPResendPeriod = 30 * time.Second

// DefaultMaxParticipants bounds how many remote participants one
// process will track before refusing further discovery, a sane
// out-of-the-box ceiling rather than an unbounded one.
const DefaultMaxParticipants = 120

// Defaults returns the built-in configuration every loaded document is
// overlaid onto, internal/contourconfig.Defaults's counterpart.
func Defaults() DomainParticipantConfig {
	return DomainParticipantConfig{
		DomainID: 0,
		Discovery: DiscoveryConfig{
			MetaMulticastLocators: []LocatorSpec{
				{Kind: "udpv4", Address: "239.255.0.1", Port: 7400},
			},
			SPDPResendPeriod: DefaultSPDPResendPeriod,
		},
		QoS: QosProfile{
			Topic: qos.Default(),
		},
		ResourceLimits: ParticipantResourceLimits{
			MaxParticipants:    DefaultMaxParticipants,
			ForwardingTableTTL: forward.DefaultTTL,
		},
	}
}

// OverlayOnDefaults merges spec over Defaults(), field by field: any
// field spec leaves at its zero value keeps the built-in default,
// mirroring internal/contourconfig.OverlayOnDefaults's
// mergo.Merge(&res, spec, mergo.WithOverride) call exactly.
func OverlayOnDefaults(spec DomainParticipantConfig) (DomainParticipantConfig, error) {
	res := Defaults()
	if err := mergo.Merge(&res, spec, mergo.WithOverride); err != nil {
		return DomainParticipantConfig{}, err
	}
	return res, nil
}

// ResolveQos cascades a QosProfile's tiers: Publisher and Subscriber
// each inherit from Topic, and Writer/Reader in turn inherit from
// Publisher/Subscriber, matching TOPIC_QOS_DEFAULT ->
// PUBLISHER_QOS_DEFAULT/SUBSCRIBER_QOS_DEFAULT ->
// DATAWRITER_QOS_DEFAULT/DATAREADER_QOS_DEFAULT. Each step is the same
// mergo.WithOverride overlay OverlayOnDefaults uses, just applied one
// QoS tier at a time instead of to the whole document.
func ResolveQos(p QosProfile) (ResolvedQos, error) {
	pub := p.Topic
	if err := mergo.Merge(&pub, p.Publisher, mergo.WithOverride); err != nil {
		return ResolvedQos{}, err
	}

	sub := p.Topic
	if err := mergo.Merge(&sub, p.Subscriber, mergo.WithOverride); err != nil {
		return ResolvedQos{}, err
	}

	writer := pub
	if err := mergo.Merge(&writer, p.Writer, mergo.WithOverride); err != nil {
		return ResolvedQos{}, err
	}

	reader := sub
	if err := mergo.Merge(&reader, p.Reader, mergo.WithOverride); err != nil {
		return ResolvedQos{}, err
	}

	return ResolvedQos{Publisher: pub, Subscriber: sub, Writer: writer, Reader: reader}, nil
}
