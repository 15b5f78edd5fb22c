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

package plcdr

import (
	"github.com/heptio-dds/ddscore/internal/locator"
	"github.com/heptio-dds/ddscore/internal/qos"
)

// ContentFilterProperty mirrors spec.md §4.4's five-field tuple. The
// bytecode fields that follow these on the wire are not decoded, so a
// remote bytecode blob is never carried into this struct.
type ContentFilterProperty struct {
	FilteredTopicName string
	RelatedTopicName  string
	FilterClassName   string
	FilterExpression  string
	ExpressionParams  []string
}

// DiscoveredReaderData is the parsed form of a SubscriptionBuiltinTopicData
// plus ReaderProxy, as carried by PID_* parameters in the built-in
// subscriptions-reader topic.
type DiscoveredReaderData struct {
	TopicName string
	TypeName  string

	QoS qos.UniQos

	UnicastLocators   locator.List
	MulticastLocators locator.List

	TimeBasedFilterMinSeparation bool // presence flag only; the PID's value is neither decoded nor emitted
	ContentFilter                *ContentFilterProperty
}

// DiscoveredWriterData is the parsed form of a PublicationBuiltinTopicData
// plus WriterProxy, as carried by PID_* parameters in the built-in
// publications-reader topic.
type DiscoveredWriterData struct {
	TopicName string
	TypeName  string

	QoS qos.UniQos

	UnicastLocators   locator.List
	MulticastLocators locator.List
}

// ParticipantData is the parsed form of an SPDPdiscoveredParticipantData
// message: the subset of ParticipantProxy fields the entity graph
// (internal/entity) needs to create or refresh a remote Participant.
type ParticipantData struct {
	LeaseDuration         uint32 // seconds; DURATION_INFINITE encoded as 0x7fffffff per RTPS
	DefaultUnicastLocators   locator.List
	DefaultMulticastLocators locator.List
	MetaUnicastLocators      locator.List
	MetaMulticastLocators    locator.List
	BuiltinEndpoints         uint32
	Vendor                   VendorID
}

// TopicData is the parsed form of a TopicBuiltinTopicData message.
type TopicData struct {
	Name string
	Type string
	QoS  qos.UniQos
}
