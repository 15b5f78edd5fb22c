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

// Package config loads and validates the configuration of a single
// domain participant: its domain ID, discovery locators, resource
// limits, and the QoS profile its entities are created against,
// per SPEC_FULL.md §3.1.
//
// The loading shape mirrors
// internal/contourconfig.OverlayOnDefaults/Defaults: Defaults returns
// a fully populated DomainParticipantConfig, Load decodes a YAML
// document into a sparse DomainParticipantConfig, and OverlayOnDefaults
// merges the two with dario.cat/mergo's mergo.Merge(&res, spec,
// mergo.WithOverride) so that a field the YAML document leaves unset
// falls back to its built-in default rather than the zero value.
//
// QoS itself cascades through the same mergo-overlay mechanism rather
// than a bespoke inheritance walk: ResolveQos takes a QosProfile's five
// tiers (Topic, Publisher, Subscriber, Writer, Reader) and merges each
// narrower tier over its parent -- TOPIC_QOS_DEFAULT into
// PUBLISHER_QOS_DEFAULT/SUBSCRIBER_QOS_DEFAULT, and those in turn into
// DATAWRITER_QOS_DEFAULT/DATAREADER_QOS_DEFAULT -- matching the DDS
// specification's QoS inheritance chain. Validate follows
// pkg/config.Parameters.Validate's style: one method per policy group,
// called in sequence from the top-level Validate, returning the first
// error encountered.
package config
