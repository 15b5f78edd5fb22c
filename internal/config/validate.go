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
	"github.com/pkg/errors"
)

// Validate verifies that a DomainParticipantConfig's values do not
// have syntax or consistency errors, in the same style as
// pkg/config.Parameters.Validate: one method per policy group, called
// in sequence, the first error encountered wins.
func (c *DomainParticipantConfig) Validate() error {
	if err := c.Discovery.Validate(); err != nil {
		return err
	}

	if err := c.QoS.Validate(); err != nil {
		return err
	}

	if err := c.ResourceLimits.Validate(); err != nil {
		return err
	}

	return nil
}

// Validate checks that every locator in the discovery configuration
// parses and that the resend period isn't negative.
func (d DiscoveryConfig) Validate() error {
	if d.SPDPResendPeriod < 0 {
		return errors.Errorf("discovery.spdpResendPeriod must be >= 0, got %s", d.SPDPResendPeriod)
	}

	if _, err := ParseLocators(d.MetaMulticastLocators); err != nil {
		return errors.Wrap(err, "discovery.metaMulticastLocators")
	}
	if _, err := ParseLocators(d.MetaUnicastLocators); err != nil {
		return errors.Wrap(err, "discovery.metaUnicastLocators")
	}

	return nil
}

// Validate runs qos.UniQos.Validate over every tier a document sets
// directly, plus the cascaded Writer/Reader QoS every entity is
// actually created against -- a profile that is individually valid
// tier by tier can still cascade into an inconsistent Writer/Reader
// QoS, so the resolved form must be checked too.
func (p QosProfile) Validate() error {
	if err := p.Topic.Validate(); err != nil {
		return errors.Wrap(err, "qos.topic")
	}
	if err := p.Publisher.Validate(); err != nil {
		return errors.Wrap(err, "qos.publisher")
	}
	if err := p.Subscriber.Validate(); err != nil {
		return errors.Wrap(err, "qos.subscriber")
	}

	resolved, err := ResolveQos(p)
	if err != nil {
		return errors.Wrap(err, "qos")
	}
	if err := resolved.Writer.Validate(); err != nil {
		return errors.Wrap(err, "qos.writer")
	}
	if err := resolved.Reader.Validate(); err != nil {
		return errors.Wrap(err, "qos.reader")
	}

	return nil
}

// Validate checks that the participant-level resource bounds are
// sane: zero or positive, never negative.
func (r ParticipantResourceLimits) Validate() error {
	if r.MaxParticipants < 0 {
		return errors.Errorf("resourceLimits.maxParticipants must be >= 0, got %d", r.MaxParticipants)
	}
	if r.ForwardingTableTTL < 0 {
		return errors.Errorf("resourceLimits.forwardingTableTtl must be >= 0, got %s", r.ForwardingTableTTL)
	}
	return nil
}
