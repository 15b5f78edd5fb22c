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
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heptio-dds/ddscore/internal/locator"
	"github.com/heptio-dds/ddscore/internal/qos"
)

func TestDefaultsAreValid(t *testing.T) {
	d := Defaults()
	require.NoError(t, d.Validate())
	assert.Equal(t, uint32(0), d.DomainID)
	assert.Equal(t, DefaultSPDPResendPeriod, d.Discovery.SPDPResendPeriod)
}

func TestLoadLeavesUnsetFieldsZero(t *testing.T) {
	spec, err := Load(strings.NewReader(`domainId: 7`))
	require.NoError(t, err)
	assert.Equal(t, uint32(7), spec.DomainID)
	assert.Empty(t, spec.Discovery.MetaMulticastLocators)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(strings.NewReader("domainId: 7\nbogusField: true\n"))
	require.Error(t, err)
}

func TestLoadOfEmptyDocumentIsFine(t *testing.T) {
	spec, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DomainParticipantConfig{}, spec)
}

func TestOverlayOnDefaultsKeepsDefaultWhenUnset(t *testing.T) {
	spec, err := Load(strings.NewReader(`domainId: 7`))
	require.NoError(t, err)

	merged, err := OverlayOnDefaults(spec)
	require.NoError(t, err)

	assert.Equal(t, uint32(7), merged.DomainID)
	assert.Equal(t, DefaultSPDPResendPeriod, merged.Discovery.SPDPResendPeriod)
	assert.Equal(t, DefaultMaxParticipants, merged.ResourceLimits.MaxParticipants)
}

func TestOverlayOnDefaultsOverridesWhenSet(t *testing.T) {
	doc := `
domainId: 3
discovery:
  spdpResendPeriod: 5s
resourceLimits:
  maxParticipants: 16
`
	spec, err := Load(strings.NewReader(doc))
	require.NoError(t, err)

	merged, err := OverlayOnDefaults(spec)
	require.NoError(t, err)

	assert.Equal(t, uint32(3), merged.DomainID)
	assert.Equal(t, 5*time.Second, merged.Discovery.SPDPResendPeriod)
	assert.Equal(t, 16, merged.ResourceLimits.MaxParticipants)
	// A field the document never mentioned still falls back to its
	// built-in default.
	assert.Equal(t, []LocatorSpec{{Kind: "udpv4", Address: "239.255.0.1", Port: 7400}}, merged.Discovery.MetaMulticastLocators)
}

func TestLoadAndOverlayRoundTrips(t *testing.T) {
	merged, err := LoadAndOverlay(strings.NewReader(`domainId: 9`))
	require.NoError(t, err)
	assert.Equal(t, uint32(9), merged.DomainID)
	require.NoError(t, merged.Validate())
}

func TestResolveQosInheritsUnsetFieldsFromTopic(t *testing.T) {
	profile := QosProfile{
		Topic: qos.UniQos{
			Reliability: qos.Reliability{Kind: qos.Reliable},
			History:     qos.History{Kind: qos.KeepLast, Depth: 4},
		},
	}

	resolved, err := ResolveQos(profile)
	require.NoError(t, err)

	assert.Equal(t, qos.Reliable, resolved.Writer.Reliability.Kind)
	assert.Equal(t, int32(4), resolved.Reader.History.Depth)
}

func TestResolveQosWriterOverridesPublisherTier(t *testing.T) {
	profile := QosProfile{
		Topic: qos.UniQos{
			Reliability: qos.Reliability{Kind: qos.BestEffort},
		},
		Writer: qos.UniQos{
			Reliability: qos.Reliability{Kind: qos.Reliable},
		},
	}

	resolved, err := ResolveQos(profile)
	require.NoError(t, err)

	assert.Equal(t, qos.Reliable, resolved.Writer.Reliability.Kind)
	// Subscriber/Reader tier never saw the Writer-only override.
	assert.Equal(t, qos.BestEffort, resolved.Reader.Reliability.Kind)
}

func TestQosProfileValidateCatchesInconsistentCascade(t *testing.T) {
	profile := QosProfile{
		Topic: qos.UniQos{
			History:        qos.History{Kind: qos.KeepLast, Depth: 10},
			ResourceLimits: qos.ResourceLimits{MaxSamples: qos.LengthUnlimited, MaxInstances: qos.LengthUnlimited, MaxSamplesPerInstance: qos.LengthUnlimited},
		},
		Writer: qos.UniQos{
			ResourceLimits: qos.ResourceLimits{MaxSamples: qos.LengthUnlimited, MaxInstances: qos.LengthUnlimited, MaxSamplesPerInstance: 2},
		},
	}

	err := profile.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "qos.writer")
}

func TestDiscoveryValidateRejectsUnknownLocatorKind(t *testing.T) {
	d := DiscoveryConfig{MetaMulticastLocators: []LocatorSpec{{Kind: "carrier-pigeon", Address: "239.255.0.1", Port: 7400}}}
	err := d.Validate()
	require.Error(t, err)
}

func TestParseLocatorResolvesUDPv4(t *testing.T) {
	n, err := ParseLocator(LocatorSpec{Kind: "udpv4", Address: "239.255.0.1", Port: 7400})
	require.NoError(t, err)
	assert.Equal(t, locator.KindUDPv4, n.Kind)
	assert.Equal(t, uint32(7400), n.Port)
}

func TestParseLocatorRejectsBadAddress(t *testing.T) {
	_, err := ParseLocator(LocatorSpec{Kind: "udpv4", Address: "not-an-ip", Port: 7400})
	require.Error(t, err)
}

func TestResourceLimitsValidateRejectsNegative(t *testing.T) {
	err := ParticipantResourceLimits{MaxParticipants: -1}.Validate()
	require.Error(t, err)
}
