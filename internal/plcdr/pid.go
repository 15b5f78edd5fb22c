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

// Package plcdr implements spec.md §4.4: the parameter-list discovery
// codec. It parses and emits DiscoveredReaderData and
// DiscoveredWriterData and parses TopicData; ParticipantData is
// declared as a type but has no parse or emit function, and TopicData
// has no emit function. Parameter IDs and their bit layout are
// grounded on original_source/dds/src/include/pid.h and the parse/emit
// contracts on original_source/dds/src/xtypes/pid.c and
// original_source/dds/src/typecode/pl_cdr.c.
package plcdr

// ParameterID is the 16-bit PID field of a parameter-list entry.
type ParameterID uint16

const (
	pidVendorSpecific ParameterID = 0x8000
	pidMustParse      ParameterID = 0x4000
	pidValueMask      ParameterID = 0x3fff
)

// VendorSpecific reports whether the PID's vendor-specific bit is set.
func (p ParameterID) VendorSpecific() bool { return p&pidVendorSpecific != 0 }

// MustParse reports whether the PID's must-parse bit is set: an
// unrecognized PID with this bit set cannot be silently skipped.
func (p ParameterID) MustParse() bool { return p&pidMustParse != 0 }

// Value strips the vendor-specific and must-parse flag bits, leaving
// the nominal parameter identity.
func (p ParameterID) Value() ParameterID { return p & pidValueMask }

const (
	PIDPad                      ParameterID = 0
	PIDSentinel                 ParameterID = 1
	PIDParticipantLeaseDuration ParameterID = 2
	PIDTimeBasedFilter          ParameterID = 4
	PIDTopicName                ParameterID = 5
	PIDOwnershipStrength        ParameterID = 6
	PIDTypeName                 ParameterID = 7
	PIDMetaMulticastIPAddress   ParameterID = 11
	PIDDefaultUnicastIPAddress  ParameterID = 12
	PIDMetaUnicastPort          ParameterID = 13
	PIDDefaultUnicastPort       ParameterID = 14
	PIDMulticastIPAddress       ParameterID = 17
	PIDProtocolVersion          ParameterID = 21
	PIDVendorID                 ParameterID = 22
	PIDReliability              ParameterID = 26
	PIDLiveliness               ParameterID = 27
	PIDDurability               ParameterID = 29
	PIDDurabilityService        ParameterID = 30
	PIDOwnership                ParameterID = 31
	PIDPresentation             ParameterID = 33
	PIDDeadline                 ParameterID = 35
	PIDDestinationOrder         ParameterID = 37
	PIDLatencyBudget            ParameterID = 39
	PIDPartition                ParameterID = 41
	PIDLifespan                 ParameterID = 43
	PIDUserData                 ParameterID = 44
	PIDGroupData                ParameterID = 45
	PIDTopicData                ParameterID = 46
	PIDUnicastLocator           ParameterID = 47
	PIDMulticastLocator         ParameterID = 48
	PIDDefaultUnicastLocator    ParameterID = 49
	PIDMetaUnicastLocator       ParameterID = 50
	PIDMetaMulticastLocator     ParameterID = 51
	PIDParticipantManLiveliness ParameterID = 52
	PIDContentFilterProperty    ParameterID = 53
	PIDHistory                  ParameterID = 64
	PIDResourceLimits           ParameterID = 65
	PIDExpectsInlineQos         ParameterID = 67
	PIDParticipantBuiltinEPs    ParameterID = 68
	PIDMetaUnicastIPAddress     ParameterID = 69
	PIDMetaMulticastPort        ParameterID = 70
	PIDDefaultMulticastLocator  ParameterID = 72
	PIDTransportPriority        ParameterID = 73
	PIDParticipantGUID          ParameterID = 80
	PIDGroupGUID                ParameterID = 82
	PIDContentFilterInfo        ParameterID = 85
	PIDCoherentSet              ParameterID = 86
	PIDBuiltinEndpointSet       ParameterID = 88
	PIDEndpointGUID             ParameterID = 90
	PIDTypeMaxSizeSerialized    ParameterID = 96
	PIDEntityName               ParameterID = 98
	PIDKeyHash                  ParameterID = 112
	PIDStatusInfo               ParameterID = 113
)

// foreignTypecodePIDs are PID values that, unlike other vendor-specific
// parameters, are honored even when they arrive tagged with a vendor
// ID other than our own — the two-cooperating-vendor exception
// spec.md §4.4 calls out and §9's Open Question resolves as a
// configurable allow-list (see Config.ForeignTypecodeVendors).
const (
	pidForeignTypecodeMin = pidVendorSpecific + 0x100
	pidForeignTypecodeMax = pidVendorSpecific + 0x1ff
)

func isForeignTypecodePID(p ParameterID) bool {
	return p >= pidForeignTypecodeMin && p <= pidForeignTypecodeMax
}
