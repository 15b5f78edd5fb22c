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
	"github.com/heptio-dds/ddscore/internal/cdr"
	"github.com/heptio-dds/ddscore/internal/locator"
)

// ParseDiscoveredReaderData decodes a SubscriptionBuiltinTopicData +
// ReaderProxy parameter list, per spec.md §4.4 and §8 scenario 2.
// Unknown PIDs without the must-parse bit are silently skipped;
// vendor-specific PIDs are honored only if the parsed PID_VENDOR_ID
// matches this vendor, per cfg.acceptsPID.
func ParseDiscoveredReaderData(buf []byte, cfg Config) (*DiscoveredReaderData, error) {
	r := cdr.NewReader(buf, cdr.EncapsulationCDRLittleEndian)
	params, err := readParameterList(r)
	if err != nil {
		return nil, badParam(err)
	}

	out := &DiscoveredReaderData{}
	var vendor VendorID
	var sawVendor bool
	for _, p := range params {
		if p.pid.Value() == PIDVendorID {
			vendor, err = decodeVendorID(p.value)
			if err != nil {
				return nil, badParam(err)
			}
			sawVendor = true
		}

		if !cfg.acceptsPID(p.pid, sawVendor, vendor) {
			continue
		}

		switch p.pid.Value() {
		case PIDTopicName:
			s, err := decodeString(p.value)
			if err != nil {
				return nil, badParam(err)
			}
			out.TopicName = s
		case PIDTypeName:
			s, err := decodeString(p.value)
			if err != nil {
				return nil, badParam(err)
			}
			out.TypeName = s
		case PIDReliability:
			rel, err := decodeReliability(p.value)
			if err != nil {
				return nil, badParam(err)
			}
			out.QoS.Reliability = rel
		case PIDDurability:
			dur, err := decodeDurability(p.value)
			if err != nil {
				return nil, badParam(err)
			}
			out.QoS.Durability = dur
		case PIDPartition:
			part, err := decodePartition(p.value)
			if err != nil {
				return nil, badParam(err)
			}
			out.QoS.Partition = part
		case PIDUnicastLocator:
			n, err := decodeLocator(p.value)
			if err != nil {
				return nil, badParam(err)
			}
			out.UnicastLocators.Add(n.Kind, n.Addr, n.Port, n.Scope, 0, n.SProto)
		case PIDMulticastLocator:
			n, err := decodeLocator(p.value)
			if err != nil {
				return nil, badParam(err)
			}
			out.MulticastLocators.Add(n.Kind, n.Addr, n.Port, n.Scope, locator.FlagMulticast, n.SProto)
		case PIDContentFilterProperty:
			cfp, err := decodeContentFilterProperty(p.value)
			if err != nil {
				return nil, badParam(err)
			}
			out.ContentFilter = cfp
		case PIDTimeBasedFilter:
			out.TimeBasedFilterMinSeparation = true
		default:
			if p.pid.MustParse() {
				return nil, badParam(unknownMustParsePID(p.pid))
			}
			// unknown, non-must-parse PID: skip.
		}
	}

	return out, nil
}

// EmitDiscoveredReaderData serializes d to a parameter list, mirroring
// the parse path field-for-field and always terminating with a
// sentinel, per spec.md §4.4.
func EmitDiscoveredReaderData(d *DiscoveredReaderData) []byte {
	w := cdr.NewWriter(cdr.EncapsulationCDRLittleEndian)

	if d.TopicName != "" {
		writeParam(w, PIDTopicName, encodeString(d.TopicName))
	}
	if d.TypeName != "" {
		writeParam(w, PIDTypeName, encodeString(d.TypeName))
	}
	writeParam(w, PIDReliability, encodeReliability(d.QoS.Reliability))
	writeParam(w, PIDDurability, encodeDurability(d.QoS.Durability))
	if len(d.QoS.Partition) > 0 {
		writeParam(w, PIDPartition, encodePartition(d.QoS.Partition))
	}
	for _, n := range d.UnicastLocators.Nodes() {
		writeParam(w, PIDUnicastLocator, encodeLocator(n))
	}
	for _, n := range d.MulticastLocators.Nodes() {
		writeParam(w, PIDMulticastLocator, encodeLocator(n))
	}
	if d.ContentFilter != nil {
		writeParam(w, PIDContentFilterProperty, encodeContentFilterProperty(d.ContentFilter))
	}
	if d.TimeBasedFilterMinSeparation {
		writeParam(w, PIDTimeBasedFilter, nil)
	}

	writeSentinel(w)
	return w.Bytes()
}

// ParseDiscoveredWriterData decodes a PublicationBuiltinTopicData plus
// WriterProxy parameter list. Vendor-specific PIDs are honored only if
// the parsed PID_VENDOR_ID matches this vendor, per cfg.acceptsPID.
func ParseDiscoveredWriterData(buf []byte, cfg Config) (*DiscoveredWriterData, error) {
	r := cdr.NewReader(buf, cdr.EncapsulationCDRLittleEndian)
	params, err := readParameterList(r)
	if err != nil {
		return nil, badParam(err)
	}

	out := &DiscoveredWriterData{}
	var vendor VendorID
	var sawVendor bool
	for _, p := range params {
		if p.pid.Value() == PIDVendorID {
			vendor, err = decodeVendorID(p.value)
			if err != nil {
				return nil, badParam(err)
			}
			sawVendor = true
		}

		if !cfg.acceptsPID(p.pid, sawVendor, vendor) {
			continue
		}

		switch p.pid.Value() {
		case PIDTopicName:
			s, err := decodeString(p.value)
			if err != nil {
				return nil, badParam(err)
			}
			out.TopicName = s
		case PIDTypeName:
			s, err := decodeString(p.value)
			if err != nil {
				return nil, badParam(err)
			}
			out.TypeName = s
		case PIDReliability:
			rel, err := decodeReliability(p.value)
			if err != nil {
				return nil, badParam(err)
			}
			out.QoS.Reliability = rel
		case PIDDurability:
			dur, err := decodeDurability(p.value)
			if err != nil {
				return nil, badParam(err)
			}
			out.QoS.Durability = dur
		case PIDPartition:
			part, err := decodePartition(p.value)
			if err != nil {
				return nil, badParam(err)
			}
			out.QoS.Partition = part
		case PIDUnicastLocator:
			n, err := decodeLocator(p.value)
			if err != nil {
				return nil, badParam(err)
			}
			out.UnicastLocators.Add(n.Kind, n.Addr, n.Port, n.Scope, 0, n.SProto)
		case PIDMulticastLocator:
			n, err := decodeLocator(p.value)
			if err != nil {
				return nil, badParam(err)
			}
			out.MulticastLocators.Add(n.Kind, n.Addr, n.Port, n.Scope, locator.FlagMulticast, n.SProto)
		default:
			if p.pid.MustParse() {
				return nil, badParam(unknownMustParsePID(p.pid))
			}
		}
	}

	return out, nil
}

// EmitDiscoveredWriterData serializes d to a parameter list.
func EmitDiscoveredWriterData(d *DiscoveredWriterData) []byte {
	w := cdr.NewWriter(cdr.EncapsulationCDRLittleEndian)

	if d.TopicName != "" {
		writeParam(w, PIDTopicName, encodeString(d.TopicName))
	}
	if d.TypeName != "" {
		writeParam(w, PIDTypeName, encodeString(d.TypeName))
	}
	writeParam(w, PIDReliability, encodeReliability(d.QoS.Reliability))
	writeParam(w, PIDDurability, encodeDurability(d.QoS.Durability))
	if len(d.QoS.Partition) > 0 {
		writeParam(w, PIDPartition, encodePartition(d.QoS.Partition))
	}
	for _, n := range d.UnicastLocators.Nodes() {
		writeParam(w, PIDUnicastLocator, encodeLocator(n))
	}
	for _, n := range d.MulticastLocators.Nodes() {
		writeParam(w, PIDMulticastLocator, encodeLocator(n))
	}

	writeSentinel(w)
	return w.Bytes()
}

// ParseTopicData decodes a TopicBuiltinTopicData parameter list and
// derives its lookup key via cdr.TopicKeyHash, per spec.md §4.4's
// `(u32 name_len, name, u32 type_len, type)` MD5 derivation.
func ParseTopicData(buf []byte) (*TopicData, [16]byte, error) {
	r := cdr.NewReader(buf, cdr.EncapsulationCDRLittleEndian)
	params, err := readParameterList(r)
	if err != nil {
		return nil, [16]byte{}, badParam(err)
	}

	out := &TopicData{}
	for _, p := range params {
		switch p.pid.Value() {
		case PIDTopicName:
			s, err := decodeString(p.value)
			if err != nil {
				return nil, [16]byte{}, badParam(err)
			}
			out.Name = s
		case PIDTypeName:
			s, err := decodeString(p.value)
			if err != nil {
				return nil, [16]byte{}, badParam(err)
			}
			out.Type = s
		case PIDDurability:
			dur, err := decodeDurability(p.value)
			if err != nil {
				return nil, [16]byte{}, badParam(err)
			}
			out.QoS.Durability = dur
		}
	}

	return out, topicKeyHashOf(out), nil
}

func topicKeyHashOf(t *TopicData) [16]byte {
	return topicKeyHash(t.Name, t.Type)
}

func unknownMustParsePID(pid ParameterID) error {
	return errPID("plcdr: unrecognized must-parse parameter id", pid)
}
