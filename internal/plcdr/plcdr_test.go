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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/heptio-dds/ddscore/internal/cdr"
	"github.com/heptio-dds/ddscore/internal/qos"
)

// TestDiscoveredReaderDataRoundTrip exercises spec.md §8 scenario 2.
func TestDiscoveredReaderDataRoundTrip(t *testing.T) {
	in := &DiscoveredReaderData{
		TopicName: "HelloWorld",
		TypeName:  "HelloWorldData",
		QoS: qos.UniQos{
			Reliability: qos.Reliability{Kind: qos.Reliable},
			Durability:  qos.Durability{Kind: qos.TransientLocal},
			Partition:   []string{"finance.eq"},
		},
	}

	buf := EmitDiscoveredReaderData(in)
	out, err := ParseDiscoveredReaderData(buf, Config{})
	require.NoError(t, err)

	require.Equal(t, in.TopicName, out.TopicName)
	require.Equal(t, in.TypeName, out.TypeName)
	require.Equal(t, in.QoS.Reliability, out.QoS.Reliability)
	require.Equal(t, in.QoS.Durability, out.QoS.Durability)
	require.Equal(t, in.QoS.Partition, out.QoS.Partition)
}

func TestDiscoveredReaderDataRoundTripWithLocatorsAndFilter(t *testing.T) {
	in := &DiscoveredReaderData{
		TopicName: "Temperature",
		TypeName:  "TemperatureData",
		ContentFilter: &ContentFilterProperty{
			FilteredTopicName: "TemperatureFiltered",
			RelatedTopicName:  "Temperature",
			FilterClassName:   "DDSSQL",
			FilterExpression:  "value BETWEEN %0 AND %1",
			ExpressionParams:  []string{"10", "30"},
		},
	}
	in.UnicastLocators.Add(1, [16]byte{15: 1}, 7410, 0, 0, 0)

	buf := EmitDiscoveredReaderData(in)
	out, err := ParseDiscoveredReaderData(buf, Config{})
	require.NoError(t, err)

	require.Equal(t, in.TopicName, out.TopicName)
	require.Equal(t, 1, out.UnicastLocators.Len())
	require.NotNil(t, out.ContentFilter)
	if diff := cmp.Diff(*in.ContentFilter, *out.ContentFilter); diff != "" {
		t.Fatalf("content filter property round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDiscoveredReaderDataUnknownPIDSkipped(t *testing.T) {
	in := &DiscoveredReaderData{TopicName: "T"}
	buf := EmitDiscoveredReaderData(in)

	// Splice in an unrecognized, non-must-parse PID before the sentinel.
	sentinelAt := len(buf) - 4
	extra := []byte{0xAA, 0x00, 0x04, 0x00, 1, 2, 3, 4}
	spliced := append(append(append([]byte{}, buf[:sentinelAt]...), extra...), buf[sentinelAt:]...)

	out, err := ParseDiscoveredReaderData(spliced, Config{})
	require.NoError(t, err)
	require.Equal(t, "T", out.TopicName)
}

func TestParseDiscoveredReaderDataUnknownMustParsePIDErrors(t *testing.T) {
	in := &DiscoveredReaderData{TopicName: "T"}
	buf := EmitDiscoveredReaderData(in)

	sentinelAt := len(buf) - 4
	extra := []byte{0xAA, 0x40, 0x04, 0x00, 1, 2, 3, 4} // must-parse bit set
	spliced := append(append(append([]byte{}, buf[:sentinelAt]...), extra...), buf[sentinelAt:]...)

	_, err := ParseDiscoveredReaderData(spliced, Config{})
	require.Error(t, err)
}

// buildVendorPartitionBuffer emits {PID_TOPIC_NAME, PID_VENDOR_ID,
// PID_PARTITION} where PID_PARTITION's vendor-specific bit is set iff
// vendorTagged, used to exercise the vendor-gating path in
// Config.acceptsPID that EmitDiscoveredReaderData has no field for.
func buildVendorPartitionBuffer(t *testing.T, vendor VendorID, vendorTagged bool) []byte {
	t.Helper()

	w := cdr.NewWriter(cdr.EncapsulationCDRLittleEndian)
	writeParam(w, PIDTopicName, encodeString("T"))
	writeParam(w, PIDVendorID, encodeVendorID(vendor))

	pid := PIDPartition
	if vendorTagged {
		pid |= pidVendorSpecific
	}
	writeParam(w, pid, encodePartition([]string{"secret"}))

	writeSentinel(w)
	return w.Bytes()
}

// TestParseDiscoveredReaderDataHonorsVendorSpecificPIDOnlyForMatchingVendor
// exercises spec.md §4.4: "Vendor-specific PIDs ... are honored only
// if the parsed PID_VENDOR_ID matches this vendor."
func TestParseDiscoveredReaderDataHonorsVendorSpecificPIDOnlyForMatchingVendor(t *testing.T) {
	local := VendorID{0x01, 0x02}
	foreign := VendorID{0x09, 0x09}

	foreignBuf := buildVendorPartitionBuffer(t, foreign, true)
	out, err := ParseDiscoveredReaderData(foreignBuf, Config{LocalVendor: local})
	require.NoError(t, err)
	require.Equal(t, "T", out.TopicName)
	require.Empty(t, out.QoS.Partition, "vendor-specific PID from a foreign vendor must be skipped")

	localBuf := buildVendorPartitionBuffer(t, local, true)
	out, err = ParseDiscoveredReaderData(localBuf, Config{LocalVendor: local})
	require.NoError(t, err)
	require.Equal(t, []string{"secret"}, out.QoS.Partition, "vendor-specific PID from the matching vendor must be honored")
}

func TestDiscoveredWriterDataRoundTrip(t *testing.T) {
	in := &DiscoveredWriterData{
		TopicName: "HelloWorld",
		TypeName:  "HelloWorldData",
		QoS: qos.UniQos{
			Reliability: qos.Reliability{Kind: qos.BestEffort},
			Durability:  qos.Durability{Kind: qos.Volatile},
		},
	}

	buf := EmitDiscoveredWriterData(in)
	out, err := ParseDiscoveredWriterData(buf, Config{})
	require.NoError(t, err)

	require.Equal(t, in.TopicName, out.TopicName)
	require.Equal(t, in.QoS.Reliability, out.QoS.Reliability)
	require.Equal(t, in.QoS.Durability, out.QoS.Durability)
}

func TestParseTopicDataDerivesKeyHash(t *testing.T) {
	td := &TopicData{Name: "HelloWorld", Type: "HelloWorldData"}
	w := newTopicDataBuffer(t, td)

	out, key, err := ParseTopicData(w)
	require.NoError(t, err)
	require.Equal(t, "HelloWorld", out.Name)
	require.Equal(t, topicKeyHash("HelloWorld", "HelloWorldData"), key)
}

func newTopicDataBuffer(t *testing.T, td *TopicData) []byte {
	t.Helper()
	// Reuses the writer-data emit path's field encoders, since
	// TopicData shares the same {PID_TOPIC_NAME, PID_TYPE_NAME} shape.
	d := &DiscoveredWriterData{TopicName: td.Name, TypeName: td.Type}
	return EmitDiscoveredWriterData(d)
}
