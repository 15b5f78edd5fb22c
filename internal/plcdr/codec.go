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
	"time"

	"github.com/pkg/errors"

	"github.com/heptio-dds/ddscore/internal/cdr"
	"github.com/heptio-dds/ddscore/internal/ddserr"
	"github.com/heptio-dds/ddscore/internal/duration"
	"github.com/heptio-dds/ddscore/internal/locator"
	"github.com/heptio-dds/ddscore/internal/qos"
)

// rawParam is one {pid, length, value} entry read off the wire before
// its value bytes are interpreted by a typed parser, matching
// pid.c's two-pass walk: find the entry, then decode it.
type rawParam struct {
	pid   ParameterID
	value []byte
}

// readParameterList walks a parameter-list buffer, reading
// {pid: u16, length: u16} headers until PID_SENTINEL. Each header is
// read where the previous entry's length ends; lengths that include
// padding to a multiple of 4 (as writeParam emits them) keep every
// header aligned to 4 per spec.md §4.4. PID_SENTINEL's length is not
// verified, matching the original's parser.
func readParameterList(r *cdr.Reader) ([]rawParam, error) {
	var params []rawParam
	for {
		pid, err := r.U16()
		if err != nil {
			return nil, errors.Wrap(err, "plcdr: reading parameter id")
		}
		if ParameterID(pid).Value() == PIDSentinel {
			return params, nil
		}
		length, err := r.U16()
		if err != nil {
			return nil, errors.Wrap(err, "plcdr: reading parameter length")
		}
		value, err := r.Raw(int(length))
		if err != nil {
			return nil, errors.Wrap(err, "plcdr: reading parameter value")
		}
		params = append(params, rawParam{pid: ParameterID(pid), value: value})
	}
}

// writeSentinel emits the terminating PID_SENTINEL entry: spec.md
// §4.4 requires length=0 and the emitted buffer must always end with
// one.
func writeSentinel(w *cdr.Writer) {
	w.U16(uint16(PIDSentinel))
	w.U16(0)
}

// writeParam emits one {pid, length, value} entry, zero-padding value
// to a multiple of 4 and counting the padding in length, so the next
// header starts aligned to 4.
func writeParam(w *cdr.Writer, pid ParameterID, value []byte) {
	if rem := len(value) % 4; rem != 0 {
		value = append(append([]byte(nil), value...), make([]byte, 4-rem)...)
	}
	w.U16(uint16(pid))
	w.U16(uint16(len(value)))
	w.Raw(value)
}

// find returns the first raw parameter with the given pid value
// (vendor/must-parse bits stripped), and whether it was present.
func find(params []rawParam, pid ParameterID) (rawParam, bool) {
	for _, p := range params {
		if p.pid.Value() == pid {
			return p, true
		}
	}
	return rawParam{}, false
}

func findAll(params []rawParam, pid ParameterID) []rawParam {
	var out []rawParam
	for _, p := range params {
		if p.pid.Value() == pid {
			out = append(out, p)
		}
	}
	return out
}

func decodeString(value []byte) (string, error) {
	r := cdr.NewReader(value, cdr.EncapsulationCDRLittleEndian)
	return r.String()
}

// decodeVendorID reads PID_VENDOR_ID's two-octet VendorId_t.
func decodeVendorID(value []byte) (VendorID, error) {
	r := cdr.NewReader(value, cdr.EncapsulationCDRLittleEndian)
	b, err := r.Raw(2)
	if err != nil {
		return VendorID{}, err
	}
	return VendorID{b[0], b[1]}, nil
}

func encodeVendorID(v VendorID) []byte {
	w := cdr.NewWriter(cdr.EncapsulationCDRLittleEndian)
	w.Raw(v[:])
	return w.Bytes()
}

func encodeString(s string) []byte {
	w := cdr.NewWriter(cdr.EncapsulationCDRLittleEndian)
	w.String(s)
	return w.Bytes()
}

// decodeLocator decodes an RTPS Locator_t: {kind: i32, port: u32,
// address: [16]byte}.
func decodeLocator(value []byte) (locator.Node, error) {
	r := cdr.NewReader(value, cdr.EncapsulationCDRLittleEndian)
	kind, err := r.I32()
	if err != nil {
		return locator.Node{}, err
	}
	port, err := r.U32()
	if err != nil {
		return locator.Node{}, err
	}
	if r.Remaining() < 16 {
		return locator.Node{}, errors.Errorf("plcdr: short locator, %d bytes remaining", r.Remaining())
	}
	var addr locator.Address
	for i := range addr {
		b, err := r.U8()
		if err != nil {
			return locator.Node{}, err
		}
		addr[i] = b
	}
	return locator.Node{Kind: locator.Kind(kind), Addr: addr, Port: port}, nil
}

func encodeLocator(n locator.Node) []byte {
	w := cdr.NewWriter(cdr.EncapsulationCDRLittleEndian)
	w.I32(int32(n.Kind))
	w.U32(n.Port)
	for _, b := range n.Addr {
		w.U8(b)
	}
	return w.Bytes()
}

// decodePartition decodes {n: u32, {string} x n}, treating an absent
// PID_PARTITION (n == 0) as the default empty partition per spec.md
// §4.3.
func decodePartition(value []byte) ([]string, error) {
	r := cdr.NewReader(value, cdr.EncapsulationCDRLittleEndian)
	n, err := r.U32()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		s, err := r.String()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func encodePartition(names []string) []byte {
	w := cdr.NewWriter(cdr.EncapsulationCDRLittleEndian)
	w.U32(uint32(len(names)))
	for _, n := range names {
		w.String(n)
	}
	return w.Bytes()
}

func decodeReliability(value []byte) (qos.Reliability, error) {
	r := cdr.NewReader(value, cdr.EncapsulationCDRLittleEndian)
	kind, err := r.U32()
	if err != nil {
		return qos.Reliability{}, err
	}
	sec, err := r.I32()
	if err != nil {
		return qos.Reliability{}, err
	}
	nsec, err := r.U32()
	if err != nil {
		return qos.Reliability{}, err
	}
	return qos.Reliability{
		Kind:            qos.ReliabilityKind(kind),
		MaxBlockingTime: decodeDuration(sec, nsec),
	}, nil
}

func encodeReliability(rel qos.Reliability) []byte {
	w := cdr.NewWriter(cdr.EncapsulationCDRLittleEndian)
	w.U32(uint32(rel.Kind))
	sec, nsec := encodeDuration(rel.MaxBlockingTime)
	w.I32(sec)
	w.U32(nsec)
	return w.Bytes()
}

func decodeDurability(value []byte) (qos.Durability, error) {
	r := cdr.NewReader(value, cdr.EncapsulationCDRLittleEndian)
	kind, err := r.U32()
	if err != nil {
		return qos.Durability{}, err
	}
	return qos.Durability{Kind: qos.DurabilityKind(kind)}, nil
}

func encodeDurability(d qos.Durability) []byte {
	w := cdr.NewWriter(cdr.EncapsulationCDRLittleEndian)
	w.U32(uint32(d.Kind))
	return w.Bytes()
}

// durationInfiniteSec is the RTPS wire sentinel for DURATION_INFINITE:
// seconds=0x7fffffff, fraction=0xffffffff.
const durationInfiniteSec int32 = 0x7fffffff

func decodeDuration(sec int32, nsec uint32) duration.Value {
	if sec == durationInfiniteSec {
		return duration.Infinite()
	}
	return duration.Finite(time.Duration(sec)*time.Second + time.Duration(nsec))
}

func encodeDuration(d duration.Value) (int32, uint32) {
	if d.IsInfinite() {
		return durationInfiniteSec, 0xffffffff
	}
	sec := int32(d.Duration() / time.Second)
	nsec := uint32(d.Duration() % time.Second)
	return sec, nsec
}

func decodeContentFilterProperty(value []byte) (*ContentFilterProperty, error) {
	r := cdr.NewReader(value, cdr.EncapsulationCDRLittleEndian)
	filtered, err := r.String()
	if err != nil {
		return nil, err
	}
	related, err := r.String()
	if err != nil {
		return nil, err
	}
	class, err := r.String()
	if err != nil {
		return nil, err
	}
	expr, err := r.String()
	if err != nil {
		return nil, err
	}
	n, err := r.U32()
	if err != nil {
		return nil, err
	}
	params := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		p, err := r.String()
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	// The bytecode fields that follow in the original wire format are
	// intentionally not decoded: per spec.md §4.4, the subscriber
	// recompiles the filter locally via internal/sqlfilter rather than
	// trusting remote bytecode.
	return &ContentFilterProperty{
		FilteredTopicName: filtered,
		RelatedTopicName:  related,
		FilterClassName:   class,
		FilterExpression:  expr,
		ExpressionParams:  params,
	}, nil
}

func encodeContentFilterProperty(cfp *ContentFilterProperty) []byte {
	w := cdr.NewWriter(cdr.EncapsulationCDRLittleEndian)
	w.String(cfp.FilteredTopicName)
	w.String(cfp.RelatedTopicName)
	w.String(cfp.FilterClassName)
	w.String(cfp.FilterExpression)
	w.U32(uint32(len(cfp.ExpressionParams)))
	for _, p := range cfp.ExpressionParams {
		w.String(p)
	}
	return w.Bytes()
}

func badParam(err error) error { return ddserr.BadParam(err) }
