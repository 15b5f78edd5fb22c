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

// Package cdr implements spec.md §2 component 5: typed marshalling to
// and from CDR, key extraction, and the MD5-based instance hash. A
// TypeSupport is the Go-native replacement for the original's
// per-field typecode walker (original_source/dds/src/typecode/typecode.c):
// instead of interpreting a runtime typecode descriptor, each Go type
// that wants to be a DDS topic type implements TypeSupport directly,
// the same way encoding/json's Marshaler lets a type own its own wire
// representation rather than being walked by reflection.
package cdr

import "io"

// Encapsulation identifies the CDR representation and byte order used
// on the wire, matching the 4-byte encapsulation header of spec.md §6:
// a 2-byte representation identifier whose low bit is the endian flag,
// followed by 2 bytes of options (always zero here).
type Encapsulation uint16

const (
	EncapsulationCDRBigEndian    Encapsulation = 0x0000
	EncapsulationCDRLittleEndian Encapsulation = 0x0001
	EncapsulationPLCDRBigEndian  Encapsulation = 0x0002
	EncapsulationPLCDRLittleEndian Encapsulation = 0x0003
	EncapsulationRawBigEndian    Encapsulation = 0x0004
	EncapsulationRawLittleEndian Encapsulation = 0x0005
)

// LittleEndian reports whether e's endian bit selects little-endian
// byte order.
func (e Encapsulation) LittleEndian() bool { return e&1 == 1 }

// TypeSupport is implemented by a generated or hand-written Go type
// that can marshal itself to CDR, unmarshal itself from CDR, and
// extract its key fields. TypeSupport
// values are what internal/entity.Type wraps and interns (spec.md §3's
// Type record) and what internal/history.Cache stores samples as.
type TypeSupport interface {
	// Marshal appends the CDR representation of the sample to buf
	// under enc's byte order and returns the extended slice.
	Marshal(buf []byte, enc Encapsulation) ([]byte, error)

	// Unmarshal decodes a CDR representation from r under enc's byte
	// order into the receiver.
	Unmarshal(r io.Reader, enc Encapsulation) error

	// KeyBytes appends the CDR representation of only the key fields
	// (the fields marked @key in the type's IDL) to buf, in
	// declaration order, with no padding beyond each field's own
	// natural alignment. This is the input to InstanceHash.
	KeyBytes(buf []byte) ([]byte, error)
}
