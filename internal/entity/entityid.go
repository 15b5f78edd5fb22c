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

package entity

import "bytes"

// EntityId is the 4-byte entity id half of a GUID (GLOSSARY: GUID =
// GuidPrefix + EntityId), unique within a participant. The low byte
// encodes writer/reader × user/builtin × with/without key, matching
// RTPS's EntityKind octet; the upper three bytes are a per-participant
// counter.
type EntityId [4]byte

// EntityKind is the low byte of an EntityId: the user/builtin ×
// reader/writer × with/without key discriminator spec.md §3 names.
type EntityKind byte

const (
	entityKindWriterBit   EntityKind = 0x02
	entityKindBuiltinBit  EntityKind = 0xc0
	entityKindNoKeyBit    EntityKind = 0x03
	entityKindWithKeyBit  EntityKind = 0x02
)

const (
	// EntityKindUserWriterWithKey etc. are the concrete kinds an
	// Endpoint's EntityId carries in its low byte.
	EntityKindUserWriterWithKey    EntityKind = 0x02
	EntityKindUserWriterNoKey      EntityKind = 0x03
	EntityKindUserReaderWithKey    EntityKind = 0x07
	EntityKindUserReaderNoKey      EntityKind = 0x04
	EntityKindBuiltinWriterWithKey EntityKind = 0xc2
	EntityKindBuiltinReaderWithKey EntityKind = 0xc7
)

// IsWriter reports whether k denotes a writer EntityId.
func (k EntityKind) IsWriter() bool {
	return k == EntityKindUserWriterWithKey || k == EntityKindUserWriterNoKey || k == EntityKindBuiltinWriterWithKey
}

// IsBuiltin reports whether k denotes a built-in (discovery) endpoint.
func (k EntityKind) IsBuiltin() bool { return k&entityKindBuiltinBit == entityKindBuiltinBit }

// NewEntityId builds an EntityId from a per-participant counter and
// kind byte, following RTPS's {counter[3], kind} layout.
func NewEntityId(counter uint32, kind EntityKind) EntityId {
	return EntityId{byte(counter >> 16), byte(counter >> 8), byte(counter), byte(kind)}
}

// Kind extracts the low-byte discriminator.
func (id EntityId) Kind() EntityKind { return EntityKind(id[3]) }

// Less orders EntityId values byte-lexicographically, the comparison
// the Endpoints-by-EntityId skiplist index (btree.BTreeG) uses.
func (id EntityId) Less(other EntityId) bool {
	return bytes.Compare(id[:], other[:]) < 0
}
