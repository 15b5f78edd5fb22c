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

package cdr

import "crypto/md5"

// InstanceHash computes the 16-byte instance key hash spec.md §6 and
// §8 scenario 1 describe: a marshalled key of at most 16 bytes is used
// directly, right-padded with zero bytes to 16; a longer key is
// reduced to 16 bytes with MD5, matching the original's
// `dcps_key_hash()` (original_source/dds/src/xtypes/pid.c) behavior of
// trading an always-invertible key for a fixed-size, always-hashed one
// only when the marshalled key would otherwise not fit in the
// reader/writer's fixed instance-handle key slot.
func InstanceHash(keyBytes []byte) [16]byte {
	var out [16]byte
	if len(keyBytes) <= 16 {
		copy(out[:], keyBytes)
		return out
	}
	return md5.Sum(keyBytes)
}

// TopicKeyHash computes the topic key spec.md §4.4 uses to identify a
// discovered topic: the CDR representation of `(u32 name_len, name,
// u32 type_len, type)` reduced with MD5 to a 16-byte hash, regardless
// of length — unlike InstanceHash, the topic key is always hashed, since
// it is used purely as a lookup key and never needs to be inverted back
// into name/type.
func TopicKeyHash(name, typeName string) [16]byte {
	buf := make([]byte, 0, 8+len(name)+len(typeName))
	buf = appendU32BE(buf, uint32(len(name)))
	buf = append(buf, name...)
	buf = appendU32BE(buf, uint32(len(typeName)))
	buf = append(buf, typeName...)
	return md5.Sum(buf)
}

func appendU32BE(buf []byte, v uint32) []byte {
	return append(buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}
