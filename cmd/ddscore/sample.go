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

package main

import (
	"io"

	"github.com/heptio-dds/ddscore/internal/cdr"
)

// KeyValueSample is a minimal hand-written cdr.TypeSupport, @key Key,
// used by serve's demo topic so it exercises internal/cdr/internal/entity
// end to end without needing an IDL compiler this repository doesn't
// have.
type KeyValueSample struct {
	Key   int32
	Value string
}

func (s *KeyValueSample) Marshal(buf []byte, enc cdr.Encapsulation) ([]byte, error) {
	w := cdr.NewWriter(enc)
	w.I32(s.Key)
	w.String(s.Value)
	return append(buf, w.Bytes()...), nil
}

func (s *KeyValueSample) Unmarshal(r io.Reader, enc cdr.Encapsulation) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	cr := cdr.NewReader(raw, enc)
	key, err := cr.I32()
	if err != nil {
		return err
	}
	value, err := cr.String()
	if err != nil {
		return err
	}

	s.Key, s.Value = key, value
	return nil
}

func (s *KeyValueSample) KeyBytes(buf []byte) ([]byte, error) {
	w := cdr.NewWriter(cdr.EncapsulationCDRBigEndian)
	w.I32(s.Key)
	return append(buf, w.Bytes()...), nil
}
