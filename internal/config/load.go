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
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Load decodes a YAML document into a sparse DomainParticipantConfig:
// fields the document doesn't mention are left at their Go zero value.
// Pass the result to OverlayOnDefaults before using it, the same two
// step load-then-overlay internal/contourconfig's CRD reconciler
// follows for a ContourConfigurationSpec.
//
// Unknown fields are rejected: a config document is hand-written, and
// a typo'd key should fail loudly rather than be silently ignored.
func Load(in io.Reader) (DomainParticipantConfig, error) {
	var spec DomainParticipantConfig

	dec := yaml.NewDecoder(in)
	dec.KnownFields(true)

	if err := dec.Decode(&spec); err != nil {
		if err == io.EOF {
			return spec, nil
		}
		return DomainParticipantConfig{}, fmt.Errorf("failed to parse domain participant configuration: %w", err)
	}

	return spec, nil
}

// LoadAndOverlay is the common case: Load a document and immediately
// overlay it on Defaults().
func LoadAndOverlay(in io.Reader) (DomainParticipantConfig, error) {
	spec, err := Load(in)
	if err != nil {
		return DomainParticipantConfig{}, err
	}
	return OverlayOnDefaults(spec)
}
