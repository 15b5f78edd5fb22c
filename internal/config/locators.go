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
	"net"

	"github.com/pkg/errors"

	"github.com/heptio-dds/ddscore/internal/locator"
)

// kindByName maps a LocatorSpec.Kind string onto its locator.Kind,
// the YAML-document spelling of the four transports locator.Kind
// enumerates.
var kindByName = map[string]locator.Kind{
	"udpv4": locator.KindUDPv4,
	"udpv6": locator.KindUDPv6,
	"tcpv4": locator.KindTCPv4,
	"tcpv6": locator.KindTCPv6,
}

// ParseLocator resolves a LocatorSpec into a locator.Node, rejecting
// an unknown kind name or an address that doesn't parse as an IP
// literal.
func ParseLocator(spec LocatorSpec) (locator.Node, error) {
	kind, ok := kindByName[spec.Kind]
	if !ok {
		return locator.Node{}, errors.Errorf("locator: unknown kind %q", spec.Kind)
	}

	ip := net.ParseIP(spec.Address)
	if ip == nil {
		return locator.Node{}, errors.Errorf("locator: invalid address %q", spec.Address)
	}

	var addr locator.Address
	copy(addr[:], ip.To16())

	return locator.Node{Kind: kind, Addr: addr, Port: spec.Port}, nil
}

// ParseLocators resolves a slice of LocatorSpec in order, failing on
// the first invalid entry.
func ParseLocators(specs []LocatorSpec) ([]locator.Node, error) {
	nodes := make([]locator.Node, 0, len(specs))
	for _, spec := range specs {
		n, err := ParseLocator(spec)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}
