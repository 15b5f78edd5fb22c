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

// VendorID identifies the implementation that produced a discovery
// message, carried in PID_VENDOR_ID.
type VendorID [2]byte

// Config governs parser behavior that depends on local policy rather
// than the wire format itself.
type Config struct {
	// LocalVendor is compared against an incoming message's
	// PID_VENDOR_ID to decide whether vendor-specific PIDs (other
	// than the foreign-typecode exception) are honored.
	LocalVendor VendorID

	// ForeignTypecodeVendors lists vendor IDs whose foreign-typecode
	// PIDs (spec.md §4.4's "two specific cooperating vendors"
	// exception) are accepted even though they don't match
	// LocalVendor. Resolves spec.md §9's Open Question: rather than
	// hardcoding the two vendor IDs the original
	// (original_source/dds/src/dds/dcps_pid.c) cooperated with, the
	// allow-list is operator-configured via internal/config so new
	// interoperating vendors can be added without a code change.
	ForeignTypecodeVendors []VendorID
}

func (c Config) acceptsVendor(v VendorID) bool {
	if v == c.LocalVendor {
		return true
	}
	for _, fv := range c.ForeignTypecodeVendors {
		if fv == v {
			return true
		}
	}
	return false
}

// acceptsPID reports whether a parsed PID should be processed rather
// than silently skipped. Non-vendor-specific and must-parse PIDs are
// always processed. An ordinary vendor-specific PID is honored only
// when its parameter list carried a PID_VENDOR_ID matching
// c.LocalVendor exactly; the foreign-typecode range additionally
// honors c.ForeignTypecodeVendors, per spec.md §4.4's two-cooperating-
// vendor exception. A vendor-specific PID encountered before
// PID_VENDOR_ID has been parsed is conservatively rejected.
func (c Config) acceptsPID(pid ParameterID, sawVendor bool, vendor VendorID) bool {
	if !pid.VendorSpecific() || pid.MustParse() {
		return true
	}
	if !sawVendor {
		return false
	}
	if isForeignTypecodePID(pid) {
		return c.acceptsVendor(vendor)
	}
	return vendor == c.LocalVendor
}
