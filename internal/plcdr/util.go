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
	"github.com/pkg/errors"

	"github.com/heptio-dds/ddscore/internal/cdr"
)

func topicKeyHash(name, typeName string) [16]byte {
	return cdr.TopicKeyHash(name, typeName)
}

func errPID(msg string, pid ParameterID) error {
	return errors.Errorf("%s: 0x%04x", msg, uint16(pid))
}
