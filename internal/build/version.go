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

// Package build reports the binary's build provenance, the ddscore
// counterpart to internal/build's PrintBuildInfo: Branch/Sha/Version
// are set by -ldflags at link time and otherwise stay empty.
package build

import (
	"gopkg.in/yaml.v3"
)

// Info is the build metadata rendered by PrintBuildInfo.
type Info struct {
	Branch  string `yaml:"branch,omitempty"`
	Sha     string `yaml:"sha,omitempty"`
	Version string `yaml:"version,omitempty"`
}

var Branch string

var Sha string

var Version string

// PrintBuildInfo renders the current Branch/Sha/Version as YAML.
func PrintBuildInfo() string {
	info := &Info{Branch, Sha, Version}
	out, err := yaml.Marshal(info)
	if err != nil {
		panic(err)
	}
	return string(out)
}
