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
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"gopkg.in/yaml.v3"

	"github.com/heptio-dds/ddscore/internal/qos"
)

// qosCheckContext holds the qos-check subcommand's flags.
type qosCheckContext struct {
	WriterQosPath string
	ReaderQosPath string
}

// registerQosCheck registers the qos-check subcommand: read a writer
// QoS document and a reader QoS document and report whether they are
// offer/request compatible, the standalone command-line counterpart
// to internal/qos.Match.
func registerQosCheck(app *kingpin.Application) (*kingpin.CmdClause, *qosCheckContext) {
	cmd := app.Command("qos-check", "Report whether a writer and reader QoS document are compatible.")

	ctx := &qosCheckContext{}
	cmd.Arg("writer-qos", "Path to the writer's QoS YAML document.").Required().StringVar(&ctx.WriterQosPath)
	cmd.Arg("reader-qos", "Path to the reader's QoS YAML document.").Required().StringVar(&ctx.ReaderQosPath)

	return cmd, ctx
}

// doQosCheck loads the two QoS documents named by ctx, reports the
// match verdict to out, and returns an error only on a document
// read/parse failure or when either document fails QoS validation --
// an incompatible-but-valid pair is a normal, zero-exit-status
// report, not a command failure.
func doQosCheck(out io.Writer, ctx *qosCheckContext) error {
	writerQos, err := readUniQos(ctx.WriterQosPath)
	if err != nil {
		return fmt.Errorf("reading writer qos: %w", err)
	}
	readerQos, err := readUniQos(ctx.ReaderQosPath)
	if err != nil {
		return fmt.Errorf("reading reader qos: %w", err)
	}

	if err := writerQos.Validate(); err != nil {
		return fmt.Errorf("writer qos: %w", err)
	}
	if err := readerQos.Validate(); err != nil {
		return fmt.Errorf("reader qos: %w", err)
	}

	ok, policy := qos.Match(writerQos, readerQos)
	if ok {
		fmt.Fprintln(out, "COMPATIBLE")
		return nil
	}
	fmt.Fprintf(out, "INCOMPATIBLE: %s\n", policy)
	return nil
}

func readUniQos(path string) (qos.UniQos, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return qos.UniQos{}, err
	}

	var q qos.UniQos
	if err := yaml.Unmarshal(data, &q); err != nil {
		return qos.UniQos{}, err
	}
	return q, nil
}
