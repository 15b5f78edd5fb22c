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
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/sirupsen/logrus"

	"github.com/heptio-dds/ddscore/internal/build"
)

func main() {
	log := logrus.StandardLogger()

	app := kingpin.New("ddscore", "A DDS/DCPS domain participant.")
	app.HelpFlag.Short('h')

	serve, serveCtx := registerServe(app)
	qosCheck, qosCheckCtx := registerQosCheck(app)
	version := app.Command("version", "Build information for ddscore.")

	args := os.Args[1:]
	switch kingpin.MustParse(app.Parse(args)) {
	case serve.FullCommand():
		checkFatal(log, doServe(log, serveCtx))
	case qosCheck.FullCommand():
		checkFatal(log, doQosCheck(os.Stdout, qosCheckCtx))
	case version.FullCommand():
		fmt.Print(build.PrintBuildInfo())
	default:
		app.Usage(args)
		os.Exit(2)
	}
}

func checkFatal(log logrus.FieldLogger, err error) {
	if err != nil {
		log.WithError(err).Fatal("ddscore: fatal error")
	}
}
