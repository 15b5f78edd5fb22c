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
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/heptio-dds/ddscore/internal/cdr"
	ddsconfig "github.com/heptio-dds/ddscore/internal/config"
	"github.com/heptio-dds/ddscore/internal/dispatch"
	"github.com/heptio-dds/ddscore/internal/duration"
	"github.com/heptio-dds/ddscore/internal/entity"
	"github.com/heptio-dds/ddscore/internal/forward"
	"github.com/heptio-dds/ddscore/internal/history"
	"github.com/heptio-dds/ddscore/internal/log/logrusadapter"
	"github.com/heptio-dds/ddscore/internal/metrics"
	"github.com/heptio-dds/ddscore/internal/workgroup"
)

// serveContext holds the serve subcommand's flags, registerServe's
// counterpart to serveContext in cmd/contour/servecontext.go.
type serveContext struct {
	ConfigPath       string
	DomainIDOverride int
	NameOverride     string
	PublishPeriod    time.Duration
	MaxEntities      int
}

// registerServe registers the serve subcommand and its flags with app.
func registerServe(app *kingpin.Application) (*kingpin.CmdClause, *serveContext) {
	serve := app.Command("serve", "Run a domain participant.")

	ctx := &serveContext{DomainIDOverride: -1}

	serve.Flag("config-path", "Path to a domain participant configuration file.").StringVar(&ctx.ConfigPath)
	serve.Flag("domain-id", "Override the configured domain ID.").Default("-1").IntVar(&ctx.DomainIDOverride)
	serve.Flag("max-entities", "Maximum number of entities the participant's domain will hold.").Default("1024").IntVar(&ctx.MaxEntities)
	serve.Flag("participant-name", "Override the configured participant name.").StringVar(&ctx.NameOverride)
	serve.Flag("publish-period", "How often the demo writer publishes a sample.").Default("2s").DurationVar(&ctx.PublishPeriod)

	return serve, ctx
}

// doServe loads ctx's configuration, builds a single domain
// participant with one topic/publisher/subscriber/writer/reader pair,
// and runs the dispatcher and demo publish/take loop under a
// workgroup.Group until interrupted -- the harness spec.md §4.11
// names: the dispatcher thread, the forwarding table (aged by its own
// go-cache janitor, so it needs no workgroup member of its own), and a
// scripted publish/take loop standing in for a wire RTPS feed.
func doServe(log logrus.FieldLogger, ctx *serveContext) error {
	cfg, err := loadServeConfig(ctx)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid domain participant configuration: %w", err)
	}

	resolved, err := ddsconfig.ResolveQos(cfg.QoS)
	if err != nil {
		return fmt.Errorf("resolving qos profile: %w", err)
	}

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)

	domain := entity.NewDomain(cfg.DomainID, ctx.MaxEntities)
	participant, err := domain.CreateParticipant(true)
	if err != nil {
		return fmt.Errorf("creating participant: %w", err)
	}

	topic, err := domain.CreateTopic(topicName(cfg), "KeyValueSample", &KeyValueSample{}, cfg.QoS.Topic)
	if err != nil {
		return fmt.Errorf("creating topic: %w", err)
	}

	pub, err := participant.CreatePublisher(resolved.Publisher, true)
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	sub, err := participant.CreateSubscriber(resolved.Subscriber, true)
	if err != nil {
		return fmt.Errorf("creating subscriber: %w", err)
	}

	writer, err := pub.CreateWriter(topic, resolved.Writer, m, true)
	if err != nil {
		return fmt.Errorf("creating writer: %w", err)
	}
	reader, err := sub.CreateReader(topic, resolved.Reader, m, true)
	if err != nil {
		return fmt.Errorf("creating reader: %w", err)
	}

	if ok, policy := entity.MatchEndpoints(writer, reader); !ok {
		log.Warnf("demo writer/reader did not match: %s", policy)
	}

	// The forwarding table isn't exercised by loopback delivery below;
	// it is populated here so serve exercises internal/forward the way
	// a real participant would on discovering its own locators.
	fwd := forward.NewTable()
	fwd.Add(forward.Prefix{}, cfg.DomainID, 0, nil)

	logger := logrusadapter.NewFromLogger(logrus.StandardLogger())
	disp := dispatch.NewDispatcher(logger)

	var group workgroup.Group
	group.Add(disp.Run)
	group.AddTicker(ctx.PublishPeriod, publishAndTake(log, disp, writer, reader))

	log.WithField("domain", cfg.DomainID).WithField("topic", topic.Name).WithField("forwarding-entries", fwd.Len()).
		Info("ddscore: serving domain participant")
	return group.Run()
}

// publishAndTake returns the demo tick function: write one sample via
// Writer.Publish, which registers it in the writer's own cache and
// fans it out (via golang.org/x/sync/errgroup) to every matched
// reader's cache, then takes everything newly available from each
// matched reader, posting a DataAvailable notification per non-empty
// take. Looping a sample straight from writer to readers in-process
// stands in for the RTPS DATA submessage internal/rtps otherwise
// carries it over; see DESIGN.md's cmd/ddscore scope decision.
func publishAndTake(log logrus.FieldLogger, disp *dispatch.Dispatcher, writer *entity.Writer, reader *entity.Reader) func() {
	var counter int32
	return func() {
		counter++
		sample := &KeyValueSample{Key: counter, Value: fmt.Sprintf("tick-%d", counter)}

		data, err := sample.Marshal(nil, cdr.EncapsulationCDRLittleEndian)
		if err != nil {
			log.WithError(err).Error("ddscore: marshalling demo sample")
			return
		}

		keyBytes, err := sample.KeyBytes(nil)
		if err != nil {
			log.WithError(err).Error("ddscore: extracting demo sample key")
			return
		}

		now := time.Now()
		readers, err := writer.Publish(keyBytes, data, now)
		if err != nil {
			log.WithError(err).Error("ddscore: publishing demo sample")
			return
		}

		for _, r := range readers {
			samples := r.Cache.Get(0, history.AnyMask, true, duration.Finite(0))
			if len(samples) == 0 {
				continue
			}
			disp.Post(dispatch.Notification{Entity: r, Type: dispatch.DataAvailable})
			r.Cache.Done(samples, true)
			log.WithField("count", len(samples)).Info("ddscore: delivered demo sample batch")
		}
	}
}

func loadServeConfig(ctx *serveContext) (ddsconfig.DomainParticipantConfig, error) {
	spec := ddsconfig.DomainParticipantConfig{}

	if ctx.ConfigPath != "" {
		f, err := os.Open(ctx.ConfigPath)
		if err != nil {
			return ddsconfig.DomainParticipantConfig{}, fmt.Errorf("opening config file: %w", err)
		}
		defer f.Close()

		spec, err = ddsconfig.Load(f)
		if err != nil {
			return ddsconfig.DomainParticipantConfig{}, err
		}
	}

	if ctx.DomainIDOverride >= 0 {
		spec.DomainID = uint32(ctx.DomainIDOverride)
	}
	if ctx.NameOverride != "" {
		spec.Name = ctx.NameOverride
	}

	return ddsconfig.OverlayOnDefaults(spec)
}

func topicName(cfg ddsconfig.DomainParticipantConfig) string {
	if cfg.Name != "" {
		return cfg.Name + "/demo"
	}
	return "demo"
}
