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

// Package metrics provides Prometheus metrics for the entity graph's
// per-writer/per-reader status counters (spec.md §3) and the history
// cache and entity-graph lifecycle counters that don't have a DCPS
// status-condition home of their own.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// EndpointKey identifies a local writer or reader for metric labelling.
type EndpointKey struct {
	Domain uint32
	Topic  string
	Entity string // hex EntityId
}

// Metrics holds the Prometheus collectors registered for one process.
type Metrics struct {
	buildInfoGauge *prometheus.GaugeVec

	offeredDeadlineMissedC    *prometheus.CounterVec
	offeredIncompatibleQosC   *prometheus.CounterVec
	livelinessLostC           *prometheus.CounterVec
	publicationMatchedG       *prometheus.GaugeVec
	requestedDeadlineMissedC  *prometheus.CounterVec
	requestedIncompatibleQosC *prometheus.CounterVec
	sampleLostC               *prometheus.CounterVec
	sampleRejectedC           *prometheus.CounterVec
	livelinessChangedG        *prometheus.GaugeVec
	subscriptionMatchedG      *prometheus.GaugeVec
	historyCacheInstanceGauge *prometheus.GaugeVec
	historyCacheSampleGauge   *prometheus.GaugeVec
	entityGraphRebuildTotal   prometheus.Counter
	entityGraphRebuildGauge   prometheus.Gauge
}

const (
	BuildInfoGauge = "ddscore_build_info"

	OfferedDeadlineMissed     = "ddscore_writer_offered_deadline_missed_total"
	OfferedIncompatibleQos    = "ddscore_writer_offered_incompatible_qos_total"
	LivelinessLost            = "ddscore_writer_liveliness_lost_total"
	PublicationMatched        = "ddscore_writer_publication_matched"
	RequestedDeadlineMissed   = "ddscore_reader_requested_deadline_missed_total"
	RequestedIncompatibleQos  = "ddscore_reader_requested_incompatible_qos_total"
	SampleLost                = "ddscore_reader_sample_lost_total"
	SampleRejected            = "ddscore_reader_sample_rejected_total"
	LivelinessChanged         = "ddscore_reader_liveliness_changed"
	SubscriptionMatched       = "ddscore_reader_subscription_matched"
	HistoryCacheInstanceGauge = "ddscore_history_cache_instances"
	HistoryCacheSampleGauge   = "ddscore_history_cache_samples"
	EntityGraphRebuildTotal   = "ddscore_entity_graph_rebuild_total"
	EntityGraphRebuildGauge   = "ddscore_entity_graph_rebuild_timestamp"
)

// NewMetrics creates the status-counter collectors of spec.md §3 and
// registers them with the supplied registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := Metrics{
		buildInfoGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: BuildInfoGauge,
				Help: "Build information, labelled by branch, revision and version.",
			},
			[]string{"branch", "revision", "version"},
		),
		offeredDeadlineMissedC: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: OfferedDeadlineMissed, Help: "Total offered_deadline_missed events on a local writer."},
			[]string{"domain", "topic", "entity"},
		),
		offeredIncompatibleQosC: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: OfferedIncompatibleQos, Help: "Total offered_incompatible_qos events on a local writer."},
			[]string{"domain", "topic", "entity", "policy"},
		),
		livelinessLostC: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: LivelinessLost, Help: "Total liveliness_lost events on a local writer."},
			[]string{"domain", "topic", "entity"},
		),
		publicationMatchedG: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: PublicationMatched, Help: "Current matched reader count for a local writer."},
			[]string{"domain", "topic", "entity"},
		),
		requestedDeadlineMissedC: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: RequestedDeadlineMissed, Help: "Total requested_deadline_missed events on a local reader."},
			[]string{"domain", "topic", "entity"},
		),
		requestedIncompatibleQosC: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: RequestedIncompatibleQos, Help: "Total requested_incompatible_qos events on a local reader."},
			[]string{"domain", "topic", "entity", "policy"},
		),
		sampleLostC: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: SampleLost, Help: "Total sample_lost events on a local reader."},
			[]string{"domain", "topic", "entity"},
		),
		sampleRejectedC: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: SampleRejected, Help: "Total sample_rejected events on a local reader."},
			[]string{"domain", "topic", "entity", "reason"},
		),
		livelinessChangedG: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: LivelinessChanged, Help: "Current alive writer count for a local reader."},
			[]string{"domain", "topic", "entity"},
		),
		subscriptionMatchedG: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: SubscriptionMatched, Help: "Current matched writer count for a local reader."},
			[]string{"domain", "topic", "entity"},
		),
		historyCacheInstanceGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: HistoryCacheInstanceGauge, Help: "Instances currently held by a history cache."},
			[]string{"domain", "topic", "entity"},
		),
		historyCacheSampleGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: HistoryCacheSampleGauge, Help: "Samples currently held by a history cache."},
			[]string{"domain", "topic", "entity"},
		),
		entityGraphRebuildTotal: prometheus.NewCounter(
			prometheus.CounterOpts{Name: EntityGraphRebuildTotal, Help: "Total number of times the entity graph processed a discovery update."},
		),
		entityGraphRebuildGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: EntityGraphRebuildGauge, Help: "Timestamp of the last entity graph discovery update."},
		),
	}
	m.register(registry)
	return &m
}

func (m *Metrics) register(registry *prometheus.Registry) {
	registry.MustRegister(
		m.buildInfoGauge,
		m.offeredDeadlineMissedC,
		m.offeredIncompatibleQosC,
		m.livelinessLostC,
		m.publicationMatchedG,
		m.requestedDeadlineMissedC,
		m.requestedIncompatibleQosC,
		m.sampleLostC,
		m.sampleRejectedC,
		m.livelinessChangedG,
		m.subscriptionMatchedG,
		m.historyCacheInstanceGauge,
		m.historyCacheSampleGauge,
		m.entityGraphRebuildTotal,
		m.entityGraphRebuildGauge,
	)
}

// SetBuildInfo records the build identity once at startup.
func (m *Metrics) SetBuildInfo(branch, revision, version string) {
	m.buildInfoGauge.WithLabelValues(branch, revision, version).Set(1)
}

func labels(k EndpointKey) []string {
	return []string{strconv.FormatUint(uint64(k.Domain), 10), k.Topic, k.Entity}
}

// OfferedDeadlineMissed increments the writer-side deadline-missed counter.
func (m *Metrics) OfferedDeadlineMissed(k EndpointKey) {
	m.offeredDeadlineMissedC.WithLabelValues(labels(k)...).Inc()
}

// OfferedIncompatibleQos increments the writer-side incompatible-QoS counter
// for the named failing policy.
func (m *Metrics) OfferedIncompatibleQos(k EndpointKey, policy string) {
	m.offeredIncompatibleQosC.WithLabelValues(append(labels(k), policy)...).Inc()
}

// LivelinessLost increments the writer-side liveliness-lost counter.
func (m *Metrics) LivelinessLost(k EndpointKey) {
	m.livelinessLostC.WithLabelValues(labels(k)...).Inc()
}

// SetPublicationMatched sets the writer's current matched-reader count.
func (m *Metrics) SetPublicationMatched(k EndpointKey, n int) {
	m.publicationMatchedG.WithLabelValues(labels(k)...).Set(float64(n))
}

// RequestedDeadlineMissed increments the reader-side deadline-missed counter.
func (m *Metrics) RequestedDeadlineMissed(k EndpointKey) {
	m.requestedDeadlineMissedC.WithLabelValues(labels(k)...).Inc()
}

// RequestedIncompatibleQos increments the reader-side incompatible-QoS
// counter for the named failing policy.
func (m *Metrics) RequestedIncompatibleQos(k EndpointKey, policy string) {
	m.requestedIncompatibleQosC.WithLabelValues(append(labels(k), policy)...).Inc()
}

// SampleLost increments the reader-side sample-lost counter.
func (m *Metrics) SampleLost(k EndpointKey) {
	m.sampleLostC.WithLabelValues(labels(k)...).Inc()
}

// SampleRejected increments the reader-side sample-rejected counter for
// the given rejection reason (instances_limit, samples_limit,
// samples_per_instance_limit).
func (m *Metrics) SampleRejected(k EndpointKey, reason string) {
	m.sampleRejectedC.WithLabelValues(append(labels(k), reason)...).Inc()
}

// SetLivelinessChanged sets the reader's current alive-writer count.
func (m *Metrics) SetLivelinessChanged(k EndpointKey, n int) {
	m.livelinessChangedG.WithLabelValues(labels(k)...).Set(float64(n))
}

// SetSubscriptionMatched sets the reader's current matched-writer count.
func (m *Metrics) SetSubscriptionMatched(k EndpointKey, n int) {
	m.subscriptionMatchedG.WithLabelValues(labels(k)...).Set(float64(n))
}

// SetHistoryCacheSize records the instance and sample counts currently
// held by one endpoint's history cache.
func (m *Metrics) SetHistoryCacheSize(k EndpointKey, instances, samples int) {
	l := labels(k)
	m.historyCacheInstanceGauge.WithLabelValues(l...).Set(float64(instances))
	m.historyCacheSampleGauge.WithLabelValues(l...).Set(float64(samples))
}

// EntityGraphRebuilt records that the entity graph processed a
// discovery update at the given time.
func (m *Metrics) EntityGraphRebuilt(ts time.Time) {
	m.entityGraphRebuildTotal.Inc()
	m.entityGraphRebuildGauge.Set(float64(ts.Unix()))
}

// Handler returns an http.Handler serving the registry in the
// Prometheus exposition format.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
