// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// StrandSource is the subset of *strand.Strand the scheduler collector
// scrapes on every Prometheus collection pass. Defined here rather than
// imported from pkg/strand to avoid a pkg/metrics <-> pkg/strand import
// cycle (strand's own tests otherwise never need to know about metrics).
type StrandSource interface {
	Name() string
	ReadyLen() int
	BlockedLen() int
	FiberPoolLen() int
}

// ThreadSource is the subset of *thread.Thread the scheduler collector
// scrapes for park/notify counters.
type ThreadSource interface {
	ThreadID() string
	ParkCount() int64
	NotifyCount() int64
}

// SchedulerCollector is a pull-based prometheus.Collector exposing the
// runtime's live scheduler gauges: ready-queue depth, blocked-context
// count, and fiber pool size per strand, plus park/notify counters per
// thread.
type SchedulerCollector struct {
	mu      sync.RWMutex
	strands []StrandSource
	threads []ThreadSource

	readyDepth   *prometheus.Desc
	blockedCount *prometheus.Desc
	fiberPool    *prometheus.Desc
	parkCount    *prometheus.Desc
	notifyCount  *prometheus.Desc
}

// NewSchedulerCollector returns a collector with no registered sources;
// use AddStrand/AddThread to register the strands and threads a running
// Runtime hosts.
func NewSchedulerCollector() *SchedulerCollector {
	return &SchedulerCollector{
		readyDepth: prometheus.NewDesc(
			"strand_ready_queue_depth",
			"Number of fibers on a strand's ready deque awaiting dispatch.",
			[]string{"strand"}, nil,
		),
		blockedCount: prometheus.NewDesc(
			"strand_blocked_context_count",
			"Number of contexts parked in a strand's blocked table.",
			[]string{"strand"}, nil,
		),
		fiberPool: prometheus.NewDesc(
			"strand_fiber_pool_size",
			"Number of retired fibers available for reuse on a strand.",
			[]string{"strand"}, nil,
		),
		parkCount: prometheus.NewDesc(
			"thread_park_total",
			"Number of times a thread's dispatch loop parked with no work.",
			[]string{"thread"}, nil,
		),
		notifyCount: prometheus.NewDesc(
			"thread_notify_total",
			"Number of times a poster observed a thread's 0->1 notify gate.",
			[]string{"thread"}, nil,
		),
	}
}

// AddStrand registers s as a source this collector scrapes on every
// Collect call.
func (c *SchedulerCollector) AddStrand(s StrandSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.strands = append(c.strands, s)
}

// AddThread registers t as a source this collector scrapes on every
// Collect call.
func (c *SchedulerCollector) AddThread(t ThreadSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.threads = append(c.threads, t)
}

// Describe implements prometheus.Collector.
func (c *SchedulerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.readyDepth
	ch <- c.blockedCount
	ch <- c.fiberPool
	ch <- c.parkCount
	ch <- c.notifyCount
}

// Collect implements prometheus.Collector, scraping every registered
// strand and thread fresh on each call (Prometheus collectors are
// pull-based: there is no polling loop here, scrape cadence is whatever
// the scrape target configures).
func (c *SchedulerCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, s := range c.strands {
		ch <- prometheus.MustNewConstMetric(c.readyDepth, prometheus.GaugeValue, float64(s.ReadyLen()), s.Name())
		ch <- prometheus.MustNewConstMetric(c.blockedCount, prometheus.GaugeValue, float64(s.BlockedLen()), s.Name())
		ch <- prometheus.MustNewConstMetric(c.fiberPool, prometheus.GaugeValue, float64(s.FiberPoolLen()), s.Name())
	}
	for _, t := range c.threads {
		ch <- prometheus.MustNewConstMetric(c.parkCount, prometheus.CounterValue, float64(t.ParkCount()), t.ThreadID())
		ch <- prometheus.MustNewConstMetric(c.notifyCount, prometheus.CounterValue, float64(t.NotifyCount()), t.ThreadID())
	}
}
