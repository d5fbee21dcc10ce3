/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package stats

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

const metricPrefix = "timesync_"

// Collector exposes Stats counters as prometheus gauges, read at scrape time
type Collector struct {
	stats *Stats
}

// NewCollector returns new Collector
func NewCollector(s *Stats) *Collector {
	return &Collector{stats: s}
}

// Describe implements prometheus.Collector. Set of counters is not known upfront,
// so we send no descriptors which makes this an unchecked collector.
func (c *Collector) Describe(chan<- *prometheus.Desc) {}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	counters := c.stats.Get()
	for _, key := range c.stats.Keys() {
		val, found := counters[key]
		if !found {
			continue
		}
		desc := prometheus.NewDesc(metricPrefix+flattenKey(key), key, nil, nil)
		m, err := prometheus.NewConstMetric(desc, prometheus.GaugeValue, float64(val))
		if err != nil {
			log.Errorf("failed to export metric %s: %v", key, err)
			continue
		}
		ch <- m
	}
}

func flattenKey(key string) string {
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, ".", "_")
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, "=", "_")
	key = strings.ReplaceAll(key, "/", "_")
	return key
}
