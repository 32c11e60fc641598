/*
Copyright The TRDP-Go Authors.

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

package trdpstats

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// PrometheusExporter periodically re-snapshots a Counters into a
// registry of gauges, one per counter key, and serves them at "/metrics".
// Unlike the teacher's exporter, which scrapes a separate process's HTTP
// counters endpoint, this one reads counters directly in-process since
// cmd/trdpd owns both the session and its exporter.
type PrometheusExporter struct {
	registry *prometheus.Registry
	counters *Counters
	interval time.Duration

	stop chan struct{}
}

// NewPrometheusExporter returns an exporter that re-snapshots counters
// every scrapeInterval.
func NewPrometheusExporter(counters *Counters, scrapeInterval time.Duration) *PrometheusExporter {
	return &PrometheusExporter{
		registry: prometheus.NewRegistry(),
		counters: counters,
		interval: scrapeInterval,
		stop:     make(chan struct{}),
	}
}

// Handler returns the http.Handler to mount at e.g. "/metrics".
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Run re-snapshots counters into gauges every scrapeInterval until Stop
// is called. Callers typically run it in a goroutine.
func (e *PrometheusExporter) Run() {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	e.scrape()
	for {
		select {
		case <-ticker.C:
			e.scrape()
		case <-e.stop:
			return
		}
	}
}

// Stop ends a running Run loop.
func (e *PrometheusExporter) Stop() {
	close(e.stop)
}

func (e *PrometheusExporter) scrape() {
	for key, val := range e.counters.Snapshot() {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Name: flattenKey(key),
			Help: key,
		})
		if err := e.registry.Register(g); err != nil {
			are := &prometheus.AlreadyRegisteredError{}
			if errors.As(err, are) {
				g = are.ExistingCollector.(prometheus.Gauge)
			} else {
				log.Errorf("trdpstats: registering metric %s: %v", key, err)
				continue
			}
		}
		g.Set(float64(val))
	}
}

// Start runs a standalone HTTP server serving "/metrics" on listenPort,
// starting the background scrape loop alongside it. It blocks.
func (e *PrometheusExporter) Start(listenPort int) error {
	go e.Run()
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	addr := fmt.Sprintf(":%d", listenPort)
	log.Infof("trdpstats: starting prometheus server on %s", addr)
	return http.ListenAndServe(addr, mux)
}

func flattenKey(key string) string {
	r := strings.NewReplacer(" ", "_", ".", "_", "-", "_", "=", "_", "/", "_")
	return r.Replace(key)
}
