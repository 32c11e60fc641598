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
	"encoding/json"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// JSONExporter serves a Counters snapshot as JSON, the monitoring-port
// shape cmd/trdpd exposes alongside the Prometheus exporter.
type JSONExporter struct {
	counters *Counters
}

// NewJSONExporter wraps counters for HTTP export.
func NewJSONExporter(counters *Counters) *JSONExporter {
	return &JSONExporter{counters: counters}
}

// Handler returns the http.Handler to mount at e.g. "/counters".
func (e *JSONExporter) Handler() http.Handler {
	return http.HandlerFunc(e.handleRequest)
}

// Start runs a standalone HTTP server serving counters at "/counters" on
// monitoringPort. It blocks; callers typically run it in a goroutine.
func (e *JSONExporter) Start(monitoringPort int) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/counters", e.handleRequest)
	addr := fmt.Sprintf(":%d", monitoringPort)
	log.Infof("trdpstats: starting JSON counters server on %s", addr)
	return http.ListenAndServe(addr, mux)
}

func (e *JSONExporter) handleRequest(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(e.counters.Snapshot()); err != nil {
		log.Errorf("trdpstats: encoding counters: %v", err)
	}
}
