// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter exposes metrics via HTTP on the daemon's metrics address.
type Exporter struct {
	server    *http.Server
	startTime time.Time
}

// NewExporter creates a metrics exporter listening on addr.
func NewExporter(addr string) *Exporter {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &Exporter{
		server:    &http.Server{Addr: addr, Handler: mux},
		startTime: time.Now(),
	}
}

// Start serves metrics until Stop is called. It also runs the uptime
// collector loop.
func (e *Exporter) Start() error {
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			Uptime.Set(time.Since(e.startTime).Seconds())
		}
	}()
	return e.server.ListenAndServe()
}

// Stop closes the exporter's HTTP server.
func (e *Exporter) Stop() error {
	return e.server.Close()
}
