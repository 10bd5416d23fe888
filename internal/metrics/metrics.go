// Package metrics exposes run progress as Prometheus gauges. It
// is an optional peripheral surface: a run started without
// --metrics-addr never touches this package. The gauges change only
// through SetWorkerProgress and SetCurrentIOPS, and nothing in this
// module calls either, so a served exporter reports no run progress.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter serves a /metrics endpoint for per-worker totals and current
// IOPS, as last set through its setters.
type Exporter struct {
	registry *prometheus.Registry
	server   *http.Server

	filesDone   *prometheus.GaugeVec
	recordsDone *prometheus.GaugeVec
	currentIOPS prometheus.Gauge
}

// New builds an Exporter registered under its own registry, so it never
// collides with the default global one if the host process embeds other
// instrumented libraries.
func New() *Exporter {
	reg := prometheus.NewRegistry()
	e := &Exporter{
		registry: reg,
		filesDone: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "smallfile",
			Name:      "worker_files_done",
			Help:      "Files completed by this worker so far in the current run.",
		}, []string{"worker_id"}),
		recordsDone: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "smallfile",
			Name:      "worker_records_done",
			Help:      "Records completed by this worker so far in the current run.",
		}, []string{"worker_id"}),
		currentIOPS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "smallfile",
			Name:      "current_iops",
			Help:      "Instantaneous records/sec averaged over the last sampling interval.",
		}),
	}
	reg.MustRegister(e.filesDone, e.recordsDone, e.currentIOPS)
	return e
}

// SetWorkerProgress records the latest counters for one worker; safe to
// call from any goroutine, any number of times.
func (e *Exporter) SetWorkerProgress(workerID string, files, records int64) {
	e.filesDone.WithLabelValues(workerID).Set(float64(files))
	e.recordsDone.WithLabelValues(workerID).Set(float64(records))
}

// SetCurrentIOPS updates the cluster-wide instantaneous rate gauge.
func (e *Exporter) SetCurrentIOPS(iops float64) {
	e.currentIOPS.Set(iops)
}

// Serve starts the HTTP listener on addr and blocks until ctx is
// cancelled, then shuts the server down gracefully.
func (e *Exporter) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{}))
	e.server = &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		if err := e.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = e.server.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
