package monitor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const namespace = "teilog"

// Metrics holds the logger's collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	SamplesWritten  prometheus.Counter
	ReadFailures    *prometheus.CounterVec // instrument, quantity, reason
	FileRotations   *prometheus.CounterVec // reason
	FlushFailures   prometheus.Counter
	InstrumentBound *prometheus.GaugeVec // instrument
	LastSample      prometheus.Gauge
	ClockShift      prometheus.Gauge
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		SamplesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_written_total",
			Help:      "Data rows written to log files.",
		}),
		ReadFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_failures_total",
			Help:      "Readings recorded as NaN, by cause.",
		}, []string{"instrument", "quantity", "reason"}),
		FileRotations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "file_rotations_total",
			Help:      "Log files closed, by cause.",
		}, []string{"reason"}),
		FlushFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flush_failures_total",
			Help:      "Failed flushes of the open log file.",
		}),
		InstrumentBound: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "instrument_bound",
			Help:      "1 if the instrument was found on a serial port.",
		}, []string{"instrument"}),
		LastSample: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_sample_timestamp_seconds",
			Help:      "Predicted timestamp of the last row written.",
		}),
		ClockShift: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clock_shift_seconds",
			Help:      "Wall clock minus predicted timestamp of the last row.",
		}),
	}
	m.Registry.MustRegister(
		m.SamplesWritten,
		m.ReadFailures,
		m.FileRotations,
		m.FlushFailures,
		m.InstrumentBound,
		m.LastSample,
		m.ClockShift,
	)
	return m
}

// Handler serves /metrics and /health.
func (m *Metrics) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// Serve runs the metrics server on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, log logrus.FieldLogger) {
	srv := &http.Server{Addr: addr, Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	log.Infof("metrics server listening on %s", addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics server: %v", err)
		}
	}()
}
