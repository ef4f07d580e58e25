// Package metrics counts backup and restore runs for a Prometheus textfile
// collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Exporter interface {
	Export() error
}

const namespace = "aletheia"

// Metrics owns a registry so that each engine can be observed in isolation.
type Metrics struct {
	Registry *prometheus.Registry

	backupRuns     *prometheus.CounterVec
	restoreRuns    *prometheus.CounterVec
	archiveBytes   *prometheus.GaugeVec
	backupDuration prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		backupRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backup_runs_total",
				Help:      "The total backup runs. Broken down by outcome.",
			},
			[]string{"outcome"},
		),

		restoreRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "restore_runs_total",
				Help:      "The total restore runs. Broken down by result.",
			},
			[]string{"result"},
		),

		archiveBytes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "archive_bytes",
				Help:      "Size of the last written archive, in bytes.",
			},
			[]string{"game"},
		),

		backupDuration: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backup_duration_seconds_total",
				Help:      "The total time spent backing up.",
			},
		),
	}

	m.Registry.MustRegister(m.backupRuns, m.restoreRuns, m.archiveBytes, m.backupDuration)
	return m
}

func sinceInSeconds(start time.Time) float64 {
	return time.Since(start).Seconds()
}

// BackupRun records one backup with its outcome ("written", "unchanged",
// "nothing_to_back_up" or "failed").
func (m *Metrics) BackupRun(outcome string, start time.Time) {
	m.backupRuns.WithLabelValues(outcome).Inc()
	m.backupDuration.Add(sinceInSeconds(start))
}

// RestoreRun records one restore with its result ("restored" or "failed").
func (m *Metrics) RestoreRun(result string) {
	m.restoreRuns.WithLabelValues(result).Inc()
}

func (m *Metrics) ArchiveBytes(game string, size int64) {
	m.archiveBytes.WithLabelValues(game).Set(float64(size))
}
