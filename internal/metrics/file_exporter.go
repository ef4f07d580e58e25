package metrics

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

type FileExporter struct {
	name     string
	registry *prometheus.Registry
}

func NewFileExporter(name string, m *Metrics) *FileExporter {
	return &FileExporter{
		name:     name,
		registry: m.Registry,
	}
}

// Export writes the registry in text format, replacing the file atomically.
func (exp *FileExporter) Export() error {
	return errors.Wrapf(prometheus.WriteToTextfile(exp.name, exp.registry), "export metrics to %s", exp.name)
}
