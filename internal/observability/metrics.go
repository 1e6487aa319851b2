// Package observability collects run metrics and exports them once the
// run is over.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/prometheus/common/expfmt"
	"github.com/prometheus/common/model"

	"github.com/tphakala/activity-loader/internal/conf"
	"github.com/tphakala/activity-loader/internal/errors"
	"github.com/tphakala/activity-loader/internal/httpclient"
	"github.com/tphakala/activity-loader/internal/logger"
	"github.com/tphakala/activity-loader/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry
	Loader   *metrics.LoaderMetrics
}

// NewMetrics creates a new instance of Metrics on a private registry.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	loaderMetrics, err := metrics.NewLoaderMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create loader metrics: %w", err)
	}

	return &Metrics{
		registry: registry,
		Loader:   loaderMetrics,
	}, nil
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Export writes the registry to the configured textfile and pushes it to
// the configured Pushgateway. Both targets are attempted and their errors
// joined.
//
// The last success time of a failed run is not known to this process. The
// textfile carries it over from the file being replaced, and the push uses
// POST so the value already held by the Pushgateway group is kept.
func (m *Metrics) Export(ctx context.Context, cfg *conf.MetricsSettings, log logger.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	log = log.Module("metrics")

	var errs []error

	if cfg.TextfilePath != "" {
		m.seedLastSuccess(cfg.TextfilePath, log)
		if err := m.writeTextfile(cfg.TextfilePath); err != nil {
			errs = append(errs, err)
		} else {
			log.Debug("Metrics written", logger.String("path", cfg.TextfilePath))
		}
	}

	if cfg.PushgatewayURL != "" {
		client := httpclient.New(nil)
		defer client.Close()
		client.SetAfterResponseHook(func(req *http.Request, resp *http.Response, err error) {
			if err == nil {
				log.Debug("Pushgateway response",
					logger.String("method", req.Method),
					logger.Int("status", resp.StatusCode))
			}
		})

		err := push.New(cfg.PushgatewayURL, cfg.Job).
			Client(client).
			Gatherer(m.registry).
			AddContext(ctx)
		if err != nil {
			errs = append(errs, errors.New(fmt.Errorf("failed to push metrics: %w", err)).
				Component("metrics").
				Context("url", errors.ScrubMessage(cfg.PushgatewayURL)).
				Build())
		} else {
			log.Debug("Metrics pushed", logger.String("job", cfg.Job))
		}
	}

	return errors.Join(errs...)
}

// seedLastSuccess reads the last success time from an earlier textfile when
// this run has none of its own. A missing or unreadable file is not an error.
func (m *Metrics) seedLastSuccess(path string, log logger.Logger) {
	if m.Loader.HasLastSuccess() {
		return
	}
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer func() { _ = f.Close() }()

	parser := expfmt.NewTextParser(model.UTF8Validation)
	families, err := parser.TextToMetricFamilies(f)
	if err != nil {
		log.Warn("Ignoring unreadable metrics textfile",
			logger.String("path", path),
			logger.Error(err))
		return
	}
	family, ok := families[metrics.LastSuccessMetric]
	if !ok || len(family.GetMetric()) == 0 {
		return
	}
	m.Loader.SeedLastSuccess(family.GetMetric()[0].GetGauge().GetValue())
}

// writeTextfile writes the node-exporter textfile. WriteToTextfile renames
// a temporary file into place so the collector never reads a partial file.
func (m *Metrics) writeTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.FileError(fmt.Errorf("failed to create metrics directory: %w", err), dir, 0)
		}
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.FileError(fmt.Errorf("failed to write metrics textfile: %w", err), path, 0)
	}
	return nil
}
