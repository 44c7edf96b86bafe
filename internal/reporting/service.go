// Package reporting turns store state into digests and trend alerts.
package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/azure/carbon-dashboard/internal/loader"
	"github.com/azure/carbon-dashboard/internal/metrics"
	"github.com/azure/carbon-dashboard/internal/models"
	"github.com/azure/carbon-dashboard/internal/notifications"
	"github.com/azure/carbon-dashboard/internal/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Loader runs a dashboard load cycle
type Loader interface {
	LoadAll(ctx context.Context) loader.Result
}

// Exporter stores a CSV rendition of the companies and drops old renditions
type Exporter interface {
	Export(ctx context.Context, companies []models.Company, companyID string) (string, error)
	Prune(ctx context.Context, keep int) (int, error)
}

// Options tune the reporting service
type Options struct {
	Period         string  // label used in digests, e.g. "daily"
	TrendThreshold float64 // alert when the trend rises above this percentage
	KeepExports    int     // newest exports kept after a digest, 0 keeps all
}

// Service builds digests from the store and raises trend alerts
type Service struct {
	opts     Options
	store    *store.Store
	loader   Loader
	exporter Exporter
	notifier notifications.NotificationInterface
	now      func() time.Time

	mu      sync.RWMutex
	stats   *Stats
	alerted bool // the trend was above the threshold at the last check
}

// Stats holds reporting statistics
type Stats struct {
	Refreshes      int       `json:"refreshes"`
	LastRefresh    time.Time `json:"last_refresh"`
	Digests        int       `json:"digests"`
	LastDigest     time.Time `json:"last_digest"`
	LastExport     string    `json:"last_export,omitempty"`
	ExportsPruned  int       `json:"exports_pruned"`
	AlertsSent     int       `json:"alerts_sent"`
	ErrorCount     int       `json:"error_count"`
	LastError      string    `json:"last_error,omitempty"`
	LastTrend      float64   `json:"last_trend"`
	TrendThreshold float64   `json:"trend_threshold"`
}

// NewService creates a reporting service. exporter may be nil to skip CSV exports.
func NewService(opts Options, s *store.Store, l Loader, exporter Exporter, notifier notifications.NotificationInterface) *Service {
	if opts.Period == "" {
		opts.Period = "daily"
	}
	return &Service{
		opts:     opts,
		store:    s,
		loader:   l,
		exporter: exporter,
		notifier: notifier,
		now:      time.Now,
		stats:    &Stats{TrendThreshold: opts.TrendThreshold},
	}
}

// Refresh reloads the dashboard and then checks the trend. The load error is
// returned; alert delivery failures are logged and counted.
func (s *Service) Refresh(ctx context.Context) error {
	result := s.loader.LoadAll(ctx)

	s.mu.Lock()
	s.stats.Refreshes++
	s.stats.LastRefresh = s.now()
	s.mu.Unlock()

	if result.Superseded {
		logrus.Infof("Refresh cycle %d was superseded, skipping trend check", result.Generation)
		return nil
	}

	if _, err := s.CheckTrend(ctx); err != nil {
		s.recordError(err)
		logrus.Errorf("Trend check failed: %v", err)
	}

	if result.Err != nil {
		s.recordError(result.Err)
		return fmt.Errorf("dashboard refresh failed: %w", result.Err)
	}
	return nil
}

// GenerateReport builds a digest from the current store contents
func (s *Service) GenerateReport() *models.Report {
	snap := s.store.Snapshot()
	companies := s.store.Companies()

	report := &models.Report{
		GeneratedAt: s.now().UTC(),
		Period:      s.opts.Period,
		Metrics:     snap.Metrics,
		Companies:   metrics.CompareCompanies(companies),
		TotalPosts:  snap.Posts,
		Statuses:    snap.Loading,
		Error:       snap.Error,
		Summary:     make(map[string]interface{}),
	}

	if m := snap.Metrics; m != nil {
		report.Summary["trend_level"] = string(metrics.TrendLevelOf(m.TrendPercentage))
		report.Summary["top_emitter"] = m.TopEmittingCompany
	}
	report.Summary["countries"] = snap.Countries

	return report
}

// RunDigest exports the current data and sends the digest. An export failure
// is noted in the digest rather than stopping it.
func (s *Service) RunDigest(ctx context.Context) error {
	start := s.now()
	report := s.GenerateReport()

	if s.exporter != nil {
		if len(s.store.Companies()) == 0 {
			logrus.Warn("No companies loaded, skipping CSV export")
		} else if name, err := s.exporter.Export(ctx, s.store.Companies(), ""); err != nil {
			s.recordError(err)
			logrus.Errorf("Failed to export digest data: %v", err)
			report.Summary["export_error"] = err.Error()
		} else {
			report.Summary["export"] = name
			s.mu.Lock()
			s.stats.LastExport = name
			s.mu.Unlock()

			if removed, err := s.exporter.Prune(ctx, s.opts.KeepExports); err != nil {
				s.recordError(err)
				logrus.Errorf("Failed to prune old exports: %v", err)
			} else if removed > 0 {
				s.mu.Lock()
				s.stats.ExportsPruned += removed
				s.mu.Unlock()
			}
		}
	}

	if err := s.notifier.SendReport(ctx, report); err != nil {
		s.recordError(err)
		return fmt.Errorf("failed to send digest: %w", err)
	}

	s.mu.Lock()
	s.stats.Digests++
	s.stats.LastDigest = start
	s.mu.Unlock()

	logrus.Infof("Digest sent in %v", s.now().Sub(start))
	return nil
}

// CheckTrend sends an alert when the trend rises above the threshold. Only the
// crossing is reported; the alert re-arms once the trend falls back.
func (s *Service) CheckTrend(ctx context.Context) (bool, error) {
	m := s.store.Metrics()
	if m == nil {
		return false, nil
	}

	s.mu.Lock()
	s.stats.LastTrend = m.TrendPercentage
	above := m.TrendPercentage > s.opts.TrendThreshold
	wasAbove := s.alerted
	s.alerted = above
	s.mu.Unlock()

	if !above || wasAbove {
		return false, nil
	}

	alert := &models.Alert{
		ID:    uuid.NewString(),
		Type:  "warning",
		Title: "Emissions trend rising",
		Message: fmt.Sprintf("Emissions changed %s over the last three months (threshold %s). Top emitter: %s",
			metrics.FormatPercentage(m.TrendPercentage), metrics.FormatPercentage(s.opts.TrendThreshold), m.TopEmittingCompany),
		Trend:     m.TrendPercentage,
		CreatedAt: s.now().UTC(),
	}

	logrus.Warnf("Trend %.2f%% is above threshold %.2f%%, sending alert", m.TrendPercentage, s.opts.TrendThreshold)
	if err := s.notifier.SendAlert(ctx, alert); err != nil {
		// Re-arm so the next check tries again
		s.mu.Lock()
		s.alerted = false
		s.mu.Unlock()
		return false, fmt.Errorf("failed to send trend alert: %w", err)
	}

	s.mu.Lock()
	s.stats.AlertsSent++
	s.mu.Unlock()
	return true, nil
}

func (s *Service) recordError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.ErrorCount++
	s.stats.LastError = err.Error()
}

// GetMetrics returns current reporting statistics as JSON
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.stats, "", "  ")
	return string(data)
}
