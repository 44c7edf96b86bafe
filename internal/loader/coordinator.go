// Package loader runs dashboard load cycles: four independent resource fetches
// joined into one aggregated outcome.
package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/azure/carbon-dashboard/internal/models"
	"github.com/azure/carbon-dashboard/internal/provider"
	"github.com/azure/carbon-dashboard/internal/store"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// GenericLoadError is surfaced when a failure carries no message of its own
const GenericLoadError = "failed to load dashboard data"

// Coordinator loads companies, posts, countries and metrics into the store
type Coordinator struct {
	provider provider.Provider
	store    *store.Store
	timeout  time.Duration
	stats    *Stats
	mu       sync.RWMutex
}

// Stats holds load cycle statistics
type Stats struct {
	Cycles          int                     `json:"cycles"`
	LastRun         time.Time               `json:"last_run"`
	LastRunDuration string                  `json:"last_run_duration"`
	LastError       string                  `json:"last_error,omitempty"`
	FailureCounts   map[models.Resource]int `json:"failure_counts"`
	StaleDiscarded  int                     `json:"stale_discarded"`
}

// Result describes one settled load cycle
type Result struct {
	Generation uint64
	Failures   map[models.Resource]error
	// Err is the first failure observed, nil when every fetch succeeded
	Err error
	// Superseded is set when a newer cycle started before this one settled
	Superseded bool
	Duration   time.Duration
}

// OK reports whether every fetch succeeded and the cycle was still current when it settled
func (r Result) OK() bool {
	return len(r.Failures) == 0 && !r.Superseded
}

// NewCoordinator creates a coordinator. A positive timeout bounds every provider call.
func NewCoordinator(p provider.Provider, s *store.Store, timeout time.Duration) *Coordinator {
	return &Coordinator{
		provider: p,
		store:    s,
		timeout:  timeout,
		stats: &Stats{
			FailureCounts: make(map[models.Resource]int),
		},
	}
}

// LoadAll runs a fresh load cycle and blocks until all four fetches settle.
// Overlapping calls are allowed; completions of a superseded cycle are discarded.
func (c *Coordinator) LoadAll(ctx context.Context) Result {
	start := time.Now()
	gen := c.store.BeginCycle()
	logrus.Infof("Starting load cycle %d", gen)

	loaders := map[models.Resource]func(context.Context) (bool, error){
		models.ResourceCompanies: func(ctx context.Context) (bool, error) {
			companies, err := c.provider.FetchCompanies(ctx)
			if err != nil {
				return false, err
			}
			return c.store.CommitCompanies(gen, companies), nil
		},
		models.ResourcePosts: func(ctx context.Context) (bool, error) {
			posts, err := c.provider.FetchPosts(ctx)
			if err != nil {
				return false, err
			}
			return c.store.CommitPosts(gen, posts), nil
		},
		models.ResourceCountries: func(ctx context.Context) (bool, error) {
			countries, err := c.provider.FetchCountries(ctx)
			if err != nil {
				return false, err
			}
			return c.store.CommitCountries(gen, countries), nil
		},
		models.ResourceMetrics: func(ctx context.Context) (bool, error) {
			m, err := c.provider.FetchDashboardMetrics(ctx)
			if err != nil {
				return false, err
			}
			return c.store.CommitMetrics(gen, m), nil
		},
	}

	var (
		mu        sync.Mutex
		failures  = make(map[models.Resource]error)
		firstErr  error
		discarded int
	)

	// Each fetch is isolated: the group never fails, so no fetch cancels another
	var g errgroup.Group
	for _, resource := range models.Resources {
		resource, load := resource, loaders[resource]
		g.Go(func() error {
			opCtx, cancel := c.withTimeout(ctx)
			defer cancel()

			applied, err := load(opCtx)
			if err != nil {
				err = describe(resource, err)
				applied = c.store.FailResource(gen, resource)
				logrus.Errorf("Error loading %s: %v", resource, err)
			} else {
				logrus.Debugf("Loaded %s for cycle %d", resource, gen)
			}

			mu.Lock()
			defer mu.Unlock()
			if !applied {
				discarded++
			}
			if err != nil {
				failures[resource] = err
				if firstErr == nil {
					firstErr = err
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	errMsg := ""
	if firstErr != nil {
		errMsg = firstErr.Error()
		if errMsg == "" {
			errMsg = GenericLoadError
		}
	}
	current := c.store.FinishCycle(gen, errMsg)

	result := Result{
		Generation: gen,
		Failures:   failures,
		Err:        firstErr,
		Superseded: !current,
		Duration:   time.Since(start),
	}
	c.updateStats(result, discarded)

	switch {
	case result.Superseded:
		logrus.Warnf("Load cycle %d was superseded, discarded %d stale completions", gen, discarded)
	case firstErr != nil:
		logrus.Errorf("Load cycle %d finished with %d failed resources in %v", gen, len(failures), result.Duration)
	default:
		logrus.Infof("Load cycle %d completed in %v", gen, result.Duration)
	}
	return result
}

// Retry re-runs the whole load cycle; there is no per-resource retry
func (c *Coordinator) Retry(ctx context.Context) Result {
	logrus.Info("Retrying dashboard load")
	return c.LoadAll(ctx)
}

// IsLoading reports whether any resource is loading
func (c *Coordinator) IsLoading() bool {
	return c.store.IsLoading()
}

// HasError reports whether any resource failed
func (c *Coordinator) HasError() bool {
	return c.store.HasError()
}

func (c *Coordinator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func describe(resource models.Resource, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("loading %s timed out: %w", resource, err)
	}
	return err
}

func (c *Coordinator) updateStats(result Result, discarded int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Cycles++
	c.stats.LastRun = time.Now()
	c.stats.LastRunDuration = result.Duration.String()
	c.stats.StaleDiscarded += discarded
	c.stats.LastError = ""
	if result.Err != nil {
		c.stats.LastError = result.Err.Error()
	}
	for resource := range result.Failures {
		c.stats.FailureCounts[resource]++
	}
}

// GetStats returns current load statistics as JSON
func (c *Coordinator) GetStats() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, _ := json.MarshalIndent(c.stats, "", "  ")
	return string(data)
}
