package provider

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/azure/carbon-dashboard/internal/metrics"
	"github.com/azure/carbon-dashboard/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// MockOptions controls the simulated transport of a MockProvider
type MockOptions struct {
	MinLatency  time.Duration
	MaxLatency  time.Duration
	FailureRate float64 // probability that a single write fails, 0..1
	RandSeed    int64   // 0 seeds from the clock
}

// DefaultMockOptions mirrors the reference behavior: 200-800ms per call, 15% write failures
func DefaultMockOptions() MockOptions {
	return MockOptions{
		MinLatency:  200 * time.Millisecond,
		MaxLatency:  800 * time.Millisecond,
		FailureRate: 0.15,
	}
}

// MockProvider is an in-process data source holding its collections for the
// process lifetime and simulating latency and transient write failures.
type MockProvider struct {
	opts MockOptions

	mu        sync.RWMutex
	countries []models.Country
	companies []models.Company
	posts     []models.Post

	randMu sync.Mutex
	rand   *rand.Rand

	newID func() string
}

// Ensure MockProvider implements Provider
var _ Provider = (*MockProvider)(nil)

// NewMockProvider creates a mock provider seeded with a copy of seed
func NewMockProvider(seed Seed, opts MockOptions) *MockProvider {
	if opts.MaxLatency < opts.MinLatency {
		opts.MaxLatency = opts.MinLatency
	}
	randSeed := opts.RandSeed
	if randSeed == 0 {
		randSeed = time.Now().UnixNano()
	}

	p := &MockProvider{
		opts:      opts,
		countries: append([]models.Country(nil), seed.Countries...),
		companies: cloneCompanies(seed.Companies),
		posts:     append([]models.Post(nil), seed.Posts...),
		rand:      rand.New(rand.NewSource(randSeed)),
		newID:     uuid.NewString,
	}
	return p
}

// delay waits for a random latency in [MinLatency, MaxLatency] or until ctx is done
func (p *MockProvider) delay(ctx context.Context) error {
	d := p.opts.MinLatency
	if span := p.opts.MaxLatency - p.opts.MinLatency; span > 0 {
		p.randMu.Lock()
		d += time.Duration(p.rand.Int63n(int64(span)))
		p.randMu.Unlock()
	}
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *MockProvider) maybeFail() bool {
	if p.opts.FailureRate <= 0 {
		return false
	}
	p.randMu.Lock()
	defer p.randMu.Unlock()
	return p.rand.Float64() < p.opts.FailureRate
}

func (p *MockProvider) FetchCountries(ctx context.Context) ([]models.Country, error) {
	if err := p.delay(ctx); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]models.Country(nil), p.countries...), nil
}

func (p *MockProvider) FetchCompanies(ctx context.Context) ([]models.Company, error) {
	if err := p.delay(ctx); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return cloneCompanies(p.companies), nil
}

func (p *MockProvider) FetchCompanyByID(ctx context.Context, id string) (*models.Company, error) {
	if err := p.delay(ctx); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, c := range p.companies {
		if c.ID == id {
			found := c.Clone()
			return &found, nil
		}
	}
	return nil, nil
}

func (p *MockProvider) FetchCompaniesByCountry(ctx context.Context, code string) ([]models.Company, error) {
	if err := p.delay(ctx); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []models.Company
	for _, c := range p.companies {
		if c.Country == code {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

func (p *MockProvider) FetchPosts(ctx context.Context) ([]models.Post, error) {
	if err := p.delay(ctx); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]models.Post(nil), p.posts...), nil
}

func (p *MockProvider) FetchPostsByCompany(ctx context.Context, companyID string) ([]models.Post, error) {
	if err := p.delay(ctx); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []models.Post
	for _, post := range p.posts {
		if post.ResourceUID == companyID {
			out = append(out, post)
		}
	}
	return out, nil
}

func (p *MockProvider) CreateOrUpdatePost(ctx context.Context, input models.PostInput) (models.Post, error) {
	if err := p.delay(ctx); err != nil {
		return models.Post{}, err
	}
	if p.maybeFail() {
		return models.Post{}, fmt.Errorf("%w: failed to save post, please try again", ErrTransientWrite)
	}

	post := models.Post{
		ID:          input.ID,
		Title:       input.Title,
		ResourceUID: input.ResourceUID,
		DateTime:    input.DateTime,
		Content:     input.Content,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if post.ID != "" {
		for i := range p.posts {
			if p.posts[i].ID == post.ID {
				p.posts[i] = post
				logrus.Debugf("Mock provider updated post %s", post.ID)
				return post, nil
			}
		}
	}

	// Unknown or missing ids create a new post
	post.ID = p.newID()
	p.posts = append(p.posts, post)
	logrus.Debugf("Mock provider created post %s", post.ID)
	return post, nil
}

func (p *MockProvider) DeletePost(ctx context.Context, id string) (bool, error) {
	if err := p.delay(ctx); err != nil {
		return false, err
	}
	if p.maybeFail() {
		return false, fmt.Errorf("%w: failed to delete post, please try again", ErrTransientWrite)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	kept := make([]models.Post, 0, len(p.posts))
	for _, post := range p.posts {
		if post.ID != id {
			kept = append(kept, post)
		}
	}
	removed := len(kept) < len(p.posts)
	p.posts = kept
	return removed, nil
}

func (p *MockProvider) FetchDashboardMetrics(ctx context.Context) (models.DashboardMetrics, error) {
	if err := p.delay(ctx); err != nil {
		return models.DashboardMetrics{}, err
	}
	p.mu.RLock()
	companies := cloneCompanies(p.companies)
	p.mu.RUnlock()

	m, err := metrics.Compute(companies)
	if err != nil {
		return models.DashboardMetrics{}, fmt.Errorf("failed to compute dashboard metrics: %w", err)
	}
	return m, nil
}

func cloneCompanies(in []models.Company) []models.Company {
	if in == nil {
		return nil
	}
	out := make([]models.Company, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}
