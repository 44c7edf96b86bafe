package loader

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/azure/carbon-dashboard/internal/models"
	"github.com/azure/carbon-dashboard/internal/provider"
	"github.com/azure/carbon-dashboard/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProvider is a mock implementation of the provider interface
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) FetchCountries(ctx context.Context) ([]models.Country, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Country), args.Error(1)
}

func (m *MockProvider) FetchCompanies(ctx context.Context) ([]models.Company, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Company), args.Error(1)
}

func (m *MockProvider) FetchCompanyByID(ctx context.Context, id string) (*models.Company, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*models.Company), args.Error(1)
}

func (m *MockProvider) FetchCompaniesByCountry(ctx context.Context, code string) ([]models.Company, error) {
	args := m.Called(ctx, code)
	return args.Get(0).([]models.Company), args.Error(1)
}

func (m *MockProvider) FetchPosts(ctx context.Context) ([]models.Post, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Post), args.Error(1)
}

func (m *MockProvider) FetchPostsByCompany(ctx context.Context, companyID string) ([]models.Post, error) {
	args := m.Called(ctx, companyID)
	return args.Get(0).([]models.Post), args.Error(1)
}

func (m *MockProvider) CreateOrUpdatePost(ctx context.Context, input models.PostInput) (models.Post, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(models.Post), args.Error(1)
}

func (m *MockProvider) DeletePost(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockProvider) FetchDashboardMetrics(ctx context.Context) (models.DashboardMetrics, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.DashboardMetrics), args.Error(1)
}

func healthyProvider() *MockProvider {
	p := &MockProvider{}
	p.On("FetchCompanies", mock.Anything).Return([]models.Company{{ID: "c1", Name: "Acme"}}, nil)
	p.On("FetchPosts", mock.Anything).Return([]models.Post{{ID: "p1", ResourceUID: "c1"}}, nil)
	p.On("FetchCountries", mock.Anything).Return([]models.Country{{Code: "US", Name: "United States"}}, nil)
	p.On("FetchDashboardMetrics", mock.Anything).Return(models.DashboardMetrics{TotalEmissions: 42, TotalCompanies: 1}, nil)
	return p
}

func TestLoadAll_Success(t *testing.T) {
	p := healthyProvider()
	s := store.New()
	c := NewCoordinator(p, s, time.Second)

	result := c.LoadAll(context.Background())

	assert.True(t, result.OK())
	assert.NoError(t, result.Err)
	for _, r := range models.Resources {
		assert.Equal(t, models.LoadingSuccess, s.LoadingState(r), string(r))
	}
	assert.False(t, c.IsLoading())
	assert.False(t, c.HasError())
	assert.Empty(t, s.Error())
	assert.Len(t, s.Companies(), 1)
	assert.Len(t, s.Posts(), 1)
	assert.Len(t, s.Countries(), 1)
	assert.Equal(t, int64(42), s.Metrics().TotalEmissions)
	p.AssertExpectations(t)
}

func TestLoadAll_FailureIsIsolated(t *testing.T) {
	p := &MockProvider{}
	p.On("FetchCompanies", mock.Anything).Return([]models.Company(nil), errors.New("companies service unavailable"))
	p.On("FetchPosts", mock.Anything).Return([]models.Post{{ID: "p1"}}, nil)
	p.On("FetchCountries", mock.Anything).Return([]models.Country{{Code: "US"}}, nil)
	p.On("FetchDashboardMetrics", mock.Anything).Return(models.DashboardMetrics{TotalCompanies: 1}, nil)

	s := store.New()
	c := NewCoordinator(p, s, time.Second)

	result := c.LoadAll(context.Background())

	assert.False(t, result.OK())
	assert.Contains(t, result.Failures, models.ResourceCompanies)
	assert.Len(t, result.Failures, 1)
	assert.True(t, c.HasError())
	assert.False(t, c.IsLoading())
	assert.Equal(t, "companies service unavailable", s.Error())

	assert.Equal(t, models.LoadingError, s.LoadingState(models.ResourceCompanies))
	assert.Empty(t, s.Companies())
	assert.Len(t, s.Posts(), 1)
	assert.Len(t, s.Countries(), 1)
	assert.NotNil(t, s.Metrics())
}

func TestLoadAll_FailureKeepsPriorData(t *testing.T) {
	s := store.New()
	s.SetCompanies([]models.Company{{ID: "previous"}})

	p := &MockProvider{}
	p.On("FetchCompanies", mock.Anything).Return([]models.Company(nil), errors.New("boom"))
	p.On("FetchPosts", mock.Anything).Return([]models.Post{}, nil)
	p.On("FetchCountries", mock.Anything).Return([]models.Country{}, nil)
	p.On("FetchDashboardMetrics", mock.Anything).Return(models.DashboardMetrics{}, nil)

	NewCoordinator(p, s, time.Second).LoadAll(context.Background())

	require.Len(t, s.Companies(), 1)
	assert.Equal(t, "previous", s.Companies()[0].ID)
}

func TestLoadAll_EmptyMessageFallsBackToGeneric(t *testing.T) {
	p := &MockProvider{}
	p.On("FetchCompanies", mock.Anything).Return([]models.Company{}, nil)
	p.On("FetchPosts", mock.Anything).Return([]models.Post(nil), errors.New(""))
	p.On("FetchCountries", mock.Anything).Return([]models.Country{}, nil)
	p.On("FetchDashboardMetrics", mock.Anything).Return(models.DashboardMetrics{}, nil)

	s := store.New()
	NewCoordinator(p, s, time.Second).LoadAll(context.Background())

	assert.Equal(t, GenericLoadError, s.Error())
}

func TestLoadAll_RetryClearsError(t *testing.T) {
	p := &MockProvider{}
	p.On("FetchCompanies", mock.Anything).Return([]models.Company(nil), errors.New("flaky")).Once()
	p.On("FetchCompanies", mock.Anything).Return([]models.Company{{ID: "c1"}}, nil)
	p.On("FetchPosts", mock.Anything).Return([]models.Post{}, nil)
	p.On("FetchCountries", mock.Anything).Return([]models.Country{}, nil)
	p.On("FetchDashboardMetrics", mock.Anything).Return(models.DashboardMetrics{}, nil)

	s := store.New()
	c := NewCoordinator(p, s, time.Second)

	first := c.LoadAll(context.Background())
	require.False(t, first.OK())
	require.True(t, c.HasError())

	second := c.Retry(context.Background())
	assert.True(t, second.OK())
	assert.False(t, c.HasError())
	assert.Empty(t, s.Error())
	assert.Equal(t, uint64(2), second.Generation)
}

func TestLoadAll_EmptyDatasetSurfacesError(t *testing.T) {
	p := provider.NewMockProvider(provider.Seed{}, provider.MockOptions{})
	s := store.New()

	result := NewCoordinator(p, s, time.Second).LoadAll(context.Background())

	require.Error(t, result.Err)
	assert.Contains(t, result.Failures, models.ResourceMetrics)
	assert.Equal(t, models.LoadingError, s.LoadingState(models.ResourceMetrics))
	assert.Contains(t, s.Error(), "no emission records")
	assert.Nil(t, s.Metrics())
}

func TestLoadAll_TimeoutLeavesNoResourceLoading(t *testing.T) {
	p := provider.NewMockProvider(provider.DefaultSeed(), provider.MockOptions{MinLatency: time.Minute, MaxLatency: time.Minute})
	s := store.New()

	result := NewCoordinator(p, s, 20*time.Millisecond).LoadAll(context.Background())

	assert.Len(t, result.Failures, 4)
	assert.False(t, s.IsLoading())
	assert.Contains(t, s.Error(), "timed out")
}

// gatedProvider blocks the first companies fetch until released
type gatedProvider struct {
	*provider.MockProvider
	mu      sync.Mutex
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (g *gatedProvider) FetchCompanies(ctx context.Context) ([]models.Company, error) {
	g.mu.Lock()
	g.calls++
	first := g.calls == 1
	g.mu.Unlock()

	if first {
		close(g.entered)
		<-g.release
		return []models.Company{{ID: "stale"}}, nil
	}
	return []models.Company{{ID: "fresh"}}, nil
}

func TestLoadAll_StaleCompletionsAreDiscarded(t *testing.T) {
	g := &gatedProvider{
		MockProvider: provider.NewMockProvider(provider.DefaultSeed(), provider.MockOptions{}),
		entered:      make(chan struct{}),
		release:      make(chan struct{}),
	}
	s := store.New()
	c := NewCoordinator(g, s, 0)

	firstDone := make(chan Result, 1)
	go func() { firstDone <- c.LoadAll(context.Background()) }()
	<-g.entered

	second := c.LoadAll(context.Background())
	require.True(t, second.OK())
	require.Equal(t, "fresh", s.Companies()[0].ID)

	close(g.release)
	first := <-firstDone

	assert.True(t, first.Superseded)
	assert.Equal(t, "fresh", s.Companies()[0].ID)
	assert.Equal(t, models.LoadingSuccess, s.LoadingState(models.ResourceCompanies))

	var stats Stats
	require.NoError(t, json.Unmarshal([]byte(c.GetStats()), &stats))
	assert.Equal(t, 2, stats.Cycles)
	assert.GreaterOrEqual(t, stats.StaleDiscarded, 1)
}
