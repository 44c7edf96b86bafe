package store

import (
	"testing"

	"github.com/azure/carbon-dashboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededStore() *Store {
	s := New()
	s.SetCountries([]models.Country{{Code: "US", Name: "United States"}, {Code: "DE", Name: "Germany"}})
	s.SetCompanies([]models.Company{
		{ID: "c1", Name: "Acme", Country: "US", Emissions: []models.EmissionRecord{{YearMonth: "2024-01", Emissions: 10}}},
		{ID: "c2", Name: "Globex", Country: "DE"},
		{ID: "c3", Name: "Initech", Country: "US"},
	})
	s.SetPosts([]models.Post{
		{ID: "p1", Title: "One", ResourceUID: "c1"},
		{ID: "p2", Title: "Two", ResourceUID: "c2"},
		{ID: "p3", Title: "Three", ResourceUID: "c1"},
	})
	return s
}

func TestNew_StartsIdle(t *testing.T) {
	s := New()

	for _, r := range models.Resources {
		assert.Equal(t, models.LoadingIdle, s.LoadingState(r), string(r))
	}
	assert.False(t, s.IsLoading())
	assert.False(t, s.HasError())
	assert.Nil(t, s.Metrics())
	assert.Empty(t, s.Error())
}

func TestStore_SelectCompanyToggles(t *testing.T) {
	s := seededStore()

	assert.Equal(t, s.Posts(), s.FilteredPosts())

	s.SetSelectedCompany("c1")
	filtered := s.FilteredPosts()
	require.Len(t, filtered, 2)
	for _, p := range filtered {
		assert.Equal(t, "c1", p.ResourceUID)
	}

	s.SetSelectedCompany("c1")
	assert.Empty(t, s.SelectedCompany())
	assert.Len(t, s.FilteredPosts(), 3)
}

func TestStore_SelectionReplacesAndClears(t *testing.T) {
	s := seededStore()

	s.SetSelectedCompany("c1")
	s.SetSelectedCompany("c2")
	assert.Equal(t, "c2", s.SelectedCompany())

	s.SetSelectedCompany("")
	assert.Empty(t, s.SelectedCompany())
}

func TestStore_FilteredCompaniesByCountry(t *testing.T) {
	s := seededStore()

	assert.Len(t, s.FilteredCompanies(), 3)

	s.SetSelectedCountry("US")
	companies := s.FilteredCompanies()
	require.Len(t, companies, 2)
	assert.Equal(t, "c1", companies[0].ID)
	assert.Equal(t, "c3", companies[1].ID)

	s.SetSelectedCountry("FR")
	assert.Empty(t, s.FilteredCompanies())

	s.SetSelectedCountry("FR")
	assert.Len(t, s.FilteredCompanies(), 3)
}

func TestStore_CurrentCompany(t *testing.T) {
	s := seededStore()

	_, ok := s.CurrentCompany()
	assert.False(t, ok)

	s.SetSelectedCompany("c2")
	c, ok := s.CurrentCompany()
	require.True(t, ok)
	assert.Equal(t, "Globex", c.Name)

	s.SetSelectedCompany("missing")
	_, ok = s.CurrentCompany()
	assert.False(t, ok)
}

func TestStore_SelectorsReflectLatestMutation(t *testing.T) {
	s := seededStore()
	s.SetSelectedCompany("c2")
	require.Len(t, s.FilteredPosts(), 1)

	s.AddPost(models.Post{ID: "p4", ResourceUID: "c2"})
	assert.Len(t, s.FilteredPosts(), 2)

	s.DeletePost("p2")
	assert.Len(t, s.FilteredPosts(), 1)
}

func TestStore_PostActions(t *testing.T) {
	s := seededStore()

	s.AddPost(models.Post{ID: "p4", Title: "Four"})
	require.Len(t, s.Posts(), 4)
	assert.Equal(t, "p4", s.Posts()[3].ID)

	require.NoError(t, s.UpdatePost(models.Post{ID: "p2", Title: "Two v2", ResourceUID: "c2"}))
	assert.Equal(t, "Two v2", s.Posts()[1].Title)

	before := s.Posts()
	err := s.UpdatePost(models.Post{ID: "ghost", Title: "x"})
	assert.ErrorIs(t, err, ErrPostNotFound)
	assert.Equal(t, before, s.Posts())

	assert.Equal(t, 1, s.DeletePost("p1"))
	assert.Equal(t, 0, s.DeletePost("p1"))
	assert.Len(t, s.Posts(), 3)
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := seededStore()

	posts := s.Posts()
	posts[0].Title = "mutated"
	companies := s.Companies()
	companies[0].Emissions[0].Emissions = 999

	assert.Equal(t, "One", s.Posts()[0].Title)
	assert.Equal(t, float64(10), s.Companies()[0].Emissions[0].Emissions)
}

func TestStore_CountryName(t *testing.T) {
	s := seededStore()

	assert.Equal(t, "Germany", s.CountryName("DE"))
	assert.Equal(t, UnknownCountry, s.CountryName("XX"))
}

func TestStore_LoadingAggregates(t *testing.T) {
	s := New()

	s.SetCompaniesLoading(models.LoadingActive)
	assert.True(t, s.IsLoading())

	s.SetCompaniesLoading(models.LoadingError)
	s.SetPostsLoading(models.LoadingSuccess)
	s.SetCountriesLoading(models.LoadingSuccess)
	s.SetMetricsLoading(models.LoadingSuccess)
	assert.False(t, s.IsLoading())
	assert.True(t, s.HasError())
}

func TestStore_ErrorSlotLastWriteWins(t *testing.T) {
	s := New()

	s.SetError("first")
	s.SetError("second")
	assert.Equal(t, "second", s.Error())

	s.SetError("")
	assert.Empty(t, s.Error())
}

func TestStore_Snapshot(t *testing.T) {
	s := seededStore()
	s.SetMetrics(models.DashboardMetrics{TotalEmissions: 10, TotalCompanies: 3})
	s.SetSelectedCountry("US")
	s.SetSidebarOpen(true)
	s.SetPostsLoading(models.LoadingError)

	state := s.Snapshot()
	assert.Equal(t, 3, state.Companies)
	assert.Equal(t, 3, state.Posts)
	assert.Equal(t, "US", state.SelectedCountry)
	assert.True(t, state.SidebarOpen)
	assert.True(t, state.HasError)
	require.NotNil(t, state.Metrics)
	assert.Equal(t, int64(10), state.Metrics.TotalEmissions)
}
