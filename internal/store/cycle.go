package store

import "github.com/azure/carbon-dashboard/internal/models"

// BeginCycle starts a load cycle: every resource moves to loading, the error
// slot is cleared and a new generation token is returned.
func (s *Store) BeginCycle() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	for _, r := range models.Resources {
		s.loading[r] = models.LoadingActive
	}
	s.err = ""
	return s.generation
}

// Generation returns the token of the newest load cycle
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// CommitCompanies stores the companies and marks them loaded if gen is still current
func (s *Store) CommitCompanies(gen uint64, companies []models.Company) bool {
	return s.commit(gen, models.ResourceCompanies, func() { s.companies = cloneCompanies(companies) })
}

// CommitPosts stores the posts and marks them loaded if gen is still current
func (s *Store) CommitPosts(gen uint64, posts []models.Post) bool {
	return s.commit(gen, models.ResourcePosts, func() { s.posts = clonePosts(posts) })
}

// CommitCountries stores the countries and marks them loaded if gen is still current
func (s *Store) CommitCountries(gen uint64, countries []models.Country) bool {
	return s.commit(gen, models.ResourceCountries, func() {
		s.countries = append([]models.Country(nil), countries...)
	})
}

// CommitMetrics stores the metrics and marks them loaded if gen is still current
func (s *Store) CommitMetrics(gen uint64, m models.DashboardMetrics) bool {
	return s.commit(gen, models.ResourceMetrics, func() { s.metrics = &m })
}

// FailResource marks the resource as failed, leaving its data untouched, if gen is still current
func (s *Store) FailResource(gen uint64, r models.Resource) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	s.loading[r] = models.LoadingError
	return true
}

// FinishCycle publishes the aggregated error of a settled cycle if gen is still current
func (s *Store) FinishCycle(gen uint64, errMsg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	s.err = errMsg
	return true
}

func (s *Store) commit(gen uint64, r models.Resource, apply func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	apply()
	s.loading[r] = models.LoadingSuccess
	return true
}
