// Package store holds the dashboard application state. Every action is a single
// critical section, and every read returns a copy the caller may not mutate back into the store.
package store

import (
	"errors"
	"sync"

	"github.com/azure/carbon-dashboard/internal/models"
)

// ErrPostNotFound is returned by UpdatePost when no post shares the id
var ErrPostNotFound = errors.New("post not found")

// UnknownCountry is displayed for country codes missing from the reference data
const UnknownCountry = "Unknown"

// Store is the single source of truth for fetched entities, per-resource loading
// states, UI selection and the global error slot. Construct one per application.
type Store struct {
	mu sync.RWMutex

	companies []models.Company
	posts     []models.Post
	countries []models.Country
	metrics   *models.DashboardMetrics

	loading map[models.Resource]models.LoadingState

	selectedCompany string
	selectedCountry string
	sidebarOpen     bool

	err string

	// generation identifies the newest load cycle; completions from older cycles are dropped
	generation uint64
}

// State is a read-only snapshot of the store for rendering
type State struct {
	Loading         map[models.Resource]models.LoadingState `json:"loading"`
	IsLoading       bool                                    `json:"isLoading"`
	HasError        bool                                    `json:"hasError"`
	Error           string                                  `json:"error,omitempty"`
	Metrics         *models.DashboardMetrics                `json:"metrics"`
	SelectedCompany string                                  `json:"selectedCompany,omitempty"`
	SelectedCountry string                                  `json:"selectedCountry,omitempty"`
	SidebarOpen     bool                                    `json:"sidebarOpen"`
	Companies       int                                     `json:"companies"`
	Posts           int                                     `json:"posts"`
	Countries       int                                     `json:"countries"`
	Generation      uint64                                  `json:"generation"`
}

// New creates an empty store with every resource idle
func New() *Store {
	loading := make(map[models.Resource]models.LoadingState, len(models.Resources))
	for _, r := range models.Resources {
		loading[r] = models.LoadingIdle
	}
	return &Store{loading: loading}
}

// Data slices

func (s *Store) SetCompanies(companies []models.Company) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.companies = cloneCompanies(companies)
}

func (s *Store) SetPosts(posts []models.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = clonePosts(posts)
}

func (s *Store) SetCountries(countries []models.Country) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countries = append([]models.Country(nil), countries...)
}

func (s *Store) SetMetrics(m models.DashboardMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = &m
}

func (s *Store) Companies() []models.Company {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneCompanies(s.companies)
}

func (s *Store) Posts() []models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clonePosts(s.posts)
}

func (s *Store) Countries() []models.Country {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Country(nil), s.countries...)
}

// Metrics returns a copy of the last loaded metrics, or nil before the first successful load
func (s *Store) Metrics() *models.DashboardMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.metrics == nil {
		return nil
	}
	m := *s.metrics
	return &m
}

// Loading states

// SetLoading transitions a single resource; any transition is accepted
func (s *Store) SetLoading(r models.Resource, state models.LoadingState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading[r] = state
}

func (s *Store) SetCompaniesLoading(state models.LoadingState) {
	s.SetLoading(models.ResourceCompanies, state)
}
func (s *Store) SetPostsLoading(state models.LoadingState) { s.SetLoading(models.ResourcePosts, state) }
func (s *Store) SetCountriesLoading(state models.LoadingState) {
	s.SetLoading(models.ResourceCountries, state)
}
func (s *Store) SetMetricsLoading(state models.LoadingState) {
	s.SetLoading(models.ResourceMetrics, state)
}

func (s *Store) LoadingState(r models.Resource) models.LoadingState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading[r]
}

// IsLoading reports whether any resource is loading
func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.anyLocked(models.LoadingActive)
}

// HasError reports whether any resource failed its last fetch
func (s *Store) HasError() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.anyLocked(models.LoadingError)
}

func (s *Store) anyLocked(state models.LoadingState) bool {
	for _, r := range models.Resources {
		if s.loading[r] == state {
			return true
		}
	}
	return false
}

// Selection

// SetSelectedCompany selects a company. Selecting the current company again, or
// passing an empty id, clears the selection.
func (s *Store) SetSelectedCompany(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedCompany = toggle(s.selectedCompany, id)
}

// SetSelectedCountry selects a country with the same select-to-deselect semantics
func (s *Store) SetSelectedCountry(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedCountry = toggle(s.selectedCountry, code)
}

func toggle(current, next string) string {
	if next == current {
		return ""
	}
	return next
}

func (s *Store) SelectedCompany() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedCompany
}

func (s *Store) SelectedCountry() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedCountry
}

func (s *Store) SetSidebarOpen(open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sidebarOpen = open
}

func (s *Store) SidebarOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sidebarOpen
}

// Error slot

// SetError replaces the global error; an empty message clears it
func (s *Store) SetError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = msg
}

func (s *Store) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Posts

func (s *Store) AddPost(post models.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = append(clonePosts(s.posts), post)
}

// UpdatePost replaces the post sharing post.ID. The store is unchanged and
// ErrPostNotFound is returned when there is no such post.
func (s *Store) UpdatePost(post models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.posts {
		if s.posts[i].ID == post.ID {
			posts := clonePosts(s.posts)
			posts[i] = post
			s.posts = posts
			return nil
		}
	}
	return ErrPostNotFound
}

// DeletePost removes every post with the id and returns how many were removed
func (s *Store) DeletePost(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := make([]models.Post, 0, len(s.posts))
	for _, post := range s.posts {
		if post.ID != id {
			kept = append(kept, post)
		}
	}
	removed := len(s.posts) - len(kept)
	s.posts = kept
	return removed
}

// Selectors

// FilteredCompanies returns every company, or only those in the selected country
func (s *Store) FilteredCompanies() []models.Company {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selectedCountry == "" {
		return cloneCompanies(s.companies)
	}
	out := []models.Company{}
	for _, c := range s.companies {
		if c.Country == s.selectedCountry {
			out = append(out, c.Clone())
		}
	}
	return out
}

// FilteredPosts returns every post, or only those of the selected company
func (s *Store) FilteredPosts() []models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selectedCompany == "" {
		return clonePosts(s.posts)
	}
	out := []models.Post{}
	for _, p := range s.posts {
		if p.ResourceUID == s.selectedCompany {
			out = append(out, p)
		}
	}
	return out
}

// CurrentCompany returns the selected company, if any is selected and loaded
func (s *Store) CurrentCompany() (models.Company, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selectedCompany == "" {
		return models.Company{}, false
	}
	for _, c := range s.companies {
		if c.ID == s.selectedCompany {
			return c.Clone(), true
		}
	}
	return models.Company{}, false
}

// CountryName resolves a country code, degrading to UnknownCountry
func (s *Store) CountryName(code string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.countries {
		if c.Code == code {
			return c.Name
		}
	}
	return UnknownCountry
}

// Snapshot returns the rendering state in one consistent read
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loading := make(map[models.Resource]models.LoadingState, len(s.loading))
	for r, state := range s.loading {
		loading[r] = state
	}
	var m *models.DashboardMetrics
	if s.metrics != nil {
		copied := *s.metrics
		m = &copied
	}

	return State{
		Loading:         loading,
		IsLoading:       s.anyLocked(models.LoadingActive),
		HasError:        s.anyLocked(models.LoadingError),
		Error:           s.err,
		Metrics:         m,
		SelectedCompany: s.selectedCompany,
		SelectedCountry: s.selectedCountry,
		SidebarOpen:     s.sidebarOpen,
		Companies:       len(s.companies),
		Posts:           len(s.posts),
		Countries:       len(s.countries),
		Generation:      s.generation,
	}
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

func clonePosts(in []models.Post) []models.Post {
	if in == nil {
		return nil
	}
	return append([]models.Post(nil), in...)
}
