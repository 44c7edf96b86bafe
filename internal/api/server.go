// Package api exposes the dashboard over HTTP. The /api/v1 data routes mirror
// the provider operations, so a RemoteProvider can use another dashboard as its source.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/azure/carbon-dashboard/internal/export"
	"github.com/azure/carbon-dashboard/internal/loader"
	"github.com/azure/carbon-dashboard/internal/metrics"
	"github.com/azure/carbon-dashboard/internal/models"
	"github.com/azure/carbon-dashboard/internal/posts"
	"github.com/azure/carbon-dashboard/internal/provider"
	"github.com/azure/carbon-dashboard/internal/storage"
	"github.com/azure/carbon-dashboard/internal/store"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// StatsSource reports run statistics as a JSON document
type StatsSource interface {
	GetMetrics() string
}

// Server wires the HTTP routes to the store and the coordinators
type Server struct {
	provider provider.Provider
	store    *store.Store
	loader   *loader.Coordinator
	posts    *posts.Coordinator
	exports  *export.Exporter
	stats    StatsSource
	now      func() time.Time
}

// NewServer creates the HTTP surface. exports and stats may be nil.
func NewServer(p provider.Provider, s *store.Store, l *loader.Coordinator, pc *posts.Coordinator, exports *export.Exporter, stats StatsSource) *Server {
	return &Server{
		provider: p,
		store:    s,
		loader:   l,
		posts:    pc,
		exports:  exports,
		stats:    stats,
		now:      time.Now,
	}
}

// Router builds the route table
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.health).Methods(http.MethodGet)
	router.HandleFunc("/metrics", s.runMetrics).Methods(http.MethodGet)

	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/dashboard", s.dashboard).Methods(http.MethodGet)
	v1.HandleFunc("/dashboard/posts", s.dashboardPosts).Methods(http.MethodGet)
	v1.HandleFunc("/dashboard/company", s.currentCompany).Methods(http.MethodGet)
	v1.HandleFunc("/reload", s.reload).Methods(http.MethodPost)

	v1.HandleFunc("/countries", s.countries).Methods(http.MethodGet)
	v1.HandleFunc("/companies", s.companies).Methods(http.MethodGet)
	v1.HandleFunc("/companies/{id}", s.company).Methods(http.MethodGet)
	v1.HandleFunc("/metrics/dashboard", s.dashboardMetrics).Methods(http.MethodGet)

	v1.HandleFunc("/posts", s.listPosts).Methods(http.MethodGet)
	v1.HandleFunc("/posts", s.createPost).Methods(http.MethodPost)
	v1.HandleFunc("/posts/{id}", s.updatePost).Methods(http.MethodPut)
	v1.HandleFunc("/posts/{id}", s.deletePost).Methods(http.MethodDelete)

	v1.HandleFunc("/selection/company", s.selectCompany).Methods(http.MethodPut)
	v1.HandleFunc("/selection/country", s.selectCountry).Methods(http.MethodPut)
	v1.HandleFunc("/sidebar", s.sidebar).Methods(http.MethodPut)

	v1.HandleFunc("/views/timeseries", s.timeSeries).Methods(http.MethodGet)
	v1.HandleFunc("/views/comparison", s.comparison).Methods(http.MethodGet)
	v1.HandleFunc("/export.csv", s.exportCSV).Methods(http.MethodGet)
	v1.HandleFunc("/exports", s.listExports).Methods(http.MethodGet)
	v1.HandleFunc("/exports/{name}", s.storedExport).Methods(http.MethodGet)

	return router
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": s.now().Format(time.RFC3339),
	})
}

func (s *Server) runMetrics(w http.ResponseWriter, r *http.Request) {
	body := map[string]json.RawMessage{
		"loader": json.RawMessage(s.loader.GetStats()),
	}
	if s.stats != nil {
		body["reporting"] = json.RawMessage(s.stats.GetMetrics())
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

type reloadResponse struct {
	Generation uint64      `json:"generation"`
	OK         bool        `json:"ok"`
	Superseded bool        `json:"superseded,omitempty"`
	Error      string      `json:"error,omitempty"`
	Duration   string      `json:"duration"`
	State      store.State `json:"state"`
}

// dashboardPosts lists the posts narrowed to the selected company
func (s *Server) dashboardPosts(w http.ResponseWriter, r *http.Request) {
	list := s.store.FilteredPosts()
	if list == nil {
		list = []models.Post{}
	}
	writeJSON(w, http.StatusOK, list)
}

type currentCompanyResponse struct {
	models.Company
	CountryName string `json:"countryName"`
}

func (s *Server) currentCompany(w http.ResponseWriter, r *http.Request) {
	company, ok := s.store.CurrentCompany()
	if !ok {
		writeError(w, http.StatusNotFound, "no company selected")
		return
	}
	writeJSON(w, http.StatusOK, currentCompanyResponse{
		Company:     company,
		CountryName: s.store.CountryName(company.Country),
	})
}

func (s *Server) reload(w http.ResponseWriter, r *http.Request) {
	result := s.loader.Retry(r.Context())

	resp := reloadResponse{
		Generation: result.Generation,
		OK:         result.OK(),
		Superseded: result.Superseded,
		Duration:   result.Duration.String(),
		State:      s.store.Snapshot(),
	}
	status := http.StatusOK
	if result.Err != nil {
		resp.Error = result.Err.Error()
		status = http.StatusBadGateway
	}
	writeJSON(w, status, resp)
}

func (s *Server) countries(w http.ResponseWriter, r *http.Request) {
	countries, err := s.provider.FetchCountries(r.Context())
	if err != nil {
		writeProviderError(w, err)
		return
	}
	if countries == nil {
		countries = []models.Country{}
	}
	writeJSON(w, http.StatusOK, countries)
}

func (s *Server) companies(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("country")

	var (
		companies []models.Company
		err       error
	)
	if code != "" {
		companies, err = s.provider.FetchCompaniesByCountry(r.Context(), code)
	} else {
		companies, err = s.provider.FetchCompanies(r.Context())
	}
	if err != nil {
		writeProviderError(w, err)
		return
	}
	if companies == nil {
		companies = []models.Company{}
	}
	writeJSON(w, http.StatusOK, companies)
}

func (s *Server) company(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	company, err := s.provider.FetchCompanyByID(r.Context(), id)
	if err != nil {
		writeProviderError(w, err)
		return
	}
	if company == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("company %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, company)
}

func (s *Server) dashboardMetrics(w http.ResponseWriter, r *http.Request) {
	m, err := s.provider.FetchDashboardMetrics(r.Context())
	if err != nil {
		writeProviderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	companyID := r.URL.Query().Get("company")

	var (
		list []models.Post
		err  error
	)
	if companyID != "" {
		list, err = s.provider.FetchPostsByCompany(r.Context(), companyID)
	} else {
		list, err = s.provider.FetchPosts(r.Context())
	}
	if err != nil {
		writeProviderError(w, err)
		return
	}
	if list == nil {
		list = []models.Post{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	s.submitPost(w, r, "", http.StatusCreated)
}

func (s *Server) updatePost(w http.ResponseWriter, r *http.Request) {
	s.submitPost(w, r, mux.Vars(r)["id"], http.StatusOK)
}

func (s *Server) submitPost(w http.ResponseWriter, r *http.Request, id string, okStatus int) {
	var form posts.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result := s.posts.Submit(r.Context(), form, id)
	switch result.Status {
	case posts.StatusSaved:
		writeJSON(w, okStatus, result.Post)
	case posts.StatusInvalid:
		writeError(w, http.StatusBadRequest, result.Message)
	default:
		writeError(w, failureStatus(result.Err), result.Message)
	}
}

func (s *Server) deletePost(w http.ResponseWriter, r *http.Request) {
	result := s.posts.Remove(r.Context(), mux.Vars(r)["id"])
	if !result.OK() {
		writeError(w, failureStatus(result.Err), result.Message)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": result.Removed})
}

type selectionRequest struct {
	ID   *string `json:"id"`
	Code *string `json:"code"`
	Open *bool   `json:"open"`
}

func (s *Server) selectCompany(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSelection(w, r)
	if !ok {
		return
	}
	if req.ID == nil {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	s.store.SetSelectedCompany(*req.ID)
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

func (s *Server) selectCountry(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSelection(w, r)
	if !ok {
		return
	}
	if req.Code == nil {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}
	s.store.SetSelectedCountry(*req.Code)
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

func (s *Server) sidebar(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSelection(w, r)
	if !ok {
		return
	}
	if req.Open == nil {
		writeError(w, http.StatusBadRequest, "open is required")
		return
	}
	s.store.SetSidebarOpen(*req.Open)
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

func decodeSelection(w http.ResponseWriter, r *http.Request) (selectionRequest, bool) {
	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return req, false
	}
	return req, true
}

func (s *Server) timeSeries(w http.ResponseWriter, r *http.Request) {
	companyID := r.URL.Query().Get("company")
	writeJSON(w, http.StatusOK, metrics.TimeSeries(s.store.FilteredCompanies(), companyID))
}

func (s *Server) comparison(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, metrics.CompareCompanies(s.store.FilteredCompanies()))
}

func (s *Server) exportCSV(w http.ResponseWriter, r *http.Request) {
	data, err := export.Render(s.store.FilteredCompanies(), r.URL.Query().Get("company"))
	if err != nil {
		logrus.Errorf("Failed to render CSV export: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to render export")
		return
	}
	writeCSV(w, export.FileName(s.now()), data)
}

func (s *Server) listExports(w http.ResponseWriter, r *http.Request) {
	if s.exports == nil {
		writeJSON(w, http.StatusOK, []string{})
		return
	}

	names, err := s.exports.List(r.Context())
	if err != nil {
		logrus.Errorf("Failed to list exports: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list exports")
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) storedExport(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if s.exports == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("export %s not found", name))
		return
	}

	data, err := s.exports.Open(r.Context(), name)
	switch {
	case errors.Is(err, export.ErrInvalidName):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, fmt.Sprintf("export %s not found", name))
		return
	case err != nil:
		logrus.Errorf("Failed to read export %s: %v", name, err)
		writeError(w, http.StatusInternalServerError, "failed to read export")
		return
	}
	writeCSV(w, name, data)
}

func writeCSV(w http.ResponseWriter, name string, data []byte) {
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logrus.Debugf("Failed to write CSV export: %v", err)
	}
}

// failureStatus maps a provider write error onto an HTTP status
func failureStatus(err error) int {
	switch {
	case errors.Is(err, provider.ErrTransientWrite), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, provider.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func writeProviderError(w http.ResponseWriter, err error) {
	logrus.Errorf("Provider read failed: %v", err)
	switch {
	case errors.Is(err, provider.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.Debugf("Failed to write response: %v", err)
	}
}
