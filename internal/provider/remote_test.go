package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/azure/carbon-dashboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestRemoteProvider_FetchCompaniesRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/companies", r.URL.Path)
		if atomic.AddInt32(&calls, 1) == 1 {
			writeJSON(w, http.StatusServiceUnavailable, apiError{Error: "warming up"})
			return
		}
		writeJSON(w, http.StatusOK, DefaultSeed().Companies)
	}))
	defer srv.Close()

	p := NewRemoteProvider(srv.URL, 5*time.Second, 3)
	companies, err := p.FetchCompanies(context.Background())

	require.NoError(t, err)
	assert.Len(t, companies, 5)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestRemoteProvider_FetchCompanyByIDNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, apiError{Error: "company not found"})
	}))
	defer srv.Close()

	company, err := NewRemoteProvider(srv.URL, 5*time.Second, 3).FetchCompanyByID(context.Background(), "zz")
	require.NoError(t, err)
	assert.Nil(t, company)
}

func TestRemoteProvider_QueryFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/companies":
			assert.Equal(t, "DE", r.URL.Query().Get("country"))
			writeJSON(w, http.StatusOK, []models.Company{{ID: "c2", Country: "DE"}})
		case "/api/v1/posts":
			assert.Equal(t, "c2", r.URL.Query().Get("company"))
			writeJSON(w, http.StatusOK, []models.Post{{ID: "p2", ResourceUID: "c2"}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	p := NewRemoteProvider(srv.URL, 5*time.Second, 0)
	companies, err := p.FetchCompaniesByCountry(context.Background(), "DE")
	require.NoError(t, err)
	assert.Len(t, companies, 1)

	posts, err := p.FetchPostsByCompany(context.Background(), "c2")
	require.NoError(t, err)
	assert.Len(t, posts, 1)
}

func TestRemoteProvider_Writes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/posts":
			var in models.PostInput
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			writeJSON(w, http.StatusCreated, models.Post{ID: "new", Title: in.Title})
		case r.Method == http.MethodPut && r.URL.Path == "/api/v1/posts/new":
			writeJSON(w, http.StatusServiceUnavailable, apiError{Error: "failed to save post"})
		case r.Method == http.MethodDelete && r.URL.Path == "/api/v1/posts/new":
			writeJSON(w, http.StatusOK, deleteResponse{Deleted: true})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	p := NewRemoteProvider(srv.URL, 5*time.Second, 0)
	ctx := context.Background()

	created, err := p.CreateOrUpdatePost(ctx, models.PostInput{Title: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "new", created.ID)

	_, err = p.CreateOrUpdatePost(ctx, models.PostInput{ID: "new", Title: "again"})
	assert.ErrorIs(t, err, ErrTransientWrite)
	assert.Contains(t, err.Error(), "failed to save post")

	deleted, err := p.DeletePost(ctx, "new")
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestRemoteProvider_ClientErrorsAreNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusBadRequest, apiError{Error: "bad"})
	}))
	defer srv.Close()

	_, err := NewRemoteProvider(srv.URL, 5*time.Second, 3).FetchDashboardMetrics(context.Background())
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
