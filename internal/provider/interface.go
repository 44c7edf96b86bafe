// Package provider defines the data source boundary of the dashboard and its implementations.
package provider

import (
	"context"
	"errors"

	"github.com/azure/carbon-dashboard/internal/models"
)

var (
	// ErrTransientWrite is returned by write operations that failed but may be retried as-is
	ErrTransientWrite = errors.New("transient write failure")
	// ErrNotFound is returned when the provider has no entity with the requested id
	ErrNotFound = errors.New("not found")
)

// Provider is the contract every data source (mock or remote) implements.
// All operations block until the provider answers or ctx is done.
type Provider interface {
	FetchCountries(ctx context.Context) ([]models.Country, error)
	FetchCompanies(ctx context.Context) ([]models.Company, error)
	// FetchCompanyByID returns nil and no error when there is no such company
	FetchCompanyByID(ctx context.Context, id string) (*models.Company, error)
	FetchCompaniesByCountry(ctx context.Context, code string) ([]models.Company, error)
	FetchPosts(ctx context.Context) ([]models.Post, error)
	FetchPostsByCompany(ctx context.Context, companyID string) ([]models.Post, error)
	// CreateOrUpdatePost replaces the post with input.ID, or creates a post with a fresh id
	CreateOrUpdatePost(ctx context.Context, input models.PostInput) (models.Post, error)
	// DeletePost reports whether a post was actually removed
	DeletePost(ctx context.Context, id string) (bool, error)
	FetchDashboardMetrics(ctx context.Context) (models.DashboardMetrics, error)
}
