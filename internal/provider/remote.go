package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/azure/carbon-dashboard/internal/models"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// RemoteProvider talks to another dashboard instance over its /api/v1 HTTP surface
type RemoteProvider struct {
	client     *resty.Client
	maxRetries uint64
}

// Ensure RemoteProvider implements Provider
var _ Provider = (*RemoteProvider)(nil)

type apiError struct {
	Error string `json:"error"`
}

type deleteResponse struct {
	Deleted bool `json:"deleted"`
}

// NewRemoteProvider creates a client for the dashboard API rooted at baseURL.
// Reads are retried with exponential backoff up to maxRetries times; writes are never retried.
func NewRemoteProvider(baseURL string, timeout time.Duration, maxRetries uint64) *RemoteProvider {
	return &RemoteProvider{
		client: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")+"/api/v1").
			SetTimeout(timeout).
			SetHeader("User-Agent", "Carbon-Dashboard/1.0"),
		maxRetries: maxRetries,
	}
}

// get performs an idempotent read into out, retrying server-side and transport failures
func (r *RemoteProvider) get(ctx context.Context, path string, query url.Values, out interface{}) (int, error) {
	var status int

	operation := func() error {
		resp, err := r.client.R().
			SetContext(ctx).
			SetQueryParamsFromValues(query).
			Get(path)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}

		status = resp.StatusCode()
		switch {
		case status == http.StatusNotFound:
			return backoff.Permanent(ErrNotFound)
		case status >= 500:
			return fmt.Errorf("GET %s returned status %d: %s", path, status, errorMessage(resp))
		case status >= 400:
			return backoff.Permanent(fmt.Errorf("GET %s returned status %d: %s", path, status, errorMessage(resp)))
		}

		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode %s response: %w", path, err))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), r.maxRetries), ctx)
	notify := func(err error, wait time.Duration) {
		logrus.Warnf("Remote provider read %s failed, retrying in %v: %v", path, wait, err)
	}

	return status, backoff.RetryNotify(operation, policy, notify)
}

func (r *RemoteProvider) FetchCountries(ctx context.Context) ([]models.Country, error) {
	var countries []models.Country
	if _, err := r.get(ctx, "/countries", nil, &countries); err != nil {
		return nil, fmt.Errorf("failed to fetch countries: %w", err)
	}
	return countries, nil
}

func (r *RemoteProvider) FetchCompanies(ctx context.Context) ([]models.Company, error) {
	var companies []models.Company
	if _, err := r.get(ctx, "/companies", nil, &companies); err != nil {
		return nil, fmt.Errorf("failed to fetch companies: %w", err)
	}
	return companies, nil
}

func (r *RemoteProvider) FetchCompanyByID(ctx context.Context, id string) (*models.Company, error) {
	var company models.Company
	_, err := r.get(ctx, "/companies/"+url.PathEscape(id), nil, &company)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch company %s: %w", id, err)
	}
	return &company, nil
}

func (r *RemoteProvider) FetchCompaniesByCountry(ctx context.Context, code string) ([]models.Company, error) {
	var companies []models.Company
	if _, err := r.get(ctx, "/companies", url.Values{"country": {code}}, &companies); err != nil {
		return nil, fmt.Errorf("failed to fetch companies for %s: %w", code, err)
	}
	return companies, nil
}

func (r *RemoteProvider) FetchPosts(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	if _, err := r.get(ctx, "/posts", nil, &posts); err != nil {
		return nil, fmt.Errorf("failed to fetch posts: %w", err)
	}
	return posts, nil
}

func (r *RemoteProvider) FetchPostsByCompany(ctx context.Context, companyID string) ([]models.Post, error) {
	var posts []models.Post
	if _, err := r.get(ctx, "/posts", url.Values{"company": {companyID}}, &posts); err != nil {
		return nil, fmt.Errorf("failed to fetch posts for %s: %w", companyID, err)
	}
	return posts, nil
}

func (r *RemoteProvider) CreateOrUpdatePost(ctx context.Context, input models.PostInput) (models.Post, error) {
	req := r.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(input)

	var (
		resp *resty.Response
		err  error
	)
	if input.ID != "" {
		resp, err = req.Put("/posts/" + url.PathEscape(input.ID))
	} else {
		resp, err = req.Post("/posts")
	}
	if err != nil {
		return models.Post{}, fmt.Errorf("%w: %v", ErrTransientWrite, err)
	}
	if err := writeError(resp); err != nil {
		return models.Post{}, err
	}

	var post models.Post
	if err := json.Unmarshal(resp.Body(), &post); err != nil {
		return models.Post{}, fmt.Errorf("failed to decode saved post: %w", err)
	}
	return post, nil
}

func (r *RemoteProvider) DeletePost(ctx context.Context, id string) (bool, error) {
	resp, err := r.client.R().
		SetContext(ctx).
		Delete("/posts/" + url.PathEscape(id))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrTransientWrite, err)
	}
	if err := writeError(resp); err != nil {
		return false, err
	}

	var out deleteResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return false, fmt.Errorf("failed to decode delete response: %w", err)
	}
	return out.Deleted, nil
}

func (r *RemoteProvider) FetchDashboardMetrics(ctx context.Context) (models.DashboardMetrics, error) {
	var m models.DashboardMetrics
	if _, err := r.get(ctx, "/metrics/dashboard", nil, &m); err != nil {
		return models.DashboardMetrics{}, fmt.Errorf("failed to fetch dashboard metrics: %w", err)
	}
	return m, nil
}

// writeError maps a write response status onto the provider error taxonomy
func writeError(resp *resty.Response) error {
	status := resp.StatusCode()
	switch {
	case status < 400:
		return nil
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, errorMessage(resp))
	case status >= 500:
		return fmt.Errorf("%w: %s", ErrTransientWrite, errorMessage(resp))
	default:
		return fmt.Errorf("write rejected with status %d: %s", status, errorMessage(resp))
	}
}

func errorMessage(resp *resty.Response) string {
	var body apiError
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(resp.Body()))
}
