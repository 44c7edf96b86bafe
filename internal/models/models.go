package models

import "time"

// EmissionRecord is one company's reported output for one calendar month from one source
type EmissionRecord struct {
	YearMonth string  `json:"yearMonth"` // zero-padded YYYY-MM
	Source    string  `json:"source"`
	Emissions float64 `json:"emissions"` // metric tons CO2
}

// Company owns its emission records. Records are not guaranteed to be sorted by period.
type Company struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Country   string           `json:"country"` // country code, not enforced
	Emissions []EmissionRecord `json:"emissions"`
}

// Clone returns a deep copy of the company
func (c Company) Clone() Company {
	out := c
	if c.Emissions != nil {
		out.Emissions = make([]EmissionRecord, len(c.Emissions))
		copy(out.Emissions, c.Emissions)
	}
	return out
}

// Post is an editorial entry describing a sustainability report
type Post struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	ResourceUID string `json:"resourceUid"` // Company.ID
	DateTime    string `json:"dateTime"`    // YYYY-MM
	Content     string `json:"content"`
}

// PostInput is the create-or-update payload; an empty ID means create
type PostInput struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	ResourceUID string `json:"resourceUid"`
	DateTime    string `json:"dateTime"`
	Content     string `json:"content"`
}

// Country is static reference data
type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Flag string `json:"flag"`
}

// DashboardMetrics is recomputed wholesale on each load cycle
type DashboardMetrics struct {
	TotalEmissions     int64   `json:"totalEmissions"`
	AverageEmissions   int64   `json:"averageEmissions"`
	TrendPercentage    float64 `json:"trendPercentage"`
	TopEmittingCompany string  `json:"topEmittingCompany"`
	TotalCompanies     int     `json:"totalCompanies"`
}

// LoadingState tracks the fetch lifecycle of a single resource
type LoadingState string

const (
	LoadingIdle    LoadingState = "idle"
	LoadingActive  LoadingState = "loading"
	LoadingSuccess LoadingState = "success"
	LoadingError   LoadingState = "error"
)

// Resource names one of the independently loaded dashboard slices
type Resource string

const (
	ResourceCompanies Resource = "companies"
	ResourcePosts     Resource = "posts"
	ResourceCountries Resource = "countries"
	ResourceMetrics   Resource = "metrics"
)

// Resources lists every tracked resource in a stable order
var Resources = []Resource{ResourceCompanies, ResourcePosts, ResourceCountries, ResourceMetrics}

// TrendPoint is one month on the emissions trend chart
type TrendPoint struct {
	Month     string  `json:"month"`     // short month name
	YearMonth string  `json:"yearMonth"` // YYYY-MM
	Emissions float64 `json:"emissions"`
	Companies int     `json:"companies"` // number of companies contributing to the point
	Company   string  `json:"company,omitempty"`
}

// CompanyComparison is one bar on the company comparison chart
type CompanyComparison struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Country      string  `json:"country"`
	Emissions    float64 `json:"emissions"`
	AvgEmissions float64 `json:"avgEmissions"`
	Trend        float64 `json:"trend"`      // first-to-last record change in percent
	Efficiency   float64 `json:"efficiency"` // 1000 / total, two decimals
}

// Report is a periodic dashboard digest
type Report struct {
	GeneratedAt time.Time                 `json:"generated_at"`
	Period      string                    `json:"period"`
	Metrics     *DashboardMetrics         `json:"metrics,omitempty"`
	Companies   []CompanyComparison       `json:"companies"`
	TotalPosts  int                       `json:"total_posts"`
	Statuses    map[Resource]LoadingState `json:"statuses"`
	Error       string                    `json:"error,omitempty"`
	Summary     map[string]interface{}    `json:"summary"`
}

// Alert represents an urgent notification
type Alert struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"` // "warning", "info", "success"
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Trend     float64   `json:"trend"`
	CreatedAt time.Time `json:"created_at"`
}
