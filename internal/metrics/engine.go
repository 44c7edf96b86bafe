// Package metrics turns a snapshot of companies into dashboard aggregates and chart views.
package metrics

import (
	"errors"
	"math"
	"sort"

	"github.com/azure/carbon-dashboard/internal/models"
	"github.com/shopspring/decimal"
)

// ErrEmptyDataset is returned when there are no emission records to aggregate
var ErrEmptyDataset = errors.New("metrics: no emission records to aggregate")

// trendWindow is the number of pooled records in each side of the trend comparison
const trendWindow = 3

type pooledRecord struct {
	company   string
	yearMonth string
	emissions float64
}

// Compute aggregates the companies into dashboard metrics. It is pure and
// fails with ErrEmptyDataset when there are no companies or no records.
func Compute(companies []models.Company) (models.DashboardMetrics, error) {
	if len(companies) == 0 {
		return models.DashboardMetrics{}, ErrEmptyDataset
	}

	var pooled []pooledRecord
	for _, company := range companies {
		for _, e := range company.Emissions {
			pooled = append(pooled, pooledRecord{company: company.Name, yearMonth: e.YearMonth, emissions: e.Emissions})
		}
	}
	if len(pooled) == 0 {
		return models.DashboardMetrics{}, ErrEmptyDataset
	}

	total := 0.0
	for _, r := range pooled {
		total += r.emissions
	}
	average := total / float64(len(pooled))

	return models.DashboardMetrics{
		TotalEmissions:     int64(math.Round(total)),
		AverageEmissions:   int64(math.Round(average)),
		TrendPercentage:    trendPercentage(pooled),
		TopEmittingCompany: topEmitter(companies),
		TotalCompanies:     len(companies),
	}, nil
}

// trendPercentage compares the last three pooled records against the three
// before them. Records from all companies are pooled before slicing.
func trendPercentage(pooled []pooledRecord) float64 {
	sorted := make([]pooledRecord, len(pooled))
	copy(sorted, pooled)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].yearMonth < sorted[j].yearMonth
	})

	n := len(sorted)
	recentStart := max(n-trendWindow, 0)
	previousStart := max(n-2*trendWindow, 0)

	recent := sum(sorted[recentStart:])
	previous := sum(sorted[previousStart:recentStart])
	if previous <= 0 {
		return 0
	}

	return round2((recent - previous) / previous * 100)
}

// topEmitter returns the company with the strictly largest total; ties keep the first seen
func topEmitter(companies []models.Company) string {
	top := companies[0].Name
	topTotal := CompanyTotal(companies[0])
	for _, company := range companies[1:] {
		if total := CompanyTotal(company); total > topTotal {
			top, topTotal = company.Name, total
		}
	}
	return top
}

// CompanyTotal sums a company's own emission records
func CompanyTotal(company models.Company) float64 {
	total := 0.0
	for _, e := range company.Emissions {
		total += e.Emissions
	}
	return total
}

func sum(records []pooledRecord) float64 {
	total := 0.0
	for _, r := range records {
		total += r.emissions
	}
	return total
}

func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
