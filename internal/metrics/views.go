package metrics

import (
	"sort"

	"github.com/azure/carbon-dashboard/internal/models"
)

// TimeSeries builds the monthly trend chart. With a company id it returns that
// company's records; otherwise every company is summed per YYYY-MM. Points are
// sorted by period. An unknown company id yields an empty series.
func TimeSeries(companies []models.Company, companyID string) []models.TrendPoint {
	if companyID != "" {
		for _, company := range companies {
			if company.ID != companyID {
				continue
			}
			points := make([]models.TrendPoint, 0, len(company.Emissions))
			for _, e := range company.Emissions {
				points = append(points, models.TrendPoint{
					Month:     MonthName(e.YearMonth),
					YearMonth: e.YearMonth,
					Emissions: e.Emissions,
					Companies: 1,
					Company:   company.Name,
				})
			}
			sortPoints(points)
			return points
		}
		return []models.TrendPoint{}
	}

	byPeriod := make(map[string]*models.TrendPoint)
	var points []*models.TrendPoint
	for _, company := range companies {
		for _, e := range company.Emissions {
			if p, ok := byPeriod[e.YearMonth]; ok {
				p.Emissions += e.Emissions
				p.Companies++
				continue
			}
			p := &models.TrendPoint{
				Month:     MonthName(e.YearMonth),
				YearMonth: e.YearMonth,
				Emissions: e.Emissions,
				Companies: 1,
			}
			byPeriod[e.YearMonth] = p
			points = append(points, p)
		}
	}

	out := make([]models.TrendPoint, 0, len(points))
	for _, p := range points {
		out = append(out, *p)
	}
	sortPoints(out)
	return out
}

func sortPoints(points []models.TrendPoint) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].YearMonth < points[j].YearMonth
	})
}

// CompareCompanies builds one comparison row per company, in input order
func CompareCompanies(companies []models.Company) []models.CompanyComparison {
	rows := make([]models.CompanyComparison, 0, len(companies))
	for _, company := range companies {
		total := CompanyTotal(company)

		row := models.CompanyComparison{
			ID:        company.ID,
			Name:      company.Name,
			Country:   company.Country,
			Emissions: total,
		}
		if n := len(company.Emissions); n > 0 {
			row.AvgEmissions = total / float64(n)
		}
		if n := len(company.Emissions); n > 1 {
			records := chronological(company.Emissions)
			if first := records[0].Emissions; first > 0 {
				row.Trend = round2((records[n-1].Emissions - first) / first * 100)
			}
		}
		if total > 0 {
			row.Efficiency = round2(1000 / total)
		}
		rows = append(rows, row)
	}
	return rows
}

// chronological returns a copy of records sorted by period
func chronological(records []models.EmissionRecord) []models.EmissionRecord {
	out := append([]models.EmissionRecord(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].YearMonth < out[j].YearMonth
	})
	return out
}
