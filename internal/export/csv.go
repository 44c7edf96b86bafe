// Package export renders the dashboard chart data as a spreadsheet-friendly CSV file.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/azure/carbon-dashboard/internal/models"
)

const (
	SectionTrend      = "Emission trend"
	SectionComparison = "Company comparison"
	SectionEfficiency = "Efficiency"

	allLabel = "All"
	noValue  = "-"
)

// ContentType of the rendered document
const ContentType = "text/csv; charset=utf-8"

// bom lets spreadsheet tools detect UTF-8 (the CO₂ unit and company names are not ASCII)
var bom = []byte{0xEF, 0xBB, 0xBF}

var header = []string{"Chart", "Company", "Period", "Emissions (t)", "Efficiency", "Note"}

// BuildCSV renders the trend series followed by the comparison rows, once as
// emissions and once as efficiency.
func BuildCSV(trend []models.TrendPoint, comparison []models.CompanyComparison) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(bom)

	w := csv.NewWriter(&buf)
	rows := [][]string{header}

	for _, p := range trend {
		company := p.Company
		if company == "" {
			company = allLabel
		}
		rows = append(rows, []string{SectionTrend, company, p.YearMonth, formatNumber(p.Emissions), noValue, "trend data"})
	}
	for _, c := range comparison {
		rows = append(rows, []string{SectionComparison, c.Name, allLabel, formatNumber(c.Emissions), formatNumber(c.Efficiency), "comparison data"})
	}
	for _, c := range comparison {
		rows = append(rows, []string{SectionEfficiency, c.Name, allLabel, noValue, formatNumber(c.Efficiency), "efficiency data"})
	}

	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}
	return buf.Bytes(), nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
