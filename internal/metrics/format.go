package metrics

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TrendLevel is a coarse reading of a trend percentage
type TrendLevel string

const (
	TrendRising  TrendLevel = "rising"
	TrendFalling TrendLevel = "falling"
	TrendStable  TrendLevel = "stable"
)

// trendBand is the +/- percentage inside which a trend reads as stable
const trendBand = 5.0

// TrendLevelOf classifies a trend percentage
func TrendLevelOf(trend float64) TrendLevel {
	switch {
	case trend > trendBand:
		return TrendRising
	case trend < -trendBand:
		return TrendFalling
	default:
		return TrendStable
	}
}

// FormatEmissions renders tons of CO2 for display
func FormatEmissions(emissions float64) string {
	if emissions >= 1000 {
		return fmt.Sprintf("%.1fK t CO₂", emissions/1000)
	}
	return strconv.FormatFloat(emissions, 'f', -1, 64) + " t CO₂"
}

// FormatPercentage renders a signed percentage with one decimal
func FormatPercentage(value float64) string {
	sign := ""
	if value >= 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.1f%%", sign, value)
}

// MonthName returns the short month name of a YYYY-MM period, or the input when it does not parse
func MonthName(yearMonth string) string {
	t, err := time.Parse("2006-01", strings.TrimSpace(yearMonth))
	if err != nil {
		return yearMonth
	}
	return t.Format("Jan")
}
