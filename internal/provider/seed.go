package provider

import "github.com/azure/carbon-dashboard/internal/models"

// Seed is the initial content of a MockProvider
type Seed struct {
	Countries []models.Country
	Companies []models.Company
	Posts     []models.Post
}

func monthly(source string, values ...float64) []models.EmissionRecord {
	periods := []string{"2024-01", "2024-02", "2024-03", "2024-04", "2024-05", "2024-06"}
	records := make([]models.EmissionRecord, 0, len(values))
	for i, v := range values {
		records = append(records, models.EmissionRecord{YearMonth: periods[i], Source: source, Emissions: v})
	}
	return records
}

// DefaultSeed returns the demo data set: eight countries, five companies
// reporting six months each, and one post per company.
func DefaultSeed() Seed {
	return Seed{
		Countries: []models.Country{
			{Code: "US", Name: "United States", Flag: "🇺🇸"},
			{Code: "DE", Name: "Germany", Flag: "🇩🇪"},
			{Code: "JP", Name: "Japan", Flag: "🇯🇵"},
			{Code: "CN", Name: "China", Flag: "🇨🇳"},
			{Code: "GB", Name: "United Kingdom", Flag: "🇬🇧"},
			{Code: "FR", Name: "France", Flag: "🇫🇷"},
			{Code: "CA", Name: "Canada", Flag: "🇨🇦"},
			{Code: "AU", Name: "Australia", Flag: "🇦🇺"},
		},
		Companies: []models.Company{
			{ID: "c1", Name: "Acme Corporation", Country: "US", Emissions: monthly("gasoline", 120, 110, 95, 88, 92, 105)},
			{ID: "c2", Name: "Globex Industries", Country: "DE", Emissions: monthly("diesel", 80, 105, 120, 95, 110, 125)},
			{ID: "c3", Name: "Techflow Solutions", Country: "JP", Emissions: monthly("lpg", 45, 52, 48, 55, 58, 62)},
			{ID: "c4", Name: "Greentech Innovation", Country: "CN", Emissions: monthly("coal", 200, 185, 170, 160, 155, 145)},
			{ID: "c5", Name: "Ecosystems Limited", Country: "GB", Emissions: monthly("natural gas", 75, 82, 78, 85, 88, 92)},
		},
		Posts: []models.Post{
			{
				ID: "p1", Title: "Q1 2024 Sustainability Report", ResourceUID: "c1", DateTime: "2024-02",
				Content: "Acme Corporation cut emissions by 8% against Q4 2023, driven by fleet electrification and renewable energy adoption.",
			},
			{
				ID: "p2", Title: "Carbon Neutral Roadmap", ResourceUID: "c2", DateTime: "2024-03",
				Content: "Globex Industries announced a plan to reach carbon neutrality by 2030, including investment in clean technology and process optimization.",
			},
			{
				ID: "p3", Title: "Green Energy Transition Update", ResourceUID: "c3", DateTime: "2024-04",
				Content: "Techflow Solutions reported a 15% reduction after installing solar panels and upgrading to energy-efficient equipment.",
			},
			{
				ID: "p4", Title: "Environmental Compliance Review", ResourceUID: "c4", DateTime: "2024-05",
				Content: "Greentech Innovation completed a full environmental audit. All facilities now meet international carbon standards.",
			},
			{
				ID: "p5", Title: "Sustainable Operations Initiative", ResourceUID: "c5", DateTime: "2024-06",
				Content: "Ecosystems Limited launched a sustainable operations program focused on waste reduction and circular economy principles.",
			},
		},
	}
}
