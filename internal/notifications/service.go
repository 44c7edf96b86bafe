package notifications

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/azure/carbon-dashboard/internal/config"
	"github.com/azure/carbon-dashboard/internal/metrics"
	"github.com/azure/carbon-dashboard/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Service sends digests and alerts to Teams and e-mail
type Service struct {
	config *config.Config
	client *resty.Client
	send   func(m *gomail.Message) error
}

// Ensure Service implements NotificationInterface
var _ NotificationInterface = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message card
type TeamsMessage struct {
	Type       string         `json:"@type"`
	Context    string         `json:"@context"`
	ThemeColor string         `json:"themeColor,omitempty"`
	Title      string         `json:"title"`
	Text       string         `json:"text"`
	Sections   []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle    string      `json:"activityTitle,omitempty"`
	ActivitySubtitle string      `json:"activitySubtitle,omitempty"`
	ActivityText     string      `json:"activityText,omitempty"`
	Facts            []TeamsFact `json:"facts,omitempty"`
	Markdown         bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

const (
	colorInfo    = "0078D4"
	colorWarning = "D13438"
)

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	s := &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
	s.send = func(m *gomail.Message) error {
		d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
		return d.DialAndSend(m)
	}
	return s
}

// SendReport delivers the digest on every configured channel. A failing channel
// does not stop the others; their errors are joined.
func (s *Service) SendReport(ctx context.Context, report *models.Report) error {
	return s.deliver(ctx, "report", s.buildTeamsMessage(report), func() (*gomail.Message, error) {
		return s.buildReportEmail(report)
	})
}

// SendAlert delivers an alert on every configured channel
func (s *Service) SendAlert(ctx context.Context, alert *models.Alert) error {
	return s.deliver(ctx, "alert", s.buildAlertMessage(alert), func() (*gomail.Message, error) {
		return s.buildAlertEmail(alert), nil
	})
}

func (s *Service) deliver(ctx context.Context, kind string, card *TeamsMessage, email func() (*gomail.Message, error)) error {
	var errs []string

	if s.config.TeamsWebhookURL != "" {
		if err := s.sendToTeams(ctx, card); err != nil {
			logrus.Errorf("Failed to send %s to Teams: %v", kind, err)
			errs = append(errs, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Infof("Successfully sent %s to Teams", kind)
		}
	}

	if s.config.NotificationEmail != "" {
		m, err := email()
		if err == nil {
			err = s.send(m)
		}
		if err != nil {
			logrus.Errorf("Failed to send %s via email: %v", kind, err)
			errs = append(errs, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Infof("Successfully sent %s via email", kind)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (s *Service) sendToTeams(ctx context.Context, message *TeamsMessage) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.TeamsWebhookURL)
	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	return nil
}

func (s *Service) buildTeamsMessage(report *models.Report) *TeamsMessage {
	message := &TeamsMessage{
		Type:       "MessageCard",
		Context:    "https://schema.org/extensions",
		ThemeColor: colorInfo,
		Title:      fmt.Sprintf("Carbon Emissions Digest - %s", report.Period),
		Text:       headline(report),
	}

	facts := []TeamsFact{
		{Name: "Generated", Value: report.GeneratedAt.Format("2006-01-02 15:04:05 UTC")},
		{Name: "Companies", Value: fmt.Sprintf("%d", len(report.Companies))},
		{Name: "Posts", Value: fmt.Sprintf("%d", report.TotalPosts)},
	}
	if m := report.Metrics; m != nil {
		facts = append(facts,
			TeamsFact{Name: "Total Emissions", Value: metrics.FormatEmissions(float64(m.TotalEmissions))},
			TeamsFact{Name: "Average per Company", Value: metrics.FormatEmissions(float64(m.AverageEmissions))},
			TeamsFact{Name: "Trend", Value: metrics.FormatPercentage(m.TrendPercentage)},
			TeamsFact{Name: "Top Emitter", Value: m.TopEmittingCompany},
		)
	}
	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle: "Summary",
		Facts:         facts,
		Markdown:      true,
	})

	if len(report.Companies) > 0 {
		var lines []string
		for _, c := range report.Companies {
			lines = append(lines, fmt.Sprintf("**%s** (%s) - %s, trend %s, efficiency %.2f",
				c.Name, c.Country, metrics.FormatEmissions(c.Emissions), metrics.FormatPercentage(c.Trend), c.Efficiency))
		}
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Companies",
			ActivityText:  strings.Join(lines, "\n\n"),
			Markdown:      true,
		})
	}

	if report.Error != "" {
		message.ThemeColor = colorWarning
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Load errors",
			ActivityText:  report.Error,
		})
	}

	return message
}

func (s *Service) buildAlertMessage(alert *models.Alert) *TeamsMessage {
	color := colorInfo
	if alert.Type == "warning" {
		color = colorWarning
	}
	return &TeamsMessage{
		Type:       "MessageCard",
		Context:    "https://schema.org/extensions",
		ThemeColor: color,
		Title:      alert.Title,
		Text:       alert.Message,
		Sections: []TeamsSection{{
			Facts: []TeamsFact{
				{Name: "Trend", Value: metrics.FormatPercentage(alert.Trend)},
				{Name: "Raised", Value: alert.CreatedAt.Format("2006-01-02 15:04:05 UTC")},
			},
		}},
	}
}

func headline(report *models.Report) string {
	if report.Metrics == nil {
		return fmt.Sprintf("Dashboard metrics were not available for the %s digest", report.Period)
	}
	return fmt.Sprintf("%s emitted across %d companies, trend %s (%s)",
		metrics.FormatEmissions(float64(report.Metrics.TotalEmissions)),
		report.Metrics.TotalCompanies,
		metrics.FormatPercentage(report.Metrics.TrendPercentage),
		metrics.TrendLevelOf(report.Metrics.TrendPercentage))
}

func (s *Service) buildReportEmail(report *models.Report) (*gomail.Message, error) {
	htmlBody, err := buildEmailHTML(report)
	if err != nil {
		return nil, fmt.Errorf("failed to build email HTML: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", fmt.Sprintf("Carbon Emissions Digest - %s", report.Period))
	m.SetBody("text/plain", buildEmailText(report))
	m.AddAlternative("text/html", htmlBody)
	return m, nil
}

func (s *Service) buildAlertEmail(alert *models.Alert) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", alert.Title)
	m.SetBody("text/plain", fmt.Sprintf("%s\n\nTrend: %s\nRaised: %s\n",
		alert.Message, metrics.FormatPercentage(alert.Trend), alert.CreatedAt.Format("2006-01-02 15:04:05 UTC")))
	return m
}

var emailTemplate = template.Must(template.New("email").Funcs(template.FuncMap{
	"emissions": metrics.FormatEmissions,
	"percent":   metrics.FormatPercentage,
	"tons":      func(v int64) string { return metrics.FormatEmissions(float64(v)) },
}).Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Carbon Emissions Digest</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #0078d4; color: white; padding: 20px; border-radius: 5px; }
        .summary { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .error { border-left: 4px solid #d13438; padding: 10px; background-color: #fafafa; }
        table { border-collapse: collapse; }
        td, th { padding: 4px 12px; text-align: left; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Carbon Emissions Digest</h1>
        <p>{{.Period}} digest generated on {{.GeneratedAt.Format "January 2, 2006 at 3:04 PM UTC"}}</p>
    </div>

    <div class="summary">
        <h2>Summary</h2>
        {{with .Metrics}}
        <p><strong>Total Emissions:</strong> {{tons .TotalEmissions}}</p>
        <p><strong>Average per Company:</strong> {{tons .AverageEmissions}}</p>
        <p><strong>Trend:</strong> {{percent .TrendPercentage}}</p>
        <p><strong>Top Emitter:</strong> {{.TopEmittingCompany}}</p>
        {{else}}
        <p>Dashboard metrics were not available.</p>
        {{end}}
        <p><strong>Posts:</strong> {{.TotalPosts}}</p>
    </div>

    {{if .Companies}}
    <h2>Companies</h2>
    <table>
        <tr><th>Company</th><th>Country</th><th>Emissions</th><th>Trend</th><th>Efficiency</th></tr>
        {{range .Companies}}
        <tr><td>{{.Name}}</td><td>{{.Country}}</td><td>{{emissions .Emissions}}</td><td>{{percent .Trend}}</td><td>{{printf "%.2f" .Efficiency}}</td></tr>
        {{end}}
    </table>
    {{end}}

    {{if .Error}}
    <div class="error"><strong>Load errors:</strong> {{.Error}}</div>
    {{end}}

    <hr>
    <p><small>This digest was generated automatically by the carbon emissions dashboard.</small></p>
</body>
</html>
`))

func buildEmailHTML(report *models.Report) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, report); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildEmailText(report *models.Report) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("Carbon Emissions Digest - %s\n", report.Period))
	text.WriteString(fmt.Sprintf("Generated: %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05 UTC")))

	text.WriteString("SUMMARY\n")
	text.WriteString("=======\n")
	if m := report.Metrics; m != nil {
		text.WriteString(fmt.Sprintf("Total Emissions: %s\n", metrics.FormatEmissions(float64(m.TotalEmissions))))
		text.WriteString(fmt.Sprintf("Average per Company: %s\n", metrics.FormatEmissions(float64(m.AverageEmissions))))
		text.WriteString(fmt.Sprintf("Trend: %s\n", metrics.FormatPercentage(m.TrendPercentage)))
		text.WriteString(fmt.Sprintf("Top Emitter: %s\n", m.TopEmittingCompany))
	} else {
		text.WriteString("Dashboard metrics were not available.\n")
	}
	text.WriteString(fmt.Sprintf("Posts: %d\n", report.TotalPosts))

	if len(report.Companies) > 0 {
		text.WriteString("\nCOMPANIES\n")
		text.WriteString("=========\n")
		for i, c := range report.Companies {
			text.WriteString(fmt.Sprintf("%d. %s (%s): %s, trend %s, efficiency %.2f\n",
				i+1, c.Name, c.Country, metrics.FormatEmissions(c.Emissions), metrics.FormatPercentage(c.Trend), c.Efficiency))
		}
	}

	if report.Error != "" {
		text.WriteString(fmt.Sprintf("\nLoad errors: %s\n", report.Error))
	}

	text.WriteString("\n---\nThis digest was generated automatically by the carbon emissions dashboard.\n")
	return text.String()
}
