// Package email notifies the site admin about new submissions, reports and paid
// features through AWS SES.
package email

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/affiliateboard/backend/internal/config"
	"github.com/affiliateboard/backend/internal/models"
)

// sendAPI is the subset of the SES client the notifier needs
type sendAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESNotifier mails admin notifications through AWS SES
type SESNotifier struct {
	client    sendAPI
	fromEmail string
	fromName  string
	adminTo   string
	baseURL   string
}

// NewSESNotifier creates a notifier from cfg. It returns nil, nil when no admin
// address or sender is configured.
func NewSESNotifier(ctx context.Context, cfg config.EmailConfig, baseURL string) (*SESNotifier, error) {
	if cfg.AdminEmail == "" || cfg.FromEmail == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return newSESNotifier(ses.NewFromConfig(awsCfg), cfg, baseURL), nil
}

func newSESNotifier(client sendAPI, cfg config.EmailConfig, baseURL string) *SESNotifier {
	return &SESNotifier{
		client:    client,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		adminTo:   cfg.AdminEmail,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
	}
}

// ProgramSubmitted tells the admin a new listing is waiting for review
func (e *SESNotifier) ProgramSubmitted(ctx context.Context, program *models.Program) error {
	if program == nil {
		return errors.New("nil program")
	}
	subject := fmt.Sprintf("New submission: %s", program.Name)
	lines := []string{
		fmt.Sprintf("%s was submitted to the directory and is waiting for review.", program.Name),
		fmt.Sprintf("Category: %s", program.Category),
		fmt.Sprintf("Website: %s", program.WebsiteURL),
		fmt.Sprintf("Affiliate page: %s", program.AffiliateURL),
	}
	return e.send(ctx, subject, lines, e.adminURL("/admin/programs/"+program.ID))
}

// ReportFiled tells the admin a moderation ticket was opened
func (e *SESNotifier) ReportFiled(ctx context.Context, report *models.ProgramReport) error {
	if report == nil {
		return errors.New("nil report")
	}
	subject := fmt.Sprintf("New %s ticket", strings.ToLower(report.Type))
	lines := []string{
		fmt.Sprintf("A %s ticket was filed against program %s.", strings.ToLower(report.Type), report.ProgramID),
	}
	if report.Message != "" {
		lines = append(lines, "Message: "+report.Message)
	}
	if report.ReporterEmail != "" {
		lines = append(lines, "Reporter: "+report.ReporterEmail)
	}
	return e.send(ctx, subject, lines, e.adminURL("/admin/reports"))
}

// ProgramFeatured tells the admin a feature payment went through
func (e *SESNotifier) ProgramFeatured(ctx context.Context, program *models.Program) error {
	if program == nil {
		return errors.New("nil program")
	}
	lines := []string{fmt.Sprintf("%s is now featured.", program.Name)}
	if program.FeaturedExpiresAt != nil {
		lines = append(lines, "Feature expires: "+program.FeaturedExpiresAt.UTC().Format(time.RFC1123))
	}
	return e.send(ctx, fmt.Sprintf("Featured listing paid: %s", program.Name), lines, e.adminURL("/admin/programs/"+program.ID))
}

func (e *SESNotifier) adminURL(path string) string {
	return e.baseURL + path
}

// send renders lines as plain text and a minimal HTML body with a link
func (e *SESNotifier) send(ctx context.Context, subject string, lines []string, link string) error {
	textBody := strings.Join(lines, "\n") + "\n\n" + link + "\n"

	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head><meta charset="UTF-8"></head><body>`)
	for _, line := range lines {
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(line))
		b.WriteString("</p>")
	}
	fmt.Fprintf(&b, `<p><a href="%s">Open in admin</a></p></body></html>`, html.EscapeString(link))

	from := e.fromEmail
	if e.fromName != "" {
		from = fmt.Sprintf("%s <%s>", e.fromName, e.fromEmail)
	}

	input := &ses.SendEmailInput{
		Source: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{e.adminTo},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data:    aws.String(b.String()),
					Charset: aws.String("UTF-8"),
				},
				Text: &types.Content{
					Data:    aws.String(textBody),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	if _, err := e.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send %q: %w", subject, err)
	}
	return nil
}
