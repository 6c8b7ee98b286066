package service

import (
	"context"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"lingoquest/internal/config"
	"lingoquest/internal/logger"
	"lingoquest/internal/models"
	"lingoquest/internal/progress"
)

// emailSender is the SES call the service needs
type emailSender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client     emailSender
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	log        *logger.Logger
}

// NewEmailService creates a new email service. Without a sender address the
// service is created disabled and every send is skipped.
func NewEmailService(ctx context.Context, cfg config.EmailConfig, log *logger.Logger) (*EmailService, error) {
	log = log.With("service", "EmailService")

	if cfg.FromEmail == "" {
		log.Info("Email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false, log: log}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Info("Email service enabled", "from", cfg.FromEmail, "region", cfg.AWSRegion)
	return &EmailService{
		client:     sesv2.NewFromConfig(awsCfg),
		fromEmail:  cfg.FromEmail,
		fromName:   cfg.FromName,
		appBaseURL: strings.TrimRight(cfg.AppBaseURL, "/"),
		enabled:    true,
		log:        log,
	}, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// NotifyBadges tells a learner's parent about newly earned badges
func (s *EmailService) NotifyBadges(ctx context.Context, learner *models.Learner, badges []progress.BadgeCondition) error {
	if len(badges) == 0 || !learner.HasParentEmail() {
		return nil
	}
	if !s.enabled {
		s.log.Debug("Skipping badge email (service disabled)", "learner_id", learner.ID)
		return nil
	}

	subject, htmlBody, textBody := renderBadgeEmail(learner.DisplayName, badges, s.appBaseURL)
	return s.sendEmail(ctx, learner.ParentEmail, subject, htmlBody, textBody)
}

var badgeEmailHTML = htmltemplate.Must(htmltemplate.New("badge_html").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; color: #333; background: #fdf6e3;">
	<table role="presentation" width="100%" style="max-width: 560px; margin: 0 auto;">
		<tr><td style="background: #2a9d8f; color: #fff; padding: 16px 24px; border-radius: 8px 8px 0 0;">
			<h2 style="margin: 0;">{{.Name}} unlocked {{if eq (len .Badges) 1}}a badge{{else}}{{len .Badges}} badges{{end}}</h2>
		</td></tr>
		<tr><td style="background: #fff; padding: 24px;">
			{{range .Badges}}<p><strong>{{.Name}}</strong><br>{{.Description}}</p>
			{{end}}{{if .AppURL}}<p><a href="{{.AppURL}}">Open LingoQuest</a> to see the full progress report.</p>{{end}}
		</td></tr>
		<tr><td style="font-size: 12px; color: #888; padding: 12px 24px;">You receive this because your address is on {{.Name}}'s LingoQuest profile.</td></tr>
	</table>
</body>
</html>
`))

var badgeEmailText = texttemplate.Must(texttemplate.New("badge_text").Parse(`{{.Name}} unlocked {{if eq (len .Badges) 1}}a badge{{else}}{{len .Badges}} badges{{end}} on LingoQuest:
{{range .Badges}}
  * {{.Name}}: {{.Description}}{{end}}
{{if .AppURL}}
Full progress report: {{.AppURL}}
{{end}}
You receive this because your address is on {{.Name}}'s LingoQuest profile.
`))

type badgeEmailData struct {
	Name   string
	Badges []progress.BadgeCondition
	AppURL string
}

func renderBadgeEmail(name string, badges []progress.BadgeCondition, appBaseURL string) (subject, htmlBody, textBody string) {
	if len(badges) == 1 {
		subject = fmt.Sprintf("%s earned the %s badge!", name, badges[0].Name)
	} else {
		subject = fmt.Sprintf("%s earned %d new badges!", name, len(badges))
	}

	data := badgeEmailData{Name: name, Badges: badges, AppURL: appBaseURL}
	var hb, tb strings.Builder
	// strings.Builder never fails a write, so Execute cannot error here.
	_ = badgeEmailHTML.Execute(&hb, data)
	_ = badgeEmailText.Execute(&tb, data)
	return subject, hb.String(), tb.String()
}

func utf8Content(data string) *types.Content {
	return &types.Content{Data: aws.String(data), Charset: aws.String("UTF-8")}
}

// sendEmail sends one message through SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	from := s.fromEmail
	if s.fromName != "" {
		from = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: []string{toEmail}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: utf8Content(subject),
				Body:    &types.Body{Html: utf8Content(htmlBody), Text: utf8Content(textBody)},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send badge email: %w", err)
	}
	s.log.Info("Email sent", "subject", subject, "message_id", aws.ToString(out.MessageId))
	return nil
}
