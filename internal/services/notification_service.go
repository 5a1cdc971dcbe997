// internal/services/notification_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/licensing-portal/internal/config"
	"github.com/javajoker/licensing-portal/internal/models"
)

type NotificationService struct {
	config *config.Config
	send   func(to, subject, body string) error
}

type EmailTemplate struct {
	Subject string
	Body    string
}

func NewNotificationService(config *config.Config) *NotificationService {
	s := &NotificationService{config: config}
	s.send = s.sendEmail
	return s
}

// ApplicationAssigned tells the assigned officer about a new case.
func (s *NotificationService) ApplicationAssigned(ctx context.Context, app *models.Application) error {
	data := map[string]interface{}{
		"OfficerName":   app.OfficerIdentity,
		"ApplicantName": app.ApplicantName,
		"FirearmID":     app.FirearmID,
		"TimelineURL":   s.timelineURL(app),
	}
	return s.deliver(ctx, app.OfficerIdentity, "application_assigned", data)
}

// ApplicationTransitioned tells whoever must act next, or the dealer when the
// case is decided.
func (s *NotificationService) ApplicationTransitioned(ctx context.Context, app *models.Application, event *models.TransitionEvent) error {
	templateType, to := "", ""
	switch event.ToStatus {
	case models.StatusApproved, models.StatusRejected:
		templateType, to = "application_decided", app.DealerIdentity
	case models.StatusAwaitingInformation:
		templateType, to = "information_requested", app.DealerIdentity
	case models.StatusWithdrawn:
		templateType, to = "application_withdrawn", app.OfficerIdentity
	case models.StatusUnderReview:
		if event.Action == models.ActionStartReview {
			return nil
		}
		templateType, to = "review_resumed", app.OfficerIdentity
	default:
		return nil
	}

	data := map[string]interface{}{
		"ApplicantName": app.ApplicantName,
		"FirearmID":     app.FirearmID,
		"Status":        event.ToStatus,
		"Action":        event.Action,
		"Note":          event.Note,
		"Actor":         event.ActorIdentity,
		"TimelineURL":   s.timelineURL(app),
	}
	return s.deliver(ctx, to, templateType, data)
}

func (s *NotificationService) deliver(ctx context.Context, to, templateType string, data map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmpl := s.getEmailTemplate(templateType)
	subject, err := s.renderTemplate(tmpl.Subject, data)
	if err != nil {
		return fmt.Errorf("failed to render email subject: %w", err)
	}
	body, err := s.renderTemplate(tmpl.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.send(to, subject, body)
}

func (s *NotificationService) timelineURL(app *models.Application) string {
	return fmt.Sprintf("%s/applications/%s", s.config.Frontend.BaseURL, app.UID)
}

// Helper methods
func (s *NotificationService) sendEmail(to, subject, body string) error {
	if s.config.Email.SMTPHost == "" {
		logrus.WithFields(logrus.Fields{"to": to, "subject": subject}).Info("SMTP not configured, email not sent")
		return nil
	}

	auth := smtp.PlainAuth("", s.config.Email.SMTPUsername, s.config.Email.SMTPPassword, s.config.Email.SMTPHost)

	msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s", to, subject, body))

	addr := fmt.Sprintf("%s:%s", s.config.Email.SMTPHost, s.config.Email.SMTPPort)
	return smtp.SendMail(addr, auth, s.config.Email.FromEmail, []string{to}, msg)
}

func (s *NotificationService) renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("email").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *NotificationService) getEmailTemplate(templateType string) EmailTemplate {
	templates := map[string]EmailTemplate{
		"application_assigned": {
			Subject: "New application assigned: {{.FirearmID}}",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>New application assigned</h2>
	<p>Hello {{.OfficerName}},</p>
	<p>The licence application of {{.ApplicantName}} for firearm {{.FirearmID}} has been assigned to you for review.</p>
	<a href="{{.TimelineURL}}">Open application</a>
</body>
</html>`,
		},
		"application_decided": {
			Subject: "Application {{.Status}}: {{.FirearmID}}",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Application {{.Status}}</h2>
	<p>The licence application of {{.ApplicantName}} for firearm {{.FirearmID}} was {{.Status}} by {{.Actor}}.</p>
	{{if .Note}}<p>{{.Note}}</p>{{end}}
	<a href="{{.TimelineURL}}">View timeline</a>
</body>
</html>`,
		},
		"information_requested": {
			Subject: "Information requested: {{.FirearmID}}",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>More information needed</h2>
	<p>The reviewing officer needs more information on the application of {{.ApplicantName}}.</p>
	{{if .Note}}<p>{{.Note}}</p>{{end}}
	<a href="{{.TimelineURL}}">Respond</a>
</body>
</html>`,
		},
		"application_withdrawn": {
			Subject: "Application withdrawn: {{.FirearmID}}",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<p>The dealer withdrew the application of {{.ApplicantName}} for firearm {{.FirearmID}}.</p>
	<a href="{{.TimelineURL}}">View timeline</a>
</body>
</html>`,
		},
		"review_resumed": {
			Subject: "Application back in review: {{.FirearmID}}",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<p>The application of {{.ApplicantName}} is back under your review ({{.Action}} by {{.Actor}}).</p>
	{{if .Note}}<p>{{.Note}}</p>{{end}}
	<a href="{{.TimelineURL}}">Open application</a>
</body>
</html>`,
		},
	}

	if template, exists := templates[templateType]; exists {
		return template
	}

	return EmailTemplate{
		Subject: "Application update",
		Body:    "<p>Application {{.FirearmID}} is now {{.Status}}.</p>",
	}
}
