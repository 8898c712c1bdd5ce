package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"os"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
)

type EmailService struct {
	context.DefaultService

	smtpHost     string
	smtpPort     string
	smtpUsername string
	smtpPassword string
	fromEmail    string
	fromName     string
	baseURL      string

	templates map[string]*template.Template
	sendMail  func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

const EMAIL_SVC = "email_svc"

const appName = "EcoTale"

type PasswordResetEmailData struct {
	AppName     string
	DisplayName string
	ResetURL    string
}

type WelcomeEmailData struct {
	AppName     string
	DisplayName string
	AppURL      string
}

type ReportResolvedEmailData struct {
	AppName     string
	DisplayName string
	Subject     string
	ReportID    string
}

func (svc EmailService) Id() string {
	return EMAIL_SVC
}

func (svc *EmailService) Configure(ctx *context.Context) error {
	svc.smtpHost = os.Getenv("SMTP_HOST")
	svc.smtpPort = os.Getenv("SMTP_PORT")
	svc.smtpUsername = os.Getenv("SMTP_USERNAME")
	svc.smtpPassword = os.Getenv("SMTP_PASSWORD")
	svc.fromEmail = os.Getenv("FROM_EMAIL")
	svc.fromName = os.Getenv("FROM_NAME")
	svc.baseURL = os.Getenv("BASE_URL")

	if svc.smtpPort == "" {
		svc.smtpPort = "587"
	}
	if svc.fromName == "" {
		svc.fromName = appName
	}
	if svc.baseURL == "" {
		svc.baseURL = "http://localhost:8000"
	}

	svc.templates = make(map[string]*template.Template)
	svc.sendMail = smtp.SendMail

	return svc.DefaultService.Configure(ctx)
}

func (svc *EmailService) Start() error {
	err := svc.loadTemplates()
	if err != nil {
		log.WithError(err).Error("Failed to load email templates")
	}

	return nil
}

func (svc *EmailService) BaseURL() string {
	return svc.baseURL
}

const emailLayoutHTML = `
{{define "layout"}}
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{template "title" .}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #2F855A; color: white; padding: 20px; text-align: center; }
        .content { padding: 20px; background-color: #f9f9f9; }
        .button { display: inline-block; padding: 12px 24px; background-color: #2F855A; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
        .footer { padding: 20px; text-align: center; color: #666; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header"><h1>{{template "title" .}}</h1></div>
        <div class="content">{{template "body" .}}</div>
        <div class="footer"><p>&copy; {{.AppName}}. Learn, play and protect the planet.</p></div>
    </div>
</body>
</html>
{{end}}
`

const passwordResetEmailHTML = `
{{define "title"}}Reset Your Password{{end}}
{{define "body"}}
<h2>Hi {{.DisplayName}},</h2>
<p>We received a request to reset the password of your {{.AppName}} account.</p>
<a href="{{.ResetURL}}" class="button">Reset Password</a>
<p>If the button doesn't work, copy this link into your browser:</p>
<p><a href="{{.ResetURL}}">{{.ResetURL}}</a></p>
<p>If you didn't request a reset, you can ignore this email.</p>
{{end}}
`

const welcomeEmailHTML = `
{{define "title"}}Welcome to {{.AppName}}!{{end}}
{{define "body"}}
<h2>Hi {{.DisplayName}},</h2>
<p>Your account is ready. Pick a story, make your choices and see how they shape the environment.</p>
<a href="{{.AppURL}}" class="button">Start a Story</a>
<p>Your first badge, Newcomer, is already waiting on your profile.</p>
{{end}}
`

const reportResolvedEmailHTML = `
{{define "title"}}Your Report Was Resolved{{end}}
{{define "body"}}
<h2>Hi {{.DisplayName}},</h2>
<p>Our team finished handling your report <strong>{{.Subject}}</strong> (#{{.ReportID}}).</p>
<p>Thank you for helping us make {{.AppName}} better.</p>
{{end}}
`

func (svc *EmailService) loadTemplates() error {
	pages := map[string]string{
		"password_reset":  passwordResetEmailHTML,
		"welcome":         welcomeEmailHTML,
		"report_resolved": reportResolvedEmailHTML,
	}

	for name, page := range pages {
		tmpl, err := template.New(name).Parse(emailLayoutHTML)
		if err == nil {
			tmpl, err = tmpl.Parse(page)
		}
		if err != nil {
			return fmt.Errorf("failed to parse %s email template: %v", name, err)
		}
		svc.templates[name] = tmpl
	}

	return nil
}

func (svc *EmailService) SendPasswordResetEmail(email, displayName, resetURL string) error {
	if svc.smtpHost == "" {
		log.Warn("SMTP not configured, skipping password reset email")
		return nil
	}

	data := PasswordResetEmailData{
		AppName:     appName,
		DisplayName: displayName,
		ResetURL:    resetURL,
	}

	return svc.sendTemplateEmail(email, "Reset Your Password - "+appName, "password_reset", data)
}

func (svc *EmailService) SendWelcomeEmail(email, displayName string) error {
	if svc.smtpHost == "" {
		log.Warn("SMTP not configured, skipping welcome email")
		return nil
	}

	data := WelcomeEmailData{
		AppName:     appName,
		DisplayName: displayName,
		AppURL:      svc.baseURL,
	}

	return svc.sendTemplateEmail(email, "Welcome to "+appName, "welcome", data)
}

func (svc *EmailService) SendReportResolvedEmail(email, displayName, subject, reportID string) error {
	if svc.smtpHost == "" {
		log.Warn("SMTP not configured, skipping report resolved email")
		return nil
	}

	data := ReportResolvedEmailData{
		AppName:     appName,
		DisplayName: displayName,
		Subject:     subject,
		ReportID:    reportID,
	}

	return svc.sendTemplateEmail(email, "Your report was resolved - "+appName, "report_resolved", data)
}

func (svc *EmailService) sendTemplateEmail(to, subject, templateName string, data interface{}) error {
	tmpl, exists := svc.templates[templateName]
	if !exists {
		return fmt.Errorf("template %s not found", templateName)
	}

	var body bytes.Buffer
	err := tmpl.ExecuteTemplate(&body, "layout", data)
	if err != nil {
		return fmt.Errorf("failed to execute template: %v", err)
	}

	return svc.sendEmail(to, subject, body.String())
}

func (svc *EmailService) sendEmail(to, subject, body string) error {
	if svc.smtpHost == "" {
		return fmt.Errorf("SMTP not configured")
	}

	auth := smtp.PlainAuth("", svc.smtpUsername, svc.smtpPassword, svc.smtpHost)

	msg := []byte(fmt.Sprintf(
		"From: %s <%s>\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s",
		svc.fromName, svc.fromEmail, to, subject, body))

	err := svc.sendMail(
		svc.smtpHost+":"+svc.smtpPort,
		auth,
		svc.fromEmail,
		[]string{to},
		msg,
	)

	if err != nil {
		log.WithError(err).WithFields(log.Fields{"to": to, "subject": subject}).Error("Failed to send email")
		return fmt.Errorf("failed to send email: %v", err)
	}

	log.WithFields(log.Fields{"to": to, "subject": subject}).Info("Email sent successfully")
	return nil
}
