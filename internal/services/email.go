package services

import (
	"fmt"
	"net/smtp"

	"github.com/google/uuid"
	"github.com/nbhub/projects-api/internal/config"
)

// EmailService sends notification mail. All sends are best-effort: callers
// log failures and never fail the surrounding operation over them.
type EmailService struct {
	cfg     config.SMTPConfig
	baseURL string
}

func NewEmailService(cfg config.SMTPConfig, baseURL string) *EmailService {
	return &EmailService{cfg: cfg, baseURL: baseURL}
}

func (s *EmailService) IsConfigured() bool {
	return s.cfg.Host != "" && s.cfg.From != ""
}

func (s *EmailService) Send(to, subject, body string) error {
	if !s.IsConfigured() {
		return nil
	}

	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		s.cfg.From, to, subject, body)

	return smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg))
}

// SendShareInvite mails a sharing invite whose accept link embeds the
// invite id and its possession-proof token.
func (s *EmailService) SendShareInvite(to, owner, projectName string, inviteID uuid.UUID) error {
	token := InviteToken(inviteID, to)
	acceptURL := fmt.Sprintf("%s/sharing/invite/%s?token=%s", s.baseURL, inviteID, token)

	subject := "Sharing Invite - Notebook Workspace"
	body := fmt.Sprintf(`
		<p><strong>%s</strong> has invited you to share the project "%s" on the notebook workspace.
			To accept, click the link below and sign in if prompted.</p>

		<h5>Click below to accept the sharing invite</h5>
		<p><a href="%s">%s</a></p>
	`, owner, projectName, acceptURL, acceptURL)

	return s.Send(to, subject, body)
}

// SendPublished notifies the configured address that a project was
// published to the library.
func (s *EmailService) SendPublished(to string, projectID uuid.UUID, projectName string) error {
	previewURL := fmt.Sprintf("%s/library/%s", s.baseURL, projectID)

	subject := fmt.Sprintf("Project Published - %s", projectName)
	body := fmt.Sprintf(`
		<h4>%s</h4>
		<p>A new project has been published to the notebook workspace:</p>
		<p><a href="%s">%s</a></p>
	`, projectName, previewURL, previewURL)

	return s.Send(to, subject, body)
}
