package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"contacts-api/internal/logging"
)

// Service delivers verification mail over SMTP. Callers are expected to
// invoke it from a goroutine and treat failures as non-fatal.
type Service struct {
	smtpHost     string
	smtpPort     string
	smtpUser     string
	smtpPassword string
	fromEmail    string
	fromName     string
	baseURL      string
}

func NewService(smtpHost, smtpPort, smtpUser, smtpPassword, fromName, baseURL string) *Service {
	return &Service{
		smtpHost:     smtpHost,
		smtpPort:     smtpPort,
		smtpUser:     smtpUser,
		smtpPassword: smtpPassword,
		fromEmail:    smtpUser,
		fromName:     fromName,
		baseURL:      baseURL,
	}
}

// SendVerificationEmail sends a one-shot confirmation link containing the
// email token.
func (s *Service) SendVerificationEmail(ctx context.Context, toEmail, username, token string) error {
	logger := logging.GetLoggerFromContext(ctx)

	confirmationLink := fmt.Sprintf("%s/api/auth/confirmed_email/%s", s.baseURL, token)

	subject := "Confirm your email"
	body, err := renderVerificationEmail(username, confirmationLink)
	if err != nil {
		logger.Error("failed to render email template", "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sendEmail(toEmail, subject, body); err != nil {
		logger.Error("failed to send verification email", "email", toEmail, "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("verification email sent", "email", toEmail)
	return nil
}

func (s *Service) sendEmail(to, subject, body string) error {
	auth := smtp.PlainAuth("", s.smtpUser, s.smtpPassword, s.smtpHost)

	msg := []byte(fmt.Sprintf(
		"From: %s <%s>\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		s.fromName, s.fromEmail, to, subject, body,
	))

	addr := fmt.Sprintf("%s:%s", s.smtpHost, s.smtpPort)
	return smtp.SendMail(addr, auth, s.fromEmail, []string{to}, msg)
}

var verificationTemplate = template.Must(template.New("verification").Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body {
            font-family: Arial, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 600px;
            margin: 0 auto;
            padding: 20px;
        }
        .button {
            display: inline-block;
            background-color: #4F46E5;
            color: white !important;
            padding: 12px 30px;
            text-decoration: none;
            border-radius: 5px;
            margin: 20px 0;
        }
        .footer {
            margin-top: 30px;
            font-size: 12px;
            color: #666;
        }
    </style>
</head>
<body>
    <h2>Hi {{.Username}},</h2>
    <p>Thank you for signing up! Please confirm your email address to activate your account.</p>

    <a href="{{.ConfirmationLink}}" class="button" style="color: white !important;">Confirm Email</a>

    <p>Or copy and paste this link into your browser:</p>
    <p style="word-break: break-all; color: #4F46E5;">{{.ConfirmationLink}}</p>

    <p>If you didn't create an account, you can safely ignore this email.</p>
    <div class="footer">
        <p>This link will expire in 7 days.</p>
    </div>
</body>
</html>
`))

func renderVerificationEmail(username, confirmationLink string) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Username         string
		ConfirmationLink string
	}{
		Username:         username,
		ConfirmationLink: confirmationLink,
	}

	if err := verificationTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	return buf.String(), nil
}
