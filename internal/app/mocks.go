package app

import (
	"dropnest_backend/internal/email"
	"dropnest_backend/internal/logger"
)

// MockEmailProvider logs instead of sending. Used when SMTP is not
// configured so local development never needs a mail server.
type MockEmailProvider struct{}

func (m *MockEmailProvider) Send(e *email.Email) error {
	logger.Info("mock email", "to", e.To, "subject", e.Subject)
	return nil
}

func (m *MockEmailProvider) SendTemplate(to []string, subject string, templateName string, data email.TemplateData) error {
	logger.Info("mock email", "to", to, "subject", subject, "template", templateName)
	return nil
}

func (m *MockEmailProvider) Validate() error { return nil }

func (m *MockEmailProvider) Close() error { return nil }
