package services

import (
	"encoding/json"
	"fmt"

	"dropnest_backend/internal/email"
	"dropnest_backend/internal/logger"
	"dropnest_backend/internal/models"
	"dropnest_backend/internal/verification"
)

// NotificationService sends outbound mail. Delivery is best-effort: a mail
// failure is logged and never propagated into the request that triggered it.
type NotificationService interface {
	SendVerificationCode(to string, link *models.CollectionLink, code string)
	NotifyBatchCompleted(account *models.Account, link *models.CollectionLink, batch *models.Batch)
}

type notificationService struct {
	provider email.Provider
}

func NewNotificationService(provider email.Provider) NotificationService {
	return &notificationService{provider: provider}
}

func (s *notificationService) SendVerificationCode(to string, link *models.CollectionLink, code string) {
	err := s.provider.SendTemplate(
		[]string{to},
		"Your verification code",
		email.TemplateVerificationCode,
		email.TemplateData{
			"LinkTitle":  link.Title,
			"Code":       code,
			"TTLMinutes": int(verification.CodeTTL.Minutes()),
		},
	)
	if err != nil {
		logger.Warn("failed to send verification code", "email", to, "error", err)
	}
}

// NotifyBatchCompleted mails the workspace owner when a batch closes, if the
// link opted in via its settings.
func (s *notificationService) NotifyBatchCompleted(account *models.Account, link *models.CollectionLink, batch *models.Batch) {
	var settings models.LinkSettings
	if len(link.Settings) > 0 {
		if err := json.Unmarshal(link.Settings, &settings); err != nil {
			logger.Warn("failed to parse link settings", "link_id", link.ID, "error", err)
			return
		}
	}
	if !settings.NotifyOnUpload {
		return
	}

	err := s.provider.SendTemplate(
		[]string{account.Email},
		fmt.Sprintf("New files in %s", link.Title),
		email.TemplateBatchCompleted,
		email.TemplateData{
			"UploaderName": batch.UploaderName,
			"FileCount":    batch.TotalFiles,
			"TotalSize":    formatBytes(batch.TotalSize),
			"LinkTitle":    link.Title,
			"Message":      batch.Message,
		},
	)
	if err != nil {
		logger.Warn("failed to send batch notification", "link_id", link.ID, "error", err)
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
