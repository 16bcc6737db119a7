package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/tajer-app/locations/internal/config"
	"github.com/tajer-app/locations/internal/queue/task"
	emailProvider "github.com/tajer-app/locations/pkg/email"
)

type emailSender struct {
	sender emailProvider.Sender
	config config.EmailConfig
}

func newEmailSender(
	sender emailProvider.Sender,
	config config.EmailConfig,
) *emailSender {
	return &emailSender{
		sender: sender,
		config: config,
	}
}

type syncFailedEmailInput struct {
	ProgressID   string
	Partner      string
	TriggeredBy  string
	StartedAt    string
	ErrorMessage string
}

func (s *emailSender) SendSyncFailedEmail(ctx context.Context, data task.SyncFailedEmail) error {
	if !s.config.Enabled || len(s.config.Recipients) == 0 {
		return nil
	}

	subject := fmt.Sprintf("Location sync failed: %s", data.Partner)

	templateInput := syncFailedEmailInput{
		ProgressID:   data.ProgressID.String(),
		Partner:      data.Partner.String(),
		TriggeredBy:  data.TriggeredBy,
		StartedAt:    data.StartedAt.Format(time.RFC1123),
		ErrorMessage: data.ErrorMessage,
	}
	sendInput := emailProvider.SendEmailInput{Subject: subject, To: s.config.Recipients}

	if err := sendInput.GenerateBodyFromHTML(s.config.Templates.SyncFailed, templateInput); err != nil {
		return fmt.Errorf("generate email failed: %w", err)
	}

	if err := s.sender.Send(sendInput); err != nil {
		return fmt.Errorf("send email failed: %w", err)
	}

	return nil
}
