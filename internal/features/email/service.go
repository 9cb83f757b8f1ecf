package email

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"

	"go-fundadmin/internal/config"
	"go-fundadmin/internal/features/automation"
	"go-fundadmin/pkg/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type EmailServiceImpl struct {
	Config *config.Config
	Repo   *EmailLogRepository
	Logger *zap.Logger

	// sendMail is swapped out in tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailService(cfg *config.Config, repo *EmailLogRepository, logger *zap.Logger) automation.EmailSender {
	return &EmailServiceImpl{
		Config:   cfg,
		Repo:     repo,
		Logger:   logger,
		sendMail: smtp.SendMail,
	}
}

func (s *EmailServiceImpl) SendEmail(ctx context.Context, to []string, subject, body string) error {
	if len(to) == 0 {
		return errors.New("no recipients")
	}
	if s.Config.SMTPHost == "" || s.Config.SMTPPort == 0 {
		return errors.New("smtp not configured")
	}

	auth := smtp.PlainAuth("", s.Config.SMTPUser, s.Config.SMTPPassword, s.Config.SMTPHost)
	addr := fmt.Sprintf("%s:%d", s.Config.SMTPHost, s.Config.SMTPPort)
	from := s.Config.SMTPFrom
	if from == "" {
		from = s.Config.SMTPUser
	}

	entry := &EmailLog{
		ID:       primitive.NewObjectID(),
		TenantID: tenantFromContext(ctx),
		From:     from,
		To:       to,
		Subject:  subject,
		Status:   EmailQueued,
	}
	if s.Repo != nil {
		if err := s.Repo.Create(ctx, entry); err != nil {
			s.Logger.Warn("failed to log outbound email", zap.Error(err))
		}
	}

	msg := []byte(fmt.Sprintf("To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: text/html; charset=\"UTF-8\"\r\n"+
		"\r\n"+
		"%s\r\n", to[0], subject, body))

	err := s.sendMail(addr, auth, from, to, msg)

	status := EmailSent
	errMsg := ""
	if err != nil {
		status = EmailFailed
		errMsg = err.Error()
	}
	if s.Repo != nil {
		if updErr := s.Repo.UpdateStatus(ctx, entry.ID, status, errMsg); updErr != nil {
			s.Logger.Warn("failed to update email log", zap.Error(updErr))
		}
	}

	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func tenantFromContext(ctx context.Context) primitive.ObjectID {
	if claims, ok := ctx.Value(utils.UserClaimsKey).(*utils.UserClaims); ok && claims != nil {
		if id, err := primitive.ObjectIDFromHex(claims.TenantID); err == nil {
			return id
		}
	}
	return primitive.NilObjectID
}
