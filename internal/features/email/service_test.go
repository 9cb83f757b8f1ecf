package email

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"go-fundadmin/internal/config"

	"go.uber.org/zap"
)

func newTestService(send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error) *EmailServiceImpl {
	return &EmailServiceImpl{
		Config: &config.Config{
			SMTPHost: "smtp.example.com",
			SMTPPort: 587,
			SMTPUser: "mailer@example.com",
			SMTPFrom: "noreply@example.com",
		},
		Logger:   zap.NewNop(),
		sendMail: send,
	}
}

func TestSendEmailFormatsMessage(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	svc := newTestService(func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	})

	err := svc.SendEmail(context.Background(), []string{"cfo@fund.example"}, "Month-end close", "<p>All documents reconciled</p>")
	if err != nil {
		t.Fatalf("SendEmail: %v", err)
	}

	if gotAddr != "smtp.example.com:587" {
		t.Errorf("addr = %q", gotAddr)
	}
	if gotFrom != "noreply@example.com" {
		t.Errorf("from = %q", gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "cfo@fund.example" {
		t.Errorf("to = %v", gotTo)
	}
	msg := string(gotMsg)
	if !strings.Contains(msg, "Subject: Month-end close\r\n") {
		t.Errorf("missing subject header in %q", msg)
	}
	if !strings.Contains(msg, "All documents reconciled") {
		t.Errorf("missing body in %q", msg)
	}
}

func TestSendEmailErrors(t *testing.T) {
	svc := newTestService(func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		return errors.New("connection refused")
	})

	if err := svc.SendEmail(context.Background(), []string{"a@b.c"}, "s", "b"); err == nil {
		t.Error("expected transport error to propagate")
	}
	if err := svc.SendEmail(context.Background(), nil, "s", "b"); err == nil {
		t.Error("expected error for empty recipients")
	}

	svc.Config.SMTPHost = ""
	if err := svc.SendEmail(context.Background(), []string{"a@b.c"}, "s", "b"); err == nil {
		t.Error("expected error when smtp unconfigured")
	}
}
