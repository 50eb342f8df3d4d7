package service

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
)

// MailSender delivers one rendered message.
type MailSender interface {
	Send(ctx context.Context, msg models.MailMessage) (models.SendResult, error)
}

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// SendGridSender delivers mail through the SendGrid v3 API.
type SendGridSender struct {
	key  string
	from *sgmail.Email
	call func(req rest.Request) (*rest.Response, error)
}

// NewSendGridSender constructs a SendGridSender.
func NewSendGridSender(apiKey, fromName, fromEmail string) *SendGridSender {
	return &SendGridSender{
		key:  apiKey,
		from: sgmail.NewEmail(fromName, fromEmail),
		call: sendgrid.API,
	}
}

// Send implements MailSender and returns the provider message id.
func (s *SendGridSender) Send(ctx context.Context, msg models.MailMessage) (models.SendResult, error) {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail("", msg.To))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.Text))
	if msg.HTML != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}

	req := sendgrid.GetRequest(s.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	if err := ctx.Err(); err != nil {
		return models.SendResult{}, err
	}
	res, err := s.call(req)
	if err != nil {
		return models.SendResult{}, fmt.Errorf("sendgrid send: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return models.SendResult{}, fmt.Errorf("sendgrid send: status %d: %s", res.StatusCode, res.Body)
	}

	result := models.SendResult{Success: true}
	if ids := res.Headers["X-Message-Id"]; len(ids) > 0 {
		result.MessageID = ids[0]
	}
	return result, nil
}

// LogSender writes messages to the logger instead of sending them.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender constructs a LogSender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send implements MailSender.
func (s *LogSender) Send(ctx context.Context, msg models.MailMessage) (models.SendResult, error) {
	s.logger.Info("mail",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Text))
	return models.SendResult{Success: true, MessageID: "log"}, nil
}
