package service

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/jobs"
)

type mailTemplate struct {
	subject *template.Template
	body    *template.Template
}

func mustMailTemplate(name, subject, body string) mailTemplate {
	return mailTemplate{
		subject: template.Must(template.New(name + "_subject").Option("missingkey=zero").Parse(subject)),
		body:    template.Must(template.New(name + "_body").Option("missingkey=zero").Parse(body)),
	}
}

var mailTemplates = map[string]mailTemplate{
	models.TemplateMagicLink: mustMailTemplate(models.TemplateMagicLink,
		"Seu link de acesso",
		"Olá!\n\nUse o link abaixo para entrar. Ele expira em {{.ttl}}.\n\n{{.url}}\n\nSe você não pediu este acesso, ignore este email.\n"),
	models.TemplateSchedulingCreated: mustMailTemplate(models.TemplateSchedulingCreated,
		"Avaliação agendada: {{.name}}",
		"A avaliação \"{{.name}}\" foi agendada.\n\nCurso: {{.course}}\nDisciplina: {{.discipline}}\nTurma: {{.class}}\nData: {{.date}} das {{.start}} às {{.end}}\n"),
	models.TemplateSchedulingUpdated: mustMailTemplate(models.TemplateSchedulingUpdated,
		"Avaliação alterada: {{.name}}",
		"A avaliação \"{{.name}}\" foi alterada.\n\nAntes: {{.before_date}} das {{.before_start}} às {{.before_end}}\nAgora: {{.date}} das {{.start}} às {{.end}}\n\nCurso: {{.course}}\nDisciplina: {{.discipline}}\nTurma: {{.class}}\n"),
	models.TemplateSchedulingDeleted: mustMailTemplate(models.TemplateSchedulingDeleted,
		"Avaliação cancelada: {{.name}}",
		"A avaliação \"{{.name}}\" de {{.date}} das {{.start}} às {{.end}} foi cancelada.\n\nCurso: {{.course}}\nDisciplina: {{.discipline}}\nTurma: {{.class}}\n"),
}

// RenderNotification renders a notification into a mail message.
func RenderNotification(n models.Notification) (models.MailMessage, error) {
	tpl, ok := mailTemplates[n.Template]
	if !ok {
		return models.MailMessage{}, fmt.Errorf("unknown mail template %q", n.Template)
	}
	params := n.Params
	if params == nil {
		params = map[string]string{}
	}
	var subject, body bytes.Buffer
	if err := tpl.subject.Execute(&subject, params); err != nil {
		return models.MailMessage{}, fmt.Errorf("render %s subject: %w", n.Template, err)
	}
	if err := tpl.body.Execute(&body, params); err != nil {
		return models.MailMessage{}, fmt.Errorf("render %s body: %w", n.Template, err)
	}
	return models.MailMessage{To: n.To, Subject: subject.String(), Text: body.String()}, nil
}

type jobQueue interface {
	Enqueue(job jobs.Job) error
}

// NotificationService renders and delivers emails in the background.
// Notify never reports failures to its caller.
type NotificationService struct {
	sender  MailSender
	queue   jobQueue
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService constructs a NotificationService. Bind a queue
// with AttachQueue; without one, Notify delivers inline.
func NewNotificationService(sender MailSender, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{sender: sender, metrics: metrics, logger: logger}
}

// AttachQueue routes notifications through queue.
func (s *NotificationService) AttachQueue(queue jobQueue) {
	s.queue = queue
}

// Notify schedules delivery of n.
func (s *NotificationService) Notify(ctx context.Context, n models.Notification) {
	if s.queue == nil {
		if err := s.Deliver(ctx, n); err != nil {
			s.logger.Warn("notification failed", zap.String("template", n.Template), zap.Error(err))
		}
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Type: n.Template, Payload: n}
	if err := s.queue.Enqueue(job); err != nil {
		s.metrics.RecordNotification(n.Template, false)
		s.logger.Warn("notification dropped", zap.String("template", n.Template), zap.String("to", n.To), zap.Error(err))
	}
}

// HandleJob is the queue handler for notification jobs.
func (s *NotificationService) HandleJob(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(models.Notification)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.Deliver(ctx, n)
}

// Deliver renders and sends n synchronously.
func (s *NotificationService) Deliver(ctx context.Context, n models.Notification) error {
	msg, err := RenderNotification(n)
	if err != nil {
		s.metrics.RecordNotification(n.Template, false)
		return err
	}
	result, err := s.sender.Send(ctx, msg)
	if err != nil {
		s.metrics.RecordNotification(n.Template, false)
		return err
	}
	s.metrics.RecordNotification(n.Template, result.Success)
	s.logger.Debug("notification sent", zap.String("template", n.Template), zap.String("message_id", result.MessageID))
	return nil
}
