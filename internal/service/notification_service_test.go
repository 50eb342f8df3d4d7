package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/models"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/jobs"
)

type captureSender struct {
	mu   sync.Mutex
	msgs []models.MailMessage
	err  error
}

func (c *captureSender) Send(ctx context.Context, msg models.MailMessage) (models.SendResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return models.SendResult{}, c.err
	}
	c.msgs = append(c.msgs, msg)
	return models.SendResult{Success: true, MessageID: "m-1"}, nil
}

func (c *captureSender) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func TestRenderNotification(t *testing.T) {
	msg, err := RenderNotification(models.Notification{
		Template: models.TemplateSchedulingUpdated,
		To:       "prof@unifil.br",
		Params: map[string]string{
			"name":         "Prova 1",
			"date":         "10/03/2025",
			"start":        "10:30",
			"end":          "11:30",
			"before_date":  "10/03/2025",
			"before_start": "10:00",
			"before_end":   "11:00",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Avaliação alterada: Prova 1", msg.Subject)
	assert.Contains(t, msg.Text, "Antes: 10/03/2025 das 10:00 às 11:00")
	assert.Contains(t, msg.Text, "Agora: 10/03/2025 das 10:30 às 11:30")
	assert.Equal(t, "prof@unifil.br", msg.To)

	_, err = RenderNotification(models.Notification{Template: "unknown"})
	assert.Error(t, err)
}

func TestRenderNotificationMissingParams(t *testing.T) {
	msg, err := RenderNotification(models.Notification{Template: models.TemplateSchedulingDeleted})
	require.NoError(t, err)
	assert.NotContains(t, msg.Text, "<no value>")
}

func TestNotifyInlineSwallowsFailures(t *testing.T) {
	sender := &captureSender{err: errors.New("smtp down")}
	svc := NewNotificationService(sender, nil, zap.NewNop())

	assert.NotPanics(t, func() {
		svc.Notify(context.Background(), models.Notification{Template: models.TemplateSchedulingCreated, To: "a@unifil.br"})
	})
}

func TestNotifyThroughQueue(t *testing.T) {
	sender := &captureSender{}
	svc := NewNotificationService(sender, NewMetricsService(), zap.NewNop())
	queue := jobs.NewQueue("notifications", svc.HandleJob, jobs.QueueConfig{Workers: 1, BufferSize: 4})
	svc.AttachQueue(queue)
	queue.Start(context.Background())

	svc.Notify(context.Background(), models.Notification{
		Template: models.TemplateSchedulingCreated,
		To:       "a@unifil.br",
		Params:   map[string]string{"name": "Prova"},
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	queue.Stop(ctx)
	require.Equal(t, 1, sender.count())
	assert.Equal(t, "Avaliação agendada: Prova", sender.msgs[0].Subject)
}

func TestSchedulingMutationSurvivesFailingNotifier(t *testing.T) {
	f := newSchedulingFixture(t)
	failing := NewNotificationService(&captureSender{err: errors.New("provider down")}, nil, zap.NewNop())
	f.svc.deps.Notifier = failing

	created, err := f.svc.Create(context.Background(), owner(), slot("10:00", "11:00"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
}

func TestSendGridSenderReturnsMessageID(t *testing.T) {
	sender := NewSendGridSender("key", "Agendamento", "no-reply@unifil.br")
	var captured rest.Request
	sender.call = func(req rest.Request) (*rest.Response, error) {
		captured = req
		return &rest.Response{StatusCode: http.StatusAccepted, Headers: map[string][]string{"X-Message-Id": {"abc123"}}}, nil
	}

	res, err := sender.Send(context.Background(), models.MailMessage{To: "prof@unifil.br", Subject: "Oi", Text: "corpo"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "abc123", res.MessageID)
	assert.Equal(t, rest.Method(http.MethodPost), captured.Method)
	assert.True(t, strings.HasSuffix(captured.BaseURL, "/v3/mail/send"))
	assert.Contains(t, string(captured.Body), "prof@unifil.br")
}

func TestSendGridSenderReportsProviderError(t *testing.T) {
	sender := NewSendGridSender("key", "Agendamento", "no-reply@unifil.br")
	sender.call = func(req rest.Request) (*rest.Response, error) {
		return &rest.Response{StatusCode: http.StatusUnauthorized, Body: "bad key"}, nil
	}

	_, err := sender.Send(context.Background(), models.MailMessage{To: "prof@unifil.br", Subject: "Oi", Text: "corpo"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
