package models

// Notification template keys.
const (
	TemplateMagicLink         = "magic_link"
	TemplateSchedulingCreated = "scheduling_created"
	TemplateSchedulingUpdated = "scheduling_updated"
	TemplateSchedulingDeleted = "scheduling_deleted"
)

// Notification asks for a templated email to be delivered.
type Notification struct {
	Template string
	To       string
	Params   map[string]string
}

// MailMessage is a rendered email ready for a sender.
type MailMessage struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// SendResult reports the outcome of one delivery.
type SendResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
}
