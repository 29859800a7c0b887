package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// NotificationPriority maps detected severity onto delivery urgency for the
// downstream notification service.
type NotificationPriority int

const (
	PriorityLow NotificationPriority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

func (p NotificationPriority) String() string {
	switch p {
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "low"
	}
}

// MarshalJSON emits the lowercase name so queue consumers read "high", not 2.
func (p NotificationPriority) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

func (p *NotificationPriority) UnmarshalJSON(b []byte) error {
	switch strings.Trim(string(b), `"`) {
	case "low":
		*p = PriorityLow
	case "medium":
		*p = PriorityMedium
	case "high":
		*p = PriorityHigh
	case "critical":
		*p = PriorityCritical
	default:
		return fmt.Errorf("unknown notification priority %s", string(b))
	}
	return nil
}

// NotificationMetadata travels with every request so the notification service
// can trace an alert back to its trigger.
type NotificationMetadata struct {
	AlertType     string    `json:"alert_type"`
	FieldID       string    `json:"field_id"`
	DetectedAt    time.Time `json:"detected_at"`
	Severity      string    `json:"severity"`
	CorrelationID string    `json:"correlation_id"`
}

// NotificationRequest asks the notification service to deliver a message.
// Either a template reference with substitution params or a literal
// subject/body is set, never both.
type NotificationRequest struct {
	To             []string             `json:"to"`
	CC             []string             `json:"cc,omitempty"`
	BCC            []string             `json:"bcc,omitempty"`
	TemplateID     string               `json:"template_id,omitempty"`
	TemplateParams map[string]string    `json:"template_params,omitempty"`
	Subject        string               `json:"subject,omitempty"`
	Body           string               `json:"body,omitempty"`
	Priority       NotificationPriority `json:"priority"`
	Metadata       NotificationMetadata `json:"metadata"`
}

// NewTemplateNotification builds a template-based request.
func NewTemplateNotification(to []string, templateID string, params map[string]string, priority NotificationPriority, meta NotificationMetadata) (NotificationRequest, error) {
	n := NotificationRequest{
		To:             to,
		TemplateID:     templateID,
		TemplateParams: params,
		Priority:       priority,
		Metadata:       meta,
	}
	if err := n.Validate(); err != nil {
		return NotificationRequest{}, err
	}
	return n, nil
}

// NewDirectNotification builds a literal subject/body request.
func NewDirectNotification(to []string, subject, body string, priority NotificationPriority, meta NotificationMetadata) (NotificationRequest, error) {
	n := NotificationRequest{
		To:       to,
		Subject:  subject,
		Body:     body,
		Priority: priority,
		Metadata: meta,
	}
	if err := n.Validate(); err != nil {
		return NotificationRequest{}, err
	}
	return n, nil
}

func (n NotificationRequest) Validate() error {
	if len(n.To) == 0 {
		return errors.New("notification needs at least one recipient")
	}
	for _, addr := range n.To {
		if strings.TrimSpace(addr) == "" {
			return errors.New("notification recipient is blank")
		}
	}
	hasTemplate := n.TemplateID != ""
	hasLiteral := n.Subject != "" || n.Body != ""
	if hasTemplate && hasLiteral {
		return errors.New("notification sets both template and subject/body")
	}
	if !hasTemplate && !hasLiteral {
		return errors.New("notification sets neither template nor subject/body")
	}
	return nil
}
