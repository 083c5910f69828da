package domain

import (
	"fmt"
	"strings"
)

// Channel represents a Novu delivery channel used in workflow steps.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
	ChannelInApp Channel = "in_app"
	ChannelChat  Channel = "chat"
)

func (c Channel) String() string { return string(c) }

func (c Channel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelPush, ChannelInApp, ChannelChat:
		return true
	}
	return false
}

func ParseChannelFromString(s string) (Channel, error) {
	ch := Channel(strings.ToLower(strings.TrimSpace(s)))
	if !ch.IsValid() {
		return "", fmt.Errorf("%w: invalid channel %q", ErrValidation, s)
	}
	return ch, nil
}

// Subscriber is the recipient descriptor passed to trigger and subscriber
// management calls. SubscriberID is the only required field.
type Subscriber struct {
	SubscriberID string         `json:"subscriberId"`
	Email        string         `json:"email,omitempty"`
	Phone        string         `json:"phone,omitempty"`
	FirstName    string         `json:"firstName,omitempty"`
	LastName     string         `json:"lastName,omitempty"`
	Avatar       string         `json:"avatar,omitempty"`
	Locale       string         `json:"locale,omitempty"`
	Timezone     string         `json:"timezone,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
}

func (s Subscriber) Validate() error {
	if strings.TrimSpace(s.SubscriberID) == "" {
		return fmt.Errorf("%w: subscriberId is required", ErrValidation)
	}
	return nil
}

// EmailOverrides adjusts email delivery for a single trigger.
type EmailOverrides struct {
	From    string   `json:"from,omitempty"`
	ReplyTo string   `json:"replyTo,omitempty"`
	BCC     []string `json:"bcc,omitempty"`
	CC      []string `json:"cc,omitempty"`
	Subject string   `json:"subject,omitempty"`
}

type SMSOverrides struct {
	From string `json:"from,omitempty"`
}

type PushOverrides struct {
	Title string `json:"title,omitempty"`
	Sound string `json:"sound,omitempty"`
	Badge int    `json:"badge,omitempty"`
}

type InAppOverrides struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
}

// Overrides carries per-channel delivery overrides for one trigger call.
type Overrides struct {
	Email *EmailOverrides `json:"email,omitempty"`
	SMS   *SMSOverrides   `json:"sms,omitempty"`
	Push  *PushOverrides  `json:"push,omitempty"`
	InApp *InAppOverrides `json:"inApp,omitempty"`
}

// TriggerEvent is one workflow trigger request. Payload feeds the workflow
// templates; TransactionID enables upstream tracking and dedup.
type TriggerEvent struct {
	To            Subscriber     `json:"to"`
	WorkflowID    string         `json:"workflowId"`
	Payload       map[string]any `json:"payload,omitempty"`
	Overrides     *Overrides     `json:"overrides,omitempty"`
	TransactionID string         `json:"transactionId,omitempty"`
}

func (e TriggerEvent) Validate() error {
	if strings.TrimSpace(e.WorkflowID) == "" {
		return fmt.Errorf("%w: workflowId is required", ErrValidation)
	}
	return e.To.Validate()
}

// TriggerStatus is the coarse outcome reported by the orchestrator.
type TriggerStatus string

const (
	TriggerStatusProcessed TriggerStatus = "processed"
	TriggerStatusError     TriggerStatus = "error"
)

type TriggerErrorInfo struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// TriggerResult is what the orchestrator acknowledged for one trigger call.
type TriggerResult struct {
	Acknowledged  bool              `json:"acknowledged"`
	Status        TriggerStatus     `json:"status"`
	TransactionID string            `json:"transactionId,omitempty"`
	Error         *TriggerErrorInfo `json:"error,omitempty"`
}

// SubscriberResult mirrors the orchestrator's view of a subscriber.
type SubscriberResult struct {
	SubscriberID string         `json:"subscriberId"`
	Email        string         `json:"email,omitempty"`
	Phone        string         `json:"phone,omitempty"`
	FirstName    string         `json:"firstName,omitempty"`
	LastName     string         `json:"lastName,omitempty"`
	Avatar       string         `json:"avatar,omitempty"`
	Locale       string         `json:"locale,omitempty"`
	Timezone     string         `json:"timezone,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
	CreatedAt    string         `json:"createdAt,omitempty"`
	UpdatedAt    string         `json:"updatedAt,omitempty"`
}

// ChannelPreference toggles one channel in subscriber preferences.
type ChannelPreference struct {
	Enabled bool `json:"enabled"`
}

// SubscriberPreferences follows the Novu preferences schema. Schedule is
// kept open so the orchestrator's schema can evolve without breaking us.
type SubscriberPreferences struct {
	Channels map[Channel]ChannelPreference `json:"channels,omitempty"`
	Schedule map[string]any                `json:"schedule,omitempty"`
}

// StepControlValues is the template content for one workflow step. The
// workflow runtime interprets these; this service only ships them.
type StepControlValues struct {
	Subject   string `json:"subject,omitempty"`
	Body      string `json:"body"`
	Title     string `json:"title,omitempty"`
	Preheader string `json:"preheader,omitempty"`
	Icon      string `json:"icon,omitempty"`
}

// WorkflowStep is one step in a code-first workflow definition.
type WorkflowStep struct {
	Name          string            `json:"name"`
	Type          Channel           `json:"type"`
	ControlValues StepControlValues `json:"controlValues"`
}

func (s WorkflowStep) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: step name is required", ErrValidation)
	}
	if !s.Type.IsValid() {
		return fmt.Errorf("%w: invalid step type %q", ErrValidation, s.Type)
	}
	return nil
}

// WorkflowDefinition is a code-first workflow create request.
type WorkflowDefinition struct {
	WorkflowID  string         `json:"workflowId"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Steps       []WorkflowStep `json:"steps"`
}

func (w WorkflowDefinition) Validate() error {
	if strings.TrimSpace(w.WorkflowID) == "" {
		return fmt.Errorf("%w: workflowId is required", ErrValidation)
	}
	if strings.TrimSpace(w.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if len(w.Steps) == 0 {
		return fmt.Errorf("%w: steps is required", ErrValidation)
	}
	for _, step := range w.Steps {
		if err := step.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// WorkflowUpdate is a partial update; zero fields are left untouched.
type WorkflowUpdate struct {
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Steps       []WorkflowStep `json:"steps,omitempty"`
}

// WorkflowResult is the orchestrator's view of a stored workflow.
type WorkflowResult struct {
	ID          string   `json:"id"`
	WorkflowID  string   `json:"workflowId"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Active      bool     `json:"active"`
	CreatedAt   string   `json:"createdAt,omitempty"`
	UpdatedAt   string   `json:"updatedAt,omitempty"`
}
