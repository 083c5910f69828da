package repository

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/relayforge/novu-bridge/internal/domain"
)

// NotificationLogModel is the persistence model for notification_logs.
// external_id carries the unique index that makes ingestion idempotent.
type NotificationLogModel struct {
	ID            string  `gorm:"type:uuid;primaryKey"`
	ExternalID    string  `gorm:"type:varchar(255);not null;uniqueIndex:idx_notification_logs_external_id"`
	WorkflowID    *string `gorm:"type:varchar(255)"`
	StepID        *string `gorm:"type:varchar(255)"`
	Channel       *string `gorm:"type:varchar(50)"`
	Status        *string `gorm:"type:varchar(50)"`
	SubscriberID  *string `gorm:"type:varchar(255)"`
	ProviderID    *string `gorm:"type:varchar(100)"`
	MessageID     *string `gorm:"type:varchar(255)"`
	OccurredAt    time.Time
	Metadata      datatypes.JSONMap `gorm:"type:jsonb"`
	Raw           datatypes.JSON    `gorm:"type:jsonb"`
	TenantID      *string           `gorm:"type:varchar(255)"`
	TransactionID *string           `gorm:"type:varchar(255)"`
	CorrelationID *string           `gorm:"type:varchar(255)"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (NotificationLogModel) TableName() string {
	return "notification_logs"
}

func logModelFromDomain(l *domain.NotificationLog) *NotificationLogModel {
	if l == nil {
		return nil
	}

	var metadata datatypes.JSONMap
	if l.Metadata != nil {
		metadata = datatypes.JSONMap(l.Metadata)
	}

	return &NotificationLogModel{
		ID:            l.ID,
		ExternalID:    l.ExternalID,
		WorkflowID:    l.WorkflowID,
		StepID:        l.StepID,
		Channel:       l.Channel,
		Status:        l.Status,
		SubscriberID:  l.SubscriberID,
		ProviderID:    l.ProviderID,
		MessageID:     l.MessageID,
		OccurredAt:    l.OccurredAt,
		Metadata:      metadata,
		Raw:           datatypes.JSON(l.Raw),
		TenantID:      l.TenantID,
		TransactionID: l.TransactionID,
		CorrelationID: l.CorrelationID,
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
	}
}

func logModelToDomain(m *NotificationLogModel) *domain.NotificationLog {
	if m == nil {
		return nil
	}

	var metadata map[string]any
	if m.Metadata != nil {
		metadata = map[string]any(m.Metadata)
	}

	return &domain.NotificationLog{
		ID:            m.ID,
		ExternalID:    m.ExternalID,
		WorkflowID:    m.WorkflowID,
		StepID:        m.StepID,
		Channel:       m.Channel,
		Status:        m.Status,
		SubscriberID:  m.SubscriberID,
		ProviderID:    m.ProviderID,
		MessageID:     m.MessageID,
		OccurredAt:    m.OccurredAt,
		Metadata:      metadata,
		Raw:           json.RawMessage(m.Raw),
		TenantID:      m.TenantID,
		TransactionID: m.TransactionID,
		CorrelationID: m.CorrelationID,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
