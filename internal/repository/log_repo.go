package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/relayforge/novu-bridge/internal/domain"
)

const (
	defaultQueryLimit = 50
	maxQueryLimit     = 500
)

// ListParams filters the operational log listing.
type ListParams struct {
	Status       *string
	SubscriberID *string
	WorkflowID   *string
	From         *time.Time
	To           *time.Time
	Page         int
	PageSize     int
}

// LogRepository is the durable store for notification logs. Save must fail
// with domain.ErrDuplicate when the external id already exists; the unique
// index is the authoritative arbiter under concurrent duplicate delivery.
type LogRepository interface {
	Save(ctx context.Context, log *domain.NotificationLog) error
	FindByExternalID(ctx context.Context, externalID string) (*domain.NotificationLog, error)
	FindBySubscriberID(ctx context.Context, subscriberID string, limit, offset int) ([]domain.NotificationLog, error)
	FindByWorkflowID(ctx context.Context, workflowID string, limit, offset int) ([]domain.NotificationLog, error)
	FindByStatus(ctx context.Context, status string, limit, offset int) ([]domain.NotificationLog, error)
	List(ctx context.Context, params ListParams) ([]domain.NotificationLog, int64, error)
}

type GormLogRepo struct {
	db *gorm.DB
}

func NewGormLogRepo(db *gorm.DB) *GormLogRepo {
	return &GormLogRepo{db: db}
}

func (r *GormLogRepo) Save(ctx context.Context, log *domain.NotificationLog) error {
	model := logModelFromDomain(log)
	if model == nil {
		return fmt.Errorf("%w: log record is required", domain.ErrValidation)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: external id %q", domain.ErrDuplicate, log.ExternalID)
		}
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	*log = *logModelToDomain(model)
	return nil
}

func (r *GormLogRepo) FindByExternalID(ctx context.Context, externalID string) (*domain.NotificationLog, error) {
	var model NotificationLogModel
	err := r.db.WithContext(ctx).
		Where("external_id = ?", externalID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return logModelToDomain(&model), nil
}

func (r *GormLogRepo) FindBySubscriberID(ctx context.Context, subscriberID string, limit, offset int) ([]domain.NotificationLog, error) {
	return r.findBy(ctx, "subscriber_id = ?", subscriberID, limit, offset)
}

func (r *GormLogRepo) FindByWorkflowID(ctx context.Context, workflowID string, limit, offset int) ([]domain.NotificationLog, error) {
	return r.findBy(ctx, "workflow_id = ?", workflowID, limit, offset)
}

func (r *GormLogRepo) FindByStatus(ctx context.Context, status string, limit, offset int) ([]domain.NotificationLog, error) {
	return r.findBy(ctx, "status = ?", status, limit, offset)
}

func (r *GormLogRepo) findBy(ctx context.Context, query string, arg any, limit, offset int) ([]domain.NotificationLog, error) {
	if limit < 1 {
		limit = defaultQueryLimit
	}
	limit = min(limit, maxQueryLimit)
	offset = max(offset, 0)

	var models []NotificationLogModel
	err := r.db.WithContext(ctx).
		Where(query, arg).
		Order("occurred_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	logs := make([]domain.NotificationLog, 0, len(models))
	for i := range models {
		logs = append(logs, *logModelToDomain(&models[i]))
	}
	return logs, nil
}

func (r *GormLogRepo) List(ctx context.Context, params ListParams) ([]domain.NotificationLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&NotificationLogModel{})

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.SubscriberID != nil {
		query = query.Where("subscriber_id = ?", *params.SubscriberID)
	}
	if params.WorkflowID != nil {
		query = query.Where("workflow_id = ?", *params.WorkflowID)
	}
	if params.From != nil {
		query = query.Where("occurred_at >= ?", *params.From)
	}
	if params.To != nil {
		query = query.Where("occurred_at <= ?", *params.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = defaultQueryLimit
	}
	pageSize = min(pageSize, maxQueryLimit)

	var models []NotificationLogModel
	err := query.
		Order("occurred_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	logs := make([]domain.NotificationLog, 0, len(models))
	for i := range models {
		logs = append(logs, *logModelToDomain(&models[i]))
	}

	return logs, total, nil
}
